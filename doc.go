// Package rig is the data layer of a character rig: a hierarchy of bones,
// controls, nulls and other elements whose transforms are cached lazily and
// kept coherent by dirty-flag propagation.
//
// Every element with a pose exposes four transforms, {Local, Global} x
// {Current, Initial}. Reading a stale cell derives it from the other space of
// the same pose through the parent chain; writing a cell flags the other
// space stale and prepares every dependent element before the change lands.
//
// # Quick start
//
//	h := rig.NewHierarchy()
//	root := h.MustCreateElement(rig.KindBone, "root")
//	arm := h.MustCreateElement(rig.KindBone, "arm")
//	_ = h.SetParent(arm.Key(), root.Key())
//
//	h.SetTransform(root.Key(), rig.Global, rig.Current, rig.Translate(10, 0, 0))
//	g, _ := h.GetTransform(arm.Key(), rig.Global, rig.Current)
//	// g.Translation == {10, 0, 0}
//
// # Elements
//
// An [Element] is a single flat struct tagged with an [ElementKind]. Kinds
// belong to class layers: a bone, physics element, reference or socket has a
// single parent; nulls and controls have any number of weighted parents;
// curves and connectors carry no pose. Use [Element.IsA], [Element.As] and
// [Element.MustAs] to test and narrow. Elements are created and removed by
// their [Hierarchy] and are addressed externally by [Key].
//
// # Multi-parent blending
//
// The parent frame of a null or control is a blend of its parents' Global
// transforms, weighted per channel (location, rotation, scale) and per pose.
// The blend is cached and invalidated when a parent moves, a weight changes
// or the parent list is replaced. [ParentSwitch] animates a switch between
// parents with a [gween] easing function.
//
// # Storage
//
// Transforms, dirty flags and curve values live in [StoragePool] arrays
// addressed by generation-checked [Handle] values. [Hierarchy.Shrink]
// compacts the pools and relinks every element.
//
// # Files
//
// [ParseDefinition] and [Definition.Build] load a rig from YAML or JSON in
// two phases, so parents may be listed after their children.
// [DefinitionOf] captures a hierarchy back into a [Definition].
//
// # Debugging
//
// [Hierarchy.SetDebugMode] makes integrity errors panic and verifies the
// dirty invariant after every mutation. Outside debug mode integrity errors
// are logged through the logger installed with [SetLogger] and fall back to
// Identity transforms.
//
// [gween]: https://github.com/tanema/gween
package rig
