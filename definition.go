package rig

import (
	"errors"
	"fmt"

	"github.com/go-gl/mathgl/mgl64"
	"gopkg.in/yaml.v3"
)

// Definition is the file form of a rig. Loading happens in two phases:
// every element is created with its own fields first, and parent
// references are resolved by key once the whole element table exists, so a
// parent may be listed after its children.
type Definition struct {
	Elements []ElementDef `json:"elements" yaml:"elements"`
}

// ElementDef describes one element. Transforms are Local.
type ElementDef struct {
	Kind    ElementKind  `json:"kind" yaml:"kind"`
	Name    string       `json:"name" yaml:"name"`
	Parents []ParentDef  `json:"parents,omitempty" yaml:"parents,omitempty"`
	Initial TransformDef `json:"initial,omitempty" yaml:"initial,omitempty"`
	// Current overrides the Current pose; omitted means Initial.
	Current *TransformDef `json:"current,omitempty" yaml:"current,omitempty"`
	Offset  *TransformDef `json:"offset,omitempty" yaml:"offset,omitempty"`
	Shape   *TransformDef `json:"shape,omitempty" yaml:"shape,omitempty"`
	// CurrentOffset and CurrentShape override the Current control offset and
	// shape; omitted means Offset and Shape.
	CurrentOffset *TransformDef `json:"current_offset,omitempty" yaml:"current_offset,omitempty"`
	CurrentShape  *TransformDef `json:"current_shape,omitempty" yaml:"current_shape,omitempty"`

	BoneType  *BoneType          `json:"bone_type,omitempty" yaml:"bone_type,omitempty"`
	Control   *ControlSettings   `json:"control,omitempty" yaml:"control,omitempty"`
	Physics   *PhysicsSettings   `json:"physics,omitempty" yaml:"physics,omitempty"`
	Connector *ConnectorSettings `json:"connector,omitempty" yaml:"connector,omitempty"`
	Socket    *SocketSettings    `json:"socket,omitempty" yaml:"socket,omitempty"`
	Curve     *float64           `json:"curve,omitempty" yaml:"curve,omitempty"`
}

// Key returns the element's key.
func (d *ElementDef) Key() Key { return Key{Kind: d.Kind, Name: d.Name} }

// ParentDef is one parent reference. Omitted weights mean full weight;
// InitialWeight defaults to Weight.
type ParentDef struct {
	Parent        Key     `json:"parent" yaml:"parent"`
	Weight        *Weight `json:"weight,omitempty" yaml:"weight,omitempty"`
	InitialWeight *Weight `json:"initial_weight,omitempty" yaml:"initial_weight,omitempty"`
}

// TransformDef is a transform with optional parts. Rotation is a quaternion
// in x, y, z, w order.
type TransformDef struct {
	Translation *[3]float64 `json:"translation,omitempty" yaml:"translation,omitempty,flow"`
	Rotation    *[4]float64 `json:"rotation,omitempty" yaml:"rotation,omitempty,flow"`
	Scale       *[3]float64 `json:"scale,omitempty" yaml:"scale,omitempty,flow"`
}

// IsZero reports whether no part is set. yaml.v3 uses it for omitempty.
func (t TransformDef) IsZero() bool {
	return t.Translation == nil && t.Rotation == nil && t.Scale == nil
}

// Transform converts the definition, filling omitted parts from Identity.
func (t TransformDef) Transform() Transform {
	out := Identity()
	if t.Translation != nil {
		out.Translation = mgl64.Vec3(*t.Translation)
	}
	if t.Rotation != nil {
		r := *t.Rotation
		out.Rotation = mgl64.Quat{W: r[3], V: mgl64.Vec3{r[0], r[1], r[2]}}.Normalize()
	}
	if t.Scale != nil {
		out.Scale = mgl64.Vec3(*t.Scale)
	}
	return out
}

// DefineTransform is the inverse of TransformDef.Transform; parts equal to
// Identity are omitted.
func DefineTransform(t Transform) TransformDef {
	var d TransformDef
	id := Identity()
	if !vecNear(t.Translation, id.Translation, writeTolerance) {
		v := [3]float64(t.Translation)
		d.Translation = &v
	}
	if !quatNear(t.Rotation, id.Rotation, writeTolerance) {
		r := [4]float64{t.Rotation.V[0], t.Rotation.V[1], t.Rotation.V[2], t.Rotation.W}
		d.Rotation = &r
	}
	if !vecNear(t.Scale, id.Scale, writeTolerance) {
		v := [3]float64(t.Scale)
		d.Scale = &v
	}
	return d
}

// ParseDefinition decodes a YAML (or JSON) rig definition and validates
// that every key is well formed and unique. Parent keys are not resolved
// until Build.
func ParseDefinition(data []byte) (*Definition, error) {
	var d Definition
	if err := yaml.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("parse definition: %w", err)
	}
	if err := d.Validate(); err != nil {
		return nil, err
	}
	return &d, nil
}

// Validate checks keys and parent references without building anything.
func (d *Definition) Validate() error {
	seen := make(map[Key]bool, len(d.Elements))
	var errs []error
	for i := range d.Elements {
		k := d.Elements[i].Key()
		switch {
		case !k.IsValid():
			errs = append(errs, fmt.Errorf("element %d: invalid key %q", i, k))
		case seen[k]:
			errs = append(errs, fmt.Errorf("element %s: %w", k, ErrDuplicateKey))
		}
		seen[k] = true
	}
	for i := range d.Elements {
		el := &d.Elements[i]
		for _, p := range el.Parents {
			if !seen[p.Parent] {
				errs = append(errs, fmt.Errorf("element %s: parent %s: %w", el.Key(), p.Parent, ErrNotFound))
			}
		}
		if el.Kind.Is(ClassSingleParent) && len(el.Parents) > 1 {
			errs = append(errs, fmt.Errorf("element %s: %d parents on a single-parent kind: %w", el.Key(), len(el.Parents), ErrIncompatibleParent))
		}
	}
	return errors.Join(errs...)
}

// Build adds the definition's elements to h. On error h may hold part of
// the rig.
func (d *Definition) Build(h *Hierarchy) error {
	if err := d.Validate(); err != nil {
		return err
	}

	// phase 1: elements and their own fields
	for i := range d.Elements {
		el := &d.Elements[i]
		e, err := h.CreateElement(el.Kind, el.Name)
		if err != nil {
			return fmt.Errorf("build: %w", err)
		}
		if el.BoneType != nil && e.key.Kind == KindBone {
			e.boneType = *el.BoneType
		}
		if el.Control != nil && e.control != nil {
			e.control.settings = *el.Control
		}
		if el.Physics != nil && e.physics != nil {
			*e.physics = *el.Physics
		}
		if el.Connector != nil && e.connector != nil {
			*e.connector = *el.Connector
		}
		if el.Socket != nil && e.socket != nil {
			*e.socket = *el.Socket
		}
		if el.Curve != nil {
			h.SetCurveValue(e.key, *el.Curve)
		}
	}

	// phase 2: parent references, now that every key exists
	for i := range d.Elements {
		el := &d.Elements[i]
		for _, p := range el.Parents {
			w := UniformWeight(1)
			if p.Weight != nil {
				w = *p.Weight
			}
			if err := h.AddParent(el.Key(), p.Parent, w); err != nil {
				return fmt.Errorf("build: %w", err)
			}
			if p.InitialWeight != nil {
				if err := h.SetParentWeight(el.Key(), p.Parent, *p.InitialWeight, Initial); err != nil {
					return fmt.Errorf("build: %w", err)
				}
			}
		}
	}

	// phase 3: poses
	for i := range d.Elements {
		el := &d.Elements[i]
		k := el.Key()
		if !k.Kind.Is(ClassTransform) {
			continue
		}
		if el.Offset != nil {
			h.SetControlOffset(k, Local, Initial, el.Offset.Transform())
			h.SetControlOffset(k, Local, Current, el.Offset.Transform())
		}
		if el.CurrentOffset != nil {
			h.SetControlOffset(k, Local, Current, el.CurrentOffset.Transform())
		}
		if el.Shape != nil {
			h.SetControlShape(k, Local, Initial, el.Shape.Transform())
			h.SetControlShape(k, Local, Current, el.Shape.Transform())
		}
		if el.CurrentShape != nil {
			h.SetControlShape(k, Local, Current, el.CurrentShape.Transform())
		}
		h.SetTransform(k, Local, Initial, el.Initial.Transform())
		current := el.Initial
		if el.Current != nil {
			current = *el.Current
		}
		h.SetTransform(k, Local, Current, current.Transform())
	}
	return nil
}

// LoadHierarchy parses a definition and builds it into a new hierarchy.
func LoadHierarchy(data []byte, cfg Config) (*Hierarchy, error) {
	d, err := ParseDefinition(data)
	if err != nil {
		return nil, err
	}
	h := NewHierarchyWithConfig(cfg)
	if err := d.Build(h); err != nil {
		return nil, err
	}
	return h, nil
}

// DefinitionOf captures h as a Definition: Initial Local poses, parent
// weights and settings, plus the Current pose where it differs.
func DefinitionOf(h *Hierarchy) *Definition {
	d := &Definition{Elements: make([]ElementDef, 0, len(h.elements))}
	for _, e := range h.elements {
		el := ElementDef{Kind: e.key.Kind, Name: e.key.Name}
		for _, pw := range h.GetParentWeights(e.key) {
			pd := ParentDef{Parent: pw.Parent}
			if !pw.Current.nearlyEqual(UniformWeight(1)) {
				w := pw.Current
				pd.Weight = &w
			}
			if !pw.Initial.nearlyEqual(pw.Current) {
				w := pw.Initial
				pd.InitialWeight = &w
			}
			el.Parents = append(el.Parents, pd)
		}
		if e.IsA(ClassTransform) {
			initial := h.resolve(e, rolePose, InitialLocal)
			current := h.resolve(e, rolePose, CurrentLocal)
			el.Initial = DefineTransform(initial)
			if !current.Equal(initial, writeTolerance) {
				c := DefineTransform(current)
				el.Current = &c
			}
		}
		if e.control != nil {
			el.Offset, el.CurrentOffset = defineControlQuad(h, e, roleOffset)
			el.Shape, el.CurrentShape = defineControlQuad(h, e, roleShape)
			cs := e.control.settings
			el.Control = &cs
		}
		if e.key.Kind == KindBone {
			bt := e.boneType
			el.BoneType = &bt
		}
		if e.physics != nil {
			ps := *e.physics
			el.Physics = &ps
		}
		if e.connector != nil {
			cs := *e.connector
			el.Connector = &cs
		}
		if e.socket != nil {
			ss := *e.socket
			el.Socket = &ss
		}
		if e.curve != nil {
			v := h.store.curves.Get(e.curve.value)
			el.Curve = &v
		}
		d.Elements = append(d.Elements, el)
	}
	return d
}

// Marshal encodes the definition as YAML.
func (d *Definition) Marshal() ([]byte, error) {
	out, err := yaml.Marshal(d)
	if err != nil {
		return nil, fmt.Errorf("marshal definition: %w", err)
	}
	return out, nil
}

// defineControlQuad returns the Initial Local transform of a control quad,
// nil when Identity, and the Current Local one when it differs from Initial.
func defineControlQuad(h *Hierarchy, e *Element, r quadRole) (initial, current *TransformDef) {
	in := h.resolve(e, r, InitialLocal)
	cur := h.resolve(e, r, CurrentLocal)
	if !in.IsIdentity() {
		d := DefineTransform(in)
		initial = &d
	}
	if !cur.Equal(in, writeTolerance) {
		d := DefineTransform(cur)
		current = &d
	}
	return initial, current
}
