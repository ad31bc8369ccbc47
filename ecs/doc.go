// Package ecs bridges rig hierarchies into a [Donburi] world.
//
// [NewDonburiListener] forwards hierarchy notifications (element added or
// removed, parent and weight changes, selection) as typed Donburi events.
// Subscribe to [HierarchyEventType] in your systems to receive them.
//
// [SyncTransforms] copies the Current global transform of every bound
// element into the entity's [Pose] component once per frame.
//
// Usage:
//
//	h.AddListener(ecs.NewDonburiListener(world))
//	ecs.Bind(world, bone)
//	...
//	ecs.SyncTransforms(world, h)
//
// [Donburi]: https://github.com/yohamta/donburi
package ecs
