package ecs

import (
	"github.com/phanxgames/rig"

	"github.com/yohamta/donburi"
	"github.com/yohamta/donburi/features/events"
	"github.com/yohamta/donburi/filter"
)

// HierarchyEventType is the Donburi event type for rig hierarchy events.
var HierarchyEventType = events.NewEventType[rig.Event]()

var (
	// ElementRef names the rig element an entity mirrors.
	ElementRef = donburi.NewComponentType[rig.Key]()
	// Pose holds the element's Current global transform as of the last
	// SyncTransforms call.
	Pose = donburi.NewComponentType[rig.Transform]()
)

var boundQuery = donburi.NewQuery(filter.Contains(ElementRef, Pose))

type donburiListener struct {
	world donburi.World
}

// NewDonburiListener creates a rig.Listener backed by a Donburi world.
// Events are queued on HierarchyEventType and delivered by
// ProcessEvents or events.ProcessAllEvents.
func NewDonburiListener(world donburi.World) rig.Listener {
	return &donburiListener{world: world}
}

func (l *donburiListener) HandleEvent(event rig.Event) {
	HierarchyEventType.Publish(l.world, event)
}

// Bind creates an entity mirroring key.
func Bind(world donburi.World, key rig.Key) donburi.Entity {
	e := world.Create(ElementRef, Pose)
	entry := world.Entry(e)
	ElementRef.SetValue(entry, key)
	Pose.SetValue(entry, rig.Identity())
	return e
}

// SyncTransforms writes the Current global transform of every bound element
// into its Pose component and returns how many entities were updated.
// Entities whose element is missing from h, or is not a transform element,
// keep their last pose.
func SyncTransforms(world donburi.World, h *rig.Hierarchy) int {
	n := 0
	boundQuery.Each(world, func(entry *donburi.Entry) {
		tr, ok := h.GetTransform(*ElementRef.Get(entry), rig.Global, rig.Current)
		if !ok {
			return
		}
		Pose.SetValue(entry, tr)
		n++
	})
	return n
}
