package rig

import (
	"fmt"
	"strings"
)

// ElementKind distinguishes the concrete node kinds of a Hierarchy. The value
// doubles as the small stable tag used for checked downcasts.
type ElementKind uint8

const (
	KindBone      ElementKind = iota // single parent, bone-type tag
	KindNull                         // multi parent, pose only
	KindControl                      // multi parent, pose + offset + shape
	KindCurve                        // scalar value, no pose
	KindPhysics                      // single parent, physics settings
	KindReference                    // single parent, optional world provider
	KindConnector                    // resolution settings, no pose
	KindSocket                       // single parent, socket settings
	numKinds
)

var kindNames = [numKinds]string{
	KindBone:      "Bone",
	KindNull:      "Null",
	KindControl:   "Control",
	KindCurve:     "Curve",
	KindPhysics:   "Physics",
	KindReference: "Reference",
	KindConnector: "Connector",
	KindSocket:    "Socket",
}

func (k ElementKind) String() string {
	if k < numKinds {
		return kindNames[k]
	}
	return fmt.Sprintf("ElementKind(%d)", uint8(k))
}

// Valid reports whether k names one of the concrete kinds.
func (k ElementKind) Valid() bool {
	return k < numKinds
}

// ParseElementKind resolves a kind from its name, case-insensitively.
func ParseElementKind(s string) (ElementKind, bool) {
	for i, name := range kindNames {
		if strings.EqualFold(s, name) {
			return ElementKind(i), true
		}
	}
	return 0, false
}

// Class is a layer of the element variant chain. A concrete kind belongs to
// exactly one leaf class and to every intermediate layer above it.
type Class uint16

const (
	ClassTransform    Class = 1 << iota // carries a pose quad
	ClassSingleParent                   // Bone, Physics, Reference, Socket
	ClassMultiParent                    // Null, Control
	ClassBone
	ClassNull
	ClassControl
	ClassCurve
	ClassPhysics
	ClassReference
	ClassConnector
	ClassSocket
)

var kindClasses = [numKinds]Class{
	KindBone:      ClassTransform | ClassSingleParent | ClassBone,
	KindNull:      ClassTransform | ClassMultiParent | ClassNull,
	KindControl:   ClassTransform | ClassMultiParent | ClassControl,
	KindCurve:     ClassCurve,
	KindPhysics:   ClassTransform | ClassSingleParent | ClassPhysics,
	KindReference: ClassTransform | ClassSingleParent | ClassReference,
	KindConnector: ClassConnector,
	KindSocket:    ClassTransform | ClassSingleParent | ClassSocket,
}

// Is reports whether kind k belongs to class c. The zero Class matches
// nothing.
func (k ElementKind) Is(c Class) bool {
	if k >= numKinds || c == 0 {
		return false
	}
	return kindClasses[k]&c == c
}

// Key is the stable external identity of an element.
type Key struct {
	Kind ElementKind
	Name string
}

// NewKey is shorthand for Key{Kind: kind, Name: name}.
func NewKey(kind ElementKind, name string) Key {
	return Key{Kind: kind, Name: name}
}

// IsValid reports whether the key names an element. The zero Key is the
// "no parent" key.
func (k Key) IsValid() bool {
	return k.Name != "" && k.Kind.Valid()
}

func (k Key) String() string {
	return k.Kind.String() + ":" + k.Name
}

// ParseKey parses the "Kind:Name" form produced by Key.String.
func ParseKey(s string) (Key, error) {
	kind, name, ok := strings.Cut(s, ":")
	if !ok || name == "" {
		return Key{}, fmt.Errorf("parse key %q: want Kind:Name", s)
	}
	k, ok := ParseElementKind(kind)
	if !ok {
		return Key{}, fmt.Errorf("parse key %q: %w", s, ErrInvalidKind)
	}
	return Key{Kind: k, Name: name}, nil
}

// Space selects the reference frame of a transform.
type Space uint8

const (
	Local  Space = iota // relative to the parent (or parent blend)
	Global              // relative to the hierarchy root
)

func (s Space) String() string {
	if s == Global {
		return "Global"
	}
	return "Local"
}

// Pose selects between the live and the reference transform state.
type Pose uint8

const (
	Current Pose = iota // live evaluated pose
	Initial             // reference / bind pose
	numPoses
)

func (p Pose) String() string {
	if p == Initial {
		return "Initial"
	}
	return "Current"
}

// TransformType is one cell of a quad: a (space, pose) pair.
type TransformType uint8

const (
	CurrentLocal TransformType = iota
	CurrentGlobal
	InitialLocal
	InitialGlobal
	numTransformTypes
)

// MakeTransformType combines a space and a pose into a cell selector.
func MakeTransformType(s Space, p Pose) TransformType {
	return TransformType(uint8(p)*2 + uint8(s))
}

// Space returns the space half of t.
func (t TransformType) Space() Space { return Space(t % 2) }

// Pose returns the pose half of t.
func (t TransformType) Pose() Pose { return Pose(t / 2) }

// Opposite returns the cell of the same pose in the other space.
func (t TransformType) Opposite() TransformType { return t ^ 1 }

// IsLocal reports whether t is a Local cell.
func (t TransformType) IsLocal() bool { return t.Space() == Local }

// IsGlobal reports whether t is a Global cell.
func (t TransformType) IsGlobal() bool { return t.Space() == Global }

func (t TransformType) String() string {
	return t.Pose().String() + t.Space().String()
}

// smallNumber is the threshold under which a weight channel counts as zero.
const smallNumber = 1e-8

// Weight holds per-channel blend weights of one parent constraint.
type Weight struct {
	Location float64 `json:"location" yaml:"location"`
	Rotation float64 `json:"rotation" yaml:"rotation"`
	Scale    float64 `json:"scale" yaml:"scale"`
}

// UniformWeight returns a Weight with all channels set to w.
func UniformWeight(w float64) Weight {
	return Weight{Location: w, Rotation: w, Scale: w}
}

// AffectsLocation reports whether the location channel is non-zero.
func (w Weight) AffectsLocation() bool { return w.Location > smallNumber }

// AffectsRotation reports whether the rotation channel is non-zero.
func (w Weight) AffectsRotation() bool { return w.Rotation > smallNumber }

// AffectsScale reports whether the scale channel is non-zero.
func (w Weight) AffectsScale() bool { return w.Scale > smallNumber }

// IsAlmostZero reports whether no channel is affected.
func (w Weight) IsAlmostZero() bool {
	return !w.AffectsLocation() && !w.AffectsRotation() && !w.AffectsScale()
}

func (w Weight) clamped() Weight {
	return Weight{
		Location: max(w.Location, 0),
		Rotation: max(w.Rotation, 0),
		Scale:    max(w.Scale, 0),
	}
}

func (w Weight) nearlyEqual(o Weight) bool {
	return nearlyZero(w.Location-o.Location) &&
		nearlyZero(w.Rotation-o.Rotation) &&
		nearlyZero(w.Scale-o.Scale)
}

// BoneType tags where a bone came from.
type BoneType uint8

const (
	BoneImported BoneType = iota // created from a skeleton asset
	BoneUser                     // created by the rig author
)

func (b BoneType) String() string {
	if b == BoneImported {
		return "Imported"
	}
	return "User"
}

// ScaleBlendMode selects how scales of several parents are combined.
type ScaleBlendMode uint8

const (
	ScaleBlendLinear ScaleBlendMode = iota // weighted arithmetic mean
	ScaleBlendLog                          // weighted geometric mean
)

// EventType identifies a hierarchy notification.
type EventType uint8

const (
	EventElementAdded         EventType = iota // an element was created
	EventElementRemoved                        // an element was removed
	EventParentChanged                         // the parent list of an element changed
	EventParentWeightsChanged                  // a parent weight changed
	EventElementSelected                       // Selected went true
	EventElementDeselected                     // Selected went false
	EventStorageShrunk                         // pools were compacted
)

var eventNames = [...]string{
	EventElementAdded:         "ElementAdded",
	EventElementRemoved:       "ElementRemoved",
	EventParentChanged:        "ParentChanged",
	EventParentWeightsChanged: "ParentWeightsChanged",
	EventElementSelected:      "ElementSelected",
	EventElementDeselected:    "ElementDeselected",
	EventStorageShrunk:        "StorageShrunk",
}

func (e EventType) String() string {
	if int(e) < len(eventNames) {
		return eventNames[e]
	}
	return fmt.Sprintf("EventType(%d)", uint8(e))
}

// Event carries a hierarchy notification. Key is the zero Key for
// hierarchy-wide events such as EventStorageShrunk.
type Event struct {
	Type EventType
	Key  Key
}

// Listener receives hierarchy notifications synchronously, on the goroutine
// that performed the edit.
type Listener interface {
	HandleEvent(event Event)
}

// MarshalText implements encoding.TextMarshaler.
func (k ElementKind) MarshalText() ([]byte, error) {
	if !k.Valid() {
		return nil, fmt.Errorf("marshal %s: %w", k, ErrInvalidKind)
	}
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *ElementKind) UnmarshalText(b []byte) error {
	v, ok := ParseElementKind(string(b))
	if !ok {
		return fmt.Errorf("element kind %q: %w", b, ErrInvalidKind)
	}
	*k = v
	return nil
}

// MarshalText implements encoding.TextMarshaler using the Kind:Name form.
func (k Key) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *Key) UnmarshalText(b []byte) error {
	v, err := ParseKey(string(b))
	if err != nil {
		return err
	}
	*k = v
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (b BoneType) MarshalText() ([]byte, error) {
	return []byte(b.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (b *BoneType) UnmarshalText(text []byte) error {
	switch strings.ToLower(string(text)) {
	case "imported":
		*b = BoneImported
	case "user":
		*b = BoneUser
	default:
		return fmt.Errorf("bone type %q: want Imported or User", text)
	}
	return nil
}
