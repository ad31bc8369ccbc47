package rig

import (
	"fmt"
	"strings"

	"github.com/go-gl/mathgl/mgl64"
)

// ControlAnimationType says how a control takes part in animation.
type ControlAnimationType uint8

const (
	AnimationControl ControlAnimationType = iota // keyable, visible
	AnimationChannel                             // keyable value living under a host control
	ProxyControl                                 // visible, drives other controls
	VisualCue                                    // display only
)

var animationTypeNames = [...]string{
	AnimationControl: "AnimationControl",
	AnimationChannel: "AnimationChannel",
	ProxyControl:     "ProxyControl",
	VisualCue:        "VisualCue",
}

func (a ControlAnimationType) String() string {
	if int(a) < len(animationTypeNames) {
		return animationTypeNames[a]
	}
	return "AnimationControl"
}

// MarshalText implements encoding.TextMarshaler.
func (a ControlAnimationType) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (a *ControlAnimationType) UnmarshalText(b []byte) error {
	i, err := lookupName(animationTypeNames[:], string(b))
	if err != nil {
		return err
	}
	*a = ControlAnimationType(i)
	return nil
}

// ControlType is the value type a control exposes to animators.
type ControlType uint8

const (
	ControlBool ControlType = iota
	ControlFloat
	ControlInteger
	ControlVector2D
	ControlPosition
	ControlScale
	ControlRotator
	ControlTransform
	ControlTransformNoScale
	ControlEulerTransform
)

var controlTypeNames = [...]string{
	ControlBool:             "Bool",
	ControlFloat:            "Float",
	ControlInteger:          "Integer",
	ControlVector2D:         "Vector2D",
	ControlPosition:         "Position",
	ControlScale:            "Scale",
	ControlRotator:          "Rotator",
	ControlTransform:        "Transform",
	ControlTransformNoScale: "TransformNoScale",
	ControlEulerTransform:   "EulerTransform",
}

func (c ControlType) String() string {
	if int(c) < len(controlTypeNames) {
		return controlTypeNames[c]
	}
	return "Transform"
}

// MarshalText implements encoding.TextMarshaler.
func (c ControlType) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (c *ControlType) UnmarshalText(b []byte) error {
	i, err := lookupName(controlTypeNames[:], string(b))
	if err != nil {
		return err
	}
	*c = ControlType(i)
	return nil
}

// Limits bounds one vector channel of a control. Plain data: nothing in the
// hierarchy enforces them.
type Limits struct {
	Enabled bool       `json:"enabled,omitempty" yaml:"enabled,omitempty"`
	Min     mgl64.Vec3 `json:"min" yaml:"min"`
	Max     mgl64.Vec3 `json:"max" yaml:"max"`
}

// Color is an RGBA color with components in [0, 1].
type Color struct {
	R float64 `json:"r" yaml:"r"`
	G float64 `json:"g" yaml:"g"`
	B float64 `json:"b" yaml:"b"`
	A float64 `json:"a" yaml:"a"`
}

// ControlSettings is the authoring data of a control.
type ControlSettings struct {
	DisplayName   string               `json:"display_name,omitempty" yaml:"display_name,omitempty"`
	AnimationType ControlAnimationType `json:"animation_type" yaml:"animation_type"`
	ControlType   ControlType          `json:"control_type" yaml:"control_type"`
	ShapeName     string               `json:"shape_name,omitempty" yaml:"shape_name,omitempty"`
	ShapeVisible  bool                 `json:"shape_visible" yaml:"shape_visible"`
	ShapeColor    Color                `json:"shape_color" yaml:"shape_color"`
	Translation   Limits               `json:"translation_limits" yaml:"translation_limits"`
	Scale         Limits               `json:"scale_limits" yaml:"scale_limits"`
}

// DefaultControlSettings returns the settings new controls start with.
func DefaultControlSettings() ControlSettings {
	return ControlSettings{
		AnimationType: AnimationControl,
		ControlType:   ControlTransform,
		ShapeName:     "Default",
		ShapeVisible:  true,
		ShapeColor:    Color{1, 0, 0, 1},
	}
}

// IsAnimationChannel reports whether the control is an animation channel.
// Channels always follow their host and cannot change parent weights.
func (s *ControlSettings) IsAnimationChannel() bool {
	return s.AnimationType == AnimationChannel
}

// PhysicsSettings references the solver that owns a physics element.
type PhysicsSettings struct {
	Solver string  `json:"solver,omitempty" yaml:"solver,omitempty"`
	Mass   float64 `json:"mass" yaml:"mass"`
}

// ConnectorType distinguishes the primary connector of a module from the
// secondary ones.
type ConnectorType uint8

const (
	ConnectorPrimary ConnectorType = iota
	ConnectorSecondary
)

var connectorTypeNames = [...]string{
	ConnectorPrimary:   "Primary",
	ConnectorSecondary: "Secondary",
}

func (c ConnectorType) String() string {
	if c == ConnectorSecondary {
		return "Secondary"
	}
	return "Primary"
}

// MarshalText implements encoding.TextMarshaler.
func (c ConnectorType) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (c *ConnectorType) UnmarshalText(b []byte) error {
	i, err := lookupName(connectorTypeNames[:], string(b))
	if err != nil {
		return err
	}
	*c = ConnectorType(i)
	return nil
}

// ConnectorSettings describes how a connector is resolved. Resolution itself
// happens outside the hierarchy.
type ConnectorSettings struct {
	Type        ConnectorType `json:"type" yaml:"type"`
	Optional    bool          `json:"optional,omitempty" yaml:"optional,omitempty"`
	Description string        `json:"description,omitempty" yaml:"description,omitempty"`
}

// SocketSettings is the display data of a socket.
type SocketSettings struct {
	Color       Color  `json:"color" yaml:"color"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
}

// WorldTransformFunc supplies the world transform of a reference element,
// typically from the component the rig is attached to.
type WorldTransformFunc func(pose Pose) Transform

func lookupName(names []string, s string) (int, error) {
	for i, name := range names {
		if strings.EqualFold(name, s) {
			return i, nil
		}
	}
	return 0, fmt.Errorf("unknown value %q (want one of %s)", s, strings.Join(names, ", "))
}
