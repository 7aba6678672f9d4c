package cmp

import (
	"math"
	"strings"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/pkg/errors"

	"github.com/mogaika/vmeshconv/utils"
)

type JointType int

const (
	JOINT_FIX JointType = iota
	JOINT_REV
	JOINT_PRIS
	JOINT_SPHERE
	JOINT_LOOSE
)

var jointNames = [...]string{
	JOINT_FIX:    "fix",
	JOINT_REV:    "rev",
	JOINT_PRIS:   "pris",
	JOINT_SPHERE: "sphere",
	JOINT_LOOSE:  "loose",
}

// JointTypes lists every joint type in record order.
var JointTypes = []JointType{JOINT_FIX, JOINT_REV, JOINT_PRIS, JOINT_SPHERE, JOINT_LOOSE}

func (jt JointType) String() string {
	if jt < 0 || int(jt) >= len(jointNames) {
		return "unknown"
	}
	return jointNames[jt]
}

// ParseJointType is case insensitive. Unknown names fall back to fix with ok=false.
func ParseJointType(s string) (JointType, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	for jt, name := range jointNames {
		if name == s {
			return JointType(jt), true
		}
	}
	return JOINT_FIX, false
}

type Range struct {
	Min float32
	Max float32
}

// Normalize swaps reversed limits.
func (r Range) Normalize() Range {
	if r.Min > r.Max {
		r.Min, r.Max = r.Max, r.Min
	}
	return r
}

// Construct attaches Child to Parent with a rigid transform and a joint.
// Axis and Limit apply to rev (radians) and pris (units); Sphere holds the
// angular limits around the local X, Y and Z axes.
type Construct struct {
	Parent   string
	Child    string
	Type     JointType
	Origin   mgl32.Vec3
	Rotation mgl32.Mat3
	Offset   mgl32.Vec3
	Axis     mgl32.Vec3
	Limit    Range
	Sphere   [3]Range
}

// NewConstruct returns a construct with identity transform and the default
// joint parameters of jt.
func NewConstruct(parent, child string, jt JointType) *Construct {
	c := &Construct{
		Parent:   parent,
		Child:    child,
		Type:     jt,
		Rotation: mgl32.Ident3(),
	}
	switch jt {
	case JOINT_REV:
		c.Axis = mgl32.Vec3{0, 1, 0}
		c.Limit = Range{utils.DegreesToRadians(-90), utils.DegreesToRadians(90)}
	case JOINT_PRIS:
		c.Axis = mgl32.Vec3{0, 1, 0}
		c.Limit = Range{0, 1}
	case JOINT_SPHERE:
		for i := range c.Sphere {
			c.Sphere[i] = Range{-math.Pi, math.Pi}
		}
	}
	return c
}

func (c *Construct) Transform() mgl32.Mat4 {
	return utils.JoinRigid(c.Rotation, c.Origin)
}

func (c *Construct) SetTransform(m mgl32.Mat4) {
	c.Rotation, c.Origin = utils.SplitRigid(m)
}

// Normalize swaps reversed limits in place.
func (c *Construct) Normalize() {
	c.Limit = c.Limit.Normalize()
	for i := range c.Sphere {
		c.Sphere[i] = c.Sphere[i].Normalize()
	}
}

func (c *Construct) Validate() error {
	if c.Child == "" {
		return errors.Wrapf(ErrHierarchy, "construct with parent %q has no child name", c.Parent)
	}
	if c.Parent == "" {
		return errors.Wrapf(ErrHierarchy, "construct %q has no parent name", c.Child)
	}
	if strings.EqualFold(c.Parent, c.Child) {
		return errors.Wrapf(ErrHierarchy, "construct %q is its own parent", c.Child)
	}
	if c.Type < JOINT_FIX || c.Type > JOINT_LOOSE {
		return errors.Errorf("construct %q has unknown joint type %d", c.Child, c.Type)
	}
	return nil
}
