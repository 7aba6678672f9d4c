package cmp

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
)

func TestNewConstructDefaults(t *testing.T) {
	rev := NewConstruct("Root", "Door", JOINT_REV)
	if rev.Axis != (mgl32.Vec3{0, 1, 0}) {
		t.Errorf("rev axis %v", rev.Axis)
	}
	if !mgl32.FloatEqualThreshold(rev.Limit.Min, -math.Pi/2, 1e-6) || !mgl32.FloatEqualThreshold(rev.Limit.Max, math.Pi/2, 1e-6) {
		t.Errorf("rev limits %+v", rev.Limit)
	}

	pris := NewConstruct("Root", "Piston", JOINT_PRIS)
	if pris.Limit != (Range{0, 1}) {
		t.Errorf("pris limits %+v", pris.Limit)
	}

	sphere := NewConstruct("Root", "Dish", JOINT_SPHERE)
	for i, r := range sphere.Sphere {
		if r != (Range{-math.Pi, math.Pi}) {
			t.Errorf("sphere axis %d limits %+v", i, r)
		}
	}

	if fix := NewConstruct("Root", "Hull", JOINT_FIX); fix.Rotation != mgl32.Ident3() {
		t.Errorf("fix rotation %v", fix.Rotation)
	}
}

func TestConstructNormalize(t *testing.T) {
	c := NewConstruct("Root", "Door", JOINT_REV)
	c.Limit = Range{1, -1}
	c.Sphere[2] = Range{3, 2}
	c.Normalize()
	if c.Limit != (Range{-1, 1}) || c.Sphere[2] != (Range{2, 3}) {
		t.Errorf("normalized %+v %+v", c.Limit, c.Sphere)
	}
}

func TestParseJointType(t *testing.T) {
	for _, test := range []struct {
		in string
		jt JointType
		ok bool
	}{
		{"fix", JOINT_FIX, true},
		{"Rev", JOINT_REV, true},
		{" pris ", JOINT_PRIS, true},
		{"SPHERE", JOINT_SPHERE, true},
		{"loose", JOINT_LOOSE, true},
		{"hinge", JOINT_FIX, false},
		{"", JOINT_FIX, false},
	} {
		jt, ok := ParseJointType(test.in)
		if jt != test.jt || ok != test.ok {
			t.Errorf("ParseJointType(%q) = %v, %v; expected %v, %v", test.in, jt, ok, test.jt, test.ok)
		}
	}
	for _, jt := range JointTypes {
		if back, ok := ParseJointType(jt.String()); !ok || back != jt {
			t.Errorf("%v does not parse back", jt)
		}
	}
}

func TestConstructTransform(t *testing.T) {
	c := NewConstruct("Root", "Turret", JOINT_FIX)
	m := mgl32.Translate3D(4, 5, 6).Mul4(mgl32.HomogRotate3DZ(mgl32.DegToRad(90)))
	c.SetTransform(m)
	if c.Origin != (mgl32.Vec3{4, 5, 6}) {
		t.Errorf("origin %v", c.Origin)
	}
	if !c.Transform().ApproxEqualThreshold(m, 1e-6) {
		t.Errorf("transform %v; expected %v", c.Transform(), m)
	}
}
