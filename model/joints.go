package model

import (
	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"

	"github.com/mogaika/vmeshconv/pack/cmp"
	"github.com/mogaika/vmeshconv/scene"
	"github.com/mogaika/vmeshconv/utils"
)

// Joint property keys of the node extra technique.
const (
	PROP_CONSTRUCT        = "construct"
	PROP_OFFSET           = "offset"
	PROP_AXIS_ROTATION    = "axis_rotation"
	PROP_AXIS_TRANSLATION = "axis_translation"
	PROP_MIN              = "min"
	PROP_MAX              = "max"
)

func vec3Property(n *scene.Node, key string, up scene.UpAxis) (mgl32.Vec3, bool) {
	p, ok := n.Property(key)
	if !ok {
		return mgl32.Vec3{}, false
	}
	v, ok := p.AsVec3()
	if !ok {
		utils.Log.Warn("joint property is not a vector", zap.String("node", n.Name),
			zap.String("property", key), zap.String("value", p.Text))
		return mgl32.Vec3{}, false
	}
	return up.ToYUp(v), true
}

func floatProperty(n *scene.Node, key string) (float32, bool) {
	p, ok := n.Property(key)
	if !ok {
		return 0, false
	}
	f, ok := p.AsFloat()
	if !ok {
		utils.Log.Warn("joint property is not a number", zap.String("node", n.Name),
			zap.String("property", key), zap.String("value", p.Text))
	}
	return f, ok
}

// ConstructFromNode builds the joint attaching node n to parent. The transform
// must already be in the Y up convention; vector properties are converted from up.
func ConstructFromNode(n *scene.Node, parent, child string, transform mgl32.Mat4, up scene.UpAxis) *cmp.Construct {
	jt := cmp.JOINT_FIX
	if p, ok := n.Property(PROP_CONSTRUCT); ok {
		var known bool
		if jt, known = cmp.ParseJointType(p.Text); !known {
			utils.Log.Warn("unknown construct type, using fix",
				zap.String("node", n.Name), zap.String("construct", p.Text))
		}
	}

	c := cmp.NewConstruct(parent, child, jt)
	c.SetTransform(transform)

	if jt == cmp.JOINT_REV || jt == cmp.JOINT_PRIS || jt == cmp.JOINT_SPHERE {
		if offset, ok := vec3Property(n, PROP_OFFSET, up); ok {
			c.Offset = offset
		}
	}

	switch jt {
	case cmp.JOINT_REV:
		if axis, ok := vec3Property(n, PROP_AXIS_ROTATION, up); ok {
			c.Axis = axis
		}
		limit := cmp.Range{Min: -90, Max: 90}
		if f, ok := floatProperty(n, PROP_MIN); ok {
			limit.Min = f
		}
		if f, ok := floatProperty(n, PROP_MAX); ok {
			limit.Max = f
		}
		limit = limit.Normalize()
		c.Limit = cmp.Range{Min: utils.DegreesToRadians(limit.Min), Max: utils.DegreesToRadians(limit.Max)}
	case cmp.JOINT_PRIS:
		if axis, ok := vec3Property(n, PROP_AXIS_TRANSLATION, up); ok {
			c.Axis = axis
		}
		if f, ok := floatProperty(n, PROP_MIN); ok {
			c.Limit.Min = f
		}
		if f, ok := floatProperty(n, PROP_MAX); ok {
			c.Limit.Max = f
		}
	case cmp.JOINT_SPHERE:
		// limits are per local axis and not remapped between up conventions
		if p, ok := n.Property(PROP_MIN); ok {
			if v, ok := p.AsVec3(); ok {
				for i := range c.Sphere {
					c.Sphere[i].Min = v[i]
				}
			}
		}
		if p, ok := n.Property(PROP_MAX); ok {
			if v, ok := p.AsVec3(); ok {
				for i := range c.Sphere {
					c.Sphere[i].Max = v[i]
				}
			}
		}
	}
	c.Normalize()
	return c
}

// JointProperties is the inverse of ConstructFromNode for a Y up document.
func JointProperties(c *cmp.Construct) map[string]scene.Property {
	props := map[string]scene.Property{
		PROP_CONSTRUCT: {Text: c.Type.String()},
	}
	switch c.Type {
	case cmp.JOINT_REV:
		props[PROP_OFFSET] = scene.Vec3Property(c.Offset)
		props[PROP_AXIS_ROTATION] = scene.Vec3Property(c.Axis)
		props[PROP_MIN] = scene.FloatProperty(utils.RadiansToDegrees(c.Limit.Min))
		props[PROP_MAX] = scene.FloatProperty(utils.RadiansToDegrees(c.Limit.Max))
	case cmp.JOINT_PRIS:
		props[PROP_OFFSET] = scene.Vec3Property(c.Offset)
		props[PROP_AXIS_TRANSLATION] = scene.Vec3Property(c.Axis)
		props[PROP_MIN] = scene.FloatProperty(c.Limit.Min)
		props[PROP_MAX] = scene.FloatProperty(c.Limit.Max)
	case cmp.JOINT_SPHERE:
		var min, max mgl32.Vec3
		for i, r := range c.Sphere {
			min[i], max[i] = r.Min, r.Max
		}
		props[PROP_OFFSET] = scene.Vec3Property(c.Offset)
		props[PROP_MIN] = scene.Vec3Property(min)
		props[PROP_MAX] = scene.Vec3Property(max)
	}
	return props
}
