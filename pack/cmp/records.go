package cmp

import (
	"strconv"

	"github.com/pkg/errors"

	"github.com/mogaika/vmeshconv/utils"
)

const (
	CONSTRUCT_NAME_SIZE = 0x40

	CONSTRUCT_FIX_SIZE    = 0xb0
	CONSTRUCT_REV_SIZE    = 0xd0
	CONSTRUCT_SPHERE_SIZE = 0xd4
)

// RecordSize is the size of one encoded construct of type jt.
func RecordSize(jt JointType) int {
	switch jt {
	case JOINT_REV, JOINT_PRIS:
		return CONSTRUCT_REV_SIZE
	case JOINT_SPHERE:
		return CONSTRUCT_SPHERE_SIZE
	default:
		return CONSTRUCT_FIX_SIZE
	}
}

func (c *Construct) Marshal() ([]byte, error) {
	bw := utils.NewBufWriter(RecordSize(c.Type))
	if err := bw.WriteStringBuffer(c.Parent, CONSTRUCT_NAME_SIZE); err != nil {
		return nil, errors.Wrapf(err, "construct %q parent", c.Child)
	}
	if err := bw.WriteStringBuffer(c.Child, CONSTRUCT_NAME_SIZE); err != nil {
		return nil, errors.Wrapf(err, "construct %q child", c.Child)
	}
	bw.WriteVec3(c.Origin)
	if c.Type != JOINT_FIX && c.Type != JOINT_LOOSE {
		bw.WriteVec3(c.Offset)
	}
	for _, f := range utils.Mat3RowMajor(c.Rotation) {
		bw.WriteLF(f)
	}

	switch c.Type {
	case JOINT_REV, JOINT_PRIS:
		bw.WriteVec3(c.Axis)
		bw.WriteLF(c.Limit.Min)
		bw.WriteLF(c.Limit.Max)
	case JOINT_SPHERE:
		for _, r := range c.Sphere {
			bw.WriteLF(r.Min)
			bw.WriteLF(r.Max)
		}
	}
	return bw.Bytes(), nil
}

func unmarshalConstruct(bs *utils.BufStack, jt JointType) *Construct {
	c := &Construct{Type: jt}
	c.Parent = bs.ReadStringBuffer(CONSTRUCT_NAME_SIZE)
	c.Child = bs.ReadStringBuffer(CONSTRUCT_NAME_SIZE)
	c.Origin = bs.ReadVec3()
	if jt != JOINT_FIX && jt != JOINT_LOOSE {
		c.Offset = bs.ReadVec3()
	}
	var rot [9]float32
	for i := range rot {
		rot[i] = bs.ReadLF()
	}
	c.Rotation = utils.Mat3FromRowMajor(rot)

	switch jt {
	case JOINT_REV, JOINT_PRIS:
		c.Axis = bs.ReadVec3()
		c.Limit.Min = bs.ReadLF()
		c.Limit.Max = bs.ReadLF()
	case JOINT_SPHERE:
		for i := range c.Sphere {
			c.Sphere[i].Min = bs.ReadLF()
			c.Sphere[i].Max = bs.ReadLF()
		}
	}
	return c
}

// EncodeConstructs packs constructs into one blob per joint type, keeping
// their relative order. Types without constructs get no blob.
func EncodeConstructs(constructs []*Construct) (map[JointType][]byte, error) {
	result := make(map[JointType][]byte)
	for _, c := range constructs {
		b, err := c.Marshal()
		if err != nil {
			return nil, err
		}
		result[c.Type] = append(result[c.Type], b...)
	}
	return result, nil
}

// DecodeConstructs unpacks a blob holding records of type jt.
func DecodeConstructs(jt JointType, b []byte) ([]*Construct, error) {
	size := RecordSize(jt)
	if len(b)%size != 0 {
		return nil, errors.Wrapf(utils.ErrBufferOverrun, "%s constructs blob is %d bytes, not a multiple of %d",
			jt, len(b), size)
	}
	bs := utils.NewBufStack("cons."+jt.String(), b)
	result := make([]*Construct, 0, len(b)/size)
	for off := 0; off < len(b); off += size {
		record := bs.SubBuf("construct", off, size).SetName(strconv.Itoa(len(result)))
		result = append(result, unmarshalConstruct(record, jt))
	}
	if err := bs.Err(); err != nil {
		return nil, errors.Wrapf(err, "Can't decode %s constructs", jt)
	}
	return result, nil
}
