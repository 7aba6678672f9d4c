package utils

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/pkg/errors"
)

var ErrBufferOverrun = errors.New("read past end of buffer")

// BufStack is a little endian cursor over a record. The first read past the
// end is remembered and turns every following read into a zero value, so a
// decoder can read a whole record and check Err once.
type BufStack struct {
	parent         *BufStack
	buf            []byte
	relativeOffset int
	absoluteOffset int
	pos            int
	kind           string
	name           string
	err            error
}

func NewBufStack(kind string, b []byte) *BufStack {
	return &BufStack{
		buf:  b,
		kind: kind,
	}
}

// SubBuf returns a cursor over size bytes starting at offset.
func (bs *BufStack) SubBuf(kind string, offset, size int) *BufStack {
	child := &BufStack{
		parent:         bs,
		relativeOffset: offset,
		absoluteOffset: bs.absoluteOffset + offset,
		kind:           kind,
	}
	if offset < 0 || size < 0 || offset+size > len(bs.buf) {
		child.err = errors.Wrapf(ErrBufferOverrun, "%v: sub buffer [0x%x:0x%x] of 0x%x bytes",
			bs, offset, offset+size, len(bs.buf))
		bs.setErr(child.err)
		return child
	}
	child.buf = bs.buf[offset : offset+size]
	return child
}

func (bs *BufStack) SetName(name string) *BufStack {
	bs.name = name
	return bs
}

func (bs *BufStack) Name() string { return bs.name }
func (bs *BufStack) Kind() string { return bs.kind }
func (bs *BufStack) Size() int { return len(bs.buf) }
func (bs *BufStack) Pos() int { return bs.pos }
func (bs *BufStack) Remaining() int { return len(bs.buf) - bs.pos }
func (bs *BufStack) Err() error { return bs.err }
func (bs *BufStack) Parent() *BufStack { return bs.parent }

func (bs *BufStack) String() string {
	return fmt.Sprintf("buf<%v>(%v)[o:0x%x,s:0x%x,ao:0x%x]",
		bs.kind, bs.name, bs.relativeOffset, len(bs.buf), bs.absoluteOffset)
}

func (bs *BufStack) setErr(err error) {
	if bs.err == nil {
		bs.err = err
	}
	if bs.parent != nil {
		bs.parent.setErr(err)
	}
}

func (bs *BufStack) Read(amount int) []byte {
	if bs.err != nil {
		return make([]byte, amount)
	}
	if amount < 0 || bs.pos+amount > len(bs.buf) {
		bs.setErr(errors.Wrapf(ErrBufferOverrun, "%v: read 0x%x bytes at 0x%x", bs, amount, bs.pos))
		return make([]byte, amount)
	}
	oldPos := bs.pos
	bs.pos += amount
	return bs.buf[oldPos:bs.pos]
}

func (bs *BufStack) Skip(amount int) {
	bs.Read(amount)
}

func (bs *BufStack) ReadLU32() uint32 {
	return binary.LittleEndian.Uint32(bs.Read(4))
}

func (bs *BufStack) ReadLU16() uint16 {
	return binary.LittleEndian.Uint16(bs.Read(2))
}

func (bs *BufStack) ReadLF() float32 {
	return math.Float32frombits(bs.ReadLU32())
}

func (bs *BufStack) ReadVec2() mgl32.Vec2 {
	return mgl32.Vec2{bs.ReadLF(), bs.ReadLF()}
}

func (bs *BufStack) ReadVec3() mgl32.Vec3 {
	return mgl32.Vec3{bs.ReadLF(), bs.ReadLF(), bs.ReadLF()}
}

// ReadStringBuffer reads a fixed size NUL padded name in the configured charmap.
func (bs *BufStack) ReadStringBuffer(size int) string {
	raw := bs.Read(size)
	if bs.err != nil {
		return ""
	}
	s, err := BytesToString(raw)
	if err != nil {
		bs.setErr(errors.Wrapf(err, "%v: string at 0x%x", bs, bs.pos-size))
	}
	return s
}

// VerifySize fails when the cursor did not consume the whole buffer.
func (bs *BufStack) VerifySize() error {
	if bs.err != nil {
		return bs.err
	}
	if bs.pos != len(bs.buf) {
		return errors.Errorf("%v: consumed 0x%x of 0x%x bytes", bs, bs.pos, len(bs.buf))
	}
	return nil
}

// BufWriter appends little endian fields. It is the encoding half of BufStack.
type BufWriter struct {
	buf []byte
}

func NewBufWriter(capacity int) *BufWriter {
	return &BufWriter{buf: make([]byte, 0, capacity)}
}

func (bw *BufWriter) Bytes() []byte { return bw.buf }
func (bw *BufWriter) Len() int { return len(bw.buf) }

func (bw *BufWriter) Write(b []byte) {
	bw.buf = append(bw.buf, b...)
}

func (bw *BufWriter) WriteLU32(v uint32) {
	bw.buf = binary.LittleEndian.AppendUint32(bw.buf, v)
}

func (bw *BufWriter) WriteLU16(v uint16) {
	bw.buf = binary.LittleEndian.AppendUint16(bw.buf, v)
}

func (bw *BufWriter) WriteLF(f float32) {
	bw.WriteLU32(math.Float32bits(f))
}

func (bw *BufWriter) WriteVec2(v mgl32.Vec2) {
	bw.WriteLF(v[0])
	bw.WriteLF(v[1])
}

func (bw *BufWriter) WriteVec3(v mgl32.Vec3) {
	bw.WriteLF(v[0])
	bw.WriteLF(v[1])
	bw.WriteLF(v[2])
}

// WriteStringBuffer writes s as a NUL terminated name padded to size bytes.
func (bw *BufWriter) WriteStringBuffer(s string, size int) error {
	b, err := StringToBytesBuffer(s, size, true)
	if err != nil {
		return err
	}
	bw.Write(b)
	return nil
}
