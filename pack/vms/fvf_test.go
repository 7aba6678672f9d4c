package vms

import (
	"testing"

	"github.com/pkg/errors"
)

func TestVertexFormatStride(t *testing.T) {
	for _, test := range []struct {
		format VertexFormat
		stride int
		tex    int
	}{
		{FVF_XYZ, 12, 0},
		{FVF_XYZ | FVF_NORMAL, 24, 0},
		{FVF_XYZ | FVF_TEX1, 20, 1},
		{FVF_XYZ | FVF_NORMAL | FVF_TEX1, 32, 1},
		{FVF_XYZ | FVF_DIFFUSE | FVF_TEX1, 24, 1},
		{FVF_XYZ | FVF_NORMAL | FVF_DIFFUSE | FVF_TEX1, 36, 1},
		{FVF_XYZ | FVF_NORMAL | FVF_TEX2, 40, 2},
		{FVF_XYZ | FVF_NORMAL | FVF_DIFFUSE | FVF_TEX2, 44, 2},
	} {
		if s := test.format.Stride(); s != test.stride {
			t.Errorf("%v stride %d; expected %d", test.format, s, test.stride)
		}
		if n := test.format.TexCoords(); n != test.tex {
			t.Errorf("%v tex coords %d; expected %d", test.format, n, test.tex)
		}
		if err := test.format.Validate(); err != nil {
			t.Errorf("%v: %v", test.format, err)
		}
	}
}

func TestVertexFormatTexPromotion(t *testing.T) {
	f := (FVF_XYZ | FVF_NORMAL).WithTexCoords(1)
	if f != FVF_XYZ|FVF_NORMAL|FVF_TEX1 {
		t.Fatalf("one uv set: 0x%x", uint16(f))
	}
	f = f.WithTexCoords(2)
	if f != FVF_XYZ|FVF_NORMAL|FVF_TEX2 {
		t.Fatalf("second uv set must replace TEX1: 0x%x", uint16(f))
	}
	if f.WithTexCoords(0) != FVF_XYZ|FVF_NORMAL {
		t.Fatalf("no uv sets: 0x%x", uint16(f.WithTexCoords(0)))
	}
	if f.String() != "XYZ|NORMAL|TEX2" {
		t.Errorf("String() = %q", f.String())
	}
}

func TestVertexFormatInvalid(t *testing.T) {
	for _, f := range []VertexFormat{
		0,
		FVF_NORMAL,
		FVF_XYZ | FVF_TEX1 | FVF_TEX2,
		FVF_XYZ | 0x400,
	} {
		if err := f.Validate(); errors.Cause(err) != ErrUnsupportedFormat {
			t.Errorf("format 0x%x: got %v", uint16(f), err)
		}
	}
}
