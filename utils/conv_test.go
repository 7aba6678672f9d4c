package utils

import (
	"bytes"
	"strings"
	"testing"
)

func TestStringToBytesBuffer(t *testing.T) {
	buf, err := StringToBytesBuffer("Root", 8, true)
	if err != nil {
		t.Fatalf("StringToBytesBuffer: %v", err)
	}
	if !bytes.Equal(buf, []byte{'R', 'o', 'o', 't', 0, 0, 0, 0}) {
		t.Errorf("unexpected buffer % x", buf)
	}

	s, err := BytesToString(buf)
	if err != nil || s != "Root" {
		t.Errorf("BytesToString=%q,%v; expected Root", s, err)
	}
}

func TestStringToBytesBufferLimits(t *testing.T) {
	if _, err := StringToBytesBuffer(strings.Repeat("a", 64), 64, true); err == nil {
		t.Errorf("expected overflow error when terminator does not fit")
	}
	if _, err := StringToBytesBuffer(strings.Repeat("a", 64), 64, false); err != nil {
		t.Errorf("full-width name without terminator: %v", err)
	}
	if _, err := StringToBytesBuffer("中", 64, true); err == nil {
		t.Errorf("expected error for unmappable rune")
	}
}

func TestBytesToStringCharmap(t *testing.T) {
	// 0xe9 is e-acute in windows-1252
	s, err := BytesToString([]byte{'c', 'a', 'f', 0xe9, 0, 'x'})
	if err != nil {
		t.Fatal(err)
	}
	if s != "café" {
		t.Errorf("got %q", s)
	}
}
