package utils

import (
	"bytes"

	"github.com/pkg/errors"
	"golang.org/x/text/transform"

	"github.com/mogaika/vmeshconv/config"
)

// BytesToString decodes a NUL-terminated (or full-width) name field.
func BytesToString(bs []byte) (string, error) {
	n := bytes.IndexByte(bs, 0)
	if n < 0 {
		n = len(bs)
	}

	s, _, err := transform.Bytes(config.GetEncoding().NewDecoder(), bs[0:n])
	if err != nil {
		return "", errors.Wrapf(err, "Failed to decode name %q", bs[0:n])
	}

	return string(s), nil
}

// StringToBytesBuffer encodes s into a zero-padded field of bufSize bytes.
// At least one trailing NUL is kept when nilTerminate is set.
func StringToBytesBuffer(s string, bufSize int, nilTerminate bool) ([]byte, error) {
	bs, _, err := transform.Bytes(config.GetEncoding().NewEncoder(), []byte(s))
	if err != nil {
		return nil, errors.Wrapf(err, "Failed to encode name %q", s)
	}
	limit := bufSize
	if nilTerminate {
		limit--
	}
	if len(bs) > limit {
		return nil, errors.Errorf("Name %q is %d bytes long, field holds %d", s, len(bs), limit)
	}
	r := make([]byte, bufSize)
	copy(r, bs)
	return r, nil
}
