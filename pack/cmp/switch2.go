package cmp

import (
	"github.com/pkg/errors"

	"github.com/mogaika/vmeshconv/utils"
)

// LodDistances returns the switch distances of a part with levels LODs:
// zero, then cutoff doubled for every further level, then far.
// A single level needs no switch record and yields nil.
func LodDistances(levels int, cutoff, far float32) []float32 {
	if levels <= 1 {
		return nil
	}
	result := make([]float32, levels+1)
	d := cutoff
	for i := 1; i < levels; i++ {
		result[i] = d
		d *= 2
	}
	result[levels] = far
	return result
}

func EncodeSwitch2(distances []float32) []byte {
	bw := utils.NewBufWriter(len(distances) * 4)
	for _, d := range distances {
		bw.WriteLF(d)
	}
	return bw.Bytes()
}

func DecodeSwitch2(b []byte) ([]float32, error) {
	if len(b)%4 != 0 {
		return nil, errors.Errorf("switch2 record is %d bytes, not a multiple of 4", len(b))
	}
	bs := utils.NewBufStack("switch2", b)
	result := make([]float32, len(b)/4)
	for i := range result {
		result[i] = bs.ReadLF()
	}
	for i := 1; i < len(result); i++ {
		if result[i] < result[i-1] {
			return nil, errors.Errorf("switch2 distance %d (%v) is less than the previous one (%v)",
				i, result[i], result[i-1])
		}
	}
	return result, bs.Err()
}
