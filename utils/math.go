package utils

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// SplitRigid separates a rigid transform into its rotation block and translation.
func SplitRigid(m mgl32.Mat4) (rotation mgl32.Mat3, origin mgl32.Vec3) {
	return m.Mat3(), m.Col(3).Vec3()
}

func JoinRigid(rotation mgl32.Mat3, origin mgl32.Vec3) mgl32.Mat4 {
	m := rotation.Mat4()
	m.SetCol(3, origin.Vec4(1))
	return m
}

// Mat3RowMajor flattens m in row order, the order binary records store rotations in.
func Mat3RowMajor(m mgl32.Mat3) [9]float32 {
	t := m.Transpose()
	return [9]float32(t)
}

func Mat3FromRowMajor(f [9]float32) mgl32.Mat3 {
	return mgl32.Mat3(f).Transpose()
}

// Mat4FromRowMajor builds a matrix from 16 floats written row by row
// (the interchange document convention).
func Mat4FromRowMajor(f []float32) mgl32.Mat4 {
	var m mgl32.Mat4
	copy(m[:], f)
	return m.Transpose()
}

func Mat4RowMajor(m mgl32.Mat4) [16]float32 {
	return [16]float32(m.Transpose())
}

func DegreesToRadians(d float32) float32 {
	return d * (math.Pi / 180.0)
}

func RadiansToDegrees(r float32) float32 {
	return r * (180.0 / math.Pi)
}
