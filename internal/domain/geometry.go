package domain

import "math"

// Vec3 - позиция или масштаб в мировых координатах.
type Vec3 struct {
	X float32 `json:"x" msgpack:"x"`
	Y float32 `json:"y" msgpack:"y"`
	Z float32 `json:"z" msgpack:"z"`
}

// Quat - вращение (x, y, z, w).
type Quat struct {
	X float32 `json:"x" msgpack:"x"`
	Y float32 `json:"y" msgpack:"y"`
	Z float32 `json:"z" msgpack:"z"`
	W float32 `json:"w" msgpack:"w"`
}

// Color - цвет в линейных каналах [0..1].
type Color struct {
	R float32 `json:"r" msgpack:"r"`
	G float32 `json:"g" msgpack:"g"`
	B float32 `json:"b" msgpack:"b"`
	A float32 `json:"a" msgpack:"a"`
}

// IdentityQuat - отсутствие вращения.
var IdentityQuat = Quat{W: 1}

// OneVec - единичный масштаб.
var OneVec = Vec3{X: 1, Y: 1, Z: 1}

// YawQuat строит вращение вокруг оси Y на заданный угол в градусах.
func YawQuat(degrees float64) Quat {
	half := degrees * math.Pi / 360
	return Quat{Y: float32(math.Sin(half)), W: float32(math.Cos(half))}
}

// Сравнение побитовое: -0 и +0 различаются, NaN равен сам себе.
func sameFloat(a, b float32) bool {
	return math.Float32bits(a) == math.Float32bits(b)
}

// Same сравнивает векторы побитово.
func (v Vec3) Same(o Vec3) bool {
	return sameFloat(v.X, o.X) && sameFloat(v.Y, o.Y) && sameFloat(v.Z, o.Z)
}

// Same сравнивает кватернионы побитово.
func (q Quat) Same(o Quat) bool {
	return sameFloat(q.X, o.X) && sameFloat(q.Y, o.Y) && sameFloat(q.Z, o.Z) && sameFloat(q.W, o.W)
}

// Same сравнивает цвета побитово.
func (c Color) Same(o Color) bool {
	return sameFloat(c.R, o.R) && sameFloat(c.G, o.G) && sameFloat(c.B, o.B) && sameFloat(c.A, o.A)
}

// SameFloat экспортирует побитовое сравнение для скалярных полей.
func SameFloat(a, b float32) bool {
	return sameFloat(a, b)
}
