package components

import "github.com/spaghettifunk/batchrender/engine/math"

// DirectionalLight shines along Direction from infinitely far away.
type DirectionalLight struct {
	Direction math.Vec3
	Colour    math.Vec3
	Ambient   float32
}

func NewDirectionalLight() DirectionalLight {
	return DirectionalLight{
		Direction: math.NewVec3(-0.4, -1, -0.6).Normalized(),
		Colour:    math.NewVec3One(),
		Ambient:   0.15,
	}
}
