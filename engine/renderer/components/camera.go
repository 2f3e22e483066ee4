package components

import (
	stdmath "math"

	"github.com/spaghettifunk/batchrender/engine/math"
)

/**
 * @brief Represents a perspective camera looking from Position
 * towards Target.
 */
type Camera struct {
	/**
	 * @brief The position of this camera.
	 * NOTE: Do not set this directly, use SetPosition() instead
	 * so the view matrix is recalculated when needed.
	 */
	Position math.Vec3
	/** @brief The point the camera looks at. */
	Target math.Vec3
	/** @brief The up vector. */
	Up math.Vec3
	/** @brief Vertical field of view in radians. */
	FOV float32
	/** @brief Near clipping plane distance. */
	Near float32
	/** @brief Far clipping plane distance. */
	Far float32
	/** @brief Internal flag used to determine when the view matrix needs to be rebuilt. */
	IsDirty bool
	/**
	 * @brief The view matrix of this camera.
	 * NOTE: IMPORTANT: Do not get this directly, use GetView() instead
	 * so the view matrix is recalculated when needed.
	 */
	ViewMatrix math.Mat4
}

func NewCamera() *Camera {
	camera := &Camera{}
	camera.Reset()
	return camera
}

func (c *Camera) Reset() {
	c.Position = math.NewVec3(0, 0, 10)
	c.Target = math.NewVec3Zero()
	c.Up = math.NewVec3Up()
	c.FOV = math.DegToRad(40)
	c.Near = 0.1
	c.Far = 1000
	c.IsDirty = true
	c.ViewMatrix = math.NewMat4Identity()
}

func (c *Camera) SetPosition(position math.Vec3) {
	c.Position = position
	c.IsDirty = true
}

func (c *Camera) LookAt(target math.Vec3) {
	c.Target = target
	c.IsDirty = true
}

func (c *Camera) GetView() math.Mat4 {
	if c.IsDirty {
		c.ViewMatrix = math.NewMat4LookAt(c.Position, c.Target, c.Up)
		c.IsDirty = false
	}
	return c.ViewMatrix
}

func (c *Camera) GetProjection(aspect float32) math.Mat4 {
	return math.NewMat4Perspective(c.FOV, aspect, c.Near, c.Far)
}

// Forward is the unit direction the camera looks in.
func (c *Camera) Forward() math.Vec3 {
	f := c.Target.Sub(c.Position).Normalized()
	if f.LengthSquared() == 0 {
		return math.NewVec3Forward()
	}
	return f
}

// Frame keeps the viewing direction and moves the camera so that the bounding sphere
// of ext fills the view for the given aspect ratio. Clip planes follow the distance.
func (c *Camera) Frame(ext math.Extents3D, aspect float32) {
	center := ext.Center()
	radius := ext.Size().Length() * 0.5
	if radius < 1e-3 {
		radius = 1e-3
	}

	fov := c.FOV
	if aspect > 0 && aspect < 1 {
		horizontal := float32(2 * stdmath.Atan(stdmath.Tan(float64(c.FOV)*0.5)*float64(aspect)))
		fov = min(fov, horizontal)
	}
	distance := radius / float32(stdmath.Sin(float64(fov)*0.5)) * 1.1

	dir := c.Forward()
	c.Target = center
	c.Position = center.Sub(dir.MulScalar(distance))
	c.Near = max((distance-radius)*0.5, 1e-3)
	c.Far = distance + radius*2
	c.IsDirty = true
}
