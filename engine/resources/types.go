package resources

import "github.com/spaghettifunk/batchrender/engine/math"

type ResourceType int

/** @brief Pre-defined resource types. */
const (
	/** @brief Unknown or unsupported file. */
	ResourceTypeNone ResourceType = iota
	/** @brief Material resource type (.amt). */
	ResourceTypeMaterial
	/** @brief Mesh resource type (.stl). */
	ResourceTypeMesh
	/** @brief Scene description resource type (.toml). */
	ResourceTypeScene
)

func (rt ResourceType) String() string {
	switch rt {
	case ResourceTypeMaterial:
		return "material"
	case ResourceTypeMesh:
		return "mesh"
	case ResourceTypeScene:
		return "scene"
	default:
		return "none"
	}
}

/**
 * @brief A generic structure for a resource. All resource loaders
 * load data into these.
 */
type Resource struct {
	/** @brief The type of the loader which handles this resource. */
	Type ResourceType
	/** @brief The name of the resource. */
	Name string
	/** @brief The full file path of the resource. */
	FullPath string
	/** @brief The size of the resource data. Bytes for text files, triangles for meshes. */
	DataSize uint64
	/** @brief The resource data. */
	Data interface{}
}

/**
 * @brief Represents the configuration for a geometry.
 */
type GeometryConfig struct {
	/** @brief The name of the geometry. */
	Name string
	/** @brief The vertices, welded. */
	Vertices []math.Vertex3D
	/** @brief Three indices per triangle. */
	Indices []uint32
	/** @brief The center of the geometry in local coordinates. */
	Center math.Vec3
	/** @brief The extents of the geometry in local coordinates. */
	Extents math.Extents3D
	/** @brief The name of the material used by the geometry. Empty means none. */
	MaterialName string
}

// TriangleCount is the number of indexed triangles.
func (gc *GeometryConfig) TriangleCount() int {
	return len(gc.Indices) / 3
}

/**
 * @brief Material configuration typically loaded from
 * an .amt file.
 */
type MaterialConfig struct {
	/** @brief The name of the material. */
	Name string
	/** @brief Indicates if the material should be automatically released when no references to it remain. */
	AutoRelease bool
	/** @brief The diffuse colour of the material. */
	DiffuseColour math.Vec4
	/** @brief The specular exponent. Zero disables highlights. */
	Shininess float32
}

// SceneConfig is the on-disk scene description (TOML).
type SceneConfig struct {
	Name       string         `toml:"name"`
	Background [4]float32     `toml:"background"`
	Camera     CameraConfig   `toml:"camera"`
	Light      LightConfig    `toml:"light"`
	Materials  []string       `toml:"materials"`
	Objects    []ObjectConfig `toml:"objects"`

	// Filled by the scene loader: the parsed materials listed in Materials.
	LoadedMaterials []*MaterialConfig `toml:"-"`
}

type CameraConfig struct {
	Position  [3]float32 `toml:"position"`
	Target    [3]float32 `toml:"target"`
	Up        [3]float32 `toml:"up"`
	FOV       float32    `toml:"fov"`
	Near      float32    `toml:"near"`
	Far       float32    `toml:"far"`
	AutoFrame bool       `toml:"auto_frame"`
}

type LightConfig struct {
	Direction [3]float32 `toml:"direction"`
	Colour    [3]float32 `toml:"colour"`
	Ambient   float32    `toml:"ambient"`
}

// ObjectConfig describes one scene object. Exactly one of Primitive and Mesh is set.
type ObjectConfig struct {
	Name      string     `toml:"name"`
	Primitive string     `toml:"primitive"`
	Mesh      string     `toml:"mesh"`
	Material  string     `toml:"material"`
	Location  [3]float32 `toml:"location"`
	Rotation  [3]float32 `toml:"rotation"`
	Scale     [3]float32 `toml:"scale"`
	Hidden    bool       `toml:"hidden"`
}
