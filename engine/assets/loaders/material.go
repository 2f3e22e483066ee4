package loaders

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spaghettifunk/batchrender/engine/core"
	"github.com/spaghettifunk/batchrender/engine/math"
	"github.com/spaghettifunk/batchrender/engine/resources"
)

// MaterialLoader parses .amt material files.
type MaterialLoader struct{}

func (ml *MaterialLoader) Load(path string, assetType resources.ResourceType, params interface{}) (*resources.Resource, error) {
	mCfg, err := parseAMTFile(path)
	if err != nil {
		return nil, fmt.Errorf("material %s: %w", path, err)
	}
	return &resources.Resource{
		Type:     resources.ResourceTypeMaterial,
		Name:     mCfg.Name,
		FullPath: path,
		Data:     mCfg,
	}, nil
}

func parseAMTFile(filename string) (*resources.MaterialConfig, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	materialConfig := &resources.MaterialConfig{
		DiffuseColour: math.NewVec4(1, 1, 1, 1),
		AutoRelease:   true,
	}

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		// Skip comments and empty lines
		if strings.HasPrefix(line, "#") || line == "" {
			continue
		}

		// Split key-value pairs by the first "=" sign
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			core.LogWarn("skipping invalid line in %s: %s", filename, line)
			continue
		}
		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)

		switch key {
		case "name":
			materialConfig.Name = value
		case "diffuse_colour":
			colour, err := parseVec4(value)
			if err != nil {
				return nil, fmt.Errorf("invalid diffuse_colour %q: %w", value, err)
			}
			materialConfig.DiffuseColour = colour
		case "shininess":
			shininess, err := strconv.ParseFloat(value, 32)
			if err != nil {
				return nil, fmt.Errorf("invalid shininess value: %s", value)
			}
			materialConfig.Shininess = float32(shininess)
		case "autorelease":
			autoRelease, err := strconv.ParseBool(value)
			if err != nil {
				return nil, fmt.Errorf("invalid autorelease value: %s", value)
			}
			materialConfig.AutoRelease = autoRelease
		default:
			core.LogWarn("unknown key '%s' found in %s, skipping", key, filename)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if err := validateMaterial(materialConfig); err != nil {
		return nil, err
	}
	return materialConfig, nil
}

func parseVec4(value string) (math.Vec4, error) {
	fields := strings.Fields(value)
	if len(fields) != 4 {
		return math.Vec4{}, fmt.Errorf("expected 4 values, got %d", len(fields))
	}
	var out [4]float32
	for i, v := range fields {
		f, err := strconv.ParseFloat(v, 32)
		if err != nil {
			return math.Vec4{}, err
		}
		out[i] = float32(f)
	}
	return math.NewVec4(out[0], out[1], out[2], out[3]), nil
}

func validateMaterial(material *resources.MaterialConfig) error {
	if material.Name == "" {
		return fmt.Errorf("material name is required")
	}
	// Check that DiffuseColour values are within [0.0, 1.0] range
	if !isValidVec4(material.DiffuseColour) {
		return fmt.Errorf("diffuse_colour values must be between 0.0 and 1.0")
	}
	if material.Shininess < 0 {
		return fmt.Errorf("shininess must be a non-negative value")
	}
	return nil
}

// Helper function to validate Vec4 fields (must be between 0.0 and 1.0)
func isValidVec4(v math.Vec4) bool {
	return inRange(v.X) && inRange(v.Y) && inRange(v.Z) && inRange(v.W)
}

func inRange(value float32) bool {
	return value >= 0.0 && value <= 1.0
}

func (ml *MaterialLoader) Unload(*resources.Resource) error {
	return nil
}
