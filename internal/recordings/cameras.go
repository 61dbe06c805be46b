package recordings

import (
	"fmt"
	"os"
	"sort"
	"time"

	"gopkg.in/yaml.v3"
)

// CameraRegistry resolves camera identifiers to their configuration. It is
// built once at startup and read-only afterwards.
type CameraRegistry struct {
	cameras map[string]Camera
}

type camerasFile struct {
	Cameras []Camera `yaml:"cameras"`
}

// NewCameraRegistry returns a registry holding cams. Identifiers must be
// unique and non-empty, lookback and tolerance non-negative.
func NewCameraRegistry(cams ...Camera) (*CameraRegistry, error) {
	r := &CameraRegistry{cameras: make(map[string]Camera, len(cams))}
	for _, c := range cams {
		if c.Identifier == "" {
			return nil, fmt.Errorf("camera with empty identifier")
		}
		if _, dup := r.cameras[c.Identifier]; dup {
			return nil, fmt.Errorf("camera %q declared twice", c.Identifier)
		}
		if c.Lookback < 0 {
			return nil, fmt.Errorf("camera %q: negative lookback %d", c.Identifier, c.Lookback)
		}
		if c.GapTolerance != nil && *c.GapTolerance < 0 {
			return nil, fmt.Errorf("camera %q: negative gap_tolerance %v", c.Identifier, *c.GapTolerance)
		}
		r.cameras[c.Identifier] = c
	}
	return r, nil
}

// LoadCameraRegistry reads a YAML document of the form
//
//	cameras:
//	  - identifier: front_door
//	    lookback: 5
//	    gap_tolerance: 0.5
func LoadCameraRegistry(path string) (*CameraRegistry, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read cameras file: %w", err)
	}
	var doc camerasFile
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("parse cameras file %s: %w", path, err)
	}
	return NewCameraRegistry(doc.Cameras...)
}

// Get returns the camera or an error matching ErrNotFound.
func (r *CameraRegistry) Get(identifier string) (Camera, error) {
	c, ok := r.cameras[identifier]
	if !ok {
		return Camera{}, fmt.Errorf("camera %q: %w", identifier, ErrNotFound)
	}
	return c, nil
}

// Len returns the number of configured cameras.
func (r *CameraRegistry) Len() int {
	return len(r.cameras)
}

// Identifiers returns the configured identifiers in sorted order.
func (r *CameraRegistry) Identifiers() []string {
	ids := make([]string, 0, len(r.cameras))
	for id := range r.cameras {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Tolerance returns the camera's gap tolerance, or fallback when unset.
func (c Camera) Tolerance(fallback time.Duration) time.Duration {
	if c.GapTolerance == nil {
		return fallback
	}
	return time.Duration(*c.GapTolerance * float64(time.Second))
}
