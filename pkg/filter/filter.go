// Package filter defines user-selectable face filters and the catalog that
// holds them.
package filter

import "fmt"

// AnchorPoints names the landmark indices an overlay is pinned to.
// Top is reserved for vertical anchoring and is not read by the compositor.
type AnchorPoints struct {
	Left  int  `json:"left"`
	Right int  `json:"right"`
	Top   *int `json:"top,omitempty"`
}

// OverlaySpec is one image layer anchored to the face.
type OverlaySpec struct {
	// Src is the asset location (builtin:, file path or http(s) URL).
	Src string `json:"src"`

	AnchorPoints AnchorPoints `json:"anchorPoints"`

	// Scale is the overlay width as a multiple of the anchor distance.
	Scale float64 `json:"scale"`

	// OffsetY shifts the overlay vertically by a fraction of frame height.
	OffsetY float64 `json:"offsetY"`
}

// Filter is a named, ordered set of overlays. Later overlays draw on top.
type Filter struct {
	ID           string        `json:"id"`
	Name         string        `json:"name"`
	Icon         string        `json:"icon"`
	PreviewImage string        `json:"previewImage,omitempty"`
	Overlays     []OverlaySpec `json:"overlays"`

	// Is3D and ModelPath are reserved for 3-D filters and currently inert.
	Is3D      bool   `json:"is3D,omitempty"`
	ModelPath string `json:"modelPath,omitempty"`
}

// Sources returns the distinct asset locations referenced by the filter,
// in overlay order.
func (f *Filter) Sources() []string {
	seen := make(map[string]bool, len(f.Overlays))
	var out []string
	for _, o := range f.Overlays {
		if o.Src == "" || seen[o.Src] {
			continue
		}
		seen[o.Src] = true
		out = append(out, o.Src)
	}
	return out
}

// Validate checks structural constraints of the filter definition.
// An empty overlay list is allowed.
func (f *Filter) Validate() error {
	if f.ID == "" {
		return fmt.Errorf("%w: missing id", ErrInvalidFilter)
	}
	for i, o := range f.Overlays {
		if o.Src == "" {
			return fmt.Errorf("%w: %s overlay %d has no src", ErrInvalidFilter, f.ID, i)
		}
		if o.Scale <= 0 {
			return fmt.Errorf("%w: %s overlay %d scale must be positive", ErrInvalidFilter, f.ID, i)
		}
		if o.AnchorPoints.Left < 0 || o.AnchorPoints.Right < 0 {
			return fmt.Errorf("%w: %s overlay %d has a negative anchor index", ErrInvalidFilter, f.ID, i)
		}
	}
	return nil
}
