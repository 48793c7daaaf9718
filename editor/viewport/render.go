package viewport

import (
	"sort"

	"canvas-editor/editor/geometry"
	"canvas-editor/editor/layer"
)

// PaintOrder returns the layers sorted ascending by z-index; the first
// element is painted first and so appears furthest back. Equal z-indices
// keep their input order.
func PaintOrder(layers []layer.Layer) []layer.Layer {
	out := make([]layer.Layer, len(layers))
	copy(out, layers)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].ZIndex < out[j].ZIndex
	})
	return out
}

// Placeholder kinds drawn in place of a missing asset.
const (
	PlaceholderImage = "image"
	PlaceholderVideo = "video"
)

type (
	// Item is one painted layer plus its purely visual decorations.
	Item struct {
		Layer       layer.Layer         `json:"layer"`
		Style       layer.ResolvedStyle `json:"resolvedStyle"`
		Opacity     float64             `json:"effectiveOpacity"`
		Selected    bool                `json:"selected,omitempty"`
		Hovered     bool                `json:"hovered,omitempty"`
		Interactive bool                `json:"interactive"`
		Placeholder string              `json:"placeholder,omitempty"`
		Handles     []geometry.Handle   `json:"handles,omitempty"`
		Screen      geometry.Rect       `json:"screen"`
	}

	// Frame is everything needed to paint the canvas once.
	Frame struct {
		Viewport  State                `json:"viewport"`
		Grid      *Grid                `json:"grid,omitempty"`
		Items     []Item               `json:"items"`
		Guides    []geometry.Candidate `json:"guides,omitempty"`
		Selection []string             `json:"selection"`
	}

	// Input collects what Render needs from the store.
	Input struct {
		Layers        []layer.Layer
		Selection     []string
		Hover         string
		Guides        []geometry.Candidate
		State         State
		GridSize      float64
		LockedOpacity float64
	}
)

// Render builds a Frame. Hidden layers are skipped. Selection, hover and
// lock only decorate items; they never change paint order.
func Render(in Input) Frame {
	selected := make(map[string]bool, len(in.Selection))
	for _, id := range in.Selection {
		selected[id] = true
	}

	lockedFactor := in.LockedOpacity
	if lockedFactor <= 0 || lockedFactor > 1 {
		lockedFactor = 0.5
	}

	ordered := PaintOrder(in.Layers)
	items := make([]Item, 0, len(ordered))
	for _, l := range ordered {
		if !l.Visible {
			continue
		}
		it := Item{
			Layer:       l.Clone(),
			Style:       l.Style.Resolve(),
			Opacity:     l.Opacity,
			Selected:    selected[l.ID],
			Hovered:     in.Hover == l.ID,
			Interactive: !l.Locked,
			Placeholder: placeholderFor(l),
		}
		if l.Locked {
			it.Opacity = l.Opacity * lockedFactor
		}
		if it.Selected && !l.Locked {
			it.Handles = geometry.Handles
		}
		tl := in.State.CanvasToScreen(geometry.Point{X: l.X, Y: l.Y})
		it.Screen = geometry.Rect{X: tl.X, Y: tl.Y, W: l.Width * in.State.Zoom, H: l.Height * in.State.Zoom}
		items = append(items, it)
	}

	sel := make([]string, len(in.Selection))
	copy(sel, in.Selection)

	var guides []geometry.Candidate
	if len(in.Guides) > 0 {
		guides = append(guides, in.Guides...)
	}

	return Frame{
		Viewport:  in.State,
		Grid:      in.State.GridPattern(in.GridSize),
		Items:     items,
		Guides:    guides,
		Selection: sel,
	}
}

func placeholderFor(l layer.Layer) string {
	if l.HasAsset() {
		return ""
	}
	switch l.Type {
	case layer.TypeImage:
		return PlaceholderImage
	case layer.TypeVideo:
		return PlaceholderVideo
	}
	return ""
}
