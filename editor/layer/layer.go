// Package layer defines the positionable, stylable unit of canvas content
// and the clamping rules every mutation path applies to it.
package layer

import (
	"encoding/json"
	"math"
)

// Type identifies what a layer renders.
type Type string

const (
	TypeText  Type = "text"
	TypeImage Type = "image"
	TypeVideo Type = "video"
	TypeShape Type = "shape"
)

const (
	// MinSize is the smallest width or height any layer may have, in canvas units.
	MinSize = 20.0

	DefaultFontFamily = "Inter"
	DefaultFontSize   = 16.0
	DefaultTextColor  = "#000000"
	DefaultAlign      = AlignLeft
)

// Valid reports whether t is one of the known layer types.
func (t Type) Valid() bool {
	switch t {
	case TypeText, TypeImage, TypeVideo, TypeShape:
		return true
	}
	return false
}

// TextAlign is the horizontal alignment of text content.
type TextAlign string

const (
	AlignLeft   TextAlign = "left"
	AlignCenter TextAlign = "center"
	AlignRight  TextAlign = "right"
)

type (
	// TextContent is the payload of a text layer.
	TextContent struct {
		Text       string    `json:"text"`
		FontFamily string    `json:"fontFamily,omitempty"`
		FontSize   float64   `json:"fontSize,omitempty"`
		FontWeight int       `json:"fontWeight,omitempty"`
		Color      string    `json:"color,omitempty"`
		Align      TextAlign `json:"align,omitempty"`
	}

	// Layer is a single element on the canvas. X and Y are the top-left
	// corner in canvas space.
	Layer struct {
		ID       string       `json:"id"`
		Type     Type         `json:"type"`
		Name     string       `json:"name,omitempty"`
		X        float64      `json:"x"`
		Y        float64      `json:"y"`
		Width    float64      `json:"width"`
		Height   float64      `json:"height"`
		Rotation float64      `json:"rotation"`
		ZIndex   int          `json:"zIndex"`
		Text     *TextContent `json:"content,omitempty"`
		AssetURL string       `json:"assetUrl,omitempty"`
		Style    Style        `json:"style"`
		Opacity  float64      `json:"opacity"`
		Blur     float64      `json:"blur"`
		Visible  bool         `json:"visible"`
		Locked   bool         `json:"locked"`
	}
)

// New returns a layer of type t with every optional field at its default.
func New(id string, t Type, x, y, width, height float64) Layer {
	l := Layer{
		ID:      id,
		Type:    t,
		X:       x,
		Y:       y,
		Width:   width,
		Height:  height,
		Opacity: 1,
		Visible: true,
	}
	l.Normalize()
	return l
}

// UnmarshalJSON decodes a layer, defaulting fields that are absent from
// the payload (opacity 1, visible true) instead of leaving Go zero values.
func (l *Layer) UnmarshalJSON(data []byte) error {
	type plain Layer
	decoded := plain{Opacity: 1, Visible: true}
	if err := json.Unmarshal(data, &decoded); err != nil {
		return err
	}
	*l = Layer(decoded)
	return nil
}

// Bounds returns the unrotated bounding box of the layer.
func (l Layer) Bounds() (x, y, width, height float64) {
	return l.X, l.Y, l.Width, l.Height
}

// HasAsset reports whether an image or video layer has something to load.
func (l Layer) HasAsset() bool {
	return l.AssetURL != ""
}

// Clone returns a deep copy; the copy shares no pointers with l.
func (l Layer) Clone() Layer {
	c := l
	if l.Text != nil {
		t := *l.Text
		c.Text = &t
	}
	c.Style = l.Style.Clone()
	return c
}

// Normalize applies defaults and clamps every field into its valid range.
// It never fails: degenerate input degrades to the nearest valid value.
func (l *Layer) Normalize() {
	if !l.Type.Valid() {
		l.Type = TypeShape
	}
	l.X = finite(l.X, 0)
	l.Y = finite(l.Y, 0)
	l.Width = ClampSize(l.Width)
	l.Height = ClampSize(l.Height)
	l.Rotation = WrapRotation(l.Rotation)
	l.Opacity = ClampOpacity(l.Opacity)
	l.Blur = ClampBlur(l.Blur)
	if l.Type == TypeText {
		if l.Text == nil {
			l.Text = &TextContent{}
		}
		l.Text.normalize()
	}
	l.Style.normalize()
}

func (t *TextContent) normalize() {
	if t.FontFamily == "" {
		t.FontFamily = DefaultFontFamily
	}
	if t.FontSize <= 0 || math.IsNaN(t.FontSize) {
		t.FontSize = DefaultFontSize
	}
	if t.Color == "" {
		t.Color = DefaultTextColor
	}
	switch t.Align {
	case AlignLeft, AlignCenter, AlignRight:
	default:
		t.Align = DefaultAlign
	}
}

// ClampSize floors a width or height at MinSize.
func ClampSize(v float64) float64 {
	if math.IsNaN(v) || v < MinSize {
		return MinSize
	}
	if math.IsInf(v, 1) {
		return math.MaxFloat32
	}
	return v
}

// WrapRotation maps any angle in degrees into [0, 360).
func WrapRotation(deg float64) float64 {
	if math.IsNaN(deg) || math.IsInf(deg, 0) {
		return 0
	}
	deg = math.Mod(deg, 360)
	if deg < 0 {
		deg += 360
	}
	return deg
}

// ClampOpacity keeps opacity within [0, 1].
func ClampOpacity(v float64) float64 {
	switch {
	case math.IsNaN(v):
		return 1
	case v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}

// ClampBlur keeps blur non-negative.
func ClampBlur(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	return v
}

func finite(v, fallback float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return fallback
	}
	return v
}
