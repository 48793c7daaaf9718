package layer

import "math"

type (
	// Shadow is a drop shadow. Zero offsets and blur are valid.
	Shadow struct {
		OffsetX float64 `json:"offsetX"`
		OffsetY float64 `json:"offsetY"`
		Blur    float64 `json:"blur"`
		Color   string  `json:"color,omitempty"`
	}

	// Style is the optional presentation bag of a layer. Every field is
	// independently optional; a nil field renders as a no-op.
	Style struct {
		Background   *string  `json:"background,omitempty"`
		BorderColor  *string  `json:"borderColor,omitempty"`
		BorderWidth  *float64 `json:"borderWidth,omitempty"`
		BorderRadius *float64 `json:"borderRadius,omitempty"`
		Shadow       *Shadow  `json:"shadow,omitempty"`
	}

	// ResolvedStyle is a Style with every default filled in, ready to paint.
	ResolvedStyle struct {
		Background   string  `json:"background"`
		BorderColor  string  `json:"borderColor"`
		BorderWidth  float64 `json:"borderWidth"`
		BorderRadius float64 `json:"borderRadius"`
		Shadow       *Shadow `json:"shadow,omitempty"`
	}
)

const (
	DefaultBorderColor = "#000000"
	DefaultShadowColor = "rgba(0,0,0,0.25)"
)

// Merge returns s with every non-nil field of patch copied over it.
func (s Style) Merge(patch Style) Style {
	out := s.Clone()
	if patch.Background != nil {
		out.Background = ptr(*patch.Background)
	}
	if patch.BorderColor != nil {
		out.BorderColor = ptr(*patch.BorderColor)
	}
	if patch.BorderWidth != nil {
		out.BorderWidth = ptr(*patch.BorderWidth)
	}
	if patch.BorderRadius != nil {
		out.BorderRadius = ptr(*patch.BorderRadius)
	}
	if patch.Shadow != nil {
		sh := *patch.Shadow
		out.Shadow = &sh
	}
	out.normalize()
	return out
}

// Clone deep-copies the style.
func (s Style) Clone() Style {
	var c Style
	if s.Background != nil {
		c.Background = ptr(*s.Background)
	}
	if s.BorderColor != nil {
		c.BorderColor = ptr(*s.BorderColor)
	}
	if s.BorderWidth != nil {
		c.BorderWidth = ptr(*s.BorderWidth)
	}
	if s.BorderRadius != nil {
		c.BorderRadius = ptr(*s.BorderRadius)
	}
	if s.Shadow != nil {
		sh := *s.Shadow
		c.Shadow = &sh
	}
	return c
}

// Resolve fills in defaults. Background stays empty (transparent) when unset,
// and border width 0 means no border is drawn.
func (s Style) Resolve() ResolvedStyle {
	r := ResolvedStyle{BorderColor: DefaultBorderColor}
	if s.Background != nil {
		r.Background = *s.Background
	}
	if s.BorderColor != nil && *s.BorderColor != "" {
		r.BorderColor = *s.BorderColor
	}
	if s.BorderWidth != nil {
		r.BorderWidth = *s.BorderWidth
	}
	if s.BorderRadius != nil {
		r.BorderRadius = *s.BorderRadius
	}
	if s.Shadow != nil {
		sh := *s.Shadow
		if sh.Color == "" {
			sh.Color = DefaultShadowColor
		}
		r.Shadow = &sh
	}
	return r
}

func (s *Style) normalize() {
	if s.BorderWidth != nil && (math.IsNaN(*s.BorderWidth) || *s.BorderWidth < 0) {
		*s.BorderWidth = 0
	}
	if s.BorderRadius != nil && (math.IsNaN(*s.BorderRadius) || *s.BorderRadius < 0) {
		*s.BorderRadius = 0
	}
	if s.Shadow != nil && (math.IsNaN(s.Shadow.Blur) || s.Shadow.Blur < 0) {
		s.Shadow.Blur = 0
	}
}

func ptr[T any](v T) *T {
	return &v
}
