package layer

// Patch is a partial update. Nil fields are left untouched.
type Patch struct {
	Name     *string      `json:"name,omitempty"`
	X        *float64     `json:"x,omitempty"`
	Y        *float64     `json:"y,omitempty"`
	Width    *float64     `json:"width,omitempty"`
	Height   *float64     `json:"height,omitempty"`
	Rotation *float64     `json:"rotation,omitempty"`
	ZIndex   *int         `json:"zIndex,omitempty"`
	Text     *TextContent `json:"content,omitempty"`
	AssetURL *string      `json:"assetUrl,omitempty"`
	Style    *Style       `json:"style,omitempty"`
	Opacity  *float64     `json:"opacity,omitempty"`
	Blur     *float64     `json:"blur,omitempty"`
	Visible  *bool        `json:"visible,omitempty"`
	Locked   *bool        `json:"locked,omitempty"`
}

// Geometry reports whether the patch moves, resizes or rotates a layer.
func (p Patch) Geometry() bool {
	return p.X != nil || p.Y != nil || p.Width != nil || p.Height != nil || p.Rotation != nil
}

// Empty reports whether the patch changes nothing.
func (p Patch) Empty() bool {
	return p == Patch{}
}

// Apply merges p into l and re-clamps the result. The layer id and type
// are never changed by a patch.
func (l *Layer) Apply(p Patch) {
	if p.Name != nil {
		l.Name = *p.Name
	}
	if p.X != nil {
		l.X = finite(*p.X, l.X)
	}
	if p.Y != nil {
		l.Y = finite(*p.Y, l.Y)
	}
	if p.Width != nil {
		l.Width = *p.Width
	}
	if p.Height != nil {
		l.Height = *p.Height
	}
	if p.Rotation != nil {
		l.Rotation = *p.Rotation
	}
	if p.ZIndex != nil {
		l.ZIndex = *p.ZIndex
	}
	if p.Text != nil {
		t := *p.Text
		l.Text = &t
	}
	if p.AssetURL != nil {
		l.AssetURL = *p.AssetURL
	}
	if p.Style != nil {
		l.Style = l.Style.Merge(*p.Style)
	}
	if p.Opacity != nil {
		l.Opacity = *p.Opacity
	}
	if p.Blur != nil {
		l.Blur = *p.Blur
	}
	if p.Visible != nil {
		l.Visible = *p.Visible
	}
	if p.Locked != nil {
		l.Locked = *p.Locked
	}
	l.Normalize()
}

// Move returns a patch that sets the top-left corner.
func Move(x, y float64) Patch {
	return Patch{X: &x, Y: &y}
}

// Frame returns a patch that sets position and size together.
func Frame(x, y, width, height float64) Patch {
	return Patch{X: &x, Y: &y, Width: &width, Height: &height}
}
