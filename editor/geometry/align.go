package geometry

import "math"

// Axis is the orientation of an alignment guide line.
type Axis string

const (
	// Vertical guides run top to bottom and mark an x coordinate.
	Vertical Axis = "vertical"
	// Horizontal guides run left to right and mark a y coordinate.
	Horizontal Axis = "horizontal"
)

// Anchor names which feature of the two boxes matched.
type Anchor string

const (
	AnchorStart  Anchor = "start"
	AnchorCenter Anchor = "center"
	AnchorEnd    Anchor = "end"
)

type (
	// Sibling is a static box the moving layer is compared against.
	Sibling struct {
		ID   string
		Rect Rect
	}

	// Candidate is one detected near-match, drawn as a guide line at Position.
	Candidate struct {
		Axis      Axis    `json:"axis"`
		Position  float64 `json:"position"`
		Anchor    Anchor  `json:"anchor"`
		SiblingID string  `json:"siblingId,omitempty"`
	}
)

// FindAlignmentCandidates compares the moving box's left, right and
// horizontal center against the same features of every sibling (vertical
// guides), and its top, bottom and vertical center likewise (horizontal
// guides). Every feature whose distance is strictly below threshold yields
// a candidate at the sibling's coordinate. Duplicates across siblings are
// kept. Candidates are advisory only; nothing is moved.
func FindAlignmentCandidates(moving Rect, siblings []Sibling, threshold float64) []Candidate {
	if threshold <= 0 || math.IsNaN(threshold) {
		return nil
	}

	var out []Candidate
	for _, s := range siblings {
		vertical := [...]struct {
			anchor Anchor
			mine   float64
			theirs float64
		}{
			{AnchorStart, moving.Left(), s.Rect.Left()},
			{AnchorEnd, moving.Right(), s.Rect.Right()},
			{AnchorCenter, moving.CenterX(), s.Rect.CenterX()},
		}
		for _, f := range vertical {
			if math.Abs(f.mine-f.theirs) < threshold {
				out = append(out, Candidate{Axis: Vertical, Position: f.theirs, Anchor: f.anchor, SiblingID: s.ID})
			}
		}

		horizontal := [...]struct {
			anchor Anchor
			mine   float64
			theirs float64
		}{
			{AnchorStart, moving.Top(), s.Rect.Top()},
			{AnchorEnd, moving.Bottom(), s.Rect.Bottom()},
			{AnchorCenter, moving.CenterY(), s.Rect.CenterY()},
		}
		for _, f := range horizontal {
			if math.Abs(f.mine-f.theirs) < threshold {
				out = append(out, Candidate{Axis: Horizontal, Position: f.theirs, Anchor: f.anchor, SiblingID: s.ID})
			}
		}
	}
	return out
}

// ScaledThreshold converts a screen-space tolerance into canvas units so the
// perceived tolerance is the same at every zoom level.
func ScaledThreshold(screenPx, zoom float64) float64 {
	if zoom <= 0 || math.IsNaN(zoom) {
		return screenPx
	}
	return screenPx / zoom
}
