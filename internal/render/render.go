// Package render turns weather snapshots into widget render directives.
package render

import (
	"strconv"
	"strings"

	"github.com/PsiSigmaCyber/OnePlus-Weather-Widget/internal/weather"
)

// Color indexes understood by the widget surface.
const (
	ColorDefault = 0
	ColorAccent  = 1
)

const (
	// TemperatureUnit follows the rounded degrees.
	TemperatureUnit = "°C"
	// UnitScale is the relative size of the unit next to the digits.
	UnitScale float32 = 0.4
)

// Segment is a run of text with its own color and relative size.
type Segment struct {
	Text          string  `json:"text"`
	ColorIndex    int     `json:"colorIndex"`
	RelativeScale float32 `json:"relativeScale"`
}

// StyledText is text made of independently styled segments.
type StyledText struct {
	Segments []Segment `json:"segments"`
}

// String returns the plain text without styling.
func (t StyledText) String() string {
	var b strings.Builder
	for _, s := range t.Segments {
		b.WriteString(s.Text)
	}
	return b.String()
}

// Views is what one cycle asks the surface to change. A nil field leaves the
// currently displayed value alone.
type Views struct {
	Temperature *StyledText `json:"temperature,omitempty"`
	Description *string     `json:"description,omitempty"`
	Place       *string     `json:"place,omitempty"`
}

// Empty reports whether v changes nothing.
func (v Views) Empty() bool {
	return v.Temperature == nil && v.Description == nil && v.Place == nil
}

// Temperature formats degrees as large accent digits followed by a small unit.
func Temperature(celsius int) StyledText {
	return StyledText{Segments: []Segment{
		{Text: strconv.Itoa(celsius), ColorIndex: ColorAccent, RelativeScale: 1},
		{Text: TemperatureUnit, ColorIndex: ColorDefault, RelativeScale: UnitScale},
	}}
}

// Snapshot builds the views for a cycle. A nil snapshot yields empty views.
func Snapshot(s *weather.Snapshot) Views {
	if s == nil {
		return Views{}
	}
	temp := Temperature(s.TemperatureC)
	desc := s.Description
	return Views{
		Temperature: &temp,
		Description: &desc,
	}
}

// WithPlace adds a place label to v when label is not empty.
func (v Views) WithPlace(label string) Views {
	if label == "" {
		return v
	}
	v.Place = &label
	return v
}
