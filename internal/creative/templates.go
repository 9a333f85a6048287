package creative

import (
	"errors"
	"fmt"
)

// ErrUnknownTemplate is returned by ApplyTemplate for an unregistered id.
var ErrUnknownTemplate = errors.New("unknown template")

// Template is a layout preset. Applying one changes layout and typography
// but keeps the user's texts and colours.
type Template struct {
	ID               string
	Name             string
	FontFamily       string
	HeadlineSize     float64
	CTASize          float64
	LogoScale        float64
	HeadlinePosition Percent
	CTAPosition      Percent
	LogoPosition     Percent
	HeadlineAlign    Align
}

var templates = []Template{
	{
		ID:               "classic",
		Name:             "Classic",
		FontFamily:       FontGoBold,
		HeadlineSize:     6,
		CTASize:          3,
		LogoScale:        15,
		HeadlinePosition: Percent{X: 50, Y: 15},
		CTAPosition:      Percent{X: 50, Y: 88},
		LogoPosition:     Percent{X: 88, Y: 10},
		HeadlineAlign:    AlignCenter,
	},
	{
		ID:               "bold-center",
		Name:             "Bold Center",
		FontFamily:       FontGoBold,
		HeadlineSize:     9,
		CTASize:          3.5,
		LogoScale:        18,
		HeadlinePosition: Percent{X: 50, Y: 45},
		CTAPosition:      Percent{X: 50, Y: 62},
		LogoPosition:     Percent{X: 50, Y: 12},
		HeadlineAlign:    AlignCenter,
	},
	{
		ID:               "minimal-bottom",
		Name:             "Minimal Bottom",
		FontFamily:       FontGoMedium,
		HeadlineSize:     4.5,
		CTASize:          2.5,
		LogoScale:        10,
		HeadlinePosition: Percent{X: 50, Y: 80},
		CTAPosition:      Percent{X: 50, Y: 91},
		LogoPosition:     Percent{X: 8, Y: 8},
		HeadlineAlign:    AlignCenter,
	},
	{
		ID:               "left-stack",
		Name:             "Left Stack",
		FontFamily:       FontGoBold,
		HeadlineSize:     7,
		CTASize:          3,
		LogoScale:        14,
		HeadlinePosition: Percent{X: 6, Y: 40},
		CTAPosition:      Percent{X: 20, Y: 60},
		LogoPosition:     Percent{X: 12, Y: 10},
		HeadlineAlign:    AlignLeft,
	},
	{
		ID:               "top-banner",
		Name:             "Top Banner",
		FontFamily:       FontGoItalic,
		HeadlineSize:     5.5,
		CTASize:          3,
		LogoScale:        12,
		HeadlinePosition: Percent{X: 94, Y: 10},
		CTAPosition:      Percent{X: 80, Y: 22},
		LogoPosition:     Percent{X: 10, Y: 10},
		HeadlineAlign:    AlignRight,
	},
}

// Templates returns the registered presets in display order.
func Templates() []Template {
	return append([]Template(nil), templates...)
}

// TemplateByID looks up a preset.
func TemplateByID(id string) (Template, bool) {
	for _, t := range templates {
		if t.ID == id {
			return t, true
		}
	}
	return Template{}, false
}

// ApplyTemplate returns a copy of st laid out by the template.
func ApplyTemplate(st State, id string) (State, error) {
	t, ok := TemplateByID(id)
	if !ok {
		return st, fmt.Errorf("%w: %q", ErrUnknownTemplate, id)
	}
	st.TemplateID = t.ID
	st.FontFamily = t.FontFamily
	st.HeadlineSize = t.HeadlineSize
	st.CTASize = t.CTASize
	st.LogoScale = t.LogoScale
	st.HeadlinePosition = t.HeadlinePosition
	st.CTAPosition = t.CTAPosition
	st.LogoPosition = t.LogoPosition
	st.HeadlineAlign = t.HeadlineAlign
	return st, nil
}
