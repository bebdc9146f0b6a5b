package backend

import (
	"fmt"
	"strings"

	"github.com/MohamedFakhry2007/imaging-report-generator/api/internal/upload"
)

// Variant selects which generation endpoint the front-end talks to.
type Variant string

const (
	VariantReport      Variant = "report"       // /api/generate-report, no styles
	VariantStory       Variant = "story"        // /api/generate-story, no styles
	VariantStyledStory Variant = "styled-story" // /api/generate-story + selected_style_id
)

func ParseVariant(s string) (Variant, error) {
	switch v := Variant(strings.ToLower(strings.TrimSpace(s))); v {
	case VariantReport, VariantStory, VariantStyledStory:
		return v, nil
	case "":
		return VariantReport, nil
	default:
		return "", fmt.Errorf("unknown variant %q (report|story|styled-story)", s)
	}
}

func (v Variant) Endpoint() string {
	if v == VariantReport {
		return "/api/generate-report"
	}
	return "/api/generate-story"
}

// ResultField is the JSON field carrying the generated text.
func (v Variant) ResultField() string {
	if v == VariantReport {
		return "report"
	}
	return "story"
}

func (v Variant) UsesStyles() bool { return v == VariantStyledStory }

// Style is one entry of the style catalog.
type Style struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// GenerateRequest is what the front-end uploads.
type GenerateRequest struct {
	File    upload.File
	StyleID string // only sent for VariantStyledStory
}

const (
	FieldFile    = "file"
	FieldStyleID = "selected_style_id"
	FieldDetail  = "detail"
)
