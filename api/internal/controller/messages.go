package controller

import "github.com/MohamedFakhry2007/imaging-report-generator/api/internal/backend"

// Messages are the user-facing strings the controller puts into Failure.
// TooLarge is a format string taking the human readable limit.
type Messages struct {
	CatalogFailed    string
	NoFile           string
	NoStyle          string
	UnknownStyle     string
	EmptyFile        string
	NotImage         string
	TooLarge         string
	GenerationFailed string
	Transport        string
	Timeout          string
}

func DefaultMessages(v backend.Variant) Messages {
	m := Messages{
		CatalogFailed:    "Could not load the list of styles. Please try again later.",
		NoFile:           "Please select an image first.",
		NoStyle:          "Please select a style first.",
		UnknownStyle:     "Unknown style.",
		EmptyFile:        "The selected file is empty.",
		NotImage:         "Please select an image file (JPEG, PNG, GIF, WebP, BMP or TIFF).",
		TooLarge:         "The image is too large (max %s).",
		GenerationFailed: "Failed to generate report",
		Transport:        "Error analyzing image. Please ensure it is a valid medical scan.",
		Timeout:          "The server took too long to answer. Please try again.",
	}
	if v != backend.VariantReport {
		m.GenerationFailed = "Failed to generate story"
		m.Transport = "Error generating story. Please try another image."
	}
	return m
}
