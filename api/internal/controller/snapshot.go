package controller

import (
	"github.com/MohamedFakhry2007/imaging-report-generator/api/internal/backend"
	"github.com/MohamedFakhry2007/imaging-report-generator/api/internal/preview"
	"github.com/MohamedFakhry2007/imaging-report-generator/api/internal/upload"
)

// Snapshot is a copy of the controller's view state. It is safe to keep
// and render from any goroutine.
type Snapshot struct {
	Variant       backend.Variant
	Status        Status
	File          upload.File // zero when nothing is selected
	Preview       preview.Handle
	Catalog       []backend.Style
	CatalogLoaded bool
	StyleID       string
	// InputVersion changes on every Reset; a surface clears its file
	// input control when it sees a new value.
	InputVersion uint64
	// Busy is true while a generation request is outstanding. It can
	// outlive Loading when the selection was reset or replaced meanwhile.
	Busy bool
}

func (s Snapshot) HasFile() bool { return len(s.File.Data) > 0 }

func (s Snapshot) IsLoading() bool {
	_, ok := s.Status.(Loading)
	return ok
}

// Text is the generated text, empty unless Status is Success.
func (s Snapshot) Text() string {
	if st, ok := s.Status.(Success); ok {
		return st.Text
	}
	return ""
}

// Err is the current error, nil unless Status is Failure.
func (s Snapshot) Err() *Error {
	if st, ok := s.Status.(Failure); ok {
		return st.Err
	}
	return nil
}

func (s Snapshot) ErrorMessage() string {
	if e := s.Err(); e != nil {
		return e.Message
	}
	return ""
}

// StyleName resolves StyleID against the catalog.
func (s Snapshot) StyleName() string {
	for _, st := range s.Catalog {
		if st.ID == s.StyleID {
			return st.Name
		}
	}
	return ""
}

// CanGenerate mirrors the enabled state of a generate button.
func (s Snapshot) CanGenerate() bool {
	if s.Busy || s.IsLoading() || !s.HasFile() {
		return false
	}
	return !s.Variant.UsesStyles() || s.StyleID != ""
}
