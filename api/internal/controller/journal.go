package controller

import (
	"context"
	"time"

	"github.com/MohamedFakhry2007/imaging-report-generator/api/internal/backend"
)

// JournalEntry describes one settled generation.
type JournalEntry struct {
	At         time.Time
	Variant    backend.Variant
	StyleID    string
	FileName   string
	FileSHA256 string
	FileSize   int64
	Outcome    string // "success" or the failure Kind
	Message    string
	StatusCode int
	TextLength int
	Duration   time.Duration
}

// Journal records settled generations. Record is called outside the
// controller lock; its error is logged and otherwise ignored.
type Journal interface {
	Record(ctx context.Context, e JournalEntry) error
}
