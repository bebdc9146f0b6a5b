package controller

import (
	"time"

	"github.com/MohamedFakhry2007/imaging-report-generator/api/internal/backend"
	"github.com/MohamedFakhry2007/imaging-report-generator/api/internal/preview"
	"github.com/MohamedFakhry2007/imaging-report-generator/api/internal/upload"
)

// DefaultStyleID is preferred when the catalog contains it.
const DefaultStyleID = "general_modern_standard"

type options struct {
	variant         backend.Variant
	messages        *Messages
	defaultStyle    string
	limits          upload.Limits
	previews        *preview.Store
	generateTimeout time.Duration
	onChange        func(Snapshot)
	journal         Journal
}

type Option func(*options)

func WithVariant(v backend.Variant) Option {
	return func(o *options) { o.variant = v }
}

func WithMessages(m Messages) Option {
	return func(o *options) { o.messages = &m }
}

func WithDefaultStyle(id string) Option {
	return func(o *options) { o.defaultStyle = id }
}

func WithLimits(l upload.Limits) Option {
	return func(o *options) { o.limits = l }
}

// WithPreviewStore shares a preview store between controllers, e.g. all
// chats of one bot. Without it every controller gets a private store.
func WithPreviewStore(s *preview.Store) Option {
	return func(o *options) { o.previews = s }
}

// WithGenerateTimeout bounds each generation request. Zero means no
// client-side deadline.
func WithGenerateTimeout(d time.Duration) Option {
	return func(o *options) { o.generateTimeout = d }
}

// WithOnChange registers fn to be called with a fresh snapshot after each
// state transition. fn must not call back into the controller synchronously.
func WithOnChange(fn func(Snapshot)) Option {
	return func(o *options) { o.onChange = fn }
}

func WithJournal(j Journal) Option {
	return func(o *options) { o.journal = j }
}
