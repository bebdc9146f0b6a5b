// Package controller implements the upload-and-render workflow: pick an
// image, optionally pick a style, upload it and show the generated text.
//
// A Controller owns all view state. Surfaces (Telegram, terminal) call its
// operations from event handlers and render Snapshots; network calls are
// made outside the internal lock so a slow backend never blocks reads.
package controller

import (
	"context"
	"errors"
	"fmt"
	"log"
	"slices"
	"sync"
	"time"

	"github.com/MohamedFakhry2007/imaging-report-generator/api/internal/backend"
	"github.com/MohamedFakhry2007/imaging-report-generator/api/internal/preview"
	"github.com/MohamedFakhry2007/imaging-report-generator/api/internal/upload"
)

// Backend is the generation service, either the HTTP backend or the
// direct Gemini engine.
type Backend interface {
	ListStyles(ctx context.Context) ([]backend.Style, error)
	Generate(ctx context.Context, in backend.GenerateRequest) (string, error)
}

var errInterrupted = errors.New("generation interrupted")

type Controller struct {
	be   Backend
	opts options
	msgs Messages

	mu            sync.Mutex
	status        Status
	file          upload.File
	slot          *preview.Slot
	catalog       []backend.Style
	catalogLoaded bool
	styleID       string
	inputVersion  uint64
	closed        bool
	// inFlight is set while a backend call is running, even after Reset
	// or a new selection moved status away from Loading.
	inFlight bool

	// epoch changes whenever the selection is discarded; a generation
	// settles only if the epoch it started in is still current.
	epoch uint64
	// catalogSeq identifies the latest catalog load.
	catalogSeq uint64
}

func New(be Backend, opts ...Option) *Controller {
	o := options{
		variant:      backend.VariantReport,
		defaultStyle: DefaultStyleID,
	}
	for _, fn := range opts {
		fn(&o)
	}
	if o.previews == nil {
		o.previews = preview.NewStore(0, 0)
	}
	msgs := DefaultMessages(o.variant)
	if o.messages != nil {
		msgs = *o.messages
	}
	return &Controller{
		be:     be,
		opts:   o,
		msgs:   msgs,
		status: Idle{},
		slot:   o.previews.NewSlot(),
	}
}

func (c *Controller) Variant() backend.Variant { return c.opts.variant }

func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

func (c *Controller) snapshotLocked() Snapshot {
	return Snapshot{
		Variant:       c.opts.variant,
		Status:        c.status,
		File:          c.file,
		Preview:       c.slot.Current(),
		Catalog:       slices.Clone(c.catalog),
		CatalogLoaded: c.catalogLoaded,
		StyleID:       c.styleID,
		InputVersion:  c.inputVersion,
		Busy:          c.inFlight,
	}
}

// unlockAndNotify releases the lock and reports the new state.
func (c *Controller) unlockAndNotify() Snapshot {
	snap := c.snapshotLocked()
	c.mu.Unlock()
	if c.opts.onChange != nil {
		c.opts.onChange(snap)
	}
	return snap
}

// LoadStyleCatalog fetches the style catalog and selects the default
// style. Variants without styles return immediately. It is meant to be
// run in the background when a surface mounts.
func (c *Controller) LoadStyleCatalog(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	if !c.opts.variant.UsesStyles() {
		c.mu.Unlock()
		return nil
	}
	c.catalogSeq++
	seq := c.catalogSeq
	c.mu.Unlock()

	styles, err := c.be.ListStyles(ctx)

	c.mu.Lock()
	if c.closed || seq != c.catalogSeq {
		c.mu.Unlock()
		return ErrStale
	}
	c.catalogLoaded = true
	if err != nil {
		c.catalog = nil
		c.styleID = ""
		e := &Error{Kind: KindCatalog, Message: c.msgs.CatalogFailed, Err: err}
		var he *backend.HTTPError
		if errors.As(err, &he) {
			e.StatusCode = he.StatusCode
		}
		if catalogMayReplace(c.status) {
			c.status = Failure{Err: e}
		}
		c.unlockAndNotify()
		log.Printf("controller: style catalog: %v", err)
		return e
	}

	c.catalog = slices.Clone(styles)
	c.styleID = pickStyle(styles, c.opts.defaultStyle)
	if f, ok := c.status.(Failure); ok && f.Err.Kind == KindCatalog {
		c.status = Idle{}
	}
	c.unlockAndNotify()
	return nil
}

// catalogMayReplace reports whether a catalog error may take over the
// status. A result or another error already on screen is kept.
func catalogMayReplace(st Status) bool {
	switch st := st.(type) {
	case Idle:
		return true
	case Failure:
		return st.Err.Kind == KindCatalog
	}
	return false
}

// pickStyle prefers def, then the first entry; empty for an empty catalog.
func pickStyle(styles []backend.Style, def string) string {
	for _, s := range styles {
		if s.ID == def {
			return def
		}
	}
	if len(styles) > 0 {
		return styles[0].ID
	}
	return ""
}

// SelectStyle chooses a catalog entry. Unknown ids leave the state
// unchanged.
func (c *Controller) SelectStyle(id string) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	if !slices.ContainsFunc(c.catalog, func(s backend.Style) bool { return s.ID == id }) {
		c.mu.Unlock()
		return &Error{Kind: KindPrecondition, Message: c.msgs.UnknownStyle}
	}
	if c.styleID == id {
		c.mu.Unlock()
		return nil
	}
	c.styleID = id
	c.unlockAndNotify()
	return nil
}

// SelectFile makes f the current selection. A file that fails validation
// is not selected: the previous selection stays and the error is shown.
func (c *Controller) SelectFile(f upload.File) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	if err := c.opts.limits.Check(f); err != nil {
		e := &Error{Kind: KindValidation, Message: c.validationMessage(err), Err: err}
		if _, loading := c.status.(Loading); loading {
			c.mu.Unlock()
			return e
		}
		c.status = Failure{Err: e}
		c.unlockAndNotify()
		return e
	}

	c.epoch++
	c.slot.Acquire(f)
	c.file = f
	c.status = Idle{}
	c.unlockAndNotify()
	return nil
}

func (c *Controller) validationMessage(err error) string {
	switch {
	case errors.Is(err, upload.ErrEmpty):
		return c.msgs.EmptyFile
	case errors.Is(err, upload.ErrTooLarge):
		return fmt.Sprintf(c.msgs.TooLarge, c.opts.limits.MaxHuman())
	default:
		return c.msgs.NotImage
	}
}

// Generate uploads the selected file and waits for the result. While a
// generation is running it returns ErrBusy without touching the network.
// A failed generation returns the *Error also found in the snapshot.
func (c *Controller) Generate(ctx context.Context) (snap Snapshot, err error) {
	c.mu.Lock()
	if c.closed {
		snap = c.snapshotLocked()
		c.mu.Unlock()
		return snap, ErrClosed
	}
	if c.inFlight {
		snap = c.snapshotLocked()
		c.mu.Unlock()
		return snap, ErrBusy
	}
	if e := c.preconditionLocked(); e != nil {
		c.status = Failure{Err: e}
		return c.unlockAndNotify(), e
	}

	req := backend.GenerateRequest{File: c.file}
	if c.opts.variant.UsesStyles() {
		req.StyleID = c.styleID
	}
	epoch := c.epoch
	c.inFlight = true
	c.status = Loading{}
	c.unlockAndNotify()

	start := time.Now()
	text, callErr := "", errInterrupted
	defer func() {
		snap, err = c.settle(epoch, req, text, callErr, time.Since(start))
	}()

	if c.opts.generateTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.opts.generateTimeout)
		defer cancel()
	}
	text, callErr = c.be.Generate(ctx, req)
	return snap, err
}

func (c *Controller) preconditionLocked() *Error {
	if len(c.file.Data) == 0 {
		return &Error{Kind: KindPrecondition, Message: c.msgs.NoFile}
	}
	if c.opts.variant.UsesStyles() && c.styleID == "" {
		return &Error{Kind: KindPrecondition, Message: c.msgs.NoStyle}
	}
	return nil
}

// settle moves a Loading controller to its resting state. It runs on
// every exit path of Generate, panics included.
func (c *Controller) settle(epoch uint64, req backend.GenerateRequest, text string, callErr error, took time.Duration) (Snapshot, error) {
	c.mu.Lock()
	c.inFlight = false
	if c.closed {
		snap := c.snapshotLocked()
		c.mu.Unlock()
		return snap, ErrStale
	}
	if epoch != c.epoch {
		// the result is dropped, but generating is possible again
		return c.unlockAndNotify(), ErrStale
	}

	var e *Error
	if callErr == nil {
		c.status = Success{Text: text}
	} else {
		e = c.classify(callErr)
		c.status = Failure{Err: e}
	}
	snap := c.unlockAndNotify()

	c.record(req, text, e, took)
	if e != nil {
		log.Printf("controller: generate %s: %v", c.opts.variant, callErr)
		return snap, e
	}
	return snap, nil
}

func (c *Controller) classify(err error) *Error {
	var he *backend.HTTPError
	if errors.As(err, &he) {
		msg := he.Detail
		if msg == "" {
			msg = c.msgs.GenerationFailed
		}
		return &Error{Kind: KindGenerationHTTP, Message: msg, StatusCode: he.StatusCode, Err: err}
	}
	msg := c.msgs.Transport
	if c.opts.generateTimeout > 0 && errors.Is(err, context.DeadlineExceeded) {
		msg = c.msgs.Timeout
	}
	return &Error{Kind: KindGenerationTransport, Message: msg, Err: err}
}

func (c *Controller) record(req backend.GenerateRequest, text string, e *Error, took time.Duration) {
	if c.opts.journal == nil {
		return
	}
	entry := JournalEntry{
		At:         time.Now().UTC(),
		Variant:    c.opts.variant,
		StyleID:    req.StyleID,
		FileName:   req.File.Name,
		FileSHA256: req.File.SHA256(),
		FileSize:   req.File.Size(),
		Outcome:    "success",
		TextLength: len([]rune(text)),
		Duration:   took,
	}
	if e != nil {
		entry.Outcome = e.Kind.String()
		entry.Message = e.Message
		entry.StatusCode = e.StatusCode
		entry.TextLength = 0
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := c.opts.journal.Record(ctx, entry); err != nil {
		log.Printf("controller: journal: %v", err)
	}
}

// Reset clears the selection, the preview and any result, and bumps
// InputVersion. An in-flight generation is discarded when it settles and
// keeps Generate busy until then.
func (c *Controller) Reset() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.resetLocked()
	c.unlockAndNotify()
}

func (c *Controller) resetLocked() {
	c.epoch++
	c.slot.Release()
	c.file = upload.File{}
	c.status = Idle{}
	c.inputVersion++
}

// Close resets the controller and detaches it: later completions are
// dropped and every operation returns ErrClosed. Close is idempotent.
func (c *Controller) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.resetLocked()
	c.closed = true
	c.unlockAndNotify()
}
