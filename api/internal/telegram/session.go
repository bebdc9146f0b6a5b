package telegram

import (
	"context"
	"errors"
	"log"
	"sync/atomic"
	"time"

	"github.com/MohamedFakhry2007/imaging-report-generator/api/internal/controller"
)

type session struct {
	ctl      *controller.Controller
	lastSeen atomic.Int64 // unix nanos
}

func (s *session) touch() { s.lastSeen.Store(time.Now().UnixNano()) }

func (r *Router) existing(chatID int64) (*session, bool) {
	v, ok := r.sessions.Load(chatID)
	if !ok {
		return nil, false
	}
	s := v.(*session)
	s.touch()
	return s, true
}

// session returns the chat's session, mounting a new one (and loading its
// style catalog in the background) on first use.
func (r *Router) session(chatID int64) *session {
	if s, ok := r.existing(chatID); ok {
		return s
	}
	s := &session{ctl: r.NewController(chatID)}
	s.touch()
	if v, loaded := r.sessions.LoadOrStore(chatID, s); loaded {
		s.ctl.Close()
		return v.(*session)
	}

	if s.ctl.Variant().UsesStyles() {
		r.wg.Add(1)
		go func() {
			defer r.wg.Done()
			r.loadCatalog(chatID, s)
		}()
	}
	return s
}

func (r *Router) loadCatalog(chatID int64, s *session) {
	ctx, cancel := context.WithTimeout(r.baseCtx(), 30*time.Second)
	defer cancel()

	err := s.ctl.LoadStyleCatalog(ctx)
	var ce *controller.Error
	switch {
	case err == nil:
	case errors.Is(err, controller.ErrStale), errors.Is(err, controller.ErrClosed):
	case errors.As(err, &ce):
		r.send(chatID, "⚠️ "+ce.Message)
	default:
		log.Printf("telegram: catalog chat=%d: %v", chatID, err)
	}
}

// CloseIdle closes sessions not touched within ttl and returns how many
// were closed. Closing releases the session's preview.
func (r *Router) CloseIdle(ttl time.Duration) int {
	cutoff := time.Now().Add(-ttl).UnixNano()
	n := 0
	r.sessions.Range(func(k, v any) bool {
		s := v.(*session)
		if s.lastSeen.Load() < cutoff && !s.ctl.Snapshot().Busy {
			r.sessions.Delete(k)
			s.ctl.Close()
			n++
		}
		return true
	})
	return n
}

// RunJanitor calls CloseIdle periodically until ctx is cancelled.
func (r *Router) RunJanitor(ctx context.Context, ttl time.Duration) {
	every := ttl / 4
	if every < time.Minute {
		every = time.Minute
	}
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if n := r.CloseIdle(ttl); n > 0 {
				log.Printf("telegram: closed %d idle sessions", n)
			}
		}
	}
}

// CloseAll closes every session, e.g. on shutdown.
func (r *Router) CloseAll() {
	r.sessions.Range(func(k, v any) bool {
		r.sessions.Delete(k)
		v.(*session).ctl.Close()
		return true
	})
}
