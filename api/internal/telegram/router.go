package telegram

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/MohamedFakhry2007/imaging-report-generator/api/internal/backend"
	"github.com/MohamedFakhry2007/imaging-report-generator/api/internal/controller"
	"github.com/MohamedFakhry2007/imaging-report-generator/api/internal/store"
)

// Bot is the part of *tgbotapi.BotAPI the router uses.
type Bot interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetFileDirectURL(fileID string) (string, error)
}

type Router struct {
	Bot     Bot
	Variant backend.Variant

	// NewController builds the controller for a new chat session.
	NewController func(chatID int64) *controller.Controller
	// Health backs /health; nil reports OK.
	Health func(ctx context.Context) error
	// Journal backs /history; optional.
	Journal *store.JournalRepo
	// PublicURL, when set, is where httpserver serves previews.
	PublicURL string
	// MaxDownload caps how much of an incoming file is read.
	MaxDownload int64
	HTTPClient  *http.Client

	ctx      context.Context
	sessions sync.Map // chatID -> *session
	wg       sync.WaitGroup
}

// Start binds the router to ctx: background work started by updates
// uses it and stops when it is cancelled.
func (r *Router) Start(ctx context.Context) { r.ctx = ctx }

func (r *Router) baseCtx() context.Context {
	if r.ctx != nil {
		return r.ctx
	}
	return context.Background()
}

// Wait blocks until background generations and catalog loads finish.
func (r *Router) Wait() { r.wg.Wait() }

// Dispatch handles upd in the background, so a webhook request can be
// answered before slow work such as a file download. Wait covers it.
func (r *Router) Dispatch(upd tgbotapi.Update) {
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		r.HandleUpdate(upd)
	}()
}

func (r *Router) HandleUpdate(upd tgbotapi.Update) {
	if upd.CallbackQuery != nil {
		r.handleCallback(*upd.CallbackQuery)
		return
	}
	if upd.Message == nil || upd.Message.Chat == nil {
		return
	}
	msg := upd.Message
	cid := msg.Chat.ID

	switch {
	case msg.IsCommand():
		r.HandleCommand(*msg)
	case len(msg.Photo) > 0:
		r.acceptPhoto(*msg)
	case msg.Document != nil:
		r.acceptDocument(*msg)
	case strings.TrimSpace(msg.Text) != "":
		r.send(cid, r.hintText())
	}
}

func (r *Router) HandleCommand(msg tgbotapi.Message) {
	cid := msg.Chat.ID
	switch msg.Command() {
	case "start":
		r.session(cid)
		r.send(cid, r.welcomeText())
	case "reset":
		if s, ok := r.existing(cid); ok {
			s.ctl.Reset()
		}
		r.send(cid, "🗑 Selection cleared. Send a new image.")
	case "styles":
		r.showStyles(cid)
	case "health":
		r.health(cid)
	case "history":
		r.history(cid)
	case "help":
		r.send(cid, r.welcomeText())
	default:
		r.send(cid, "Unknown command. Try /help")
	}
}

func (r *Router) showStyles(cid int64) {
	if !r.Variant.UsesStyles() {
		r.send(cid, "This bot has no styles to choose from.")
		return
	}
	s := r.session(cid)
	snap := s.ctl.Snapshot()
	if !snap.CatalogLoaded {
		r.send(cid, "⏳ Styles are still loading, try again in a moment.")
		return
	}
	if len(snap.Catalog) == 0 {
		r.send(cid, "No styles are available right now, so stories cannot be generated.")
		return
	}
	m := tgbotapi.NewMessage(cid, "🎨 Style: "+snap.StyleName())
	m.ReplyMarkup = styleKeyboard(snap)
	_, _ = r.Bot.Send(m)
}

func (r *Router) health(cid int64) {
	if r.Health == nil {
		r.send(cid, "✅ OK")
		return
	}
	ctx, cancel := context.WithTimeout(r.baseCtx(), 5*time.Second)
	defer cancel()
	if err := r.Health(ctx); err != nil {
		r.send(cid, "❌ Backend is not reachable: "+err.Error())
		return
	}
	r.send(cid, "✅ OK")
}

func (r *Router) history(cid int64) {
	if r.Journal == nil {
		r.send(cid, "History is not enabled.")
		return
	}
	ctx, cancel := context.WithTimeout(r.baseCtx(), 5*time.Second)
	defer cancel()
	rows, err := r.Journal.Recent(ctx, cid, 10)
	if err != nil {
		log.Printf("telegram: history chat=%d: %v", cid, err)
		r.SendError(cid, errors.New("could not read history"))
		return
	}
	r.send(cid, historyText(rows, time.Now()))
}

func (r *Router) send(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := r.Bot.Send(msg); err != nil {
		log.Printf("telegram: send chat=%d: %v", chatID, err)
	}
}

// SendResult delivers generated text, split to fit Telegram's limit.
func (r *Router) SendResult(chatID int64, text string) {
	header := "📝 Report:\n\n"
	if r.Variant != backend.VariantReport {
		header = "📖 Story:\n\n"
	}
	for i, chunk := range splitMessage(text, maxMessageRunes-len([]rune(header))) {
		if i == 0 {
			chunk = header + chunk
		}
		r.send(chatID, chunk)
	}
}

func (r *Router) SendError(chatID int64, err error) {
	r.send(chatID, fmt.Sprintf("❌ %v", err))
}
