package telegram

import (
	"errors"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/MohamedFakhry2007/imaging-report-generator/api/internal/controller"
)

const (
	cbGenerate = "gen"
	cbReset    = "reset"
	cbStyle    = "style:"
)

func (r *Router) handleCallback(cb tgbotapi.CallbackQuery) {
	if cb.Message == nil || cb.Message.Chat == nil {
		r.ack(cb.ID, "")
		return
	}
	cid := cb.Message.Chat.ID

	switch data := cb.Data; {
	case data == cbGenerate:
		r.onGenerate(cb, cid)
	case data == cbReset:
		r.onReset(cb, cid)
	case strings.HasPrefix(data, cbStyle):
		r.onStyle(cb, cid, strings.TrimPrefix(data, cbStyle))
	default:
		r.ack(cb.ID, "")
	}
}

func (r *Router) ack(id, text string) {
	_, _ = r.Bot.Request(tgbotapi.NewCallback(id, text))
}

func (r *Router) onGenerate(cb tgbotapi.CallbackQuery, cid int64) {
	s, ok := r.existing(cid)
	if !ok {
		r.ack(cb.ID, "Session expired, please send the image again.")
		return
	}
	if s.ctl.Snapshot().Busy {
		r.ack(cb.ID, "⏳ Already running…")
		return
	}
	r.ack(cb.ID, "")

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		r.runGenerate(cid, s)
	}()
}

func (r *Router) runGenerate(cid int64, s *session) {
	if s.ctl.Snapshot().CanGenerate() {
		_, _ = r.Bot.Request(tgbotapi.NewChatAction(cid, tgbotapi.ChatTyping))
	}
	snap, err := s.ctl.Generate(r.baseCtx())
	switch {
	case err == nil:
		r.SendResult(cid, snap.Text())
	case errors.Is(err, controller.ErrBusy):
		r.send(cid, "⏳ Already generating, please wait.")
	case errors.Is(err, controller.ErrStale), errors.Is(err, controller.ErrClosed):
		// the selection changed meanwhile; the result belongs to nothing on screen
	default:
		r.SendError(cid, err)
	}
}

func (r *Router) onReset(cb tgbotapi.CallbackQuery, cid int64) {
	if s, ok := r.existing(cid); ok {
		s.ctl.Reset()
	}
	edit := tgbotapi.NewEditMessageReplyMarkup(cid, cb.Message.MessageID, tgbotapi.InlineKeyboardMarkup{InlineKeyboard: [][]tgbotapi.InlineKeyboardButton{}})
	_, _ = r.Bot.Send(edit)
	r.ack(cb.ID, "🗑 Cleared")
	r.send(cid, "Selection cleared. Send a new image.")
}

func (r *Router) onStyle(cb tgbotapi.CallbackQuery, cid int64, id string) {
	s := r.session(cid)
	if err := s.ctl.SelectStyle(id); err != nil {
		r.ack(cb.ID, err.Error())
		return
	}
	snap := s.ctl.Snapshot()
	kb := styleKeyboard(snap)
	if hasButton(cb.Message.ReplyMarkup, cbGenerate) {
		kb = r.panelKeyboard(snap)
	}
	_, _ = r.Bot.Send(tgbotapi.NewEditMessageReplyMarkup(cid, cb.Message.MessageID, kb))
	r.ack(cb.ID, "🎨 "+snap.StyleName())
}

func hasButton(m *tgbotapi.InlineKeyboardMarkup, data string) bool {
	if m == nil {
		return false
	}
	for _, row := range m.InlineKeyboard {
		for _, b := range row {
			if b.CallbackData != nil && *b.CallbackData == data {
				return true
			}
		}
	}
	return false
}
