package telegram

import (
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/MohamedFakhry2007/imaging-report-generator/api/internal/backend"
	"github.com/MohamedFakhry2007/imaging-report-generator/api/internal/controller"
	"github.com/MohamedFakhry2007/imaging-report-generator/api/internal/store"
)

// Telegram allows 4096 characters per message.
const maxMessageRunes = 4000

func (r *Router) welcomeText() string {
	var b strings.Builder
	if r.Variant == backend.VariantReport {
		b.WriteString("Send a medical image (X-ray, CT slice, MRI) as a photo or a file and I will draft a preliminary report.\n")
		b.WriteString("⚠️ Research prototype, not for clinical diagnosis.\n")
	} else {
		b.WriteString("Send any picture as a photo or a file and I will write a story inspired by it.\n")
	}
	b.WriteString("\nCommands: /reset, /health")
	if r.Variant.UsesStyles() {
		b.WriteString(", /styles")
	}
	if r.Journal != nil {
		b.WriteString(", /history")
	}
	return b.String()
}

func (r *Router) hintText() string {
	return "Send an image as a photo or a file (JPEG, PNG, WebP…)."
}

func (r *Router) sendPanel(cid int64, s *session) {
	snap := s.ctl.Snapshot()
	m := tgbotapi.NewMessage(cid, panelText(snap))
	m.ReplyMarkup = r.panelKeyboard(snap)
	_, _ = r.Bot.Send(m)
}

func panelText(s controller.Snapshot) string {
	var b strings.Builder
	b.WriteString("📎 ")
	b.WriteString(s.File.Describe())
	if s.Variant.UsesStyles() {
		if name := s.StyleName(); name != "" {
			b.WriteString("\n🎨 Style: " + name)
		} else if s.CatalogLoaded {
			b.WriteString("\n⚠️ No style available")
		}
	}
	return b.String()
}

func (r *Router) panelKeyboard(s controller.Snapshot) tgbotapi.InlineKeyboardMarkup {
	label := "▶️ Generate report"
	if s.Variant != backend.VariantReport {
		label = "▶️ Generate story"
	}
	top := []tgbotapi.InlineKeyboardButton{
		tgbotapi.NewInlineKeyboardButtonData(label, cbGenerate),
		tgbotapi.NewInlineKeyboardButtonData("🗑 Remove", cbReset),
	}
	rows := [][]tgbotapi.InlineKeyboardButton{top}
	if r.PublicURL != "" && !s.Preview.IsZero() {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonURL("🖼 Preview", r.PublicURL+s.Preview.Path()),
		))
	}
	rows = append(rows, styleRows(s)...)
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func styleKeyboard(s controller.Snapshot) tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(styleRows(s)...)
}

// styleRows lays the catalog out two per row, marking the selected style.
func styleRows(s controller.Snapshot) [][]tgbotapi.InlineKeyboardButton {
	if !s.Variant.UsesStyles() {
		return nil
	}
	var rows [][]tgbotapi.InlineKeyboardButton
	var row []tgbotapi.InlineKeyboardButton
	for _, st := range s.Catalog {
		label := st.Name
		if st.ID == s.StyleID {
			label = "✓ " + label
		}
		row = append(row, tgbotapi.NewInlineKeyboardButtonData(label, cbStyle+st.ID))
		if len(row) == 2 {
			rows = append(rows, row)
			row = nil
		}
	}
	if len(row) > 0 {
		rows = append(rows, row)
	}
	return rows
}

// splitMessage cuts text into chunks of at most n runes, preferring to
// break at a newline.
func splitMessage(text string, n int) []string {
	runes := []rune(text)
	if len(runes) <= n {
		return []string{text}
	}
	var out []string
	for len(runes) > n {
		cut := n
		for i := n; i > n/2; i-- {
			if runes[i-1] == '\n' {
				cut = i
				break
			}
		}
		out = append(out, string(runes[:cut]))
		runes = runes[cut:]
	}
	if len(runes) > 0 {
		out = append(out, string(runes))
	}
	return out
}

func historyText(rows []store.JournalRow, now time.Time) string {
	if len(rows) == 0 {
		return "No generations yet."
	}
	var b strings.Builder
	b.WriteString("🕘 Recent generations:\n")
	for _, row := range rows {
		e := row.Entry
		mark := "✅"
		if e.Outcome != "success" {
			mark = "❌"
		}
		fmt.Fprintf(&b, "\n%s %s · %s · %s", mark, humanize.RelTime(row.CreatedAt, now, "ago", "from now"),
			e.FileName, humanize.IBytes(uint64(e.FileSize)))
		if e.StyleID != "" {
			b.WriteString(" · " + e.StyleID)
		}
		if e.Outcome != "success" && e.Message != "" {
			b.WriteString("\n   " + e.Message)
		}
	}
	return b.String()
}
