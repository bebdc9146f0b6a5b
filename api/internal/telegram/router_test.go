package telegram

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MohamedFakhry2007/imaging-report-generator/api/internal/backend"
	"github.com/MohamedFakhry2007/imaging-report-generator/api/internal/backend/backendtest"
	"github.com/MohamedFakhry2007/imaging-report-generator/api/internal/controller"
	"github.com/MohamedFakhry2007/imaging-report-generator/api/internal/preview"
)

const chatID = int64(42)

var pngBytes = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDRdata")

type fakeBot struct {
	files string

	mu    sync.Mutex
	texts []string
	edits []tgbotapi.EditMessageReplyMarkupConfig
	acks  []string
}

func (b *fakeBot) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	switch m := c.(type) {
	case tgbotapi.MessageConfig:
		b.texts = append(b.texts, m.Text)
	case tgbotapi.EditMessageReplyMarkupConfig:
		b.edits = append(b.edits, m)
	}
	return tgbotapi.Message{MessageID: len(b.texts)}, nil
}

func (b *fakeBot) Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	if cb, ok := c.(tgbotapi.CallbackConfig); ok {
		b.mu.Lock()
		b.acks = append(b.acks, cb.Text)
		b.mu.Unlock()
	}
	return &tgbotapi.APIResponse{Ok: true}, nil
}

func (b *fakeBot) GetFileDirectURL(fileID string) (string, error) {
	return b.files + "/" + fileID, nil
}

func (b *fakeBot) last() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.texts) == 0 {
		return ""
	}
	return b.texts[len(b.texts)-1]
}

func (b *fakeBot) all() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.texts...)
}

type harness struct {
	bot      *fakeBot
	srv      *backendtest.Server
	previews *preview.Store
	r        *Router
}

func newHarness(t *testing.T, v backend.Variant) *harness {
	t.Helper()
	files := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		switch strings.TrimPrefix(req.URL.Path, "/") {
		case "scan":
			_, _ = w.Write(pngBytes)
		case "notes":
			_, _ = w.Write([]byte("just some text"))
		default:
			http.NotFound(w, req)
		}
	}))
	t.Cleanup(files.Close)

	h := &harness{
		bot:      &fakeBot{files: files.URL},
		srv:      backendtest.New(v),
		previews: preview.NewStore(16, time.Minute),
	}
	t.Cleanup(h.srv.Close)

	cl := backend.New(h.srv.URL, v, 5*time.Second)
	h.r = &Router{
		Bot:       h.bot,
		Variant:   v,
		PublicURL: "https://bot.example.com",
		NewController: func(int64) *controller.Controller {
			return controller.New(cl, controller.WithVariant(v), controller.WithPreviewStore(h.previews))
		},
	}
	return h
}

func command(text string) tgbotapi.Update {
	cmd := strings.Fields(text)[0]
	return tgbotapi.Update{Message: &tgbotapi.Message{
		Chat:     &tgbotapi.Chat{ID: chatID},
		Text:     text,
		Entities: []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: len(cmd)}},
	}}
}

func document(fileID, name string) tgbotapi.Update {
	return tgbotapi.Update{Message: &tgbotapi.Message{
		Chat:     &tgbotapi.Chat{ID: chatID},
		Document: &tgbotapi.Document{FileID: fileID, FileName: name},
	}}
}

func photo(fileID string) tgbotapi.Update {
	return tgbotapi.Update{Message: &tgbotapi.Message{
		Chat:  &tgbotapi.Chat{ID: chatID},
		Photo: []tgbotapi.PhotoSize{{FileID: "thumb"}, {FileID: fileID}},
	}}
}

func callback(data string, markup *tgbotapi.InlineKeyboardMarkup) tgbotapi.Update {
	return tgbotapi.Update{CallbackQuery: &tgbotapi.CallbackQuery{
		ID:   "cb-" + data,
		Data: data,
		Message: &tgbotapi.Message{
			MessageID:   7,
			Chat:        &tgbotapi.Chat{ID: chatID},
			ReplyMarkup: markup,
		},
	}}
}

func TestReportFlow(t *testing.T) {
	h := newHarness(t, backend.VariantReport)
	h.srv.SetGenerate(func(backendtest.Upload) backendtest.Reply {
		return backendtest.Reply{Body: map[string]string{"report": "Findings: normal."}}
	})

	h.r.HandleUpdate(command("/start"))
	assert.Contains(t, h.bot.last(), "preliminary report")

	h.r.HandleUpdate(document("scan", "chest.png"))
	assert.True(t, strings.HasPrefix(h.bot.last(), "📎 chest.png (image/png"), h.bot.last())
	assert.Equal(t, 1, h.previews.Live())

	h.r.HandleUpdate(callback(cbGenerate, nil))
	h.r.Wait()
	assert.Equal(t, "📝 Report:\n\nFindings: normal.", h.bot.last())

	ups := h.srv.Uploads()
	require.Len(t, ups, 1)
	assert.Equal(t, "chest.png", ups[0].Filename)
}

func TestGenerateErrorIsShown(t *testing.T) {
	h := newHarness(t, backend.VariantReport)
	h.srv.SetGenerate(func(backendtest.Upload) backendtest.Reply {
		return backendtest.Reply{Status: 422, Body: map[string]string{"detail": "Invalid file"}}
	})

	h.r.HandleUpdate(photo("scan"))
	h.r.HandleUpdate(callback(cbGenerate, nil))
	h.r.Wait()
	assert.Equal(t, "❌ Invalid file", h.bot.last())
}

func TestNonImageDocumentRejected(t *testing.T) {
	h := newHarness(t, backend.VariantReport)

	h.r.HandleUpdate(document("notes", "notes.txt"))
	assert.True(t, strings.HasPrefix(h.bot.last(), "❌ Please select an image file"), h.bot.last())
	assert.Zero(t, h.previews.Live())
}

func TestResetThenGenerateNeedsImage(t *testing.T) {
	h := newHarness(t, backend.VariantReport)

	h.r.HandleUpdate(photo("scan"))
	h.r.HandleUpdate(callback(cbReset, nil))
	assert.Zero(t, h.previews.Live())
	assert.Len(t, h.bot.edits, 1, "panel keyboard is removed")

	h.r.HandleUpdate(callback(cbGenerate, nil))
	h.r.Wait()
	assert.Equal(t, "❌ Please select an image first.", h.bot.last())
	assert.Zero(t, h.srv.GenerateCalls.Load())
}

func TestStyledStoryFlow(t *testing.T) {
	h := newHarness(t, backend.VariantStyledStory)
	h.srv.SetStyles(backendtest.Reply{Body: []backend.Style{{ID: "a", Name: "A"}, {ID: "b", Name: "B"}, {ID: "c", Name: "C"}}})
	h.srv.SetGenerate(func(backendtest.Upload) backendtest.Reply {
		return backendtest.Reply{Body: map[string]string{"story": "Once upon a time."}}
	})

	h.r.HandleUpdate(command("/start"))
	h.r.Wait()

	h.r.HandleUpdate(command("/styles"))
	assert.Equal(t, "🎨 Style: A", h.bot.last())

	h.r.HandleUpdate(callback(cbStyle+"b", nil))
	require.Len(t, h.bot.edits, 1)
	kb := h.bot.edits[0].ReplyMarkup
	require.NotNil(t, kb)
	require.Len(t, kb.InlineKeyboard, 2)
	assert.Equal(t, "✓ B", kb.InlineKeyboard[0][1].Text)
	assert.Equal(t, "🎨 B", h.bot.acks[len(h.bot.acks)-1])

	h.r.HandleUpdate(photo("scan"))
	assert.Contains(t, h.bot.last(), "🎨 Style: B")

	h.r.HandleUpdate(callback(cbGenerate, nil))
	h.r.Wait()
	assert.Equal(t, "📖 Story:\n\nOnce upon a time.", h.bot.last())
	require.Len(t, h.srv.Uploads(), 1)
	assert.Equal(t, "b", h.srv.Uploads()[0].StyleID)
}

func TestCatalogFailureReported(t *testing.T) {
	h := newHarness(t, backend.VariantStyledStory)
	h.srv.SetStyles(backendtest.Reply{Status: 500})

	h.r.HandleUpdate(command("/start"))
	h.r.Wait()
	assert.Contains(t, h.bot.all(), "⚠️ Could not load the list of styles. Please try again later.")

	h.r.HandleUpdate(command("/styles"))
	assert.Contains(t, h.bot.last(), "No styles are available")
}

func TestCloseIdleReleasesPreviews(t *testing.T) {
	h := newHarness(t, backend.VariantReport)
	h.r.HandleUpdate(photo("scan"))
	require.Equal(t, 1, h.previews.Live())

	assert.Equal(t, 0, h.r.CloseIdle(time.Hour))
	time.Sleep(5 * time.Millisecond)
	assert.Equal(t, 1, h.r.CloseIdle(time.Millisecond))
	assert.Zero(t, h.previews.Live())
}

func TestDispatchRunsInBackground(t *testing.T) {
	h := newHarness(t, backend.VariantReport)
	h.srv.SetGenerate(func(backendtest.Upload) backendtest.Reply {
		return backendtest.Reply{Body: map[string]string{"report": "Findings: normal."}}
	})

	h.r.Dispatch(document("scan", "chest.png"))
	h.r.Wait()
	assert.True(t, strings.HasPrefix(h.bot.last(), "📎 chest.png"), h.bot.last())

	h.r.Dispatch(callback(cbGenerate, nil))
	h.r.Wait()
	assert.Equal(t, "📝 Report:\n\nFindings: normal.", h.bot.last())
}

func TestSplitMessage(t *testing.T) {
	assert.Equal(t, []string{"short"}, splitMessage("short", 10))

	parts := splitMessage("aaaa\nbbbb\ncccc", 10)
	assert.Equal(t, []string{"aaaa\nbbbb\n", "cccc"}, parts)

	long := strings.Repeat("й", 25)
	parts = splitMessage(long, 10)
	require.Len(t, parts, 3)
	assert.Equal(t, long, strings.Join(parts, ""))
}
