package main

import (
	"context"
	"errors"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"regexp"
	"strconv"
	"strings"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/MohamedFakhry2007/imaging-report-generator/api/internal/backend"
	"github.com/MohamedFakhry2007/imaging-report-generator/api/internal/config"
	"github.com/MohamedFakhry2007/imaging-report-generator/api/internal/controller"
	"github.com/MohamedFakhry2007/imaging-report-generator/api/internal/direct"
	"github.com/MohamedFakhry2007/imaging-report-generator/api/internal/httpserver"
	"github.com/MohamedFakhry2007/imaging-report-generator/api/internal/preview"
	"github.com/MohamedFakhry2007/imaging-report-generator/api/internal/store"
	"github.com/MohamedFakhry2007/imaging-report-generator/api/internal/telegram"
	"github.com/MohamedFakhry2007/imaging-report-generator/api/internal/upload"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if err := cfg.RequireTelegram(); err != nil {
		log.Fatal(err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// --- Generation backend ---
	var (
		gen    controller.Backend
		health func(ctx context.Context) error
		checks []httpserver.Check
	)
	if cfg.Direct() {
		gen = direct.New(cfg.GeminiAPIKey, cfg.GeminiModel, cfg.Variant)
		log.Printf("generation: direct gemini (%s), variant=%s", cfg.GeminiModel, cfg.Variant)
	} else {
		cl := backend.New(cfg.BackendURL, cfg.Variant, cfg.HTTPTimeout)
		gen = cl
		health = cl.Health
		log.Printf("generation: backend %s, variant=%s", cfg.BackendURL, cfg.Variant)
	}

	// --- Postgres (optional journal) ---
	var journal *store.JournalRepo
	if dsn := store.ResolveDSN(); dsn != "" {
		db, err := store.Open(ctx, dsn)
		if err != nil {
			log.Fatalf("db: %v", err)
		}
		defer db.Close()
		log.Printf("db connected: %s", store.SafeDSNSummary(dsn))

		journal = store.NewJournalRepo(db)
		if err := journal.EnsureSchema(ctx); err != nil {
			log.Fatalf("db schema: %v", err)
		}
		checks = append(checks, httpserver.Check{Name: "db", Fn: db.PingContext})
		go purgeJournal(ctx, journal)
	} else {
		log.Printf("db: not configured, generation journal disabled")
	}

	// --- Telegram bot ---
	bot, err := tgbotapi.NewBotAPI(cfg.TelegramBotToken)
	if err != nil {
		log.Fatal(err)
	}
	bot.Debug = false

	previews := preview.NewStore(cfg.PreviewMaxEntries, cfg.PreviewTTL)
	limits := upload.Limits{MaxBytes: cfg.MaxUploadBytes}

	r := &telegram.Router{
		Bot:         bot,
		Variant:     cfg.Variant,
		Health:      health,
		Journal:     journal,
		PublicURL:   cfg.PublicURL,
		MaxDownload: cfg.MaxUploadBytes,
		NewController: func(chatID int64) *controller.Controller {
			opts := []controller.Option{
				controller.WithVariant(cfg.Variant),
				controller.WithDefaultStyle(cfg.DefaultStyleID),
				controller.WithLimits(limits),
				controller.WithPreviewStore(previews),
				controller.WithGenerateTimeout(cfg.GenerateTimeout),
			}
			if journal != nil {
				opts = append(opts, controller.WithJournal(journal.ForChat(chatID)))
			}
			return controller.New(gen, opts...)
		},
	}
	r.Start(ctx)
	go r.RunJanitor(ctx, cfg.PreviewTTL)

	srv := httpserver.New(previews, checks...)
	addr := "0.0.0.0:" + cfg.Port

	// --- Choose mode: Webhook vs Polling ---
	if webhookURL := strings.TrimSpace(cfg.WebhookURL); webhookURL != "" {
		startWebhookMode(ctx, addr, bot, r, srv, webhookURL)
	} else {
		startPollingMode(ctx, addr, bot, r, srv)
	}

	r.Wait()
	r.CloseAll()
	log.Printf("bye")
}

// ---------------- Modes -----------------

func startWebhookMode(ctx context.Context, addr string, bot *tgbotapi.BotAPI, r *telegram.Router, srv *httpserver.Server, baseURL string) {
	path := "/webhook/" + shortHash(bot.Token)
	public := strings.TrimRight(baseURL, "/") + path

	wh, err := tgbotapi.NewWebhook(public)
	if err != nil {
		log.Fatal(err)
	}
	wh.DropPendingUpdates = true
	if _, err := bot.Request(wh); err != nil {
		log.Fatal(err)
	}

	srv.Handle(path, http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		upd, err := bot.HandleUpdate(req)
		if err != nil {
			log.Printf("webhook: %v", err)
			http.Error(w, "bad update", http.StatusBadRequest)
			return
		}
		// ack first; slow handling would make Telegram redeliver
		w.WriteHeader(http.StatusOK)
		r.Dispatch(*upd)
	}))

	log.Printf("webhook listening on %s%s", addr, path)
	if err := srv.ListenAndServe(ctx, addr); err != nil {
		log.Fatal(err)
	}
}

func startPollingMode(ctx context.Context, addr string, bot *tgbotapi.BotAPI, r *telegram.Router, srv *httpserver.Server) {
	// health and previews are served in polling mode too
	go func() {
		if err := srv.ListenAndServe(ctx, addr); err != nil {
			log.Fatal(err)
		}
	}()

	runPolling(ctx, bot, r.HandleUpdate)
}

// ---------------- Polling loop -----------------

var reRetryAfter = regexp.MustCompile(`(?i)retry after\s+(\d+)`)

func retryDelayFromError(err error) time.Duration {
	if err == nil {
		return 0
	}
	s := strings.ToLower(err.Error())
	if strings.Contains(s, "too many requests") {
		if m := reRetryAfter.FindStringSubmatch(s); len(m) == 2 {
			if n, _ := strconv.Atoi(m[1]); n > 0 {
				return time.Duration(n) * time.Second
			}
		}
		return 3 * time.Second
	}
	var ne net.Error
	if errors.As(err, &ne) {
		if ne.Timeout() {
			return 2 * time.Second
		}
	}
	return 1 * time.Second
}

func runPolling(ctx context.Context, bot *tgbotapi.BotAPI, handle func(tgbotapi.Update)) {
	offset := 0
	baseDelay := 1 * time.Second
	maxDelay := 15 * time.Second

	for {
		select {
		case <-ctx.Done():
			log.Printf("polling: context cancelled")
			return
		default:
		}

		u := tgbotapi.NewUpdate(offset)
		u.Timeout = 30

		updates, err := bot.GetUpdates(u)
		if err != nil {
			d := min(max(retryDelayFromError(err), baseDelay), maxDelay)
			log.Printf("polling error: %v; retry in %v", err, d)
			sleep(ctx, d)
			continue
		}

		for _, upd := range updates {
			if upd.UpdateID >= offset {
				offset = upd.UpdateID + 1
			}
			handle(upd)
		}

		if len(updates) == 0 {
			sleep(ctx, 200*time.Millisecond)
		}
	}
}

func sleep(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

func purgeJournal(ctx context.Context, j *store.JournalRepo) {
	t := time.NewTicker(24 * time.Hour)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			pctx, cancel := context.WithTimeout(ctx, time.Minute)
			n, err := j.PurgeOlderThan(pctx, 90*24*time.Hour)
			cancel()
			if err != nil {
				log.Printf("journal purge: %v", err)
			} else if n > 0 {
				log.Printf("journal purge: %d rows", n)
			}
		}
	}
}

// ---------------- Helpers -----------------

func shortHash(s string) string {
	// FNV-1a; stable per token, not a secret
	h := uint64(1469598103934665603)
	const prime = 1099511628211
	for i := 0; i < len(s); i++ {
		h ^= uint64(s[i])
		h *= prime
	}
	const hexdigits = "0123456789abcdef"
	out := make([]byte, 16)
	for i := 15; i >= 0; i-- {
		out[i] = hexdigits[h&0xF]
		h >>= 4
	}
	return string(out)
}
