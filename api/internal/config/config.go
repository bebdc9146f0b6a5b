package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/joho/godotenv"

	"github.com/MohamedFakhry2007/imaging-report-generator/api/internal/backend"
)

const DefaultBackendURL = "http://localhost:8000"

type Config struct {
	Port string

	BackendURL string
	// BackendSet is false when BACKEND_URL was not given and BackendURL
	// holds the default.
	BackendSet  bool
	Variant     backend.Variant
	HTTPTimeout time.Duration

	DefaultStyleID    string
	MaxUploadBytes    int64
	PreviewTTL        time.Duration
	PreviewMaxEntries int
	GenerateTimeout   time.Duration

	TelegramBotToken string
	WebhookURL       string
	PublicURL        string

	GeminiAPIKey string
	GeminiModel  string
}

// Direct reports whether generation should call Gemini in-process.
func (c *Config) Direct() bool {
	return !c.BackendSet && c.GeminiAPIKey != ""
}

func getEnv(k, def string) string {
	if v := strings.TrimSpace(os.Getenv(k)); v != "" {
		return v
	}
	return def
}

func durationEnv(k string, def time.Duration) (time.Duration, error) {
	v := getEnv(k, "")
	if v == "" {
		return def, nil
	}
	if n, err := strconv.Atoi(v); err == nil {
		return time.Duration(n) * time.Second, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", k, err)
	}
	return d, nil
}

// Load reads ENV_FILE (default .env) if it exists, then the environment.
// Variables already set in the environment win over the file.
func Load() (*Config, error) {
	envFile := getEnv("ENV_FILE", ".env")
	if err := godotenv.Load(envFile); err != nil && !os.IsNotExist(err) {
		log.Printf("config: %s: %v", envFile, err)
	}

	c := &Config{
		Port:             getEnv("PORT", "8080"),
		BackendURL:       strings.TrimRight(getEnv("BACKEND_URL", DefaultBackendURL), "/"),
		BackendSet:       getEnv("BACKEND_URL", "") != "",
		DefaultStyleID:   getEnv("DEFAULT_STYLE_ID", "general_modern_standard"),
		TelegramBotToken: getEnv("TELEGRAM_BOT_TOKEN", ""),
		WebhookURL:       getEnv("WEBHOOK_URL", ""),
		PublicURL:        strings.TrimRight(getEnv("PUBLIC_URL", ""), "/"),
		GeminiAPIKey:     getEnv("GEMINI_API_KEY", getEnv("GOOGLE_API_KEY", "")),
		GeminiModel:      getEnv("GEMINI_MODEL", "gemini-2.0-flash"),
	}

	var err error
	if c.Variant, err = backend.ParseVariant(getEnv("VARIANT", "")); err != nil {
		return nil, fmt.Errorf("VARIANT: %w", err)
	}

	maxUpload := getEnv("MAX_UPLOAD_BYTES", "10MiB")
	n, err := humanize.ParseBytes(maxUpload)
	if err != nil || n == 0 {
		return nil, fmt.Errorf("MAX_UPLOAD_BYTES: bad size %q", maxUpload)
	}
	c.MaxUploadBytes = int64(n)

	if c.PreviewMaxEntries, err = strconv.Atoi(getEnv("PREVIEW_MAX_ENTRIES", "1024")); err != nil {
		return nil, fmt.Errorf("PREVIEW_MAX_ENTRIES: %w", err)
	}
	if c.PreviewTTL, err = durationEnv("PREVIEW_TTL", 30*time.Minute); err != nil {
		return nil, err
	}
	if c.GenerateTimeout, err = durationEnv("GENERATE_TIMEOUT", 0); err != nil {
		return nil, err
	}
	if c.HTTPTimeout, err = durationEnv("HTTP_TIMEOUT", 60*time.Second); err != nil {
		return nil, err
	}
	return c, nil
}

// RequireTelegram checks the settings the bot cannot start without.
func (c *Config) RequireTelegram() error {
	if c.TelegramBotToken == "" {
		return fmt.Errorf("missing required env TELEGRAM_BOT_TOKEN")
	}
	return nil
}
