package main

import (
	"context"
	"flag"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/MohamedFakhry2007/imaging-report-generator/api/internal/backend"
	"github.com/MohamedFakhry2007/imaging-report-generator/api/internal/config"
	"github.com/MohamedFakhry2007/imaging-report-generator/api/internal/controller"
	"github.com/MohamedFakhry2007/imaging-report-generator/api/internal/direct"
	"github.com/MohamedFakhry2007/imaging-report-generator/api/internal/preview"
	"github.com/MohamedFakhry2007/imaging-report-generator/api/internal/tui"
	"github.com/MohamedFakhry2007/imaging-report-generator/api/internal/upload"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	variant := flag.String("variant", string(cfg.Variant), "report, story or styled-story")
	backendURL := flag.String("backend", cfg.BackendURL, "backend base URL")
	logFile := flag.String("log", "", "write logs to this file")
	flag.Parse()

	v, err := backend.ParseVariant(*variant)
	if err != nil {
		log.Fatal(err)
	}

	if *logFile != "" {
		f, err := tea.LogToFile(*logFile, "tui")
		if err != nil {
			log.Fatalf("log: %v", err)
		}
		defer f.Close()
	} else {
		log.SetOutput(io.Discard)
	}

	var gen controller.Backend
	if cfg.Direct() && *backendURL == cfg.BackendURL {
		gen = direct.New(cfg.GeminiAPIKey, cfg.GeminiModel, v)
	} else {
		gen = backend.New(*backendURL, v, cfg.HTTPTimeout)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	changes := make(chan controller.Snapshot, 8)
	ctl := controller.New(gen,
		controller.WithVariant(v),
		controller.WithDefaultStyle(cfg.DefaultStyleID),
		controller.WithLimits(upload.Limits{MaxBytes: cfg.MaxUploadBytes}),
		controller.WithPreviewStore(preview.NewStore(cfg.PreviewMaxEntries, cfg.PreviewTTL)),
		controller.WithGenerateTimeout(cfg.GenerateTimeout),
		controller.WithOnChange(tui.Notify(changes)),
	)
	defer ctl.Close()

	p := tea.NewProgram(tui.New(ctx, ctl, changes), tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil {
		log.Fatal(err)
	}
}
