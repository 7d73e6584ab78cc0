// Command hesitate records speech from the microphone, transcribes it and
// writes the transcript together with the hesitation markers it contains.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"math"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/MrWong99/hesitate/internal/artifact"
	"github.com/MrWong99/hesitate/internal/config"
	"github.com/MrWong99/hesitate/internal/hesitation"
	"github.com/MrWong99/hesitate/internal/observe"
	"github.com/MrWong99/hesitate/internal/pipeline"
	"github.com/MrWong99/hesitate/internal/recorder"
	"github.com/MrWong99/hesitate/internal/sink"
	"github.com/MrWong99/hesitate/internal/transcription"
	"github.com/MrWong99/hesitate/pkg/audio"
	"github.com/MrWong99/hesitate/pkg/provider/stt"
)

// Exit codes.
const (
	exitOK     = 0
	exitFailed = 1
	exitUsage  = 2
)

func main() {
	os.Exit(run())
}

func run() int {
	// ── CLI flags ──────────────────────────────────────────────────────────────
	seconds := flag.Float64("seconds", 0, "recording length in seconds; 0 records until Ctrl+C")
	prepTime := flag.Int("prep-time", 0, "countdown in seconds before recording starts")
	configPath := flag.String("config", "", "path to a YAML configuration file (optional)")
	model := flag.String("model", "", "transcription model selector, e.g. base or whisper-1")
	outputDir := flag.String("output-dir", "", "directory for audio and transcript artifacts")
	lexiconPath := flag.String("lexicon", "", "YAML file replacing the built-in hesitation lexicon")
	logLevel := flag.String("log-level", "", "log level: debug, info, warn, error")
	lint := flag.Bool("lint-lexicon", false, "report duplicate and sound-alike markers, then exit")
	flag.Parse()

	// ── Load configuration ────────────────────────────────────────────────────
	if err := config.LoadDotEnv(); err != nil {
		fmt.Fprintf(os.Stderr, "hesitate: %v\n", err)
		return exitUsage
	}
	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "hesitate: %v\n", err)
		return exitUsage
	}
	applyFlags(cfg, *model, *outputDir, *lexiconPath, *logLevel)
	if err := config.Validate(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "hesitate: invalid configuration:\n%v\n", err)
		return exitUsage
	}
	duration, err := captureDuration(*seconds)
	if err != nil {
		fmt.Fprintf(os.Stderr, "hesitate: %v\n", err)
		return exitUsage
	}

	// ── Logger ────────────────────────────────────────────────────────────────
	slog.SetDefault(newLogger(cfg.Log.Level))

	// ── Lexicon ───────────────────────────────────────────────────────────────
	lex, err := loadLexicon(cfg.Hesitation.LexiconFile)
	if err != nil {
		slog.Error("failed to load lexicon", "err", err)
		return exitUsage
	}
	if *lint {
		lintLexicon(os.Stdout, lex)
		return exitOK
	}

	// ── Telemetry ─────────────────────────────────────────────────────────────
	promReg := prometheus.NewRegistry()
	shutdownTelemetry, err := observe.InitProvider(context.Background(), observe.ProviderConfig{
		ServiceName: cfg.Telemetry.ServiceName,
		Engine:      cfg.Transcription.Name,
		Model:       cfg.Transcription.Model,
		Registerer:  promReg,
	})
	if err != nil {
		slog.Error("failed to initialise telemetry", "err", err)
		return exitFailed
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTelemetry(ctx); err != nil {
			slog.Warn("telemetry shutdown error", "err", err)
		}
	}()
	metrics := observe.DefaultMetrics()

	if cfg.Telemetry.MetricsAddr != "" {
		srv, err := observe.ServeMetrics(cfg.Telemetry.MetricsAddr, promReg)
		if err != nil {
			slog.Error("failed to start metrics endpoint", "err", err)
			return exitFailed
		}
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(ctx)
		}()
	}

	// ── Provider registry ─────────────────────────────────────────────────────
	reg := config.NewRegistry()
	registerBuiltinProviders(reg)

	// ── Pipeline ──────────────────────────────────────────────────────────────
	progress := newProgressPrinter(os.Stdout)
	p, err := buildPipeline(cfg, reg, lex, progress, metrics)
	if err != nil {
		slog.Error("failed to build pipeline", "err", err)
		return exitFailed
	}

	slog.Info("hesitate starting",
		"engine", cfg.Transcription.Name,
		"model", cfg.Transcription.Model,
		"output_dir", cfg.Recording.OutputDir,
		"lexicon_markers", len(lex),
	)

	// ── Signal handling ───────────────────────────────────────────────────────
	sigs := make(chan os.Signal, 2)
	signal.Notify(sigs, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigs)
	interrupt, ctx, cancel := watchSignals(context.Background(), sigs, os.Stdout)
	defer cancel()

	// ── Run ───────────────────────────────────────────────────────────────────
	if err := countdown(ctx, os.Stdout, *prepTime, interrupt, time.Second); err != nil {
		fmt.Fprintln(os.Stdout, "Recording cancelled.")
		return exitOK
	}
	if duration == 0 {
		fmt.Fprintln(os.Stdout, "Recording... Press Ctrl+C to stop.")
	}

	rep, err := p.Run(ctx, pipeline.Request{
		Duration:  duration,
		Interrupt: interrupt,
	})
	if err != nil {
		if errors.Is(err, context.Canceled) {
			slog.Warn("run aborted; captured audio discarded")
			return exitOK
		}
		slog.Error("run failed", "kind", errorKind(err), "err", err)
		return exitFailed
	}

	slog.Debug("run report",
		"audio", rep.Artifact.Path,
		"transcript", rep.TranscriptPath,
		"markers", len(rep.Markers),
	)
	return exitOK
}

// loadConfig reads path, or returns the defaults when path is empty.
func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.Default(), nil
	}
	return config.Load(path)
}

// captureDuration converts the -seconds flag. Zero means unbounded; any
// positive value, however small, stays bounded.
func captureDuration(seconds float64) (time.Duration, error) {
	ns := seconds * float64(time.Second)
	switch {
	case math.IsNaN(seconds) || seconds < 0:
		return 0, fmt.Errorf("-seconds must be a non-negative number, got %g", seconds)
	case ns >= math.MaxInt64:
		return 0, fmt.Errorf("-seconds %g is longer than the longest supported capture", seconds)
	case seconds == 0:
		return 0, nil
	}
	return max(time.Duration(ns), time.Nanosecond), nil
}

// applyFlags overlays non-empty command-line values on cfg.
func applyFlags(cfg *config.Config, model, outputDir, lexicon, logLevel string) {
	if model != "" {
		cfg.Transcription.Model = model
	}
	if outputDir != "" {
		cfg.Recording.OutputDir = outputDir
	}
	if lexicon != "" {
		cfg.Hesitation.LexiconFile = lexicon
	}
	if logLevel != "" {
		cfg.Log.Level = config.LogLevel(logLevel)
	}
}

// buildPipeline wires the four stages from cfg.
func buildPipeline(cfg *config.Config, reg *config.Registry, lex hesitation.Lexicon, progress *progressPrinter, metrics *observe.Metrics) (*pipeline.Pipeline, error) {
	layout := artifact.Layout{Dir: cfg.Recording.OutputDir}

	device, err := reg.CreateAudio(cfg.Recording.Device)
	if err != nil {
		return nil, fmt.Errorf("audio device: %w", err)
	}
	rec, err := recorder.New(device, recorder.Config{
		Stream: audio.StreamConfig{
			Format: audio.Format{
				SampleRate: cfg.Recording.SampleRate,
				Channels:   cfg.Recording.Channels,
			},
			ChunkFrames: cfg.Recording.ChunkFrames,
		},
		Layout: layout,
	}, recorder.WithProgress(progress.update))
	if err != nil {
		return nil, err
	}

	factory, err := engineFactory(reg, cfg.Transcription)
	if err != nil {
		return nil, fmt.Errorf("transcription engine: %w", err)
	}
	adapter, err := transcription.New(factory, cfg.Transcription.Model,
		transcription.WithLanguage(config.OptString(cfg.Transcription.Options, "language")),
	)
	if err != nil {
		return nil, err
	}

	var detOpts []hesitation.Option
	if cfg.Hesitation.FoldQuotes {
		detOpts = append(detOpts, hesitation.WithFoldQuotes())
	}

	return pipeline.New(pipeline.Stages{
		Recorder:    consoleRecorder{Recorder: rec, progress: progress},
		Transcriber: adapter,
		Detector:    hesitation.NewDetector(lex, detOpts...),
		Sink:        sink.New(layout, os.Stdout),
	},
		pipeline.WithMetrics(metrics),
		pipeline.WithOutput(os.Stdout),
		pipeline.WithEngineName(cfg.Transcription.Name),
	)
}

// errorKind names the failure class of err for the final log line.
func errorKind(err error) string {
	switch {
	case errors.Is(err, audio.ErrDevice):
		return "device"
	case errors.Is(err, stt.ErrEngine):
		return "transcription"
	case errors.Is(err, artifact.ErrFilesystem):
		return "filesystem"
	default:
		return "other"
	}
}

// ── Logger ─────────────────────────────────────────────────────────────────────

func newLogger(level config.LogLevel) *slog.Logger {
	var lvl slog.Level
	switch level {
	case config.LogDebug:
		lvl = slog.LevelDebug
	case config.LogWarn:
		lvl = slog.LevelWarn
	case config.LogError:
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}
