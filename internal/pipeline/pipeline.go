package pipeline

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"

	"github.com/forPelevin/montage/internal/assembly"
	"github.com/forPelevin/montage/internal/config"
	"github.com/forPelevin/montage/internal/logging"
	"github.com/forPelevin/montage/internal/ports"
	"github.com/forPelevin/montage/internal/ports/adapters/ffmpeg"
	"github.com/forPelevin/montage/internal/ports/adapters/openrouter"
	"github.com/forPelevin/montage/internal/ports/adapters/whispercpp"
	"github.com/forPelevin/montage/internal/usecase"
)

type Config struct {
	App    config.Config
	Logger *slog.Logger

	// CacheDir is the base directory for local artifacts (audio, transcripts, etc.).
	// If empty, App.Server.CacheDir is used, then ".cache".
	CacheDir string

	// RequireModel makes a missing API key fatal unless ranges.fallback is set.
	RequireModel bool
}

func (c Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return err
	}
	if err := c.App.ValidateTranscription(); err != nil {
		return err
	}
	if c.RequireModel && !c.App.AIAvailable() && !c.App.Ranges.Fallback {
		return fmt.Errorf("%w (set it in .env or enable ranges.fallback)", openrouter.ErrMissingAPIKey)
	}
	return openrouter.ValidateBaseURL(c.App.LLM.BaseURL, c.App.LLM.AllowedHosts)
}

// Pipeline wires the adapters into the cut usecase.
type Pipeline struct {
	uc       usecase.Usecase
	cacheDir string
	aiOK     bool
	logger   *slog.Logger
}

func New(cfg Config) (*Pipeline, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Nop()
	}
	app := cfg.App

	// adapters
	v := ffmpeg.New(app.Media.FFmpeg, app.Media.FFprobe)
	asr := whispercpp.New(app.Whisper.Bin, app.Whisper.Model)

	var llm ports.LLM
	client, err := openrouter.New(openrouter.Config{
		APIKey:        app.LLM.APIKey,
		Model:         app.LLM.Model,
		BaseURL:       app.LLM.BaseURL,
		AllowedHosts:  app.LLM.AllowedHosts,
		Timeout:       app.RequestTimeout(),
		RetryAttempts: app.LLM.RetryAttempts,
		Logger:        logger,
	})
	switch {
	case err == nil:
		llm = client
	case errors.Is(err, openrouter.ErrMissingAPIKey):
		logger.Warn("model unavailable", "reason", err.Error(), "fallback", app.Ranges.Fallback)
	default:
		return nil, err
	}

	asm := assembly.New(v,
		assembly.WithTempDir(app.Media.TempDir),
		assembly.WithLogger(logger),
	)

	uc := usecase.New(usecase.Deps{
		Video:     v,
		ASR:       asr,
		LLM:       llm,
		Assembler: asm,
		Logger:    logger,
	}, usecase.Options{
		Strict:   app.Ranges.Strict,
		Fallback: app.Ranges.Fallback,
	})

	cacheDir := cfg.CacheDir
	if cacheDir == "" {
		cacheDir = app.Server.CacheDir
	}
	if cacheDir == "" {
		cacheDir = ".cache"
	}
	return &Pipeline{uc: uc, cacheDir: cacheDir, aiOK: llm != nil, logger: logger}, nil
}

func (p *Pipeline) AIAvailable() bool { return p.aiOK }

// Cut runs the whole cut. An empty CacheDir gets a scratch dir of its own
// under the pipeline cache, removed when the run ends.
func (p *Pipeline) Cut(ctx context.Context, in usecase.Input) (usecase.Result, error) {
	var done func()
	in.CacheDir, done = p.runCacheDir(in)
	defer done()

	p.logger.Info("cut started", "input", in.Source, "output", in.Destination, "cache", in.CacheDir)
	res, err := p.uc.Cut(ctx, in)
	if err != nil {
		return res, err
	}
	p.logger.Info("cut finished",
		"output", res.Destination,
		"ranges", len(res.Ranges),
		"source", string(res.Source),
	)
	return res, nil
}

func (p *Pipeline) Select(ctx context.Context, in usecase.Input) (usecase.Selection, error) {
	var done func()
	in.CacheDir, done = p.runCacheDir(in)
	defer done()
	return p.uc.Select(ctx, in)
}

func (p *Pipeline) Analyze(ctx context.Context, in usecase.Input) (usecase.Selection, error) {
	var done func()
	in.CacheDir, done = p.runCacheDir(in)
	defer done()
	return p.uc.Analyze(ctx, in)
}

// runCacheDir returns in.CacheDir when set. Otherwise each call gets
// <cache>/runs/<input hash>/<id>, so concurrent runs on one input never share
// audio or transcripts; the returned func removes it.
func (p *Pipeline) runCacheDir(in usecase.Input) (string, func()) {
	if in.CacheDir != "" {
		return in.CacheDir, func() {}
	}
	dir := filepath.Join(p.cacheDir, "runs", hash(in.Source), uuid.NewString()[:8])
	return dir, func() {
		if err := os.RemoveAll(dir); err != nil {
			p.logger.Warn("remove run cache failed", "path", dir, "error", err)
		}
	}
}

// DefaultOutputPath returns outRoot/<run dir>/cut_<input file name>.
func DefaultOutputPath(outRoot, inputMP4 string, now time.Time) string {
	if outRoot == "" {
		outRoot = "out"
	}
	return filepath.Join(buildRunOutDir(outRoot, inputMP4, now), "cut_"+filepath.Base(inputMP4))
}

// CheckInput stats the source file.
func CheckInput(path string) error {
	if path == "" {
		return errors.New("input is empty")
	}
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("stat input: %w", err)
	}
	if info.IsDir() {
		return fmt.Errorf("input %s is a directory", path)
	}
	return nil
}

func buildRunOutDir(outRoot, inputMP4 string, now time.Time) string {
	name := strings.TrimSuffix(filepath.Base(inputMP4), filepath.Ext(inputMP4))
	name = normalizePathSegment(name)
	if name == "" {
		name = "input"
	}
	ts := now.UTC().Format("20060102-150405Z")
	runSeed := fmt.Sprintf("%s|%d", inputMP4, now.UTC().UnixNano())
	suffix := hash(runSeed)[:6]
	return filepath.Join(outRoot, fmt.Sprintf("%s-%s-%s", name, ts, suffix))
}

func normalizePathSegment(s string) string {
	var b strings.Builder
	prevDash := false
	for _, r := range strings.ToLower(strings.TrimSpace(s)) {
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r):
			b.WriteRune(r)
			prevDash = false
		default:
			if !prevDash {
				b.WriteByte('-')
				prevDash = true
			}
		}
	}
	return strings.Trim(b.String(), "-")
}

func hash(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])[:12]
}

// ensure adapters implement ports
var _ ports.VideoTool = (*ffmpeg.Adapter)(nil)
var _ ports.ASR = (*whispercpp.Adapter)(nil)
var _ ports.LLM = (*openrouter.Adapter)(nil)
var _ usecase.Assembler = (*assembly.Assembler)(nil)
