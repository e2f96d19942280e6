package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/forPelevin/montage/internal/domain/cutranges"
	"github.com/forPelevin/montage/internal/logging"
	"github.com/forPelevin/montage/internal/ports"
	"github.com/forPelevin/montage/internal/types"
)

var (
	// ErrNothingSelected means selection produced no ranges, so there is
	// nothing to assemble.
	ErrNothingSelected = errors.New("no cut ranges selected")
	// ErrModelUnavailable means no model client is configured and fallback is off.
	ErrModelUnavailable = errors.New("model is not available")
	ErrEmptyIntent      = errors.New("editing intent is empty")
)

// DefaultAnalyzeIntent is used by Analyze when no script is given.
const DefaultAnalyzeIntent = "Select the distinct scenes of the video in chronological order."

// Assembler joins ranges of a source into one output.
type Assembler interface {
	Assemble(ctx context.Context, source string, ranges []types.CutRange, destination string) error
}

type Deps struct {
	Video     ports.VideoTool
	ASR       ports.ASR
	LLM       ports.LLM // nil when no model is configured
	Assembler Assembler
	Logger    *slog.Logger
}

type Options struct {
	// Strict fails extraction on an invalid range instead of skipping it.
	Strict bool
	// Fallback derives ranges from transcript segments when the model is
	// unavailable or its answer cannot be parsed.
	Fallback bool
}

type Usecase struct {
	d         Deps
	opts      Options
	extractor *cutranges.Extractor
	logger    *slog.Logger
}

func New(d Deps, opts Options) Usecase {
	logger := d.Logger
	if logger == nil {
		logger = logging.Nop()
	}
	logger = logging.WithComponent(logger, "usecase")
	u := Usecase{d: d, opts: opts, logger: logger}
	if d.LLM != nil {
		u.extractor = cutranges.NewExtractor(d.LLM,
			cutranges.WithStrict(opts.Strict),
			cutranges.WithLogger(logger),
		)
	}
	return u
}

type Input struct {
	Source string
	// Intent is the editing prompt or a script describing the wanted cut.
	Intent string
	// CacheDir holds the extracted audio and transcription output.
	CacheDir string
	// Destination is only used by Cut.
	Destination string
}

type RangeSource string

const (
	SourceAI       RangeSource = "ai"
	SourceFallback RangeSource = "fallback"
)

type Selection struct {
	Ranges     []types.CutRange
	Transcript types.Transcript
	Source     RangeSource
}

type Result struct {
	Selection
	Destination string
}

// Cut transcribes the source, selects ranges for the intent and assembles
// them into Destination.
func (u Usecase) Cut(ctx context.Context, in Input) (Result, error) {
	if strings.TrimSpace(in.Intent) == "" {
		return Result{}, ErrEmptyIntent
	}
	if in.Destination == "" {
		return Result{}, errors.New("destination is empty")
	}
	sel, err := u.selectRanges(ctx, in, u.opts.Fallback)
	if err != nil {
		return Result{}, err
	}
	if len(sel.Ranges) == 0 {
		return Result{Selection: sel}, ErrNothingSelected
	}

	if err := os.MkdirAll(filepath.Dir(in.Destination), 0o755); err != nil {
		return Result{}, fmt.Errorf("create output dir: %w", err)
	}
	if err := u.d.Assembler.Assemble(ctx, in.Source, sel.Ranges, in.Destination); err != nil {
		return Result{Selection: sel}, err
	}
	return Result{Selection: sel, Destination: in.Destination}, nil
}

// Select returns the ranges Cut would assemble without touching the media.
func (u Usecase) Select(ctx context.Context, in Input) (Selection, error) {
	if strings.TrimSpace(in.Intent) == "" {
		return Selection{}, ErrEmptyIntent
	}
	return u.selectRanges(ctx, in, u.opts.Fallback)
}

// Analyze selects ranges like Select but always falls back to the
// transcript segments when the model cannot answer.
func (u Usecase) Analyze(ctx context.Context, in Input) (Selection, error) {
	if strings.TrimSpace(in.Intent) == "" {
		in.Intent = DefaultAnalyzeIntent
	}
	return u.selectRanges(ctx, in, true)
}

func (u Usecase) selectRanges(ctx context.Context, in Input, fallback bool) (Selection, error) {
	tr, err := u.transcribe(ctx, in)
	if err != nil {
		return Selection{}, err
	}

	if u.extractor == nil {
		if !fallback {
			return Selection{}, ErrModelUnavailable
		}
		return u.fallback(tr, "model unavailable"), nil
	}

	ranges, err := u.extractor.Extract(ctx, cutranges.TimestampedTranscript(tr), in.Intent)
	if err != nil {
		var ie *cutranges.InvalidRangeError
		if !fallback || errors.As(err, &ie) || ctx.Err() != nil {
			return Selection{}, err
		}
		return u.fallback(tr, err.Error()), nil
	}
	return Selection{Ranges: ranges, Transcript: tr, Source: SourceAI}, nil
}

func (u Usecase) transcribe(ctx context.Context, in Input) (types.Transcript, error) {
	if in.CacheDir == "" {
		return types.Transcript{}, errors.New("cache dir is empty")
	}
	if err := os.MkdirAll(in.CacheDir, 0o755); err != nil {
		return types.Transcript{}, fmt.Errorf("create cache dir: %w", err)
	}
	wav := filepath.Join(in.CacheDir, "audio.wav")
	if err := u.d.Video.ExtractAudioMono16k(ctx, in.Source, wav); err != nil {
		return types.Transcript{}, err
	}
	tr, err := u.d.ASR.Transcribe(ctx, wav, in.CacheDir)
	if err != nil {
		return types.Transcript{}, fmt.Errorf("transcribe: %w", err)
	}
	u.logger.Info("transcribed", "segments", len(tr.Segments), "duration_sec", tr.Duration())
	return tr, nil
}

func (u Usecase) fallback(tr types.Transcript, reason string) Selection {
	ranges := cutranges.Fallback(tr.Segments)
	u.logger.Warn("using fallback cut ranges", "reason", reason, "count", len(ranges))
	return Selection{Ranges: ranges, Transcript: tr, Source: SourceFallback}
}
