package cutranges

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/forPelevin/montage/internal/logging"
	"github.com/forPelevin/montage/internal/ports"
	"github.com/forPelevin/montage/internal/types"
)

// Extractor asks a text model for cut ranges and parses its answer.
type Extractor struct {
	llm    ports.LLM
	strict bool
	logger *slog.Logger
}

type Option func(*Extractor)

// WithStrict makes an invalid range fail the extraction instead of being skipped.
func WithStrict(strict bool) Option {
	return func(e *Extractor) { e.strict = strict }
}

func WithLogger(logger *slog.Logger) Option {
	return func(e *Extractor) {
		if logger != nil {
			e.logger = logger
		}
	}
}

func NewExtractor(llm ports.LLM, opts ...Option) *Extractor {
	e := &Extractor{llm: llm, logger: logging.Nop()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Extract returns the ranges selected for intent, in the order the model
// listed them. A *ParseError means the answer had no usable array; the caller
// decides whether to fall back.
func (e *Extractor) Extract(ctx context.Context, transcript, intent string) ([]types.CutRange, error) {
	answer, err := e.llm.Complete(ctx, BuildPrompt(transcript, intent))
	if err != nil {
		return nil, fmt.Errorf("cut ranges: model request: %w", err)
	}
	ranges, err := Parse(answer, ParseOptions{Strict: e.strict, Logger: e.logger})
	if err != nil {
		return nil, err
	}
	e.logger.Debug("cut ranges extracted", "count", len(ranges), "total_sec", types.TotalDuration(ranges))
	return ranges, nil
}
