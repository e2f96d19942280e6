package cutranges

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"regexp"
	"strings"

	"github.com/forPelevin/montage/internal/domain/timecode"
	"github.com/forPelevin/montage/internal/logging"
	"github.com/forPelevin/montage/internal/types"
)

// reArray is greedy on purpose: it spans from the first '[' to the last ']'.
var reArray = regexp.MustCompile(`(?s)\[.*\]`)

// ParseError means the model answer holds no usable JSON array.
type ParseError struct {
	Snippet string
	Err     error
}

func (e *ParseError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("cut ranges: no JSON array in model answer (snippet: %s)", e.Snippet)
	}
	return fmt.Sprintf("cut ranges: parse model answer: %v (snippet: %s)", e.Err, e.Snippet)
}

func (e *ParseError) Unwrap() error { return e.Err }

// InvalidRangeError is returned in strict mode for the first element that
// does not describe a range with 0 <= start < end.
type InvalidRangeError struct {
	Index  int
	Range  types.CutRange
	Reason string
}

func (e *InvalidRangeError) Error() string {
	return fmt.Sprintf("cut ranges: element %d invalid (%s): start=%.3f end=%.3f", e.Index, e.Reason, e.Range.Start, e.Range.End)
}

// ParseOptions tunes Parse.
type ParseOptions struct {
	// Strict fails the whole answer on the first invalid range instead of
	// skipping it.
	Strict bool
	Logger *slog.Logger
}

// Parse turns a free-form model answer into ordered cut ranges.
//
// The whole answer is tried as a JSON array first, then the first bracketed
// span in it. Element order is kept; nothing is merged, sorted or deduplicated.
// An empty array yields an empty, non-nil slice.
func Parse(answer string, opts ParseOptions) ([]types.CutRange, error) {
	logger := opts.Logger
	if logger == nil {
		logger = logging.Nop()
	}

	items, err := decodeArray(answer)
	if err != nil {
		span := reArray.FindString(answer)
		if span == "" {
			return nil, &ParseError{Snippet: snippet(answer)}
		}
		items, err = decodeArray(span)
		if err != nil {
			return nil, &ParseError{Snippet: snippet(span), Err: err}
		}
	}

	out := make([]types.CutRange, 0, len(items))
	for i, it := range items {
		obj, ok := it.(map[string]any)
		if !ok {
			if err := reject(opts.Strict, logger, i, types.CutRange{}, "not an object"); err != nil {
				return nil, err
			}
			continue
		}

		r := types.CutRange{
			Start: normalizeField(logger, i, "start", obj["start"]),
			End:   normalizeField(logger, i, "end", obj["end"]),
		}
		if !r.Valid() {
			reason := "end <= start"
			if r.Start < 0 {
				reason = "negative start"
			}
			if err := reject(opts.Strict, logger, i, r, reason); err != nil {
				return nil, err
			}
			continue
		}
		out = append(out, r)
	}
	return out, nil
}

func decodeArray(s string) ([]any, error) {
	t := strings.TrimSpace(s)
	if !strings.HasPrefix(t, "[") {
		return nil, errors.New("not a JSON array")
	}
	dec := json.NewDecoder(strings.NewReader(t))
	dec.UseNumber()
	var items []any
	if err := dec.Decode(&items); err != nil {
		return nil, err
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, errors.New("trailing data after JSON array")
	}
	return items, nil
}

func normalizeField(logger *slog.Logger, idx int, field string, v any) float64 {
	sec, ok := timecode.Parse(v)
	if !ok {
		logger.Warn("unrecognized time value, using 0",
			"element", idx,
			"field", field,
			"value", fmt.Sprintf("%v", v),
		)
	}
	return sec
}

func reject(strict bool, logger *slog.Logger, idx int, r types.CutRange, reason string) error {
	if strict {
		return &InvalidRangeError{Index: idx, Range: r, Reason: reason}
	}
	logger.Warn("skipping invalid cut range",
		"element", idx,
		"reason", reason,
		"start", r.Start,
		"end", r.End,
	)
	return nil
}

func snippet(s string) string {
	clean := strings.Join(strings.Fields(s), " ")
	if clean == "" {
		return "<empty>"
	}
	const limit = 160
	runes := []rune(clean)
	if len(runes) > limit {
		clean = string(runes[:limit]) + "..."
	}
	return clean
}
