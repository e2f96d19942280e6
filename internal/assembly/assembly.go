// Package assembly cuts selected ranges out of a source video and joins them
// into a single output without re-encoding.
package assembly

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/forPelevin/montage/internal/logging"
	"github.com/forPelevin/montage/internal/ports"
	"github.com/forPelevin/montage/internal/types"
)

// ErrNoRanges is returned when Assemble is called without ranges.
var ErrNoRanges = errors.New("assembly: no cut ranges")

// Stage names the step of an assembly that failed.
type Stage string

const (
	StageSetup    Stage = "setup"
	StageCut      Stage = "cut"
	StageManifest Stage = "manifest"
	StageConcat   Stage = "concat"
)

// Error is the single failure reported for an assembly. Index is the range
// being cut for StageCut and -1 otherwise.
type Error struct {
	Stage Stage
	Index int
	Range types.CutRange
	Err   error
}

func (e *Error) Error() string {
	if e.Stage == StageCut {
		return fmt.Sprintf("assembly %s range %d (%s): %v", e.Stage, e.Index, e.Range, e.Err)
	}
	return fmt.Sprintf("assembly %s: %v", e.Stage, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

type Assembler struct {
	video   ports.VideoTool
	tempDir string
	logger  *slog.Logger
}

type Option func(*Assembler)

// WithTempDir sets the base directory for per-invocation work dirs.
// Defaults to os.TempDir().
func WithTempDir(dir string) Option {
	return func(a *Assembler) { a.tempDir = dir }
}

func WithLogger(logger *slog.Logger) Option {
	return func(a *Assembler) {
		if logger != nil {
			a.logger = logger
		}
	}
}

func New(video ports.VideoTool, opts ...Option) *Assembler {
	a := &Assembler{video: video, logger: logging.Nop()}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Assemble writes the ranges of source, in the given order, to destination.
//
// Every clip and the concat manifest live in a work dir unique to this call
// and are removed before Assemble returns. The joined output is staged next to
// destination and renamed onto it only on success, so a failed call never
// leaves a partial file and never touches an existing destination.
func (a *Assembler) Assemble(ctx context.Context, source string, ranges []types.CutRange, destination string) (err error) {
	if len(ranges) == 0 {
		return ErrNoRanges
	}

	id := uuid.NewString()
	logger := logging.WithInvocation(logging.WithComponent(a.logger, "assembly"), id)
	begin := time.Now()

	base := a.tempDir
	if base == "" {
		base = os.TempDir()
	}
	// The concat demuxer resolves relative entries against the manifest dir.
	base, absErr := filepath.Abs(base)
	if absErr != nil {
		return &Error{Stage: StageSetup, Index: -1, Err: absErr}
	}
	if mkErr := os.MkdirAll(base, 0o755); mkErr != nil {
		return &Error{Stage: StageSetup, Index: -1, Err: mkErr}
	}
	workDir := filepath.Join(base, "montage-"+id)
	if mkErr := os.Mkdir(workDir, 0o700); mkErr != nil {
		return &Error{Stage: StageSetup, Index: -1, Err: mkErr}
	}

	var temps []string
	defer func() {
		for _, p := range temps {
			removeQuiet(logger, p)
		}
		removeQuiet(logger, workDir)
		if err != nil {
			logger.Warn("assembly failed", "error", err, "elapsed", time.Since(begin))
		}
	}()

	ext := filepath.Ext(source)
	if ext == "" {
		ext = ".mp4"
	}

	clips := make([]string, 0, len(ranges))
	for i, r := range ranges {
		clip := filepath.Join(workDir, fmt.Sprintf("clip_%03d%s", i, ext))
		temps = append(temps, clip)
		logger.Debug("cutting range", "index", i, "start", r.Start, "end", r.End)
		if cutErr := a.video.CutCopy(ctx, source, r.Start, r.End, clip); cutErr != nil {
			return &Error{Stage: StageCut, Index: i, Range: r, Err: cutErr}
		}
		clips = append(clips, clip)
	}

	manifest := filepath.Join(workDir, "concat.txt")
	temps = append(temps, manifest)
	if wErr := os.WriteFile(manifest, []byte(Manifest(clips)), 0o600); wErr != nil {
		return &Error{Stage: StageManifest, Index: -1, Err: wErr}
	}

	staged := stagedPath(destination, id)
	temps = append(temps, staged)
	if cErr := a.video.ConcatCopy(ctx, manifest, staged); cErr != nil {
		return &Error{Stage: StageConcat, Index: -1, Err: cErr}
	}
	if _, sErr := os.Stat(staged); sErr != nil {
		return &Error{Stage: StageConcat, Index: -1, Err: fmt.Errorf("output missing: %w", sErr)}
	}
	if rErr := os.Rename(staged, destination); rErr != nil {
		return &Error{Stage: StageConcat, Index: -1, Err: fmt.Errorf("publish output: %w", rErr)}
	}

	logger.Info("assembly done",
		"ranges", len(ranges),
		"selected_seconds", types.TotalDuration(ranges),
		"elapsed", time.Since(begin),
	)
	return nil
}

// Manifest renders a concat-demuxer list for paths, one entry per line.
func Manifest(paths []string) string {
	var b strings.Builder
	for _, p := range paths {
		b.WriteString("file '")
		b.WriteString(strings.ReplaceAll(p, "'", `'\''`))
		b.WriteString("'\n")
	}
	return b.String()
}

// stagedPath is a hidden sibling of destination with the same extension, so
// ffmpeg picks the same muxer and the final rename stays on one filesystem.
func stagedPath(destination, id string) string {
	dir, name := filepath.Split(destination)
	ext := filepath.Ext(name)
	return filepath.Join(dir, "."+strings.TrimSuffix(name, ext)+"-"+id[:8]+ext)
}

func removeQuiet(logger *slog.Logger, path string) {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		logger.Warn("cleanup failed", "path", path, "error", err)
	}
}
