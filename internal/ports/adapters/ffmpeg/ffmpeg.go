package ffmpeg

import (
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"

	ffmpeggo "github.com/u2takey/ffmpeg-go"
)

type Adapter struct {
	ffmpeg  string
	ffprobe string
}

func New(ffmpegPath, ffprobePath string) *Adapter {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	if ffprobePath == "" {
		ffprobePath = "ffprobe"
	}
	return &Adapter{ffmpeg: ffmpegPath, ffprobe: ffprobePath}
}

func (a *Adapter) ExtractAudioMono16k(ctx context.Context, inMP4, outWav string) error {
	args := ffmpeggo.Input(inMP4).
		Output(outWav, ffmpeggo.KwArgs{
			"ac":     "1",
			"ar":     "16000",
			"acodec": "pcm_s16le",
			"format": "wav",
		}).
		OverWriteOutput().
		GetArgs()
	if err := a.run(ctx, args); err != nil {
		return fmt.Errorf("ffmpeg extract audio: %w", err)
	}
	return nil
}

// CutCopy stream-copies [start, end) of in into out. The cut snaps to the
// keyframe at or before start.
func (a *Adapter) CutCopy(ctx context.Context, in string, start, end float64, out string) error {
	if end <= start {
		return fmt.Errorf("ffmpeg cut copy: invalid range %.3f-%.3f", start, end)
	}
	args := CutArgs(in, start, end, out)
	if err := a.run(ctx, args); err != nil {
		return fmt.Errorf("ffmpeg cut copy %s-%s: %w", fmtSeconds(start), fmtSeconds(end), err)
	}
	return nil
}

// ConcatCopy joins the files listed in a concat-demuxer manifest into out
// without re-encoding.
func (a *Adapter) ConcatCopy(ctx context.Context, manifest, out string) error {
	if err := a.run(ctx, ConcatArgs(manifest, out)); err != nil {
		return fmt.Errorf("ffmpeg concat copy: %w", err)
	}
	return nil
}

func (a *Adapter) ProbeDuration(ctx context.Context, inMP4 string) (time.Duration, error) {
	cmd := exec.CommandContext(ctx, a.ffprobe,
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		inMP4,
	)
	b, err := cmd.CombinedOutput()
	if err != nil {
		return 0, fmt.Errorf("ffprobe duration: %w\n%s", err, string(b))
	}
	s := strings.TrimSpace(string(b))
	sec, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("parse duration %q: %w", s, err)
	}
	return time.Duration(sec * float64(time.Second)), nil
}

// CutArgs builds the ffmpeg arguments for a stream-copy cut.
func CutArgs(in string, start, end float64, out string) []string {
	return ffmpeggo.Input(in, ffmpeggo.KwArgs{
		"ss": fmtSeconds(start),
		"to": fmtSeconds(end),
	}).
		Output(out, ffmpeggo.KwArgs{
			"c":                 "copy",
			"avoid_negative_ts": "make_zero",
		}).
		OverWriteOutput().
		GetArgs()
}

// ConcatArgs builds the ffmpeg arguments for a concat-demuxer stream copy.
func ConcatArgs(manifest, out string) []string {
	return ffmpeggo.Input(manifest, ffmpeggo.KwArgs{
		"f":    "concat",
		"safe": "0",
	}).
		Output(out, ffmpeggo.KwArgs{"c": "copy"}).
		OverWriteOutput().
		GetArgs()
}

func (a *Adapter) run(ctx context.Context, args []string) error {
	full := append([]string{"-hide_banner", "-loglevel", "error"}, args...)
	cmd := exec.CommandContext(ctx, a.ffmpeg, full...)
	b, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("%w\n%s", err, strings.TrimSpace(string(b)))
	}
	return nil
}

func fmtSeconds(sec float64) string {
	return strconv.FormatFloat(sec, 'f', 3, 64)
}
