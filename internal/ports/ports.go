package ports

import (
	"context"
	"time"

	"github.com/forPelevin/montage/internal/types"
)

// VideoTool is the codec/container collaborator. CutCopy and ConcatCopy
// must not re-encode.
type VideoTool interface {
	ExtractAudioMono16k(ctx context.Context, inMP4, outWav string) error
	CutCopy(ctx context.Context, in string, start, end float64, out string) error
	ConcatCopy(ctx context.Context, manifest, out string) error
	ProbeDuration(ctx context.Context, in string) (time.Duration, error)
}

type ASR interface {
	Transcribe(ctx context.Context, wavPath, cacheDir string) (types.Transcript, error)
}

// LLM sends one prompt and returns the model's free-form answer.
type LLM interface {
	Complete(ctx context.Context, prompt string) (string, error)
}
