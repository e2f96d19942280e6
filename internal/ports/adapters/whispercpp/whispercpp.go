package whispercpp

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/forPelevin/montage/internal/types"
)

type Adapter struct {
	bin   string
	model string
}

func New(binPath, modelPath string) *Adapter {
	if binPath == "" {
		binPath = "whisper-cli"
	}
	return &Adapter{bin: binPath, model: modelPath}
}

func (a *Adapter) Transcribe(ctx context.Context, wavPath, cacheDir string) (types.Transcript, error) {
	if a.model == "" {
		return types.Transcript{}, fmt.Errorf("whisper.cpp: model path is not configured")
	}
	outPrefix := filepath.Join(cacheDir, "whisper")
	args := []string{
		"-m", a.model,
		"-f", wavPath,
		"-oj",
		"-of", outPrefix,
	}
	cmd := exec.CommandContext(ctx, a.bin, args...)
	b, err := cmd.CombinedOutput()
	if err != nil {
		return types.Transcript{}, fmt.Errorf("whisper.cpp failed: %w\n%s", err, string(b))
	}

	jb, err := os.ReadFile(outPrefix + ".json")
	if err != nil {
		return types.Transcript{}, err
	}
	return decodeTranscript(jb)
}

// nativeOutput is the -oj layout of whisper.cpp; offsets are milliseconds.
type nativeOutput struct {
	Transcription []struct {
		Offsets struct {
			From int64 `json:"from"`
			To   int64 `json:"to"`
		} `json:"offsets"`
		Text string `json:"text"`
	} `json:"transcription"`
}

// decodeTranscript accepts both the segments layout and whisper.cpp's native
// transcription layout.
func decodeTranscript(b []byte) (types.Transcript, error) {
	var tr types.Transcript
	if err := json.Unmarshal(b, &tr); err != nil {
		return types.Transcript{}, fmt.Errorf("decode whisper output: %w", err)
	}
	if len(tr.Segments) == 0 {
		var native nativeOutput
		if err := json.Unmarshal(b, &native); err != nil {
			return types.Transcript{}, fmt.Errorf("decode whisper output: %w", err)
		}
		for _, seg := range native.Transcription {
			tr.Segments = append(tr.Segments, types.Segment{
				Start: float64(seg.Offsets.From) / 1000,
				End:   float64(seg.Offsets.To) / 1000,
				Text:  seg.Text,
			})
		}
	}

	for i := range tr.Segments {
		tr.Segments[i].Text = strings.TrimSpace(tr.Segments[i].Text)
		for j := range tr.Segments[i].Words {
			tr.Segments[i].Words[j].Word = strings.TrimSpace(tr.Segments[i].Words[j].Word)
		}
	}
	tr.Text = strings.TrimSpace(tr.Text)
	if tr.Text == "" {
		tr.Text = tr.PlainText()
	}
	return tr, nil
}
