//go:build integration

package itest

import (
	"os/exec"
	"path/filepath"
	"strconv"
	"testing"
)

// makeClip renders a synthetic H.264/AAC clip with a keyframe every second.
func makeClip(t *testing.T, dir string, seconds int) string {
	t.Helper()
	out := filepath.Join(dir, "input.mp4")
	d := strconv.Itoa(seconds)
	ff := exec.Command("ffmpeg",
		"-y",
		"-f", "lavfi",
		"-i", "testsrc=size=320x240:rate=25:duration="+d,
		"-f", "lavfi",
		"-i", "sine=frequency=440:duration="+d,
		"-shortest",
		"-c:v", "libx264",
		"-g", "25",
		"-pix_fmt", "yuv420p",
		"-c:a", "aac",
		out,
	)
	if b, err := ff.CombinedOutput(); err != nil {
		t.Fatalf("ffmpeg fixture failed: %v\n%s", err, string(b))
	}
	return out
}
