package usecase

import (
	"context"
	"errors"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/forPelevin/montage/internal/domain/cutranges"
	"github.com/forPelevin/montage/internal/types"
)

type fakeVideoTool struct {
	audioIn  string
	audioOut string
}

func (f *fakeVideoTool) ExtractAudioMono16k(_ context.Context, in, out string) error {
	f.audioIn, f.audioOut = in, out
	return nil
}

func (f *fakeVideoTool) CutCopy(context.Context, string, float64, float64, string) error { return nil }

func (f *fakeVideoTool) ConcatCopy(context.Context, string, string) error { return nil }

func (f *fakeVideoTool) ProbeDuration(context.Context, string) (time.Duration, error) { return 0, nil }

type fakeASR struct {
	tr  types.Transcript
	err error
}

func (f fakeASR) Transcribe(context.Context, string, string) (types.Transcript, error) {
	return f.tr, f.err
}

type fakeLLM struct {
	answer string
	err    error
	prompt string
}

func (f *fakeLLM) Complete(_ context.Context, prompt string) (string, error) {
	f.prompt = prompt
	return f.answer, f.err
}

type fakeAssembler struct {
	calls  int
	source string
	ranges []types.CutRange
	dest   string
	err    error
}

func (f *fakeAssembler) Assemble(_ context.Context, source string, ranges []types.CutRange, dest string) error {
	f.calls++
	f.source, f.ranges, f.dest = source, ranges, dest
	return f.err
}

func testTranscript() types.Transcript {
	return types.Transcript{
		Text: "hello world. more words.",
		Segments: []types.Segment{
			{Start: 0, End: 4, Text: "hello world."},
			{Start: 4, End: 9, Text: "more words."},
		},
	}
}

func newTestUsecase(llm *fakeLLM, asm *fakeAssembler, opts Options) (Usecase, *fakeVideoTool) {
	video := &fakeVideoTool{}
	d := Deps{Video: video, ASR: fakeASR{tr: testTranscript()}, Assembler: asm}
	if llm != nil {
		d.LLM = llm
	}
	return New(d, opts), video
}

func TestCut_AssemblesModelRanges(t *testing.T) {
	tmp := t.TempDir()
	llm := &fakeLLM{answer: `Here you go: [{"start":"00:04","end":9},{"start":0,"end":"4"}]`}
	asm := &fakeAssembler{}
	uc, video := newTestUsecase(llm, asm, Options{})

	res, err := uc.Cut(context.Background(), Input{
		Source:      "in.mp4",
		Intent:      "keep both lines, second first",
		CacheDir:    filepath.Join(tmp, "cache"),
		Destination: filepath.Join(tmp, "out", "cut.mp4"),
	})
	if err != nil {
		t.Fatalf("cut: %v", err)
	}
	want := []types.CutRange{{Start: 4, End: 9}, {Start: 0, End: 4}}
	if asm.calls != 1 || !reflect.DeepEqual(asm.ranges, want) || asm.source != "in.mp4" {
		t.Fatalf("unexpected assemble call: %+v", asm)
	}
	if res.Source != SourceAI || res.Destination != filepath.Join(tmp, "out", "cut.mp4") {
		t.Fatalf("unexpected result: %+v", res)
	}
	if video.audioOut != filepath.Join(tmp, "cache", "audio.wav") {
		t.Fatalf("unexpected audio path %q", video.audioOut)
	}
	if !strings.Contains(llm.prompt, "[00:00:04.00 - 00:00:09.00] more words.") {
		t.Fatalf("prompt lacks timestamped transcript:\n%s", llm.prompt)
	}
}

func TestCut_EmptySelectionSkipsAssembly(t *testing.T) {
	tmp := t.TempDir()
	asm := &fakeAssembler{}
	uc, _ := newTestUsecase(&fakeLLM{answer: "[]"}, asm, Options{Fallback: true})

	_, err := uc.Cut(context.Background(), Input{
		Source: "in.mp4", Intent: "nothing", CacheDir: tmp, Destination: filepath.Join(tmp, "o.mp4"),
	})
	if !errors.Is(err, ErrNothingSelected) {
		t.Fatalf("expected ErrNothingSelected, got %v", err)
	}
	if asm.calls != 0 {
		t.Fatalf("assembler must not run on an empty selection")
	}
}

func TestCut_ParseErrorWithoutFallbackFails(t *testing.T) {
	tmp := t.TempDir()
	asm := &fakeAssembler{}
	uc, _ := newTestUsecase(&fakeLLM{answer: "sorry, no idea"}, asm, Options{})

	_, err := uc.Cut(context.Background(), Input{
		Source: "in.mp4", Intent: "x", CacheDir: tmp, Destination: filepath.Join(tmp, "o.mp4"),
	})
	var pe *cutranges.ParseError
	if !errors.As(err, &pe) {
		t.Fatalf("expected *cutranges.ParseError, got %v", err)
	}
	if asm.calls != 0 {
		t.Fatalf("assembler must not run after a parse failure")
	}
}

func TestCut_ParseErrorWithFallbackUsesSegments(t *testing.T) {
	tmp := t.TempDir()
	asm := &fakeAssembler{}
	uc, _ := newTestUsecase(&fakeLLM{answer: "sorry, no idea"}, asm, Options{Fallback: true})

	res, err := uc.Cut(context.Background(), Input{
		Source: "in.mp4", Intent: "x", CacheDir: tmp, Destination: filepath.Join(tmp, "o.mp4"),
	})
	if err != nil {
		t.Fatalf("cut: %v", err)
	}
	want := []types.CutRange{{Start: 0, End: 4}, {Start: 4, End: 9}}
	if res.Source != SourceFallback || !reflect.DeepEqual(asm.ranges, want) {
		t.Fatalf("expected fallback ranges, got %+v / %v", res.Selection, asm.ranges)
	}
}

func TestCut_StrictInvalidRangeIsNotMaskedByFallback(t *testing.T) {
	tmp := t.TempDir()
	uc, _ := newTestUsecase(&fakeLLM{answer: `[{"start":9,"end":1}]`}, &fakeAssembler{}, Options{Strict: true, Fallback: true})

	_, err := uc.Cut(context.Background(), Input{
		Source: "in.mp4", Intent: "x", CacheDir: tmp, Destination: filepath.Join(tmp, "o.mp4"),
	})
	var ie *cutranges.InvalidRangeError
	if !errors.As(err, &ie) {
		t.Fatalf("expected *cutranges.InvalidRangeError, got %v", err)
	}
}

func TestCut_NoModel(t *testing.T) {
	tmp := t.TempDir()
	in := Input{Source: "in.mp4", Intent: "x", CacheDir: tmp, Destination: filepath.Join(tmp, "o.mp4")}

	uc, _ := newTestUsecase(nil, &fakeAssembler{}, Options{})
	if _, err := uc.Cut(context.Background(), in); !errors.Is(err, ErrModelUnavailable) {
		t.Fatalf("expected ErrModelUnavailable, got %v", err)
	}

	asm := &fakeAssembler{}
	uc, _ = newTestUsecase(nil, asm, Options{Fallback: true})
	res, err := uc.Cut(context.Background(), in)
	if err != nil {
		t.Fatalf("cut with fallback: %v", err)
	}
	if res.Source != SourceFallback || asm.calls != 1 {
		t.Fatalf("expected fallback assembly, got %+v calls=%d", res.Selection, asm.calls)
	}
}

func TestCut_PropagatesAssemblyError(t *testing.T) {
	tmp := t.TempDir()
	boom := errors.New("concat failed")
	uc, _ := newTestUsecase(&fakeLLM{answer: `[{"start":0,"end":1}]`}, &fakeAssembler{err: boom}, Options{})

	_, err := uc.Cut(context.Background(), Input{
		Source: "in.mp4", Intent: "x", CacheDir: tmp, Destination: filepath.Join(tmp, "o.mp4"),
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected assembly error, got %v", err)
	}
}

func TestCut_RejectsEmptyIntent(t *testing.T) {
	uc, _ := newTestUsecase(&fakeLLM{}, &fakeAssembler{}, Options{})
	if _, err := uc.Cut(context.Background(), Input{Intent: "  ", Destination: "o.mp4"}); !errors.Is(err, ErrEmptyIntent) {
		t.Fatalf("expected ErrEmptyIntent, got %v", err)
	}
}

func TestAnalyze_FallsBackOnModelError(t *testing.T) {
	llm := &fakeLLM{err: errors.New("503")}
	uc, _ := newTestUsecase(llm, &fakeAssembler{}, Options{})

	sel, err := uc.Analyze(context.Background(), Input{Source: "in.mp4", CacheDir: t.TempDir()})
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	if sel.Source != SourceFallback || len(sel.Ranges) != 2 {
		t.Fatalf("unexpected selection: %+v", sel)
	}
	if !strings.Contains(llm.prompt, DefaultAnalyzeIntent) {
		t.Fatalf("expected default intent in prompt")
	}
}

func TestSelect_ReturnsTranscriptAndRanges(t *testing.T) {
	uc, _ := newTestUsecase(&fakeLLM{answer: `[{"start":1,"end":2}]`}, &fakeAssembler{}, Options{})
	sel, err := uc.Select(context.Background(), Input{Source: "in.mp4", Intent: "x", CacheDir: t.TempDir()})
	if err != nil {
		t.Fatalf("select: %v", err)
	}
	if sel.Source != SourceAI || sel.Transcript.Duration() != 9 || len(sel.Ranges) != 1 {
		t.Fatalf("unexpected selection: %+v", sel)
	}
}
