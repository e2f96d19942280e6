package types

import (
	"fmt"
	"strings"
)

type Transcript struct {
	Text     string    `json:"text"`
	Segments []Segment `json:"segments"`
}

type Segment struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
	Words []Word  `json:"words,omitempty"`
}

type Word struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Word  string  `json:"word"`
}

// PlainText returns Text, or the joined segment texts when Text is empty.
func (t Transcript) PlainText() string {
	if s := strings.TrimSpace(t.Text); s != "" {
		return s
	}
	parts := make([]string, 0, len(t.Segments))
	for _, s := range t.Segments {
		if txt := strings.TrimSpace(s.Text); txt != "" {
			parts = append(parts, txt)
		}
	}
	return strings.Join(parts, " ")
}

// Duration is the end of the last segment, 0 without segments.
func (t Transcript) Duration() float64 {
	if len(t.Segments) == 0 {
		return 0
	}
	return t.Segments[len(t.Segments)-1].End
}

// CutRange is a [Start, End) interval in seconds selected for the output.
type CutRange struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

func (r CutRange) Duration() float64 { return r.End - r.Start }

func (r CutRange) Valid() bool { return r.Start >= 0 && r.End > r.Start }

func (r CutRange) String() string {
	return fmt.Sprintf("%.3f-%.3f", r.Start, r.End)
}

// TotalDuration sums the durations of rs.
func TotalDuration(rs []CutRange) float64 {
	var total float64
	for _, r := range rs {
		total += r.Duration()
	}
	return total
}
