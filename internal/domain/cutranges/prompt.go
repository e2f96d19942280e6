package cutranges

import (
	"strings"

	"github.com/forPelevin/montage/internal/domain/timecode"
	"github.com/forPelevin/montage/internal/types"
)

// BuildPrompt composes the single request sent to the model.
func BuildPrompt(transcript, intent string) string {
	var b strings.Builder
	b.WriteString("You are editing a video. Select the parts of the video that satisfy the editing request.\n\n")
	b.WriteString("Transcript:\n")
	b.WriteString(strings.TrimSpace(transcript))
	b.WriteString("\n\nEditing request:\n")
	b.WriteString(strings.TrimSpace(intent))
	b.WriteString("\n\n")
	b.WriteString("Answer with a JSON array only, no prose and no code fences. ")
	b.WriteString(`Each element is an object {"start": <time>, "end": <time>} where a time is a number of seconds `)
	b.WriteString(`or a string "MM:SS", "HH:MM:SS" or "HH:MM:SS.mmm". `)
	b.WriteString("List the segments in the order they should play. end must be greater than start. ")
	b.WriteString("Return [] when nothing matches.")
	return b.String()
}

// TimestampedTranscript renders one "[start - end] text" line per segment,
// or the plain text when the transcript has no segments.
func TimestampedTranscript(tr types.Transcript) string {
	if len(tr.Segments) == 0 {
		return tr.PlainText()
	}
	var b strings.Builder
	for _, s := range tr.Segments {
		txt := strings.TrimSpace(s.Text)
		if txt == "" {
			continue
		}
		b.WriteString("[")
		b.WriteString(timecode.Format(s.Start))
		b.WriteString(" - ")
		b.WriteString(timecode.Format(s.End))
		b.WriteString("] ")
		b.WriteString(txt)
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}
