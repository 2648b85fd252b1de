// Package captions fetches subtitles from a transcription service and
// reshapes them for vertical video: long caption lines are rebalanced into
// short cues so no line exceeds a character budget on screen.
package captions

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// Cue is one subtitle entry.
type Cue struct {
	Start time.Duration
	End   time.Duration
	Text  string
}

var timingRe = regexp.MustCompile(`(\d{2}):(\d{2}):(\d{2})[,.](\d{3})\s*-->\s*(\d{2}):(\d{2}):(\d{2})[,.](\d{3})`)

// ParseSRT parses SRT text into cues. Index lines are ignored; cue order
// is the file order.
func ParseSRT(text string) ([]Cue, error) {
	var cues []Cue

	blocks := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n\n")
	for _, block := range blocks {
		lines := strings.Split(strings.TrimSpace(block), "\n")
		if len(lines) < 2 {
			continue
		}

		// Optional numeric index on the first line.
		timingLine := lines[0]
		textStart := 1
		if !timingRe.MatchString(timingLine) && len(lines) >= 2 {
			timingLine = lines[1]
			textStart = 2
		}

		m := timingRe.FindStringSubmatch(timingLine)
		if m == nil {
			continue
		}

		start, err := parseTimestamp(m[1], m[2], m[3], m[4])
		if err != nil {
			return nil, err
		}
		end, err := parseTimestamp(m[5], m[6], m[7], m[8])
		if err != nil {
			return nil, err
		}

		text := strings.TrimSpace(strings.Join(lines[textStart:], " "))
		if text == "" {
			continue
		}
		cues = append(cues, Cue{Start: start, End: end, Text: text})
	}

	if len(cues) == 0 {
		return nil, fmt.Errorf("no cues found in subtitle text")
	}
	return cues, nil
}

func parseTimestamp(h, m, s, ms string) (time.Duration, error) {
	d, err := time.ParseDuration(fmt.Sprintf("%sh%sm%ss%sms", h, m, s, ms))
	if err != nil {
		return 0, fmt.Errorf("parsing subtitle timestamp: %w", err)
	}
	return d, nil
}

// Rebalance splits every cue whose text exceeds maxChars into several
// shorter cues. Splits happen on word boundaries; each new cue's time span
// is prorated by its share of the original text.
func Rebalance(cues []Cue, maxChars int) []Cue {
	if maxChars < 1 {
		return cues
	}

	var out []Cue
	for _, cue := range cues {
		chunks := splitWords(cue.Text, maxChars)
		if len(chunks) <= 1 {
			out = append(out, cue)
			continue
		}

		total := 0
		for _, c := range chunks {
			total += len(c)
		}

		span := cue.End - cue.Start
		pos := cue.Start
		for i, c := range chunks {
			share := time.Duration(float64(span) * float64(len(c)) / float64(total))
			end := pos + share
			if i == len(chunks)-1 {
				end = cue.End
			}
			out = append(out, Cue{Start: pos, End: end, Text: c})
			pos = end
		}
	}
	return out
}

// splitWords greedily packs words into chunks of at most maxChars. A
// single word longer than maxChars becomes its own chunk rather than being
// broken mid-word.
func splitWords(text string, maxChars int) []string {
	words := strings.Fields(text)
	var chunks []string
	var current string

	for _, w := range words {
		switch {
		case current == "":
			current = w
		case len(current)+1+len(w) <= maxChars:
			current += " " + w
		default:
			chunks = append(chunks, current)
			current = w
		}
	}
	if current != "" {
		chunks = append(chunks, current)
	}
	return chunks
}

// FormatSRT renders cues back to SRT text with sequential indices.
func FormatSRT(cues []Cue) string {
	var b strings.Builder
	for i, cue := range cues {
		fmt.Fprintf(&b, "%d\n%s --> %s\n%s\n\n",
			i+1, formatTimestamp(cue.Start), formatTimestamp(cue.End), cue.Text)
	}
	return b.String()
}

func formatTimestamp(d time.Duration) string {
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	s := int(d.Seconds()) % 60
	ms := int(d.Milliseconds()) % 1000
	return fmt.Sprintf("%02d:%02d:%02d,%03d", h, m, s, ms)
}
