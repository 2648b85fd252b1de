// Package script cleans and validates generated narration scripts. A script
// is a newline-separated list of sentences; cleaning normalizes what the
// model produced, validation gates whether it is usable at all.
package script

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/reelforge/reelforge/internal/config"
)

// ErrInvalidScript is wrapped by every validation rejection.
var ErrInvalidScript = errors.New("invalid script")

// Strictness controls whether stylistic deviations reject a script or
// merely warn.
type Strictness int

const (
	// Strict rejects on any deviation, structural or stylistic.
	Strict Strictness = iota
	// Relaxed rejects only structural violations; stylistic deviations
	// become warnings.
	Relaxed
)

// ParseStrictness converts a config string to a Strictness.
func ParseStrictness(s string) (Strictness, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "strict", "":
		return Strict, nil
	case "relaxed":
		return Relaxed, nil
	default:
		return Strict, fmt.Errorf("unknown strictness %q", s)
	}
}

// minLineWords is the shortest line kept by cleaning. Shorter lines are
// fragments the model emits around the real content.
const minLineWords = 5

var (
	parentheticalRe = regexp.MustCompile(`\([^)]*\)`)
	bracketedRe     = regexp.MustCompile(`\[[^\]]*\]`)
	whitespaceRe    = regexp.MustCompile(`[ \t]+`)

	screenplayRe  = regexp.MustCompile(`(?i)\b(INT\.|EXT\.|FADE (IN|OUT)|CUT TO|SCENE \d)`)
	firstPersonRe = regexp.MustCompile(`(?i)\b(i|me|my|mine|we|us|our)\b`)
	dialogueRe    = regexp.MustCompile(`(?i)\b(said|asked|replied|spoke|called|whispered|shouted)\b`)
)

// starterSkipWords are ignored when finding a sentence's meaningful starter
// word.
var starterSkipWords = map[string]bool{
	"a": true, "an": true, "the": true, "in": true, "on": true,
	"at": true, "by": true, "to": true, "for": true, "with": true,
	"from": true,
}

// Clean normalizes a raw model script: line endings unified, markdown
// asterisks and quote characters stripped, parentheticals and bracketed
// stage directions removed, fragment lines dropped, terminal punctuation
// enforced, exact duplicate lines removed in order.
func Clean(raw string) string {
	raw = strings.ReplaceAll(raw, "\r\n", "\n")
	raw = strings.ReplaceAll(raw, "\r", "\n")

	seen := make(map[string]bool)
	var kept []string

	for _, line := range strings.Split(raw, "\n") {
		line = parentheticalRe.ReplaceAllString(line, "")
		line = bracketedRe.ReplaceAllString(line, "")
		line = strings.NewReplacer(`"`, "", "*", "", "“", "", "”", "", "‘", "", "’", "").Replace(line)
		line = whitespaceRe.ReplaceAllString(line, " ")
		line = strings.TrimSpace(line)

		if len(strings.Fields(line)) < minLineWords {
			continue
		}
		if !endsTerminal(line) {
			line += "."
		}
		if seen[line] {
			continue
		}
		seen[line] = true
		kept = append(kept, line)
	}

	return strings.Join(kept, "\n")
}

// Result is the outcome of a successful validation.
type Result struct {
	Sentences []string
	Warnings  []string
}

// Validate gates a cleaned script against the configured bounds.
// Structural violations (sentence count, screenplay tokens, first-person
// pronouns, dialogue attribution) always reject. Stylistic deviations
// (word totals, per-sentence length, repeated starter words) reject under
// Strict and warn under Relaxed.
func Validate(text string, cfg config.ScriptConfig, strictness Strictness) (Result, error) {
	sentences := splitSentences(text)

	// Hard gates.
	if n := len(sentences); n < cfg.MinSentences || n > cfg.MaxSentences {
		return Result{}, fmt.Errorf("%w: %d sentences, want %d-%d",
			ErrInvalidScript, n, cfg.MinSentences, cfg.MaxSentences)
	}
	for _, s := range sentences {
		if screenplayRe.MatchString(s) {
			return Result{}, fmt.Errorf("%w: screenplay formatting in %q", ErrInvalidScript, s)
		}
		if firstPersonRe.MatchString(s) {
			return Result{}, fmt.Errorf("%w: first-person pronoun in %q", ErrInvalidScript, s)
		}
		if dialogueRe.MatchString(s) {
			return Result{}, fmt.Errorf("%w: dialogue attribution in %q", ErrInvalidScript, s)
		}
	}

	// Soft gates.
	var warnings []string

	total := 0
	for _, s := range sentences {
		total += len(strings.Fields(s))
	}
	if total < cfg.MinWords || total > cfg.MaxWords {
		warnings = append(warnings, fmt.Sprintf("total word count %d outside %d-%d",
			total, cfg.MinWords, cfg.MaxWords))
	}

	for _, s := range sentences {
		n := len(strings.Fields(s))
		if n < cfg.SentenceMinWords || n > cfg.SentenceMaxWords {
			warnings = append(warnings, fmt.Sprintf("sentence word count %d outside %d-%d: %q",
				n, cfg.SentenceMinWords, cfg.SentenceMaxWords, s))
		}
	}

	starters := make(map[string]bool)
	for _, s := range sentences {
		w := starterWord(s)
		if w == "" {
			continue
		}
		if starters[w] {
			warnings = append(warnings, fmt.Sprintf("repeated starter word %q", w))
		}
		starters[w] = true
	}

	if strictness == Strict && len(warnings) > 0 {
		return Result{}, fmt.Errorf("%w: %s", ErrInvalidScript, strings.Join(warnings, "; "))
	}

	return Result{Sentences: sentences, Warnings: warnings}, nil
}

// splitSentences splits a cleaned script into sentences. Lines are the
// primary boundary; a line holding several sentences is further split on
// terminal punctuation.
func splitSentences(text string) []string {
	var sentences []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		start := 0
		for i, r := range line {
			if r == '.' || r == '!' || r == '?' {
				s := strings.TrimSpace(line[start : i+1])
				if s != "" && len(strings.Fields(s)) > 0 {
					sentences = append(sentences, s)
				}
				start = i + 1
			}
		}
		if rest := strings.TrimSpace(line[start:]); rest != "" {
			sentences = append(sentences, rest)
		}
	}
	return sentences
}

// starterWord returns the first meaningful word of a sentence, looking at
// most three words deep past the skip list.
func starterWord(s string) string {
	words := strings.Fields(strings.ToLower(s))
	limit := 3
	if len(words) < limit {
		limit = len(words)
	}
	for i := 0; i < limit; i++ {
		w := strings.Trim(words[i], ".,!?;:\"'")
		if w == "" || starterSkipWords[w] {
			continue
		}
		return w
	}
	return ""
}

func endsTerminal(s string) bool {
	return strings.HasSuffix(s, ".") || strings.HasSuffix(s, "!") || strings.HasSuffix(s, "?")
}
