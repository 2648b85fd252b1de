// Package prompts turns raw model output into an exact-count list of image
// prompts. The model is asked for a JSON array but rarely reliable about
// it, so parsing degrades through a cascade and the pipeline synthesizes
// generic prompts rather than stall with none.
package prompts

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/reelforge/reelforge/internal/config"
)

// variationSuffixes pad a short list with visual variations of existing
// prompts.
var variationSuffixes = []string{
	", different angle",
	", alternative view",
	", different lighting",
	", different style",
	", different mood",
}

// fallbackStyles synthesize prompts directly from the subject when parsing
// produced nothing at all.
var fallbackStyles = []string{
	"professional photography",
	"detailed view",
	"cinematic style",
	"dramatic lighting",
	"wide angle shot",
	"close-up detail",
}

// styleKeywords mark a prompt that already carries a style hint; prompts
// without one get a quality suffix.
var styleKeywords = []string{
	"photography", "photorealistic", "cinematic", "painting", "render",
	"illustration", "style", "quality", "detailed", "lighting", "shot",
}

var itemSplitRe = regexp.MustCompile(`\d+\.\s*|•\s*|\n-\s*|\n\*\s*|\n`)

// TargetCount derives the prompt count from script length, clamped to the
// configured window.
func TargetCount(sentences int, cfg config.PromptsConfig) int {
	n := sentences * cfg.PerSentence
	if n < cfg.MinCount {
		n = cfg.MinCount
	}
	if n > cfg.MaxCount {
		n = cfg.MaxCount
	}
	return n
}

// Parse extracts candidate prompt strings from raw model output, trying
// parse paths in order of decreasing strictness: direct JSON array, then
// enumerated/bulleted item extraction, then naive line splitting (the item
// regex subsumes the newline path). Candidates below minLength are
// discarded; exact duplicates are removed preserving order.
func Parse(raw string, minLength int) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}

	if list := parseJSONArray(raw); len(list) > 0 {
		return dedupe(filter(list, minLength))
	}
	return dedupe(filter(splitItems(raw), minLength))
}

// parseJSONArray tries a strict JSON array parse, trimming wrapping
// artifacts (markdown fences, prose before/after the brackets).
func parseJSONArray(raw string) []string {
	start := strings.Index(raw, "[")
	end := strings.LastIndex(raw, "]")
	if start < 0 || end <= start {
		return nil
	}

	var list []string
	if err := json.Unmarshal([]byte(raw[start:end+1]), &list); err != nil {
		return nil
	}
	for i := range list {
		list[i] = strings.TrimSpace(list[i])
	}
	return list
}

// splitItems breaks enumerated, bulleted, or newline-separated output into
// candidate strings.
func splitItems(raw string) []string {
	var items []string
	for _, part := range itemSplitRe.Split(raw, -1) {
		part = strings.Trim(strings.TrimSpace(part), `"',`)
		if part != "" {
			items = append(items, part)
		}
	}
	return items
}

// Synthesize builds n generic prompts from the subject. Quality degrades
// but the pipeline never stalls for lack of prompts.
func Synthesize(subject string, n int) []string {
	subject = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(subject), "."))
	out := make([]string, 0, n)
	for i := 0; i < n; i++ {
		style := fallbackStyles[i%len(fallbackStyles)]
		p := subject + ", " + style
		if i >= len(fallbackStyles) {
			p += variationSuffixes[(i/len(fallbackStyles)-1)%len(variationSuffixes)]
		}
		out = append(out, p)
	}
	return out
}

// Normalize forces a candidate list to exactly n unique entries: a style
// suffix is appended to prompts without one, deficits are padded with
// variation suffixes of existing entries, excess is truncated, and
// synthesis tops up if padding alone cannot reach n.
func Normalize(candidates []string, subject string, n int) []string {
	out := make([]string, 0, n)
	seen := make(map[string]bool)

	add := func(p string) bool {
		if len(out) >= n || p == "" || seen[p] {
			return false
		}
		seen[p] = true
		out = append(out, p)
		return true
	}

	for _, c := range candidates {
		add(ensureStyle(c))
	}

	// Pad with variations of what we have.
	base := append([]string(nil), out...)
	for round := 0; len(out) < n && round < len(variationSuffixes); round++ {
		for _, b := range base {
			if len(out) >= n {
				break
			}
			add(b + variationSuffixes[round])
		}
	}

	// Still short (empty parse, heavy duplication): synthesize from subject.
	if len(out) < n {
		for _, p := range Synthesize(subject, n*2) {
			if len(out) >= n {
				break
			}
			add(ensureStyle(p))
		}
	}

	if len(out) > n {
		out = out[:n]
	}
	return out
}

// Derive is the full path: parse raw output, fall back to synthesis when
// parsing yields nothing, and normalize to the target count.
func Derive(raw, subject string, sentences int, cfg config.PromptsConfig) []string {
	n := TargetCount(sentences, cfg)
	candidates := Parse(raw, cfg.MinLength)
	if len(candidates) == 0 {
		candidates = Synthesize(subject, n)
	}
	return Normalize(candidates, subject, n)
}

func ensureStyle(p string) string {
	lower := strings.ToLower(p)
	for _, kw := range styleKeywords {
		if strings.Contains(lower, kw) {
			return p
		}
	}
	return p + ", professional quality"
}

func filter(list []string, minLength int) []string {
	var out []string
	for _, s := range list {
		if len(s) >= minLength {
			out = append(out, s)
		}
	}
	return out
}

func dedupe(list []string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, s := range list {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}
