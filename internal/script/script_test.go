package script

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reelforge/reelforge/internal/config"
)

func boundsConfig() config.ScriptConfig {
	return config.ScriptConfig{
		MinSentences:     10,
		MaxSentences:     12,
		MinWords:         150,
		MaxWords:         250,
		SentenceMinWords: 10,
		SentenceMaxWords: 20,
		Strictness:       "strict",
	}
}

// validScript builds a script with n sentences of wordsEach words, each
// starting with a distinct word.
func validScript(n, wordsEach int) string {
	starters := []string{
		"Ancient", "Rome", "Sailors", "Merchants", "Temples", "Legions",
		"Roads", "Harbors", "Scholars", "Emperors", "Citizens", "Festivals",
	}
	var lines []string
	for i := 0; i < n; i++ {
		words := []string{starters[i%len(starters)]}
		for len(words) < wordsEach {
			words = append(words, "endured")
		}
		lines = append(lines, strings.Join(words, " ")+".")
	}
	return strings.Join(lines, "\n")
}

func TestCleanStripsArtifacts(t *testing.T) {
	raw := "The city thrived for (dramatic pause) many centuries in peace.\r\n" +
		"*The harbor* [wide shot] welcomed hundreds of trading vessels yearly\n" +
		"ok\n" +
		"\"Markets\" bustled beneath the ancient painted stone arches daily."

	cleaned := Clean(raw)
	lines := strings.Split(cleaned, "\n")
	require.Len(t, lines, 3)

	assert.Equal(t, "The city thrived for many centuries in peace.", lines[0])
	assert.Equal(t, "The harbor welcomed hundreds of trading vessels yearly.", lines[1])
	assert.Equal(t, "Markets bustled beneath the ancient painted stone arches daily.", lines[2])
}

func TestCleanDropsShortLines(t *testing.T) {
	cleaned := Clean("Too short here.\nThis line has enough words to survive cleaning.")
	assert.Equal(t, "This line has enough words to survive cleaning.", cleaned)
}

func TestCleanDeduplicatesExactLines(t *testing.T) {
	line := "The same sentence appears twice in this output."
	cleaned := Clean(line + "\n" + line)
	assert.Equal(t, line, cleaned)
}

func TestCleanAppendsTerminalPunctuation(t *testing.T) {
	cleaned := Clean("A sentence missing its final punctuation mark entirely")
	assert.True(t, strings.HasSuffix(cleaned, "."))
}

func TestValidateAcceptsGoodScript(t *testing.T) {
	text := validScript(10, 16)

	res, err := Validate(text, boundsConfig(), Strict)
	require.NoError(t, err)
	assert.Len(t, res.Sentences, 10)
	assert.Empty(t, res.Warnings)

	for _, s := range res.Sentences {
		last := s[len(s)-1]
		assert.Contains(t, ".!?", string(last))
	}
}

func TestValidateRejectsShortFirstPersonScript(t *testing.T) {
	// Two short sentences containing "I": rejected on sentence count first.
	_, err := Validate("Hello there. I went home.", boundsConfig(), Strict)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidScript)
	assert.Contains(t, err.Error(), "sentences")
}

func TestValidateRejectsFirstPerson(t *testing.T) {
	lines := strings.Split(validScript(10, 16), "\n")
	lines[4] = "We walked through the ruined forum at dawn together quietly today."
	_, err := Validate(strings.Join(lines, "\n"), boundsConfig(), Strict)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "first-person")
}

func TestValidateRejectsScreenplayTokens(t *testing.T) {
	lines := strings.Split(validScript(10, 16), "\n")
	lines[0] = "INT. forum interior where merchants argued about the grain prices."
	_, err := Validate(strings.Join(lines, "\n"), boundsConfig(), Strict)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "screenplay")
}

func TestValidateRejectsDialogueAttribution(t *testing.T) {
	lines := strings.Split(validScript(10, 16), "\n")
	lines[2] = "The senator said the harvest would fail across the whole province."
	_, err := Validate(strings.Join(lines, "\n"), boundsConfig(), Strict)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "dialogue")
}

func TestValidateStrictRejectsStyleDeviations(t *testing.T) {
	// 10 sentences but each only 8 words: per-sentence and total counts are off.
	text := validScript(10, 8)
	_, err := Validate(text, boundsConfig(), Strict)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidScript)
}

func TestValidateRelaxedWarnsOnStyleDeviations(t *testing.T) {
	text := validScript(10, 8)
	res, err := Validate(text, boundsConfig(), Relaxed)
	require.NoError(t, err)
	assert.NotEmpty(t, res.Warnings)
	assert.Len(t, res.Sentences, 10)
}

func TestValidateRepeatedStarterWord(t *testing.T) {
	lines := strings.Split(validScript(10, 16), "\n")
	// Make two sentences share a meaningful starter; "The" is skipped, so
	// the starter of both is "legions".
	lines[0] = "The legions marched north across the frozen river into enemy lands."
	lines[1] = "Legions built their winter camps beside the river every single year."

	res, err := Validate(strings.Join(lines, "\n"), boundsConfig(), Relaxed)
	require.NoError(t, err)

	found := false
	for _, w := range res.Warnings {
		if strings.Contains(w, "starter word") {
			found = true
		}
	}
	assert.True(t, found, "expected a repeated starter word warning, got %v", res.Warnings)
}

func TestParseStrictness(t *testing.T) {
	s, err := ParseStrictness("strict")
	require.NoError(t, err)
	assert.Equal(t, Strict, s)

	s, err = ParseStrictness("Relaxed")
	require.NoError(t, err)
	assert.Equal(t, Relaxed, s)

	s, err = ParseStrictness("")
	require.NoError(t, err)
	assert.Equal(t, Strict, s)

	_, err = ParseStrictness("lenient")
	assert.Error(t, err)
}
