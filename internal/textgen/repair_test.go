package textgen

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRepairPlainText(t *testing.T) {
	assert.Equal(t, "Just a sentence.", Repair("  Just a sentence.  "))
}

func TestRepairJSONEnvelope(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"response key", `{"response": "The payload."}`, "The payload."},
		{"content key", `{"content": "The payload."}`, "The payload."},
		{"result key", `{"result": "The payload."}`, "The payload."},
		{"text key", `{"text": "The payload."}`, "The payload."},
		{"output key", `{"output": "The payload."}`, "The payload."},
		{"response wins over text", `{"text": "no", "response": "yes"}`, "yes"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Repair(tt.raw))
		})
	}
}

func TestRepairNestedJSON(t *testing.T) {
	raw := `{"response": "{\"content\": \"Deeply nested payload.\"}"}`
	assert.Equal(t, "Deeply nested payload.", Repair(raw))
}

func TestRepairChunkedResponse(t *testing.T) {
	raw := `{"response": "First half of the sen"}{"response": "tence continues here."}`
	assert.Equal(t, "First half of the sentence continues here.", Repair(raw))
}

func TestRepairChunkedIgnoresBracesInStrings(t *testing.T) {
	raw := `{"response": "a { literal } brace"}{"response": " and more"}`
	assert.Equal(t, "a { literal } brace and more", Repair(raw))
}

func TestRepairUnrecognizedWrapperStringifies(t *testing.T) {
	raw := `{"alpha": "first", "beta": "second"}`
	// Best-effort stringify in stable key order rather than failure.
	assert.Equal(t, "first second", Repair(raw))
}

func TestRepairEmpty(t *testing.T) {
	assert.Equal(t, "", Repair(""))
	assert.Equal(t, "", Repair("   "))
}

func TestIsTruncated(t *testing.T) {
	tests := []struct {
		name string
		text string
		want bool
	}{
		{"trailing ellipsis", "the scene was...", true},
		{"unicode ellipsis", "the scene was…", true},
		{"unbalanced brace", `{"response": "half`, true},
		{"odd quote count", `He said "hello`, true},
		{"dangling conjunction", "The ship sailed into the night and", true},
		{"dangling article", "They walked toward the", true},
		{"complete sentence", "The ship sailed into the night.", false},
		{"question", "Where did the ship go?", false},
		{"empty", "", false},
		{"article mid-sentence is fine", "The cat sat on the mat.", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsTruncated(tt.text), "text: %q", tt.text)
		})
	}
}

func TestPromptRender(t *testing.T) {
	p := Prompt{
		Instruction: "Write one topic sentence.",
		Format:      "A single plain sentence.",
		Example:     "The fall of Carthage reshaped the Mediterranean.",
	}
	rendered := p.Render()

	assert.Contains(t, rendered, "### Instruction ###\nWrite one topic sentence.")
	assert.Contains(t, rendered, "### Format ###\nA single plain sentence.")
	assert.Contains(t, rendered, "### Example ###\nThe fall of Carthage")
	assert.True(t, len(rendered) > 0)
	assert.Contains(t, rendered, "### Response ###\n")
}

func TestPromptRenderOmitsEmptySections(t *testing.T) {
	rendered := Prompt{Instruction: "Do the thing."}.Render()
	assert.NotContains(t, rendered, "### Format ###")
	assert.NotContains(t, rendered, "### Example ###")
	assert.Contains(t, rendered, "### Response ###")
}

func TestStripMarkers(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"echoed scaffolding", "### Instruction ###\nblah\n### Response ###\nThe answer.", "The answer."},
		{"runaway generation", "The answer.\n### Instruction ###\nmore", "The answer."},
		{"clean response", "The answer.", "The answer."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, StripMarkers(tt.in))
		})
	}
}
