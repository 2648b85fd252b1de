package textgen

import "strings"

// Section boundary markers used to structure prompts and fence the model's
// reply. The stop sequence in the request config mirrors these so the
// backend halts at the response fence.
const (
	markerInstruction = "### Instruction ###"
	markerFormat      = "### Format ###"
	markerExample     = "### Example ###"
	markerResponse    = "### Response ###"
)

// Prompt is a structured prompt with optional format and example sections.
type Prompt struct {
	Instruction string
	Format      string
	Example     string
}

// Render produces the boundary-marked prompt text.
func (p Prompt) Render() string {
	var b strings.Builder
	b.WriteString(markerInstruction)
	b.WriteString("\n")
	b.WriteString(strings.TrimSpace(p.Instruction))
	b.WriteString("\n\n")

	if p.Format != "" {
		b.WriteString(markerFormat)
		b.WriteString("\n")
		b.WriteString(strings.TrimSpace(p.Format))
		b.WriteString("\n\n")
	}
	if p.Example != "" {
		b.WriteString(markerExample)
		b.WriteString("\n")
		b.WriteString(strings.TrimSpace(p.Example))
		b.WriteString("\n\n")
	}

	b.WriteString(markerResponse)
	b.WriteString("\n")
	return b.String()
}

// StripMarkers removes leaked boundary markers from a response. Some
// backends echo the prompt scaffolding; anything before a response marker
// is scaffolding, anything after a later marker is runaway generation.
func StripMarkers(text string) string {
	if idx := strings.Index(text, markerResponse); idx >= 0 {
		text = text[idx+len(markerResponse):]
	}
	if idx := strings.Index(text, "###"); idx >= 0 {
		text = text[:idx]
	}
	return strings.TrimSpace(text)
}
