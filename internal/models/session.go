package models

// Metadata is the title/description pair generated for an upload.
type Metadata struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

// Session carries the intermediate products of one generation run as it
// moves through the pipeline. Stages fill fields in order; a stage may
// assume everything produced by earlier stages is present.
type Session struct {
	ID      ULID    `json:"id"`
	Account Account `json:"account"`

	Subject      string   `json:"subject,omitempty"`
	Script       string   `json:"script,omitempty"`
	Metadata     Metadata `json:"metadata,omitempty"`
	ImagePrompts []string `json:"image_prompts,omitempty"`
	ImagePaths   []string `json:"image_paths,omitempty"`
	SpeechPath   string   `json:"speech_path,omitempty"`
	CaptionsPath string   `json:"captions_path,omitempty"`
	MusicPath    string   `json:"music_path,omitempty"`
	VideoPath    string   `json:"video_path,omitempty"`
	PublishedURL string   `json:"published_url,omitempty"`
}

// NewSession starts a session for the given account.
func NewSession(account Account) *Session {
	return &Session{
		ID:      NewULID(),
		Account: account,
	}
}
