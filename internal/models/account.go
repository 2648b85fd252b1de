// Package models defines the core reelforge entities: accounts, their
// publish history, and the per-run generation session.
package models

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Account validation errors.
var (
	ErrUnknownPlatform = errors.New("unknown platform")
	ErrInvalidAccount  = errors.New("invalid account")
)

// Platform identifies a publishing destination.
type Platform string

const (
	PlatformYouTube Platform = "youtube"
	PlatformTwitter Platform = "twitter"
)

// Platforms lists every supported platform.
func Platforms() []Platform {
	return []Platform{PlatformYouTube, PlatformTwitter}
}

// ParsePlatform converts a string to a Platform.
func ParsePlatform(s string) (Platform, error) {
	switch Platform(strings.ToLower(strings.TrimSpace(s))) {
	case PlatformYouTube:
		return PlatformYouTube, nil
	case PlatformTwitter:
		return PlatformTwitter, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownPlatform, s)
	}
}

// String returns the platform name.
func (p Platform) String() string {
	return string(p)
}

// ContentRecord is one published item in an account's history.
// Video uploads carry Title and URL; text posts carry Content.
type ContentRecord struct {
	ID      string    `json:"id"`
	Date    time.Time `json:"date"`
	Title   string    `json:"title,omitempty"`
	URL     string    `json:"url,omitempty"`
	Content string    `json:"content,omitempty"`
}

// Account is a configured publishing identity on one platform.
type Account struct {
	ID          uuid.UUID `json:"id"`
	Nickname    string    `json:"nickname"`
	ProfilePath string    `json:"profile_path,omitempty"` // browser profile for the automation path
	Niche       string    `json:"niche"`
	Language    string    `json:"language"`

	// Publish history. Videos is used for youtube accounts, Posts for twitter.
	Videos []ContentRecord `json:"videos,omitempty"`
	Posts  []ContentRecord `json:"posts,omitempty"`
}

// NewAccount creates an account with a fresh UUID.
func NewAccount(nickname, niche, language string) Account {
	if language == "" {
		language = "en"
	}
	return Account{
		ID:       uuid.New(),
		Nickname: nickname,
		Niche:    niche,
		Language: language,
	}
}

// Validate checks required account fields. Decoded documents pass through
// here so a malformed entry is rejected before anything acts on it.
func (a *Account) Validate() error {
	if a.ID == uuid.Nil {
		return fmt.Errorf("%w: missing id", ErrInvalidAccount)
	}
	if strings.TrimSpace(a.Nickname) == "" {
		return fmt.Errorf("%w: missing nickname", ErrInvalidAccount)
	}
	if strings.TrimSpace(a.Niche) == "" {
		return fmt.Errorf("%w: missing niche", ErrInvalidAccount)
	}
	return nil
}

// History returns the publish history for the given platform.
func (a *Account) History(platform Platform) []ContentRecord {
	if platform == PlatformTwitter {
		return a.Posts
	}
	return a.Videos
}
