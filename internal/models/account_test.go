package models

import (
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePlatform(t *testing.T) {
	tests := []struct {
		input   string
		want    Platform
		wantErr bool
	}{
		{"youtube", PlatformYouTube, false},
		{"YouTube", PlatformYouTube, false},
		{"  twitter  ", PlatformTwitter, false},
		{"tiktok", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParsePlatform(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, ErrUnknownPlatform)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNewAccount(t *testing.T) {
	a := NewAccount("history-shorts", "ancient history", "")

	assert.NotEqual(t, uuid.Nil, a.ID)
	assert.Equal(t, "history-shorts", a.Nickname)
	assert.Equal(t, "ancient history", a.Niche)
	assert.Equal(t, "en", a.Language)
	require.NoError(t, a.Validate())
}

func TestAccountValidate(t *testing.T) {
	valid := NewAccount("nick", "space", "en")

	tests := []struct {
		name   string
		mutate func(*Account)
	}{
		{"missing id", func(a *Account) { a.ID = uuid.Nil }},
		{"missing nickname", func(a *Account) { a.Nickname = "  " }},
		{"missing niche", func(a *Account) { a.Niche = "" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := valid
			tt.mutate(&a)
			err := a.Validate()
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidAccount)
		})
	}
}

func TestAccountHistory(t *testing.T) {
	a := NewAccount("nick", "space", "en")
	a.Videos = []ContentRecord{{ID: "v1"}}
	a.Posts = []ContentRecord{{ID: "p1"}, {ID: "p2"}}

	assert.Len(t, a.History(PlatformYouTube), 1)
	assert.Len(t, a.History(PlatformTwitter), 2)
}

func TestAccountJSONRoundTrip(t *testing.T) {
	a := NewAccount("nick", "space", "de")
	a.ProfilePath = "/home/user/.mozilla/profile"

	data, err := json.Marshal(a)
	require.NoError(t, err)

	var decoded Account
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, a, decoded)
	// Empty histories are omitted from the document entirely.
	assert.NotContains(t, string(data), "videos")
	assert.NotContains(t, string(data), "posts")
}

func TestULIDJSON(t *testing.T) {
	id := NewULID()
	data, err := json.Marshal(id)
	require.NoError(t, err)

	var decoded ULID
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, id, decoded)

	var zero ULID
	data, err = json.Marshal(zero)
	require.NoError(t, err)
	assert.Equal(t, "null", string(data))

	require.NoError(t, json.Unmarshal([]byte("null"), &decoded))
	assert.True(t, decoded.IsZero())
}
