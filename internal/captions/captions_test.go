package captions

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reelforge/reelforge/internal/config"
	"github.com/reelforge/reelforge/internal/httpclient"
)

const sampleSRT = `1
00:00:00,000 --> 00:00:02,500
Rome was not built in a day

2
00:00:02,500 --> 00:00:05,000
but it burned in one
`

func TestParseSRT(t *testing.T) {
	cues, err := ParseSRT(sampleSRT)
	require.NoError(t, err)
	require.Len(t, cues, 2)

	assert.Equal(t, time.Duration(0), cues[0].Start)
	assert.Equal(t, 2500*time.Millisecond, cues[0].End)
	assert.Equal(t, "Rome was not built in a day", cues[0].Text)
	assert.Equal(t, 2500*time.Millisecond, cues[1].Start)
	assert.Equal(t, 5*time.Second, cues[1].End)
}

func TestParseSRTNoCues(t *testing.T) {
	_, err := ParseSRT("garbage")
	assert.Error(t, err)
}

func TestRebalanceMaxLineLength(t *testing.T) {
	cues := []Cue{{
		Start: 0,
		End:   10 * time.Second,
		Text:  "Rome was not built in a day but it burned in one",
	}}

	out := Rebalance(cues, 10)
	require.Greater(t, len(out), 1)

	for _, c := range out {
		assert.LessOrEqual(t, len(c.Text), 10, "cue %q too long", c.Text)
	}

	// Cues tile the original span without gaps or overlap.
	assert.Equal(t, time.Duration(0), out[0].Start)
	assert.Equal(t, 10*time.Second, out[len(out)-1].End)
	for i := 1; i < len(out); i++ {
		assert.Equal(t, out[i-1].End, out[i].Start)
	}
}

func TestRebalanceShortCuesUntouched(t *testing.T) {
	cues := []Cue{{Start: 0, End: time.Second, Text: "short"}}
	out := Rebalance(cues, 10)
	require.Len(t, out, 1)
	assert.Equal(t, cues[0], out[0])
}

func TestRebalanceOverlongWordKeptWhole(t *testing.T) {
	cues := []Cue{{Start: 0, End: time.Second, Text: "uncharacteristically long"}}
	out := Rebalance(cues, 10)
	require.Len(t, out, 2)
	assert.Equal(t, "uncharacteristically", out[0].Text)
	assert.Equal(t, "long", out[1].Text)
}

func TestFormatSRTRoundTrip(t *testing.T) {
	cues, err := ParseSRT(sampleSRT)
	require.NoError(t, err)

	formatted := FormatSRT(cues)
	reparsed, err := ParseSRT(formatted)
	require.NoError(t, err)
	assert.Equal(t, cues, reparsed)
}

func fastHTTP() *httpclient.Client {
	cfg := httpclient.DefaultConfig()
	cfg.RetryAttempts = 0
	return httpclient.New(cfg)
}

func TestTranscribeToSRT(t *testing.T) {
	var polls int32
	mux := http.NewServeMux()
	server := httptest.NewServer(mux)
	defer server.Close()

	mux.HandleFunc("/upload", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "test-key", r.Header.Get("Authorization"))
		body, _ := io.ReadAll(r.Body)
		assert.Equal(t, "fake audio bytes", string(body))
		json.NewEncoder(w).Encode(map[string]string{"upload_url": "https://cdn.example/audio"})
	})
	mux.HandleFunc("/transcript", func(w http.ResponseWriter, r *http.Request) {
		var req transcriptRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "https://cdn.example/audio", req.AudioURL)
		json.NewEncoder(w).Encode(map[string]string{"id": "job-1", "status": "queued"})
	})
	mux.HandleFunc("/transcript/job-1", func(w http.ResponseWriter, _ *http.Request) {
		status := "processing"
		if atomic.AddInt32(&polls, 1) >= 2 {
			status = "completed"
		}
		json.NewEncoder(w).Encode(map[string]string{"id": "job-1", "status": status})
	})
	mux.HandleFunc("/transcript/job-1/srt", func(w http.ResponseWriter, _ *http.Request) {
		io.WriteString(w, sampleSRT)
	})

	audio := filepath.Join(t.TempDir(), "speech.mp3")
	require.NoError(t, os.WriteFile(audio, []byte("fake audio bytes"), 0o644))

	cfg := config.CaptionsConfig{
		Endpoint:     server.URL,
		APIKey:       "test-key",
		PollInterval: 10 * time.Millisecond,
		PollTimeout:  time.Second,
	}
	c := NewClient(cfg, fastHTTP(), nil)

	srt, err := c.TranscribeToSRT(context.Background(), audio)
	require.NoError(t, err)
	assert.Equal(t, sampleSRT, srt)
	assert.GreaterOrEqual(t, atomic.LoadInt32(&polls), int32(2))
}

func TestTranscribeJobError(t *testing.T) {
	mux := http.NewServeMux()
	server := httptest.NewServer(mux)
	defer server.Close()

	mux.HandleFunc("/upload", func(w http.ResponseWriter, _ *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"upload_url": "https://cdn.example/audio"})
	})
	mux.HandleFunc("/transcript", func(w http.ResponseWriter, _ *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"id": "job-2", "status": "queued"})
	})
	mux.HandleFunc("/transcript/job-2", func(w http.ResponseWriter, _ *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"id": "job-2", "status": "error", "error": "bad audio"})
	})

	audio := filepath.Join(t.TempDir(), "speech.mp3")
	require.NoError(t, os.WriteFile(audio, []byte("x"), 0o644))

	cfg := config.CaptionsConfig{
		Endpoint:     server.URL,
		APIKey:       "test-key",
		PollInterval: 10 * time.Millisecond,
		PollTimeout:  time.Second,
	}
	c := NewClient(cfg, fastHTTP(), nil)

	_, err := c.TranscribeToSRT(context.Background(), audio)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTranscriptFailed)
	assert.Contains(t, err.Error(), "bad audio")
}

func TestTranscribeNoAPIKey(t *testing.T) {
	c := NewClient(config.CaptionsConfig{}, fastHTTP(), nil)
	_, err := c.TranscribeToSRT(context.Background(), "whatever.mp3")
	assert.ErrorIs(t, err, ErrNoAPIKey)
}
