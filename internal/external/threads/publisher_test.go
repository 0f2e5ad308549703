package threads

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ark-poiop/dkwjawj-renew/internal/contracts"
	"github.com/ark-poiop/dkwjawj-renew/pkg/config"
	"github.com/ark-poiop/dkwjawj-renew/pkg/httputil"
	"github.com/ark-poiop/dkwjawj-renew/pkg/logger"
)

func newPublisher(t *testing.T, handler http.HandlerFunc, token string, dryRun bool) *Publisher {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	cfg := &config.Config{Env: "test", LogLevel: "error"}
	hc := httputil.NewWithTimeout(cfg, logger.Nop(), time.Second).DisableRetry()
	client := NewClient(config.ThreadsConfig{AccessToken: token, UserID: "42", BaseURL: server.URL}, hc, logger.Nop())
	return NewPublisher(client, dryRun, logger.Nop())
}

func TestPublish_TwoStep(t *testing.T) {
	var steps int32
	p := newPublisher(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "tok", r.PostForm.Get("access_token"))
		switch r.URL.Path {
		case "/42/threads":
			atomic.AddInt32(&steps, 1)
			assert.Equal(t, "TEXT", r.PostForm.Get("media_type"))
			assert.Equal(t, "hello", r.PostForm.Get("text"))
			_, _ = w.Write([]byte(`{"id":"c-1"}`))
		case "/42/threads_publish":
			atomic.AddInt32(&steps, 1)
			assert.Equal(t, "c-1", r.PostForm.Get("creation_id"))
			_, _ = w.Write([]byte(`{"id":"p-9"}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}, "tok", false)

	res, err := p.Publish(context.Background(), contracts.Post{BriefingType: contracts.BriefingKRClose, Text: "hello"})
	require.NoError(t, err)
	assert.Equal(t, "p-9", res.PostID)
	assert.False(t, res.Simulated)
	assert.Equal(t, int32(2), atomic.LoadInt32(&steps))
	assert.Equal(t, 1, p.Stats().Posted)
}

func TestPublish_SimulatedWithoutToken(t *testing.T) {
	p := newPublisher(t, func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("no request expected")
	}, "", false)

	res, err := p.Publish(context.Background(), contracts.Post{BriefingType: contracts.BriefingUSClose, Text: "본문"})
	require.NoError(t, err)
	assert.True(t, res.Simulated)
	assert.True(t, strings.HasPrefix(res.PostID, "simulated-us_close-"))
	assert.Equal(t, 2, res.Characters)
}

func TestPublish_DryRun(t *testing.T) {
	p := newPublisher(t, func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("no request expected")
	}, "tok", true)

	assert.True(t, p.Simulated())
	res, err := p.Publish(context.Background(), contracts.Post{BriefingType: contracts.BriefingKRMidday, Text: "x"})
	require.NoError(t, err)
	assert.True(t, res.Simulated)
}

func TestPublish_APIError(t *testing.T) {
	p := newPublisher(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"message":"Invalid OAuth access token","type":"OAuthException","code":190}}`))
	}, "tok", false)

	_, err := p.Publish(context.Background(), contracts.Post{BriefingType: contracts.BriefingKRClose, Text: "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Invalid OAuth access token")

	stats := p.Stats()
	assert.Equal(t, 1, stats.Failed)
	assert.Equal(t, 1, stats.ByType[contracts.BriefingKRClose])
}

func TestPublish_TruncatesLongText(t *testing.T) {
	p := newPublisher(t, nil, "", false)

	res, err := p.Publish(context.Background(), contracts.Post{BriefingType: contracts.BriefingKRClose, Text: strings.Repeat("가", 600)})
	require.NoError(t, err)
	assert.Equal(t, MaxTextLength, res.Characters)
}

func TestHistory_Bounded(t *testing.T) {
	p := newPublisher(t, nil, "", true)
	for i := 0; i < historyLimit+20; i++ {
		_, err := p.Publish(context.Background(), contracts.Post{BriefingType: contracts.BriefingUSPreview, Text: "x"})
		require.NoError(t, err)
	}
	assert.Len(t, p.History(), historyLimit)
	assert.Equal(t, historyLimit, p.Stats().Simulated)
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", truncate("abc", 5))
	out := truncate("가나다라마바", 4)
	assert.Equal(t, 4, utf8.RuneCountInString(out))
	assert.Equal(t, "가나다…", out)
}
