package naver

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/korean"

	"github.com/ark-poiop/dkwjawj-renew/internal/contracts"
	"github.com/ark-poiop/dkwjawj-renew/pkg/config"
	"github.com/ark-poiop/dkwjawj-renew/pkg/httputil"
	"github.com/ark-poiop/dkwjawj-renew/pkg/logger"
)

const mainNewsHTML = `<html><body>
<ul class="mainNewsList">
  <li><dl>
    <dd class="articleSubject"><a href="/news/news_read.naver?article_id=1">코스피, 외국인 매수에 3400선 회복</a></dd>
  </dl></li>
  <li><dl>
    <dd class="articleSubject"><a href="/news/news_read.naver?article_id=2">  반도체 수출
      호조 지속 </a></dd>
  </dl></li>
  <li><dl>
    <dd class="articleSubject"><a href="/news/news_read.naver?article_id=3">코스피, 외국인 매수에 3400선 회복</a></dd>
  </dl></li>
  <li><dl>
    <dd class="articleSubject"><a href="https://n.news.naver.com/x">환율 1380원대 하락</a></dd>
  </dl></li>
</ul>
</body></html>`

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	cfg := &config.Config{}
	cfg.Briefing.AdapterTimeout = 2 * time.Second
	hc := httputil.NewForAdapter(cfg, logger.Nop())
	return NewClient(server.URL, hc, logger.Nop())
}

func TestHeadlines(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, mainNewsPath, r.URL.Path)
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(mainNewsHTML))
	})

	headlines, err := client.Headlines(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, headlines, 3)

	assert.Equal(t, "코스피, 외국인 매수에 3400선 회복", headlines[0].Title)
	assert.Equal(t, "반도체 수출 호조 지속", headlines[1].Title)
	assert.Equal(t, "https://n.news.naver.com/x", headlines[2].Link)
	assert.Contains(t, headlines[0].Link, "/news/news_read.naver?article_id=1")
	assert.Equal(t, contracts.SegmentDomestic, headlines[0].Segment)
	assert.Equal(t, Name, headlines[0].Source)
}

func TestHeadlines_Limit(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(mainNewsHTML))
	})

	headlines, err := client.Headlines(context.Background(), 1)
	require.NoError(t, err)
	assert.Len(t, headlines, 1)
}

func TestHeadlines_EUCKR(t *testing.T) {
	encoded, err := korean.EUCKR.NewEncoder().Bytes([]byte(mainNewsHTML))
	require.NoError(t, err)

	client := newTestClient(t, func(rw http.ResponseWriter, r *http.Request) {
		rw.Header().Set("Content-Type", "text/html; charset=EUC-KR")
		_, _ = rw.Write(encoded)
	})

	headlines, err := client.Headlines(context.Background(), 0)
	require.NoError(t, err)
	require.NotEmpty(t, headlines)
	assert.Equal(t, "코스피, 외국인 매수에 3400선 회복", headlines[0].Title)
}

func TestHeadlines_ServerError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	_, err := client.Headlines(context.Background(), 5)
	assert.Error(t, err)
}
