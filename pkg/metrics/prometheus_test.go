package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecorder(t *testing.T) {
	r := New()

	r.RecordAccepted("domestic", "live")
	r.RecordAccepted("domestic", "backup")
	r.RecordAccepted("domestic", "backup")
	r.RecordFetchFailure("kis", "network_error")
	r.RecordValidationReject("international")
	r.RecordRun("kr_close", 1500*time.Millisecond, true, 0.5)
	r.RecordPublish("simulated")

	assert.Equal(t, 2.0, testutil.ToFloat64(r.quotesAccepted.WithLabelValues("domestic", "backup")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.fetchFailures.WithLabelValues("kis", "network_error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.completeness.WithLabelValues("kr_close")))
	assert.Equal(t, 0.5, testutil.ToFloat64(r.liveRatio.WithLabelValues("kr_close")))
}

func TestRecorder_Independent(t *testing.T) {
	// 독립 레지스트리이므로 중복 등록 패닉이 없어야 함
	a, b := New(), New()
	a.RecordPublish("posted")
	assert.Equal(t, 0.0, testutil.ToFloat64(b.publishTotal.WithLabelValues("posted")))
}

func TestRecorder_NilSafe(t *testing.T) {
	var r *Recorder
	r.RecordAccepted("domestic", "live")
	r.RecordFetchFailure("kis", "auth_error")
	r.RecordValidationReject("domestic")
	r.RecordRun("us_close", time.Second, false, 0)
	r.RecordPublish("failed")
}

func TestHandler(t *testing.T) {
	r := New()
	r.RecordAccepted("international", "live")

	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), `briefing_quotes_accepted_total{origin="live",segment="international"} 1`))
}
