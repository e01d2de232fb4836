package observability

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog/log"
)

func TestRegisterMetricsAndRecordersAreSafe(t *testing.T) {
	RegisterMetrics()
	RegisterMetrics()

	RecordHTTPRequest("viewctl", "GET", "/health", 200, 12*time.Millisecond)
	RecordBatch(3)
	SetActiveSessions(2)

	log.Debug().Msg("observability/metrics: registration idempotent and recording paths executed")
}

func TestRecordAckLabels(t *testing.T) {
	before := testutil.ToFloat64(renderAcks.WithLabelValues("ignored"))
	RecordAck(false)
	RecordAck(false)
	if got := testutil.ToFloat64(renderAcks.WithLabelValues("ignored")) - before; got != 2 {
		t.Fatalf("unexpected ignored delta: %v", got)
	}

	before = testutil.ToFloat64(renderPhased.WithLabelValues("deferred"))
	RecordPhased(true)
	if got := testutil.ToFloat64(renderPhased.WithLabelValues("deferred")) - before; got != 1 {
		t.Fatalf("unexpected deferred delta: %v", got)
	}
}
