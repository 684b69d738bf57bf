package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecordCredit(t *testing.T) {
	// Metrics are global; compare before and after.
	before := testutil.ToFloat64(StreakCredits.WithLabelValues("admitted"))
	RecordCredit("admitted")
	if after := testutil.ToFloat64(StreakCredits.WithLabelValues("admitted")); after != before+1 {
		t.Errorf("admitted counter = %v, want %v", after, before+1)
	}
}

func TestRecordEntry(t *testing.T) {
	before := testutil.ToFloat64(EntriesWritten.WithLabelValues("water"))
	RecordEntry("water")
	if after := testutil.ToFloat64(EntriesWritten.WithLabelValues("water")); after != before+1 {
		t.Errorf("water counter = %v, want %v", after, before+1)
	}
}

func TestRecordRequest(t *testing.T) {
	RecordRequest("GET", "/api/diary", 200, 15*time.Millisecond)
	if n := testutil.CollectAndCount(APIRequestDuration); n == 0 {
		t.Error("expected at least one request series")
	}
}
