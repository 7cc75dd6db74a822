package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestObserveCatalog(t *testing.T) {
	before := testutil.ToFloat64(CatalogRequests.WithLabelValues("status", "success"))

	ObserveCatalog("status", "success", time.Now().Add(-15*time.Millisecond))
	ObserveCatalog("status", "success", time.Now())

	got := testutil.ToFloat64(CatalogRequests.WithLabelValues("status", "success"))
	if got-before != 2 {
		t.Errorf("status/success requests grew by %v, want 2", got-before)
	}

	if n := testutil.CollectAndCount(CatalogDuration); n == 0 {
		t.Error("CatalogDuration has no series after ObserveCatalog")
	}
}
