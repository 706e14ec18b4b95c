package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestRegistry(t *testing.T) {
	r := require.New(t)

	Verifications.WithLabelValues("fixed", ResultValid).Inc()
	CacheBuilds.WithLabelValues(SourceDisk).Inc()

	families, err := Registry.Gather()
	r.NoError(err)

	names := make(map[string]bool)
	for _, f := range families {
		names[f.GetName()] = true
	}
	r.True(names["powseal_verifications_total"])
	r.True(names["powseal_cache_builds_total"])
	r.GreaterOrEqual(testutil.ToFloat64(Verifications.WithLabelValues("fixed", ResultValid)), 1.0)
}
