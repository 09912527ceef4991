package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestCollectors(t *testing.T) {
	RequestTotal.WithLabelValues("/v1/status", "GET", "200").Inc()
	assert.Equal(t, 1.0, testutil.ToFloat64(RequestTotal.WithLabelValues("/v1/status", "GET", "200")))

	MirrorBlock.WithLabelValues("eos").Set(42)
	assert.Equal(t, 42.0, testutil.ToFloat64(MirrorBlock.WithLabelValues("eos")))

	UpstreamTotal.WithLabelValues("get_info", "error").Inc()
	assert.Equal(t, 1, testutil.CollectAndCount(UpstreamTotal))
}
