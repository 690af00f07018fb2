package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestObserveProviderCall(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.ObserveProviderCall("groq", time.Now(), errors.New("boom"))
	m.ObserveProviderCall("huggingface", time.Now(), nil)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.ProviderCallsTotal.WithLabelValues("groq", "failure")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ProviderCallsTotal.WithLabelValues("huggingface", "success")))
}

func TestNilMetricsAreSafe(t *testing.T) {
	var m *Metrics
	m.ObserveReply("llm")
	m.ObserveProviderCall("groq", time.Now(), nil)
}
