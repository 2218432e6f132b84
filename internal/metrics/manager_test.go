package metrics_test

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/msomdec/tempo/internal/live"
	"github.com/msomdec/tempo/internal/metrics"
)

var _ live.Observer = (*metrics.Manager)(nil)

func TestManager_ObservesScreens(t *testing.T) {
	m := metrics.NewTestManager()

	m.ScreenOpened("session")
	m.ScreenOpened("session")
	m.ScreenClosed("session")
	assert.Equal(t, 1.0, testutil.ToFloat64(m.GaugeOpenScreens.WithLabelValues("session")))

	m.FieldCommitted("routine", true)
	m.FieldCommitted("routine", false)
	m.FieldCommitted("routine", true)
	assert.Equal(t, 2.0, testutil.ToFloat64(m.CounterAutosaves.WithLabelValues("routine", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CounterAutosaves.WithLabelValues("routine", "error")))
}

func TestManager_RegistersOnGivenRegistry(t *testing.T) {
	m, reg := metrics.NewTestManagerAndRegistry()
	m.AuthAttempt("password", true)
	m.CounterRequests.WithLabelValues("GET", "200").Inc()

	families, err := reg.Gather()
	require.NoError(t, err)

	names := map[string]bool{}
	for _, f := range families {
		names[f.GetName()] = true
	}
	assert.True(t, names["tempo_test_server_auth_attempts"])
	assert.True(t, names["tempo_test_server_request"])
}
