package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestConnectionGaugeTracksOpenAndClose(t *testing.T) {
	m := New()
	m.ConnectionOpened()
	m.ConnectionOpened()
	m.ConnectionClosed()

	assert.Equal(t, float64(1), testutil.ToFloat64(m.connections))
}

func TestRoundCountersIncrement(t *testing.T) {
	m := New()
	m.RoundStarted()
	m.RoundStarted()
	m.RoundCompleted()

	assert.Equal(t, float64(2), testutil.ToFloat64(m.roundsStarted))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.roundsCompleted))
}

func TestBroadcastFailureCounter(t *testing.T) {
	m := New()
	m.BroadcastFailed()
	m.BroadcastFailed()
	m.BroadcastFailed()

	assert.Equal(t, float64(3), testutil.ToFloat64(m.broadcastFailures))
}

func TestMediaPlayerFailuresLabeledByPlatform(t *testing.T) {
	m := New()
	m.MediaPlayerFailed("sonos")
	m.MediaPlayerFailed("sonos")
	m.MediaPlayerFailed("alexa_media")

	assert.Equal(t, float64(2), testutil.ToFloat64(m.mediaFailures.WithLabelValues("sonos")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.mediaFailures.WithLabelValues("alexa_media")))
}

func TestObserveSaveLatencyDoesNotPanic(t *testing.T) {
	m := New()
	assert.NotPanics(t, func() {
		m.ObserveSaveLatency("analytics", 0.002)
		m.ObserveSaveLatency("stats", 0.05)
	})
}
