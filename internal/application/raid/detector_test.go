package raid

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserve_BelowThresholdNoAlert(t *testing.T) {
	d := NewDetector(60*time.Second, 15)
	now := time.Unix(1_700_000_000, 0)

	for i := 0; i < 14; i++ {
		alert := d.Observe("c1", now.Add(time.Duration(i)*time.Second))
		assert.Nil(t, alert)
	}
}

func TestObserve_ThresholdAlertsOnceAndClears(t *testing.T) {
	d := NewDetector(60*time.Second, 15)
	now := time.Unix(1_700_000_000, 0)

	for i := 0; i < 14; i++ {
		require.Nil(t, d.Observe("c1", now))
	}
	alert := d.Observe("c1", now)
	require.NotNil(t, alert)
	assert.Equal(t, "c1", alert.CommunityID)
	assert.Equal(t, 15, alert.JoinCount)
	assert.Equal(t, 60, alert.WindowSeconds)

	// Window was cleared; the next join counts from one again.
	assert.Nil(t, d.Observe("c1", now))
}

func TestObserve_SlowJoinsNeverAlert(t *testing.T) {
	d := NewDetector(60*time.Second, 15)
	now := time.Unix(1_700_000_000, 0)

	// One join every 61 seconds keeps at most one timestamp in the window.
	for i := 0; i < 100; i++ {
		alert := d.Observe("c1", now.Add(time.Duration(i*61)*time.Second))
		require.Nil(t, alert)
	}
}

func TestObserve_EvictionAtExactBoundary(t *testing.T) {
	d := NewDetector(60*time.Second, 3)
	now := time.Unix(1_700_000_000, 0)

	require.Nil(t, d.Observe("c1", now))
	require.Nil(t, d.Observe("c1", now.Add(30*time.Second)))
	// The first join is exactly window-old and still counts: alert.
	require.NotNil(t, d.Observe("c1", now.Add(60*time.Second)))

	// A second past the boundary it is evicted.
	require.Nil(t, d.Observe("c1", now.Add(30*time.Second)))
	require.Nil(t, d.Observe("c1", now.Add(45*time.Second)))
	require.Nil(t, d.Observe("c1", now.Add(91*time.Second)))
}

func TestObserve_CommunitiesAreIndependent(t *testing.T) {
	d := NewDetector(60*time.Second, 3)
	now := time.Unix(1_700_000_000, 0)

	require.Nil(t, d.Observe("c1", now))
	require.Nil(t, d.Observe("c2", now))
	require.Nil(t, d.Observe("c1", now))
	require.Nil(t, d.Observe("c2", now))
	require.NotNil(t, d.Observe("c1", now))
	require.NotNil(t, d.Observe("c2", now))
}

func TestObserve_ManyCommunitiesConcurrent(t *testing.T) {
	d := NewDetector(60*time.Second, 1000)
	now := time.Unix(1_700_000_000, 0)

	done := make(chan struct{})
	for g := 0; g < 8; g++ {
		go func(g int) {
			defer func() { done <- struct{}{} }()
			for i := 0; i < 100; i++ {
				d.Observe(fmt.Sprintf("c%d", g), now)
			}
		}(g)
	}
	for g := 0; g < 8; g++ {
		<-done
	}
}
