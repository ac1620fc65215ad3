package raid

import (
	"sync"
	"time"
)

// Alert is raised when a community's join rate crosses the threshold.
type Alert struct {
	CommunityID   string
	JoinCount     int
	WindowSeconds int
}

// Detector keeps a sliding window of join timestamps per community and
// raises an alert when the count inside the window reaches the threshold.
// After an alert the window is cleared, so one burst produces one alert.
type Detector struct {
	window    time.Duration
	threshold int

	mu    sync.Mutex
	joins map[string][]time.Time
}

func NewDetector(window time.Duration, threshold int) *Detector {
	return &Detector{
		window:    window,
		threshold: threshold,
		joins:     make(map[string][]time.Time),
	}
}

// Observe records a join at the given instant and returns a non-nil Alert if
// this join tips the community over the threshold.
func (d *Detector) Observe(communityID string, now time.Time) *Alert {
	d.mu.Lock()
	defer d.mu.Unlock()

	// Joins strictly older than the window are evicted; one exactly
	// window-old still counts.
	cutoff := now.Add(-d.window)
	kept := d.joins[communityID][:0]
	for _, t := range d.joins[communityID] {
		if !t.Before(cutoff) {
			kept = append(kept, t)
		}
	}
	kept = append(kept, now)

	if len(kept) >= d.threshold {
		delete(d.joins, communityID)
		return &Alert{
			CommunityID:   communityID,
			JoinCount:     len(kept),
			WindowSeconds: int(d.window.Seconds()),
		}
	}
	d.joins[communityID] = kept
	return nil
}
