package config

import (
	"sync"
	"sync/atomic"
	"time"
)

var (
	detectionInterval  atomic.Value
	detectionListeners []chan time.Duration
	listenersMu        sync.Mutex
)

func init() {
	detectionInterval.Store(time.Duration(0))
}

// SetBetweenTime recomputes the detection interval from the current config
// and notifies running routines.
func SetBetweenTime() {
	setDetectionInterval(calculateDetectionInterval(GetConfig()))
}

// CalculateBetweenTime converts a Timer into a duration, enforcing a one
// second minimum.
func CalculateBetweenTime(timer Timer) time.Duration {
	intervalMs := CalculateMillisecondsOfCheckingPeriod(timer)

	minInterval := uint64(1000)
	if intervalMs < minInterval {
		intervalMs = minInterval
	}

	return time.Duration(intervalMs) * time.Millisecond
}

func CalculateMillisecondsOfCheckingPeriod(timer Timer) uint64 {
	return uint64(timer.Days)*24*60*60*1000 +
		uint64(timer.Hours)*60*60*1000 +
		uint64(timer.Minutes)*60*1000 +
		uint64(timer.Seconds)*1000
}

// GetDetectionInterval returns the current interval between scheduled
// detection runs. Zero means scheduled runs are disabled.
func GetDetectionInterval() time.Duration {
	return detectionInterval.Load().(time.Duration)
}

// DetectionIntervalUpdates subscribes to interval changes. The current value
// is delivered immediately.
func DetectionIntervalUpdates() <-chan time.Duration {
	ch := make(chan time.Duration, 1)
	listenersMu.Lock()
	detectionListeners = append(detectionListeners, ch)
	listenersMu.Unlock()

	ch <- GetDetectionInterval()
	return ch
}

func setDetectionInterval(interval time.Duration) {
	current := GetDetectionInterval()
	if current == interval {
		return
	}

	detectionInterval.Store(interval)

	listenersMu.Lock()
	defer listenersMu.Unlock()
	for _, ch := range detectionListeners {
		select {
		case ch <- interval:
		default:
		}
	}
}

func calculateDetectionInterval(cfg Config) time.Duration {
	timer := cfg.Detection.DetectionTimer
	if timer.Days == 0 && timer.Hours == 0 && timer.Minutes == 0 && timer.Seconds == 0 {
		return 0
	}
	return CalculateBetweenTime(timer)
}
