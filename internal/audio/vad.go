package audio

import (
	"math"
	"time"
)

// SampleWidth is the number of bytes per sample for mono 16-bit signed PCM.
const SampleWidth = 2

// RMS computes the root-mean-square energy of 16-bit little-endian PCM data.
// A trailing odd byte is ignored.
func RMS(chunk []byte) float64 {
	n := len(chunk) / SampleWidth
	if n == 0 {
		return 0
	}
	var sum float64
	for i := 0; i < n; i++ {
		s := int16(chunk[2*i]) | int16(chunk[2*i+1])<<8
		sum += float64(s) * float64(s)
	}
	return math.Sqrt(sum / float64(n))
}

// DetectorConfig holds tuning for voice activity detection.
type DetectorConfig struct {
	SilenceThreshold  float64       // RMS energy below which a chunk counts as silent
	SilenceDuration   time.Duration // how long silence must persist before a boundary fires
	InactivityTimeout time.Duration // time without voice before the source counts as inactive
}

// Detector classifies PCM chunks as silent or voiced and applies hysteresis
// to decide when a silence span is long enough to close a speech segment.
// Brief dips below the threshold (a stop consonant, a breath) restart
// nothing: any voiced chunk cancels the pending silence timer.
type Detector struct {
	cfg DetectorConfig

	silenceStart time.Time // zero while not inside an unresolved silence span
	lastVoice    time.Time
}

// Event describes the outcome of feeding one chunk to the detector.
type Event struct {
	Voiced       bool
	Boundary     bool      // fired at most once per silence span
	SilenceStart time.Time // start of the span that closed; set when Boundary is true
}

// NewDetector creates a detector. now anchors the inactivity clock.
func NewDetector(cfg DetectorConfig, now time.Time) *Detector {
	return &Detector{cfg: cfg, lastVoice: now}
}

// Classify reports whether the chunk is voiced (energy at or above threshold).
func (d *Detector) Classify(chunk []byte) bool {
	return RMS(chunk) >= d.cfg.SilenceThreshold
}

// Observe feeds one chunk through the detector at the given time.
func (d *Detector) Observe(chunk []byte, now time.Time) Event {
	if d.Classify(chunk) {
		d.silenceStart = time.Time{}
		d.lastVoice = now
		return Event{Voiced: true}
	}

	if d.silenceStart.IsZero() {
		d.silenceStart = now
		return Event{}
	}

	if now.Sub(d.silenceStart) >= d.cfg.SilenceDuration {
		ev := Event{Boundary: true, SilenceStart: d.silenceStart}
		d.silenceStart = time.Time{}
		return ev
	}
	return Event{}
}

// Inactive reports whether no voiced chunk has been seen for longer than the
// inactivity timeout. This is a session-lifetime signal, independent of the
// sub-second boundary hysteresis.
func (d *Detector) Inactive(now time.Time) bool {
	return now.Sub(d.lastVoice) > d.cfg.InactivityTimeout
}

// Reset cancels any pending silence span, e.g. after a segment is finalized.
func (d *Detector) Reset() {
	d.silenceStart = time.Time{}
}
