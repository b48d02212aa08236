package segment

import (
	"fmt"
	"sync/atomic"
	"time"
)

// AudioSegment is one contiguous span of non-silent audio, trimmed and ready
// for persistence. Immutable once constructed.
type AudioSegment struct {
	Name       string
	ClientID   string
	PCM        []byte // mono 16-bit signed little-endian PCM
	SampleRate int
	CapturedAt time.Time
}

// segmentCounter disambiguates rapid consecutive segments from the same
// client within one wall-clock second.
var segmentCounter atomic.Uint64

func nextSegmentName(clientID string, ts time.Time) string {
	n := segmentCounter.Add(1)
	return fmt.Sprintf("audio_%s_%s_%d.wav", clientID, ts.Format("20060102_150405"), n)
}
