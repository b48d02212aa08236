package segment

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/entityinstall/audio-gateway/internal/audio"
)

// boundaryGuard rejects boundaries where effectively no voiced audio elapsed
// between the start of recording and the start of the closing silence span,
// e.g. a spurious boundary right after connect.
const boundaryGuard = 10 * time.Millisecond

// Assembler owns the growing audio buffer for one session. It appends
// incoming chunks, consults the detector for segment boundaries, and emits
// trimmed segments. Not safe for concurrent use; each session task owns one.
type Assembler struct {
	clientID   string
	sampleRate int
	threshold  float64
	det        *audio.Detector
	logger     zerolog.Logger

	buf            []byte
	recordingStart time.Time
}

// NewAssembler creates an assembler for one client's stream.
func NewAssembler(clientID string, sampleRate int, threshold float64, det *audio.Detector, now time.Time, logger zerolog.Logger) *Assembler {
	return &Assembler{
		clientID:       clientID,
		sampleRate:     sampleRate,
		threshold:      threshold,
		det:            det,
		logger:         logger,
		recordingStart: now,
	}
}

// Ingest appends a chunk and returns a finalized segment if this chunk closed
// a boundary with genuine voiced audio behind it. Returns nil otherwise.
// The buffer and silence timer are reset whenever a boundary fires, whether
// or not a segment was emitted.
func (a *Assembler) Ingest(chunk []byte, now time.Time) *AudioSegment {
	a.buf = append(a.buf, chunk...)
	ev := a.det.Observe(chunk, now)
	if !ev.Boundary {
		return nil
	}

	var seg *AudioSegment
	if a.recordingStart.Before(ev.SilenceStart.Add(-boundaryGuard)) {
		seg = a.emit(now)
	} else {
		a.logger.Debug().Msg("Discarding boundary with no voiced interval")
	}
	a.reset(now)
	return seg
}

// Finalize trims and emits whatever is buffered, without waiting for a
// detector boundary. Used for explicit stop commands. The buffer is always
// cleared; nil is returned when it was empty or entirely silent.
func (a *Assembler) Finalize(now time.Time) *AudioSegment {
	seg := a.emit(now)
	a.reset(now)
	return seg
}

// Discard drops any buffered audio without emitting.
func (a *Assembler) Discard(now time.Time) {
	a.reset(now)
}

// Buffered returns the number of bytes currently accumulated.
func (a *Assembler) Buffered() int {
	return len(a.buf)
}

func (a *Assembler) emit(now time.Time) *AudioSegment {
	if len(a.buf) == 0 {
		return nil
	}
	trimmed := audio.TrimSilence(a.buf, audio.SampleWidth, a.threshold)
	if len(trimmed) == 0 {
		a.logger.Info().Msg("No non-silent audio detected, dropping buffer")
		return nil
	}
	pcm := make([]byte, len(trimmed))
	copy(pcm, trimmed)
	return &AudioSegment{
		Name:       nextSegmentName(a.clientID, now),
		ClientID:   a.clientID,
		PCM:        pcm,
		SampleRate: a.sampleRate,
		CapturedAt: now,
	}
}

func (a *Assembler) reset(now time.Time) {
	a.buf = a.buf[:0]
	a.recordingStart = now
	a.det.Reset()
}
