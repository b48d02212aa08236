package segment

import (
	"encoding/binary"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/entityinstall/audio-gateway/internal/audio"
)

func pcmChunk(amplitude int16, samples int) []byte {
	buf := make([]byte, samples*audio.SampleWidth)
	for i := 0; i < samples; i++ {
		binary.LittleEndian.PutUint16(buf[2*i:], uint16(amplitude))
	}
	return buf
}

func newTestAssembler(t0 time.Time) *Assembler {
	det := audio.NewDetector(audio.DetectorConfig{
		SilenceThreshold:  500,
		SilenceDuration:   400 * time.Millisecond,
		InactivityTimeout: 300 * time.Second,
	}, t0)
	return NewAssembler("client-1", 44100, 500, det, t0, zerolog.Nop())
}

func TestAssembler_BoundaryEmitsTrimmedSegment(t *testing.T) {
	t0 := time.Now()
	a := newTestAssembler(t0)

	// Three voiced chunks totalling 2000 bytes.
	for i, samples := range []int{500, 250, 250} {
		now := t0.Add(time.Duration(i*20+20) * time.Millisecond)
		if seg := a.Ingest(pcmChunk(2000, samples), now); seg != nil {
			t.Fatal("Expected no segment while voice continues")
		}
	}

	// 500ms of silence, fed in 100ms chunks; the boundary fires at 400ms
	// elapsed within the span.
	silenceStart := t0.Add(200 * time.Millisecond)
	var seg *AudioSegment
	for i := 0; i < 5; i++ {
		s := a.Ingest(pcmChunk(0, 441), silenceStart.Add(time.Duration(i*100)*time.Millisecond))
		if s != nil {
			seg = s
		}
	}

	if seg == nil {
		t.Fatal("Expected one segment after the silence window")
	}
	if len(seg.PCM) == 0 || len(seg.PCM) > 2000 {
		t.Errorf("Expected trimmed segment of at most 2000 bytes, got %d", len(seg.PCM))
	}
	if seg.ClientID != "client-1" {
		t.Errorf("Expected client-1, got %s", seg.ClientID)
	}
	if a.Buffered() != 0 {
		t.Errorf("Expected buffer cleared after boundary, got %d bytes", a.Buffered())
	}
}

func TestAssembler_SpuriousBoundaryOnConnectDiscarded(t *testing.T) {
	t0 := time.Now()
	a := newTestAssembler(t0)

	// Silence from the very first chunk: the boundary fires at 400ms but no
	// voiced interval ever elapsed, so nothing is emitted.
	for i := 0; i < 5; i++ {
		now := t0.Add(time.Duration(i*100) * time.Millisecond)
		if seg := a.Ingest(pcmChunk(0, 441), now); seg != nil {
			t.Fatal("Expected spurious boundary to be discarded")
		}
	}
	if a.Buffered() != 0 {
		t.Errorf("Expected buffer cleared after discard, got %d bytes", a.Buffered())
	}
}

func TestAssembler_FinalizeEmptyBuffer(t *testing.T) {
	a := newTestAssembler(time.Now())
	if seg := a.Finalize(time.Now()); seg != nil {
		t.Error("Expected nil segment for empty buffer")
	}
}

func TestAssembler_FinalizeAllSilent(t *testing.T) {
	t0 := time.Now()
	a := newTestAssembler(t0)
	a.Ingest(pcmChunk(5, 441), t0.Add(20*time.Millisecond))

	if seg := a.Finalize(t0.Add(40 * time.Millisecond)); seg != nil {
		t.Error("Expected nil segment for all-silent buffer")
	}
	if a.Buffered() != 0 {
		t.Error("Expected buffer cleared by finalize")
	}
}

func TestAssembler_FinalizeEmitsSegment(t *testing.T) {
	t0 := time.Now()
	a := newTestAssembler(t0)
	chunk := pcmChunk(2000, 500)
	a.Ingest(chunk, t0.Add(20*time.Millisecond))

	seg := a.Finalize(t0.Add(40 * time.Millisecond))
	if seg == nil {
		t.Fatal("Expected a segment from finalize")
	}
	if len(seg.PCM) != len(chunk) {
		t.Errorf("Expected %d PCM bytes, got %d", len(chunk), len(seg.PCM))
	}
	if !strings.HasPrefix(seg.Name, "audio_client-1_") || !strings.HasSuffix(seg.Name, ".wav") {
		t.Errorf("Unexpected segment name %q", seg.Name)
	}
	if a.Buffered() != 0 {
		t.Error("Expected buffer cleared by finalize")
	}
}

func TestAssembler_DiscardDropsBuffer(t *testing.T) {
	t0 := time.Now()
	a := newTestAssembler(t0)
	a.Ingest(pcmChunk(2000, 500), t0.Add(20*time.Millisecond))

	a.Discard(t0.Add(40 * time.Millisecond))
	if a.Buffered() != 0 {
		t.Error("Expected buffer cleared by discard")
	}
	if seg := a.Finalize(t0.Add(60 * time.Millisecond)); seg != nil {
		t.Error("Expected nothing to finalize after discard")
	}
}

func TestSegmentNamesUnique(t *testing.T) {
	ts := time.Now()
	a := nextSegmentName("c", ts)
	b := nextSegmentName("c", ts)
	if a == b {
		t.Errorf("Expected distinct names for same timestamp, got %q twice", a)
	}
}
