package audio

import (
	"bytes"
	"encoding/binary"
	"testing"
)

func TestEncodeWAV_Header(t *testing.T) {
	pcm := pcmChunk(1000, 100)
	data, err := EncodeWAV(pcm, 44100)
	if err != nil {
		t.Fatalf("EncodeWAV() failed: %v", err)
	}

	if len(data) != wavHeaderSize+len(pcm) {
		t.Errorf("Expected %d bytes, got %d", wavHeaderSize+len(pcm), len(data))
	}
	if string(data[0:4]) != "RIFF" || string(data[8:12]) != "WAVE" {
		t.Error("Expected RIFF/WAVE magic")
	}
	if ch := binary.LittleEndian.Uint16(data[22:24]); ch != 1 {
		t.Errorf("Expected mono, got %d channels", ch)
	}
	if rate := binary.LittleEndian.Uint32(data[24:28]); rate != 44100 {
		t.Errorf("Expected sample rate 44100, got %d", rate)
	}
	if bits := binary.LittleEndian.Uint16(data[34:36]); bits != 16 {
		t.Errorf("Expected 16 bits per sample, got %d", bits)
	}
	if size := binary.LittleEndian.Uint32(data[40:44]); int(size) != len(pcm) {
		t.Errorf("Expected data chunk size %d, got %d", len(pcm), size)
	}
}

func TestEncodeWAV_RejectsEmpty(t *testing.T) {
	if _, err := EncodeWAV(nil, 44100); err == nil {
		t.Error("Expected error for empty payload")
	}
	if _, err := EncodeWAV(pcmChunk(1000, 10), 0); err == nil {
		t.Error("Expected error for zero sample rate")
	}
}

func TestWAV_RoundTrip(t *testing.T) {
	pcm := pcmChunk(3000, 441)
	data, err := EncodeWAV(pcm, 44100)
	if err != nil {
		t.Fatalf("EncodeWAV() failed: %v", err)
	}

	decoded, rate, err := DecodeWAV(data)
	if err != nil {
		t.Fatalf("DecodeWAV() failed: %v", err)
	}
	if rate != 44100 {
		t.Errorf("Expected sample rate 44100, got %d", rate)
	}
	if !bytes.Equal(decoded, pcm) {
		t.Error("Expected byte-identical PCM after round trip")
	}
}

func TestDecodeWAV_RejectsGarbage(t *testing.T) {
	if _, _, err := DecodeWAV([]byte("too short")); err == nil {
		t.Error("Expected error for truncated input")
	}

	junk := make([]byte, 64)
	if _, _, err := DecodeWAV(junk); err == nil {
		t.Error("Expected error for non-WAV input")
	}
}
