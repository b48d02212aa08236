package audio

import (
	"encoding/binary"
	"fmt"
)

// Persisted segments are standard uncompressed WAV: RIFF container, mono,
// 16-bit signed little-endian PCM.

const (
	wavHeaderSize = 44
	numChannels   = 1
	bitsPerSample = 16
)

// EncodeWAV wraps raw mono 16-bit PCM in a WAV container.
func EncodeWAV(pcm []byte, sampleRate int) ([]byte, error) {
	if len(pcm) == 0 {
		return nil, fmt.Errorf("encode wav: empty audio payload")
	}
	if sampleRate <= 0 {
		return nil, fmt.Errorf("encode wav: invalid sample rate %d", sampleRate)
	}

	byteRate := sampleRate * numChannels * bitsPerSample / 8
	blockAlign := numChannels * bitsPerSample / 8

	out := make([]byte, wavHeaderSize+len(pcm))
	copy(out[0:4], "RIFF")
	binary.LittleEndian.PutUint32(out[4:8], uint32(36+len(pcm)))
	copy(out[8:12], "WAVE")
	copy(out[12:16], "fmt ")
	binary.LittleEndian.PutUint32(out[16:20], 16) // PCM fmt chunk size
	binary.LittleEndian.PutUint16(out[20:22], 1)  // audio format: PCM
	binary.LittleEndian.PutUint16(out[22:24], numChannels)
	binary.LittleEndian.PutUint32(out[24:28], uint32(sampleRate))
	binary.LittleEndian.PutUint32(out[28:32], uint32(byteRate))
	binary.LittleEndian.PutUint16(out[32:34], uint16(blockAlign))
	binary.LittleEndian.PutUint16(out[34:36], bitsPerSample)
	copy(out[36:40], "data")
	binary.LittleEndian.PutUint32(out[40:44], uint32(len(pcm)))
	copy(out[wavHeaderSize:], pcm)
	return out, nil
}

// DecodeWAV extracts the PCM payload and sample rate from a mono 16-bit WAV
// file produced by EncodeWAV.
func DecodeWAV(data []byte) ([]byte, int, error) {
	if len(data) < wavHeaderSize {
		return nil, 0, fmt.Errorf("decode wav: %d bytes is shorter than a WAV header", len(data))
	}
	if string(data[0:4]) != "RIFF" || string(data[8:12]) != "WAVE" {
		return nil, 0, fmt.Errorf("decode wav: not a RIFF/WAVE file")
	}
	if string(data[12:16]) != "fmt " || string(data[36:40]) != "data" {
		return nil, 0, fmt.Errorf("decode wav: unexpected chunk layout")
	}
	if format := binary.LittleEndian.Uint16(data[20:22]); format != 1 {
		return nil, 0, fmt.Errorf("decode wav: unsupported audio format %d", format)
	}
	if ch := binary.LittleEndian.Uint16(data[22:24]); ch != numChannels {
		return nil, 0, fmt.Errorf("decode wav: unsupported channel count %d", ch)
	}
	if bits := binary.LittleEndian.Uint16(data[34:36]); bits != bitsPerSample {
		return nil, 0, fmt.Errorf("decode wav: unsupported bit depth %d", bits)
	}

	sampleRate := int(binary.LittleEndian.Uint32(data[24:28]))
	dataSize := int(binary.LittleEndian.Uint32(data[40:44]))
	if dataSize <= 0 || wavHeaderSize+dataSize > len(data) {
		return nil, 0, fmt.Errorf("decode wav: data chunk size %d out of range", dataSize)
	}
	return data[wavHeaderSize : wavHeaderSize+dataSize], sampleRate, nil
}
