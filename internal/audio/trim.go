package audio

// TrimSilence strips leading and trailing silence from a PCM buffer. It scans
// forward and backward in sample-width steps and returns the inclusive span
// between the first and last step whose RMS energy meets the threshold.
// A buffer where no step crosses the threshold yields an empty slice; callers
// must drop such buffers rather than persist them.
func TrimSilence(buf []byte, sampleWidth int, threshold float64) []byte {
	start := -1
	for i := 0; i+sampleWidth <= len(buf); i += sampleWidth {
		if RMS(buf[i:i+sampleWidth]) >= threshold {
			start = i
			break
		}
	}
	if start < 0 {
		return nil
	}

	end := start + sampleWidth
	for i := len(buf) - sampleWidth; i > start; i -= sampleWidth {
		if RMS(buf[i:i+sampleWidth]) >= threshold {
			end = i + sampleWidth
			break
		}
	}
	return buf[start:end]
}
