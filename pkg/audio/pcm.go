package audio

import "encoding/binary"

// Int16ToBytes serialises int16 samples as little-endian PCM.
func Int16ToBytes(samples []int16) []byte {
	out := make([]byte, len(samples)*BytesPerSample)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(out[i*2:], uint16(s))
	}
	return out
}

// BytesToInts decodes little-endian int16 PCM into the int samples used by
// go-audio buffers. Any trailing odd byte is ignored.
func BytesToInts(pcm []byte) []int {
	n := len(pcm) / BytesPerSample
	out := make([]int, n)
	for i := range n {
		out[i] = int(int16(binary.LittleEndian.Uint16(pcm[i*2:])))
	}
	return out
}

// IntsToBytes encodes int samples as little-endian int16 PCM, clamping values
// outside the int16 range.
func IntsToBytes(samples []int) []byte {
	out := make([]byte, len(samples)*BytesPerSample)
	for i, s := range samples {
		if s > 32767 {
			s = 32767
		} else if s < -32768 {
			s = -32768
		}
		binary.LittleEndian.PutUint16(out[i*2:], uint16(int16(s)))
	}
	return out
}

// ToFloat32Mono converts 16-bit PCM to float32 samples normalised to
// [-1.0, 1.0], averaging channels when channels > 1.
func ToFloat32Mono(pcm []byte, channels int) []float32 {
	if channels <= 1 {
		n := len(pcm) / BytesPerSample
		samples := make([]float32, n)
		for i := range n {
			samples[i] = float32(int16(binary.LittleEndian.Uint16(pcm[i*2:]))) / 32768.0
		}
		return samples
	}
	frames := len(pcm) / (BytesPerSample * channels)
	mono := make([]float32, frames)
	for i := range frames {
		var sum float32
		for ch := range channels {
			idx := (i*channels + ch) * 2
			sum += float32(int16(binary.LittleEndian.Uint16(pcm[idx:]))) / 32768.0
		}
		mono[i] = sum / float32(channels)
	}
	return mono
}
