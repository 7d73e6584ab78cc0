package audio

import (
	"errors"
	"fmt"
	"io"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// wavFormatPCM is the WAVE_FORMAT_PCM tag written into the fmt chunk.
const wavFormatPCM = 1

// EncodeWAV writes pcm as a RIFF/WAV container to w. The header carries f's
// channel count and sample rate at [BitDepth]; the data chunk is exactly pcm,
// with no padding or truncation. pcm must hold whole frames.
func EncodeWAV(w io.WriteSeeker, pcm []byte, f Format) error {
	if f.SampleRate <= 0 || f.Channels <= 0 {
		return fmt.Errorf("audio: invalid wav format %s", f)
	}
	if len(pcm)%f.FrameBytes(1) != 0 {
		return fmt.Errorf("audio: pcm length %d is not a whole number of %s frames", len(pcm), f)
	}

	enc := wav.NewEncoder(w, f.SampleRate, BitDepth, f.Channels, wavFormatPCM)
	buf := &goaudio.IntBuffer{
		Format: &goaudio.Format{
			NumChannels: f.Channels,
			SampleRate:  f.SampleRate,
		},
		Data:           BytesToInts(pcm),
		SourceBitDepth: BitDepth,
	}
	if err := enc.Write(buf); err != nil {
		_ = enc.Close()
		return fmt.Errorf("audio: write wav data: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("audio: finalise wav header: %w", err)
	}
	return nil
}

// DecodeWAV reads a 16-bit PCM WAV container from r and returns its format
// and raw little-endian payload.
func DecodeWAV(r io.ReadSeeker) (Format, []byte, error) {
	dec := wav.NewDecoder(r)
	if !dec.IsValidFile() {
		if err := dec.Err(); err != nil {
			return Format{}, nil, fmt.Errorf("audio: invalid wav file: %w", err)
		}
		return Format{}, nil, errors.New("audio: invalid wav file")
	}
	if dec.WavAudioFormat != wavFormatPCM {
		return Format{}, nil, fmt.Errorf("audio: unsupported wav audio format %d", dec.WavAudioFormat)
	}
	if dec.BitDepth != BitDepth {
		return Format{}, nil, fmt.Errorf("audio: unsupported bit depth %d", dec.BitDepth)
	}

	f := Format{SampleRate: int(dec.SampleRate), Channels: int(dec.NumChans)}
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return Format{}, nil, fmt.Errorf("audio: read wav payload: %w", err)
	}
	return f, IntsToBytes(buf.Data), nil
}
