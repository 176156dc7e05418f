package mastering

import (
	"bytes"
	"encoding/binary"
)

// bytesToFloat32 decodes a little-endian float32 PCM payload, the wire
// format GetChunk/StreamTrack exchange over their []byte return values.
func bytesToFloat32(data []byte) []float32 {
	n := len(data) / 4
	out := make([]float32, n)
	_ = binary.Read(bytes.NewReader(data), binary.LittleEndian, out)
	return out
}

// float32ToBytes encodes samples as little-endian float32 PCM bytes.
func float32ToBytes(samples []float32) []byte {
	buf := &bytes.Buffer{}
	buf.Grow(len(samples) * 4)
	_ = binary.Write(buf, binary.LittleEndian, samples)
	return buf.Bytes()
}

// silencePCM returns the little-endian PCM byte encoding of frames of
// digital silence across channels, the payload buildChunk substitutes for
// a chunk whose build exceeded its ProcessingTimeout (spec.md §7).
func silencePCM(channels, frames int) []byte {
	if channels <= 0 || frames <= 0 {
		return nil
	}
	return float32ToBytes(make([]float32, channels*frames))
}

// DecodePCM decodes one GetChunk/StreamChunk payload back into planar
// float64 samples, for callers (cmd/mastercli) that consume the engine's
// []byte wire format directly rather than through TrackSource.
func DecodePCM(data []byte, channels int) [][]float64 {
	return planarFromInterleavedFloat32(bytesToFloat32(data), channels)
}

// interleavePlanar converts channel-deinterleaved float64 samples into a
// single interleaved float32 slice (little-endian byte order applied by
// the caller via encoding/binary).
func interleavePlanar(channels [][]float64) []float32 {
	if len(channels) == 0 {
		return nil
	}
	n := len(channels[0])
	out := make([]float32, n*len(channels))
	for i := 0; i < n; i++ {
		for c := range channels {
			out[i*len(channels)+c] = float32(channels[c][i])
		}
	}
	return out
}

// planarToInterleavedFloat32 appends the interleaved form of channels
// into *dst.
func planarToInterleavedFloat32(channels [][]float64, dst *[]float32) {
	*dst = append(*dst, interleavePlanar(channels)...)
}

// planarFromInterleavedFloat32 splits an interleaved float32 buffer back
// into per-channel float64 slices.
func planarFromInterleavedFloat32(buf []float32, channels int) [][]float64 {
	if channels <= 0 {
		return nil
	}
	n := len(buf) / channels
	out := make([][]float64, channels)
	for c := range out {
		out[c] = make([]float64, n)
	}
	for i := 0; i < n; i++ {
		for c := 0; c < channels; c++ {
			out[c][i] = float64(buf[i*channels+c])
		}
	}
	return out
}

// trimPlanar removes lead samples from the start and trail samples from
// the end of every channel.
func trimPlanar(channels [][]float64, lead, trail int) [][]float64 {
	out := make([][]float64, len(channels))
	for c, ch := range channels {
		end := len(ch) - trail
		if end < lead {
			end = lead
		}
		out[c] = ch[lead:end]
	}
	return out
}
