// Package sampleio decodes local WAV/FLAC files into the in-memory
// mastering.TrackSource the engine operates on, and encodes mastered
// output back to WAV. It is the concrete collaborator the spec leaves as
// a decoupling point (mastering.TrackSource) so cmd/mastercli can
// exercise the engine against real files without the engine package
// depending on any particular decode library.
package sampleio

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/tphakala/flac"

	"github.com/audiophile-labs/mastering-engine/internal/errors"
)

// ComponentSampleIO tags decode/encode errors for the shared
// internal/errors builder.
const ComponentSampleIO = "sampleio"

// MemoryTrack is a fully-decoded, in-memory mastering.TrackSource: every
// frame of the source file, planar float64 in [-1, 1]. Local files are
// small enough (a few minutes of audio) that decoding eagerly is simpler
// than streaming from disk per chunk, and it keeps TrackSource's
// ReadFrames contract (arbitrary, possibly out-of-order ranges, for
// context padding and prefetch) trivial to satisfy.
type MemoryTrack struct {
	id         string
	sampleRate float64
	channels   [][]float64
}

// ID implements mastering.TrackSource.
func (m *MemoryTrack) ID() string { return m.id }

// SampleRate implements mastering.TrackSource.
func (m *MemoryTrack) SampleRate() float64 { return m.sampleRate }

// Channels implements mastering.TrackSource.
func (m *MemoryTrack) Channels() int { return len(m.channels) }

// TotalFrames implements mastering.TrackSource.
func (m *MemoryTrack) TotalFrames() int64 {
	if len(m.channels) == 0 {
		return 0
	}
	return int64(len(m.channels[0]))
}

// ReadFrames implements mastering.TrackSource, zero-padding any part of
// [startFrame, startFrame+frameCount) outside the decoded track.
func (m *MemoryTrack) ReadFrames(_ context.Context, startFrame int64, frameCount int) ([][]float64, error) {
	out := make([][]float64, len(m.channels))
	total := m.TotalFrames()
	for c, ch := range m.channels {
		out[c] = make([]float64, frameCount)
		for i := 0; i < frameCount; i++ {
			frame := startFrame + int64(i)
			if frame < 0 || frame >= total {
				continue
			}
			out[c][i] = ch[frame]
		}
	}
	return out, nil
}

// Load decodes path (WAV or FLAC, by extension) into a MemoryTrack whose
// ID is the file's base name.
func Load(path string) (*MemoryTrack, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.New(err).
			Component(ComponentSampleIO).
			Category(errors.CategoryFileIO).
			Context("path", path).
			Build()
	}
	defer f.Close()

	id := filepath.Base(path)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".wav":
		return decodeWAV(id, f)
	case ".flac":
		return decodeFLAC(id, f)
	default:
		return nil, errors.Newf("unsupported audio file extension %q", filepath.Ext(path)).
			Component(ComponentSampleIO).
			Category(errors.CategoryValidation).
			Build()
	}
}

// decodeWAV follows the teacher's readAudioData: wav.NewDecoder +
// PCMBuffer, normalized by the file's bit depth rather than assuming 16.
func decodeWAV(id string, r io.Reader) (*MemoryTrack, error) {
	decoder := wav.NewDecoder(r)
	decoder.ReadInfo()
	if !decoder.IsValidFile() {
		return nil, errors.Newf("%s is not a valid WAV file", id).
			Component(ComponentSampleIO).
			Category(errors.CategoryValidation).
			Build()
	}

	var divisor float64
	switch decoder.BitDepth {
	case 16:
		divisor = 32768.0
	case 24:
		divisor = 8388608.0
	case 32:
		divisor = 2147483648.0
	default:
		return nil, errors.Newf("unsupported WAV bit depth %d", decoder.BitDepth).
			Component(ComponentSampleIO).
			Category(errors.CategoryValidation).
			Build()
	}

	numChans := int(decoder.NumChans)
	channels := make([][]float64, numChans)

	const readFrames = 4096
	buf := &goaudio.IntBuffer{
		Data:   make([]int, readFrames*numChans),
		Format: &goaudio.Format{SampleRate: int(decoder.SampleRate), NumChannels: numChans},
	}

	for {
		n, err := decoder.PCMBuffer(buf)
		if err != nil {
			return nil, errors.New(err).
				Component(ComponentSampleIO).
				Category(errors.CategoryFileIO).
				Context("path", id).
				Build()
		}
		if n == 0 {
			break
		}
		frames := n / numChans
		for c := 0; c < numChans; c++ {
			for i := 0; i < frames; i++ {
				channels[c] = append(channels[c], float64(buf.Data[i*numChans+c])/divisor)
			}
		}
	}

	return &MemoryTrack{id: id, sampleRate: float64(decoder.SampleRate), channels: channels}, nil
}

// decodeFLAC reads every frame via stream.ParseNext, normalizing each
// subframe's integer samples by its bit depth the same way decodeWAV does.
func decodeFLAC(id string, r io.Reader) (*MemoryTrack, error) {
	stream, err := flac.New(r)
	if err != nil {
		return nil, errors.New(err).
			Component(ComponentSampleIO).
			Category(errors.CategoryFileIO).
			Context("path", id).
			Build()
	}

	numChans := int(stream.Info.NChannels)
	divisor := float64(int64(1) << (stream.Info.BitsPerSample - 1))
	channels := make([][]float64, numChans)

	for {
		frame, err := stream.ParseNext()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.New(err).
				Component(ComponentSampleIO).
				Category(errors.CategoryFileIO).
				Context("path", id).
				Build()
		}
		for c, subframe := range frame.Subframes {
			if c >= numChans {
				break
			}
			for _, sample := range subframe.Samples {
				channels[c] = append(channels[c], float64(sample)/divisor)
			}
		}
	}

	return &MemoryTrack{id: id, sampleRate: float64(stream.Info.SampleRate), channels: channels}, nil
}
