package sampleio

import (
	"os"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"github.com/audiophile-labs/mastering-engine/internal/errors"
)

// WriteWAV encodes planar float64 samples in [-1, 1] to a 24-bit PCM WAV
// file at path. 24-bit keeps headroom above the mastered signal's dither
// floor without the file-size cost of 32-bit float, matching the
// "audiophile" framing of the engine's output.
func WriteWAV(path string, channels [][]float64, sampleRate int) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.New(err).
			Component(ComponentSampleIO).
			Category(errors.CategoryFileIO).
			Context("path", path).
			Build()
	}
	defer f.Close()

	numChans := len(channels)
	enc := wav.NewEncoder(f, sampleRate, 24, numChans, 1)

	const divisor = 8388608.0
	frames := 0
	if numChans > 0 {
		frames = len(channels[0])
	}

	buf := &goaudio.IntBuffer{
		Data:   make([]int, frames*numChans),
		Format: &goaudio.Format{SampleRate: sampleRate, NumChannels: numChans},
	}
	for i := 0; i < frames; i++ {
		for c := 0; c < numChans; c++ {
			sample := channels[c][i]
			switch {
			case sample > 1:
				sample = 1
			case sample < -1:
				sample = -1
			}
			buf.Data[i*numChans+c] = int(sample * divisor)
		}
	}

	if err := enc.Write(buf); err != nil {
		return errors.New(err).
			Component(ComponentSampleIO).
			Category(errors.CategoryFileIO).
			Context("path", path).
			Build()
	}
	if err := enc.Close(); err != nil {
		return errors.New(err).
			Component(ComponentSampleIO).
			Category(errors.CategoryFileIO).
			Context("path", path).
			Build()
	}
	return nil
}
