package audiocore

import (
	"github.com/audiophile-labs/mastering-engine/internal/errors"
)

// Component identifier for audiocore errors
const ComponentAudioCore = "audiocore"

// Sentinel errors for audiocore
var (
	// ErrInvalidAudioFormat is returned when audio format is invalid
	ErrInvalidAudioFormat = errors.New(nil).
		Component(ComponentAudioCore).
		Category(errors.CategoryValidation).
		Context("resource", "audio_format").
		Build()

	// ErrBufferTooSmall is returned when a buffer is too small for the operation
	ErrBufferTooSmall = errors.New(nil).
		Component(ComponentAudioCore).
		Category(errors.CategoryResource).
		Context("resource", "buffer").
		Build()

	// ErrProcessorFailed is returned when an audio processor fails
	ErrProcessorFailed = errors.New(nil).
		Component(ComponentAudioCore).
		Category(errors.CategoryProcessing).
		Context("operation", "audio_processing").
		Build()

	// ErrChainNotFound is returned when a session has no cached processor chain
	ErrChainNotFound = errors.New(nil).
		Component(ComponentAudioCore).
		Category(errors.CategoryNotFound).
		Context("resource", "processor_chain").
		Build()
)
