package mastering

import (
	"context"

	"github.com/audiophile-labs/mastering-engine/internal/logger"
)

// prefetchAhead is how many chunks beyond the one just emitted get
// speculatively triggered, per spec.md §4.5 ("chunks i+1 and i+2").
const prefetchAhead = 2

// StreamChunk is one item of a StreamTrack result: either a byte payload
// or a terminal error. Exactly one of Data/Err is set; a nil Data with
// nil Err never occurs.
type StreamChunk struct {
	Data []byte
	Err  error
}

// StreamTrack produces a track's mastered bytes in order, crossfading
// the trailing overlap of each chunk into the leading overlap of the
// next (spec.md §4.5). Consumption paces production: the returned
// channel is unbuffered-equivalent (buffer of 1) so a slow consumer
// naturally backpressures the producer goroutine, matching spec.md §5's
// "producer awaits consumer" framing.
func (e *Engine) StreamTrack(ctx context.Context, trackID, preset string, intensity, preserveCharacter float64) <-chan StreamChunk {
	out := make(chan StreamChunk, 1)

	go func() {
		defer close(out)

		src, err := e.trackSource(trackID)
		if err != nil {
			out <- StreamChunk{Err: err}
			return
		}

		intensity = QuantizeIntensity(intensity, e.settings.Chunking.IntensityQuantum)
		if preserveCharacter <= 0 {
			preserveCharacter = defaultPreserveCharacter
		}
		sampleRate := src.SampleRate()
		channels := src.Channels()

		sess := e.sessionFor(SessionKey{TrackID: trackID, Preset: preset, Intensity: intensity, PreserveCharacter: preserveCharacter})
		e.log.Info("stream started", logger.String("session_id", sess.id), logger.String("track_id", trackID))
		defer e.log.Info("stream stopped", logger.String("session_id", sess.id), logger.String("track_id", trackID))

		var overlapFrames int
		haveTail := false

		for index := 0; ; index++ {
			geom := computeChunkGeometry(e.settings.Chunking, sampleRate, index)
			if geom.startFrame >= src.TotalFrames() {
				break
			}
			overlapFrames = int(geom.overlapFrames)

			data, err := e.GetChunk(ctx, trackID, preset, intensity, preserveCharacter, index)
			if err != nil {
				out <- StreamChunk{Err: err}
				return
			}

			planar := planarFromInterleavedFloat32(bytesToFloat32(data), channels)

			bodyStart := 0
			if haveTail {
				pendingTail := planarFromInterleavedFloat32(bytesToFloat32(sess.tail.Take()), channels)
				blended := equalPowerCrossfade(pendingTail, headOf(planar, overlapFrames))
				if err := emit(ctx, out, blended); err != nil {
					return
				}
				bodyStart = overlapFrames
			}

			core, tail := splitBody(planar, bodyStart, overlapFrames)
			if err := emit(ctx, out, core); err != nil {
				return
			}
			var flatTail []float32
			planarToInterleavedFloat32(tail, &flatTail)
			sess.tail.Put(float32ToBytes(flatTail))
			haveTail = true

			e.triggerPrefetch(ctx, trackID, preset, intensity, preserveCharacter, index)

			select {
			case <-ctx.Done():
				out <- StreamChunk{Err: ctx.Err()}
				return
			default:
			}
		}

		if haveTail {
			pendingTail := planarFromInterleavedFloat32(bytesToFloat32(sess.tail.Take()), channels)
			_ = emit(ctx, out, pendingTail)
		}
	}()

	return out
}

// triggerPrefetch speculatively builds the next prefetchAhead chunks in
// the background, best-effort: failures are logged, never surfaced,
// since the consumer will simply rebuild on demand if prefetch lost.
func (e *Engine) triggerPrefetch(ctx context.Context, trackID, preset string, intensity, preserveCharacter float64, justEmitted int) {
	sess := e.sessionFor(SessionKey{TrackID: trackID, Preset: preset, Intensity: intensity, PreserveCharacter: preserveCharacter})
	for offset := 1; offset <= prefetchAhead; offset++ {
		idx := justEmitted + offset
		if !sess.markPrefetched(idx) {
			continue
		}
		go func(idx int) {
			if _, err := e.GetChunk(ctx, trackID, preset, intensity, preserveCharacter, idx); err != nil {
				e.log.Warn("speculative prefetch failed",
					logger.String("track_id", trackID), logger.Int("chunk_index", idx), logger.Error(err))
			}
		}(idx)
	}
}

func emit(ctx context.Context, out chan<- StreamChunk, planar [][]float64) error {
	if len(planar) == 0 || len(planar[0]) == 0 {
		return nil
	}
	var flat []float32
	planarToInterleavedFloat32(planar, &flat)
	payload := float32ToBytes(flat)
	select {
	case out <- StreamChunk{Data: payload}:
		return nil
	case <-ctx.Done():
		out <- StreamChunk{Err: ctx.Err()}
		return ctx.Err()
	}
}

// splitBody returns channels[bodyStart : n-overlapFrames] as core (the
// part of this chunk to emit outright) and channels[n-overlapFrames : n]
// as tail (held back to crossfade against the next chunk's head).
func splitBody(channels [][]float64, bodyStart, overlapFrames int) (core, tail [][]float64) {
	if len(channels) == 0 {
		return channels, nil
	}
	n := len(channels[0])
	bodyEnd := n - overlapFrames
	if bodyEnd < bodyStart {
		bodyEnd = bodyStart
	}
	core = make([][]float64, len(channels))
	tail = make([][]float64, len(channels))
	for c, ch := range channels {
		core[c] = ch[bodyStart:bodyEnd]
		if overlapFrames > 0 && bodyEnd <= len(ch) {
			tail[c] = ch[bodyEnd:]
		}
	}
	return core, tail
}

func headOf(channels [][]float64, overlapFrames int) [][]float64 {
	if overlapFrames <= 0 || len(channels) == 0 {
		return channels
	}
	out := make([][]float64, len(channels))
	for c, ch := range channels {
		n := overlapFrames
		if n > len(ch) {
			n = len(ch)
		}
		out[c] = ch[:n]
	}
	return out
}
