package mastering

import "github.com/smallnest/ringbuffer"

// contextWindow is the sliding handoff a session's StreamTrack loop uses
// to carry one chunk's trailing overlap into the next chunk's crossfade,
// backed by the same ring buffer the teacher uses for its own streaming
// analysis window (internal/myaudio's per-stream PCM buffer). Audio is
// stored as the same little-endian PCM bytes GetChunk/StreamTrack already
// exchange, so Put/Take need no extra conversion beyond the existing
// byte<->float32 helpers.
type contextWindow struct {
	buf *ringbuffer.RingBuffer
}

// Put replaces whatever tail was previously pending with data.
func (w *contextWindow) Put(data []byte) {
	if w.buf == nil || w.buf.Capacity() < len(data) {
		w.buf = ringbuffer.New(len(data))
	} else {
		w.buf.Reset()
	}
	_, _ = w.buf.Write(data)
}

// Take drains and returns the pending tail, or nil if none is stored.
func (w *contextWindow) Take() []byte {
	if w.buf == nil || w.buf.Length() == 0 {
		return nil
	}
	out := make([]byte, w.buf.Length())
	n, _ := w.buf.Read(out)
	return out[:n]
}
