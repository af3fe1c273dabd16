package audio

import (
	"io"
	"sync"
)

// pcmReader serves sample data to the audio device. It keeps the
// backing slice referenced for the whole playback so the data cannot
// be collected out from under the device callback.
type pcmReader struct {
	mu   sync.Mutex
	data []byte
	pos  int
}

func newPCMReader(data []byte) *pcmReader {
	return &pcmReader{data: data}
}

func (r *pcmReader) Read(p []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.pos >= len(r.data) {
		return 0, io.EOF
	}
	n := copy(p, r.data[r.pos:])
	r.pos += n
	return n, nil
}
