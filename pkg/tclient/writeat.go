package tclient

import (
	"io"
	"sync/atomic"
)

// writeAt counts bytes flowing through a WriterAt so the parallel
// downloader can drive a progress callback without knowing about it.
type writeAt struct {
	w     io.WriterAt
	total int64
	done  atomic.Int64
	fn    ProgressFunc
}

func newWriteAt(w io.WriterAt, total int64, fn ProgressFunc) *writeAt {
	return &writeAt{w: w, total: total, fn: fn}
}

func (w *writeAt) WriteAt(p []byte, off int64) (int, error) {
	n, err := w.w.WriteAt(p, off)
	if n > 0 && w.fn != nil {
		w.fn(w.done.Add(int64(n)), w.total)
	}
	return n, err
}
