package anomaly

// Window is a bounded FIFO of accepted values. Pushing past capacity evicts
// the oldest value.
type Window struct {
	buf  []float64
	head int
	size int
}

// NewWindow returns an empty window holding at most capacity values.
func NewWindow(capacity int) *Window {
	if capacity < 1 {
		capacity = 1
	}
	return &Window{buf: make([]float64, capacity)}
}

// Push appends v, evicting the oldest value when full.
func (w *Window) Push(v float64) {
	idx := (w.head + w.size) % len(w.buf)
	if w.size == len(w.buf) {
		w.buf[w.head] = v
		w.head = (w.head + 1) % len(w.buf)
		return
	}
	w.buf[idx] = v
	w.size++
}

// Len returns the number of values held.
func (w *Window) Len() int { return w.size }

// Cap returns the capacity.
func (w *Window) Cap() int { return len(w.buf) }

// Values returns a copy, oldest first.
func (w *Window) Values() []float64 {
	out := make([]float64, w.size)
	for i := 0; i < w.size; i++ {
		out[i] = w.buf[(w.head+i)%len(w.buf)]
	}
	return out
}
