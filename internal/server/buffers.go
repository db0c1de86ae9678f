package server

import "context"

// RequestView tracks the bytes received so far on one connection.
// It is valid only for the connection it was reset for.
type RequestView struct {
	buf        []byte
	n          int
	dispatched bool
}

// Reset points the view at buf with nothing received and nothing dispatched.
func (v *RequestView) Reset(buf []byte) {
	v.buf = buf
	v.n = 0
	v.dispatched = false
}

// Bytes returns everything received so far.
func (v *RequestView) Bytes() []byte {
	return v.buf[:v.n]
}

// Free returns the unused tail of the buffer for the next read.
func (v *RequestView) Free() []byte {
	return v.buf[v.n:]
}

// Advance records n more bytes received.
func (v *RequestView) Advance(n int) {
	v.n += n
}

// Len returns the cumulative write offset.
func (v *RequestView) Len() int {
	return v.n
}

// Full reports whether no space is left for another read.
func (v *RequestView) Full() bool {
	return v.n == len(v.buf)
}

// Dispatched reports whether the request line has been handed to the controller.
func (v *RequestView) Dispatched() bool {
	return v.dispatched
}

// MarkDispatched sets the one-shot dispatched flag.
func (v *RequestView) MarkDispatched() {
	v.dispatched = true
}

// Buffers is one worker's receive and transmit storage.
type Buffers struct {
	RX   []byte
	TX   []byte
	View RequestView
}

// BufferPool hands out fixed-size buffer sets allocated once at startup.
type BufferPool struct {
	size int
	free chan *Buffers
}

// NewBufferPool allocates count buffer sets of size bytes each.
func NewBufferPool(count, size int) *BufferPool {
	p := &BufferPool{
		size: size,
		free: make(chan *Buffers, count),
	}
	for i := 0; i < count; i++ {
		p.free <- &Buffers{
			RX: make([]byte, size),
			TX: make([]byte, 0, size),
		}
	}
	return p
}

// Get checks out a buffer set, blocking until one is free or ctx ends.
// The returned set has an empty view and an empty transmit buffer.
func (p *BufferPool) Get(ctx context.Context) (*Buffers, error) {
	select {
	case b := <-p.free:
		b.View.Reset(b.RX)
		b.TX = b.TX[:0]
		return b, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Put returns a buffer set to the pool.
func (p *BufferPool) Put(b *Buffers) {
	p.free <- b
}

// Available returns the number of buffer sets not checked out.
func (p *BufferPool) Available() int {
	return len(p.free)
}

// Size returns the capacity of each buffer.
func (p *BufferPool) Size() int {
	return p.size
}
