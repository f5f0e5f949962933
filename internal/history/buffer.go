// Package history stores the recent past of a simulated object on a uniform
// time grid so that delayed connections can read it.
package history

import "math"

// snapTol is the distance (in samples) under which a read is treated as
// landing exactly on a grid point.
const snapTol = 1e-6

// Buffer keeps dim variables sampled every bit time units. Sample 0 is the
// oldest; the last sample is the present.
type Buffer struct {
	start float64
	bit   float64
	data  [][]float64
}

// New returns a buffer of size samples ending at now, every variable filled
// with its value from init.
func New(size int, bit, now float64, init []float64) *Buffer {
	if size < 1 {
		size = 1
	}
	b := &Buffer{
		start: now - float64(size-1)*bit,
		bit:   bit,
		data:  make([][]float64, len(init)),
	}
	for v, x := range init {
		row := make([]float64, size)
		for i := range row {
			row[i] = x
		}
		b.data[v] = row
	}
	return b
}

// Restore builds a buffer from saved rows whose first sample is at start.
func Restore(start, bit float64, data [][]float64) *Buffer {
	rows := make([][]float64, len(data))
	for i, r := range data {
		rows[i] = append([]float64(nil), r...)
	}
	return &Buffer{start: start, bit: bit, data: rows}
}

func (b *Buffer) Dim() int { return len(b.data) }

func (b *Buffer) Len() int {
	if len(b.data) == 0 {
		return 0
	}
	return len(b.data[0])
}

func (b *Buffer) Bit() float64 { return b.bit }

// Start is the time of the oldest sample.
func (b *Buffer) Start() float64 { return b.start }

// Now is the time of the newest sample.
func (b *Buffer) Now() float64 {
	return b.start + float64(b.Len()-1)*b.bit
}

// Times returns the sample times, oldest first.
func (b *Buffer) Times() []float64 {
	ts := make([]float64, b.Len())
	for i := range ts {
		ts[i] = b.start + float64(i)*b.bit
	}
	return ts
}

// Row exposes variable v without copying.
func (b *Buffer) Row(v int) []float64 { return b.data[v] }

// Rows returns a deep copy of every variable.
func (b *Buffer) Rows() [][]float64 {
	out := make([][]float64, len(b.data))
	for i, r := range b.data {
		out[i] = append([]float64(nil), r...)
	}
	return out
}

// Latest returns the newest value of every variable.
func (b *Buffer) Latest() []float64 {
	out := make([]float64, len(b.data))
	n := b.Len()
	for v, r := range b.data {
		out[v] = r[n-1]
	}
	return out
}

// At returns variable 0 at time t.
func (b *Buffer) At(t float64) float64 {
	return b.VarAt(0, t)
}

// VarAt returns variable v at time t, interpolating between samples.
func (b *Buffer) VarAt(v int, t float64) float64 {
	return Interp(b.data[v], b.start, b.bit, t)
}

// Advance appends samples (samples[k][v]) as the newest values and drops as
// many of the oldest ones, moving the window forward by len(samples) bits.
func (b *Buffer) Advance(samples [][]float64) {
	k := len(samples)
	if k == 0 {
		return
	}
	n := b.Len()
	for v, row := range b.data {
		if k >= n {
			for i := range row {
				row[i] = samples[k-n+i][v]
			}
			continue
		}
		copy(row, row[k:])
		for i := 0; i < k; i++ {
			row[n-k+i] = samples[i][v]
		}
	}
	b.start += float64(k) * b.bit
}

// Resize changes the number of samples while keeping the present at the
// same time. Growing pads the past with the oldest value.
func (b *Buffer) Resize(size int) {
	n := b.Len()
	if size == n || size < 1 {
		return
	}
	now := b.Now()
	for v, row := range b.data {
		next := make([]float64, size)
		if size < n {
			copy(next, row[n-size:])
		} else {
			pad := size - n
			for i := 0; i < pad; i++ {
				next[i] = row[0]
			}
			copy(next[pad:], row)
		}
		b.data[v] = next
	}
	b.start = now - float64(size-1)*b.bit
}

// Interp reads row, sampled every bit starting at start, at time t. Reads
// within snapTol of a sample return it exactly; reads outside the row are
// clamped to its ends.
func Interp(row []float64, start, bit, t float64) float64 {
	n := len(row)
	if n == 0 {
		return 0
	}
	pos := (t - start) / bit
	idx := math.Round(pos)
	if math.Abs(pos-idx) < snapTol {
		i := int(idx)
		switch {
		case i < 0:
			return row[0]
		case i >= n:
			return row[n-1]
		}
		return row[i]
	}
	if pos <= 0 {
		return row[0]
	}
	if pos >= float64(n-1) {
		return row[n-1]
	}
	lo := int(math.Floor(pos))
	frac := pos - float64(lo)
	return row[lo] + frac*(row[lo+1]-row[lo])
}
