/*
 Copyright (c) 2013 Jeremy Torres, https://github.com/jeremytorres/rawparser

 Permission is hereby granted, free of charge, to any person obtaining
 a copy of this software and associated documentation files (the
 "Software"), to deal in the Software without restriction, including
 without limitation the rights to use, copy, modify, merge, publish,
 distribute, sublicense, and/or sell copies of the Software, and to
 permit persons to whom the Software is furnished to do so, subject to
 the following conditions:

 The above copyright notice and this permission notice shall be
 included in all copies or substantial portions of the Software.

 THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND,
 EXPRESS OR IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF
 MERCHANTABILITY, FITNESS FOR A PARTICULAR PURPOSE AND
 NONINFRINGEMENT. IN NO EVENT SHALL THE AUTHORS OR COPYRIGHT HOLDERS BE
 LIABLE FOR ANY CLAIM, DAMAGES OR OTHER LIABILITY, WHETHER IN AN ACTION
 OF CONTRACT, TORT OR OTHERWISE, ARISING FROM, OUT OF OR IN CONNECTION
 WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE SOFTWARE.
*/
// Package msbbits implements the MSB-first bit reader used by the
// Olympus adaptive-predictor decompressor. It is a direct port of
// original_source/lib/bititerator.{hpp,cpp}'s BitIterator: a 32-bit
// buffer refilled a byte at a time and left-aligned, with peek/skip/get
// operating on at most 25 bits at once.
package msbbits

// Reader reads bits most-significant-first out of a byte slice, as
// original_source/lib/bititerator.cpp's BitIterator does.
type Reader struct {
	buf      []byte
	pos      int
	bitBuf   uint32
	bitsHeld uint
}

// New returns a Reader over buf.
func New(buf []byte) *Reader {
	return &Reader{buf: buf}
}

func (r *Reader) addByte(b byte) {
	r.bitBuf = (r.bitBuf << 8) | uint32(b)
	r.bitsHeld += 8
}

func (r *Reader) load(numBits uint) {
	numBytes := (numBits + 7) / 8

	r.bitBuf >>= 32 - r.bitsHeld

	var i uint
	for ; i < numBytes && r.pos < len(r.buf); i++ {
		r.addByte(r.buf[r.pos])
		r.pos++
	}
	for ; i < numBytes; i++ {
		r.addByte(0)
	}

	r.bitBuf <<= 32 - r.bitsHeld
}

// Peek returns the next n bits (n <= 25) without consuming them.
func (r *Reader) Peek(n uint) uint32 {
	if n == 0 {
		return 0
	}
	if n > r.bitsHeld {
		r.load(n - r.bitsHeld)
	}
	return r.bitBuf >> (32 - n)
}

// Skip consumes n bits already seen via Peek (or not), clamping to what
// remains buffered -- callers always Peek before Skip in this decoder so
// the buffer is never under-filled at the point of a Skip.
func (r *Reader) Skip(n uint) {
	if n > r.bitsHeld {
		n = r.bitsHeld
	}
	r.bitsHeld -= n
	r.bitBuf <<= n
}

// Get reads and consumes the next n bits (n <= 25).
func (r *Reader) Get(n uint) uint32 {
	v := r.Peek(n)
	r.Skip(n)
	return v
}
