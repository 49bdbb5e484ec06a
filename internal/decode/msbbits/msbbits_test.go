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

package msbbits

import "testing"

// The bitstream for {0xAB, 0xCD} is 1010 1011 1100 1101.
func TestReaderConsumesMSBFirst(t *testing.T) {
	r := New([]byte{0xAB, 0xCD})

	if got := r.Get(4); got != 0xA {
		t.Fatalf("Get(4) = %#x, want 0xa", got)
	}
	if got := r.Get(8); got != 0xBC {
		t.Fatalf("Get(8) = %#x, want 0xbc", got)
	}
	if got := r.Get(4); got != 0xD {
		t.Fatalf("Get(4) = %#x, want 0xd", got)
	}
}

func TestReaderPeekDoesNotConsume(t *testing.T) {
	r := New([]byte{0xAB, 0xCD})

	if got := r.Peek(4); got != 0xA {
		t.Fatalf("Peek(4) = %#x, want 0xa", got)
	}
	if got := r.Peek(4); got != 0xA {
		t.Fatalf("second Peek(4) = %#x, want 0xa (unconsumed)", got)
	}
	r.Skip(4)
	if got := r.Peek(4); got != 0xB {
		t.Fatalf("Peek(4) after Skip(4) = %#x, want 0xb", got)
	}
}

func TestReaderZeroPadsPastEndOfBuffer(t *testing.T) {
	r := New([]byte{0xFF})

	if got := r.Get(8); got != 0xFF {
		t.Fatalf("Get(8) = %#x, want 0xff", got)
	}
	if got := r.Get(8); got != 0 {
		t.Fatalf("Get(8) past end = %#x, want 0", got)
	}
}

func TestReaderGetZeroBitsReturnsZero(t *testing.T) {
	r := New([]byte{0xFF})
	if got := r.Get(0); got != 0 {
		t.Fatalf("Get(0) = %#x, want 0", got)
	}
}
