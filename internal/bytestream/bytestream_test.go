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

package bytestream

import (
	"testing"

	"github.com/jdtorres/rawcore/rawerr"
)

func TestMemStreamTypedReads(t *testing.T) {
	// II, then 0x1234 LE, then 0x89ABCDEF LE
	buf := []byte{0x49, 0x49, 0x34, 0x12, 0xEF, 0xCD, 0xAB, 0x89}
	s := NewMemStream(buf)

	u16, err := s.ReadU16(2, LittleEndian)
	if err != nil || u16 != 0x1234 {
		t.Fatalf("ReadU16 LE = %#x, %v; want 0x1234, nil", u16, err)
	}

	u16be, err := s.ReadU16(2, BigEndian)
	if err != nil || u16be != 0x3412 {
		t.Fatalf("ReadU16 BE = %#x, %v; want 0x3412, nil", u16be, err)
	}

	u32, err := s.ReadU32(4, LittleEndian)
	if err != nil || u32 != 0x89ABCDEF {
		t.Fatalf("ReadU32 LE = %#x, %v; want 0x89abcdef, nil", u32, err)
	}
}

func TestMemStreamFetchShortRead(t *testing.T) {
	s := NewMemStream([]byte{1, 2, 3})
	_, err := s.Fetch(0, 10)
	if err == nil {
		t.Fatal("expected error reading past end of stream")
	}
	if rawerr.Of(err) != rawerr.ClosedStream {
		t.Fatalf("got code %v, want ClosedStream", rawerr.Of(err))
	}
}

func TestMemStreamClone(t *testing.T) {
	s := NewMemStream([]byte{0xAA, 0xBB, 0xCC, 0xDD, 0xEE})
	clone, err := s.Clone(2)
	if err != nil {
		t.Fatalf("Clone: %v", err)
	}
	b, err := clone.ReadU8(0)
	if err != nil || b != 0xCC {
		t.Fatalf("clone.ReadU8(0) = %#x, %v; want 0xCC, nil", b, err)
	}
	b, err = clone.ReadU8(2)
	if err != nil || b != 0xEE {
		t.Fatalf("clone.ReadU8(2) = %#x, %v; want 0xEE, nil", b, err)
	}

	// Cloning again from the clone composes offsets instead of
	// re-basing against the grandparent.
	grandclone, err := clone.Clone(1)
	if err != nil {
		t.Fatalf("Clone: %v", err)
	}
	b, err = grandclone.ReadU8(0)
	if err != nil || b != 0xDD {
		t.Fatalf("grandclone.ReadU8(0) = %#x, %v; want 0xDD, nil", b, err)
	}
}

func TestMemStreamFilesize(t *testing.T) {
	s := NewMemStream(make([]byte, 17))
	sz, err := s.Filesize()
	if err != nil || sz != 17 {
		t.Fatalf("Filesize() = %d, %v; want 17, nil", sz, err)
	}
	clone, _ := s.Clone(5)
	sz, err = clone.Filesize()
	if err != nil || sz != 12 {
		t.Fatalf("clone Filesize() = %d, %v; want 12, nil", sz, err)
	}
}
