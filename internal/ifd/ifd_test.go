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

package ifd

import (
	"testing"

	"github.com/jdtorres/rawcore/internal/bytestream"
	"github.com/jdtorres/rawcore/rawerr"
)

func TestEntryInlineShort(t *testing.T) {
	// SHORT, count 1, value 0x0008 left-justified per TIFF spec (value
	// offset field holds the raw little-endian bytes here).
	e := NewEntry(0x0112, TypeShort, 1, [4]byte{0x08, 0x00, 0x00, 0x00}, 0, nil, bytestream.LittleEndian)
	v, err := e.Uint16(0)
	if err != nil || v != 8 {
		t.Fatalf("Uint16(0) = %d, %v; want 8, nil", v, err)
	}
}

func TestEntryOutOfLineString(t *testing.T) {
	s := bytestream.NewMemStream([]byte("Canon\x00EOS 5D Mark II\x00"))
	e := NewEntry(0x0110, TypeASCII, 18, [4]byte{6, 0, 0, 0}, 6, s, bytestream.LittleEndian)
	v, err := e.String()
	if err != nil {
		t.Fatalf("String(): %v", err)
	}
	if v != "EOS 5D Mark II" {
		t.Fatalf("String() = %q, want %q", v, "EOS 5D Mark II")
	}
}

func TestEntryBadType(t *testing.T) {
	e := NewEntry(0x0112, TypeASCII, 4, [4]byte{1, 2, 3, 4}, 0, nil, bytestream.LittleEndian)
	if _, err := e.Uint16(0); rawerr.Of(err) != rawerr.InvalidParam {
		t.Fatalf("expected InvalidParam for type mismatch, got %v", err)
	}
}

func TestEntryOutOfRange(t *testing.T) {
	e := NewEntry(0x0112, TypeShort, 1, [4]byte{8, 0, 0, 0}, 0, nil, bytestream.LittleEndian)
	if _, err := e.Uint16(5); rawerr.Of(err) != rawerr.InvalidParam {
		t.Fatalf("expected InvalidParam for out-of-range index, got %v", err)
	}
}

func TestEntryRationalInfForZeroDenominator(t *testing.T) {
	s := bytestream.NewMemStream([]byte{10, 0, 0, 0, 0, 0, 0, 0})
	e := NewEntry(0x829A, TypeRational, 1, [4]byte{0, 0, 0, 0}, 0, s, bytestream.LittleEndian)
	r, err := e.Rational(0)
	if err != nil {
		t.Fatalf("Rational(0): %v", err)
	}
	if !isInf(r.Float()) {
		t.Fatalf("Rational{10,0}.Float() = %v, want +Inf", r.Float())
	}
}

func isInf(f float64) bool {
	return f > 1e300 || f < -1e300
}

func TestEntryBytesNeededAndClamp(t *testing.T) {
	s := bytestream.NewMemStream([]byte{1, 2, 3}) // shorter than declared count
	e := NewEntry(0x00FE, TypeLong, 4, [4]byte{0, 0, 0, 0}, 0, s, bytestream.LittleEndian)
	if e.BytesNeeded() != 16 {
		t.Fatalf("BytesNeeded() = %d, want 16", e.BytesNeeded())
	}
	b, err := e.Bytes()
	if err != nil {
		t.Fatalf("Bytes(): %v", err)
	}
	if !e.Truncated() {
		t.Fatal("expected Truncated() to report the clamp")
	}
	if len(b) != 3 {
		t.Fatalf("len(Bytes()) = %d, want 3 (clamped to what the stream had)", len(b))
	}
}

func TestDirOrderedIteration(t *testing.T) {
	d := NewDir(0, bytestream.LittleEndian, SubtypeMain)
	d.Add(NewEntry(0x0112, TypeShort, 1, [4]byte{1, 0, 0, 0}, 0, nil, bytestream.LittleEndian))
	d.Add(NewEntry(0x0100, TypeLong, 1, [4]byte{1, 0, 0, 0}, 0, nil, bytestream.LittleEndian))
	d.Add(NewEntry(0x0112, TypeShort, 1, [4]byte{2, 0, 0, 0}, 0, nil, bytestream.LittleEndian)) // overwrite

	tags := d.Tags()
	if len(tags) != 2 || tags[0] != 0x0112 || tags[1] != 0x0100 {
		t.Fatalf("Tags() = %#v, want [0x0112, 0x0100] preserving first-seen order", tags)
	}
	e, _ := d.Get(0x0112)
	v, _ := e.Uint16(0)
	if v != 2 {
		t.Fatalf("overwritten entry value = %d, want 2", v)
	}
}

func TestDirMustGetNotFound(t *testing.T) {
	d := NewDir(0, bytestream.LittleEndian, SubtypeMain)
	if _, err := d.MustGet(0x9999); rawerr.Of(err) != rawerr.NotFound {
		t.Fatalf("expected NotFound, got %v", err)
	}
}
