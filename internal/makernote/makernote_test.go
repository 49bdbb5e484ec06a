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

package makernote

import (
	"testing"

	"github.com/jdtorres/rawcore/internal/bytestream"
)

func le16(v uint16) []byte { return []byte{byte(v), byte(v >> 8)} }
func le32(v uint32) []byte { return []byte{byte(v), byte(v >> 8), byte(v >> 16), byte(v >> 24)} }

// shortEntry builds a 12-byte IFD entry for an inline SHORT value: tag,
// type 3 (SHORT), count 1, and the value left-packed into the 4-byte
// value field per TIFF's inline-value convention.
func shortEntry(tag, value uint16) []byte {
	b := le16(tag)
	b = append(b, le16(3)...) // TypeShort
	b = append(b, le32(1)...)
	b = append(b, le16(value)...)
	b = append(b, 0, 0)
	return b
}

// headerlessIFDBytes builds a count-prefixed IFD with a single SHORT entry
// and a zero next-offset, the same shape ReadDirAt expects.
func headerlessIFDBytes(tag, value uint16) []byte {
	var b []byte
	b = append(b, le16(1)...)
	b = append(b, shortEntry(tag, value)...)
	b = append(b, le32(0)...)
	return b
}

func padTo(b []byte, n int) []byte {
	for len(b) < n {
		b = append(b, 0)
	}
	return b
}

func TestSniffNikonV1(t *testing.T) {
	buf := padTo(append([]byte("Nikon\x00"), 1), 18)
	s := bytestream.NewMemStream(buf)
	d, err := Sniff(s, 0)
	if err != nil {
		t.Fatalf("Sniff: %v", err)
	}
	if d != DialectNikonV1 {
		t.Fatalf("Sniff() = %v, want DialectNikonV1", d)
	}
}

func TestSniffNikonV2(t *testing.T) {
	buf := padTo(append([]byte("Nikon\x00"), 2), 18)
	s := bytestream.NewMemStream(buf)
	d, err := Sniff(s, 0)
	if err != nil {
		t.Fatalf("Sniff: %v", err)
	}
	if d != DialectNikonV2 {
		t.Fatalf("Sniff() = %v, want DialectNikonV2", d)
	}
}

func TestSniffOlympusLong(t *testing.T) {
	buf := padTo([]byte("OLYMPUS\x00"), 18)
	s := bytestream.NewMemStream(buf)
	d, err := Sniff(s, 0)
	if err != nil {
		t.Fatalf("Sniff: %v", err)
	}
	if d != DialectOlympusLong {
		t.Fatalf("Sniff() = %v, want DialectOlympusLong", d)
	}
}

func TestSniffOlympusShort(t *testing.T) {
	buf := padTo([]byte("OLYMP\x00"), 18)
	s := bytestream.NewMemStream(buf)
	d, err := Sniff(s, 0)
	if err != nil {
		t.Fatalf("Sniff: %v", err)
	}
	if d != DialectOlympusShort {
		t.Fatalf("Sniff() = %v, want DialectOlympusShort", d)
	}
}

func TestSniffUnknown(t *testing.T) {
	buf := padTo([]byte{1, 0}, 18)
	s := bytestream.NewMemStream(buf)
	d, err := Sniff(s, 0)
	if err != nil {
		t.Fatalf("Sniff: %v", err)
	}
	if d != DialectUnknown {
		t.Fatalf("Sniff() = %v, want DialectUnknown", d)
	}
}

func TestOpenNikonV1(t *testing.T) {
	const mn = 4
	buf := make([]byte, mn)
	buf = append(buf, []byte("Nikon\x00")...) // mn .. mn+5
	buf = append(buf, 1)                      // version byte, mn+6
	buf = append(buf, 0xFF)                   // filler, mn+7; IFD starts mn+8
	buf = append(buf, headerlessIFDBytes(0x0001, 42)...)

	s := bytestream.NewMemStream(buf)
	tc, dialect, err := Open(s, mn, bytestream.LittleEndian)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if dialect != DialectNikonV1 {
		t.Fatalf("dialect = %v, want DialectNikonV1", dialect)
	}
	e, ok := tc.MainDir().Get(0x0001)
	if !ok {
		t.Fatal("tag 0x0001 not found")
	}
	v, err := e.Uint16(0)
	if err != nil {
		t.Fatalf("Uint16: %v", err)
	}
	if v != 42 {
		t.Fatalf("value = %d, want 42", v)
	}
}

func TestOpenNikonV2(t *testing.T) {
	const mn = 4
	buf := make([]byte, mn)
	buf = append(buf, []byte("Nikon\x00")...) // mn .. mn+5
	buf = append(buf, 2)                      // version byte, mn+6
	buf = append(buf, 0, 0, 0)                // filler, mn+7..mn+9; embedded header at mn+10

	// Embedded TIFF header at mn+10: "II" + magic 0x002A + first-IFD
	// offset 8 (relative to mn+10).
	buf = append(buf, []byte("II")...)
	buf = append(buf, le16(0x002A)...)
	buf = append(buf, le32(8)...)
	// IFD at (mn+10)+8.
	buf = append(buf, headerlessIFDBytes(0x0002, 99)...)

	s := bytestream.NewMemStream(buf)
	tc, dialect, err := Open(s, mn, bytestream.LittleEndian)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if dialect != DialectNikonV2 {
		t.Fatalf("dialect = %v, want DialectNikonV2", dialect)
	}
	e, ok := tc.MainDir().Get(0x0002)
	if !ok {
		t.Fatal("tag 0x0002 not found")
	}
	v, err := e.Uint16(0)
	if err != nil {
		t.Fatalf("Uint16: %v", err)
	}
	if v != 99 {
		t.Fatalf("value = %d, want 99", v)
	}
}

func TestOpenOlympusLong(t *testing.T) {
	const mn = 4
	buf := make([]byte, mn)
	buf = append(buf, []byte("OLYMPUS\x00")...) // mn .. mn+7
	buf = append(buf, 0, 0, 0, 0)               // filler, mn+8..mn+11; IFD at mn+12
	buf = append(buf, headerlessIFDBytes(0x0003, 7)...)

	s := bytestream.NewMemStream(buf)
	tc, dialect, err := Open(s, mn, bytestream.LittleEndian)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if dialect != DialectOlympusLong {
		t.Fatalf("dialect = %v, want DialectOlympusLong", dialect)
	}
	e, ok := tc.MainDir().Get(0x0003)
	if !ok {
		t.Fatal("tag 0x0003 not found")
	}
	v, err := e.Uint16(0)
	if err != nil {
		t.Fatalf("Uint16: %v", err)
	}
	if v != 7 {
		t.Fatalf("value = %d, want 7", v)
	}
}

func TestOpenOlympusShort(t *testing.T) {
	const mn = 4
	buf := make([]byte, mn)
	buf = append(buf, []byte("OLYMP\x00")...) // mn .. mn+5
	buf = append(buf, 0, 0)                   // filler, mn+6..mn+7; IFD at mn+8
	buf = append(buf, headerlessIFDBytes(0x0004, 55)...)

	s := bytestream.NewMemStream(buf)
	tc, dialect, err := Open(s, mn, bytestream.LittleEndian)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if dialect != DialectOlympusShort {
		t.Fatalf("dialect = %v, want DialectOlympusShort", dialect)
	}
	e, ok := tc.MainDir().Get(0x0004)
	if !ok {
		t.Fatal("tag 0x0004 not found")
	}
	v, err := e.Uint16(0)
	if err != nil {
		t.Fatalf("Uint16: %v", err)
	}
	if v != 55 {
		t.Fatalf("value = %d, want 55", v)
	}
}

func TestOpenUnknownFallsBackToHeaderlessIFD(t *testing.T) {
	const mn = 4
	buf := make([]byte, mn)
	buf = append(buf, headerlessIFDBytes(0x0005, 123)...)

	s := bytestream.NewMemStream(buf)
	tc, dialect, err := Open(s, mn, bytestream.LittleEndian)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if dialect != DialectUnknown {
		t.Fatalf("dialect = %v, want DialectUnknown", dialect)
	}
	e, ok := tc.MainDir().Get(0x0005)
	if !ok {
		t.Fatal("tag 0x0005 not found")
	}
	v, err := e.Uint16(0)
	if err != nil {
		t.Fatalf("Uint16: %v", err)
	}
	if v != 123 {
		t.Fatalf("value = %d, want 123", v)
	}
}
