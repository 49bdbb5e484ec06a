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

package ciff

import (
	"testing"

	"github.com/jdtorres/rawcore/internal/bytestream"
)

// buildTinyCIFF assembles a minimal "II"/"HEAP"/"CCDR" file: a 20-byte
// header followed by a 16-byte root heap holding one not-in-record
// TagRawImageData entry (length=100, offset=20) and a trailer pointing
// the record table back at the heap's own start.
func buildTinyCIFF() []byte {
	var b []byte
	b = append(b, 'I', 'I')
	b = append(b, 20, 0, 0, 0) // headerLength
	b = append(b, 'H', 'E', 'A', 'P')
	b = append(b, 'C', 'C', 'D', 'R')
	b = append(b, 0, 0, 1, 0) // version
	b = append(b, 0, 0)       // padding to headerLength=20

	b = append(b, 1, 0) // numRecords = 1
	b = append(b, 0x05, 0x20)             // typeCode = TagRawImageData (TypeByte2)
	b = append(b, 100, 0, 0, 0)           // length
	b = append(b, 20, 0, 0, 0)            // offset
	b = append(b, 0, 0, 0, 0)             // trailer: record table at heap offset 0
	return b
}

func openTiny(t *testing.T) *Container {
	t.Helper()
	s := bytestream.NewMemStream(buildTinyCIFF())
	c, err := Open(s)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	return c
}

func TestOpenValidatesMagic(t *testing.T) {
	openTiny(t)

	bad := bytestream.NewMemStream([]byte("IIxxxxBADMBADS0000"))
	if _, err := Open(bad); err == nil {
		t.Fatal("expected error for bad HEAP/CCDR magic")
	}
}

func TestRootFindsRawImageData(t *testing.T) {
	c := openTiny(t)
	rec, ok, err := c.RawDataRecord()
	if err != nil {
		t.Fatalf("RawDataRecord: %v", err)
	}
	if !ok {
		t.Fatal("expected a TagRawImageData record")
	}
	if rec.InRecord {
		t.Fatal("expected an out-of-record entry")
	}
	if rec.Length != 100 || rec.Offset != 20 {
		t.Fatalf("length=%d offset=%d, want 100,20", rec.Length, rec.Offset)
	}
	if rec.Type() != TypeByte2 {
		t.Fatalf("Type() = %v, want TypeByte2", rec.Type())
	}
	if rec.Count() != 100 {
		t.Fatalf("Count() = %d, want 100 (TypeByte2 falls through to raw length)", rec.Count())
	}
}

func TestImagePropsNotFoundSurfacesError(t *testing.T) {
	c := openTiny(t)
	if _, err := c.ImageProps(); err == nil {
		t.Fatal("expected error: root heap has no TagImageProps record")
	}
}

func TestImageSpecExifOrientation(t *testing.T) {
	cases := map[int32]int32{0: 1, 90: 6, 180: 3, 270: 8, 45: 1}
	for angle, want := range cases {
		s := ImageSpec{RotationAngle: angle}
		if got := s.ExifOrientation(); got != want {
			t.Fatalf("angle %d: ExifOrientation() = %d, want %d", angle, got, want)
		}
	}
}
