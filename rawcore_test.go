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

package rawcore

import (
	"encoding/binary"
	"os"
	"testing"

	"github.com/jdtorres/rawcore/internal/bytestream"
)

// buildMinimalDNG assembles a one-directory, little-endian DNG: a
// DNGVersion tag (routes Identify to TypeDNG), dimensions, an
// uncompressed 16-bit strip, a DateTime string, and an Orientation
// value, mirroring internal/rawfile's own buildTIFF/buildDNG test
// helpers but kept self-contained since those are unexported.
func buildMinimalDNG(t *testing.T, pixels []uint16) []byte {
	t.Helper()

	const (
		tagNewSubfileType  = 0x00FE
		tagImageWidth      = 0x0100
		tagImageLength     = 0x0101
		tagBitsPerSample   = 0x0102
		tagCompression     = 0x0103
		tagOrientationTag  = 0x0112
		tagStripOffsets    = 0x0111
		tagStripByteCounts = 0x0117
		tagDateTime        = 0x0132
		tagDNGVersion      = 0xC612

		typeByte  = 1
		typeASCII = 2
		typeShort = 3
		typeLong  = 4
	)

	dateTime := append([]byte("2023:05:17 10:30:00"), 0)
	const (
		dateOff  = 300
		stripOff = 200
	)

	entries := [][4]uint32{
		{tagDNGVersion, typeByte, 4, 0x01010000},
		{tagNewSubfileType, typeLong, 1, 0},
		{tagImageWidth, typeLong, 1, 2},
		{tagImageLength, typeLong, 1, 2},
		{tagBitsPerSample, typeShort, 1, 16},
		{tagCompression, typeShort, 1, 1},
		{tagOrientationTag, typeShort, 1, 3},
		{tagStripOffsets, typeLong, 1, stripOff},
		{tagStripByteCounts, typeLong, 1, uint32(len(pixels) * 2)},
		{tagDateTime, typeASCII, uint32(len(dateTime)), dateOff},
	}

	buf := make([]byte, 8)
	buf[0], buf[1] = 'I', 'I'
	binary.LittleEndian.PutUint16(buf[2:], 0x002A)
	binary.LittleEndian.PutUint32(buf[4:], 8)

	ifdBuf := make([]byte, 2+12*len(entries)+4)
	binary.LittleEndian.PutUint16(ifdBuf[0:], uint16(len(entries)))
	for i, e := range entries {
		off := 2 + 12*i
		binary.LittleEndian.PutUint16(ifdBuf[off:], uint16(e[0]))
		binary.LittleEndian.PutUint16(ifdBuf[off+2:], uint16(e[1]))
		binary.LittleEndian.PutUint32(ifdBuf[off+4:], e[2])
		binary.LittleEndian.PutUint32(ifdBuf[off+8:], e[3])
	}
	data := append(buf, ifdBuf...)

	grow := func(b []byte, to int) []byte {
		if len(b) < to {
			b = append(b, make([]byte, to-len(b))...)
		}
		return b
	}
	data = grow(data, stripOff+len(pixels)*2)
	for i, p := range pixels {
		binary.LittleEndian.PutUint16(data[stripOff+2*i:], p)
	}
	data = grow(data, dateOff+len(dateTime))
	copy(data[dateOff:], dateTime)

	return data
}

func TestOpenStreamRoundTrip(t *testing.T) {
	data := buildMinimalDNG(t, []uint16{10, 20, 30, 40})
	s := bytestream.NewMemStream(data)

	rf, err := OpenStream(s)
	if err != nil {
		t.Fatalf("OpenStream: %v", err)
	}
	defer rf.Close()

	raw, err := rf.GetRawData(0)
	if err != nil {
		t.Fatalf("GetRawData: %v", err)
	}
	if raw.Width != 2 || raw.Height != 2 {
		t.Fatalf("dims = %dx%d, want 2x2", raw.Width, raw.Height)
	}
	if len(raw.Pixels) != 4 {
		t.Fatalf("len(Pixels) = %d, want 4", len(raw.Pixels))
	}
}

func TestOrientationReadsMainIFDTag(t *testing.T) {
	data := buildMinimalDNG(t, []uint16{1, 2, 3, 4})
	s := bytestream.NewMemStream(data)

	rf, err := OpenStream(s)
	if err != nil {
		t.Fatalf("OpenStream: %v", err)
	}
	defer rf.Close()

	o, err := rf.Orientation()
	if err != nil {
		t.Fatalf("Orientation: %v", err)
	}
	if o != 3 {
		t.Fatalf("Orientation = %d, want 3", o)
	}
}

func TestCreateDate(t *testing.T) {
	data := buildMinimalDNG(t, []uint16{1, 2, 3, 4})
	s := bytestream.NewMemStream(data)

	rf, err := OpenStream(s)
	if err != nil {
		t.Fatalf("OpenStream: %v", err)
	}
	defer rf.Close()

	ct, err := rf.CreateDate()
	if err != nil {
		t.Fatalf("CreateDate: %v", err)
	}
	if ct.Year() != 2023 || ct.Month() != 5 || ct.Day() != 17 {
		t.Fatalf("CreateDate = %v, want 2023-05-17", ct)
	}
}

func TestOpenRejectsGarbage(t *testing.T) {
	path := t.TempDir() + "/not_a_raw.bin"
	if err := os.WriteFile(path, []byte("not a raw file at all, sorry"), 0o644); err != nil {
		t.Fatalf("os.WriteFile: %v", err)
	}
	if _, err := Open(path); err == nil {
		t.Fatal("expected an error opening a non-RAW file")
	}
}
