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

package rawfile

import (
	"encoding/binary"
	"reflect"
	"testing"

	"github.com/jdtorres/rawcore/internal/bytestream"
	"github.com/jdtorres/rawcore/internal/decode/nikonhuffman"
)

// buildNikonCurveBlob assembles a NEFDecodeTable2 blob: two header
// bytes, a 2x2 vpred seed, an element count, then that many 16-bit
// curve knots, matching the layout parseNikonCurve reads.
func buildNikonCurveBlob(header0, header1 byte, vpred [4]uint16, knots []uint16) []byte {
	buf := []byte{header0, header1}
	for _, v := range vpred {
		var tmp [2]byte
		binary.LittleEndian.PutUint16(tmp[:], v)
		buf = append(buf, tmp[:]...)
	}
	var n [2]byte
	binary.LittleEndian.PutUint16(n[:], uint16(len(knots)))
	buf = append(buf, n[:]...)
	for _, k := range knots {
		var tmp [2]byte
		binary.LittleEndian.PutUint16(tmp[:], k)
		buf = append(buf, tmp[:]...)
	}
	return buf
}

func TestParseNikonCurveFlatSingleKnot(t *testing.T) {
	blob := buildNikonCurveBlob(0x00, 0x00, [4]uint16{10, 20, 30, 40}, []uint16{4095})
	nc, err := parseNikonCurve(blob, bytestream.LittleEndian, 12)
	if err != nil {
		t.Fatalf("parseNikonCurve: %v", err)
	}
	if nc.vpred != [2][2]uint16{{10, 20}, {30, 40}} {
		t.Fatalf("vpred = %v, want {{10,20},{30,40}}", nc.vpred)
	}
	for _, i := range []int{0, 1000, 16383} {
		if nc.curve[i] != 4095 {
			t.Fatalf("curve[%d] = %d, want 4095 (flat)", i, nc.curve[i])
		}
	}
}

func TestParseNikonCurveInterpolated(t *testing.T) {
	knots := []uint16{0, 100, 16383}
	blob := buildNikonCurveBlob(0x00, 0x00, [4]uint16{}, knots)
	nc, err := parseNikonCurve(blob, bytestream.LittleEndian, 12)
	if err != nil {
		t.Fatalf("parseNikonCurve: %v", err)
	}
	if nc.curve[0] != knots[0] {
		t.Fatalf("curve[0] = %d, want %d", nc.curve[0], knots[0])
	}
	if nc.curve[16383] != knots[len(knots)-1] {
		t.Fatalf("curve[16383] = %d, want %d", nc.curve[16383], knots[len(knots)-1])
	}
	// Monotonic non-decreasing across an interpolated ramp.
	for i := 1; i < len(nc.curve); i++ {
		if nc.curve[i] < nc.curve[i-1] {
			t.Fatalf("curve not monotonic at %d: %d < %d", i, nc.curve[i], nc.curve[i-1])
		}
	}
}

func TestParseNikonCurveSelectsTableByHeaderAndBPC(t *testing.T) {
	blob := buildNikonCurveBlob(0x00, 0x02, [4]uint16{}, []uint16{0})
	nc, err := parseNikonCurve(blob, bytestream.LittleEndian, 12)
	if err != nil {
		t.Fatalf("parseNikonCurve: %v", err)
	}
	if !reflect.DeepEqual(nc.table, nikonhuffman.Lossy14Bit) {
		t.Fatal("header1==0x02 should select Lossy14Bit")
	}

	blob = buildNikonCurveBlob(0x00, 0x00, [4]uint16{}, []uint16{0})
	nc, err = parseNikonCurve(blob, bytestream.LittleEndian, 14)
	if err != nil {
		t.Fatalf("parseNikonCurve: %v", err)
	}
	if !reflect.DeepEqual(nc.table, nikonhuffman.LossLess14Bit) {
		t.Fatal("bpc==14 with no 14-bit header flag should select LossLess14Bit")
	}

	blob = buildNikonCurveBlob(0x00, 0x00, [4]uint16{}, []uint16{0})
	nc, err = parseNikonCurve(blob, bytestream.LittleEndian, 12)
	if err != nil {
		t.Fatalf("parseNikonCurve: %v", err)
	}
	if !reflect.DeepEqual(nc.table, nikonhuffman.Lossy12Bit) {
		t.Fatal("default case should select Lossy12Bit")
	}
}

func TestParseNikonCurveRejectsLegacyHeader(t *testing.T) {
	blob := buildNikonCurveBlob(0x49, 0x00, [4]uint16{}, []uint16{0})
	if _, err := parseNikonCurve(blob, bytestream.LittleEndian, 12); err == nil {
		t.Fatal("expected an error for the unsupported legacy (header0==0x49) layout")
	}
}

// buildNEF assembles a NIKON-Make TIFF with the given Compression code
// and no Exif/MakerNote IFD at all, exercising the uncompressed
// fall-through path and the compressed-but-no-MakerNote failure path.
func buildNEF(t *testing.T, compression uint32, pixels []uint16) []byte {
	t.Helper()
	make_ := asciiField("NIKON CORPORATION")

	const (
		stripOff = 400
		makeOff  = 500
	)
	entries := [][4]uint32{
		{tagImageWidth, typeLong, 1, uint32(len(pixels))},
		{tagImageLength, typeLong, 1, 1},
		{tagBitsPerSample, typeShort, 1, 16},
		{tagCompression, typeShort, 1, compression},
		{tagMake, typeASCII, uint32(len(make_)), makeOff},
		{tagStripOffsets, typeLong, 1, stripOff},
		{tagStripByteCounts, typeLong, 1, uint32(len(pixels) * 2)},
	}
	data := buildTIFF(entries, nil)

	grow := func(buf []byte, to int) []byte {
		if len(buf) < to {
			buf = append(buf, make([]byte, to-len(buf))...)
		}
		return buf
	}
	data = grow(data, stripOff+len(pixels)*2)
	for i, p := range pixels {
		binary.LittleEndian.PutUint16(data[stripOff+2*i:], p)
	}
	data = grow(data, makeOff+len(make_))
	copy(data[makeOff:], make_)
	return data
}

func TestNefGetRawDataFallsThroughWhenUncompressed(t *testing.T) {
	pixels := []uint16{11, 22, 33}
	data := buildNEF(t, 1, pixels)
	s := bytestream.NewMemStream(data)

	f, err := openNEF(s)
	if err != nil {
		t.Fatalf("openNEF: %v", err)
	}
	defer f.Close()

	raw, err := f.GetRawData(0)
	if err != nil {
		t.Fatalf("GetRawData: %v", err)
	}
	if len(raw.Pixels) != len(pixels) {
		t.Fatalf("len(Pixels) = %d, want %d", len(raw.Pixels), len(pixels))
	}
	for i, p := range pixels {
		if raw.Pixels[i] != p {
			t.Fatalf("Pixels[%d] = %d, want %d", i, raw.Pixels[i], p)
		}
	}
}

func TestNefGetRawDataCompressedWithoutMakerNoteFails(t *testing.T) {
	data := buildNEF(t, nikonCompression, []uint16{0, 0, 0})
	s := bytestream.NewMemStream(data)

	f, err := openNEF(s)
	if err != nil {
		t.Fatalf("openNEF: %v", err)
	}
	defer f.Close()

	if _, err := f.GetRawData(0); err == nil {
		t.Fatal("expected an error decoding a Nikon-compressed strip with no MakerNote decode table")
	}
}
