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

package isobmff

import (
	"testing"

	"github.com/jdtorres/rawcore/internal/bytestream"
)

func be32b(v uint32) []byte { return []byte{byte(v >> 24), byte(v >> 16), byte(v >> 8), byte(v)} }

// boxBytes builds a box: a 4-byte big-endian size, a 4-byte type, and
// a payload.
func boxBytes(typ string, payload []byte) []byte {
	size := uint32(8 + len(payload))
	b := be32b(size)
	b = append(b, typ...)
	return append(b, payload...)
}

func ctboEntry(index uint32, offset, size uint64) []byte {
	b := be32b(index)
	b = append(b, byte(offset>>56), byte(offset>>48), byte(offset>>40), byte(offset>>32),
		byte(offset>>24), byte(offset>>16), byte(offset>>8), byte(offset))
	b = append(b, byte(size>>56), byte(size>>48), byte(size>>40), byte(size>>32),
		byte(size>>24), byte(size>>16), byte(size>>8), byte(size))
	return b
}

func buildTinyCR3() []byte {
	ftyp := boxBytes("ftyp", []byte("crx 0000"))

	cncv := boxBytes("CNCV", []byte("CanonCRX1.0.0"))

	ctboPayload := append([]byte{0, 0, 0, 0}, ctboEntry(0, 1000, 5000)...)
	ctboPayload = append(ctboPayload, ctboEntry(1, 7000, 300)...)
	ctbo := boxBytes("CTBO", ctboPayload)

	cmt1 := boxBytes("CMT1", []byte("IFD0DATA"))
	cmt2 := boxBytes("CMT2", []byte("EXIFDATA"))
	cmt3 := boxBytes("CMT3", []byte("MAKRDATA"))
	cmt4 := boxBytes("CMT4", []byte("GPS!DATA"))

	trak1 := boxBytes("trak", nil)
	trak2 := boxBytes("trak", nil)

	var moovPayload []byte
	moovPayload = append(moovPayload, cncv...)
	moovPayload = append(moovPayload, ctbo...)
	moovPayload = append(moovPayload, cmt1...)
	moovPayload = append(moovPayload, cmt2...)
	moovPayload = append(moovPayload, cmt3...)
	moovPayload = append(moovPayload, cmt4...)
	moovPayload = append(moovPayload, trak1...)
	moovPayload = append(moovPayload, trak2...)
	moov := boxBytes("moov", moovPayload)

	mdat := boxBytes("mdat", make([]byte, 16))

	var out []byte
	out = append(out, ftyp...)
	out = append(out, moov...)
	out = append(out, mdat...)
	return out
}

func TestOpenFindsFtypAndTracks(t *testing.T) {
	s := bytestream.NewMemStream(buildTinyCR3())
	c, err := Open(s)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	n, err := c.CountTracks()
	if err != nil {
		t.Fatalf("CountTracks: %v", err)
	}
	if n != 2 {
		t.Fatalf("CountTracks() = %d, want 2", n)
	}
}

func TestCrawHeaderDecodesCtboAndCmt(t *testing.T) {
	s := bytestream.NewMemStream(buildTinyCR3())
	c, err := Open(s)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	hdr, err := c.CrawHeader()
	if err != nil {
		t.Fatalf("CrawHeader: %v", err)
	}
	if hdr.CompressorVersion != "CanonCRX1.0.0" {
		t.Fatalf("CompressorVersion = %q", hdr.CompressorVersion)
	}
	if len(hdr.Entries) != 2 {
		t.Fatalf("len(Entries) = %d, want 2", len(hdr.Entries))
	}
	if hdr.Entries[0].Offset != 1000 || hdr.Entries[0].Size != 5000 {
		t.Fatalf("Entries[0] = %+v", hdr.Entries[0])
	}
	for i := 0; i < 4; i++ {
		if !hdr.Meta[i].valid() {
			t.Fatalf("Meta[%d] missing", i)
		}
	}
}

func TestRawTrackResolvesViaCtbo(t *testing.T) {
	s := bytestream.NewMemStream(buildTinyCR3())
	c, err := Open(s)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	r, err := c.RawTrack(0)
	if err != nil {
		t.Fatalf("RawTrack: %v", err)
	}
	if r.Offset != 1000 || r.Length != 5000 {
		t.Fatalf("RawTrack(0) = %+v, want {1000 5000}", r)
	}
}

func TestPreviewDescriptorUsesIndexOneEntry(t *testing.T) {
	s := bytestream.NewMemStream(buildTinyCR3())
	c, err := Open(s)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	r, err := c.PreviewDescriptor()
	if err != nil {
		t.Fatalf("PreviewDescriptor: %v", err)
	}
	if r.Offset != 7000 || r.Length != 300 {
		t.Fatalf("PreviewDescriptor() = %+v, want {7000 300}", r)
	}
}

func TestMetadataBlockAtRejectsOutOfRangeIndex(t *testing.T) {
	s := bytestream.NewMemStream(buildTinyCR3())
	c, err := Open(s)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if _, err := c.MetadataBlockAt(4); err == nil {
		t.Fatal("expected error for index 4")
	}
}

func TestOpenRejectsMissingFtyp(t *testing.T) {
	s := bytestream.NewMemStream(boxBytes("moov", nil))
	if _, err := Open(s); err == nil {
		t.Fatal("expected error for missing ftyp box")
	}
}
