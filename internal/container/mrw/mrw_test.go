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

package mrw

import (
	"testing"

	"github.com/jdtorres/rawcore/internal/bytestream"
)

func be16(v uint16) []byte { return []byte{byte(v >> 8), byte(v)} }

func block(name string, payload []byte) []byte {
	b := []byte{0x00, name[0], name[1], name[2]}
	n := uint32(len(payload))
	b = append(b, byte(n>>24), byte(n>>16), byte(n>>8), byte(n))
	return append(b, payload...)
}

func buildTinyMRW() []byte {
	prdPayload := make([]byte, 24)
	copy(prdPayload[0:8], "MINOLTA!")
	copy(prdPayload[8:10], be16(2000))  // sensor length
	copy(prdPayload[10:12], be16(3008)) // sensor width
	copy(prdPayload[12:14], be16(1960)) // image length
	copy(prdPayload[14:16], be16(2960)) // image width
	prdPayload[16] = 12                 // data size
	prdPayload[17] = 12                 // pixel size
	prdPayload[18] = StorageUnpacked
	copy(prdPayload[22:24], be16(BayerRGGB))

	ttwPayload := []byte{0x4D, 0x4D, 0x00, 0x2A} // a stand-in TIFF header, "MM\x00\x2a"
	wbgPayload := make([]byte, 12)
	rifPayload := make([]byte, 4)

	var mrmPayload []byte
	mrmPayload = append(mrmPayload, block("PRD", prdPayload)...)
	mrmPayload = append(mrmPayload, block("TTW", ttwPayload)...)
	mrmPayload = append(mrmPayload, block("WBG", wbgPayload)...)
	mrmPayload = append(mrmPayload, block("RIF", rifPayload)...)

	var out []byte
	out = append(out, block("MRM", mrmPayload)...)
	out = append(out, []byte{0xDE, 0xAD, 0xBE, 0xEF}...) // stand-in pixel data
	return out
}

func TestOpenLocatesAllBlocks(t *testing.T) {
	s := bytestream.NewMemStream(buildTinyMRW())
	c, err := Open(s)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if c.Version != "MINOLTA!" {
		t.Fatalf("Version = %q, want %q", c.Version, "MINOLTA!")
	}
	if c.PRD.Name != "PRD" || c.TTW.Name != "TTW" || c.WBG.Name != "WBG" || c.RIF.Name != "RIF" {
		t.Fatalf("not all data blocks located: %+v", c)
	}
}

func TestPixelDataOffsetFollowsMRM(t *testing.T) {
	s := bytestream.NewMemStream(buildTinyMRW())
	c, err := Open(s)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	want := c.MRM.End()
	if got := c.PixelDataOffset(); got != want {
		t.Fatalf("PixelDataOffset() = %d, want %d", got, want)
	}
	b, err := s.Fetch(want, 4)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if string(b) != "\xDE\xAD\xBE\xEF" {
		t.Fatalf("pixel data = %x, want deadbeef", b)
	}
}

func TestPRDInfoDecodesFields(t *testing.T) {
	s := bytestream.NewMemStream(buildTinyMRW())
	c, err := Open(s)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	info, err := c.PRDInfo()
	if err != nil {
		t.Fatalf("PRDInfo: %v", err)
	}
	if info.SensorLength != 2000 || info.SensorWidth != 3008 {
		t.Fatalf("sensor dims = %dx%d, want 2000x3008", info.SensorLength, info.SensorWidth)
	}
	if info.ImageLength != 1960 || info.ImageWidth != 2960 {
		t.Fatalf("image dims = %dx%d, want 1960x2960", info.ImageLength, info.ImageWidth)
	}
	if info.StorageType != StorageUnpacked {
		t.Fatalf("StorageType = %#x, want %#x", info.StorageType, StorageUnpacked)
	}
	if info.BayerPattern != BayerRGGB {
		t.Fatalf("BayerPattern = %#x, want %#x", info.BayerPattern, BayerRGGB)
	}
}

func TestOpenRejectsBadMagic(t *testing.T) {
	s := bytestream.NewMemStream([]byte{0x01, 'M', 'R', 'M', 0, 0, 0, 0})
	if _, err := Open(s); err == nil {
		t.Fatal("expected error for bad MRM magic")
	}
}

func TestOpenRejectsMissingBlock(t *testing.T) {
	// Only a PRD block, no TTW/WBG/RIF.
	prdPayload := make([]byte, 24)
	mrmPayload := block("PRD", prdPayload)
	out := block("MRM", mrmPayload)
	s := bytestream.NewMemStream(out)
	if _, err := Open(s); err == nil {
		t.Fatal("expected error for missing TTW/WBG/RIF blocks")
	}
}
