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
	"github.com/jdtorres/rawcore/internal/bytestream"
	"github.com/jdtorres/rawcore/internal/camera"
	"github.com/jdtorres/rawcore/internal/container/tiffcontainer"
	"github.com/jdtorres/rawcore/internal/ifd"
	"github.com/jdtorres/rawcore/rawerr"
)

// rw2Magic is RW2's second magic word after "II": 'U'+0x00, per
// original_source/lib/rw2container.cpp's isMagicHeader. Like ORF, the
// rest of the header (first-IFD-offset at byte 4) is plain TIFF.
const rw2Magic = "U\x00"

// tagRW2RawDataOffset and the SensorBorder* tags are Panasonic's
// private IFD0 entries, per spec.md 4.15's identification table
// ("raw found via tag 0x002E when compressed-packed, else strip
// offsets") -- there is no strip-offsets/strip-bytecounts pair at all
// in many RW2 files, just this one pointer tag.
const (
	tagRW2RawDataOffset  = 0x002E
	tagRW2SensorTopBorder    = 0x0004
	tagRW2SensorLeftBorder   = 0x0005
	tagRW2SensorBottomBorder = 0x0006
	tagRW2SensorRightBorder  = 0x0007
)

type rw2File struct{ *tiffBase }

func openRW2(s bytestream.Stream) (Interface, error) {
	c, err := openRW2Container(s)
	if err != nil {
		return nil, err
	}
	b := &tiffBase{stream: s, c: c, ftype: TypeRW2, vendor: camera.VendorPanasonic}
	b.activeAreaFunc = rw2ActiveArea
	return &rw2File{b}, nil
}

func openRW2Container(s bytestream.Stream) (*tiffcontainer.Container, error) {
	head, err := s.Fetch(0, 8)
	if err != nil {
		return nil, rawerr.InvalidFormat("rawfile.openRW2Container", err)
	}
	if string(head[0:2]) != "II" || string(head[2:4]) != rw2Magic {
		return nil, rawerr.InvalidFormat("rawfile.openRW2Container", nil)
	}
	firstOffset := uint32(head[4]) | uint32(head[5])<<8 | uint32(head[6])<<16 | uint32(head[7])<<24

	c := &tiffcontainer.Container{Stream: s, Endian: bytestream.LittleEndian}
	if _, err := c.ReadDirAt(int64(firstOffset), ifd.SubtypeMain); err != nil {
		return nil, err
	}
	if _, err := c.WalkChain(); err != nil {
		return nil, err
	}
	return c, nil
}

// rw2ActiveArea reads Panasonic's SensorBorder* tags directly off IFD0
// (RW2 carries them there rather than in a MakerNote).
func rw2ActiveArea(_ *tiffBase, cfa *ifd.Dir) [4]int {
	top, topOk := rw2Tag(cfa, tagRW2SensorTopBorder)
	left, leftOk := rw2Tag(cfa, tagRW2SensorLeftBorder)
	bottom, bottomOk := rw2Tag(cfa, tagRW2SensorBottomBorder)
	right, rightOk := rw2Tag(cfa, tagRW2SensorRightBorder)
	if !topOk || !leftOk || !bottomOk || !rightOk {
		return [4]int{}
	}
	return [4]int{left, top, right - left, bottom - top}
}

func rw2Tag(d *ifd.Dir, tag uint16) (int, bool) {
	e, ok := d.Get(tag)
	if !ok {
		return 0, false
	}
	v, err := e.Integer(0)
	if err != nil {
		return 0, false
	}
	return int(v), true
}

// GetRawData overrides tiffBase's generic strip-based reader: RW2
// locates its raw plane via tag 0x002E (a direct file offset, not a
// strip-offsets/bytecounts pair) and stores it packed, so it is only
// returned verbatim -- unpacking Panasonic's proprietary bit-packing
// scheme is out of this module's scope (spec.md's decompressor set
// covers lossless-JPEG, Canon Huffman, Nikon Huffman, Olympus, and the
// generic 12-bit unpacker, none of which match RW2's format).
func (f *rw2File) GetRawData(options Options) (*RawData, error) {
	cfa, err := f.LocateCFAIFD()
	if err != nil {
		return nil, err
	}
	if e, ok := cfa.Get(tagRW2RawDataOffset); ok {
		off, err := e.Integer(0)
		if err != nil {
			return nil, rawerr.InvalidFormat("rw2File.GetRawData", err)
		}
		size, err := f.stream.Filesize()
		if err != nil {
			return nil, err
		}
		raw, err := f.stream.Fetch(int64(off), int(size-int64(off)))
		if err != nil {
			return nil, err
		}
		w, h := dimOf(cfa, tagImageWidth), dimOf(cfa, tagImageLength)
		data := &RawData{
			Width: w, Height: h, BitsPerSample: 12,
			CFAPattern:      cfaPattern(cfa),
			ActiveArea:      rw2ActiveArea(f.tiffBase, cfa),
			Compressed:      true,
			CompressedBytes: raw,
		}
		if id, err := f.IdentifyID(); err == nil {
			if black, white, err := camera.Levels(id); err == nil {
				data.BlackLevel, data.WhiteLevel = black, white
			}
		}
		return data, nil
	}
	return f.tiffBase.GetRawData(options)
}
