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
	"github.com/jdtorres/rawcore/internal/decode/olympus"
	"github.com/jdtorres/rawcore/internal/ifd"
	"github.com/jdtorres/rawcore/rawerr"
)

// orfMagicO, orfMagicS are ORF's second magic word after "II": 'O' for
// 16bpp sensors, 'S' for 12bpp, per original_source/lib/orfcontainer.h's
// ORF_SUBTYPE_16BPP/ORF_SUBTYPE_12BPP. Otherwise the header is a bog
// standard TIFF first-IFD-offset field at byte 4, since OrfContainer
// only overrides isMagicHeader and inherits the rest of
// IfdFileContainer.
const (
	orfMagicO = "RO"
	orfMagicS = "RS"
)

// orfFile is Olympus's ORF: TIFF-shaped but with a non-standard magic
// word, so it cannot go through tiffcontainer.Open (which insists on
// 0x002A); openORFContainer builds the Container directly instead,
// the same pattern internal/makernote uses for headerless MakerNote
// IFDs.
type orfFile struct{ *tiffBase }

func openORF(s bytestream.Stream) (Interface, error) {
	c, err := openORFContainer(s)
	if err != nil {
		return nil, err
	}
	b := &tiffBase{stream: s, c: c, ftype: TypeORF, vendor: camera.VendorOlympus}
	b.activeAreaFunc = func(*tiffBase, *ifd.Dir) [4]int { return [4]int{} }
	return &orfFile{b}, nil
}

func openORFContainer(s bytestream.Stream) (*tiffcontainer.Container, error) {
	head, err := s.Fetch(0, 8)
	if err != nil {
		return nil, rawerr.InvalidFormat("rawfile.openORFContainer", err)
	}
	if string(head[0:2]) != "II" {
		return nil, rawerr.InvalidFormat("rawfile.openORFContainer", nil)
	}
	word := string(head[2:4])
	if word != orfMagicO && word != orfMagicS {
		return nil, rawerr.InvalidFormat("rawfile.openORFContainer", nil)
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

// orfFile.GetRawData overrides tiffBase's generic dispatch for
// Olympus's own adaptive-predictor compression (spec.md 4.13), which
// has no standard TIFF Compression code -- ORF marks it with vendor
// value 0x10000 (OrfFile::ORF_COMPRESSION).
const orfCompression = 0x10000

func (f *orfFile) GetRawData(options Options) (*RawData, error) {
	cfa, err := f.LocateCFAIFD()
	if err != nil {
		return nil, err
	}
	comp := uint32(1)
	if e, ok := cfa.Get(tagCompression); ok {
		if v, err := e.Integer(0); err == nil {
			comp = v
		}
	}
	if comp != orfCompression {
		return f.tiffBase.GetRawData(options)
	}

	w, h := dimOf(cfa, tagImageWidth), dimOf(cfa, tagImageLength)
	offE, ok1 := cfa.Get(tagStripOffsets)
	lenE, ok2 := cfa.Get(tagStripByteCounts)
	if !ok1 || !ok2 || w == 0 || h == 0 {
		return nil, rawerr.NotFoundErr("orfFile.GetRawData", nil)
	}
	off, _ := offE.Integer(0)
	n, _ := lenE.Integer(0)
	raw, err := f.stream.Fetch(int64(off), int(n))
	if err != nil {
		return nil, err
	}

	data := &RawData{Width: w, Height: h, BitsPerSample: 12, CFAPattern: cfaPattern(cfa)}
	if options&DontDecompress != 0 {
		data.Compressed = true
		data.CompressedBytes = raw
		return data, nil
	}
	pixels, err := olympus.Decompress(raw, w, h)
	if err != nil {
		return nil, err
	}
	data.Pixels = pixels
	return data, nil
}
