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
	"github.com/jdtorres/rawcore/internal/container/isobmff"
	"github.com/jdtorres/rawcore/internal/container/jfif"
	"github.com/jdtorres/rawcore/internal/container/tiffcontainer"
	"github.com/jdtorres/rawcore/internal/ifd"
	"github.com/jdtorres/rawcore/rawerr"
)

// cr3File is Canon's CR3: an ISO-BMFF container (internal/container/
// isobmff) whose CMT1-4 boxes are four independent embedded-TIFF
// metadata blocks (CMT1 mirrors a classic IFD0+thumbnail, CMT2 the
// Exif IFD, CMT3 the MakerNote, CMT4 GPS) and whose actual sample data
// lives in CTBO-indexed track byte-ranges, mirroring
// IsoMediaContainer::get_craw_header/get_metadata_block/get_raw_track.
// Canon's CRX tile-based compression scheme for the main track is not
// one of this module's implemented decompressors (spec.md's
// decompressor set stops at lossless-JPEG/CRW-Huffman/Nikon-Huffman/
// Olympus/the 12-bit unpacker), so GetRawData only serves the
// DontDecompress path.
type cr3File struct {
	ic  *isobmff.Container
	cmt [4]*tiffcontainer.Container
}

func openCR3(s bytestream.Stream) (Interface, error) {
	ic, err := isobmff.Open(s)
	if err != nil {
		return nil, err
	}
	return &cr3File{ic: ic}, nil
}

func (f *cr3File) Type() RawFileType { return TypeCR3 }

// cmtContainer lazily opens the idx'th CMT block as a TIFF container.
func (f *cr3File) cmtContainer(idx int) (*tiffcontainer.Container, error) {
	if f.cmt[idx] != nil {
		return f.cmt[idx], nil
	}
	rng, err := f.ic.MetadataBlockAt(idx)
	if err != nil {
		return nil, err
	}
	c, err := tiffcontainer.Open(f.ic.Stream, rng.Offset)
	if err != nil {
		return nil, err
	}
	if _, err := c.WalkChain(); err != nil {
		return nil, err
	}
	f.cmt[idx] = c
	return c, nil
}

func (f *cr3File) LocateMainIFD() (*ifd.Dir, error) {
	c, err := f.cmtContainer(0)
	if err != nil {
		return nil, err
	}
	d := c.MainDir()
	if d == nil {
		return nil, rawerr.NotFoundErr("cr3File.LocateMainIFD", nil)
	}
	return d, nil
}

// LocateCFAIFD has no IFD of its own in CR3: the sensor plane is a raw
// track byte-range, not a TIFF strip, so this returns the main IFD as
// the closest metadata-bearing analogue.
func (f *cr3File) LocateCFAIFD() (*ifd.Dir, error) { return f.LocateMainIFD() }

func (f *cr3File) LocateExifIFD() (*ifd.Dir, error) {
	c, err := f.cmtContainer(1)
	if err != nil {
		return nil, err
	}
	d := c.MainDir()
	if d == nil {
		return nil, rawerr.NotFoundErr("cr3File.LocateExifIFD", nil)
	}
	return d, nil
}

func (f *cr3File) LocateMakerNoteIFD() (*ifd.Dir, error) {
	c, err := f.cmtContainer(2)
	if err != nil {
		return nil, err
	}
	d := c.MainDir()
	if d == nil {
		return nil, rawerr.NotFoundErr("cr3File.LocateMakerNoteIFD", nil)
	}
	return d, nil
}

func (f *cr3File) IdentifyID() (camera.TypeID, error) {
	main, err := f.LocateMainIFD()
	if err != nil {
		return 0, err
	}
	make, model := "", ""
	if e, ok := main.Get(tagMake); ok {
		if s, err := e.String(); err == nil {
			make = s
		}
	}
	if e, ok := main.Get(tagModel); ok {
		if s, err := e.String(); err == nil {
			model = s
		}
	}
	id, ok := camera.Identify(make, model)
	if !ok {
		return 0, rawerr.NotFoundErr("cr3File.IdentifyID", nil)
	}
	return id, nil
}

// EnumThumbnailSizes decodes the CTBO-indexed preview track (PRVW),
// mirroring IsoMediaContainer::get_preview_desc.
func (f *cr3File) EnumThumbnailSizes() ([]ThumbDesc, error) {
	rng, err := f.ic.PreviewDescriptor()
	if err != nil {
		return nil, err
	}
	data, err := f.ic.Stream.Fetch(rng.Offset, int(rng.Length))
	if err != nil {
		return nil, err
	}
	w, h, err := jfif.Bounds(data)
	if err != nil {
		return nil, err
	}
	return []ThumbDesc{{Width: w, Height: h, DataType: ThumbDataJPEG, Data: data}}, nil
}

func (f *cr3File) GetThumbnail(requestedSize int) (ThumbDesc, error) {
	sizes, err := f.EnumThumbnailSizes()
	if err != nil {
		return ThumbDesc{}, err
	}
	return pickThumbnail(sizes, requestedSize)
}

// GetRawData returns the main sample track's bytes verbatim; decoding
// Canon's CRX tile compression is out of this module's scope (see the
// type doc comment), so anything but DontDecompress fails with
// NotImplemented, mirroring how this module surfaces decompressors it
// doesn't carry rather than silently returning zeroed pixels.
func (f *cr3File) GetRawData(options Options) (*RawData, error) {
	rng, err := f.ic.RawTrack(0)
	if err != nil {
		return nil, err
	}
	main, err := f.LocateMainIFD()
	if err != nil {
		return nil, err
	}
	w, h := dimOf(main, tagImageWidth), dimOf(main, tagImageLength)

	if options&DontDecompress == 0 {
		return nil, rawerr.NotImplementedErr("cr3File.GetRawData", nil)
	}
	raw, err := f.ic.Stream.Fetch(rng.Offset, int(rng.Length))
	if err != nil {
		return nil, err
	}
	data := &RawData{Width: w, Height: h, Compressed: true, CompressedBytes: raw}
	if id, err := f.IdentifyID(); err == nil {
		if black, white, err := camera.Levels(id); err == nil {
			data.BlackLevel, data.WhiteLevel = black, white
		}
	}
	return data, nil
}

func (f *cr3File) GetMetaValue(tag uint16) (*ifd.Entry, error) {
	if main, err := f.LocateMainIFD(); err == nil {
		if e, ok := main.Get(tag); ok {
			return e, nil
		}
	}
	if exif, err := f.LocateExifIFD(); err == nil {
		if e, ok := exif.Get(tag); ok {
			return e, nil
		}
	}
	if mn, err := f.LocateMakerNoteIFD(); err == nil {
		if e, ok := mn.Get(tag); ok {
			return e, nil
		}
	}
	return nil, rawerr.NotFoundErr("cr3File.GetMetaValue", nil)
}

func (f *cr3File) GetColourMatrix(index int) ([9]float64, camera.Illuminant, error) {
	id, err := f.IdentifyID()
	if err != nil {
		return [9]float64{}, 0, err
	}
	m, err := camera.Matrix(id)
	if err != nil {
		return [9]float64{}, 0, err
	}
	illum := m.Illuminant1
	if index == 2 {
		illum = camera.IlluminantUnknown
	}
	return m.Float9(), illum, nil
}

func (f *cr3File) Close() error { return f.ic.Stream.Close() }
