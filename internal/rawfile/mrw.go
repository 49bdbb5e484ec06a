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
	"github.com/jdtorres/rawcore/internal/container/mrw"
	"github.com/jdtorres/rawcore/internal/container/tiffcontainer"
	"github.com/jdtorres/rawcore/internal/decode/unpack12"
	"github.com/jdtorres/rawcore/internal/ifd"
	"github.com/jdtorres/rawcore/rawerr"
)

// mrwFile is Minolta's MRW: a flat "\x00MRM" block scheme (internal/
// container/mrw) whose TTW sub-block embeds a complete TIFF container
// (used for Exif/metadata) while the actual sensor pixels live in a
// flat array at PixelDataOffset, described by the PRD block's fixed
// layout -- mirroring MRWContainer reparenting the embedded TIFF and
// MrwFile reading PRD for dimensions/bayer pattern/storage type.
type mrwFile struct {
	mc  *mrw.Container
	tc  *tiffcontainer.Container
}

func openMRW(s bytestream.Stream) (Interface, error) {
	mc, err := mrw.Open(s)
	if err != nil {
		return nil, err
	}
	tc, err := tiffcontainer.Open(s, mc.TIFFOffset())
	if err != nil {
		return nil, err
	}
	if _, err := tc.WalkChain(); err != nil {
		return nil, err
	}
	return &mrwFile{mc: mc, tc: tc}, nil
}

func (f *mrwFile) Type() RawFileType { return TypeMRW }

func (f *mrwFile) LocateMainIFD() (*ifd.Dir, error) {
	d := f.tc.MainDir()
	if d == nil {
		return nil, rawerr.NotFoundErr("mrwFile.LocateMainIFD", nil)
	}
	return d, nil
}

// LocateCFAIFD has no TIFF-shaped CFA directory to return -- MRW's raw
// plane is a flat array described by the PRD block, not an IFD -- so
// this returns the embedded TIFF's main directory as the closest
// analogue other facade methods (GetMetaValue, etc.) can still use.
func (f *mrwFile) LocateCFAIFD() (*ifd.Dir, error) { return f.LocateMainIFD() }

func (f *mrwFile) LocateExifIFD() (*ifd.Dir, error) {
	main, err := f.LocateMainIFD()
	if err != nil {
		return nil, err
	}
	return f.tc.DiscoverExif(main)
}

func (f *mrwFile) LocateMakerNoteIFD() (*ifd.Dir, error) {
	exif, err := f.LocateExifIFD()
	if err != nil {
		return nil, err
	}
	e, ok := exif.Get(tagMakerNote)
	if !ok {
		return nil, rawerr.NotFoundErr("mrwFile.LocateMakerNoteIFD", nil)
	}
	off, err := e.Integer(0)
	if err != nil {
		return nil, rawerr.InvalidFormat("mrwFile.LocateMakerNoteIFD", err)
	}
	d, err := f.tc.ReadDirAt(int64(off), ifd.SubtypeMakerNote)
	if err != nil {
		return nil, err
	}
	return d, nil
}

func (f *mrwFile) IdentifyID() (camera.TypeID, error) {
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
		return 0, rawerr.NotFoundErr("mrwFile.IdentifyID", nil)
	}
	return id, nil
}

func (f *mrwFile) EnumThumbnailSizes() ([]ThumbDesc, error) {
	main, err := f.LocateMainIFD()
	if err != nil {
		return nil, err
	}
	b := &tiffBase{stream: f.mc.Stream, c: f.tc}
	_ = main
	return b.EnumThumbnailSizes()
}

func (f *mrwFile) GetThumbnail(requestedSize int) (ThumbDesc, error) {
	sizes, err := f.EnumThumbnailSizes()
	if err != nil {
		return ThumbDesc{}, err
	}
	return pickThumbnail(sizes, requestedSize)
}

// mrwBayerToCFAPattern converts PRD's BayerPattern enum into a 2x2 CFA
// pattern array, in the same {R=0,G=1,B=2} encoding tiffBase's
// cfaPattern helper produces from TIFF's CFAPattern tag.
func mrwBayerToCFAPattern(p uint16) [2][2]uint8 {
	switch p {
	case mrw.BayerGBRG:
		return [2][2]uint8{{1, 2}, {0, 1}}
	default: // mrw.BayerRGGB and any unrecognized value
		return [2][2]uint8{{0, 1}, {1, 2}}
	}
}

// GetRawData reads the flat pixel array described by the PRD block,
// mirroring MrwFile::_getRawData. MRW's "packed" storage is the same
// 12-bit-into-byte-pairs scheme the DNG/NEF path already unpacks via
// decode/unpack12; "unpacked" storage is already 16-bit samples.
func (f *mrwFile) GetRawData(options Options) (*RawData, error) {
	info, err := f.mc.PRDInfo()
	if err != nil {
		return nil, err
	}
	w, h := int(info.ImageWidth), int(info.ImageLength)
	bpc := int(info.DataSize)

	n, err := byteLenForStorage(info, w, h)
	if err != nil {
		return nil, err
	}
	raw, err := f.mc.Stream.Fetch(f.mc.PixelDataOffset(), n)
	if err != nil {
		return nil, err
	}

	data := &RawData{
		Width: w, Height: h, BitsPerSample: bpc,
		CFAPattern: mrwBayerToCFAPattern(info.BayerPattern),
	}
	if id, err := f.IdentifyID(); err == nil {
		if black, white, err := camera.Levels(id); err == nil {
			data.BlackLevel, data.WhiteLevel = black, white
		}
	}
	if m, i1, err := f.GetColourMatrix(1); err == nil {
		data.ColorMatrix = m
		data.Illuminant1 = i1
	}

	if options&DontDecompress != 0 && info.StorageType == mrw.StoragePacked {
		data.Compressed = true
		data.CompressedBytes = raw
		return data, nil
	}

	if info.StorageType == mrw.StoragePacked {
		pixels, err := unpack12.Unpack12to16(raw, false)
		if err != nil {
			return nil, err
		}
		data.Pixels = pixels
		return data, nil
	}
	pixels, err := unpackU16(raw, f.tc.Endian)
	if err != nil {
		return nil, err
	}
	data.Pixels = pixels
	return data, nil
}

func byteLenForStorage(info mrw.PRDInfo, w, h int) (int, error) {
	switch info.StorageType {
	case mrw.StoragePacked:
		return (w*h*12 + 7) / 8, nil
	case mrw.StorageUnpacked:
		return w * h * 2, nil
	default:
		return 0, rawerr.NotImplementedErr("mrwFile.GetRawData", nil)
	}
}

func (f *mrwFile) GetMetaValue(tag uint16) (*ifd.Entry, error) {
	b := &tiffBase{stream: f.mc.Stream, c: f.tc}
	return b.GetMetaValue(tag)
}

func (f *mrwFile) GetColourMatrix(index int) ([9]float64, camera.Illuminant, error) {
	b := &tiffBase{stream: f.mc.Stream, c: f.tc}
	return b.GetColourMatrix(index)
}

func (f *mrwFile) Close() error { return f.mc.Stream.Close() }
