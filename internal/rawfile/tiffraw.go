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
	"github.com/jdtorres/rawcore/internal/decode/losslessjpeg"
	"github.com/jdtorres/rawcore/internal/decode/unpack12"
	"github.com/jdtorres/rawcore/internal/ifd"
	"github.com/jdtorres/rawcore/internal/makernote"
	"github.com/jdtorres/rawcore/rawerr"
)

// Baseline TIFF 6.0 / Exif 2.3 tags every TIFF-shaped facade reads,
// ported from the teacher's inline tag literals
// (jeremytorres-rawparser/{cr2parser,nefparser,tiffutils}.go) into named
// constants shared across every format file in this package.
const (
	tagNewSubfileType    = 0x00FE
	tagImageWidth        = 0x0100
	tagImageLength       = 0x0101
	tagBitsPerSample     = 0x0102
	tagCompression       = 0x0103
	tagPhotometric       = 0x0106
	tagMake              = 0x010F
	tagModel             = 0x0110
	tagStripOffsets      = 0x0111
	tagOrientation       = 0x0112
	tagStripByteCounts   = 0x0117
	tagJpegIFOffset      = 0x0201
	tagJpegIFByteCount   = 0x0202
	tagMakerNote         = 0x927C
	tagCFAPattern        = 0x828E
	tagDNGVersion        = 0xC612
	tagActiveArea        = 0xC68D
	tagColorMatrix1      = 0xC621
	tagColorMatrix2      = 0xC622
	tagCalibIlluminant1  = 0xC65A
	tagCalibIlluminant2  = 0xC65B
	tagCR2Slice          = 0xC640

	photometricCFA = 32803
)

// canonSlices reads CR2's slice tag (3 SHORTs: N, w_repeat, w_last,
// per original_source/lib/cr2file.cpp's IFD::CR2_TAG_SLICE read) from
// cfa. Returns nil when the tag is absent, malformed, or declares no
// slicing (N==0) -- the common case, since most CR2 files have no
// slices at all and every other TIFF-derived format never carries
// this tag.
func canonSlices(cfa *ifd.Dir) *losslessjpeg.SliceDescriptor {
	e, ok := cfa.Get(tagCR2Slice)
	if !ok {
		return nil
	}
	vals, err := e.IntegerArray()
	if err != nil || len(vals) != 3 || vals[0] == 0 {
		return nil
	}
	return &losslessjpeg.SliceDescriptor{N: int(vals[0]), WRepeat: int(vals[1]), WLast: int(vals[2])}
}

// openTiffForSniff opens just IFD0, used by identify.go to disambiguate
// TIFF-shaped formats by their Make/DNGVersion tags without walking the
// whole chain.
func openTiffForSniff(s bytestream.Stream) (*tiffcontainer.Container, error) {
	return tiffcontainer.Open(s, 0)
}

// tiffBase is the shared engine behind every TIFF-derived facade (DNG,
// NEF, ARW, PEF, ERF, and the TIFF-variant of CR2), generalizing the
// teacher's per-format processIfd/extractJpeg pair
// (cr2parser.go/nefparser.go) into one reusable implementation
// parameterized by vendor quirks, per SPEC_FULL.md C.9.
type tiffBase struct {
	stream bytestream.Stream
	c      *tiffcontainer.Container
	ftype  RawFileType
	vendor camera.Vendor

	// cfaLocator picks the directory get_raw_data reads from; nil uses
	// defaultCFALocator.
	cfaLocator func(*tiffBase) (*ifd.Dir, error)
	// activeAreaFunc extracts the sensor active area from the CFA
	// directory; nil uses dngActiveArea.
	activeAreaFunc func(*tiffBase, *ifd.Dir) [4]int

	exifDir      *ifd.Dir
	exifResolved bool
	mnoteDir     *ifd.Dir
	mnoteResolved bool
}

// newTiffBase opens a TIFF container at base and walks its IFD chain.
func newTiffBase(s bytestream.Stream, base int64, ftype RawFileType, vendor camera.Vendor) (*tiffBase, error) {
	c, err := tiffcontainer.Open(s, base)
	if err != nil {
		return nil, err
	}
	if _, err := c.WalkChain(); err != nil {
		return nil, err
	}
	return &tiffBase{stream: s, c: c, ftype: ftype, vendor: vendor}, nil
}

func (b *tiffBase) Type() RawFileType { return b.ftype }

func (b *tiffBase) LocateMainIFD() (*ifd.Dir, error) {
	d := b.c.MainDir()
	if d == nil {
		return nil, rawerr.NotFoundErr("tiffBase.LocateMainIFD", nil)
	}
	return d, nil
}

func (b *tiffBase) LocateExifIFD() (*ifd.Dir, error) {
	if b.exifResolved {
		if b.exifDir == nil {
			return nil, rawerr.NotFoundErr("tiffBase.LocateExifIFD", nil)
		}
		return b.exifDir, nil
	}
	b.exifResolved = true
	main, err := b.LocateMainIFD()
	if err != nil {
		return nil, err
	}
	d, err := b.c.DiscoverExif(main)
	if err != nil {
		return nil, err
	}
	b.exifDir = d
	return d, nil
}

func (b *tiffBase) LocateMakerNoteIFD() (*ifd.Dir, error) {
	if b.mnoteResolved {
		if b.mnoteDir == nil {
			return nil, rawerr.NotFoundErr("tiffBase.LocateMakerNoteIFD", nil)
		}
		return b.mnoteDir, nil
	}
	b.mnoteResolved = true
	exif, err := b.LocateExifIFD()
	if err != nil {
		return nil, err
	}
	e, ok := exif.Get(tagMakerNote)
	if !ok {
		return nil, rawerr.NotFoundErr("tiffBase.LocateMakerNoteIFD", nil)
	}
	off, err := e.Integer(0)
	if err != nil {
		return nil, rawerr.InvalidFormat("tiffBase.LocateMakerNoteIFD", err)
	}
	tc, _, err := makernote.Open(b.stream, int64(off), b.c.Endian)
	if err != nil {
		return nil, err
	}
	d := tc.MainDir()
	if d == nil {
		return nil, rawerr.NotFoundErr("tiffBase.LocateMakerNoteIFD", nil)
	}
	b.mnoteDir = d
	return d, nil
}

// defaultCFALocator returns the first directory that looks like a RAW
// sensor plane: PhotometricInterpretation CFA, or (lacking that tag) a
// directory carrying both Compression and StripOffsets. Falls back to
// IFD0.
func defaultCFALocator(b *tiffBase) (*ifd.Dir, error) {
	for _, d := range b.c.Dirs() {
		if e, ok := d.Get(tagPhotometric); ok {
			if v, err := e.Integer(0); err == nil && v == photometricCFA {
				return d, nil
			}
		}
	}
	for _, d := range b.c.Dirs() {
		_, hasComp := d.Get(tagCompression)
		_, hasStrip := d.Get(tagStripOffsets)
		if hasComp && hasStrip {
			return d, nil
		}
	}
	return b.LocateMainIFD()
}

func (b *tiffBase) LocateCFAIFD() (*ifd.Dir, error) {
	if b.cfaLocator != nil {
		return b.cfaLocator(b)
	}
	return defaultCFALocator(b)
}

func (b *tiffBase) IdentifyID() (camera.TypeID, error) {
	main, err := b.LocateMainIFD()
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
		return 0, rawerr.NotFoundErr("tiffBase.IdentifyID", nil)
	}
	return id, nil
}

// subfileType returns a directory's NewSubfileType (0 if absent, which
// is IFD0's implicit default).
func subfileType(d *ifd.Dir) uint32 {
	e, ok := d.Get(tagNewSubfileType)
	if !ok {
		return 0
	}
	v, err := e.Integer(0)
	if err != nil {
		return 0
	}
	return v
}

func dimOf(d *ifd.Dir, tag uint16) int {
	e, ok := d.Get(tag)
	if !ok {
		return 0
	}
	v, err := e.Integer(0)
	if err != nil {
		return 0
	}
	return int(v)
}

// EnumThumbnailSizes walks every loaded directory, keeping the ones
// flagged NewSubfileType==1, and follows either the JPEG offset/length
// pair or the strip offset/bytecount pair depending on Compression, per
// spec.md 4.15.
func (b *tiffBase) EnumThumbnailSizes() ([]ThumbDesc, error) {
	var out []ThumbDesc
	for _, d := range b.c.Dirs() {
		if subfileType(d) != 1 {
			continue
		}
		w, h := dimOf(d, tagImageWidth), dimOf(d, tagImageLength)

		var offsetTag, lengthTag uint16 = tagJpegIFOffset, tagJpegIFByteCount
		dt := ThumbDataJPEG
		if _, ok := d.Get(tagJpegIFOffset); !ok {
			offsetTag, lengthTag = tagStripOffsets, tagStripByteCounts
			dt = ThumbDataPixmap
		}
		offE, ok1 := d.Get(offsetTag)
		lenE, ok2 := d.Get(lengthTag)
		if !ok1 || !ok2 {
			continue
		}
		off, err1 := offE.Integer(0)
		n, err2 := lenE.Integer(0)
		if err1 != nil || err2 != nil {
			continue
		}
		data, err := b.stream.Fetch(int64(off), int(n))
		if err != nil {
			continue
		}
		out = append(out, ThumbDesc{Width: w, Height: h, DataType: dt, Data: data})
	}
	if len(out) == 0 {
		return nil, rawerr.NotFoundErr("tiffBase.EnumThumbnailSizes", nil)
	}
	return out, nil
}

// GetThumbnail returns the smallest enumerated thumbnail whose width is
// >= requestedSize, or else the largest one smaller than it, per
// spec.md 4.15.
func (b *tiffBase) GetThumbnail(requestedSize int) (ThumbDesc, error) {
	sizes, err := b.EnumThumbnailSizes()
	if err != nil {
		return ThumbDesc{}, err
	}
	return pickThumbnail(sizes, requestedSize)
}

func pickThumbnail(sizes []ThumbDesc, requestedSize int) (ThumbDesc, error) {
	var bestGE, bestLT *ThumbDesc
	for i := range sizes {
		t := &sizes[i]
		if t.Width >= requestedSize {
			if bestGE == nil || t.Width < bestGE.Width {
				bestGE = t
			}
		} else if bestLT == nil || t.Width > bestLT.Width {
			bestLT = t
		}
	}
	if bestGE != nil {
		return *bestGE, nil
	}
	if bestLT != nil {
		return *bestLT, nil
	}
	return ThumbDesc{}, rawerr.NotFoundErr("rawfile.GetThumbnail", nil)
}

// dngActiveArea reads DNG's ActiveArea tag (top, left, bottom, right)
// and converts it to {x, y, w, h}.
func dngActiveArea(b *tiffBase, cfa *ifd.Dir) [4]int {
	e, ok := cfa.Get(tagActiveArea)
	if !ok {
		return [4]int{}
	}
	vals, err := e.IntegerArray()
	if err != nil || len(vals) != 4 {
		return [4]int{}
	}
	top, left, bottom, right := int(vals[0]), int(vals[1]), int(vals[2]), int(vals[3])
	return [4]int{left, top, right - left, bottom - top}
}

func cfaPattern(d *ifd.Dir) [2][2]uint8 {
	var pat [2][2]uint8
	e, ok := d.Get(tagCFAPattern)
	if !ok {
		return pat
	}
	b, err := e.Bytes()
	if err != nil || len(b) < 4 {
		return pat
	}
	pat[0][0], pat[0][1], pat[1][0], pat[1][1] = b[0], b[1], b[2], b[3]
	return pat
}

// GetRawData locates the CFA directory, reads its dimensions/
// compression, and either copies the strip verbatim (uncompressed, or
// DontDecompress requested) or dispatches the matching decompressor,
// per spec.md 4.15.
func (b *tiffBase) GetRawData(options Options) (*RawData, error) {
	cfa, err := b.LocateCFAIFD()
	if err != nil {
		return nil, err
	}
	w, h := dimOf(cfa, tagImageWidth), dimOf(cfa, tagImageLength)
	if w == 0 || h == 0 {
		return nil, rawerr.NotFoundErr("tiffBase.GetRawData", nil)
	}
	bpc := dimOf(cfa, tagBitsPerSample)
	if bpc == 0 {
		bpc = 16
	}
	comp := uint32(1)
	if e, ok := cfa.Get(tagCompression); ok {
		if v, err := e.Integer(0); err == nil {
			comp = v
		}
	}
	offE, ok1 := cfa.Get(tagStripOffsets)
	lenE, ok2 := cfa.Get(tagStripByteCounts)
	if !ok1 || !ok2 {
		return nil, rawerr.NotFoundErr("tiffBase.GetRawData", nil)
	}
	off, err1 := offE.Integer(0)
	n, err2 := lenE.Integer(0)
	if err1 != nil || err2 != nil {
		return nil, rawerr.InvalidFormat("tiffBase.GetRawData", nil)
	}
	raw, err := b.stream.Fetch(int64(off), int(n))
	if err != nil {
		return nil, err
	}

	data := &RawData{
		Width: w, Height: h, BitsPerSample: bpc,
		CFAPattern: cfaPattern(cfa),
	}
	if af := b.activeAreaFunc; af != nil {
		data.ActiveArea = af(b, cfa)
	} else {
		data.ActiveArea = dngActiveArea(b, cfa)
	}
	if id, err := b.IdentifyID(); err == nil {
		if black, white, err := camera.Levels(id); err == nil {
			data.BlackLevel, data.WhiteLevel = black, white
		}
	}
	if m, i1, err := b.GetColourMatrix(1); err == nil {
		data.ColorMatrix = m
		data.Illuminant1 = i1
	}

	if options&DontDecompress != 0 && comp != 1 {
		data.Compressed = true
		data.CompressedBytes = raw
		return data, nil
	}

	pixels, err := decompressStrip(comp, bpc, w, h, b.vendor, b.c.Endian, raw, canonSlices(cfa))
	if err != nil {
		return nil, err
	}
	data.Pixels = pixels
	return data, nil
}

func decompressStrip(compression uint32, bpc, w, h int, vendor camera.Vendor, endian bytestream.Endian, raw []byte, slices *losslessjpeg.SliceDescriptor) ([]uint16, error) {
	switch compression {
	case 1:
		switch bpc {
		case 16:
			return unpackU16(raw, endian)
		case 12:
			return unpack12.Unpack12to16(raw, vendor == camera.VendorNikon)
		default:
			return nil, rawerr.NotImplementedErr("rawfile.decompressStrip", nil)
		}
	case 6, 7:
		res, err := losslessjpeg.Decode(raw, slices)
		if err != nil {
			return nil, err
		}
		return res.Pixels, nil
	default:
		return nil, rawerr.NotImplementedErr("rawfile.decompressStrip", nil)
	}
}

func unpackU16(raw []byte, endian bytestream.Endian) ([]uint16, error) {
	n := len(raw) / 2
	out := make([]uint16, n)
	for i := 0; i < n; i++ {
		a, b := raw[2*i], raw[2*i+1]
		if endian == bytestream.BigEndian {
			out[i] = uint16(a)<<8 | uint16(b)
		} else {
			out[i] = uint16(b)<<8 | uint16(a)
		}
	}
	return out, nil
}

// GetMetaValue looks up tag across the main, Exif, and MakerNote
// namespaces in that order, per spec.md 4.15.
func (b *tiffBase) GetMetaValue(tag uint16) (*ifd.Entry, error) {
	if main, err := b.LocateMainIFD(); err == nil {
		if e, ok := main.Get(tag); ok {
			return e, nil
		}
	}
	if exif, err := b.LocateExifIFD(); err == nil {
		if e, ok := exif.Get(tag); ok {
			return e, nil
		}
	}
	if mn, err := b.LocateMakerNoteIFD(); err == nil {
		if e, ok := mn.Get(tag); ok {
			return e, nil
		}
	}
	return nil, rawerr.NotFoundErr("tiffBase.GetMetaValue", nil)
}

// dngColourMatrix reads ColorMatrix1/2 (9 SRATIONALs) and its paired
// CalibrationIlluminant, if the file declares one.
func (b *tiffBase) dngColourMatrix(index int) ([9]float64, camera.Illuminant, error) {
	var out [9]float64
	main, err := b.LocateMainIFD()
	if err != nil {
		return out, 0, err
	}
	matTag, illumTag := uint16(tagColorMatrix1), uint16(tagCalibIlluminant1)
	if index == 2 {
		matTag, illumTag = tagColorMatrix2, tagCalibIlluminant2
	}
	e, ok := main.Get(matTag)
	if !ok {
		return out, 0, rawerr.NotFoundErr("tiffBase.dngColourMatrix", nil)
	}
	for i := 0; i < 9; i++ {
		r, err := e.Rational(i)
		if err != nil {
			return out, 0, err
		}
		out[i] = r.Float()
	}
	illum := camera.IlluminantD65
	if index == 2 {
		illum = camera.IlluminantUnknown
	}
	if ie, ok := main.Get(illumTag); ok {
		if v, err := ie.Integer(0); err == nil {
			illum = camera.Illuminant(v)
		}
	}
	return out, illum, nil
}

// GetColourMatrix returns the DNG-declared matrix for index if present,
// else the built-in table entry for this file's identified camera, per
// spec.md 4.15.
func (b *tiffBase) GetColourMatrix(index int) ([9]float64, camera.Illuminant, error) {
	if m, illum, err := b.dngColourMatrix(index); err == nil {
		return m, illum, nil
	}
	id, err := b.IdentifyID()
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

func (b *tiffBase) Close() error { return b.stream.Close() }
