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
	"bytes"

	"github.com/jdtorres/rawcore/internal/bytestream"
	"github.com/jdtorres/rawcore/internal/camera"
	"github.com/jdtorres/rawcore/internal/container/ciff"
	"github.com/jdtorres/rawcore/internal/container/jfif"
	"github.com/jdtorres/rawcore/internal/decode/crwhuffman"
	"github.com/jdtorres/rawcore/internal/ifd"
	"github.com/jdtorres/rawcore/rawerr"
)

// crwFile is Canon's CRW: a CIFF heap file (internal/container/ciff)
// rather than a TIFF variant. Its raw plane is coded with Canon's own
// block-Huffman scheme (internal/decode/crwhuffman), selected by the
// Exif-info heap's DecoderTable entry -- mirroring CRWFile::_getRawData
// and _getDecoderInfo in original_source/lib/crwfile.cpp.
type crwFile struct {
	cc *ciff.Container
}

func openCRW(s bytestream.Stream) (Interface, error) {
	cc, err := ciff.Open(s)
	if err != nil {
		return nil, err
	}
	return &crwFile{cc: cc}, nil
}

func (f *crwFile) Type() RawFileType { return TypeCRW }

// LocateMainIFD/LocateExifIFD/LocateMakerNoteIFD have no TIFF IFD
// analogue in a CIFF file; CRW exposes its metadata through CIFF
// records instead, surfaced by GetMetaValue.
func (f *crwFile) LocateMainIFD() (*ifd.Dir, error) {
	return nil, rawerr.NotImplementedErr("crwFile.LocateMainIFD", nil)
}

func (f *crwFile) LocateCFAIFD() (*ifd.Dir, error) {
	return nil, rawerr.NotImplementedErr("crwFile.LocateCFAIFD", nil)
}

func (f *crwFile) LocateExifIFD() (*ifd.Dir, error) {
	return nil, rawerr.NotImplementedErr("crwFile.LocateExifIFD", nil)
}

func (f *crwFile) LocateMakerNoteIFD() (*ifd.Dir, error) {
	return nil, rawerr.NotImplementedErr("crwFile.LocateMakerNoteIFD", nil)
}

// IdentifyID reads the root heap's RawMakeModel record, a NUL-separated
// "Make\0Model\0" pair, mirroring CRWFile::_identifyId.
func (f *crwFile) IdentifyID() (camera.TypeID, error) {
	root, err := f.cc.Root()
	if err != nil {
		return 0, err
	}
	make, model, err := f.rawMakeModel(root)
	if err != nil {
		return 0, err
	}
	id, ok := camera.Identify(make, model)
	if !ok {
		return 0, rawerr.NotFoundErr("crwFile.IdentifyID", nil)
	}
	return id, nil
}

func (f *crwFile) rawMakeModel(root *ciff.Heap) (string, string, error) {
	_, data, err := f.heapRecordBytes(root, ciff.TagRawMakeModel)
	if err != nil {
		return "", "", err
	}
	parts := bytes.SplitN(data, []byte{0}, 3)
	if len(parts) < 2 {
		return "", "", rawerr.InvalidFormat("crwFile.rawMakeModel", nil)
	}
	return string(parts[0]), string(parts[1]), nil
}

// EnumThumbnailSizes/GetThumbnail report the root heap's embedded JPEG
// thumbnail (TagJpegThumbnail), mirroring CRWFile::_getThumbnail.
func (f *crwFile) EnumThumbnailSizes() ([]ThumbDesc, error) {
	root, err := f.cc.Root()
	if err != nil {
		return nil, err
	}
	rec, data, err := f.heapRecordBytes(root, ciff.TagJpegThumbnail)
	if err != nil {
		return nil, err
	}
	_ = rec
	w, h, err := jfif.Bounds(data)
	if err != nil {
		return nil, err
	}
	return []ThumbDesc{{Width: w, Height: h, DataType: ThumbDataJPEG, Data: data}}, nil
}

func (f *crwFile) GetThumbnail(requestedSize int) (ThumbDesc, error) {
	sizes, err := f.EnumThumbnailSizes()
	if err != nil {
		return ThumbDesc{}, err
	}
	return pickThumbnail(sizes, requestedSize)
}

// heapRecordBytes fetches the raw bytes a heap record (possibly
// out-of-line) describes, whether inline or offset-addressed.
func (f *crwFile) heapRecordBytes(h *ciff.Heap, tag ciff.Tag) (ciff.Record, []byte, error) {
	for _, r := range h.Records {
		if r.Tag() != tag {
			continue
		}
		if r.InRecord {
			return r, append([]byte(nil), r.Inline[:]...), nil
		}
		data, err := f.cc.Stream.Fetch(h.Start+int64(r.Offset), int(r.Length))
		if err != nil {
			return ciff.Record{}, nil, err
		}
		return r, data, nil
	}
	return ciff.Record{}, nil, rawerr.NotFoundErr("crwFile.heapRecordBytes", nil)
}

// GetRawData reads the root heap's RawImageData record and dispatches
// Canon's CIFF Huffman decompressor, mirroring CRWFile::_getRawData.
// Dimensions and bit depth come from the image-properties heap's
// ImageSpec record (TagImageInfo); the decoder table index comes from
// the Exif-info heap's CameraSettings array (index 0, per dcraw's
// canon_compressed_load_raw convention), clamped into [0,2].
func (f *crwFile) GetRawData(options Options) (*RawData, error) {
	rec, ok, err := f.cc.RawDataRecord()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, rawerr.NotFoundErr("crwFile.GetRawData", nil)
	}
	root, err := f.cc.Root()
	if err != nil {
		return nil, err
	}
	raw, err := f.cc.Stream.Fetch(root.Start+int64(rec.Offset), int(rec.Length))
	if err != nil {
		return nil, err
	}

	spec, err := f.cc.ImageSpec()
	if err != nil {
		return nil, err
	}
	w, h := int(spec.ImageWidth), int(spec.ImageHeight)
	bpc := int(spec.ComponentBitDepth)

	data := &RawData{
		Width: w, Height: h, BitsPerSample: bpc,
		CFAPattern: [2][2]uint8{{0, 1}, {1, 2}}, // RGGB: every built-in CRW calibration in this table uses it
	}
	if id, err := f.IdentifyID(); err == nil {
		if black, white, err := camera.Levels(id); err == nil {
			data.BlackLevel, data.WhiteLevel = black, white
		}
	}
	if data.WhiteLevel == 0 {
		data.WhiteLevel = uint16(1<<uint(bpc)) - 1
	}

	if options&DontDecompress != 0 {
		data.Compressed = true
		data.CompressedBytes = raw
		return data, nil
	}

	tableIdx := f.decoderTableIndex()
	pixels, err := crwhuffman.Decompress(raw, w, h, tableIdx)
	if err != nil {
		return nil, err
	}
	data.Pixels = pixels
	return data, nil
}

func (f *crwFile) decoderTableIndex() int {
	settings, err := f.cc.CameraSettings()
	if err != nil || len(settings) == 0 {
		return 0
	}
	idx := int(settings[0])
	if idx < 0 {
		return 0
	}
	if idx > 2 {
		return 2
	}
	return idx
}

// GetMetaValue has no TIFF-tag namespace to search in a CIFF file;
// CRW callers use the format-specific CIFF accessors instead (Root,
// ImageSpec, CameraSettings).
func (f *crwFile) GetMetaValue(tag uint16) (*ifd.Entry, error) {
	return nil, rawerr.NotImplementedErr("crwFile.GetMetaValue", nil)
}

func (f *crwFile) GetColourMatrix(index int) ([9]float64, camera.Illuminant, error) {
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

func (f *crwFile) Close() error { return f.cc.Stream.Close() }
