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

// Package rawcore provides the consumer-facing surface spec.md 6
// names: opening a camera RAW file by path or by an already-held byte
// stream, enumerating and fetching thumbnails, fetching RAW pixel
// data, walking metadata, and reading a camera's built-in color
// matrix -- all dispatched through the internal per-format facades
// registered in internal/rawfile.Default(). Mirrors how the teacher's
// own root package (rawparser.go) is a thin struct-and-registry
// wrapper over its per-format parsers, not a parser itself.
package rawcore

import (
	"time"

	"github.com/jdtorres/rawcore/internal/bytestream"
	"github.com/jdtorres/rawcore/internal/camera"
	"github.com/jdtorres/rawcore/internal/ifd"
	"github.com/jdtorres/rawcore/internal/rawfile"
	"github.com/jdtorres/rawcore/rawerr"
)

// Re-exported so callers never need to import internal/rawfile or
// internal/camera directly.
type (
	// Options is the get_raw_data option bitmask from spec.md 6.
	Options = rawfile.Options
	// ThumbDesc describes one embedded thumbnail/preview candidate.
	ThumbDesc = rawfile.ThumbDesc
	// RawData is GetRawData's fully-resolved result.
	RawData = rawfile.RawData
	// TypeID is a vendor<<16|model-code camera identifier.
	TypeID = camera.TypeID
	// Illuminant is an Exif light-source enum value.
	Illuminant = camera.Illuminant
	// Entry is a materialized IFD field.
	Entry = ifd.Entry
	// Dir is a walked Image File Directory.
	Dir = ifd.Dir
)

// DontDecompress returns the on-disk compressed payload verbatim
// instead of dispatching a decompressor.
const DontDecompress = rawfile.DontDecompress

// tagOrientation is Exif 0x0112, read by RawFile.Orientation.
const tagOrientation = 0x0112

// RawFile is an opened camera RAW file, wrapping the matching
// internal/rawfile facade and (when opened via Open) the *os.File
// backing it so Close releases the descriptor.
type RawFile struct {
	f      rawfile.Interface
	stream bytestream.Stream
}

// Open opens the file at path and identifies its format against
// internal/rawfile.Default(), mirroring RawParsers.GetParser followed
// by ProcessFile in the teacher, generalized from a fixed extension
// lookup to the byte-sniffing table of spec.md 4.15.
func Open(path string) (*RawFile, error) {
	fs, err := bytestream.Open(path)
	if err != nil {
		return nil, rawerr.CantOpenErr("rawcore.Open", err)
	}
	return OpenStream(fs)
}

// OpenStream identifies and opens an already-held byte stream,
// transferring ownership: RawFile.Close closes s. Useful for callers
// that already hold the bytes in memory (bytestream.NewMemStream) or
// need a stream source other than a local path.
func OpenStream(s bytestream.Stream) (*RawFile, error) {
	f, err := rawfile.Default().Open(s)
	if err != nil {
		s.Close()
		return nil, err
	}
	return &RawFile{f: f, stream: s}, nil
}

// Close releases the underlying byte stream and any per-format state.
func (r *RawFile) Close() error { return r.f.Close() }

// Type reports which RawFileType the facade was identified as.
func (r *RawFile) Type() rawfile.RawFileType { return r.f.Type() }

// IdentifyID resolves the vendor/model TypeID from an exact Make+Model
// table match, falling back to a vendor-only TypeID when only the Make
// is known. No numeric MakerNote camera-model ID is read.
func (r *RawFile) IdentifyID() (TypeID, error) { return r.f.IdentifyID() }

// EnumThumbnailSizes returns every embedded thumbnail/preview
// candidate this file carries.
func (r *RawFile) EnumThumbnailSizes() ([]ThumbDesc, error) {
	return r.f.EnumThumbnailSizes()
}

// GetThumbnail returns the available thumbnail whose size is smallest
// greater-than-or-equal to requestedSize, or else the largest smaller
// one, per spec.md 4.15's selection rule.
func (r *RawFile) GetThumbnail(requestedSize int) (ThumbDesc, error) {
	return r.f.GetThumbnail(requestedSize)
}

// GetRawData decodes (or, with DontDecompress, passes through) this
// file's RAW sensor plane.
func (r *RawFile) GetRawData(options Options) (*RawData, error) {
	return r.f.GetRawData(options)
}

// GetMetaValue looks up tag across this format's TIFF/Exif/MakerNote
// namespaces, returning the first IFD that defines it.
func (r *RawFile) GetMetaValue(tag uint16) (*Entry, error) {
	return r.f.GetMetaValue(tag)
}

// MainIFD, ExifIFD, and MakerNoteIFD expose the raw per-namespace
// directories for callers (cmd/rawinfo's "meta" command) that need to
// enumerate every tag a file carries rather than look one up by
// number. A nil error with a nil *Dir never happens; a missing
// namespace (e.g. CRW's lack of a TIFF IFD) returns an error instead.
func (r *RawFile) MainIFD() (*Dir, error)      { return r.f.LocateMainIFD() }
func (r *RawFile) ExifIFD() (*Dir, error)      { return r.f.LocateExifIFD() }
func (r *RawFile) MakerNoteIFD() (*Dir, error) { return r.f.LocateMakerNoteIFD() }
func (r *RawFile) CFAIFD() (*Dir, error)       { return r.f.LocateCFAIFD() }

// GetColourMatrix returns the DNG ColorMatrix1/2 if the file carries
// one, else the built-in per-camera matrix, in fixed-point /10000 as
// nine float64s, alongside its declared calibration illuminant.
func (r *RawFile) GetColourMatrix(index int) ([9]float64, Illuminant, error) {
	return r.f.GetColourMatrix(index)
}

// Orientation reads Exif tag 0x0112 from the main IFD, defaulting to
// 1 (TopLeft, no rotation) when the tag is absent -- orientation is
// never fatal to a RAW open, matching spec.md 7's propagation policy
// ("a missing Orientation tag is not fatal").
func (r *RawFile) Orientation() (int, error) {
	e, err := r.f.GetMetaValue(tagOrientation)
	if err != nil {
		return 1, nil
	}
	v, err := e.Integer(0)
	if err != nil {
		return 1, nil
	}
	return int(v), nil
}

// CreateDate reads the main IFD's DateTime tag (0x0132) as a
// TIFF-format "YYYY:MM:DD HH:MM:SS" string, mirroring the teacher's
// own parseDateTime but against the generalized facade rather than a
// single hard-coded parser.
func (r *RawFile) CreateDate() (time.Time, error) {
	const tagDateTime = 0x0132
	const layout = "2006:01:02 15:04:05"

	e, err := r.f.GetMetaValue(tagDateTime)
	if err != nil {
		return time.Time{}, err
	}
	s, err := e.String()
	if err != nil {
		return time.Time{}, err
	}
	t, err := time.Parse(layout, s)
	if err != nil {
		return time.Time{}, rawerr.InvalidFormat("rawcore.CreateDate", err)
	}
	return t, nil
}
