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
// Package makernote sniffs a vendor MakerNote's dialect and opens its
// IFD, ported from original_source/lib/makernotedir.{h,cpp}'s
// MakerNoteDir::createMakerNote. MakerNote payloads are TIFF-shaped IFDs
// embedded inside the host file's Exif IFD, but vendors disagree on
// whether (and how) a magic prefix, a version byte, and even a whole
// second TIFF header precede the directory itself; sniffing the first
// 18 bytes at the MakerNote's offset resolves which layout applies and
// where "offset zero" means for entries inside it.
package makernote

import (
	"github.com/jdtorres/rawcore/internal/bytestream"
	"github.com/jdtorres/rawcore/internal/container/tiffcontainer"
	"github.com/jdtorres/rawcore/internal/ifd"
	"github.com/jdtorres/rawcore/rawerr"
)

// Dialect identifies which vendor MakerNote layout was sniffed.
type Dialect int

const (
	DialectUnknown Dialect = iota
	// DialectNikonV1 is "Nikon\x00" followed by a single version byte 1:
	// the IFD starts 8 bytes past the MakerNote offset and entry offsets
	// are relative to that same point.
	DialectNikonV1
	// DialectNikonV2 is "Nikon\x00" followed by version byte 2: bytes
	// 10-17 are a whole second TIFF header (its own byte-order mark and
	// magic), and the IFD is whatever that header's first-IFD offset
	// names, relative to byte 10.
	DialectNikonV2
	// DialectOlympusLong is "OLYMPUS\x00": the IFD starts 12 bytes past
	// the MakerNote offset, but entry offsets remain relative to the
	// MakerNote's own start (no rebasing).
	DialectOlympusLong
	// DialectOlympusShort is "OLYMP\x00": the IFD starts 8 bytes past the
	// MakerNote offset, with entry offsets relative to that same point.
	DialectOlympusShort
)

// Sniff reads the 18-byte prefix at offset and identifies which
// Dialect it matches, mirroring the sequence of memcmp checks in
// createMakerNote.
func Sniff(s bytestream.Stream, offset int64) (Dialect, error) {
	data, err := s.Fetch(offset, 18)
	if err != nil {
		return DialectUnknown, rawerr.InvalidFormat("makernote.Sniff", err)
	}

	if string(data[0:6]) == "Nikon\x00" {
		switch data[6] {
		case 1:
			return DialectNikonV1, nil
		case 2:
			return DialectNikonV2, nil
		default:
			return DialectUnknown, nil
		}
	}
	if string(data[0:8]) == "OLYMPUS\x00" {
		return DialectOlympusLong, nil
	}
	if string(data[0:6]) == "OLYMP\x00" {
		return DialectOlympusShort, nil
	}
	return DialectUnknown, nil
}

// Open sniffs the MakerNote at offset and returns a tiffcontainer.Container
// whose MainDir is the MakerNote's own IFD (subtype
// ifd.SubtypeMakerNote), mirroring createMakerNote's dispatch to one of
// three MakerNoteDir constructions. endian is the host file's byte
// order, used for every dialect except DialectNikonV2, whose embedded
// TIFF header carries (and may override) its own.
func Open(s bytestream.Stream, offset int64, endian bytestream.Endian) (*tiffcontainer.Container, Dialect, error) {
	dialect, err := Sniff(s, offset)
	if err != nil {
		return nil, DialectUnknown, err
	}

	switch dialect {
	case DialectNikonV2:
		tc, err := tiffcontainer.Open(s, offset+10)
		if err != nil {
			return nil, dialect, err
		}
		return tc, dialect, nil

	case DialectNikonV1:
		return headerlessIFD(s, endian, offset+8, offset+8, dialect)

	case DialectOlympusLong:
		return headerlessIFD(s, endian, offset+12, offset, dialect)

	case DialectOlympusShort:
		return headerlessIFD(s, endian, offset+8, offset+8, dialect)

	default:
		// Unknown dialect: fall back to treating the MakerNote as a bare
		// IFD with no offset correction, the same default createMakerNote
		// applies when no signature matches.
		return headerlessIFD(s, endian, offset, offset, dialect)
	}
}

// headerlessIFD builds a Container around a MakerNote IFD that has no
// TIFF header of its own: ifdOffset is where the IFD's entry count
// begins, and offsetCorrection is what out-of-line entry offsets
// within it are relative to.
func headerlessIFD(s bytestream.Stream, endian bytestream.Endian, ifdOffset, offsetCorrection int64, dialect Dialect) (*tiffcontainer.Container, Dialect, error) {
	tc := &tiffcontainer.Container{Stream: s, Endian: endian, Base: 0, OffsetCorrection: offsetCorrection}
	if _, err := tc.ReadDirAt(ifdOffset, ifd.SubtypeMakerNote); err != nil {
		return nil, dialect, err
	}
	return tc, dialect, nil
}
