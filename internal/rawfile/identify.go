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
	"github.com/jdtorres/rawcore/rawerr"
)

// Identify sniffs s's leading bytes against spec.md 4.15's
// format-identification table and returns the matching RawFileType.
// TIFF-shaped formats (DNG/NEF/ARW/PEF/ERF/CR2) share the same two
// leading magics and are disambiguated by the Make tag / a DNGVersion
// tag inside IFD0, which identifyTiffVariant reads.
func Identify(s bytestream.Stream) (RawFileType, error) {
	head, err := s.Fetch(0, 16)
	if err != nil {
		return TypeUnknown, rawerr.InvalidFormat("rawfile.Identify", err)
	}

	if len(head) >= 4 && string(head[0:4]) == "\x00MRM" {
		return TypeMRW, nil
	}
	if len(head) >= 12 && string(head[4:8]) == "ftyp" && string(head[8:12]) == "crx " {
		return TypeCR3, nil
	}
	if len(head) >= 14 && string(head[0:2]) == "II" && head[2] == 0x1a && head[3] == 0x00 &&
		string(head[6:14]) == "HEAPCCDR" {
		return TypeCRW, nil
	}
	if len(head) >= 4 && (string(head[0:4]) == "IIRO" || string(head[0:4]) == "IIRS") {
		return TypeORF, nil
	}
	if len(head) >= 4 && string(head[0:4]) == "IIU\x00" {
		return TypeRW2, nil
	}
	if len(head) >= 16 && string(head[0:16]) == "FUJIFILMCCD-RAW " {
		return TypeRAF, nil
	}

	if len(head) >= 4 && (string(head[0:4]) == "II*\x00" || string(head[0:4]) == "MM\x00*") {
		return identifyTiffVariant(s)
	}

	return TypeUnknown, rawerr.InvalidFormat("rawfile.Identify", nil)
}

// identifyTiffVariant disambiguates among the TIFF-shaped formats by
// reading IFD0's Make tag and checking for a DNGVersion tag, per
// spec.md 4.15's table.
func identifyTiffVariant(s bytestream.Stream) (RawFileType, error) {
	c, err := openTiffForSniff(s)
	if err != nil {
		return TypeUnknown, err
	}
	main := c.MainDir()
	if main == nil {
		return TypeUnknown, rawerr.InvalidFormat("rawfile.identifyTiffVariant", nil)
	}

	if _, ok := main.Get(tagDNGVersion); ok {
		return TypeDNG, nil
	}

	make := ""
	if e, ok := main.Get(tagMake); ok {
		if s, err := e.String(); err == nil {
			make = s
		}
	}

	switch {
	case hasPrefix(make, "NIKON"):
		return TypeNEF, nil
	case make == "SEIKO EPSON CORP.":
		return TypeERF, nil
	case make == "PENTAX":
		return TypePEF, nil
	case hasPrefix(make, "SONY"):
		return TypeARW, nil
	case make == "Canon":
		return TypeCR2, nil
	default:
		return TypeDNG, nil
	}
}

func hasPrefix(s, prefix string) bool {
	return len(s) >= len(prefix) && s[:len(prefix)] == prefix
}
