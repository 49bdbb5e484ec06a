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
)

// dngFile is Adobe DNG 1.4 (subset): a plain TIFF carrying DNGVersion,
// UniqueCameraModel, ColorMatrix1/2, CalibrationIlluminant1/2,
// ActiveArea, and DefaultCropOrigin/Size, per spec.md 6. DNG's vendor
// varies per embedded camera, so it carries no MakerNote dialect quirk
// of its own -- LocateMakerNoteIFD falls through to tiffBase's generic
// Exif-pointer lookup, which fails NotFound on files with no vendor
// MakerNote, exactly as spec.md 7 says a missing optional tag should.
type dngFile struct{ *tiffBase }

func openDNG(s bytestream.Stream) (Interface, error) {
	b, err := newTiffBase(s, 0, TypeDNG, camera.VendorUnknown)
	if err != nil {
		return nil, err
	}
	return &dngFile{b}, nil
}
