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
// Package jfif wraps a RAW file's embedded JFIF/Exif JPEG preview and
// thumbnail payloads, adapted from the teacher's decodeAndWriteJpeg/
// decodeJpeg (jeremytorres-rawparser/jpeggo.go), which used the stdlib
// image/jpeg package directly on a byte slice read out of a CR2/NEF
// IFD entry. This generalizes that to any container's embedded JPEG
// (CR2/NEF subIFD thumbnails, RAF's JpegPreview, CR3's PRVW/THMB
// tracks) and swaps the teacher's direct log.Printf calls for an
// injected *slog.Logger, matching rawlog's convention.
package jfif

import (
	"bytes"
	"image"
	"image/jpeg"
	"log/slog"

	"github.com/jdtorres/rawcore/rawerr"
)

// Preview is a decoded embedded JPEG preview or thumbnail plus the
// dimensions the container's own directory entry claimed for it (so
// callers can pick the right-sized preview without decoding every
// candidate).
type Preview struct {
	Width, Height int
	Data          []byte
}

// Decode decodes an embedded JFIF/Exif JPEG payload, mirroring the
// teacher's decodeJpeg.
func Decode(data []byte, logger *slog.Logger) (image.Image, error) {
	img, err := jpeg.Decode(bytes.NewReader(data))
	if err != nil {
		if logger != nil {
			logger.Warn("decoding embedded jpeg failed", "error", err)
		}
		return nil, rawerr.Decode("jfif.Decode", err)
	}
	return img, nil
}

// Encode re-encodes img as a JPEG at the given quality (1-100, 100
// best), mirroring the teacher's encodeAndWriteJpeg but writing to a
// *bytes.Buffer rather than hard-coding *os.File.
func Encode(w *bytes.Buffer, img image.Image, quality int) error {
	if err := jpeg.Encode(w, img, &jpeg.Options{Quality: quality}); err != nil {
		return rawerr.New(rawerr.Decompression, "jfif.Encode", err)
	}
	return nil
}

// Bounds decodes just enough of data to report its pixel dimensions,
// without materializing the full decoded image -- used when listing
// preview candidates by size.
func Bounds(data []byte) (width, height int, err error) {
	cfg, err := jpeg.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return 0, 0, rawerr.InvalidFormat("jfif.Bounds", err)
	}
	return cfg.Width, cfg.Height, nil
}
