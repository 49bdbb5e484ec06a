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

package cmd

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"

	goexif "github.com/rwcarlsen/goexif/exif"
	"github.com/spf13/cobra"

	"github.com/jdtorres/rawcore"
)

func newMetaCommand(log *slog.Logger) *cobra.Command {
	var compat bool

	cmd := &cobra.Command{
		Use:   "meta <file>",
		Short: "Walks a RAW file's TIFF/Exif/MakerNote metadata.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			filename := args[0]
			rf, err := rawcore.Open(filename)
			if err != nil {
				return fmt.Errorf("opening %q: %w", filename, err)
			}
			defer rf.Close()

			out := cmd.OutOrStdout()
			printNamespace := func(name string, dir *rawcore.Dir, err error) {
				if err != nil {
					log.Debug("namespace unavailable", slog.String("namespace", name), slog.Any("err", err))
					return
				}
				fmt.Fprintf(out, "[%s]\n", name)
				for _, tag := range dir.Tags() {
					e, ok := dir.Get(tag)
					if !ok {
						continue
					}
					fmt.Fprintf(out, "  0x%04x: %s\n", tag, describeEntry(e))
				}
			}

			main, mErr := rf.MainIFD()
			printNamespace("main", main, mErr)
			exif, eErr := rf.ExifIFD()
			printNamespace("exif", exif, eErr)
			mn, mnErr := rf.MakerNoteIFD()
			printNamespace("makernote", mn, mnErr)

			if compat {
				printCompatExif(out, log, rf)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&compat, "compat", false,
		"also decode the embedded thumbnail's standard Exif block via goexif, for cross-checking")
	return cmd
}

// describeEntry renders an entry's value for display, falling back
// across the accessor hierarchy from most to least specific the way
// an interactive metadata dump needs to (a tag's declared Type
// dictates which accessor succeeds).
func describeEntry(e *rawcore.Entry) string {
	if s, err := e.String(); err == nil {
		return s
	}
	if arr, err := e.IntegerArray(); err == nil {
		return fmt.Sprintf("%v", arr)
	}
	if b, err := e.Bytes(); err == nil {
		return fmt.Sprintf("% x", b)
	}
	return "<unreadable>"
}

// printCompatExif decodes the file's embedded thumbnail as a
// standalone JPEG through goexif -- an independent, widely-used Exif
// reader -- and prints its own view of the same file's Exif block, so
// a user can cross-check this module's own TIFF/Exif walk against it.
// goexif only sees what's inside the JPEG thumbnail's own Exif APP1
// segment, which is usually a subset of the full RAW file's metadata.
func printCompatExif(out io.Writer, log *slog.Logger, rf *rawcore.RawFile) {
	thumb, err := rf.GetThumbnail(0)
	if err != nil {
		log.Debug("no thumbnail available for --compat", slog.Any("err", err))
		return
	}
	x, err := goexif.Decode(bytes.NewReader(thumb.Data))
	if err != nil {
		log.Debug("goexif could not decode the thumbnail", slog.Any("err", err))
		return
	}
	fmt.Fprintf(out, "[compat: goexif view of the embedded thumbnail]\n%s\n", x.String())
}
