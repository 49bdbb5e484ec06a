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
	"fmt"
	"log/slog"
	"os"

	"github.com/qeesung/image2ascii/convert"
	"github.com/spf13/cobra"

	"github.com/jdtorres/rawcore"
	"github.com/jdtorres/rawcore/internal/container/jfif"
)

func newThumbnailCommand(log *slog.Logger) *cobra.Command {
	var (
		size  int
		ascii bool
		out   string
	)

	cmd := &cobra.Command{
		Use:     "thumbnail <file>",
		Short:   "Extracts or previews a RAW file's embedded thumbnail.",
		Aliases: []string{"thumb"},
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			filename := args[0]
			rf, err := rawcore.Open(filename)
			if err != nil {
				return fmt.Errorf("opening %q: %w", filename, err)
			}
			defer rf.Close()

			thumb, err := rf.GetThumbnail(size)
			if err != nil {
				return fmt.Errorf("fetching thumbnail: %w", err)
			}
			log.Debug("thumbnail selected",
				slog.Int("width", thumb.Width), slog.Int("height", thumb.Height))

			if ascii {
				return printASCIIThumbnail(cmd, thumb, log)
			}

			if out == "" {
				out = filename + ".thumb.jpg"
			}
			if err := os.WriteFile(out, thumb.Data, 0o644); err != nil {
				return fmt.Errorf("writing %q: %w", out, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %dx%d thumbnail to %s\n", thumb.Width, thumb.Height, out)
			return nil
		},
	}

	cmd.Flags().IntVar(&size, "size", 0, "requested thumbnail dimension; picks the smallest size at least this large, else the largest smaller one")
	cmd.Flags().BoolVar(&ascii, "ascii", false, "render the thumbnail as ASCII art to stdout instead of writing a file")
	cmd.Flags().StringVar(&out, "out", "", "output file path (default: <input>.thumb.jpg)")
	return cmd
}

// printASCIIThumbnail decodes the thumbnail's JPEG bytes and renders
// them with qeesung/image2ascii, the same library and DefaultOptions/
// FixedWidth+FixedHeight pattern ma-tf-meta1v's display package uses
// for its own EFD thumbnail previews.
func printASCIIThumbnail(cmd *cobra.Command, thumb rawcore.ThumbDesc, log *slog.Logger) error {
	img, err := jfif.Decode(thumb.Data, log)
	if err != nil {
		return fmt.Errorf("decoding thumbnail JPEG: %w", err)
	}

	options := convert.DefaultOptions
	options.FixedWidth = thumb.Width
	const heightRatio = 2
	options.FixedHeight = thumb.Height / heightRatio
	if options.FixedHeight == 0 {
		options.FixedHeight = 1
	}

	ascii := convert.NewImageConverter().Image2ASCIIString(img, &options)
	fmt.Fprintln(cmd.OutOrStdout(), ascii)
	return nil
}
