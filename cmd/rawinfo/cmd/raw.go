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
	"encoding/binary"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/jdtorres/rawcore"
)

func newRawCommand(log *slog.Logger) *cobra.Command {
	var (
		dontDecompress bool
		out            string
	)

	cmd := &cobra.Command{
		Use:   "raw <file>",
		Short: "Fetches a RAW file's decoded (or, with --dont-decompress, verbatim) sensor plane.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			filename := args[0]
			rf, err := rawcore.Open(filename)
			if err != nil {
				return fmt.Errorf("opening %q: %w", filename, err)
			}
			defer rf.Close()

			var options rawcore.Options
			if dontDecompress {
				options = rawcore.DontDecompress
			}

			data, err := rf.GetRawData(options)
			if err != nil {
				return fmt.Errorf("fetching raw data: %w", err)
			}

			stdout := cmd.OutOrStdout()
			fmt.Fprintf(stdout, "dims: %dx%d bpc=%d compressed=%v\n",
				data.Width, data.Height, data.BitsPerSample, data.Compressed)
			fmt.Fprintf(stdout, "cfa: %v active-area: %v\n", data.CFAPattern, data.ActiveArea)
			fmt.Fprintf(stdout, "levels: black=%d white=%d illuminant1=%v\n",
				data.BlackLevel, data.WhiteLevel, data.Illuminant1)
			log.Debug("raw data fetched",
				slog.Int("pixels", len(data.Pixels)), slog.Int("compressed_bytes", len(data.CompressedBytes)))

			if out == "" {
				out = filename + ".raw"
			}
			if err := writeRawPayload(out, data); err != nil {
				return fmt.Errorf("writing %q: %w", out, err)
			}
			fmt.Fprintf(stdout, "wrote sensor plane to %s\n", out)
			return nil
		},
	}

	cmd.Flags().BoolVar(&dontDecompress, "dont-decompress", false,
		"return the on-disk compressed payload verbatim instead of decoding")
	cmd.Flags().StringVar(&out, "out", "", "output file for the raw pixel/compressed bytes (default: <input>.raw)")
	return cmd
}

// writeRawPayload writes the decoded 16-bit pixel plane (little-endian)
// or, for a DontDecompress fetch, the verbatim compressed bytes.
func writeRawPayload(path string, data *rawcore.RawData) error {
	if data.Compressed {
		return os.WriteFile(path, data.CompressedBytes, 0o644)
	}
	buf := make([]byte, len(data.Pixels)*2)
	for i, p := range data.Pixels {
		binary.LittleEndian.PutUint16(buf[2*i:], p)
	}
	return os.WriteFile(path, buf, 0o644)
}
