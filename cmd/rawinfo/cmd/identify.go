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

	"github.com/spf13/cobra"

	"github.com/jdtorres/rawcore"
)

func newIdentifyCommand(log *slog.Logger) *cobra.Command {
	return &cobra.Command{
		Use:     "identify <file>",
		Short:   "Identifies a RAW file's format and camera.",
		Aliases: []string{"id"},
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			filename := args[0]
			log.Debug("identifying file", slog.String("file", filename))

			rf, err := rawcore.Open(filename)
			if err != nil {
				return fmt.Errorf("opening %q: %w", filename, err)
			}
			defer rf.Close()

			fmt.Fprintf(cmd.OutOrStdout(), "format: %s\n", rf.Type())

			id, err := rf.IdentifyID()
			if err != nil {
				log.Warn("camera identification failed",
					slog.String("file", filename), slog.Any("err", err))
				fmt.Fprintln(cmd.OutOrStdout(), "camera: unknown")
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "camera: vendor=%d id=0x%08x\n", id.Vendor(), uint32(id))

			return nil
		},
	}
}
