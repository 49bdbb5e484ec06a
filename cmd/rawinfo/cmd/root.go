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

// Package cmd implements the rawinfo command-line interface, built the
// way ma-tf-meta1v builds its own camera-metadata CLI: spf13/cobra for
// the command tree, spf13/viper for flag/env/config-file binding, and
// lmittmann/tint as the default human-readable slog handler.
package cmd

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/lmittmann/tint"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile  string
	logger   *slog.Logger
	logLevel = new(slog.LevelVar)

	rootCmd = &cobra.Command{
		Use:   "rawinfo",
		Short: "Inspects camera RAW files (CR2/CR3/CRW/DNG/NEF/ARW/ORF/RW2/RAF/MRW/PEF/ERF).",
		Long: `rawinfo is a command line tool for inspecting camera RAW files.

It identifies a file's format and camera, walks its TIFF/Exif/MakerNote
metadata, extracts thumbnails (optionally rendered as ASCII art), and
fetches the decoded RAW sensor plane.`,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if err := initialiseConfig(cmd); err != nil {
				return fmt.Errorf("failed to initialise configuration: %w", err)
			}

			level := slog.LevelInfo
			switch strings.ToLower(viper.GetString("log.level")) {
			case "debug":
				level = slog.LevelDebug
			case "warn", "warning":
				level = slog.LevelWarn
			case "error":
				level = slog.LevelError
			}
			logLevel.Set(level)

			return nil
		},
	}
)

// Execute adds all child commands to the root command and sets flags
// appropriately. Called once by main.main().
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	handler := tint.NewHandler(os.Stderr, &tint.Options{
		Level:      logLevel,
		TimeFormat: time.Kitchen,
	})
	logger = slog.New(handler)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "",
		"config file (default is $HOME/.rawinfo/config.yaml)")
	rootCmd.PersistentFlags().String("log-level", "info",
		"log level: debug, info, warn, error")

	rootCmd.AddCommand(newIdentifyCommand(logger))
	rootCmd.AddCommand(newMetaCommand(logger))
	rootCmd.AddCommand(newThumbnailCommand(logger))
	rootCmd.AddCommand(newRawCommand(logger))
}

// initialiseConfig wires viper's flag/env/file precedence, mirroring
// ma-tf-meta1v/cmd.initialiseConfig's own RAWINFO_*-prefixed env
// binding and config-file search path, generalized from its
// META1V_LOG_LEVEL single binding to BindPFlags across every
// persistent flag.
func initialiseConfig(cmd *cobra.Command) error {
	viper.SetEnvPrefix("RAWINFO")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	if err := viper.BindEnv("log.level", "RAWINFO_LOG_LEVEL"); err != nil {
		return fmt.Errorf("failed to bind env variable: %w", err)
	}

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(home + "/.rawinfo")
		}
		viper.AddConfigPath(".")
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
	}

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("failed to read config: %w", err)
		}
	}

	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return err
	}
	if f := cmd.Flags().Lookup("log-level"); f != nil {
		return viper.BindPFlag("log.level", f)
	}
	return nil
}
