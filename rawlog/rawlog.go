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
// Package rawlog is the logging seam shared by every layer of rawcore.
// Containers, the IFD model, MakerNote decoders, and the decompressors
// never write to stdout/stderr directly; they log through a *slog.Logger
// threaded in from the caller, so a consumer (including cmd/rawinfo) can
// swap in its own handler -- tint for a terminal, the default JSON
// handler in a service, or io.Discard in a test.
package rawlog

import (
	"context"
	"log/slog"
)

// Default returns l if non-nil, otherwise slog.Default(). Every package
// in rawcore that accepts an optional *slog.Logger funnels it through
// this so "no logger supplied" has one obvious meaning.
func Default(l *slog.Logger) *slog.Logger {
	if l != nil {
		return l
	}
	return slog.Default()
}

// Warnf logs a non-fatal parse/decode warning: a clamped entry, an
// unrecognized MakerNote signature, a thumbnail whose declared size
// disagrees with its data. These never change a returned error code;
// they exist so a caller debugging a malformed file can see what was
// tolerated.
func Warnf(l *slog.Logger, op string, msg string, args ...any) {
	Default(l).With("op", op).Warn(msg, args...)
}

// Debugf logs fine-grained tracing (IFD walk order, decompressor table
// selection) at Debug level, off by default.
func Debugf(l *slog.Logger, op string, msg string, args ...any) {
	Default(l).With("op", op).Debug(msg, args...)
}

// Discard returns a logger that drops everything, for tests that want
// to exercise the warning call sites without printing.
func Discard() *slog.Logger {
	return slog.New(discardHandler{})
}

type discardHandler struct{}

func (discardHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (discardHandler) Handle(context.Context, slog.Record) error { return nil }
func (h discardHandler) WithAttrs([]slog.Attr) slog.Handler      { return h }
func (h discardHandler) WithGroup(string) slog.Handler           { return h }
