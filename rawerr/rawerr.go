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
// Package rawerr defines the error taxonomy surfaced across the rawcore
// API boundary: container parsing, IFD/entry access, decompression, and
// the per-format RawFile facades all report failures through the same
// small set of codes so a caller can branch on Code without caring which
// layer produced the error.
package rawerr

import (
	"errors"
	"fmt"
)

// Code classifies a failure into one of the taxonomy buckets named by
// the library's design: parse errors, decompression errors, capability
// gaps, I/O errors, lookup failures, and misuse.
type Code int

const (
	// None is the zero value; it is never attached to a returned error.
	None Code = iota
	BufTooSmall
	NotRef
	CantOpen
	ClosedStream
	NotFound
	InvalidParam
	InvalidFormatCode // named apart from the InvalidFormat helper below
	Decompression
	NotImplemented
	AlreadyOpen
	Unknown
)

func (c Code) String() string {
	switch c {
	case None:
		return "None"
	case BufTooSmall:
		return "BufTooSmall"
	case NotRef:
		return "NotRef"
	case CantOpen:
		return "CantOpen"
	case ClosedStream:
		return "ClosedStream"
	case NotFound:
		return "NotFound"
	case InvalidParam:
		return "InvalidParam"
	case InvalidFormatCode:
		return "InvalidFormat"
	case Decompression:
		return "Decompression"
	case NotImplemented:
		return "NotImplemented"
	case AlreadyOpen:
		return "AlreadyOpen"
	default:
		return "Unknown"
	}
}

// Error is the concrete error type returned across the rawcore boundary.
// Op names the operation that failed (e.g. "tiffcontainer.SetDirectory",
// "cr2.GetRawData"); Err, when non-nil, is the underlying cause and is
// reachable through errors.Unwrap.
type Error struct {
	Code Code
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Code, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Code)
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports whether target is an *Error with the same Code, so callers
// can write errors.Is(err, rawerr.New(rawerr.NotFound, "", nil)) or more
// simply compare codes via As.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// New builds an *Error with the given code and operation name.
func New(code Code, op string, err error) *Error {
	return &Error{Code: code, Op: op, Err: err}
}

func InvalidFormat(op string, err error) *Error  { return New(InvalidFormatCode, op, err) }
func Decode(op string, err error) *Error         { return New(Decompression, op, err) }
func NotImplementedErr(op string, err error) *Error { return New(NotImplemented, op, err) }
func CantOpenErr(op string, err error) *Error     { return New(CantOpen, op, err) }
func ClosedStreamErr(op string) *Error           { return New(ClosedStream, op, nil) }
func NotFoundErr(op string, err error) *Error    { return New(NotFound, op, err) }
func InvalidParamErr(op string, err error) *Error { return New(InvalidParam, op, err) }

// Of returns the Code carried by err if it (or something it wraps) is an
// *Error, and Unknown otherwise.
func Of(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return Unknown
}
