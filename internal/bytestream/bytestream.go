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
// Package bytestream implements the seekable, random-access byte source
// every container in rawcore is built on: endian-aware typed readers for
// u8/u16/u32/i8/i16/i32, bulk fetch(offset, len), and first-class
// sub-stream clones whose origin is the parent's cursor position at
// clone time. This generalizes the teacher's readField/bytesToUShort/
// bytesToUInt free functions (jeremytorres-rawparser/tiffutils.go) into
// a reusable Stream interface so every container (TIFF, CIFF, MRW, RAF,
// ISO-BMFF) shares one I/O primitive instead of re-reading via *os.File
// directly.
package bytestream

import (
	"fmt"
	"io"
	"os"

	"github.com/jdtorres/rawcore/rawerr"
)

// Endian selects how multi-byte values are assembled from the stream's
// bytes. Unlike the teacher's bare isBigEndian bool threaded through
// every call, this is a small enum so call sites read as
// s.ReadU16(offset, LittleEndian) rather than s.readU16(offset, false).
type Endian int

const (
	LittleEndian Endian = iota
	BigEndian
)

// Stream is the byte-source abstraction every container parses against.
// All reads are synchronous and blocking; there is no cancellation.
type Stream interface {
	io.Closer

	// Filesize returns the total number of addressable bytes.
	Filesize() (int64, error)

	// Fetch reads exactly length bytes starting at offset. A short read
	// surfaces as rawerr.Code ClosedStream/BufTooSmall via the returned
	// error, never a partial, silently-truncated slice.
	Fetch(offset int64, length int) ([]byte, error)

	ReadU8(offset int64) (uint8, error)
	ReadI8(offset int64) (int8, error)
	ReadU16(offset int64, e Endian) (uint16, error)
	ReadI16(offset int64, e Endian) (int16, error)
	ReadU32(offset int64, e Endian) (uint32, error)
	ReadI32(offset int64, e Endian) (int32, error)

	// Clone returns a new Stream viewing this one starting at
	// cursor+offset; the clone's own offset 0 maps to that position, and
	// seeks against the clone never reach into the parent's addressable
	// range before it. cursor is caller-supplied (containers don't keep
	// an implicit read cursor of their own at this layer beyond what
	// Clone captures).
	Clone(cursor int64) (Stream, error)
}

// readerAt is satisfied by both *os.File and *bytes.Reader-backed
// implementations; it is the minimal capability Fetch needs.
type readerAt interface {
	ReadAt(p []byte, off int64) (int, error)
}

type base struct {
	r      readerAt
	size   int64
	origin int64 // absolute offset this stream's "0" maps to in r
}

func (b *base) Filesize() (int64, error) {
	return b.size - b.origin, nil
}

func (b *base) Fetch(offset int64, length int) ([]byte, error) {
	if length < 0 {
		return nil, rawerr.InvalidParamErr("bytestream.Fetch", fmt.Errorf("negative length %d", length))
	}
	if offset < 0 {
		return nil, rawerr.InvalidParamErr("bytestream.Fetch", fmt.Errorf("negative offset %d", offset))
	}
	buf := make([]byte, length)
	n, err := b.r.ReadAt(buf, b.origin+offset)
	if n == length {
		return buf, nil
	}
	if err == nil {
		err = io.ErrUnexpectedEOF
	}
	return buf[:n], rawerr.New(rawerr.ClosedStream, "bytestream.Fetch", err)
}

func (b *base) ReadU8(offset int64) (uint8, error) {
	buf, err := b.Fetch(offset, 1)
	if err != nil {
		return 0, err
	}
	return buf[0], nil
}

func (b *base) ReadI8(offset int64) (int8, error) {
	v, err := b.ReadU8(offset)
	return int8(v), err
}

func (b *base) ReadU16(offset int64, e Endian) (uint16, error) {
	buf, err := b.Fetch(offset, 2)
	if err != nil {
		return 0, err
	}
	return decodeU16(buf, e), nil
}

func (b *base) ReadI16(offset int64, e Endian) (int16, error) {
	v, err := b.ReadU16(offset, e)
	return int16(v), err
}

func (b *base) ReadU32(offset int64, e Endian) (uint32, error) {
	buf, err := b.Fetch(offset, 4)
	if err != nil {
		return 0, err
	}
	return decodeU32(buf, e), nil
}

func (b *base) ReadI32(offset int64, e Endian) (int32, error) {
	v, err := b.ReadU32(offset, e)
	return int32(v), err
}

func decodeU16(buf []byte, e Endian) uint16 {
	if e == BigEndian {
		return uint16(buf[0])<<8 | uint16(buf[1])
	}
	return uint16(buf[1])<<8 | uint16(buf[0])
}

func decodeU32(buf []byte, e Endian) uint32 {
	if e == BigEndian {
		return uint32(buf[0])<<24 | uint32(buf[1])<<16 | uint32(buf[2])<<8 | uint32(buf[3])
	}
	return uint32(buf[3])<<24 | uint32(buf[2])<<16 | uint32(buf[1])<<8 | uint32(buf[0])
}

// FileStream wraps an *os.File on disk.
type FileStream struct {
	base
	f *os.File
}

// Open opens path and returns a Stream backed by the file. The file is
// owned by the returned Stream; Close releases it.
func Open(path string) (*FileStream, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, rawerr.CantOpenErr("bytestream.Open", err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, rawerr.CantOpenErr("bytestream.Open", err)
	}
	fs := &FileStream{f: f}
	fs.r = f
	fs.size = info.Size()
	return fs, nil
}

func (fs *FileStream) Close() error {
	if fs.f == nil {
		return nil
	}
	err := fs.f.Close()
	fs.f = nil
	return err
}

func (fs *FileStream) Clone(cursor int64) (Stream, error) {
	return &FileStream{base: base{r: fs.f, size: fs.size, origin: fs.origin + cursor}, f: fs.f}, nil
}

// MemStream wraps a borrowed in-memory byte slice with the identical
// semantics as FileStream -- used for DNG/CR3 payloads already resident
// in memory and for unit tests that build a fixture byte sequence
// in-process rather than writing a temp file.
type MemStream struct {
	base
	buf []byte
}

func NewMemStream(buf []byte) *MemStream {
	ms := &MemStream{buf: buf}
	ms.r = (*memReaderAt)(&ms.buf)
	ms.size = int64(len(buf))
	return ms
}

func (ms *MemStream) Close() error { return nil }

func (ms *MemStream) Clone(cursor int64) (Stream, error) {
	return &MemStream{base: base{r: ms.r, size: ms.size, origin: ms.origin + cursor}, buf: ms.buf}, nil
}

type memReaderAt []byte

func (m *memReaderAt) ReadAt(p []byte, off int64) (int, error) {
	buf := []byte(*m)
	if off < 0 || off > int64(len(buf)) {
		return 0, io.EOF
	}
	n := copy(p, buf[off:])
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}
