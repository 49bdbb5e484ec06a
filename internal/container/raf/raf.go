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
// Package raf implements the Fujifilm RAF container, ported from
// original_source/lib/rafcontainer.{hpp,cpp}. A RAF file is a flat,
// fixed-layout header (a 28-byte leading block starting with a 16-byte
// magic, a 32-byte camera model string,
// a version, 20 reserved bytes, then six big-endian uint32 offset/
// length pairs for the embedded JPEG preview, metadata block, and CFA
// data) -- unlike the other containers here there is no tag/record
// tree to walk, just a single struct read once at the front of the
// file.
package raf

import (
	"fmt"
	"strings"

	"github.com/jdtorres/rawcore/internal/bytestream"
	"github.com/jdtorres/rawcore/rawerr"
)

const (
	magic = "FUJIFILMCCD-RAW "
	// magicBlockLen is the full size of the header's leading "magic"
	// region the original reads in one shot; only the first len(magic)
	// bytes of it are actually the validated signature, the rest is an
	// unvalidated format-version string.
	magicBlockLen = 28
)

// OffsetDirectory is the six offset/length pairs the header carries,
// mirroring RafOffsetDirectory.
type OffsetDirectory struct {
	JpegOffset uint32
	JpegLength uint32
	MetaOffset uint32
	MetaLength uint32
	CfaOffset  uint32
	CfaLength  uint32
}

// Container is an opened RAF file's header, mirroring RafContainer.
type Container struct {
	Stream    bytestream.Stream
	Model     string
	Version   uint32
	Directory OffsetDirectory
}

// Open reads and validates the RAF header, mirroring
// RafContainer::_readHeader.
func Open(s bytestream.Stream) (*Container, error) {
	hdr, err := s.Fetch(0, magicBlockLen)
	if err != nil {
		return nil, rawerr.InvalidFormat("raf.Open", err)
	}
	if string(hdr[:len(magic)]) != magic {
		return nil, rawerr.InvalidFormat("raf.Open", fmt.Errorf("not a RAF file: magic %q", hdr[:len(magic)]))
	}

	model, err := s.Fetch(magicBlockLen, 32)
	if err != nil {
		return nil, rawerr.InvalidFormat("raf.Open", err)
	}

	pos := int64(magicBlockLen) + 32
	version, err := s.ReadU32(pos, bytestream.BigEndian)
	if err != nil {
		return nil, rawerr.InvalidFormat("raf.Open", err)
	}
	pos += 4 + 20 // skip the 20 reserved bytes that follow the version

	var dir OffsetDirectory
	fields := []*uint32{
		&dir.JpegOffset, &dir.JpegLength,
		&dir.MetaOffset, &dir.MetaLength,
		&dir.CfaOffset, &dir.CfaLength,
	}
	for _, f := range fields {
		v, err := s.ReadU32(pos, bytestream.BigEndian)
		if err != nil {
			return nil, rawerr.InvalidFormat("raf.Open", err)
		}
		*f = v
		pos += 4
	}

	return &Container{
		Stream:    s,
		Model:     strings.TrimRight(string(model), "\x00"),
		Version:   version,
		Directory: dir,
	}, nil
}

// JpegPreview returns a Stream viewing the embedded JFIF preview, or
// false if the file carries none, mirroring
// RafContainer::getJpegPreview.
func (c *Container) JpegPreview() (bytestream.Stream, bool, error) {
	if c.Directory.JpegOffset == 0 || c.Directory.JpegLength == 0 {
		return nil, false, nil
	}
	clone, err := c.Stream.Clone(int64(c.Directory.JpegOffset))
	if err != nil {
		return nil, false, rawerr.InvalidFormat("raf.JpegPreview", err)
	}
	return clone, true, nil
}

// CfaContainer returns a Stream viewing the embedded CFA/TIFF
// container, or false if the file carries none, mirroring
// RafContainer::getCfaContainer.
func (c *Container) CfaContainer() (bytestream.Stream, bool, error) {
	if c.Directory.CfaOffset == 0 || c.Directory.CfaLength == 0 {
		return nil, false, nil
	}
	clone, err := c.Stream.Clone(int64(c.Directory.CfaOffset))
	if err != nil {
		return nil, false, rawerr.InvalidFormat("raf.CfaContainer", err)
	}
	return clone, true, nil
}

// MetaContainer returns a Stream viewing the embedded metadata block,
// or false if the file carries none, mirroring
// RafContainer::getMetaContainer.
func (c *Container) MetaContainer() (bytestream.Stream, bool, error) {
	if c.Directory.MetaOffset == 0 || c.Directory.MetaLength == 0 {
		return nil, false, nil
	}
	clone, err := c.Stream.Clone(int64(c.Directory.MetaOffset))
	if err != nil {
		return nil, false, rawerr.InvalidFormat("raf.MetaContainer", err)
	}
	return clone, true, nil
}
