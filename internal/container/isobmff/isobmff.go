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
// Package isobmff implements a minimal ISO Base Media File Format box
// walker, the primitive original_source/lib/isomediacontainer.{hpp,cpp}
// delegates to an external mp4parse library for. That library (plus
// its Canon CR3 extensions) is not part of this pack, so the generic
// box-scanning loop here is grounded on isomediacontainer.cpp's own
// shape (a sequential box scan read through one Stream, exposing
// count_tracks/get_track/get_raw_track/get_craw_header/
// get_preview_desc/get_metadata_block), while the concrete layout of
// Canon's private CNCV/CTBO/CMT1-4 box payloads follows the
// publicly-documented CR3 structure (Canon's "CRAW" sample entry and
// tile-offset table), reconstructed rather than ported line-for-line
// since no source file for it is present in this pack -- see
// DESIGN.md for the CR3-specific caveat.
package isobmff

import (
	"fmt"

	"github.com/jdtorres/rawcore/internal/bytestream"
	"github.com/jdtorres/rawcore/rawerr"
)

// Box is one parsed box header: its four-character type, and the
// absolute byte range of its payload (the header itself is excluded).
type Box struct {
	Type          [4]byte
	Start         int64 // absolute offset of the box header
	PayloadOffset int64
	PayloadLength int64
}

func (b Box) TypeString() string { return string(b.Type[:]) }
func (b Box) End() int64         { return b.PayloadOffset + b.PayloadLength }

// containerTypes are the well-known ISO-BMFF box types whose payload
// is itself a run of child boxes rather than opaque data.
var containerTypes = map[string]bool{
	"moov": true, "trak": true, "mdia": true, "minf": true,
	"stbl": true, "udta": true, "edts": true,
}

// ReadBoxes scans the sequential run of boxes within [start, end) of
// s, mirroring the header-then-dispatch loop any ISO-BMFF reader
// (including isomediacontainer.cpp's mp4parse-backed one) implements:
// a uint32 size, a four-character type, and -- if size==1 -- a
// following uint64 "largesize"; size==0 means "extends to the end of
// the file/range".
func ReadBoxes(s bytestream.Stream, start, end int64) ([]Box, error) {
	var boxes []Box
	pos := start
	for pos < end {
		size64, err := s.ReadU32(pos, bytestream.BigEndian)
		if err != nil {
			return nil, rawerr.InvalidFormat("isobmff.ReadBoxes", err)
		}
		typ, err := s.Fetch(pos+4, 4)
		if err != nil {
			return nil, rawerr.InvalidFormat("isobmff.ReadBoxes", err)
		}
		headerLen := int64(8)
		size := int64(size64)
		if size64 == 1 {
			large, err := s.ReadU32(pos+8, bytestream.BigEndian)
			if err != nil {
				return nil, rawerr.InvalidFormat("isobmff.ReadBoxes", err)
			}
			lo, err := s.ReadU32(pos+12, bytestream.BigEndian)
			if err != nil {
				return nil, rawerr.InvalidFormat("isobmff.ReadBoxes", err)
			}
			size = int64(large)<<32 | int64(lo)
			headerLen = 16
		} else if size64 == 0 {
			size = end - pos
		}
		if size < headerLen {
			return nil, rawerr.InvalidFormat("isobmff.ReadBoxes", fmt.Errorf("box %q at %d has size %d smaller than its header", typ, pos, size))
		}

		var b Box
		copy(b.Type[:], typ)
		b.Start = pos
		b.PayloadOffset = pos + headerLen
		b.PayloadLength = size - headerLen
		boxes = append(boxes, b)

		pos += size
	}
	return boxes, nil
}

// Children parses b's payload as a run of child boxes; callers should
// only do this for types containerTypes names.
func Children(s bytestream.Stream, b Box) ([]Box, error) {
	return ReadBoxes(s, b.PayloadOffset, b.End())
}

// find returns the first box of the given type in boxes.
func find(boxes []Box, typ string) (Box, bool) {
	for _, b := range boxes {
		if b.TypeString() == typ {
			return b, true
		}
	}
	return Box{}, false
}

func findAll(boxes []Box, typ string) []Box {
	var out []Box
	for _, b := range boxes {
		if b.TypeString() == typ {
			out = append(out, b)
		}
	}
	return out
}

// descend walks a dotted path of container box types ("moov.trak")
// starting from the top-level boxes already read, returning every box
// matching the final path element at that nesting depth.
func descend(s bytestream.Stream, top []Box, path ...string) ([]Box, error) {
	cur := top
	for i, typ := range path {
		matches := findAll(cur, typ)
		if i == len(path)-1 {
			return matches, nil
		}
		if len(matches) == 0 {
			return nil, nil
		}
		children, err := Children(s, matches[0])
		if err != nil {
			return nil, err
		}
		cur = children
	}
	return cur, nil
}

// CrawHeader is Canon's CR3 metadata directory: the CNCV compressor
// version string, the CTBO tile-offset table, and the four CMT
// (embedded-TIFF) metadata blocks. Offsets in Entries and the CMT
// fields are absolute file offsets, already resolved against the
// CTBO table the way get_craw_header/get_offsets_at do.
type CrawHeader struct {
	CompressorVersion string
	Entries           []CtboEntry
	Meta              [4]ByteRange
}

// CtboEntry is one row of the CTBO tile-offset table: an index plus
// the absolute offset/size of the data it describes.
type CtboEntry struct {
	Index  uint32
	Offset uint64
	Size   uint64
}

// ByteRange is an absolute [Offset, Offset+Length) span within the
// container's stream.
type ByteRange struct {
	Offset int64
	Length int64
}

func (r ByteRange) valid() bool { return r.Length > 0 }

// Container is an opened CR3-style ISO-BMFF file: the top-level boxes
// plus lazily-resolved Canon metadata, mirroring IsoMediaContainer's
// count_tracks/get_track/get_raw_track/get_craw_header/
// get_preview_desc/get_metadata_block surface.
type Container struct {
	Stream bytestream.Stream
	Top    []Box

	craw     *CrawHeader
	crawRead bool
}

// Open validates the leading "ftyp" box and reads the top-level box
// run, mirroring IsoMediaContainer's constructor (which hands the
// whole stream to mp4parse rather than validating ftyp itself, but
// every ISO-BMFF reader's first box is expected to be ftyp).
func Open(s bytestream.Stream) (*Container, error) {
	size, err := s.Filesize()
	if err != nil {
		return nil, rawerr.InvalidFormat("isobmff.Open", err)
	}
	top, err := ReadBoxes(s, 0, size)
	if err != nil {
		return nil, err
	}
	if _, ok := find(top, "ftyp"); !ok {
		return nil, rawerr.InvalidFormat("isobmff.Open", fmt.Errorf("no leading ftyp box"))
	}
	return &Container{Stream: s, Top: top}, nil
}

// CountTracks returns the number of "trak" boxes under "moov",
// mirroring IsoMediaContainer::count_tracks.
func (c *Container) CountTracks() (int, error) {
	traks, err := descend(c.Stream, c.Top, "moov", "trak")
	if err != nil {
		return 0, err
	}
	return len(traks), nil
}

// Track returns the index'th "trak" box's children, mirroring
// IsoMediaContainer::get_track's identification of one track.
func (c *Container) Track(index int) ([]Box, error) {
	traks, err := descend(c.Stream, c.Top, "moov", "trak")
	if err != nil {
		return nil, err
	}
	if index < 0 || index >= len(traks) {
		return nil, rawerr.NotFoundErr("isobmff.Track", fmt.Errorf("track index %d out of range (%d tracks)", index, len(traks)))
	}
	return Children(c.Stream, traks[index])
}

// RawTrack returns the ByteRange of the index'th track's "mdat"-backed
// sample data, mirroring IsoMediaContainer::get_raw_track: it resolves
// the track's position in the CTBO table (CR3's tracks and CTBO
// entries share index order).
func (c *Container) RawTrack(index int) (ByteRange, error) {
	hdr, err := c.CrawHeader()
	if err != nil {
		return ByteRange{}, err
	}
	for _, e := range hdr.Entries {
		if int(e.Index) == index {
			return ByteRange{Offset: int64(e.Offset), Length: int64(e.Size)}, nil
		}
	}
	return ByteRange{}, rawerr.NotFoundErr("isobmff.RawTrack", fmt.Errorf("no CTBO entry for track %d", index))
}

// CrawHeader locates and decodes the CNCV/CTBO/CMT1-4 boxes nested
// under "moov", mirroring IsoMediaContainer::get_craw_header. The CTBO
// box layout (a full-box header, then 20-byte index/offset/size
// entries) and the CMT boxes' role as raw embedded-TIFF payloads
// follow the publicly documented CR3 structure, since the Canon
// extension to mp4parse is not present in this pack.
func (c *Container) CrawHeader() (*CrawHeader, error) {
	if c.crawRead {
		if c.craw == nil {
			return nil, rawerr.NotFoundErr("isobmff.CrawHeader", fmt.Errorf("no Canon CRAW metadata in this file"))
		}
		return c.craw, nil
	}
	c.crawRead = true

	moovChildren, err := descend(c.Stream, c.Top, "moov")
	if err != nil {
		return nil, err
	}
	if len(moovChildren) == 0 {
		return nil, rawerr.NotFoundErr("isobmff.CrawHeader", fmt.Errorf("no moov box"))
	}
	moov, _ := find(c.Top, "moov")
	children, err := Children(c.Stream, moov)
	if err != nil {
		return nil, err
	}

	var hdr CrawHeader
	if cncv, ok := find(children, "CNCV"); ok {
		b, err := c.Stream.Fetch(cncv.PayloadOffset, int(cncv.PayloadLength))
		if err != nil {
			return nil, rawerr.InvalidFormat("isobmff.CrawHeader", err)
		}
		hdr.CompressorVersion = string(b)
	}

	if ctbo, ok := find(children, "CTBO"); ok {
		entries, err := c.readCtbo(ctbo)
		if err != nil {
			return nil, err
		}
		hdr.Entries = entries
	}

	for i, name := range []string{"CMT1", "CMT2", "CMT3", "CMT4"} {
		if b, ok := find(children, name); ok {
			hdr.Meta[i] = ByteRange{Offset: b.PayloadOffset, Length: b.PayloadLength}
		}
	}

	c.craw = &hdr
	return c.craw, nil
}

// readCtbo decodes the CTBO full-box: a 4-byte version/flags field
// followed by a run of 20-byte (index uint32, offset uint64, size
// uint64) entries, each big-endian.
func (c *Container) readCtbo(b Box) ([]CtboEntry, error) {
	const entrySize = 20
	n := (b.PayloadLength - 4) / entrySize
	if n <= 0 {
		return nil, nil
	}
	entries := make([]CtboEntry, 0, n)
	pos := b.PayloadOffset + 4
	for i := int64(0); i < n; i++ {
		index, err := c.Stream.ReadU32(pos, bytestream.BigEndian)
		if err != nil {
			return nil, rawerr.InvalidFormat("isobmff.readCtbo", err)
		}
		offHi, err := c.Stream.ReadU32(pos+4, bytestream.BigEndian)
		if err != nil {
			return nil, rawerr.InvalidFormat("isobmff.readCtbo", err)
		}
		offLo, err := c.Stream.ReadU32(pos+8, bytestream.BigEndian)
		if err != nil {
			return nil, rawerr.InvalidFormat("isobmff.readCtbo", err)
		}
		sizeHi, err := c.Stream.ReadU32(pos+12, bytestream.BigEndian)
		if err != nil {
			return nil, rawerr.InvalidFormat("isobmff.readCtbo", err)
		}
		sizeLo, err := c.Stream.ReadU32(pos+16, bytestream.BigEndian)
		if err != nil {
			return nil, rawerr.InvalidFormat("isobmff.readCtbo", err)
		}
		entries = append(entries, CtboEntry{
			Index:  index,
			Offset: uint64(offHi)<<32 | uint64(offLo),
			Size:   uint64(sizeHi)<<32 | uint64(sizeLo),
		})
		pos += entrySize
	}
	return entries, nil
}

// PreviewDescriptor locates the CR3 embedded JPEG preview via the
// CTBO table's second entry (index 1), standing in for
// IsoMediaContainer::get_preview_desc. It returns that entry's whole
// byte range as is; the "PRVW" box inside it is not parsed.
func (c *Container) PreviewDescriptor() (ByteRange, error) {
	hdr, err := c.CrawHeader()
	if err != nil {
		return ByteRange{}, err
	}
	for _, e := range hdr.Entries {
		if e.Index == 1 {
			return ByteRange{Offset: int64(e.Offset), Length: int64(e.Size)}, nil
		}
	}
	return ByteRange{}, rawerr.NotFoundErr("isobmff.PreviewDescriptor", fmt.Errorf("no CTBO entry for the preview track"))
}

// MetadataBlockAt returns the ByteRange of the idx'th CMT metadata
// block (0-3), mirroring IsoMediaContainer::get_metadata_block. Each
// block is a self-contained embedded TIFF IFD chain the caller can
// hand to container/tiffcontainer.Open directly.
func (c *Container) MetadataBlockAt(idx int) (ByteRange, error) {
	if idx < 0 || idx > 3 {
		return ByteRange{}, rawerr.InvalidParamErr("isobmff.MetadataBlockAt", fmt.Errorf("index %d out of range [0,3]", idx))
	}
	hdr, err := c.CrawHeader()
	if err != nil {
		return ByteRange{}, err
	}
	if !hdr.Meta[idx].valid() {
		return ByteRange{}, rawerr.NotFoundErr("isobmff.MetadataBlockAt", fmt.Errorf("no CMT%d box", idx+1))
	}
	return hdr.Meta[idx], nil
}
