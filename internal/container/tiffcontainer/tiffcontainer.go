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
// Package tiffcontainer implements the TIFF/IFD container: byte-order
// mark + magic detection, the linked list of IFDs, SubIFD/Exif/GPS/
// Interop discovery, and the exif_offset_correction bias that lets
// MakerNote and MRW-embedded-TIFF containers override where "offset
// zero" means. It generalizes the teacher's processIfd/processHeader
// (jeremytorres-rawparser/{tiffutils,cr2parser,nefparser}.go) -- which
// hard-coded one IFD chain per caller -- into the reusable, arena-style
// container every TIFF-derived RawFile facade (CR2, DNG, NEF, ARW, ORF,
// RW2, PEF, ERF) shares, following rwcarlsen-goexif/tiff.Tiff's
// Decode/DecodeDir split for the header-then-chain shape.
package tiffcontainer

import (
	"fmt"

	"github.com/jdtorres/rawcore/internal/bytestream"
	"github.com/jdtorres/rawcore/internal/ifd"
	"github.com/jdtorres/rawcore/rawerr"
)

const tiffMagic = 0x002A

// Exif/TIFF pointer tags used to discover child IFDs.
const (
	TagSubIFDs  = 0x014A
	TagExifIFD  = 0x8769
	TagGPSIFD   = 0x8825
	TagInterop  = 0xA005
)

// Container is a parsed TIFF byte stream: the IFD chain rooted at
// Base, plus every SubIFD/Exif/GPS/Interop directory discovered while
// walking it. Directories are stored by index in dirs (the "arena per
// RawFile" from the design notes) rather than via back-pointers, so
// Dir handles are stable small integers instead of shared/weak
// references.
type Container struct {
	Stream bytestream.Stream
	Endian bytestream.Endian
	Base   int64 // absolute offset of the TIFF header ("II"/"MM")

	// OffsetCorrection is added to every out-of-line entry offset
	// before it is fetched from Stream. MakerNote and MRW-embedded-TIFF
	// containers set this to something other than 0 to relocate where
	// "offset zero" means, per spec 4.2/4.8.
	OffsetCorrection int64

	dirs []*ifd.Dir
}

// Open reads the TIFF header (byte-order mark + magic 0x002A + first
// IFD offset) starting at base and returns a Container whose dirs slice
// initially contains only IFD0 (index 0). Call WalkChain to load the
// rest of the linked list, and DiscoverSubIFDs/DiscoverExif etc. to
// pull in child directories.
func Open(s bytestream.Stream, base int64) (*Container, error) {
	bom, err := s.Fetch(base, 2)
	if err != nil {
		return nil, rawerr.InvalidFormat("tiffcontainer.Open", err)
	}
	var endian bytestream.Endian
	switch string(bom) {
	case "II":
		endian = bytestream.LittleEndian
	case "MM":
		endian = bytestream.BigEndian
	default:
		return nil, rawerr.InvalidFormat("tiffcontainer.Open", fmt.Errorf("bad byte-order mark %q", bom))
	}

	magic, err := s.ReadU16(base+2, endian)
	if err != nil || magic != tiffMagic {
		return nil, rawerr.InvalidFormat("tiffcontainer.Open", fmt.Errorf("bad TIFF magic %#04x", magic))
	}

	firstOffset, err := s.ReadU32(base+4, endian)
	if err != nil {
		return nil, rawerr.InvalidFormat("tiffcontainer.Open", err)
	}

	c := &Container{Stream: s, Endian: endian, Base: base}
	if firstOffset != 0 {
		d, err := c.readDir(c.biasedOffset(firstOffset), ifd.SubtypeMain)
		if err != nil {
			return nil, err
		}
		c.dirs = append(c.dirs, d)
	}
	return c, nil
}

// biasedOffset applies Base + OffsetCorrection to a raw in-file offset
// recorded in an entry's value field.
func (c *Container) biasedOffset(raw uint32) int64 {
	return c.Base + c.OffsetCorrection + int64(raw)
}

// readDir parses one 12-byte-entry IFD whose first byte is at absolute
// position offset (already bias-corrected by the caller).
func (c *Container) readDir(offset int64, subtype ifd.Subtype) (*ifd.Dir, error) {
	count, err := c.Stream.ReadU16(offset, c.Endian)
	if err != nil {
		return nil, rawerr.InvalidFormat("tiffcontainer.readDir", err)
	}
	d := ifd.NewDir(offset, c.Endian, subtype)

	cursor := offset + 2
	for i := 0; i < int(count); i++ {
		tag, err := c.Stream.ReadU16(cursor, c.Endian)
		if err != nil {
			// Truncated directory: stop here with what we have rather
			// than failing the whole file -- malformed real-world files
			// must still yield partial metadata.
			break
		}
		typ, err := c.Stream.ReadU16(cursor+2, c.Endian)
		if err != nil {
			break
		}
		cnt, err := c.Stream.ReadU32(cursor+4, c.Endian)
		if err != nil {
			break
		}
		valueBytes, err := c.Stream.Fetch(cursor+8, 4)
		if err != nil {
			break
		}
		var vb [4]byte
		copy(vb[:], valueBytes)
		rawVal := decodeU32(vb, c.Endian)

		e := ifd.NewEntry(tag, ifd.Type(typ), cnt, vb, uint32(c.biasedOffset(rawVal)), c.Stream, c.Endian)
		d.Add(e)
		cursor += 12
	}

	next, err := c.Stream.ReadU32(cursor, c.Endian)
	if err == nil && next != 0 {
		d.NextOffset = next
		d.HasNext = true
	}
	return d, nil
}

func decodeU32(b [4]byte, e bytestream.Endian) uint32 {
	if e == bytestream.BigEndian {
		return uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3])
	}
	return uint32(b[3])<<24 | uint32(b[2])<<16 | uint32(b[1])<<8 | uint32(b[0])
}

// Dirs returns every directory loaded so far, main chain and children
// alike, in discovery order.
func (c *Container) Dirs() []*ifd.Dir { return c.dirs }

// Dir returns the directory at arena index i.
func (c *Container) Dir(i int) *ifd.Dir {
	if i < 0 || i >= len(c.dirs) {
		return nil
	}
	return c.dirs[i]
}

// MainDir returns IFD0, the first directory in the chain, or nil if the
// file had an empty chain.
func (c *Container) MainDir() *ifd.Dir {
	if len(c.dirs) == 0 {
		return nil
	}
	return c.dirs[0]
}

// WalkChain follows NextOffset links starting from the last directory
// currently loaded with subtype SubtypeMain, appending each to Dirs.
// Returns the newly discovered directories.
func (c *Container) WalkChain() ([]*ifd.Dir, error) {
	var discovered []*ifd.Dir
	if len(c.dirs) == 0 {
		return discovered, nil
	}
	last := c.dirs[len(c.dirs)-1]
	for last.Subtype == ifd.SubtypeMain && last.HasNext {
		d, err := c.readDir(c.Base+c.OffsetCorrection+int64(last.NextOffset), ifd.SubtypeMain)
		if err != nil {
			return discovered, err
		}
		c.dirs = append(c.dirs, d)
		discovered = append(discovered, d)
		last = d
	}
	return discovered, nil
}

// DiscoverSubIFDs reads tag 0x014A (SubIFDs) from dir, if present, and
// loads each referenced offset as a new directory of subtype SubIFD.
func (c *Container) DiscoverSubIFDs(dir *ifd.Dir) ([]*ifd.Dir, error) {
	e, ok := dir.Get(TagSubIFDs)
	if !ok {
		return nil, nil
	}
	offsets, err := e.IntegerArray()
	if err != nil {
		return nil, nil
	}
	var out []*ifd.Dir
	for _, off := range offsets {
		d, err := c.readDir(c.Base+c.OffsetCorrection+int64(off), ifd.SubtypeSubIFD)
		if err != nil {
			continue
		}
		c.dirs = append(c.dirs, d)
		out = append(out, d)
	}
	return out, nil
}

// discoverPointerIFD is shared by DiscoverExif/DiscoverGPS/DiscoverInterop:
// each is a single-offset pointer tag in dir naming a nested IFD.
func (c *Container) discoverPointerIFD(dir *ifd.Dir, tag uint16, subtype ifd.Subtype) (*ifd.Dir, error) {
	e, ok := dir.Get(tag)
	if !ok {
		return nil, rawerr.NotFoundErr("tiffcontainer.discoverPointerIFD", fmt.Errorf("tag %#04x absent", tag))
	}
	off, err := e.Integer(0)
	if err != nil {
		return nil, rawerr.InvalidFormat("tiffcontainer.discoverPointerIFD", err)
	}
	d, err := c.readDir(c.Base+c.OffsetCorrection+int64(off), subtype)
	if err != nil {
		return nil, err
	}
	c.dirs = append(c.dirs, d)
	return d, nil
}

// DiscoverExif follows the Exif IFD pointer (tag 0x8769) from dir.
func (c *Container) DiscoverExif(dir *ifd.Dir) (*ifd.Dir, error) {
	return c.discoverPointerIFD(dir, TagExifIFD, ifd.SubtypeExif)
}

// DiscoverGPS follows the GPS IFD pointer (tag 0x8825) from dir.
func (c *Container) DiscoverGPS(dir *ifd.Dir) (*ifd.Dir, error) {
	return c.discoverPointerIFD(dir, TagGPSIFD, ifd.SubtypeGPS)
}

// DiscoverInterop follows the Interop IFD pointer (tag 0xA005) from dir.
func (c *Container) DiscoverInterop(dir *ifd.Dir) (*ifd.Dir, error) {
	return c.discoverPointerIFD(dir, TagInterop, ifd.SubtypeInterop)
}

// ReadDirAt parses a directory at an absolute, already-corrected offset
// and registers it in the arena. Used by facades that locate a
// directory by a means other than chain-walking or a pointer tag (e.g.
// Nikon's SubIFD-0 JPEG directory reached via a raw offset entry).
func (c *Container) ReadDirAt(offset int64, subtype ifd.Subtype) (*ifd.Dir, error) {
	d, err := c.readDir(offset, subtype)
	if err != nil {
		return nil, err
	}
	c.dirs = append(c.dirs, d)
	return d, nil
}
