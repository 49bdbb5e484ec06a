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
// Package ifd implements the uniform IfdDir/IfdEntry abstraction shared
// by every TIFF-derived container (TIFF proper, DNG, CR2-as-TIFF, NEF,
// ARW, ORF, RW2, PEF, ERF) and by the vendor containers that synthesize
// directories of their own (CIFF, MRW, RAF). It generalizes the
// teacher's ifdEntry struct and free-function accessors
// (jeremytorres-rawparser/tiffutils.go: bytesToUShort, bytesToUInt,
// processRationalEntry, processASCIIEntry) into a lazily-materializing
// entry type grounded on rwcarlsen-goexif/tiff.Tag's Int/Float/Rat
// accessor shape and garyhouston-tiff66's ordered-field IFD model.
package ifd

import (
	"fmt"
	"math"

	"github.com/jdtorres/rawcore/internal/bytestream"
	"github.com/jdtorres/rawcore/rawerr"
)

// Type is a TIFF/Exif field type code (TIFF 6.0 section 2, plus Exif's
// SRATIONAL/SBYTE/etc extensions).
type Type uint16

const (
	TypeByte      Type = 1
	TypeASCII     Type = 2
	TypeShort     Type = 3
	TypeLong      Type = 4
	TypeRational  Type = 5
	TypeSByte     Type = 6
	TypeUndefined Type = 7
	TypeSShort    Type = 8
	TypeSLong     Type = 9
	TypeSRational Type = 10
	TypeFloat     Type = 11
	TypeDouble    Type = 12
)

// unitSize returns the on-disk size in bytes of one value of the given
// type, or 0 for an unrecognized type.
func unitSize(t Type) uint32 {
	switch t {
	case TypeByte, TypeASCII, TypeSByte, TypeUndefined:
		return 1
	case TypeShort, TypeSShort:
		return 2
	case TypeLong, TypeSLong, TypeFloat:
		return 4
	case TypeRational, TypeSRational, TypeDouble:
		return 8
	default:
		return 0
	}
}

// Subtype classifies what role a Dir plays within a RawFile, mirroring
// the data model's "main/exif/makernote/raw/other" partition.
type Subtype int

const (
	SubtypeOther Subtype = iota
	SubtypeMain
	SubtypeExif
	SubtypeGPS
	SubtypeInterop
	SubtypeMakerNote
	SubtypeRaw
	SubtypeSubIFD
)

// Rational is a TIFF RATIONAL/SRATIONAL pair. Per spec, a zero
// denominator renders as +Inf rather than erroring.
type Rational struct {
	Num, Den int64
}

// Float returns num/den, or +Inf when den is zero.
func (r Rational) Float() float64 {
	if r.Den == 0 {
		return math.Inf(1)
	}
	return float64(r.Num) / float64(r.Den)
}

// Entry is one 12-byte TIFF/Exif directory entry: {tag, type, count,
// value-or-offset}. Its payload is lazily materialized: an entry whose
// count*unitSize(type) fits in the inline 4 bytes never touches the
// stream; otherwise Bytes/Uint16/etc. fetch it from src on first use and
// cache it.
type Entry struct {
	Tag   uint16
	Type  Type
	Count uint32

	inline    [4]byte
	isInline  bool
	offset    uint32 // absolute offset within src, already bias-corrected
	src       bytestream.Stream
	endian    bytestream.Endian
	payload   []byte
	loaded    bool
	truncated bool // count was clamped because the container is too small
}

// NewEntry constructs an Entry from its raw 12-byte fields. offset is
// the entry's value-or-offset field already corrected by the
// container's exif_offset_correction; valueBytes is that 4-byte field
// as read off disk (used verbatim when the value is inline).
func NewEntry(tag uint16, typ Type, count uint32, valueBytes [4]byte, offset uint32, src bytestream.Stream, endian bytestream.Endian) *Entry {
	e := &Entry{Tag: tag, Type: typ, Count: count, inline: valueBytes, offset: offset, src: src, endian: endian}
	size := unitSize(typ)
	e.isInline = size == 0 || uint64(count)*uint64(size) <= 4
	return e
}

// BytesNeeded is count*unitSize(type), the invariant quantity from the
// design notes and testable properties.
func (e *Entry) BytesNeeded() uint32 {
	return e.Count * unitSize(e.Type)
}

// Truncated reports whether the container was too small to hold the
// entry's declared payload, in which case the materialized buffer was
// defensively clamped rather than erroring.
func (e *Entry) Truncated() bool { return e.truncated }

func (e *Entry) materialize() error {
	if e.loaded {
		return nil
	}
	e.loaded = true
	need := e.BytesNeeded()
	if e.isInline {
		n := need
		if n > 4 {
			n = 4
		}
		e.payload = append([]byte(nil), e.inline[:n]...)
		return nil
	}
	buf, err := e.src.Fetch(int64(e.offset), int(need))
	if err != nil {
		// Defensive clamp: keep whatever was actually read rather than
		// failing the whole entry, per spec's "truncated data is
		// preferred-clamped rather than refused".
		e.truncated = true
		e.payload = buf
		return nil
	}
	e.payload = buf
	return nil
}

// Bytes returns the entry's full materialized payload.
func (e *Entry) Bytes() ([]byte, error) {
	if err := e.materialize(); err != nil {
		return nil, err
	}
	return e.payload, nil
}

func (e *Entry) checkType(op string, want ...Type) error {
	for _, w := range want {
		if e.Type == w || e.Type == TypeUndefined {
			return nil
		}
	}
	return rawerr.New(rawerr.InvalidParam, op, fmt.Errorf("tag %#04x: type %d not in %v", e.Tag, e.Type, want))
}

func (e *Entry) checkIndex(op string, index int) error {
	if index < 0 || uint32(index) >= e.Count {
		return rawerr.New(rawerr.InvalidParam, op, fmt.Errorf("tag %#04x: index %d out of range [0,%d)", e.Tag, index, e.Count))
	}
	return nil
}

func (e *Entry) unitAt(index int) ([]byte, error) {
	if err := e.materialize(); err != nil {
		return nil, err
	}
	size := int(unitSize(e.Type))
	start := index * size
	end := start + size
	if end > len(e.payload) {
		return nil, rawerr.New(rawerr.InvalidParam, "ifd.Entry", fmt.Errorf("tag %#04x: index %d beyond materialized payload (truncated=%v)", e.Tag, index, e.truncated))
	}
	return e.payload[start:end], nil
}

// Uint16 reads the index'th SHORT value with endian translation. Fails
// BadType (InvalidParam) unless the declared type is SHORT or UNDEFINED.
func (e *Entry) Uint16(index int) (uint16, error) {
	if err := e.checkType("ifd.Entry.Uint16", TypeShort); err != nil {
		return 0, err
	}
	if err := e.checkIndex("ifd.Entry.Uint16", index); err != nil {
		return 0, err
	}
	b, err := e.unitAt(index)
	if err != nil {
		return 0, err
	}
	return decodeU16(b, e.endian), nil
}

// Uint32 reads the index'th LONG value.
func (e *Entry) Uint32(index int) (uint32, error) {
	if err := e.checkType("ifd.Entry.Uint32", TypeLong); err != nil {
		return 0, err
	}
	if err := e.checkIndex("ifd.Entry.Uint32", index); err != nil {
		return 0, err
	}
	b, err := e.unitAt(index)
	if err != nil {
		return 0, err
	}
	return decodeU32(b, e.endian), nil
}

// Byte reads the index'th BYTE value.
func (e *Entry) Byte(index int) (uint8, error) {
	if err := e.checkType("ifd.Entry.Byte", TypeByte, TypeSByte); err != nil {
		return 0, err
	}
	if err := e.checkIndex("ifd.Entry.Byte", index); err != nil {
		return 0, err
	}
	b, err := e.unitAt(index)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

// Rational reads the index'th RATIONAL/SRATIONAL pair.
func (e *Entry) Rational(index int) (Rational, error) {
	if err := e.checkType("ifd.Entry.Rational", TypeRational, TypeSRational); err != nil {
		return Rational{}, err
	}
	if err := e.checkIndex("ifd.Entry.Rational", index); err != nil {
		return Rational{}, err
	}
	b, err := e.unitAt(index)
	if err != nil {
		return Rational{}, err
	}
	num := int64(decodeU32(b[0:4], e.endian))
	den := int64(decodeU32(b[4:8], e.endian))
	if e.Type == TypeSRational {
		num = int64(int32(decodeU32(b[0:4], e.endian)))
		den = int64(int32(decodeU32(b[4:8], e.endian)))
	}
	return Rational{Num: num, Den: den}, nil
}

// Integer is a loosely-typed read that accepts SHORT, LONG, or BYTE --
// used when the on-disk type of a logical field varies across vendors
// (e.g. Canon's SensorInfo entries are sometimes SHORT, sometimes LONG
// depending on firmware generation).
func (e *Entry) Integer(index int) (uint32, error) {
	switch e.Type {
	case TypeShort:
		v, err := e.Uint16(index)
		return uint32(v), err
	case TypeLong:
		return e.Uint32(index)
	case TypeByte, TypeSByte:
		v, err := e.Byte(index)
		return uint32(v), err
	default:
		return 0, rawerr.New(rawerr.InvalidParam, "ifd.Entry.Integer", fmt.Errorf("tag %#04x: type %d is not short/long/byte", e.Tag, e.Type))
	}
}

// String returns the ASCII value, trimming the trailing NUL that Count
// includes.
func (e *Entry) String() (string, error) {
	if err := e.checkType("ifd.Entry.String", TypeASCII); err != nil {
		return "", err
	}
	b, err := e.Bytes()
	if err != nil {
		return "", err
	}
	for len(b) > 0 && b[len(b)-1] == 0 {
		b = b[:len(b)-1]
	}
	return string(b), nil
}

// Uint16Array returns all Count SHORT values.
func (e *Entry) Uint16Array() ([]uint16, error) {
	out := make([]uint16, e.Count)
	for i := range out {
		v, err := e.Uint16(i)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

// Uint32Array returns all Count LONG values.
func (e *Entry) Uint32Array() ([]uint32, error) {
	out := make([]uint32, e.Count)
	for i := range out {
		v, err := e.Uint32(i)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

// IntegerArray loosely reads all Count values as uint32 regardless of
// whether the on-disk type is BYTE/SHORT/LONG.
func (e *Entry) IntegerArray() ([]uint32, error) {
	out := make([]uint32, e.Count)
	for i := range out {
		v, err := e.Integer(i)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func decodeU16(b []byte, e bytestream.Endian) uint16 {
	if e == bytestream.BigEndian {
		return uint16(b[0])<<8 | uint16(b[1])
	}
	return uint16(b[1])<<8 | uint16(b[0])
}

func decodeU32(b []byte, e bytestream.Endian) uint32 {
	if e == bytestream.BigEndian {
		return uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3])
	}
	return uint32(b[3])<<24 | uint32(b[2])<<16 | uint32(b[1])<<8 | uint32(b[0])
}

// Dir is an ordered tag->entry map plus the bookkeeping every
// TIFF-derived directory needs: its base offset, the endianness entries
// within it are read with, an optional link to the next IFD in the
// chain, and a subtype classifying its role to the owning RawFile.
type Dir struct {
	Base    int64
	Endian  bytestream.Endian
	Subtype Subtype

	order   []uint16
	entries map[uint16]*Entry

	NextOffset uint32
	HasNext    bool

	// TagNames, when set, is used only for diagnostics/logging; it is
	// never consulted for parsing decisions.
	TagNames map[uint16]string
}

// NewDir creates an empty directory ready to receive entries in
// encounter order via Add.
func NewDir(base int64, endian bytestream.Endian, subtype Subtype) *Dir {
	return &Dir{Base: base, Endian: endian, Subtype: subtype, entries: make(map[uint16]*Entry)}
}

// Add inserts e, recording tag order for stable iteration. A duplicate
// tag (malformed input) overwrites the previous entry's value but keeps
// its original position, matching "last write wins" without disturbing
// iteration order.
func (d *Dir) Add(e *Entry) {
	if _, exists := d.entries[e.Tag]; !exists {
		d.order = append(d.order, e.Tag)
	}
	d.entries[e.Tag] = e
}

// Get returns the entry for tag, or (nil, false) if absent.
func (d *Dir) Get(tag uint16) (*Entry, bool) {
	e, ok := d.entries[tag]
	return e, ok
}

// MustGet returns the entry for tag or a NotFound *rawerr.Error.
func (d *Dir) MustGet(tag uint16) (*Entry, error) {
	e, ok := d.entries[tag]
	if !ok {
		return nil, rawerr.NotFoundErr("ifd.Dir.MustGet", fmt.Errorf("tag %#04x not present", tag))
	}
	return e, nil
}

// Tags returns the tag IDs in encounter order.
func (d *Dir) Tags() []uint16 {
	return append([]uint16(nil), d.order...)
}

// Len returns the number of entries.
func (d *Dir) Len() int { return len(d.entries) }
