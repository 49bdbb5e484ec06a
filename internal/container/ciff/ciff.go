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
// Package ciff implements the CIFF heap container that backs Canon CRW
// files, ported from original_source/lib/ciffcontainer.{hpp,cpp} and
// lib/ciff/{heap,recordentry}.{hpp,cpp}. CIFF is Canon's own attempt at
// a self-describing container: a flat "HEAP"/"CCDR" header followed by
// a tree of Heaps, each holding a table of fixed-size RecordEntry rows
// that either embed up to 8 bytes inline or point at a sub-range of the
// same heap (a nested Heap, for TYPE_HEAP1/TYPE_HEAP2 entries).
package ciff

import (
	"fmt"

	"github.com/jdtorres/rawcore/internal/bytestream"
	"github.com/jdtorres/rawcore/rawerr"
)

// Tag identifies a CIFF record, with the storage-location and format
// bits already masked off (TAGCODE_MASK in the original).
type Tag uint16

const (
	TagFreeBytes         Tag = 0x0001
	TagColorInfo1        Tag = 0x0032
	TagFileDescription   Tag = 0x0805
	TagRawMakeModel      Tag = 0x080a
	TagFirmwareVersion   Tag = 0x080b
	TagComponentVersion  Tag = 0x080c
	TagOwnerName         Tag = 0x0810
	TagImageType         Tag = 0x0815
	TagOriginalFileName  Tag = 0x0816
	TagTargetImageType   Tag = 0x100a
	TagReleaseSetting    Tag = 0x1016
	TagBaseISO           Tag = 0x101c
	TagFocalLength       Tag = 0x1029
	TagShotInfo          Tag = 0x102a
	TagColorInfo2        Tag = 0x102c
	TagCameraSettings    Tag = 0x102d
	TagSensorInfo        Tag = 0x1031
	TagCustomFunctions   Tag = 0x1033
	TagPictureInfo       Tag = 0x1038
	TagWhiteBalanceTable Tag = 0x10a9
	TagColorSpace        Tag = 0x10b4
	TagImageSpec         Tag = 0x1803
	TagRecordID          Tag = 0x1804
	TagSerialNumber      Tag = 0x180b
	TagCapturedTime      Tag = 0x180e
	TagImageInfo         Tag = 0x1810
	TagFlashInfo         Tag = 0x1813
	TagFileNumber        Tag = 0x1817
	TagExposureInfo      Tag = 0x1818
	TagDecoderTable      Tag = 0x1835
	TagRawImageData      Tag = 0x2005
	TagJpegImage         Tag = 0x2007
	TagJpegThumbnail     Tag = 0x2008
	TagImageDescription  Tag = 0x2804
	TagCameraObject      Tag = 0x2807
	TagImageProps        Tag = 0x300a
	TagExifInformation   Tag = 0x300b
)

const (
	storageLocMask uint16 = 0xc000
	formatMask     uint16 = 0x3800
	tagCodeMask    uint16 = 0x3fff
)

// RecordType is the data-shape bits of a record's type code (the
// original's CIFFType).
type RecordType uint16

const (
	TypeByte  RecordType = 0x0000
	TypeASCII RecordType = 0x0800
	TypeWord  RecordType = 0x1000
	TypeDWord RecordType = 0x1800
	TypeByte2 RecordType = 0x2000
	TypeHeap1 RecordType = 0x2800
	TypeHeap2 RecordType = 0x3000
)

// Record is one heap table row: either up to 8 bytes embedded inline
// ("in record", per the typeCode's storage-location bits) or a
// length/offset pair pointing elsewhere in the same heap.
type Record struct {
	TypeCode uint16
	InRecord bool
	Inline   [8]byte
	Length   uint32
	Offset   uint32
}

// Tag returns the record's tag with storage-location and format bits
// masked off, the same TAGCODE() macro the original applies at every
// comparison site.
func (r Record) Tag() Tag { return Tag(r.TypeCode & tagCodeMask) }

// Type returns the record's data shape.
func (r Record) Type() RecordType { return RecordType(r.TypeCode & formatMask) }

// IsHeap reports whether the record's payload is itself a nested heap.
func (r Record) IsHeap() bool {
	t := r.Type()
	return t == TypeHeap1 || t == TypeHeap2
}

// Count returns the number of type-sized units the record's length
// spans (RecordEntry::count in the original).
func (r Record) Count() uint32 {
	switch r.Type() {
	case TypeWord:
		return r.Length / 2
	case TypeDWord:
		return r.Length / 4
	default:
		return r.Length
	}
}

// Container is an opened CIFF file: the HeapFileHeader plus lazily
// loaded heaps, mirroring CIFFContainer's lazy m_heap/m_imageprops/
// m_cameraprops members.
type Container struct {
	Stream       bytestream.Stream
	Endian       bytestream.Endian
	HeaderLength uint32

	root        *Heap
	imageProps  *Heap
	cameraProps *Heap
}

// Heap is a loaded table of Records plus the byte range it was read
// from, mirroring CIFF::Heap.
type Heap struct {
	Start   int64
	Length  int64
	Records []Record
}

// find returns the first record in h matching tag, mirroring the
// std::find_if calls scattered through ciffcontainer.cpp.
func (h *Heap) find(tag Tag) (Record, bool) {
	for _, r := range h.Records {
		if r.Tag() == tag {
			return r, true
		}
	}
	return Record{}, false
}

// Open reads the HeapFileHeader and validates the "HEAP"/"CCDR" magic,
// mirroring CIFFContainer's constructor and _readHeader.
func Open(s bytestream.Stream) (*Container, error) {
	byteOrder, err := s.Fetch(0, 2)
	if err != nil {
		return nil, rawerr.InvalidFormat("ciff.Open", err)
	}
	var endian bytestream.Endian
	switch {
	case byteOrder[0] == 'I' && byteOrder[1] == 'I':
		endian = bytestream.LittleEndian
	case byteOrder[0] == 'M' && byteOrder[1] == 'M':
		endian = bytestream.BigEndian
	default:
		return nil, rawerr.InvalidFormat("ciff.Open", fmt.Errorf("bad byte order marker %q", byteOrder))
	}

	headerLength, err := s.ReadU32(2, endian)
	if err != nil {
		return nil, rawerr.InvalidFormat("ciff.Open", err)
	}
	typ, err := s.Fetch(6, 4)
	if err != nil {
		return nil, rawerr.InvalidFormat("ciff.Open", err)
	}
	subType, err := s.Fetch(10, 4)
	if err != nil {
		return nil, rawerr.InvalidFormat("ciff.Open", err)
	}
	if string(typ) != "HEAP" || string(subType) != "CCDR" {
		return nil, rawerr.InvalidFormat("ciff.Open", fmt.Errorf("not a CIFF heap: type=%q subType=%q", typ, subType))
	}

	return &Container{Stream: s, Endian: endian, HeaderLength: headerLength}, nil
}

// loadHeap reads the numRecords/record-table-offset trailer at the end
// of [start, start+length) and the table of Records it points to,
// mirroring Heap::_loadRecords.
func (c *Container) loadHeap(start, length int64) (*Heap, error) {
	if length < 4 {
		return nil, rawerr.InvalidFormat("ciff.loadHeap", fmt.Errorf("heap length %d too small", length))
	}
	recordTableOffset, err := c.Stream.ReadI32(start+length-4, c.Endian)
	if err != nil {
		return nil, rawerr.InvalidFormat("ciff.loadHeap", err)
	}
	numRecords, err := c.Stream.ReadI16(start+int64(recordTableOffset), c.Endian)
	if err != nil {
		return nil, rawerr.InvalidFormat("ciff.loadHeap", err)
	}

	h := &Heap{Start: start, Length: length}
	pos := start + int64(recordTableOffset) + 2
	for i := 0; i < int(numRecords); i++ {
		rec, n, err := c.readRecord(pos)
		if err != nil {
			return nil, err
		}
		h.Records = append(h.Records, rec)
		pos += n
	}
	return h, nil
}

// readRecord decodes the 10-byte record entry at pos, mirroring
// RecordEntry::readFrom (a uint16 typeCode followed either by 8 inline
// bytes or a length/offset uint32 pair).
func (c *Container) readRecord(pos int64) (Record, int64, error) {
	typeCode, err := c.Stream.ReadU16(pos, c.Endian)
	if err != nil {
		return Record{}, 0, rawerr.InvalidFormat("ciff.readRecord", err)
	}
	rec := Record{TypeCode: typeCode}
	rec.InRecord = typeCode&storageLocMask != 0
	if rec.InRecord {
		inline, err := c.Stream.Fetch(pos+2, 8)
		if err != nil {
			return Record{}, 0, rawerr.InvalidFormat("ciff.readRecord", err)
		}
		copy(rec.Inline[:], inline)
		return rec, 10, nil
	}
	length, err := c.Stream.ReadU32(pos+2, c.Endian)
	if err != nil {
		return Record{}, 0, rawerr.InvalidFormat("ciff.readRecord", err)
	}
	offset, err := c.Stream.ReadU32(pos+6, c.Endian)
	if err != nil {
		return Record{}, 0, rawerr.InvalidFormat("ciff.readRecord", err)
	}
	rec.Length, rec.Offset = length, offset
	return rec, 10, nil
}

// Root returns the file's root heap, spanning from the header's end to
// the end of the file, mirroring CIFFContainer::heap()/_loadHeap.
func (c *Container) Root() (*Heap, error) {
	if c.root != nil {
		return c.root, nil
	}
	size, err := c.Stream.Filesize()
	if err != nil {
		return nil, rawerr.InvalidFormat("ciff.Root", err)
	}
	h, err := c.loadHeap(int64(c.HeaderLength), size-int64(c.HeaderLength))
	if err != nil {
		return nil, err
	}
	c.root = h
	return h, nil
}

// heapFromRecord loads a nested heap a record points to, relative to
// the heap it was found in, mirroring RecordEntry::heap.
func (c *Container) heapFromRecord(parent *Heap, rec Record) (*Heap, error) {
	return c.loadHeap(parent.Start+int64(rec.Offset), int64(rec.Length))
}

// ImageProps returns the root heap's TagImageProps sub-heap, mirroring
// CIFFContainer::getImageProps.
func (c *Container) ImageProps() (*Heap, error) {
	if c.imageProps != nil {
		return c.imageProps, nil
	}
	root, err := c.Root()
	if err != nil {
		return nil, err
	}
	rec, ok := root.find(TagImageProps)
	if !ok {
		return nil, rawerr.NotFoundErr("ciff.ImageProps", fmt.Errorf("no %v record in root heap", TagImageProps))
	}
	h, err := c.heapFromRecord(root, rec)
	if err != nil {
		return nil, err
	}
	c.imageProps = h
	return h, nil
}

// CameraProps returns the image-properties heap's TagCameraObject
// sub-heap, mirroring CIFFContainer::getCameraProps.
func (c *Container) CameraProps() (*Heap, error) {
	if c.cameraProps != nil {
		return c.cameraProps, nil
	}
	props, err := c.ImageProps()
	if err != nil {
		return nil, err
	}
	rec, ok := props.find(TagCameraObject)
	if !ok {
		return nil, rawerr.NotFoundErr("ciff.CameraProps", fmt.Errorf("no %v record in image props heap", TagCameraObject))
	}
	h, err := c.heapFromRecord(props, rec)
	if err != nil {
		return nil, err
	}
	c.cameraProps = h
	return h, nil
}

// ExifInfo returns the image-properties heap's TagExifInformation
// sub-heap, mirroring CIFFContainer::getExifInfo.
func (c *Container) ExifInfo() (*Heap, error) {
	props, err := c.ImageProps()
	if err != nil {
		return nil, err
	}
	rec, ok := props.find(TagExifInformation)
	if !ok {
		return nil, rawerr.NotFoundErr("ciff.ExifInfo", fmt.Errorf("no %v record in image props heap", TagExifInformation))
	}
	return c.heapFromRecord(props, rec)
}

// RawDataRecord returns the root heap's TagRawImageData record,
// mirroring CIFFContainer::getRawDataRecord.
func (c *Container) RawDataRecord() (Record, bool, error) {
	root, err := c.Root()
	if err != nil {
		return Record{}, false, err
	}
	rec, ok := root.find(TagRawImageData)
	return rec, ok, nil
}

// ImageSpec is the fixed-layout struct CIFF stores under
// TagImageInfo in the image-properties heap, mirroring CIFF::ImageSpec.
type ImageSpec struct {
	ImageWidth        uint32
	ImageHeight       uint32
	PixelAspectRatio  uint32
	RotationAngle     int32
	ComponentBitDepth uint32
	ColorBitDepth     uint32
	ColorBW           uint32
}

// ExifOrientation maps RotationAngle to the Exif Orientation tag's
// value space, mirroring ImageSpec::exifOrientation.
func (s ImageSpec) ExifOrientation() int32 {
	switch s.RotationAngle {
	case 90:
		return 6
	case 180:
		return 3
	case 270:
		return 8
	default:
		return 1
	}
}

// ImageSpec locates and reads the image-properties heap's TagImageInfo
// record, mirroring CIFFContainer::getImageSpec.
func (c *Container) ImageSpec() (ImageSpec, error) {
	props, err := c.ImageProps()
	if err != nil {
		return ImageSpec{}, err
	}
	rec, ok := props.find(TagImageInfo)
	if !ok {
		return ImageSpec{}, rawerr.NotFoundErr("ciff.ImageSpec", fmt.Errorf("no %v record in image props heap", TagImageInfo))
	}
	return c.readImageSpec(props.Start + int64(rec.Offset))
}

func (c *Container) readImageSpec(offset int64) (ImageSpec, error) {
	var s ImageSpec
	fields := []*uint32{&s.ImageWidth, &s.ImageHeight, &s.PixelAspectRatio}
	for i, f := range fields {
		v, err := c.Stream.ReadU32(offset+int64(i)*4, c.Endian)
		if err != nil {
			return ImageSpec{}, rawerr.InvalidFormat("ciff.readImageSpec", err)
		}
		*f = v
	}
	rot, err := c.Stream.ReadI32(offset+12, c.Endian)
	if err != nil {
		return ImageSpec{}, rawerr.InvalidFormat("ciff.readImageSpec", err)
	}
	s.RotationAngle = rot
	rest := []*uint32{&s.ComponentBitDepth, &s.ColorBitDepth, &s.ColorBW}
	for i, f := range rest {
		v, err := c.Stream.ReadU32(offset+16+int64(i)*4, c.Endian)
		if err != nil {
			return ImageSpec{}, rawerr.InvalidFormat("ciff.readImageSpec", err)
		}
		*f = v
	}
	return s, nil
}

// CameraSettings reads the Exif-information heap's TagCameraSettings
// record as an array of 16-bit words, mirroring
// CIFFContainer::getCameraSettings.
func (c *Container) CameraSettings() ([]uint16, error) {
	exif, err := c.ExifInfo()
	if err != nil {
		return nil, err
	}
	rec, ok := exif.find(TagCameraSettings)
	if !ok {
		return nil, rawerr.NotFoundErr("ciff.CameraSettings", fmt.Errorf("no %v record in Exif info heap", TagCameraSettings))
	}
	count := rec.Count()
	out := make([]uint16, count)
	base := exif.Start + int64(rec.Offset)
	for i := range out {
		v, err := c.Stream.ReadU16(base+int64(i)*2, c.Endian)
		if err != nil {
			return nil, rawerr.InvalidFormat("ciff.CameraSettings", err)
		}
		out[i] = v
	}
	return out, nil
}
