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
// Package mrw implements the Minolta MRW data-block container, ported
// from original_source/lib/mrwcontainer.{hpp,cpp}. An MRW file is a
// single top-level "\x00MRM" block containing a flat run of sub-blocks
// (PRD, TTW, WBG, RIF, and padding "PAD" blocks to be skipped), each
// framed by an 8-byte header: a 4-byte name (the first byte is always
// 0x00; the name is the remaining 3 ASCII characters) followed by a
// big-endian uint32 payload length. The TTW block's payload is itself a
// complete embedded TIFF container.
package mrw

import (
	"fmt"

	"github.com/jdtorres/rawcore/internal/bytestream"
	"github.com/jdtorres/rawcore/rawerr"
)

// HeaderLength is the number of bytes in a data-block header (name +
// length), mirroring MRW::DataBlockHeaderLength.
const HeaderLength = 8

// DataBlock is one parsed MRW data block: its name, its offset, and
// the length of its payload (excluding the 8-byte header), mirroring
// MRW::DataBlock.
type DataBlock struct {
	Name   string
	Start  int64
	Length int64
}

// PayloadOffset is the absolute offset of the block's first payload
// byte.
func (b DataBlock) PayloadOffset() int64 { return b.Start + HeaderLength }

// End is the absolute offset just past the block, i.e. where the next
// sibling block (if any) begins.
func (b DataBlock) End() int64 { return b.Start + HeaderLength + b.Length }

// Container is an opened MRW file: the MRM root block plus the four
// data blocks every MRW file is expected to carry, mirroring
// MRWContainer's public DataBlock::Ref members.
type Container struct {
	Stream bytestream.Stream

	MRM DataBlock
	PRD DataBlock
	TTW DataBlock
	WBG DataBlock
	RIF DataBlock

	Version string
}

// readBlock reads the 8-byte header at start, mirroring
// MRW::DataBlock's constructor.
func readBlock(s bytestream.Stream, start int64) (DataBlock, error) {
	name, err := s.Fetch(start, 4)
	if err != nil {
		return DataBlock{}, rawerr.InvalidFormat("mrw.readBlock", err)
	}
	length, err := s.ReadU32(start+4, bytestream.BigEndian)
	if err != nil {
		return DataBlock{}, rawerr.InvalidFormat("mrw.readBlock", err)
	}
	return DataBlock{Name: string(name[1:4]), Start: start, Length: int64(length)}, nil
}

// Open reads the MRM root block and scans its children, mirroring
// MRWContainer::isMagicHeader plus locateDirsPreHook.
func Open(s bytestream.Stream) (*Container, error) {
	magic, err := s.Fetch(0, 4)
	if err != nil {
		return nil, rawerr.InvalidFormat("mrw.Open", err)
	}
	if !(magic[0] == 0x00 && magic[1] == 'M' && magic[2] == 'R' && magic[3] == 'M') {
		return nil, rawerr.InvalidFormat("mrw.Open", fmt.Errorf("not an MRW file: magic %x", magic))
	}

	mrm, err := readBlock(s, 0)
	if err != nil {
		return nil, err
	}

	c := &Container{Stream: s, MRM: mrm}

	pos := mrm.PayloadOffset()
	pixelDataOffset := mrm.End()
	for pos < pixelDataOffset {
		b, err := readBlock(s, pos)
		if err != nil {
			return nil, err
		}
		switch b.Name {
		case "PRD":
			c.PRD = b
		case "TTW":
			c.TTW = b
		case "WBG":
			c.WBG = b
		case "RIF":
			c.RIF = b
		case "PAD":
			// expected filler, nothing to record
		default:
			// unrecognized block kind; original only logs a warning
		}
		pos = b.End()
	}

	if c.PRD.Name == "" {
		return nil, rawerr.InvalidFormat("mrw.Open", fmt.Errorf("missing PRD data block"))
	}
	if c.TTW.Name == "" {
		return nil, rawerr.InvalidFormat("mrw.Open", fmt.Errorf("missing TTW data block"))
	}
	if c.WBG.Name == "" {
		return nil, rawerr.InvalidFormat("mrw.Open", fmt.Errorf("missing WBG data block"))
	}
	if c.RIF.Name == "" {
		return nil, rawerr.InvalidFormat("mrw.Open", fmt.Errorf("missing RIF data block"))
	}

	version, err := s.Fetch(c.PRD.PayloadOffset()+prdVersion, 8)
	if err != nil {
		return nil, rawerr.InvalidFormat("mrw.Open", err)
	}
	c.Version = string(version)

	return c, nil
}

// PixelDataOffset returns the absolute offset of the raw pixel array,
// which immediately follows the MRM block's payload (the sub-block
// scan above stops exactly there), mirroring
// MRWContainer::pixelDataOffset.
func (c *Container) PixelDataOffset() int64 { return c.MRM.End() }

// TIFFOffset returns the absolute offset of the embedded TIFF
// container carried in the TTW block's payload -- MRWContainer
// reparents itself here and applies it as the Exif offset correction,
// mirroring the tail of locateDirsPreHook.
func (c *Container) TIFFOffset() int64 { return c.TTW.PayloadOffset() }

// Known field offsets within a PRD block's payload, mirroring the PRD_*
// enum.
const (
	prdVersion      = 0
	prdSensorLength = 8
	prdSensorWidth  = 10
	prdImageLength  = 12
	prdImageWidth   = 14
	prdDataSize     = 16
	prdPixelSize    = 17
	prdStorageType  = 18
	prdBayerPattern = 22
)

// StorageType values, mirroring STORAGE_TYPE_*.
const (
	StorageUnpacked = 0x52
	StoragePacked   = 0x59
)

// Bayer pattern values, mirroring BAYER_PATTERN_*.
const (
	BayerRGGB = 0x0001
	BayerGBRG = 0x0004
)

// PRDInfo is the decoded subset of a PRD block's fixed-layout fields
// needed to set up the raw-pixel decode (sensor/output dimensions,
// pixel depth, storage method, CFA layout).
type PRDInfo struct {
	SensorLength uint16
	SensorWidth  uint16
	ImageLength  uint16
	ImageWidth   uint16
	DataSize     uint8
	PixelSize    uint8
	StorageType  uint8
	BayerPattern uint16
}

// PRDInfo reads and decodes the PRD block's payload.
func (c *Container) PRDInfo() (PRDInfo, error) {
	base := c.PRD.PayloadOffset()
	var info PRDInfo
	var err error
	read16 := func(off int64) uint16 {
		if err != nil {
			return 0
		}
		var v uint16
		v, err = c.Stream.ReadU16(base+off, bytestream.BigEndian)
		return v
	}
	read8 := func(off int64) uint8 {
		if err != nil {
			return 0
		}
		var v uint8
		v, err = c.Stream.ReadU8(base + off)
		return v
	}

	info.SensorLength = read16(prdSensorLength)
	info.SensorWidth = read16(prdSensorWidth)
	info.ImageLength = read16(prdImageLength)
	info.ImageWidth = read16(prdImageWidth)
	info.DataSize = read8(prdDataSize)
	info.PixelSize = read8(prdPixelSize)
	info.StorageType = read8(prdStorageType)
	info.BayerPattern = read16(prdBayerPattern)
	if err != nil {
		return PRDInfo{}, rawerr.InvalidFormat("mrw.PRDInfo", err)
	}
	return info, nil
}
