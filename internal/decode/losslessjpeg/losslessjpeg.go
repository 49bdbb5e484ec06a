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
// Package losslessjpeg implements the ITU T.81 Annex H lossless-JPEG
// decoder used by CR2 and some DNG/NEF raw planes: SOF3 component
// layout, DHT Huffman tables, and one of the eight predictor selection
// values (PSV 0-7) applied relative to the left/upper/upper-left
// neighbours. It is a close port of
// original_source/lib/ljpegdecompressor.cpp, itself derived from the
// IJG/Cornell reference lossless-JPEG code embedded in dcraw-lineage
// decoders.
package losslessjpeg

import "github.com/jdtorres/rawcore/rawerr"

// Marker byte values (the byte following an 0xFF marker prefix).
const (
	markerTEM  = 0x01
	markerSOF0 = 0xC0
	markerSOF1 = 0xC1
	markerSOF2 = 0xC2
	markerSOF3 = 0xC3
	markerDHT  = 0xC4
	markerSOF5 = 0xC5
	markerSOF6 = 0xC6
	markerSOF7 = 0xC7
	markerJPG  = 0xC8
	markerSOF9 = 0xC9
	markerSOF10 = 0xCA
	markerSOF11 = 0xCB
	markerSOF13 = 0xCD
	markerSOF14 = 0xCE
	markerSOF15 = 0xCF
	markerRST0 = 0xD0
	markerRST7 = 0xD7
	markerSOI  = 0xD8
	markerEOI  = 0xD9
	markerSOS  = 0xDA
	markerDQT  = 0xDB
	markerDRI  = 0xDD
	markerAPP0 = 0xE0
)

func isStoppingMarker(c byte) bool {
	switch c {
	case markerSOF0, markerSOF1, markerSOF2, markerSOF3, markerSOF5, markerSOF6,
		markerSOF7, markerJPG, markerSOF9, markerSOF10, markerSOF11, markerSOF13,
		markerSOF14, markerSOF15, markerSOI, markerEOI, markerSOS:
		return true
	}
	return false
}

var bmask = [17]uint32{
	0x0000,
	0x0001, 0x0003, 0x0007, 0x000F,
	0x001F, 0x003F, 0x007F, 0x00FF,
	0x01FF, 0x03FF, 0x07FF, 0x0FFF,
	0x1FFF, 0x3FFF, 0x7FFF, 0xFFFF,
}

var extendTest = [16]int32{
	0, 0x0001, 0x0002, 0x0004, 0x0008, 0x0010, 0x0020, 0x0040, 0x0080,
	0x0100, 0x0200, 0x0400, 0x0800, 0x1000, 0x2000, 0x4000,
}

var extendOffset = buildExtendOffset()

func buildExtendOffset() [16]int32 {
	var t [16]int32
	for n := 1; n < 16; n++ {
		t[n] = int32(-1<<uint(n)) + 1
	}
	return t
}

func huffExtend(x int32, s int) int32 {
	if x < extendTest[s] {
		x += extendOffset[s]
	}
	return x
}

// HuffmanTable holds one DHT table's code-length counts and symbol
// values, plus the derived decode tables FixHuffTable computes.
type HuffmanTable struct {
	Bits    [17]int
	HuffVal [256]byte

	minCode [18]int32
	maxCode [18]int32
	valPtr  [18]int32
	numBits [256]byte
	value   [256]byte
}

// FixHuffTable computes the derived mincode/maxcode/valptr tables (per
// ITU T.81 Annex C) and the 8-bit fast-lookup table, per FixHuffTbl.
func (h *HuffmanTable) FixHuffTable() {
	var huffsize [257]int
	var huffcode [257]uint16

	p := 0
	for l := 1; l <= 16; l++ {
		for i := 0; i < h.Bits[l]; i++ {
			huffsize[p] = l
			p++
		}
	}
	huffsize[p] = 0
	lastp := p

	var code uint16
	si := huffsize[0]
	p = 0
	for huffsize[p] != 0 {
		for huffsize[p] == si {
			huffcode[p] = code
			code++
			p++
		}
		code <<= 1
		si++
	}

	p = 0
	for l := 1; l <= 16; l++ {
		if h.Bits[l] != 0 {
			h.valPtr[l] = int32(p)
			h.minCode[l] = int32(huffcode[p])
			p += h.Bits[l]
			h.maxCode[l] = int32(huffcode[p-1])
		} else {
			h.maxCode[l] = -1
		}
	}
	h.maxCode[17] = 0xFFFFF

	for p := 0; p < lastp; p++ {
		size := huffsize[p]
		if size <= 8 {
			value := h.HuffVal[p]
			code := huffcode[p]
			ll := int(code) << (8 - size)
			ul := ll
			if size < 8 {
				ul = ll | int(bmask[8-size])
			}
			for i := ll; i <= ul; i++ {
				h.numBits[i] = byte(size)
				h.value[i] = value
			}
		}
	}
}

type componentInfo struct {
	componentID byte
	hSamp       int
	vSamp       int
	dcTblNo     int
}

type decompressInfo struct {
	dataPrecision int
	imageHeight   int
	imageWidth    int
	numComponents int
	compInfo      []componentInfo

	compsInScan   int
	curCompInfo   [4]*componentInfo
	mcuMembership [4]int

	dcHuffTbl [4]*HuffmanTable

	restartInterval  int
	restartInRows    int
	restartRowsToGo  int
	nextRestartNum   int

	ss int // PSV
	pt int // point transform
}

type byteReader struct {
	data []byte
	pos  int
}

func (r *byteReader) readByte() (byte, bool) {
	if r.pos >= len(r.data) {
		return 0, false
	}
	b := r.data[r.pos]
	r.pos++
	return b, true
}

func (r *byteReader) get2bytes() (uint16, bool) {
	a, ok := r.readByte()
	if !ok {
		return 0, false
	}
	b, ok := r.readByte()
	if !ok {
		return 0, false
	}
	return uint16(a)<<8 | uint16(b), true
}

// decoder carries the MIN_GET_BITS-style bit buffer shared by header and
// scan parsing, exactly as LJpegDecompressor's single m_stream does.
type decoder struct {
	br       *byteReader
	bitsLeft uint32
	getBuf   uint32
}

const minGetBits = 25

func (d *decoder) fillBitBuffer(nbits uint32) {
	for d.bitsLeft < minGetBits {
		c, ok := d.br.readByte()
		if !ok {
			break
		}
		if c == 0xff {
			c2, ok2 := d.br.readByte()
			if ok2 && c2 != 0 {
				d.br.pos -= 2
				if d.bitsLeft >= nbits {
					break
				}
				c = 0
			}
		}
		d.getBuf = (d.getBuf << 8) | uint32(c)
		d.bitsLeft += 8
	}
}

func (d *decoder) showBits8() uint32 {
	if d.bitsLeft < 8 {
		d.fillBitBuffer(8)
	}
	if d.bitsLeft < 8 {
		return 0
	}
	return (d.getBuf >> (d.bitsLeft - 8)) & 0xff
}

func (d *decoder) flushBits(n uint32) { d.bitsLeft -= n }

func (d *decoder) getBits(n uint32) int32 {
	if d.bitsLeft < n {
		d.fillBitBuffer(n)
	}
	if d.bitsLeft < n {
		d.bitsLeft = 0
		return 0
	}
	d.bitsLeft -= n
	return int32((d.getBuf >> d.bitsLeft) & bmask[n])
}

func (d *decoder) getBit() int32 {
	if d.bitsLeft == 0 {
		d.fillBitBuffer(1)
	}
	if d.bitsLeft == 0 {
		return 0
	}
	d.bitsLeft--
	return int32((d.getBuf >> d.bitsLeft) & 1)
}

func (d *decoder) huffDecode(htbl *HuffmanTable) int32 {
	code := d.showBits8()
	if htbl.numBits[code] != 0 {
		d.flushBits(uint32(htbl.numBits[code]))
		return int32(htbl.value[code])
	}
	d.flushBits(8)
	l := 8
	icode := int32(code)
	for icode > htbl.maxCode[l] {
		icode = (icode << 1) | d.getBit()
		l++
		if l > 17 {
			break
		}
	}
	if l > 16 {
		return 0
	}
	return int32(htbl.HuffVal[htbl.valPtr[l]+(icode-htbl.minCode[l])])
}

func quickPredict(col int, curComp int, curRow, prevRow [][]int32, psv int) int32 {
	leftCol := col - 1
	upper := prevRow[col][curComp]
	left := curRow[leftCol][curComp]
	diag := prevRow[leftCol][curComp]

	switch psv {
	case 0:
		return 0
	case 1:
		return left
	case 2:
		return upper
	case 3:
		return diag
	case 4:
		return left + upper - diag
	case 5:
		return left + ((upper - diag) >> 1)
	case 6:
		return upper + ((left - diag) >> 1)
	case 7:
		return (left + upper) >> 1
	default:
		return 0
	}
}

func skipVariable(r *byteReader) bool {
	length, ok := r.get2bytes()
	if !ok {
		return false
	}
	n := int(length) - 2
	r.pos += n
	return r.pos <= len(r.data)
}

func getDht(r *byteReader, dc *decompressInfo) error {
	length16, ok := r.get2bytes()
	if !ok {
		return rawerr.Decode("losslessjpeg.getDht", errTruncated{})
	}
	length := int(length16) - 2
	for length > 0 {
		index, ok := r.readByte()
		if !ok || index >= 4 {
			return rawerr.Decode("losslessjpeg.getDht", errBadDHT{})
		}
		htbl := dc.dcHuffTbl[index]
		if htbl == nil {
			htbl = &HuffmanTable{}
			dc.dcHuffTbl[index] = htbl
		}
		count := 0
		for i := 1; i <= 16; i++ {
			b, ok := r.readByte()
			if !ok {
				return rawerr.Decode("losslessjpeg.getDht", errTruncated{})
			}
			htbl.Bits[i] = int(b)
			count += int(b)
		}
		if count > 256 {
			return rawerr.Decode("losslessjpeg.getDht", errBadDHT{})
		}
		for i := 0; i < count; i++ {
			b, ok := r.readByte()
			if !ok {
				return rawerr.Decode("losslessjpeg.getDht", errTruncated{})
			}
			htbl.HuffVal[i] = b
		}
		length -= 1 + 16 + count
	}
	return nil
}

func getDri(r *byteReader, dc *decompressInfo) error {
	length, ok := r.get2bytes()
	if !ok || length != 4 {
		return rawerr.Decode("losslessjpeg.getDri", errBadDRI{})
	}
	v, ok := r.get2bytes()
	if !ok {
		return rawerr.Decode("losslessjpeg.getDri", errTruncated{})
	}
	dc.restartInterval = int(v)
	return nil
}

func getSof(r *byteReader, dc *decompressInfo) error {
	_, ok := r.get2bytes() // length, unused beyond the sanity check below
	if !ok {
		return rawerr.Decode("losslessjpeg.getSof", errTruncated{})
	}
	prec, ok := r.readByte()
	if !ok {
		return rawerr.Decode("losslessjpeg.getSof", errTruncated{})
	}
	h, ok := r.get2bytes()
	if !ok {
		return rawerr.Decode("losslessjpeg.getSof", errTruncated{})
	}
	w, ok := r.get2bytes()
	if !ok {
		return rawerr.Decode("losslessjpeg.getSof", errTruncated{})
	}
	nc, ok := r.readByte()
	if !ok {
		return rawerr.Decode("losslessjpeg.getSof", errTruncated{})
	}

	dc.dataPrecision = int(prec)
	dc.imageHeight = int(h)
	dc.imageWidth = int(w)
	dc.numComponents = int(nc)

	if dc.imageHeight <= 0 || dc.imageWidth <= 0 || dc.numComponents <= 0 {
		return rawerr.Decode("losslessjpeg.getSof", errEmptyImage{})
	}
	if dc.dataPrecision < 2 || dc.dataPrecision > 16 {
		return rawerr.Decode("losslessjpeg.getSof", errBadPrecision{dc.dataPrecision})
	}

	dc.compInfo = make([]componentInfo, dc.numComponents)
	for ci := 0; ci < dc.numComponents; ci++ {
		id, ok := r.readByte()
		if !ok {
			return rawerr.Decode("losslessjpeg.getSof", errTruncated{})
		}
		c, ok := r.readByte()
		if !ok {
			return rawerr.Decode("losslessjpeg.getSof", errTruncated{})
		}
		if _, ok := r.readByte(); !ok { // Tq, ignored (lossless JPEG has no quantization)
			return rawerr.Decode("losslessjpeg.getSof", errTruncated{})
		}
		dc.compInfo[ci] = componentInfo{
			componentID: id,
			hSamp:       int(c>>4) & 15,
			vSamp:       int(c) & 15,
		}
	}
	return nil
}

func getSos(r *byteReader, dc *decompressInfo) error {
	length16, ok := r.get2bytes()
	if !ok {
		return rawerr.Decode("losslessjpeg.getSos", errTruncated{})
	}
	length := int(length16)
	n, ok := r.readByte()
	if !ok {
		return rawerr.Decode("losslessjpeg.getSos", errTruncated{})
	}
	dc.compsInScan = int(n)
	length -= 3
	if length != int(n)*2+3 || n < 1 || n > 4 {
		return rawerr.Decode("losslessjpeg.getSos", errBadSOS{})
	}

	for i := 0; i < int(n); i++ {
		cc, ok := r.readByte()
		if !ok {
			return rawerr.Decode("losslessjpeg.getSos", errTruncated{})
		}
		c, ok := r.readByte()
		if !ok {
			return rawerr.Decode("losslessjpeg.getSos", errTruncated{})
		}
		ci := -1
		for idx := range dc.compInfo {
			if dc.compInfo[idx].componentID == cc {
				ci = idx
				break
			}
		}
		if ci < 0 {
			return rawerr.Decode("losslessjpeg.getSos", errBadSOS{})
		}
		dc.compInfo[ci].dcTblNo = int(c>>4) & 15
		dc.curCompInfo[i] = &dc.compInfo[ci]
	}

	ss, ok := r.readByte()
	if !ok {
		return rawerr.Decode("losslessjpeg.getSos", errTruncated{})
	}
	dc.ss = int(ss)
	if _, ok := r.readByte(); !ok { // Se, unused in lossless mode
		return rawerr.Decode("losslessjpeg.getSos", errTruncated{})
	}
	c, ok := r.readByte()
	if !ok {
		return rawerr.Decode("losslessjpeg.getSos", errTruncated{})
	}
	dc.pt = int(c) & 0x0F
	return nil
}

func nextMarker(r *byteReader) (byte, bool) {
	for {
		var c byte
		var ok bool
		for {
			c, ok = r.readByte()
			if !ok {
				return 0, false
			}
			if c == 0xff {
				break
			}
		}
		for {
			c, ok = r.readByte()
			if !ok {
				return 0, false
			}
			if c != 0xff {
				break
			}
		}
		if c != 0 {
			return c, true
		}
	}
}

// processTables scans markers that can appear in any order (DHT, DQT,
// DRI, APP0, RSTn, and unrecognized variable-length markers), stopping
// at the first SOF/SOI/EOI/SOS marker.
func processTables(r *byteReader, dc *decompressInfo) (byte, error) {
	for {
		c, ok := nextMarker(r)
		if !ok {
			return 0, rawerr.Decode("losslessjpeg.processTables", errTruncated{})
		}
		if isStoppingMarker(c) {
			return c, nil
		}
		switch c {
		case markerDHT:
			if err := getDht(r, dc); err != nil {
				return 0, err
			}
		case markerDQT:
			// Not a lossless JPEG file in the strict sense; tolerated.
		case markerDRI:
			if err := getDri(r, dc); err != nil {
				return 0, err
			}
		case markerAPP0:
			if !skipVariable(r) {
				return 0, rawerr.Decode("losslessjpeg.processTables", errTruncated{})
			}
		case markerRST0, markerRST0 + 1, markerRST0 + 2, markerRST0 + 3,
			markerRST0 + 4, markerRST0 + 5, markerRST0 + 6, markerRST7, markerTEM:
			// parameterless, unexpected here; skip and continue
		default:
			if !skipVariable(r) {
				return 0, rawerr.Decode("losslessjpeg.processTables", errTruncated{})
			}
		}
	}
}

// Result is a decoded lossless-JPEG plane: row-major, component values
// interleaved per the original image's component count.
type Result struct {
	Width         int // imageWidth * NumComponents, per PmPutRow's column*component layout
	Height        int
	NumComponents int
	DataPrecision int
	Pixels        []uint16
}

// SliceDescriptor carries Canon CR2's "slices" extension (IFD tag
// CR2_TAG_SLICE, 3 SHORTs). A sliced CR2 bitstream's SOF declares a
// narrow width of WRepeat samples-per-component and a height inflated
// by a factor of N+1: the decoded plane is really N side-by-side
// columns of width WRepeat stacked vertically, followed by one more
// of width WLast, and must be re-laid-out side-by-side into one row
// of width N*WRepeat+WLast, per spec.md 4.10 point 6.
type SliceDescriptor struct {
	N       int
	WRepeat int
	WLast   int
}

func (s SliceDescriptor) totalWidth() int { return s.N*s.WRepeat + s.WLast }

// unslice undoes a SliceDescriptor: it reinterprets res's decoded
// plane (N+1 vertically-stacked blocks, each WRepeat samples wide
// except the last, which is WLast) and re-lays them out side by side
// into one block WRepeat*N+WLast samples wide, per spec.md 4.10 point
// 6 and the testable property in spec.md 8 ("slice descriptor sums to
// image_width x channels decode without pixel-index drift").
func unslice(res *Result, s SliceDescriptor) (*Result, error) {
	blocks := s.N + 1
	repeatWidth := s.WRepeat * res.NumComponents
	lastWidth := s.WLast * res.NumComponents
	if repeatWidth <= 0 || repeatWidth != res.Width || res.Height%blocks != 0 {
		return nil, rawerr.Decode("losslessjpeg.unslice", errBadSlices{})
	}
	blockHeight := res.Height / blocks
	finalWidth := s.N*repeatWidth + lastWidth
	out := make([]uint16, finalWidth*blockHeight)
	for blk := 0; blk < blocks; blk++ {
		w := repeatWidth
		if blk == blocks-1 {
			w = lastWidth
		}
		colOffset := blk * repeatWidth
		for row := 0; row < blockHeight; row++ {
			srcBase := (blk*blockHeight + row) * repeatWidth
			dstBase := row*finalWidth + colOffset
			copy(out[dstBase:dstBase+w], res.Pixels[srcBase:srcBase+w])
		}
	}
	return &Result{
		Width:         finalWidth,
		Height:        blockHeight,
		NumComponents: res.NumComponents,
		DataPrecision: res.DataPrecision,
		Pixels:        out,
	}, nil
}

// Decode parses and fully decompresses a lossless-JPEG bitstream (SOI
// through EOI/end-of-scan). Only SOF0/SOF1/SOF3 (baseline/extended/
// lossless sequential, non-differential, Huffman-coded) are supported,
// matching ReadFileHeader's accepted SOF set. slices is non-nil only
// for Canon CR2 planes that carry CR2_TAG_SLICE; every other caller
// passes nil and gets the decoded plane back unchanged.
func Decode(data []byte, slices *SliceDescriptor) (*Result, error) {
	r := &byteReader{data: data}

	c, ok1 := r.readByte()
	c2, ok2 := r.readByte()
	if !ok1 || !ok2 || c != 0xff || c2 != markerSOI {
		return nil, rawerr.InvalidFormat("losslessjpeg.Decode", errNotJPEG{})
	}

	dc := &decompressInfo{restartInterval: 0}

	marker, err := processTables(r, dc)
	if err != nil {
		return nil, err
	}
	switch marker {
	case markerSOF0, markerSOF1, markerSOF3:
		if err := getSof(r, dc); err != nil {
			return nil, err
		}
	default:
		return nil, rawerr.NotImplementedErr("losslessjpeg.Decode", errUnsupportedSOF{marker})
	}

	marker2, err := processTables(r, dc)
	if err != nil {
		return nil, err
	}
	if marker2 != markerSOS {
		if marker2 == markerEOI {
			return &Result{DataPrecision: dc.dataPrecision}, nil
		}
		return nil, rawerr.Decode("losslessjpeg.Decode", errExpectedSOS{})
	}
	if err := getSos(r, dc); err != nil {
		return nil, err
	}

	for ci := 0; ci < dc.compsInScan; ci++ {
		if dc.curCompInfo[ci].hSamp != 1 || dc.curCompInfo[ci].vSamp != 1 {
			return nil, rawerr.NotImplementedErr("losslessjpeg.Decode", errDownsamplingUnsupported{})
		}
	}
	if dc.compsInScan == 1 {
		dc.mcuMembership[0] = 0
	} else {
		if dc.compsInScan > 4 {
			return nil, rawerr.Decode("losslessjpeg.Decode", errTooManyComponents{})
		}
		for ci := 0; ci < dc.compsInScan; ci++ {
			dc.mcuMembership[ci] = ci
		}
	}

	for ci := 0; ci < dc.compsInScan; ci++ {
		compptr := dc.curCompInfo[ci]
		htbl := dc.dcHuffTbl[compptr.dcTblNo]
		if htbl == nil {
			return nil, rawerr.Decode("losslessjpeg.Decode", errUndefinedHuffTable{})
		}
		htbl.FixHuffTable()
	}

	if dc.imageWidth != 0 {
		dc.restartInRows = dc.restartInterval / dc.imageWidth
	}
	dc.restartRowsToGo = dc.restartInRows
	dc.nextRestartNum = 0

	dec := &decoder{br: r}

	width := dc.imageWidth * dc.numComponents
	pixels := make([]uint16, width*dc.imageHeight)

	newRow := func() [][]int32 {
		row := make([][]int32, dc.imageWidth)
		for i := range row {
			row[i] = make([]int32, dc.compsInScan)
		}
		return row
	}
	curRow := newRow()
	prevRow := newRow()

	decodeFirstRow := func(row [][]int32) {
		for curComp := 0; curComp < dc.compsInScan; curComp++ {
			compptr := dc.curCompInfo[dc.mcuMembership[curComp]]
			htbl := dc.dcHuffTbl[compptr.dcTblNo]
			s := dec.huffDecode(htbl)
			var d int32
			if s != 0 {
				d = huffExtend(dec.getBits(uint32(s)), int(s))
			}
			row[0][curComp] = d + int32(1<<uint(dc.dataPrecision-dc.pt-1))
		}
		for col := 1; col < dc.imageWidth; col++ {
			for curComp := 0; curComp < dc.compsInScan; curComp++ {
				compptr := dc.curCompInfo[dc.mcuMembership[curComp]]
				htbl := dc.dcHuffTbl[compptr.dcTblNo]
				s := dec.huffDecode(htbl)
				var d int32
				if s != 0 {
					d = huffExtend(dec.getBits(uint32(s)), int(s))
				}
				row[col][curComp] = d + row[col-1][curComp]
			}
		}
		if dc.restartInRows != 0 {
			dc.restartRowsToGo--
		}
	}

	putRow := func(row [][]int32, rowIdx int) {
		base := rowIdx * width
		i := 0
		for col := 0; col < dc.imageWidth; col++ {
			for comp := 0; comp < dc.compsInScan; comp++ {
				pixels[base+i] = uint16(row[col][comp] << uint(dc.pt))
				i++
			}
		}
	}

	processRestart := func() {
		dec.bitsLeft = 0
		for {
			var c byte
			var ok bool
			for {
				c, ok = r.readByte()
				if !ok {
					return
				}
				if c == 0xff {
					break
				}
			}
			for {
				c, ok = r.readByte()
				if !ok {
					return
				}
				if c != 0xff {
					break
				}
			}
			if c != 0 {
				break
			}
		}
		dc.restartRowsToGo = dc.restartInRows
		dc.nextRestartNum = (dc.nextRestartNum + 1) & 7
	}

	decodeFirstRow(curRow)
	putRow(curRow, 0)
	curRow, prevRow = prevRow, curRow

	for row := 1; row < dc.imageHeight; row++ {
		if dc.restartInRows != 0 {
			if dc.restartRowsToGo == 0 {
				processRestart()
				decodeFirstRow(curRow)
				putRow(curRow, row)
				curRow, prevRow = prevRow, curRow
				continue
			}
			dc.restartRowsToGo--
		}

		for curComp := 0; curComp < dc.compsInScan; curComp++ {
			compptr := dc.curCompInfo[dc.mcuMembership[curComp]]
			htbl := dc.dcHuffTbl[compptr.dcTblNo]
			s := dec.huffDecode(htbl)
			var d int32
			if s != 0 {
				d = huffExtend(dec.getBits(uint32(s)), int(s))
			}
			curRow[0][curComp] = d + prevRow[0][curComp]
		}

		for col := 1; col < dc.imageWidth; col++ {
			for curComp := 0; curComp < dc.compsInScan; curComp++ {
				compptr := dc.curCompInfo[dc.mcuMembership[curComp]]
				htbl := dc.dcHuffTbl[compptr.dcTblNo]
				s := dec.huffDecode(htbl)
				var d int32
				if s != 0 {
					d = huffExtend(dec.getBits(uint32(s)), int(s))
				}
				pred := quickPredict(col, curComp, curRow, prevRow, dc.ss)
				curRow[col][curComp] = d + pred
			}
		}
		putRow(curRow, row)
		curRow, prevRow = prevRow, curRow
	}

	res := &Result{
		Width:         width,
		Height:        dc.imageHeight,
		NumComponents: dc.numComponents,
		DataPrecision: dc.dataPrecision,
		Pixels:        pixels,
	}
	if slices != nil && slices.N > 0 {
		return unslice(res, *slices)
	}
	return res, nil
}

type errNotJPEG struct{}

func (errNotJPEG) Error() string { return "losslessjpeg: missing SOI marker" }

type errTruncated struct{}

func (errTruncated) Error() string { return "losslessjpeg: truncated bitstream" }

type errBadDHT struct{}

func (errBadDHT) Error() string { return "losslessjpeg: malformed DHT segment" }

type errBadDRI struct{}

func (errBadDRI) Error() string { return "losslessjpeg: malformed DRI segment" }

type errBadSOS struct{}

func (errBadSOS) Error() string { return "losslessjpeg: malformed SOS segment" }

type errEmptyImage struct{}

func (errEmptyImage) Error() string { return "losslessjpeg: zero width/height/components" }

type errBadPrecision struct{ p int }

func (errBadPrecision) Error() string { return "losslessjpeg: unsupported data precision" }

type errUnsupportedSOF struct{ marker byte }

func (errUnsupportedSOF) Error() string { return "losslessjpeg: unsupported SOF marker" }

type errExpectedSOS struct{}

func (errExpectedSOS) Error() string { return "losslessjpeg: expected SOS marker" }

type errDownsamplingUnsupported struct{}

func (errDownsamplingUnsupported) Error() string { return "losslessjpeg: chroma downsampling unsupported" }

type errTooManyComponents struct{}

func (errTooManyComponents) Error() string { return "losslessjpeg: too many components for interleaved scan" }

type errUndefinedHuffTable struct{}

func (errUndefinedHuffTable) Error() string { return "losslessjpeg: use of undefined Huffman table" }

type errBadSlices struct{}

func (errBadSlices) Error() string { return "losslessjpeg: slice descriptor does not match decoded plane" }
