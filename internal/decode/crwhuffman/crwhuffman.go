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
// Package crwhuffman implements the Canon CRW block-Huffman RAW
// decompressor, ported from original_source/lib/crwdecompressor.cpp
// (itself adapted from Dave Coffin's dcraw decompress.c). Samples are
// coded in 64-sample blocks: a variable-length Huffman token per sample
// (zero-run-length nibble + bit-length nibble) selected from one of
// three hardcoded table sets, followed by the sample's difference value
// as a fixed-length bitstring relative to the same-color sample two
// positions back.
package crwhuffman

import "github.com/jdtorres/rawcore/rawerr"

// node is one node of a decode tree: branch[0]/branch[1] are non-nil for
// an internal node, leaf holds the byte value at a terminal node.
type node struct {
	branch [2]*node
	leaf   byte
}

// first_tree/second_tree are copied verbatim from init_tables in
// crwdecompressor.cpp: three table sets selected by the CIFF table
// index (clamped to [0,2]).
var firstTree = [3][29]byte{
	{0, 1, 4, 2, 3, 1, 2, 0, 0, 0, 0, 0, 0, 0, 0, 0,
		0x04, 0x03, 0x05, 0x06, 0x02, 0x07, 0x01, 0x08, 0x09, 0x00, 0x0a, 0x0b, 0xff},
	{0, 2, 2, 3, 1, 1, 1, 1, 2, 0, 0, 0, 0, 0, 0, 0,
		0x03, 0x02, 0x04, 0x01, 0x05, 0x00, 0x06, 0x07, 0x09, 0x08, 0x0a, 0x0b, 0xff},
	{0, 0, 6, 3, 1, 1, 2, 0, 0, 0, 0, 0, 0, 0, 0, 0,
		0x06, 0x05, 0x07, 0x04, 0x08, 0x03, 0x09, 0x02, 0x00, 0x0a, 0x01, 0x0b, 0xff},
}

var secondTree = [3][180]byte{
	{0, 2, 2, 2, 1, 4, 2, 1, 2, 5, 1, 1, 0, 0, 0, 139,
		0x03, 0x04, 0x02, 0x05, 0x01, 0x06, 0x07, 0x08,
		0x12, 0x13, 0x11, 0x14, 0x09, 0x15, 0x22, 0x00, 0x21, 0x16, 0x0a, 0xf0,
		0x23, 0x17, 0x24, 0x31, 0x32, 0x18, 0x19, 0x33, 0x25, 0x41, 0x34, 0x42,
		0x35, 0x51, 0x36, 0x37, 0x38, 0x29, 0x79, 0x26, 0x1a, 0x39, 0x56, 0x57,
		0x28, 0x27, 0x52, 0x55, 0x58, 0x43, 0x76, 0x59, 0x77, 0x54, 0x61, 0xf9,
		0x71, 0x78, 0x75, 0x96, 0x97, 0x49, 0xb7, 0x53, 0xd7, 0x74, 0xb6, 0x98,
		0x47, 0x48, 0x95, 0x69, 0x99, 0x91, 0xfa, 0xb8, 0x68, 0xb5, 0xb9, 0xd6,
		0xf7, 0xd8, 0x67, 0x46, 0x45, 0x94, 0x89, 0xf8, 0x81, 0xd5, 0xf6, 0xb4,
		0x88, 0xb1, 0x2a, 0x44, 0x72, 0xd9, 0x87, 0x66, 0xd4, 0xf5, 0x3a, 0xa7,
		0x73, 0xa9, 0xa8, 0x86, 0x62, 0xc7, 0x65, 0xc8, 0xc9, 0xa1, 0xf4, 0xd1,
		0xe9, 0x5a, 0x92, 0x85, 0xa6, 0xe7, 0x93, 0xe8, 0xc1, 0xc6, 0x7a, 0x64,
		0xe1, 0x4a, 0x6a, 0xe6, 0xb3, 0xf1, 0xd3, 0xa5, 0x8a, 0xb2, 0x9a, 0xba,
		0x84, 0xa4, 0x63, 0xe5, 0xc5, 0xf3, 0xd2, 0xc4, 0x82, 0xaa, 0xda, 0xe4,
		0xf2, 0xca, 0x83, 0xa3, 0xa2, 0xc3, 0xea, 0xc2, 0xe2, 0xe3, 0xff, 0xff},
	{0, 2, 2, 1, 4, 1, 4, 1, 3, 3, 1, 0, 0, 0, 0, 140,
		0x02, 0x03, 0x01, 0x04, 0x05, 0x12, 0x11, 0x06,
		0x13, 0x07, 0x08, 0x14, 0x22, 0x09, 0x21, 0x00, 0x23, 0x15, 0x31, 0x32,
		0x0a, 0x16, 0xf0, 0x24, 0x33, 0x41, 0x42, 0x19, 0x17, 0x25, 0x18, 0x51,
		0x34, 0x43, 0x52, 0x29, 0x35, 0x61, 0x39, 0x71, 0x62, 0x36, 0x53, 0x26,
		0x38, 0x1a, 0x37, 0x81, 0x27, 0x91, 0x79, 0x55, 0x45, 0x28, 0x72, 0x59,
		0xa1, 0xb1, 0x44, 0x69, 0x54, 0x58, 0xd1, 0xfa, 0x57, 0xe1, 0xf1, 0xb9,
		0x49, 0x47, 0x63, 0x6a, 0xf9, 0x56, 0x46, 0xa8, 0x2a, 0x4a, 0x78, 0x99,
		0x3a, 0x75, 0x74, 0x86, 0x65, 0xc1, 0x76, 0xb6, 0x96, 0xd6, 0x89, 0x85,
		0xc9, 0xf5, 0x95, 0xb4, 0xc7, 0xf7, 0x8a, 0x97, 0xb8, 0x73, 0xb7, 0xd8,
		0xd9, 0x87, 0xa7, 0x7a, 0x48, 0x82, 0x84, 0xea, 0xf4, 0xa6, 0xc5, 0x5a,
		0x94, 0xa4, 0xc6, 0x92, 0xc3, 0x68, 0xb5, 0xc8, 0xe4, 0xe5, 0xe6, 0xe9,
		0xa2, 0xa3, 0xe3, 0xc2, 0x66, 0x67, 0x93, 0xaa, 0xd4, 0xd5, 0xe7, 0xf8,
		0x88, 0x9a, 0xd7, 0x77, 0xc4, 0x64, 0xe2, 0x98, 0xa5, 0xca, 0xda, 0xe8,
		0xf3, 0xf6, 0xa9, 0xb2, 0xb3, 0xf2, 0xd2, 0x83, 0xba, 0xd3, 0xff, 0xff},
	{0, 0, 6, 2, 1, 3, 3, 2, 5, 1, 2, 2, 8, 10, 0, 117,
		0x04, 0x05, 0x03, 0x06, 0x02, 0x07, 0x01, 0x08,
		0x09, 0x12, 0x13, 0x14, 0x11, 0x15, 0x0a, 0x16, 0x17, 0xf0, 0x00, 0x22,
		0x21, 0x18, 0x23, 0x19, 0x24, 0x32, 0x31, 0x25, 0x33, 0x38, 0x37, 0x34,
		0x35, 0x36, 0x39, 0x79, 0x57, 0x58, 0x59, 0x28, 0x56, 0x78, 0x27, 0x41,
		0x29, 0x77, 0x26, 0x42, 0x76, 0x99, 0x1a, 0x55, 0x98, 0x97, 0xf9, 0x48,
		0x54, 0x96, 0x89, 0x47, 0xb7, 0x49, 0xfa, 0x75, 0x68, 0xb6, 0x67, 0x69,
		0xb9, 0xb8, 0xd8, 0x52, 0xd7, 0x88, 0xb5, 0x74, 0x51, 0x46, 0xd9, 0xf8,
		0x3a, 0xd6, 0x87, 0x45, 0x7a, 0x95, 0xd5, 0xf6, 0x86, 0xb4, 0xa9, 0x94,
		0x53, 0x2a, 0xa8, 0x43, 0xf5, 0xf7, 0xd4, 0x66, 0xa7, 0x5a, 0x44, 0x8a,
		0xc9, 0xe8, 0xc8, 0xe7, 0x9a, 0x6a, 0x73, 0x4a, 0x61, 0xc7, 0xf4, 0xc6,
		0x65, 0xe9, 0x72, 0xe6, 0x71, 0x91, 0x93, 0xa6, 0xda, 0x92, 0x85, 0x62,
		0xf3, 0xc5, 0xb2, 0xa4, 0x84, 0xba, 0x64, 0xa5, 0xb3, 0xd2, 0x81, 0xe5,
		0xd3, 0xaa, 0xc4, 0xca, 0xf2, 0xb1, 0xe4, 0xd1, 0x83, 0x63, 0xea, 0xc3,
		0xe2, 0x82, 0xf1, 0xa3, 0xc2, 0xa1, 0xc1, 0xe3, 0xa2, 0xe1, 0xff, 0xff},
}

// treeBuilder mirrors make_decoder's bump allocator into a fixed-size
// array (never grown, so a *node handed out earlier stays valid for the
// life of the tree -- unlike a growable slice, which may reallocate and
// strand stale pointers).
type treeBuilder struct {
	nodes []node
	next  int
	leaf  int
}

func buildDecoder(source []byte) *node {
	b := &treeBuilder{nodes: make([]node, 1024)}
	b.alloc()
	return b.makeDecoder(0, source, 0)
}

func (b *treeBuilder) alloc() int {
	idx := b.next
	b.next++
	return idx
}

func (b *treeBuilder) makeDecoder(destIdx int, source []byte, level int) *node {
	if level == 0 {
		b.leaf = 0
	}

	i, next := 0, 0
	for i <= b.leaf && next < 16 {
		i += int(source[next])
		next++
	}

	dest := &b.nodes[destIdx]
	if i > b.leaf {
		if level < next {
			leftIdx := b.alloc()
			dest.branch[0] = &b.nodes[leftIdx]
			b.makeDecoder(leftIdx, source, level+1)

			rightIdx := b.alloc()
			dest.branch[1] = &b.nodes[rightIdx]
			b.makeDecoder(rightIdx, source, level+1)
		} else {
			dest.leaf = source[16+b.leaf]
			b.leaf++
		}
	}
	return dest
}

// bitReader replays getbits: an MSB-first bit buffer refilled from data,
// skipping the mandatory 0x00 stuffed after every literal 0xFF byte.
type bitReader struct {
	data  []byte
	pos   int
	buf   uint32
	vbits int
}

func (r *bitReader) fill() {
	for r.vbits < 25 {
		if r.pos >= len(r.data) {
			return
		}
		c := r.data[r.pos]
		r.pos++
		r.buf = (r.buf << 8) + uint32(c)
		if c == 0xff {
			if r.pos < len(r.data) {
				r.pos++
			}
		}
		r.vbits += 8
	}
}

func (r *bitReader) get(nbits int) uint32 {
	if nbits == 0 {
		return 0
	}
	ret := (r.buf << uint(32-r.vbits)) >> uint(32-nbits)
	r.vbits -= nbits
	r.fill()
	return ret
}

// Decompress reconstructs a w x h, 10-bit-per-sample raw plane from a
// Canon CRW image-data blob. data is the whole compressed stream
// starting at its own offset 0 (the 514-byte preamble and the optional
// low-bits sideband live inside it at fixed offsets, as dcraw's
// decompress() assumes). tableIdx selects one of the three hardcoded
// table sets (clamped to [0,2], per the CIFF table tag).
func Decompress(data []byte, w, h int, tableIdx int) ([]uint16, error) {
	if w <= 0 || h <= 0 {
		return nil, rawerr.InvalidParamErr("crwhuffman.Decompress", errBadDims{w, h})
	}
	if tableIdx > 2 {
		tableIdx = 2
	}
	if tableIdx < 0 {
		tableIdx = 0
	}

	firstDecode := buildDecoder(firstTree[tableIdx][:])
	secondDecode := buildDecoder(secondTree[tableIdx][:])

	lowbits := 1
	if !canonHasLowBits(data) {
		lowbits = 0
	}

	start := 514 + lowbits*h*w/4
	if start > len(data) {
		return nil, rawerr.Decode("crwhuffman.Decompress", errShortData{})
	}

	br := &bitReader{data: data, pos: start}
	br.fill()

	out := make([]uint16, w*h)
	carry := 0
	base := [2]int{0, 0}
	column := 0

	total := w * h
	for column < total {
		var diffbuf [64]int
		decode := firstDecode

		for i := 0; i < 64; i++ {
			d := decode
			for d.branch[0] != nil {
				d = d.branch[br.get(1)]
			}
			leaf := d.leaf
			decode = secondDecode

			if leaf == 0 && i != 0 {
				break
			}
			if leaf == 0xff {
				continue
			}
			i += int(leaf >> 4)
			length := int(leaf & 15)
			if length == 0 {
				continue
			}
			diff := int(br.get(length))
			if diff&(1<<uint(length-1)) == 0 {
				diff -= (1 << uint(length)) - 1
			}
			if i < 64 {
				diffbuf[i] = diff
			}
		}
		diffbuf[0] += carry
		carry = diffbuf[0]

		var outbuf [64]uint16
		for i := 0; i < 64; i++ {
			if column%w == 0 {
				base[0], base[1] = 512, 512
			}
			column++
			base[i&1] += diffbuf[i]
			outbuf[i] = uint16(base[i&1])
		}

		if lowbits != 0 {
			blockStart := (column - 64) / 4
			if blockStart >= 0 && blockStart+16 <= len(data) {
				i := 0
				for j := 0; j < 64/4; j++ {
					c := data[blockStart+j]
					for r := 0; r < 8; r += 2 {
						var next uint16
						if i < 63 {
							next = outbuf[i+1]
						}
						outbuf[i] = (next << 2) + uint16((c>>uint(r))&3)
						i++
					}
				}
			}
		}

		copy(out[column-64:column], outbuf[:])
	}
	return out, nil
}

// canonHasLowBits replays canon_has_lowbits: it scans bytes 514 up to
// 0x4000-26 of the stream. The first 0xFF followed by a non-zero byte
// means the low-bits sideband is present; if every 0xFF seen is
// followed by 0x00 it is absent; with no 0xFF at all it is present.
func canonHasLowBits(data []byte) bool {
	const scanLen = 0x4000 - 26
	limit := scanLen
	if limit > len(data) {
		limit = len(data)
	}
	ret := true
	for i := 514; i < limit-1; i++ {
		if data[i] == 0xff {
			if data[i+1] != 0 {
				return true
			}
			ret = false
		}
	}
	return ret
}

type errBadDims struct{ w, h int }

func (errBadDims) Error() string { return "crwhuffman: invalid dimensions" }

type errShortData struct{}

func (errShortData) Error() string { return "crwhuffman: data too short for preamble/lowbits offset" }
