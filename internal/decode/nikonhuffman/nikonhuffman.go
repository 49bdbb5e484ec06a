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
// Package nikonhuffman implements Nikon NEF's quantized-Huffman CFA
// decompressor, ported from original_source/lib/{huffman,
// nefdiffiterator,nefcfaiterator}.cpp: a small binary Huffman decoder
// over one of three hardcoded tables yields a (length,shift) coded
// token per sample, decoded into a signed difference, which is then
// un-predicted against either the vertical (first two columns) or
// horizontal (everything else) neighbour.
package nikonhuffman

import "github.com/jdtorres/rawcore/internal/decode/msbbits"

// Node is one entry of the flattened Huffman decode table: a non-leaf
// node's Data is the index to jump to on a 1 bit (a 0 bit always falls
// through to the next array slot); a leaf's Data is the decoded symbol.
type Node struct {
	IsLeaf bool
	Data   int
}

// Lossy12Bit, Lossy14Bit and LossLess14Bit are the three Nikon NEF
// compression variants, copied verbatim (as flattened binary-tree
// tables) from nefdiffiterator.cpp.
var Lossy12Bit = []Node{
	{false, 6}, {false, 3}, {true, 5}, {false, 5}, {true, 4}, {true, 3},
	{false, 10}, {false, 9}, {true, 6}, {true, 2}, {false, 12}, {true, 7},
	{false, 14}, {true, 1}, {false, 16}, {true, 0}, {false, 18}, {true, 8},
	{false, 20}, {true, 9}, {false, 22}, {true, 11}, {false, 24}, {true, 10},
	{false, 26}, {true, 12}, {true, 0},
}

var Lossy14Bit = []Node{
	{false, 6}, {false, 3}, {true, 5}, {false, 5}, {true, 6}, {true, 4},
	{false, 10}, {false, 9}, {true, 7}, {true, 8}, {false, 14}, {false, 13},
	{true, 3}, {true, 9}, {false, 18}, {false, 17}, {true, 2}, {true, 1},
	{false, 22}, {false, 21}, {true, 0}, {true, 10}, {false, 24}, {true, 11},
	{false, 26}, {true, 12}, {false, 28}, {true, 13}, {true, 14},
}

var LossLess14Bit = []Node{
	{false, 6}, {false, 3}, {true, 7}, {false, 5}, {true, 6}, {true, 8},
	{false, 10}, {false, 9}, {true, 5}, {true, 9}, {false, 14}, {false, 13},
	{true, 4}, {true, 10}, {false, 18}, {false, 17}, {true, 3}, {true, 11},
	{false, 22}, {false, 21}, {true, 12}, {true, 2}, {false, 24}, {true, 0},
	{false, 26}, {true, 1}, {false, 28}, {true, 13}, {true, 14},
}

func decode(table []Node, bits *msbbits.Reader) int {
	cur := 0
	for !table[cur].IsLeaf {
		if bits.Get(1) != 0 {
			cur = table[cur].Data
		} else {
			cur++
		}
	}
	return table[cur].Data
}

// DiffIterator decodes the signed per-sample difference stream using
// one of the three hardcoded tables.
type DiffIterator struct {
	bits  *msbbits.Reader
	table []Node
}

// NewDiffIterator returns a DiffIterator reading from buf using table
// (one of Lossy12Bit, Lossy14Bit, LossLess14Bit).
func NewDiffIterator(table []Node, buf []byte) *DiffIterator {
	return &DiffIterator{bits: msbbits.New(buf), table: table}
}

// Get decodes and returns the next signed difference.
func (it *DiffIterator) Get() int {
	t := decode(it.table, it.bits)
	length := t & 15
	shl := uint(t >> 4)

	if length == 0 {
		return 0
	}

	bits := int(it.bits.Get(uint(length) - shl))
	diff := ((bits<<1 + 1) << shl) >> 1
	if diff&(1<<uint(length-1)) == 0 {
		extra := 1
		if shl != 0 {
			extra = 0
		}
		diff -= (1 << uint(length)) - extra
	}
	return diff
}

// CfaIterator un-predicts the DiffIterator's difference stream into
// 16-bit CFA sample values: the first two columns of each row predict
// against the vertical neighbour two rows up (per Bayer phase), every
// other column predicts against the previous sample of the same phase.
type CfaIterator struct {
	diffs   *DiffIterator
	columns int
	row     int
	column  int
	vpred   [2][2]uint16
	hpred   [2]uint16
}

// NewCfaIterator returns a CfaIterator over rows x columns samples,
// seeded with the per-IFD vpred[2][2] initial values read from the
// Nikon MakerNote.
func NewCfaIterator(diffs *DiffIterator, columns int, init [2][2]uint16) *CfaIterator {
	return &CfaIterator{
		diffs:   diffs,
		columns: columns,
		vpred:   init,
		hpred:   [2]uint16{0x148, 0x148},
	}
}

// Get decodes the next sample in row-major order.
func (it *CfaIterator) Get() uint16 {
	diff := it.diffs.Get()
	var ret uint16
	if it.column < 2 {
		ret = uint16(int(it.vpred[it.row&1][it.column]) + diff)
		it.vpred[it.row&1][it.column] = ret
	} else {
		ret = uint16(int(it.hpred[it.column&1]) + diff)
	}
	it.hpred[it.column&1] = ret

	it.column++
	if it.column == it.columns {
		it.column = 0
		it.row++
	}
	return ret
}

// Decompress runs a full w x h plane through a DiffIterator/CfaIterator
// pair and returns the reconstructed samples in row-major order.
func Decompress(buf []byte, w, h int, table []Node, vpredInit [2][2]uint16) []uint16 {
	diffs := NewDiffIterator(table, buf)
	cfa := NewCfaIterator(diffs, w, vpredInit)
	out := make([]uint16, w*h)
	for i := range out {
		out[i] = cfa.Get()
	}
	return out
}
