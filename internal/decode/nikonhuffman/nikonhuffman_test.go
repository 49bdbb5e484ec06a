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

package nikonhuffman

import "testing"

// walkBits decodes a literal bit string (MSB-first) directly against a
// flattened Node table without going through a bit reader, to check the
// table layout against the documented codes.
func walkBits(table []Node, code string) int {
	cur := 0
	for _, c := range code {
		if table[cur].IsLeaf {
			break
		}
		if c == '1' {
			cur = table[cur].Data
		} else {
			cur++
		}
	}
	return table[cur].Data
}

func TestLossy12BitMatchesDocumentedCodes(t *testing.T) {
	cases := map[string]int{
		"00":         5,
		"010":        4,
		"011":        3,
		"100":        6,
		"101":        2,
		"110":        7,
		"1110":       1,
		"11110":      0,
		"111110":     8,
		"1111110":    9,
		"11111110":   11,
		"111111110":  10,
		"1111111110": 12,
		"1111111111": 0,
	}
	for code, want := range cases {
		if got := walkBits(Lossy12Bit, code); got != want {
			t.Fatalf("code %q: got %d, want %d", code, got, want)
		}
	}
}

func TestLossLess14BitMatchesDocumentedCodes(t *testing.T) {
	cases := map[string]int{
		"00":         7,
		"010":        6,
		"011":        8,
		"100":        5,
		"101":        9,
		"1100":       4,
		"1101":       10,
		"11100":      3,
		"11101":      11,
		"111100":     12,
		"111101":     2,
		"111110":     0,
		"1111110":    1,
		"11111110":   13,
		"11111111":   14,
	}
	for code, want := range cases {
		if got := walkBits(LossLess14Bit, code); got != want {
			t.Fatalf("code %q: got %d, want %d", code, got, want)
		}
	}
}

func TestCfaIteratorSeedsFromVpred(t *testing.T) {
	// All-zero bitstream: every decoded token is whatever symbol "00"
	// maps to in Lossy12Bit (5), so length=5, shl=0; with zero data bits
	// the difference is negative (top bit of the 5-bit field clear).
	buf := make([]byte, 64)
	diffs := NewDiffIterator(Lossy12Bit, buf)
	init := [2][2]uint16{{100, 200}, {300, 400}}
	cfa := NewCfaIterator(diffs, 4, init)

	first := cfa.Get() // row 0, column 0 -> predicts against vpred[0][0]
	if first == 0 {
		t.Fatal("expected a nonzero reconstructed sample")
	}
	second := cfa.Get() // row 0, column 1 -> predicts against vpred[0][1]
	if second == first {
		t.Fatal("expected distinct vpred phases to diverge")
	}
}

func TestDecompressProducesFullPlane(t *testing.T) {
	buf := make([]byte, 256)
	out := Decompress(buf, 4, 4, Lossy12Bit, [2][2]uint16{{0, 0}, {0, 0}})
	if len(out) != 16 {
		t.Fatalf("len(out) = %d, want 16", len(out))
	}
}
