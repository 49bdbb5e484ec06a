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

package olympus

import "testing"

func TestDecompressAllZeroBitstreamYieldsAllZeroPlane(t *testing.T) {
	// An all-zero bitstream (including the padding the reader synthesizes
	// past end-of-buffer) decodes to an all-zero plane: every carry/diff
	// term stays zero and the first-row/first-column predictors are zero.
	buf := make([]byte, 7) // header only; reader zero-pads past this
	got, err := Decompress(buf, 4, 4)
	if err != nil {
		t.Fatalf("Decompress: %v", err)
	}
	if len(got) != 16 {
		t.Fatalf("len(got) = %d, want 16", len(got))
	}
	for i, v := range got {
		if v != 0 {
			t.Fatalf("got[%d] = %d, want 0", i, v)
		}
	}
}

func TestDecompressRejectsShortBuffer(t *testing.T) {
	if _, err := Decompress(make([]byte, 3), 4, 4); err == nil {
		t.Fatal("expected error for buffer shorter than the 7-byte header")
	}
}

func TestDecompressRejectsOddWidth(t *testing.T) {
	if _, err := Decompress(make([]byte, 20), 5, 4); err == nil {
		t.Fatal("expected error for odd width")
	}
}

func TestBitTableHighBitPositions(t *testing.T) {
	// 0b100000000000 (bit 11 set) -> high 0; 0b000000000001 (bit 0) -> high 11.
	if bittable[0b100000000000] != 0 {
		t.Fatalf("bittable[bit11] = %d, want 0", bittable[0b100000000000])
	}
	if bittable[0b000000000001] != 11 {
		t.Fatalf("bittable[bit0] = %d, want 11", bittable[0b000000000001])
	}
	if bittable[0] != 12 {
		t.Fatalf("bittable[0] = %d, want 12", bittable[0])
	}
}
