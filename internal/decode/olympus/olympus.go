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
// Package olympus implements the Olympus ORF adaptive-predictor RAW
// decompressor, ported from RawSpeed via
// original_source/lib/olympusdecompressor.cpp's decompressOlympus. Two
// interleaved sample streams (even/odd columns) each carry their own
// adaptive carry state and a predictor chosen from the west and
// two-rows-up neighbours.
package olympus

import (
	"github.com/jdtorres/rawcore/internal/decode/msbbits"
	"github.com/jdtorres/rawcore/rawerr"
)

// bittable[i] is the position (0..11, or 12 if none) of the highest set
// bit within the low 12 bits of i, scanned from bit 11 down to bit 0.
var bittable = buildBitTable()

func buildBitTable() [4096]int8 {
	var t [4096]int8
	for i := 0; i < 4096; i++ {
		high := 12
		for h := 0; h < 12; h++ {
			if (i>>(11-h))&1 != 0 {
				high = h
				break
			}
		}
		t[i] = int8(high)
	}
	return t
}

// Decompress reconstructs a w x h, 12-bit-per-sample raw plane from the
// Olympus adaptive-predictor bitstream in buffer. Output is packed as w*h
// uint16 samples in row-major order.
func Decompress(buffer []byte, w, h int) ([]uint16, error) {
	const headerSkip = 7
	if len(buffer) < headerSkip {
		return nil, rawerr.Decode("olympus.Decompress", errShortBuffer{})
	}
	if w <= 0 || h <= 0 || w%2 != 0 {
		return nil, rawerr.InvalidParamErr("olympus.Decompress", errBadDims{w, h})
	}

	data := make([]uint16, w*h)
	pitch := w // samples per row in data16 terms (pitch*2 bytes, halved for index math)

	bits := msbbits.New(buffer[headerSkip:])

	var wo, nw [2]int
	var acarry [2][3]int

	for y := 0; y < h; y++ {
		acarry = [2][3]int{}
		destOff := y * pitch

		for x := 0; x < w/2; x++ {
			col := x * 2
			for p := 0; p < 2; p++ {
				i := 0
				if acarry[p][2] < 3 {
					i = 2
				}
				nbits := 2 + i
				for uint16(acarry[p][0])>>uint(nbits+i) != 0 {
					nbits++
				}

				b := bits.Peek(15)
				sign := 0
				if (b>>14)&1 != 0 {
					sign = -1
				}
				low := int(b>>12) & 3
				high := int(bittable[b&4095])

				skipN := high + 1 + 3
				if skipN > 15 {
					skipN = 15
				}
				bits.Skip(uint(skipN))

				if high == 12 {
					high = int(bits.Get(uint(16-nbits))) >> 1
				}

				acarry[p][0] = (high << uint(nbits)) | int(bits.Get(uint(nbits)))
				diff := (acarry[p][0] ^ sign) + acarry[p][1]
				acarry[p][1] = (diff*3 + acarry[p][1]) >> 5
				if acarry[p][0] > 16 {
					acarry[p][2] = 0
				} else {
					acarry[p][2]++
				}

				var pred int
				if y < 2 || col < 2 {
					switch {
					case y < 2 && col < 2:
						pred = 0
					case y < 2:
						pred = wo[p]
					default:
						pred = int(data[destOff-pitch+col+p])
						nw[p] = pred
					}
					v := pred + ((diff << 2) | low)
					data[destOff+col+p] = uint16(v)
					wo[p] = v
				} else {
					n := int(data[destOff-pitch+col+p])
					if (wo[p] < nw[p] && nw[p] < n) || (n < nw[p] && nw[p] < wo[p]) {
						if abs(wo[p]-nw[p]) > 32 || abs(n-nw[p]) > 32 {
							pred = wo[p] + n - nw[p]
						} else {
							pred = (wo[p] + n) >> 1
						}
					} else if abs(wo[p]-nw[p]) > abs(n-nw[p]) {
						pred = wo[p]
					} else {
						pred = n
					}

					v := pred + ((diff << 2) | low)
					data[destOff+col+p] = uint16(v)
					wo[p] = v
					nw[p] = n
				}
			}
		}
	}
	return data, nil
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

type errShortBuffer struct{}

func (errShortBuffer) Error() string { return "olympus: buffer too short for 7-byte header" }

type errBadDims struct{ w, h int }

func (e errBadDims) Error() string {
	return "olympus: invalid dimensions (width must be even and positive)"
}
