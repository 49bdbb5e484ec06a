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
// Package unpack12 converts tightly-packed 12-bit big-endian samples
// into 16-bit host-endian values, per spec 4.14. It is a direct port of
// the shape of original_source/lib/unpack.cpp's Unpack::unpack_be12to16:
// three input bytes yield two 12-bit samples, with an extra pad byte
// every 15 bytes for the Nikon-packed variant.
package unpack12

import "github.com/jdtorres/rawcore/rawerr"

// BlockSize returns the number of packed bytes one row of w samples
// occupies. nikonPack selects the variant with one pad byte every 16
// input bytes (10 samples per 16 bytes instead of 2 samples per 3
// bytes).
func BlockSize(w int, nikonPack bool) int {
	if nikonPack {
		return (w/2)*3 + w/10
	}
	return (w / 2) * 3
}

// Unpack12to16 reads a 12-bit big-endian packed byte stream and returns
// the unpacked 16-bit samples in host order. When nikonPack is true, one
// padding byte is skipped after every 15 payload bytes (each 16-byte
// input block yields 10 samples); otherwise every 3 input bytes yield 2
// samples with no padding.
func Unpack12to16(src []byte, nikonPack bool) ([]uint16, error) {
	pad := 0
	if nikonPack {
		pad = 1
	}
	groupLen := 15 + pad
	n := len(src) / groupLen
	rest := len(src) % groupLen

	if nikonPack && len(src)%16 != 0 && n > 0 {
		return nil, rawerr.InvalidParamErr("unpack12.Unpack12to16", errMisaligned(len(src)))
	}
	if rest%3 != 0 {
		return nil, rawerr.InvalidParamErr("unpack12.Unpack12to16", errMisaligned(len(src)))
	}

	out := make([]uint16, 0, n*10+(rest/3)*2)
	pos := 0
	for i := 0; i <= n; i++ {
		triples := 5
		if i == n {
			triples = rest / 3
		}
		for j := 0; j < triples; j++ {
			if pos+3 > len(src) {
				return nil, rawerr.InvalidParamErr("unpack12.Unpack12to16", errShort())
			}
			b0, b1, b2 := src[pos], src[pos+1], src[pos+2]
			pos += 3
			t := uint32(b0)<<16 | uint32(b1)<<8 | uint32(b2)
			out = append(out, uint16((t>>12)&0xFFF))
			out = append(out, uint16(t&0xFFF))
		}
		if pad != 0 {
			pos += pad
		}
	}
	return out, nil
}

func errMisaligned(size int) error {
	return misalignedErr{size}
}

type misalignedErr struct{ size int }

func (e misalignedErr) Error() string {
	return "unpack12: source length not aligned to block size: " + itoa(e.size)
}

func errShort() error { return shortErr{} }

type shortErr struct{}

func (shortErr) Error() string { return "unpack12: source exhausted mid-triple" }

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}
