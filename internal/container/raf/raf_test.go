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

package raf

import (
	"testing"

	"github.com/jdtorres/rawcore/internal/bytestream"
)

func be32(v uint32) []byte { return []byte{byte(v >> 24), byte(v >> 16), byte(v >> 8), byte(v)} }

func buildTinyRAF() []byte {
	var b []byte
	b = append(b, magic...)                 // 16 bytes
	b = append(b, []byte("0201\x00\x00\x00\x00\x00\x00\x00\x00")...) // 12 bytes of unvalidated header tail -> 28 total
	model := make([]byte, 32)
	copy(model, "FinePix X100\x00")
	b = append(b, model...)
	b = append(b, be32(0x0132)...) // version
	b = append(b, make([]byte, 20)...) // reserved
	b = append(b, be32(200)...)  // jpegOffset
	b = append(b, be32(50)...)   // jpegLength
	b = append(b, be32(300)...)  // metaOffset
	b = append(b, be32(20)...)   // metaLength
	b = append(b, be32(400)...)  // cfaOffset
	b = append(b, be32(1000)...) // cfaLength
	for len(b) < 1500 {
		b = append(b, 0)
	}
	return b
}

func TestOpenParsesHeader(t *testing.T) {
	s := bytestream.NewMemStream(buildTinyRAF())
	c, err := Open(s)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if c.Model != "FinePix X100" {
		t.Fatalf("Model = %q, want %q", c.Model, "FinePix X100")
	}
	if c.Version != 0x0132 {
		t.Fatalf("Version = %#x, want 0x132", c.Version)
	}
	want := OffsetDirectory{200, 50, 300, 20, 400, 1000}
	if c.Directory != want {
		t.Fatalf("Directory = %+v, want %+v", c.Directory, want)
	}
}

func TestCloneAccessorsRespectZeroOffsets(t *testing.T) {
	s := bytestream.NewMemStream(buildTinyRAF())
	c, err := Open(s)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if _, ok, err := c.JpegPreview(); err != nil || !ok {
		t.Fatalf("JpegPreview: ok=%v err=%v", ok, err)
	}
	c.Directory.JpegOffset = 0
	if _, ok, err := c.JpegPreview(); err != nil || ok {
		t.Fatalf("JpegPreview with zero offset: ok=%v err=%v, want false,nil", ok, err)
	}
}

func TestOpenRejectsBadMagic(t *testing.T) {
	s := bytestream.NewMemStream(make([]byte, 200))
	if _, err := Open(s); err == nil {
		t.Fatal("expected error for missing RAF magic")
	}
}
