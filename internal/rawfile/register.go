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

package rawfile

// registerBuiltins wires every format's factory into r, mirroring the
// teacher's package-level RawParsers map populated by each parser
// file's init() (jeremytorres-rawparser/{cr2parser,nefparser}.go),
// generalized to a RawFileType-keyed Registry per
// original_source/lib/rawfile.cpp's RawFileFactory::registerType calls
// in RawFile::init.
func registerBuiltins(r *Registry) {
	r.Register(TypeCR2, openCR2)
	r.Register(TypeCR3, openCR3)
	r.Register(TypeCRW, openCRW)
	r.Register(TypeDNG, openDNG)
	r.Register(TypeNEF, openNEF)
	r.Register(TypeARW, openARW)
	r.Register(TypeORF, openORF)
	r.Register(TypeRW2, openRW2)
	r.Register(TypeRAF, openRAF)
	r.Register(TypeMRW, openMRW)
	r.Register(TypePEF, openPEF)
	r.Register(TypeERF, openERF)
}
