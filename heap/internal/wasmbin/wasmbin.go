// Package wasmbin encodes the minimal WebAssembly binaries the heap needs.
package wasmbin

import "bytes"

const (
	magic   = 0x6d736100 // "\0asm"
	version = 1

	sectionMemory = 5
	sectionExport = 7

	exportKindMemory = 0x02

	limitsHasMax = 0x01
)

// PageSize is the size of a WebAssembly memory page.
const PageSize = 65536

// WriteLEB128u writes an unsigned LEB128 value
func WriteLEB128u(w *bytes.Buffer, v uint32) {
	for {
		b := byte(v & 0x7f)
		v >>= 7
		if v != 0 {
			b |= 0x80
		}
		w.WriteByte(b)
		if v == 0 {
			break
		}
	}
}

func writeU32LE(w *bytes.Buffer, v uint32) {
	w.Write([]byte{byte(v), byte(v >> 8), byte(v >> 16), byte(v >> 24)})
}

func writeName(w *bytes.Buffer, name string) {
	WriteLEB128u(w, uint32(len(name)))
	w.WriteString(name)
}

func writeSection(w *bytes.Buffer, id byte, data []byte) {
	w.WriteByte(id)
	WriteLEB128u(w, uint32(len(data)))
	w.Write(data)
}

func writeLimits(w *bytes.Buffer, minPages uint32, maxPages *uint32) {
	var flags byte
	if maxPages != nil {
		flags |= limitsHasMax
	}
	w.WriteByte(flags)
	WriteLEB128u(w, minPages)
	if maxPages != nil {
		WriteLEB128u(w, *maxPages)
	}
}

// MemoryModule encodes a module that defines one linear memory of min
// pages, optionally bounded by max pages, and exports it under name.
func MemoryModule(name string, minPages uint32, maxPages *uint32) []byte {
	var w bytes.Buffer
	writeU32LE(&w, magic)
	writeU32LE(&w, version)

	var mem bytes.Buffer
	WriteLEB128u(&mem, 1)
	writeLimits(&mem, minPages, maxPages)
	writeSection(&w, sectionMemory, mem.Bytes())

	var exp bytes.Buffer
	WriteLEB128u(&exp, 1)
	writeName(&exp, name)
	exp.WriteByte(exportKindMemory)
	WriteLEB128u(&exp, 0)
	writeSection(&w, sectionExport, exp.Bytes())

	return w.Bytes()
}
