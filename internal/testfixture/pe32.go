// Package testfixture builds minimal synthetic PE32 images for the tests of
// the pe and cmd/sysextract packages, grounded
// on the teacher's own writeU16/writeU32 byte-assembly style
// (codegen_pe_writer.go's WritePEHeader).
package testfixture

import "encoding/binary"

// SectionSpec describes one section to bake into the fixture image.
type SectionSpec struct {
	Name            string
	Characteristics uint32
	Data            []byte
}

// ImportFunc is one imported symbol, named or by ordinal.
type ImportFunc struct {
	Name      string
	Ordinal   uint16
	ByOrdinal bool
}

// ImportSpec groups the functions imported from one DLL.
type ImportSpec struct {
	DLL   string
	Funcs []ImportFunc
}

// ExportSpec is one named export.
type ExportSpec struct {
	Name string
	RVA  uint32
}

// PE32 describes the fixture to build.
type PE32 struct {
	ImageBase uint32
	EntryRVA  uint32
	Sections  []SectionSpec
	Imports   []ImportSpec
	Exports   []ExportSpec
}

const (
	fileAlign    = 0x200
	sectionAlign = 0x1000
)

type buf struct {
	b []byte
}

func (w *buf) u8(v byte)    { w.b = append(w.b, v) }
func (w *buf) u16(v uint16) { w.b = binary.LittleEndian.AppendUint16(w.b, v) }
func (w *buf) u32(v uint32) { w.b = binary.LittleEndian.AppendUint32(w.b, v) }
func (w *buf) bytes(v []byte) {
	w.b = append(w.b, v...)
}
func (w *buf) zero(n int) { w.b = append(w.b, make([]byte, n)...) }
func (w *buf) at() uint32 { return uint32(len(w.b)) }
func (w *buf) padTo(n uint32) {
	for uint32(len(w.b)) < n {
		w.b = append(w.b, 0)
	}
}

func alignUp(v, align uint32) uint32 {
	if v%align == 0 {
		return v
	}
	return v + (align - v%align)
}

func nameBytes(name string) [8]byte {
	var out [8]byte
	copy(out[:], name)
	return out
}

// Build assembles a complete PE32 image as a byte slice.
func Build(spec PE32) []byte {
	// Layout: DOS header+stub, PE sig, COFF header, optional header,
	// section headers, then one raw-data blob per section (file-aligned),
	// import directory laid out inside a synthetic ".idata" section if
	// imports are requested, export directory inside a synthetic ".edata"
	// section if exports are requested.
	sections := append([]SectionSpec{}, spec.Sections...)

	var idataImportDirRVA, idataSize uint32
	var idataBytes []byte
	if len(spec.Imports) > 0 {
		idataBytes, idataImportDirRVA = buildImportDirectory(spec.Imports, sectionRVA(len(sections)))
		idataSize = uint32(len(idataBytes))
		sections = append(sections, SectionSpec{Name: ".idata", Characteristics: 0x40000040, Data: idataBytes})
	}

	var edataExportDirRVA, edataSize uint32
	var edataBytes []byte
	if len(spec.Exports) > 0 {
		edataBytes, edataExportDirRVA = buildExportDirectory(spec.Exports, sectionRVA(len(sections)))
		edataSize = uint32(len(edataBytes))
		sections = append(sections, SectionSpec{Name: ".edata", Characteristics: 0x40000040, Data: edataBytes})
	}

	numSections := len(sections)
	const optionalHeaderSize = 96 + 16*8 // fixed PE32 fields + 16 data directories
	headerSize := alignUp(uint32(dosHeaderAndStubSize+4+20+optionalHeaderSize+numSections*40), fileAlign)

	// Assign raw offsets/addresses up front.
	type laidOut struct {
		spec      SectionSpec
		rva, size uint32
		rawOff    uint32
		rawSize   uint32
	}
	laid := make([]laidOut, numSections)
	rawCursor := headerSize
	rvaCursor := sectionAlign
	for i, s := range sections {
		rawSize := alignUp(uint32(len(s.Data)), fileAlign)
		laid[i] = laidOut{
			spec:    s,
			rva:     uint32(rvaCursor),
			size:    uint32(len(s.Data)),
			rawOff:  rawCursor,
			rawSize: rawSize,
		}
		rawCursor += rawSize
		rvaCursor += int(alignUp(uint32(len(s.Data)), sectionAlign))
	}

	w := &buf{}
	// DOS header
	w.u16(0x5A4D)
	w.zero(58)
	w.u32(dosHeaderAndStubSize) // e_lfanew
	w.bytes(make([]byte, dosHeaderAndStubSize-int(w.at())))

	// PE signature
	w.u32(0x00004550)

	// COFF header
	w.u16(0x014C) // i386
	w.u16(uint16(numSections))
	w.u32(0) // TimeDateStamp
	w.u32(0) // PointerToSymbolTable
	w.u32(0) // NumberOfSymbols
	w.u16(optionalHeaderSize) // SizeOfOptionalHeader (PE32, including 16 data directories)
	w.u16(0x0102) // Characteristics: EXECUTABLE_IMAGE | 32BIT_MACHINE

	// Optional header (PE32, 96 bytes to data directories start, matching
	// the field layout the loader expects)
	w.u16(0x010B) // Magic PE32
	w.u8(0)       // MajorLinkerVersion
	w.u8(0)       // MinorLinkerVersion
	w.u32(0)      // SizeOfCode
	w.u32(0)      // SizeOfInitializedData
	w.u32(0)      // SizeOfUninitializedData
	w.u32(spec.EntryRVA)
	w.u32(sectionAlign) // BaseOfCode
	w.u32(sectionAlign) // BaseOfData (PE32 only)
	w.u32(spec.ImageBase)
	w.u32(sectionAlign) // SectionAlignment
	w.u32(fileAlign)    // FileAlignment
	w.u16(0)            // MajorOSVersion
	w.u16(0)
	w.u16(0) // MajorImageVersion
	w.u16(0)
	w.u16(0) // MajorSubsystemVersion
	w.u16(0)
	w.u32(0)                       // Win32VersionValue
	w.u32(rawCursor)               // SizeOfImage (approx, unused by loader)
	w.u32(headerSize)              // SizeOfHeaders
	w.u32(0)                       // CheckSum
	w.u16(1)                       // Subsystem: native (driver-like)
	w.u16(0)                       // DllCharacteristics
	w.u32(0x100000)                // SizeOfStackReserve
	w.u32(0x1000)                  // SizeOfStackCommit
	w.u32(0x100000)                // SizeOfHeapReserve
	w.u32(0x1000)                  // SizeOfHeapCommit
	w.u32(0)                       // LoaderFlags
	w.u32(16)                      // NumberOfRvaAndSizes

	// Data directories (16 entries of RVA+Size)
	dataDirs := make([]uint32, 32)
	if idataSize > 0 {
		dataDirs[1*2+0] = idataImportDirRVA
		dataDirs[1*2+1] = idataSize
	}
	if edataSize > 0 {
		dataDirs[0*2+0] = edataExportDirRVA
		dataDirs[0*2+1] = edataSize
	}
	for i := 0; i < 16; i++ {
		w.u32(dataDirs[i*2])
		w.u32(dataDirs[i*2+1])
	}

	// Section headers
	for _, l := range laid {
		nb := nameBytes(l.spec.Name)
		w.bytes(nb[:])
		w.u32(l.size)            // VirtualSize
		w.u32(l.rva)              // VirtualAddress
		w.u32(l.rawSize)          // SizeOfRawData
		w.u32(l.rawOff)           // PointerToRawData
		w.u32(0)                 // PointerToRelocations
		w.u32(0)                 // PointerToLinenumbers
		w.u16(0)                 // NumberOfRelocations
		w.u16(0)                 // NumberOfLinenumbers
		w.u32(l.spec.Characteristics)
	}

	w.padTo(headerSize)

	for _, l := range laid {
		start := w.at()
		w.bytes(l.spec.Data)
		w.padTo(start + l.rawSize)
	}

	return w.b
}

const dosHeaderAndStubSize = 0x40

// sectionRVA computes the RVA a not-yet-laid-out section at index idx will
// receive, assuming one sectionAlign-sized page per prior section — good
// enough for the small fixtures these tests build.
func sectionRVA(idx int) uint32 {
	return uint32(sectionAlign * (idx + 1))
}

func buildImportDirectory(specs []ImportSpec, baseRVA uint32) ([]byte, uint32) {
	// Layout inside the section: [descriptors][name strings][thunk arrays][hint/name records]
	w := &buf{}
	numDescriptors := len(specs) + 1 // +1 terminator
	descriptorsSize := uint32(numDescriptors * 20)

	// First pass: compute sizes to lay out offsets.
	type dllLayout struct {
		nameOff   uint32
		thunkOff  uint32
		thunkSize uint32
		hintOffs  []uint32
	}
	layouts := make([]dllLayout, len(specs))
	cursor := descriptorsSize
	for i, s := range specs {
		layouts[i].nameOff = cursor
		cursor += uint32(len(s.DLL) + 1)
	}
	for i, s := range specs {
		layouts[i].thunkOff = cursor
		layouts[i].thunkSize = uint32(len(s.Funcs)+1) * 4
		cursor += layouts[i].thunkSize
	}
	for i, s := range specs {
		layouts[i].hintOffs = make([]uint32, len(s.Funcs))
		for j, f := range s.Funcs {
			if f.ByOrdinal {
				continue
			}
			layouts[i].hintOffs[j] = cursor
			cursor += uint32(2 + len(f.Name) + 1)
			if cursor%2 == 1 {
				cursor++
			}
		}
	}

	// Descriptors
	for i := range specs {
		w.u32(baseRVA + layouts[i].thunkOff) // OriginalFirstThunk
		w.u32(0)                            // TimeDateStamp
		w.u32(0)                            // ForwarderChain
		w.u32(baseRVA + layouts[i].nameOff)  // Name
		w.u32(baseRVA + layouts[i].thunkOff) // FirstThunk (IAT, reuse same table)
	}
	w.zero(20) // terminator descriptor

	for _, s := range specs {
		w.bytes([]byte(s.DLL))
		w.u8(0)
	}

	for i, s := range specs {
		_ = i
		for _, f := range s.Funcs {
			if f.ByOrdinal {
				w.u32(0x80000000 | uint32(f.Ordinal))
			} else {
				w.u32(baseRVA + layouts[i].hintOffs[indexOfFunc(s.Funcs, f)])
			}
		}
		w.u32(0) // thunk array terminator
	}

	for i, s := range specs {
		for j, f := range s.Funcs {
			if f.ByOrdinal {
				continue
			}
			_ = layouts[i].hintOffs[j]
			w.u16(0) // hint
			w.bytes([]byte(f.Name))
			w.u8(0)
			if w.at()%2 == 1 {
				w.u8(0)
			}
		}
	}

	return w.b, baseRVA
}

func indexOfFunc(fs []ImportFunc, target ImportFunc) int {
	for i, f := range fs {
		if f == target {
			return i
		}
	}
	return 0
}

func buildExportDirectory(specs []ExportSpec, baseRVA uint32) ([]byte, uint32) {
	w := &buf{}
	const dirSize = 40
	numFuncs := uint32(len(specs))
	numNames := numFuncs

	nameTableOff := dirSize
	ordTableOff := nameTableOff + int(numNames)*4
	funcTableOff := ordTableOff + int(numNames)*2
	namesOff := funcTableOff + int(numFuncs)*4

	w.u32(0)                        // Characteristics
	w.u32(0)                        // TimeDateStamp
	w.u16(0)                        // MajorVersion
	w.u16(0)                        // MinorVersion
	w.u32(0)                        // Name (module name RVA, unused here)
	w.u32(1)                        // Base (ordinal base)
	w.u32(numFuncs)
	w.u32(numNames)
	w.u32(baseRVA + uint32(funcTableOff)) // AddressOfFunctions
	w.u32(baseRVA + uint32(nameTableOff)) // AddressOfNames
	w.u32(baseRVA + uint32(ordTableOff))  // AddressOfNameOrdinals

	nameOffsets := make([]uint32, len(specs))
	cursor := uint32(namesOff)
	for i, s := range specs {
		nameOffsets[i] = cursor
		cursor += uint32(len(s.Name) + 1)
	}

	for i := range specs {
		w.u32(baseRVA + nameOffsets[i])
	}
	for i := range specs {
		w.u16(uint16(i))
	}
	for _, s := range specs {
		w.u32(s.RVA)
	}
	for _, s := range specs {
		w.bytes([]byte(s.Name))
		w.u8(0)
	}

	return w.b, baseRVA
}
