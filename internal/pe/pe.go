package pe

import (
	"github.com/jeweledtech/bare-metal-forth/internal/stageerr"
)

const stageName = "pe"

const (
	dosMagic  = 0x5A4D // "MZ"
	peMagic   = 0x00004550
	magicPE32 = 0x010B
	magicPE32p = 0x020B

	dataDirExport = 0
	dataDirImport = 1

	// Sanity caps from spec §5, overridable by callers that want stricter
	// bounds (see internal/config.Limits).
	defaultMaxImportDLLs  = 1000
	defaultMaxImportFuncs = 10000
	defaultMaxExports     = 10000
)

// Limits bounds the PE loader's tolerance for adversarial or malformed
// import/export directories. A zero Limits uses the spec's defaults.
type Limits struct {
	MaxImportDLLs  int
	MaxImportFuncs int
	MaxExports     int
}

func (l Limits) orDefaults() Limits {
	if l.MaxImportDLLs <= 0 {
		l.MaxImportDLLs = defaultMaxImportDLLs
	}
	if l.MaxImportFuncs <= 0 {
		l.MaxImportFuncs = defaultMaxImportFuncs
	}
	if l.MaxExports <= 0 {
		l.MaxExports = defaultMaxExports
	}
	return l
}

// Load parses a PE image from a borrowed byte slice. It never reads outside
// the slice and never exposes a partial Context on error.
func Load(data []byte) (*Context, error) {
	return LoadWithLimits(data, Limits{})
}

// LoadWithLimits is Load with caller-supplied sanity caps.
func LoadWithLimits(data []byte, limits Limits) (*Context, error) {
	limits = limits.orDefaults()
	c := newCursor(data)

	if !c.seek(0) {
		return nil, stageerr.Invalid(stageName, "empty input")
	}
	magic, ok := c.u16()
	if !ok || magic != dosMagic {
		return nil, stageerr.Invalid(stageName, "bad DOS magic")
	}
	if !c.seek(0x3C) {
		return nil, stageerr.Invalid(stageName, "truncated DOS header")
	}
	peOff, ok := c.u32()
	if !ok {
		return nil, stageerr.Invalid(stageName, "truncated e_lfanew")
	}
	if !c.seek(int64(peOff)) {
		return nil, stageerr.Invalid(stageName, "PE header offset out of range")
	}

	sig, ok := c.u32()
	if !ok || sig != peMagic {
		return nil, stageerr.Invalid(stageName, "bad PE signature")
	}

	machineRaw, ok := c.u16()
	if !ok {
		return nil, stageerr.Invalid(stageName, "truncated COFF header")
	}
	numSections, ok := c.u16()
	if !ok {
		return nil, stageerr.Invalid(stageName, "truncated COFF header")
	}
	if !c.seek(c.pos + 4 + 4 + 4) { // TimeDateStamp, PointerToSymbolTable, NumberOfSymbols
		return nil, stageerr.Invalid(stageName, "truncated COFF header")
	}
	sizeOfOptHdr, ok := c.u16()
	if !ok {
		return nil, stageerr.Invalid(stageName, "truncated COFF header")
	}
	if _, ok := c.u16(); !ok { // Characteristics
		return nil, stageerr.Invalid(stageName, "truncated COFF header")
	}

	optHdrStart := c.pos
	optMagic, ok := c.u16()
	if !ok {
		return nil, stageerr.Invalid(stageName, "truncated optional header")
	}

	ctx := &Context{
		Machine: Machine(machineRaw),
		raw:     data,
	}

	var numDataDirs uint32
	switch optMagic {
	case magicPE32:
		ctx.Is64 = false
		if !c.seek(optHdrStart + 2 + 1 + 1 + 4 + 4 + 4) { // Magic,LinkVer,SizeOfCode,InitData,UninitData
			return nil, stageerr.Invalid(stageName, "truncated optional header (PE32)")
		}
		entryRVA, ok := c.u32()
		if !ok {
			return nil, stageerr.Invalid(stageName, "truncated optional header (PE32)")
		}
		ctx.EntryPointRVA = entryRVA
		if !c.seek(c.pos + 4) { // BaseOfCode
			return nil, stageerr.Invalid(stageName, "truncated optional header (PE32)")
		}
		if !c.seek(c.pos + 4) { // BaseOfData (PE32 only)
			return nil, stageerr.Invalid(stageName, "truncated optional header (PE32)")
		}
		imageBase, ok := c.u32()
		if !ok {
			return nil, stageerr.Invalid(stageName, "truncated optional header (PE32)")
		}
		ctx.ImageBase = uint64(imageBase)
		// Skip to NumberOfRvaAndSizes: SectionAlign,FileAlign,3x OS/Image/Subsys ver pairs (6 u16 fields = 12 bytes),
		// Win32VersionValue,SizeOfImage,SizeOfHeaders,CheckSum,Subsystem,DllCharacteristics,
		// SizeOfStackReserve,SizeOfStackCommit,SizeOfHeapReserve,SizeOfHeapCommit (all u32 on PE32),LoaderFlags
		if !c.seek(c.pos + 4 + 4 + 2*6 + 4 + 4 + 4 + 4 + 2 + 2 + 4 + 4 + 4 + 4 + 4) {
			return nil, stageerr.Invalid(stageName, "truncated optional header (PE32)")
		}
		n, ok := c.u32()
		if !ok {
			return nil, stageerr.Invalid(stageName, "truncated optional header (PE32)")
		}
		numDataDirs = n
	case magicPE32p:
		ctx.Is64 = true
		if !c.seek(optHdrStart + 2 + 1 + 1 + 4 + 4 + 4) {
			return nil, stageerr.Invalid(stageName, "truncated optional header (PE32+)")
		}
		entryRVA, ok := c.u32()
		if !ok {
			return nil, stageerr.Invalid(stageName, "truncated optional header (PE32+)")
		}
		ctx.EntryPointRVA = entryRVA
		if !c.seek(c.pos + 4) { // BaseOfCode
			return nil, stageerr.Invalid(stageName, "truncated optional header (PE32+)")
		}
		imageBase, ok := c.u64()
		if !ok {
			return nil, stageerr.Invalid(stageName, "truncated optional header (PE32+)")
		}
		ctx.ImageBase = imageBase
		// SectionAlign,FileAlign,3 ver pairs (6 u16 fields = 12 bytes),Win32VersionValue,SizeOfImage,
		// SizeOfHeaders,CheckSum,Subsystem,DllCharacteristics,StackReserve,StackCommit,
		// HeapReserve,HeapCommit (4x u64 on PE32+),LoaderFlags
		if !c.seek(c.pos + 4 + 4 + 2*6 + 4 + 4 + 4 + 4 + 2 + 2 + 8 + 8 + 8 + 8 + 4) {
			return nil, stageerr.Invalid(stageName, "truncated optional header (PE32+)")
		}
		n, ok := c.u32()
		if !ok {
			return nil, stageerr.Invalid(stageName, "truncated optional header (PE32+)")
		}
		numDataDirs = n
	default:
		return nil, stageerr.Invalid(stageName, "unknown optional header magic 0x%04x", optMagic)
	}

	dataDirs := make([]struct{ rva, size uint32 }, numDataDirs)
	for i := range dataDirs {
		rva, ok1 := c.u32()
		size, ok2 := c.u32()
		if !ok1 || !ok2 {
			return nil, stageerr.Invalid(stageName, "truncated data directory %d", i)
		}
		dataDirs[i].rva = rva
		dataDirs[i].size = size
	}

	sectionTableOff := optHdrStart + int64(sizeOfOptHdr)
	if !c.seek(sectionTableOff) {
		return nil, stageerr.Invalid(stageName, "section table out of range")
	}
	sections := make([]Section, 0, numSections)
	for i := 0; i < int(numSections); i++ {
		nameBytes, ok := c.bytes(8)
		if !ok {
			return nil, stageerr.Invalid(stageName, "truncated section header %d", i)
		}
		vsize, ok1 := c.u32()
		vaddr, ok2 := c.u32()
		rsize, ok3 := c.u32()
		roff, ok4 := c.u32()
		if !ok1 || !ok2 || !ok3 || !ok4 {
			return nil, stageerr.Invalid(stageName, "truncated section header %d", i)
		}
		if !c.seek(c.pos + 4 + 4 + 2 + 2) { // ptrRelocs, ptrLinenums, numRelocs, numLinenums
			return nil, stageerr.Invalid(stageName, "truncated section header %d", i)
		}
		characteristics, ok := c.u32()
		if !ok {
			return nil, stageerr.Invalid(stageName, "truncated section header %d", i)
		}
		if uint64(roff)+uint64(rsize) > uint64(len(data)) {
			return nil, stageerr.Invalid(stageName, "section %d raw data out of range", i)
		}
		sections = append(sections, Section{
			Name:            sectionName(nameBytes),
			VirtualAddress:  vaddr,
			VirtualSize:     vsize,
			RawOffset:       roff,
			RawSize:         rsize,
			Characteristics: characteristics,
		})
	}
	ctx.Sections = sections
	for i := range ctx.Sections {
		if ctx.Sections[i].IsCode() {
			ctx.TextSection = &ctx.Sections[i]
			break
		}
	}

	if int(dataDirImport) < len(dataDirs) && dataDirs[dataDirImport].size > 0 {
		imports, err := parseImports(ctx, dataDirs[dataDirImport].rva, limits)
		if err != nil {
			return nil, err
		}
		ctx.Imports = imports
	}

	if int(dataDirExport) < len(dataDirs) && dataDirs[dataDirExport].size > 0 {
		exports, err := parseExports(ctx, dataDirs[dataDirExport].rva, limits)
		if err != nil {
			return nil, err
		}
		ctx.Exports = exports
	}

	return ctx, nil
}

func sectionName(b []byte) string {
	end := 0
	for end < len(b) && b[end] != 0 {
		end++
	}
	return string(b[:end])
}

// importDescriptor is 20 bytes: OriginalFirstThunk, TimeDateStamp,
// ForwarderChain, Name, FirstThunk — all uint32.
func parseImports(ctx *Context, dirRVA uint32, limits Limits) ([]Import, error) {
	dirOff, ok := ctx.RVAToOffset(dirRVA)
	if !ok {
		return nil, stageerr.Invalid(stageName, "import directory RVA out of range")
	}
	c := newCursor(ctx.raw)
	if !c.seek(int64(dirOff)) {
		return nil, stageerr.Invalid(stageName, "import directory out of range")
	}

	var imports []Import
	for dllCount := 0; ; dllCount++ {
		if dllCount >= limits.MaxImportDLLs {
			return nil, stageerr.Invalid(stageName, "import DLL count exceeds sanity cap %d", limits.MaxImportDLLs)
		}
		origFirstThunk, ok1 := c.u32()
		if !ok1 {
			return nil, stageerr.Invalid(stageName, "truncated import descriptor")
		}
		if _, ok := c.u32(); !ok { // TimeDateStamp
			return nil, stageerr.Invalid(stageName, "truncated import descriptor")
		}
		if _, ok := c.u32(); !ok { // ForwarderChain
			return nil, stageerr.Invalid(stageName, "truncated import descriptor")
		}
		nameRVA, ok2 := c.u32()
		firstThunk, ok3 := c.u32()
		if !ok2 || !ok3 {
			return nil, stageerr.Invalid(stageName, "truncated import descriptor")
		}
		if origFirstThunk == 0 && nameRVA == 0 && firstThunk == 0 {
			break // terminator
		}

		dllName := "unknown"
		if off, ok := ctx.RVAToOffset(nameRVA); ok {
			if s, ok := cStringAt(ctx.raw, off); ok {
				dllName = s
			}
		}

		thunkRVA := origFirstThunk
		if thunkRVA == 0 {
			thunkRVA = firstThunk
		}

		funcs, err := parseThunkArray(ctx, dllName, thunkRVA, firstThunk, limits, len(imports))
		if err != nil {
			return nil, err
		}
		imports = append(imports, funcs...)
	}
	return imports, nil
}

func parseThunkArray(ctx *Context, dllName string, thunkRVA, iatRVA uint32, limits Limits, alreadySeen int) ([]Import, error) {
	if thunkRVA == 0 {
		return nil, nil
	}
	off, ok := ctx.RVAToOffset(thunkRVA)
	if !ok {
		return nil, stageerr.Invalid(stageName, "import lookup table RVA out of range for %s", dllName)
	}
	c := newCursor(ctx.raw)
	if !c.seek(int64(off)) {
		return nil, stageerr.Invalid(stageName, "import lookup table out of range for %s", dllName)
	}

	var out []Import
	slotRVA := iatRVA
	entrySize := int64(4)
	if ctx.Is64 {
		entrySize = 8
	}
	for {
		if alreadySeen+len(out) >= limits.MaxImportFuncs {
			return nil, stageerr.Invalid(stageName, "imported symbol count exceeds sanity cap %d", limits.MaxImportFuncs)
		}
		var raw uint64
		var ok bool
		if ctx.Is64 {
			raw, ok = c.u64()
		} else {
			var v uint32
			v, ok = c.u32()
			raw = uint64(v)
		}
		if !ok {
			return nil, stageerr.Invalid(stageName, "truncated import lookup table for %s", dllName)
		}
		if raw == 0 {
			break
		}

		imp := Import{DLL: dllName, IATSlotRVA: slotRVA}
		ordinalBit := uint64(1) << 31
		if ctx.Is64 {
			ordinalBit = uint64(1) << 63
		}
		if raw&ordinalBit != 0 {
			imp.ByOrdinal = true
			imp.Ordinal = uint16(raw & 0xFFFF)
		} else {
			hintNameRVA := uint32(raw & 0x7FFFFFFF)
			if hoff, ok := ctx.RVAToOffset(hintNameRVA); ok {
				// hint/name record: 2-byte hint then NUL-terminated name
				if s, ok := cStringAt(ctx.raw, hoff+2); ok {
					imp.Name = s
				}
			}
		}
		out = append(out, imp)
		slotRVA += uint32(entrySize)
	}
	return out, nil
}

func parseExports(ctx *Context, dirRVA uint32, limits Limits) ([]Export, error) {
	off, ok := ctx.RVAToOffset(dirRVA)
	if !ok {
		return nil, stageerr.Invalid(stageName, "export directory RVA out of range")
	}
	c := newCursor(ctx.raw)
	if !c.seek(int64(off)) {
		return nil, stageerr.Invalid(stageName, "export directory out of range")
	}
	if !c.seek(c.pos + 4 + 4 + 2 + 2 + 4) { // Characteristics,TimeDateStamp,MajorVer,MinorVer,Name
		return nil, stageerr.Invalid(stageName, "truncated export directory")
	}
	base, ok1 := c.u32()
	numFuncs, ok2 := c.u32()
	numNames, ok3 := c.u32()
	addrFuncs, ok4 := c.u32()
	addrNames, ok5 := c.u32()
	addrOrdinals, ok6 := c.u32()
	if !ok1 || !ok2 || !ok3 || !ok4 || !ok5 || !ok6 {
		return nil, stageerr.Invalid(stageName, "truncated export directory")
	}
	if int(numFuncs) > limits.MaxExports || int(numNames) > limits.MaxExports {
		return nil, stageerr.Invalid(stageName, "export count exceeds sanity cap %d", limits.MaxExports)
	}

	funcAddrs := make([]uint32, numFuncs)
	if err := readU32Array(ctx, addrFuncs, funcAddrs); err != nil {
		return nil, err
	}
	nameRVAs := make([]uint32, numNames)
	if err := readU32Array(ctx, addrNames, nameRVAs); err != nil {
		return nil, err
	}
	ordinals := make([]uint16, numNames)
	if err := readU16Array(ctx, addrOrdinals, ordinals); err != nil {
		return nil, err
	}

	exports := make([]Export, 0, numNames)
	for i := range nameRVAs {
		nameOff, ok := ctx.RVAToOffset(nameRVAs[i])
		if !ok {
			continue
		}
		name, ok := cStringAt(ctx.raw, nameOff)
		if !ok {
			continue
		}
		ord := ordinals[i]
		if int(ord) >= len(funcAddrs) {
			continue
		}
		exports = append(exports, Export{
			Name:    name,
			Ordinal: ord + uint16(base),
			RVA:     funcAddrs[ord],
		})
	}

	// Functions no name refers to are ordinal-only exports: keep them unnamed.
	named := make([]bool, len(funcAddrs))
	for _, ord := range ordinals {
		if int(ord) < len(named) {
			named[ord] = true
		}
	}
	for i, rva := range funcAddrs {
		if named[i] || rva == 0 {
			continue
		}
		exports = append(exports, Export{Ordinal: uint16(i) + uint16(base), RVA: rva})
	}
	return exports, nil
}

func readU32Array(ctx *Context, rva uint32, out []uint32) error {
	off, ok := ctx.RVAToOffset(rva)
	if !ok {
		return stageerr.Invalid(stageName, "RVA array out of range")
	}
	c := newCursor(ctx.raw)
	if !c.seek(int64(off)) {
		return stageerr.Invalid(stageName, "RVA array truncated")
	}
	for i := range out {
		v, ok := c.u32()
		if !ok {
			return stageerr.Invalid(stageName, "RVA array truncated at index %d", i)
		}
		out[i] = v
	}
	return nil
}

func readU16Array(ctx *Context, rva uint32, out []uint16) error {
	off, ok := ctx.RVAToOffset(rva)
	if !ok {
		return stageerr.Invalid(stageName, "ordinal array out of range")
	}
	c := newCursor(ctx.raw)
	if !c.seek(int64(off)) {
		return stageerr.Invalid(stageName, "ordinal array truncated")
	}
	for i := range out {
		v, ok := c.u16()
		if !ok {
			return stageerr.Invalid(stageName, "ordinal array truncated at index %d", i)
		}
		out[i] = v
	}
	return nil
}
