// Package pe parses the subset of the PE/COFF format a Windows kernel driver
// uses: headers, sections, imports and exports. It never follows a pointer
// into the input slice that was not first checked against the slice length.
package pe

// Machine identifies the target CPU architecture recorded in the COFF header.
type Machine uint16

const (
	MachineI386  Machine = 0x014C
	MachineAMD64 Machine = 0x8664
)

func (m Machine) String() string {
	switch m {
	case MachineI386:
		return "i386"
	case MachineAMD64:
		return "amd64"
	default:
		return "unknown"
	}
}

// Is64Bit reports whether the machine type implies 64-bit pointer width.
func (m Machine) Is64Bit() bool {
	return m == MachineAMD64
}

// Section characteristic flags relevant to locating the code section.
const (
	SectionCode    = 0x00000020
	SectionExecute = 0x20000000
	SectionRead    = 0x40000000
	SectionWrite   = 0x80000000
)

// Section describes one entry of the PE section table.
type Section struct {
	Name            string
	VirtualAddress  uint32
	VirtualSize     uint32
	RawOffset       uint32
	RawSize         uint32
	Characteristics uint32
}

// IsCode reports whether the section carries both CODE and EXECUTE flags,
// the criterion §4.1 uses to pick the text section.
func (s Section) IsCode() bool {
	return s.Characteristics&SectionCode != 0 && s.Characteristics&SectionExecute != 0
}

// Import describes a single imported symbol: which DLL it comes from, its
// name (or ordinal when imported by ordinal), and the RVA of the IAT slot
// the loader patches at load time.
type Import struct {
	DLL        string
	Name       string // empty when imported by ordinal
	Ordinal    uint16 // valid only when Name == ""
	ByOrdinal  bool
	IATSlotRVA uint32
}

// Export describes one named export directory entry. Ordinal-only exports
// (no name) are retained with Name == "".
type Export struct {
	Name    string
	Ordinal uint16
	RVA     uint32
}

// Context is the immutable result of parsing a PE image. It borrows the raw
// byte slice supplied to Load and must not outlive it.
type Context struct {
	Is64          bool
	Machine       Machine
	ImageBase     uint64
	EntryPointRVA uint32
	Sections      []Section
	Imports       []Import
	Exports       []Export

	// TextSection points at the first section for which IsCode() is true,
	// or is nil if no such section exists.
	TextSection *Section

	raw []byte
}

// RVAToOffset resolves a relative virtual address to a byte offset in the
// underlying image bytes via a linear scan of Sections. It returns
// (0, false) when the RVA does not fall within any section's raw data.
func (c *Context) RVAToOffset(rva uint32) (uint32, bool) {
	for i := range c.Sections {
		s := &c.Sections[i]
		if rva >= s.VirtualAddress && rva < s.VirtualAddress+s.RawSize {
			return s.RawOffset + (rva - s.VirtualAddress), true
		}
	}
	return 0, false
}

// RVAToPtr resolves an RVA to a sub-slice of the underlying bytes starting
// at that offset. It returns (nil, false) when the RVA is out of range, and
// never returns a slice that extends past the end of the input.
func (c *Context) RVAToPtr(rva uint32) ([]byte, bool) {
	off, ok := c.RVAToOffset(rva)
	if !ok || int(off) > len(c.raw) {
		return nil, false
	}
	return c.raw[off:], true
}

// TextBytes returns the raw bytes of TextSection, or nil if there is none.
func (c *Context) TextBytes() []byte {
	if c.TextSection == nil {
		return nil
	}
	start := c.TextSection.RawOffset
	end := start + c.TextSection.RawSize
	if int(end) > len(c.raw) {
		end = uint32(len(c.raw))
	}
	if int(start) > len(c.raw) {
		return nil
	}
	return c.raw[start:end]
}

// Cleanup releases Context's own borrow of the byte slice. Context owns no
// heap allocations beyond its slices of value types and strings, all of
// which are either owned copies (DLL/function/export names) or Go's garbage
// collector reclaims them; Cleanup exists to match the explicit
// load/cleanup lifecycle the spec calls for and to drop the borrow promptly.
func (c *Context) Cleanup() {
	c.raw = nil
	c.Sections = nil
	c.Imports = nil
	c.Exports = nil
	c.TextSection = nil
}
