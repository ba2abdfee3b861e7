package pe

import "encoding/binary"

// cursor is a bounds-checked reader over a borrowed byte slice. It never
// panics on short input: every read method reports ok=false instead of
// indexing past the end, mirroring the "wrap bounds checks in a small
// helper" guidance for parsing untrusted bytes.
type cursor struct {
	data []byte
	pos  int64
}

func newCursor(data []byte) *cursor {
	return &cursor{data: data}
}

func (c *cursor) seek(pos int64) bool {
	if pos < 0 || pos > int64(len(c.data)) {
		return false
	}
	c.pos = pos
	return true
}

func (c *cursor) fits(n int64) bool {
	return n >= 0 && c.pos >= 0 && c.pos+n <= int64(len(c.data))
}

func (c *cursor) u8() (byte, bool) {
	if !c.fits(1) {
		return 0, false
	}
	v := c.data[c.pos]
	c.pos++
	return v, true
}

func (c *cursor) u16() (uint16, bool) {
	if !c.fits(2) {
		return 0, false
	}
	v := binary.LittleEndian.Uint16(c.data[c.pos:])
	c.pos += 2
	return v, true
}

func (c *cursor) u32() (uint32, bool) {
	if !c.fits(4) {
		return 0, false
	}
	v := binary.LittleEndian.Uint32(c.data[c.pos:])
	c.pos += 4
	return v, true
}

func (c *cursor) u64() (uint64, bool) {
	if !c.fits(8) {
		return 0, false
	}
	v := binary.LittleEndian.Uint64(c.data[c.pos:])
	c.pos += 8
	return v, true
}

func (c *cursor) bytes(n int) ([]byte, bool) {
	if !c.fits(int64(n)) {
		return nil, false
	}
	b := c.data[c.pos : c.pos+int64(n)]
	c.pos += int64(n)
	return b, true
}

// cStringAt reads a NUL-terminated string starting at byte offset off
// without disturbing the cursor's own position. It fails closed: an
// unterminated run to the end of the buffer is rejected rather than
// silently truncated, since that almost always indicates a corrupt or
// adversarial RVA.
func cStringAt(data []byte, off uint32) (string, bool) {
	if int64(off) > int64(len(data)) {
		return "", false
	}
	end := int(off)
	for end < len(data) && data[end] != 0 {
		end++
	}
	if end >= len(data) {
		return "", false
	}
	return string(data[off:end]), true
}
