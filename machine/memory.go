package machine

// Memory is the Memory Interface component: byte/halfword/word read and
// write primitives plus instruction fetch, each routed through the
// appropriate cache. Byte order is big-endian at this layer: the lowest
// address of a multi-byte value holds its most significant byte, matching
// the firmware images the source machine consumes.
type Memory struct {
	ram   *RAM
	data  *Cache
	instr *Cache
}

// NewMemory wires a data cache and an instruction cache, both backed by the
// same RAM.
func NewMemory(ram *RAM) *Memory {
	return &Memory{
		ram:   ram,
		data:  NewCache(ram),
		instr: NewCache(ram),
	}
}

// ReadByte reads one byte through the data cache.
func (m *Memory) ReadByte(addr uint32) uint8 {
	return m.data.ReadByte(addr)
}

// ReadHalf reads two bytes through the data cache, high byte first.
func (m *Memory) ReadHalf(addr uint32) uint16 {
	hi := m.data.ReadByte(addr)
	lo := m.data.ReadByte(addr + 1)
	return uint16(hi)<<8 | uint16(lo)
}

// ReadWord reads four bytes through the data cache, MSB first.
func (m *Memory) ReadWord(addr uint32) uint32 {
	b0 := m.data.ReadByte(addr)
	b1 := m.data.ReadByte(addr + 1)
	b2 := m.data.ReadByte(addr + 2)
	b3 := m.data.ReadByte(addr + 3)
	return uint32(b0)<<24 | uint32(b1)<<16 | uint32(b2)<<8 | uint32(b3)
}

// Fetch reads a 32-bit instruction word through the instruction cache.
func (m *Memory) Fetch(addr uint32) uint32 {
	b0 := m.instr.ReadByte(addr)
	b1 := m.instr.ReadByte(addr + 1)
	b2 := m.instr.ReadByte(addr + 2)
	b3 := m.instr.ReadByte(addr + 3)
	return uint32(b0)<<24 | uint32(b1)<<16 | uint32(b2)<<8 | uint32(b3)
}

// WriteByte writes one byte through the data cache.
func (m *Memory) WriteByte(addr uint32, v uint8) {
	m.data.WriteByte(addr, v)
}

// WriteHalf writes two bytes through the data cache, high byte first.
func (m *Memory) WriteHalf(addr uint32, v uint16) {
	m.data.WriteByte(addr, byte(v>>8))
	m.data.WriteByte(addr+1, byte(v))
}

// WriteWord writes four bytes through the data cache, MSB first.
func (m *Memory) WriteWord(addr uint32, v uint32) {
	m.data.WriteByte(addr, byte(v>>24))
	m.data.WriteByte(addr+1, byte(v>>16))
	m.data.WriteByte(addr+2, byte(v>>8))
	m.data.WriteByte(addr+3, byte(v))
}

// DataCacheSet exposes a read-only snapshot of one set of the data cache,
// for the debug monitor and tests. It never mutates cache state.
func (m *Memory) DataCacheSet(index int) setSnapshot {
	return m.data.snapshotSet(index)
}

// InstrCacheSet exposes a read-only snapshot of one set of the instruction
// cache, for the debug monitor and tests.
func (m *Memory) InstrCacheSet(index int) setSnapshot {
	return m.instr.snapshotSet(index)
}
