package machine

// lineSize is the unit of transfer between a Cache and RAM: 64 bytes,
// matching the cache geometry in cache.go.
const lineSize = 64

// DefaultRAMSize is the byte-addressable main memory size used when the
// driver does not override it: 1 GiB, matching the source machine.
const DefaultRAMSize = 1 << 30

// RAM is a flat, byte-addressable main memory array. At run time it is
// touched only by the Cache engine, on a fill or a dirty eviction; outside
// that, Machine.Boot seeds it through LoadAt and the debug monitor and tests
// read it through byteAt.
type RAM struct {
	bytes []byte
}

// NewRAM allocates a zeroed RAM of the given size.
func NewRAM(size uint32) *RAM {
	return &RAM{bytes: make([]byte, size)}
}

// Size returns the number of addressable bytes.
func (r *RAM) Size() uint32 {
	return uint32(len(r.bytes))
}

// FillLine copies the 64-byte line starting at ramLineAddr into dst.
func (r *RAM) FillLine(dst []byte, ramLineAddr uint32) {
	copy(dst[:lineSize], r.bytes[ramLineAddr:ramLineAddr+lineSize])
}

// SpillLine copies the 64-byte line src back into RAM at ramLineAddr.
func (r *RAM) SpillLine(ramLineAddr uint32, src []byte) {
	copy(r.bytes[ramLineAddr:ramLineAddr+lineSize], src[:lineSize])
}

// LoadAt copies data into RAM starting at addr. Used by the loader to
// seed the firmware image; panics if data overruns RAM, which should never
// happen given the 65,535-byte firmware ceiling and the default 1 GiB size.
func (r *RAM) LoadAt(addr uint32, data []byte) {
	copy(r.bytes[addr:addr+uint32(len(data))], data)
}

// byteAt is a private escape hatch that reads RAM directly, bypassing the
// caches: used by tests (e.g. verifying a dirty eviction really reached RAM)
// and by the debug monitor's next-instruction preview.
func (r *RAM) byteAt(addr uint32) byte {
	return r.bytes[addr]
}
