package machine

// Cache geometry, fixed by spec: 2-way set-associative, 64 sets, 64-byte
// lines. Two instances of this one type are created by Memory — one for
// data, one for instructions — rather than duplicating the logic.
const (
	numSets      = 64
	waysPerSet   = 2
	offsetBits   = 6  // log2(lineSize)
	indexBits    = 6  // log2(numSets)
	offsetMask   = lineSize - 1
	indexMask    = numSets - 1
	tagShift     = offsetBits + indexBits
)

// cacheLine holds one way's metadata. tag is the upper 20 bits of the
// line's byte address.
type cacheLine struct {
	tag   uint32
	valid bool
	dirty bool
}

// cacheSet is two ways plus the single LRU bit: LRU == k names way k as the
// victim for the next eviction in this set.
type cacheSet struct {
	ways [waysPerSet]cacheLine
	lru  uint8
}

// Cache is a 2-way set-associative, write-back, write-allocate cache with
// LRU replacement, backed by a shared RAM. payload holds numSets*waysPerSet
// lines of lineSize bytes each; sets holds the parallel metadata array.
type Cache struct {
	ram     *RAM
	payload [numSets * waysPerSet * lineSize]byte
	sets    [numSets]cacheSet
}

// NewCache creates an all-invalid, all-clean cache backed by ram.
func NewCache(ram *RAM) *Cache {
	return &Cache{ram: ram}
}

// lineBase returns the byte address of the 64-byte line containing addr.
func lineBase(addr uint32) uint32 {
	return addr &^ offsetMask
}

// locate implements the hit / cold-fill / eviction policy from spec.md
// §4.B exactly, including the LRU update on every hit and fill. It returns
// the way index holding (or, after fill, now holding) the line containing
// addr, and the offset within that line's payload slice where the line's
// first byte lives.
func (c *Cache) locate(addr uint32) (way int, payloadBase int) {
	tag := addr >> tagShift
	index := (addr >> offsetBits) & indexMask
	set := &c.sets[index]

	base0 := (int(index)*waysPerSet + 0) * lineSize
	base1 := (int(index)*waysPerSet + 1) * lineSize

	switch {
	case set.ways[0].valid && set.ways[0].tag == tag:
		// hit on way0
		set.lru = 1
		return 0, base0

	case set.ways[1].valid && set.ways[1].tag == tag:
		// hit on way1
		set.lru = 0
		return 1, base1

	case !set.ways[0].valid:
		// cold fill into way0
		ramAddr := (tag << tagShift) | (index << offsetBits)
		c.ram.FillLine(c.payload[base0:base0+lineSize], ramAddr)
		set.ways[0] = cacheLine{tag: tag, valid: true, dirty: false}
		set.lru = 1
		return 0, base0

	case !set.ways[1].valid:
		// cold fill into way1
		ramAddr := (tag << tagShift) | (index << offsetBits)
		c.ram.FillLine(c.payload[base1:base1+lineSize], ramAddr)
		set.ways[1] = cacheLine{tag: tag, valid: true, dirty: false}
		set.lru = 0
		return 1, base1
	}

	// both ways valid, different tag: capacity/conflict miss, evict the
	// victim named by LRU. Comparison, not assignment — the source's
	// `else if (set->LRU = 0)` bug (spec.md §9) is deliberately not
	// reproduced here.
	if set.lru == 0 {
		victim := &set.ways[0]
		if victim.dirty {
			ramAddr := (victim.tag << tagShift) | (index << offsetBits)
			c.ram.SpillLine(ramAddr, c.payload[base0:base0+lineSize])
		}
		ramAddr := (tag << tagShift) | (index << offsetBits)
		c.ram.FillLine(c.payload[base0:base0+lineSize], ramAddr)
		*victim = cacheLine{tag: tag, valid: true, dirty: false}
		set.lru = 1
		return 0, base0
	}

	victim := &set.ways[1]
	if victim.dirty {
		ramAddr := (victim.tag << tagShift) | (index << offsetBits)
		c.ram.SpillLine(ramAddr, c.payload[base1:base1+lineSize])
	}
	ramAddr := (tag << tagShift) | (index << offsetBits)
	c.ram.FillLine(c.payload[base1:base1+lineSize], ramAddr)
	*victim = cacheLine{tag: tag, valid: true, dirty: false}
	set.lru = 0
	return 1, base1
}

// ReadByte returns the byte at addr, filling/evicting as needed.
func (c *Cache) ReadByte(addr uint32) byte {
	way, base := c.locate(addr)
	_ = way
	return c.payload[base+int(addr&offsetMask)]
}

// WriteByte overwrites the byte at addr and marks the owning way dirty.
func (c *Cache) WriteByte(addr uint32, v byte) {
	way, base := c.locate(addr)
	index := (addr >> offsetBits) & indexMask
	c.payload[base+int(addr&offsetMask)] = v
	c.sets[index].ways[way].dirty = true
}

// setSnapshot is a read-only view of one set's metadata, used by the debug
// monitor and tests; it never mutates cache state.
type setSnapshot struct {
	lru  uint8
	ways [waysPerSet]cacheLine
}

func (c *Cache) snapshotSet(index int) setSnapshot {
	s := c.sets[index]
	return setSnapshot{lru: s.lru, ways: s.ways}
}
