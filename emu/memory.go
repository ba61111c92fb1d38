package emu

// Memory is the sparse main memory: 16-bit addresses to 16-bit signed words.
// Unwritten cells read as 0. Cells are created lazily on first write and
// never destroyed.
type Memory struct {
	cells map[uint16]int16
}

// NewMemory creates an empty memory.
func NewMemory() *Memory {
	return &Memory{cells: make(map[uint16]int16)}
}

// Read returns the word at addr, 0 if the cell was never written.
func (m *Memory) Read(addr uint16) int16 {
	return m.cells[addr]
}

// Write stores v at addr.
func (m *Memory) Write(addr uint16, v int16) {
	m.cells[addr] = v
}

// NonZero returns a copy of all cells holding a non-zero value, for display.
func (m *Memory) NonZero() map[uint16]int16 {
	out := make(map[uint16]int16)
	for addr, v := range m.cells {
		if v != 0 {
			out[addr] = v
		}
	}
	return out
}
