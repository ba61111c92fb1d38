package emu

// ALU operations. All arithmetic wraps to 16 bits; no operation can fault.

// Add returns a+b with 16-bit wraparound.
func Add(a, b int16) int16 {
	return int16(uint16(a) + uint16(b))
}

// Sub returns a-b with 16-bit wraparound.
func Sub(a, b int16) int16 {
	return int16(uint16(a) - uint16(b))
}

// Nor returns the bitwise NOR of a and b.
func Nor(a, b int16) int16 {
	return ^(a | b)
}

// Mul returns (a*b) mod 65536 reinterpreted as a 16-bit signed value.
func Mul(a, b int16) int16 {
	return int16(uint16(int32(a) * int32(b)))
}

// EffectiveAddr computes the memory address base+offset, truncated to the
// 16-bit address space.
func EffectiveAddr(base int16, offset int32) uint16 {
	return uint16(int32(base) + offset)
}
