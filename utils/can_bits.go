package utils

// Little-endian bit packing helpers for CAN payloads. A payload is held as a
// single uint64 with byte 0 in the low bits.

func extractBits(payload uint64, startBit, bitLen int) uint64 {
	if bitLen <= 0 || bitLen > 64 {
		return 0
	}
	mask := uint64((1 << bitLen) - 1)
	return (payload >> startBit) & mask
}

func injectBits(payload uint64, startBit, bitLen int, value uint64) uint64 {
	if bitLen <= 0 || bitLen > 64 {
		return payload
	}
	mask := uint64((1 << bitLen) - 1)
	payload &^= mask << startBit
	payload |= (value & mask) << startBit
	return payload
}

// signExtend interprets u as a bitLen-wide two's complement value when signed.
func signExtend(u uint64, bitLen int, signed bool) int64 {
	if !signed {
		return int64(u)
	}
	signBit := uint64(1) << (bitLen - 1)
	if u&signBit == 0 {
		return int64(u)
	}
	full := uint64((1 << bitLen) - 1)
	return -int64((^u + 1) & full)
}

// toTwosComplement maps a raw signed value into bitLen-wide unsigned form.
func toTwosComplement(raw int64, bitLen int) uint64 {
	if raw >= 0 {
		return uint64(raw)
	}
	full := uint64((1 << bitLen) - 1)
	return (^uint64(-raw) + 1) & full
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// clampRaw limits a raw value to the representable range of its bit width.
func clampRaw(raw int64, bitLen int, signed bool) int64 {
	if bitLen <= 0 || bitLen > 63 {
		return raw
	}
	if !signed {
		max := int64((1 << bitLen) - 1)
		if raw < 0 {
			return 0
		}
		if raw > max {
			return max
		}
		return raw
	}
	min := -int64(1 << (bitLen - 1))
	max := int64((1 << (bitLen - 1)) - 1)
	if raw < min {
		return min
	}
	if raw > max {
		return max
	}
	return raw
}
