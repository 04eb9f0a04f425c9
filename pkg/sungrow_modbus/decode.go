package sungrow_modbus

// Decode interprets a register word as a two's-complement signed value.
func Decode(word uint16) int {
	if word&0x8000 != 0 {
		return int(word) - 1<<16
	}
	return int(word)
}

func DecodeRegisters(words []uint16) []int {
	values := make([]int, len(words))
	for i, w := range words {
		values[i] = Decode(w)
	}
	return values
}

// Encode is the inverse of Decode for values in -32768..32767.
func Encode(value int) uint16 {
	return uint16(int16(value))
}

// DiscardPadding keeps the even-indexed words of a bank where every second word is padding.
func DiscardPadding(values []int) []int {
	kept := make([]int, 0, (len(values)+1)/2)
	for i := 0; i < len(values); i += 2 {
		kept = append(kept, values[i])
	}
	return kept
}
