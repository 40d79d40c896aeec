package predictor

// history is a fixed-length shift register of resolved outcomes, most
// recent first. Entries are +1 (taken), -1 (not taken) or 0 before the
// register has filled.
type history struct {
	bits []int8
}

func newHistory(length int) history {
	return history{bits: make([]int8, length)}
}

// push shifts t in at the front and drops the oldest outcome.
func (h *history) push(t int8) {
	copy(h.bits[1:], h.bits[:len(h.bits)-1])
	h.bits[0] = t
}

func (h *history) clear() {
	for i := range h.bits {
		h.bits[i] = 0
	}
}

func (h *history) snapshot() []int8 {
	out := make([]int8, len(h.bits))
	copy(out, h.bits)
	return out
}
