package predictor

const (
	// MaxWeight is the largest value a weight can hold.
	MaxWeight = 127
	// MinWeight is the smallest value a weight can hold. The range is
	// symmetric, so -128 is never used.
	MinWeight = -127
)

// weightTable stores 2^bits perceptrons of width history+1 in one flat
// slice. Row r occupies data[r*width : (r+1)*width]; column 0 is the bias.
type weightTable struct {
	data  []int8
	width int
}

func newWeightTable(rows, historyLength int) weightTable {
	width := historyLength + 1
	return weightTable{
		data:  make([]int8, rows*width),
		width: width,
	}
}

func (t *weightTable) row(index uint32) []int8 {
	start := int(index) * t.width
	return t.data[start : start+t.width]
}

// dot computes bias + Σ w[i+1]*h[i] for one row.
func (t *weightTable) dot(index uint32, h *history) int32 {
	w := t.row(index)
	y := int32(w[0])
	for i, x := range h.bits {
		y += int32(w[i+1]) * int32(x)
	}
	return y
}

// train moves a row toward outcome t.
func (t *weightTable) train(index uint32, h *history, dir int8) {
	w := t.row(index)
	w[0] = clip(int32(w[0]) + int32(dir))
	for i, x := range h.bits {
		w[i+1] = clip(int32(w[i+1]) + int32(dir)*int32(x))
	}
}

func (t *weightTable) clear() {
	for i := range t.data {
		t.data[i] = 0
	}
}

func clip(v int32) int8 {
	if v > MaxWeight {
		return MaxWeight
	}
	if v < MinWeight {
		return MinWeight
	}
	return int8(v)
}
