package inference

// Tensor is one named runtime input. Numeric inputs fill Floats, categorical
// inputs fill Strings; the shape is always [1, 1] for a single applicant.
type Tensor struct {
	Shape   []int64   `json:"shape"`
	Floats  []float32 `json:"floats,omitempty"`
	Strings []string  `json:"strings,omitempty"`
}

// Feeds maps input names to tensors.
type Feeds map[string]Tensor

// Output is one named runtime output. Dense channels fill Values; dictionary
// channels (class index to probability per row) fill Maps.
type Output struct {
	Values []float32           `json:"values,omitempty"`
	Maps   []map[int64]float32 `json:"maps,omitempty"`
}

// Outputs maps output channel names to values.
type Outputs map[string]Output

func scalarShape() []int64 {
	return []int64{1, 1}
}
