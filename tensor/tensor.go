// Package tensor provides a minimal dense tensor type for the separation
// network. Data is stored as a flat float64 slice in row-major order, so the
// leading (batch) axis maps to contiguous blocks and every per-batch operation
// can work on plain subslices.
package tensor

import (
	"encoding/json"
	"fmt"
)

// Tensor is an n-dimensional array backed by a contiguous float64 slice.
type Tensor struct {
	dims []int
	data []float64
}

// New returns a zero-filled tensor with the given dimensions.
func New(dims ...int) *Tensor {
	n := 1
	for _, d := range dims {
		if d <= 0 {
			panic(fmt.Sprintf("tensor: non-positive dimension %d", d))
		}
		n *= d
	}
	return &Tensor{
		dims: append([]int(nil), dims...),
		data: make([]float64, n),
	}
}

// FromSlice wraps an existing slice as a tensor without copying.
// The slice length must equal the product of the dimensions.
func FromSlice(data []float64, dims ...int) *Tensor {
	n := 1
	for _, d := range dims {
		n *= d
	}
	if len(data) != n {
		panic(fmt.Sprintf("tensor: data length %d does not match dims %v", len(data), dims))
	}
	return &Tensor{dims: append([]int(nil), dims...), data: data}
}

// Dims returns the tensor dimensions. The returned slice must not be modified.
func (t *Tensor) Dims() []int { return t.dims }

// Dim returns the size of axis i.
func (t *Tensor) Dim(i int) int { return t.dims[i] }

// Rank returns the number of axes.
func (t *Tensor) Rank() int { return len(t.dims) }

// Len returns the total number of elements.
func (t *Tensor) Len() int { return len(t.data) }

// Data returns the backing slice in row-major order.
func (t *Tensor) Data() []float64 { return t.data }

// Clone returns a deep copy.
func (t *Tensor) Clone() *Tensor {
	data := make([]float64, len(t.data))
	copy(data, t.data)
	return &Tensor{dims: append([]int(nil), t.dims...), data: data}
}

// Reshape returns a view of the same data with new dimensions.
// The element count must be unchanged.
func (t *Tensor) Reshape(dims ...int) *Tensor {
	n := 1
	for _, d := range dims {
		n *= d
	}
	if n != len(t.data) {
		panic(fmt.Sprintf("tensor: cannot reshape %v to %v", t.dims, dims))
	}
	return &Tensor{dims: append([]int(nil), dims...), data: t.data}
}

// Offset returns the flat index of the element at the given coordinates.
func (t *Tensor) Offset(idx ...int) int {
	if len(idx) != len(t.dims) {
		panic(fmt.Sprintf("tensor: %d indices for rank-%d tensor", len(idx), len(t.dims)))
	}
	off := 0
	for i, x := range idx {
		if x < 0 || x >= t.dims[i] {
			panic(fmt.Sprintf("tensor: index %d out of range for axis %d (size %d)", x, i, t.dims[i]))
		}
		off = off*t.dims[i] + x
	}
	return off
}

// At returns the element at the given coordinates.
func (t *Tensor) At(idx ...int) float64 { return t.data[t.Offset(idx...)] }

// Set stores v at the given coordinates.
func (t *Tensor) Set(v float64, idx ...int) { t.data[t.Offset(idx...)] = v }

// SameShape reports whether t and u have identical dimensions.
func (t *Tensor) SameShape(u *Tensor) bool {
	if len(t.dims) != len(u.dims) {
		return false
	}
	for i, d := range t.dims {
		if u.dims[i] != d {
			return false
		}
	}
	return true
}

// jsonTensor is the serialized form: explicit dims plus flat data.
type jsonTensor struct {
	Dims []int     `json:"dims"`
	Data []float64 `json:"data"`
}

// MarshalJSON encodes the tensor as {"dims": [...], "data": [...]}.
func (t *Tensor) MarshalJSON() ([]byte, error) {
	return json.Marshal(jsonTensor{Dims: t.dims, Data: t.data})
}

// UnmarshalJSON decodes the {"dims", "data"} form and validates that the
// data length matches the dimensions.
func (t *Tensor) UnmarshalJSON(b []byte) error {
	var jt jsonTensor
	if err := json.Unmarshal(b, &jt); err != nil {
		return err
	}
	n := 1
	for _, d := range jt.Dims {
		if d <= 0 {
			return fmt.Errorf("tensor: invalid dimension %d", d)
		}
		n *= d
	}
	if len(jt.Data) != n {
		return fmt.Errorf("tensor: data length %d does not match dims %v", len(jt.Data), jt.Dims)
	}
	t.dims = jt.Dims
	t.data = jt.Data
	return nil
}
