package visstream

import (
	"fmt"
	"math"

	"github.com/ahmedkamals/visstream/internal/errors"
)

type (
	// Mesh is an unstructured mesh: vertex coordinates and element connectivity.
	Mesh struct {
		Dimension int
		Vertices  [][]float64
		Elements  [][]int
	}

	// Field holds VectorDim values per mesh vertex, vertex major.
	Field struct {
		VectorDim int
		Values    []float64
	}

	// Box is an axis aligned bounding box. Unused axes stay zero.
	Box struct {
		Min [3]float64 `json:"min"`
		Max [3]float64 `json:"max"`
	}
)

// Validate checks coordinate counts and element indices.
func (m *Mesh) Validate() error {
	const op errors.Operation = "Mesh.Validate"

	if m == nil {
		return errors.E(op, errors.Invalid)
	}

	if m.Dimension < 1 || m.Dimension > 3 {
		return errors.E(op, errors.Invalid, errors.Errorf("unsupported dimension %d", m.Dimension))
	}

	for i, vertex := range m.Vertices {
		if len(vertex) != m.Dimension {
			return errors.E(op, errors.Invalid, errors.Errorf("vertex %d has %d coordinates, expected %d", i, len(vertex), m.Dimension))
		}
	}

	for i, element := range m.Elements {
		if len(element) == 0 {
			return errors.E(op, errors.Invalid, errors.Errorf("element %d is empty", i))
		}
		for _, index := range element {
			if index < 0 || index >= len(m.Vertices) {
				return errors.E(op, errors.Invalid, errors.Errorf("element %d references vertex %d of %d", i, index, len(m.Vertices)))
			}
		}
	}

	return nil
}

// Bounds returns the bounding box of the vertices.
func (m *Mesh) Bounds() Box {
	box := Box{}
	if m == nil || len(m.Vertices) == 0 {
		return box
	}

	for axis := 0; axis < m.Dimension; axis++ {
		box.Min[axis] = math.Inf(1)
		box.Max[axis] = math.Inf(-1)
	}

	for _, vertex := range m.Vertices {
		for axis, coordinate := range vertex {
			box.Min[axis] = math.Min(box.Min[axis], coordinate)
			box.Max[axis] = math.Max(box.Max[axis], coordinate)
		}
	}

	return box
}

func (m *Mesh) String() string {
	if m == nil {
		return "mesh<nil>"
	}

	return fmt.Sprintf("mesh[dim=%d, vertices=%d, elements=%d]", m.Dimension, len(m.Vertices), len(m.Elements))
}

// Validate checks that the field has one value set per vertex of mesh.
func (f *Field) Validate(mesh *Mesh) error {
	const op errors.Operation = "Field.Validate"

	if f == nil || mesh == nil {
		return errors.E(op, errors.Invalid)
	}

	if f.VectorDim < 1 {
		return errors.E(op, errors.Invalid, errors.Errorf("unsupported vector dimension %d", f.VectorDim))
	}

	if expected := len(mesh.Vertices) * f.VectorDim; len(f.Values) != expected {
		return errors.E(op, errors.Invalid, errors.Errorf("field has %d values, mesh needs %d", len(f.Values), expected))
	}

	return nil
}

// Range returns the smallest and largest scalar value. Vector fields are
// measured by magnitude.
func (f *Field) Range() (float64, float64) {
	if f == nil || f.VectorDim < 1 || len(f.Values) < f.VectorDim {
		return 0, 0
	}

	minValue, maxValue := math.Inf(1), math.Inf(-1)
	for i := 0; i+f.VectorDim <= len(f.Values); i += f.VectorDim {
		value := f.Values[i]
		if f.VectorDim > 1 {
			sum := 0.0
			for _, component := range f.Values[i : i+f.VectorDim] {
				sum += component * component
			}
			value = math.Sqrt(sum)
		}
		minValue = math.Min(minValue, value)
		maxValue = math.Max(maxValue, value)
	}

	return minValue, maxValue
}

func (f *Field) String() string {
	if f == nil {
		return "field<nil>"
	}

	return fmt.Sprintf("field[vdim=%d, values=%d]", f.VectorDim, len(f.Values))
}
