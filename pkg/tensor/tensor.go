// Package tensor provides dense float64 tensors backed by NumPy .npy files.
//
// Recording data (signal traces, frame timestamps, frame chunks) is stored
// on disk in the NumPy array format. Reads go through npyio and accept any
// rank; float32 payloads are widened to float64. Files in Fortran
// (column-major) order are rejected rather than silently transposed.
package tensor

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/sbinet/npyio"
	"gonum.org/v1/gonum/mat"
)

// Dense is a row-major tensor of float64 values.
type Dense struct {
	shape []int
	data  []float64
}

// New wraps data as a tensor with the given shape. The data slice is kept,
// not copied; its length must equal the product of the shape dimensions.
func New(shape []int, data []float64) (*Dense, error) {
	n := 1
	for _, d := range shape {
		if d < 0 {
			return nil, fmt.Errorf("tensor: negative dimension in shape %v", shape)
		}
		n *= d
	}
	if n != len(data) {
		return nil, fmt.Errorf("tensor: shape %v needs %d values, got %d", shape, n, len(data))
	}
	s := make([]int, len(shape))
	copy(s, shape)
	return &Dense{shape: s, data: data}, nil
}

// Zeros returns a zero-filled tensor with the given shape.
func Zeros(shape ...int) *Dense {
	n := 1
	for _, d := range shape {
		n *= d
	}
	t, _ := New(shape, make([]float64, n))
	return t
}

// Shape returns a copy of the tensor's dimensions.
func (t *Dense) Shape() []int {
	s := make([]int, len(t.shape))
	copy(s, t.shape)
	return s
}

// Rank returns the number of dimensions.
func (t *Dense) Rank() int { return len(t.shape) }

// Len returns the total number of elements.
func (t *Dense) Len() int { return len(t.data) }

// Data returns the backing slice in row-major order. The slice is shared
// with the tensor, not copied.
func (t *Dense) Data() []float64 { return t.data }

// RowLen returns the number of elements in one first-axis entry, i.e. the
// product of all dimensions after the first.
func (t *Dense) RowLen() int {
	if len(t.shape) == 0 {
		return 0
	}
	n := 1
	for _, d := range t.shape[1:] {
		n *= d
	}
	return n
}

// Row returns the i-th first-axis entry as a flat view into the tensor.
// It panics if i is out of range.
func (t *Dense) Row(i int) []float64 {
	n := t.RowLen()
	if len(t.shape) == 0 || i < 0 || i >= t.shape[0] {
		panic(fmt.Sprintf("tensor: row %d out of range for shape %v", i, t.shape))
	}
	return t.data[i*n : (i+1)*n]
}

// At returns the element at the given indices. It panics if the number of
// indices does not match the rank or an index is out of range, mirroring
// gonum's matrix access semantics.
func (t *Dense) At(idx ...int) float64 {
	if len(idx) != len(t.shape) {
		panic(fmt.Sprintf("tensor: %d indices for rank-%d tensor", len(idx), len(t.shape)))
	}
	off := 0
	for d, i := range idx {
		if i < 0 || i >= t.shape[d] {
			panic(fmt.Sprintf("tensor: index %v out of range for shape %v", idx, t.shape))
		}
		off = off*t.shape[d] + i
	}
	return t.data[off]
}

// Matrix returns a rank-2 tensor as a gonum matrix sharing the same
// backing data.
func (t *Dense) Matrix() (*mat.Dense, error) {
	if len(t.shape) != 2 {
		return nil, fmt.Errorf("tensor: shape %v is not a matrix", t.shape)
	}
	r, c := t.shape[0], t.shape[1]
	if r == 0 || c == 0 {
		return nil, fmt.Errorf("tensor: empty matrix dimensions %v", t.shape)
	}
	return mat.NewDense(r, c, t.data), nil
}

// Open reads the .npy file at path.
func Open(path string) (*Dense, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("tensor: %w", err)
	}
	defer f.Close()
	t, err := Read(f)
	if err != nil {
		return nil, fmt.Errorf("tensor: %s: %w", path, err)
	}
	return t, nil
}

// Read decodes one array in NumPy format from r.
func Read(r io.Reader) (*Dense, error) {
	nr, err := npyio.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("read npy header: %w", err)
	}
	descr := nr.Header.Descr
	if descr.Fortran {
		return nil, fmt.Errorf("fortran-ordered arrays are not supported")
	}
	shape := descr.Shape
	n := 1
	for _, d := range shape {
		n *= d
	}
	switch {
	case strings.HasSuffix(descr.Type, "f8"):
		data := make([]float64, n)
		if err := nr.Read(&data); err != nil {
			return nil, fmt.Errorf("read npy data: %w", err)
		}
		return New(shape, data)
	case strings.HasSuffix(descr.Type, "f4"):
		raw := make([]float32, n)
		if err := nr.Read(&raw); err != nil {
			return nil, fmt.Errorf("read npy data: %w", err)
		}
		data := make([]float64, n)
		for i, v := range raw {
			data[i] = float64(v)
		}
		return New(shape, data)
	default:
		return nil, fmt.Errorf("unsupported npy dtype %q", descr.Type)
	}
}

// Save writes t to path in NumPy format, creating the file with mode 0644.
func Save(path string, t *Dense) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("tensor: %w", err)
	}
	defer f.Close()
	if err := Write(f, t); err != nil {
		return fmt.Errorf("tensor: %s: %w", path, err)
	}
	return nil
}

// Write encodes t to w in NumPy format. Vectors and matrices go through
// npyio; npyio's writer stops at rank 2, so higher ranks emit the same
// v1.0 header directly followed by the little-endian payload.
func Write(w io.Writer, t *Dense) error {
	switch len(t.shape) {
	case 1:
		return npyio.Write(w, t.data)
	case 2:
		m, err := t.Matrix()
		if err != nil {
			return err
		}
		return npyio.Write(w, m)
	default:
		return writeRaw(w, t)
	}
}

func writeRaw(w io.Writer, t *Dense) error {
	dims := make([]string, len(t.shape))
	for i, d := range t.shape {
		dims[i] = fmt.Sprintf("%d", d)
	}
	shape := strings.Join(dims, ", ")
	if len(t.shape) == 1 {
		shape += ","
	}
	header := fmt.Sprintf("{'descr': '<f8', 'fortran_order': False, 'shape': (%s), }", shape)

	// Magic, version, header length and header must total a multiple of 64.
	pad := 64 - (10+len(header)+1)%64
	if pad == 64 {
		pad = 0
	}
	header += strings.Repeat(" ", pad) + "\n"

	if _, err := w.Write([]byte("\x93NUMPY\x01\x00")); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, uint16(len(header))); err != nil {
		return err
	}
	if _, err := io.WriteString(w, header); err != nil {
		return err
	}
	return binary.Write(w, binary.LittleEndian, t.data)
}
