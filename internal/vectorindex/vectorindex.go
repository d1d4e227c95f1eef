// Package vectorindex implements C3: a vector index over (id, embedding)
// pairs behind one interface with two on-disk variants, native and
// portable.
package vectorindex

import (
	"fmt"

	"github.com/ragcore/ragcore/internal/ragerr"
)

// MissingID is the sentinel returned for unfilled result slots when fewer
// than top_k records exist.
const MissingID int64 = -1

// Index is the capability set every variant implements.
type Index interface {
	AddWithIDs(vectors [][]float32, ids []int64) error
	Search(queries [][]float32, topK int) (scores [][]float32, ids [][]int64, err error)
	AllIDs() []int64
	Delete(ids []int64) error
	Save(path string) error
	Load(path string) error
	Count() int
	Dimension() int
	Dispose() error
}

// Variant names a concrete on-disk format. Switching variants requires
// deleting and rebuilding the index: the formats are not compatible.
type Variant string

const (
	VariantNative   Variant = "native"
	VariantPortable Variant = "portable"
)

func dimensionMismatch(expected, got int) error {
	return ragerr.DataIntegrity("ERR_VEC_DIM_MISMATCH",
		fmt.Sprintf("vector dimension mismatch: index is %d, got %d", expected, got), nil)
}
