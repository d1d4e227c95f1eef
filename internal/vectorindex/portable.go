package vectorindex

import (
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"sync"

	"github.com/ragcore/ragcore/internal/ragerr"
)

// portableFormatVersion is the only version this reader/writer understands.
const portableFormatVersion uint32 = 1

// Portable is an exhaustive-search index over an in-memory list of (id,
// vector) pairs, persisted in a fixed binary layout so it can be read on any
// platform without native bindings.
//
// On-disk layout: u32 version | u32 dimension | u32 count | count ×
// (i64 id, f32[dimension]).
type Portable struct {
	mu        sync.RWMutex
	dimension int
	ids       []int64
	vectors   [][]float32
}

// NewPortable creates an empty portable index for the given dimension.
func NewPortable(dimension int) *Portable {
	return &Portable{dimension: dimension}
}

func (p *Portable) Dimension() int { return p.dimension }

func (p *Portable) Count() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.ids)
}

// AddWithIDs appends defensive copies of vectors and ids under exclusive
// lock. A length mismatch between vectors and ids is fatal.
func (p *Portable) AddWithIDs(vectors [][]float32, ids []int64) error {
	if len(vectors) != len(ids) {
		return ragerr.DataIntegrity("ERR_VEC_LEN_MISMATCH",
			fmt.Sprintf("vectors/ids length mismatch: %d vs %d", len(vectors), len(ids)), nil)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	for i, v := range vectors {
		if len(v) != p.dimension {
			return dimensionMismatch(p.dimension, len(v))
		}
		cp := make([]float32, len(v))
		copy(cp, v)
		p.vectors = append(p.vectors, cp)
		p.ids = append(p.ids, ids[i])
	}
	return nil
}

// Search performs an exhaustive dot-product search against every stored
// vector. When fewer than topK records exist, unfilled slots carry score 0.0
// and id MissingID.
func (p *Portable) Search(queries [][]float32, topK int) ([][]float32, [][]int64, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	scores := make([][]float32, len(queries))
	ids := make([][]int64, len(queries))

	for qi, q := range queries {
		if len(q) != p.dimension {
			return nil, nil, dimensionMismatch(p.dimension, len(q))
		}
		scores[qi], ids[qi] = p.searchOne(q, topK)
	}
	return scores, ids, nil
}

func (p *Portable) searchOne(query []float32, topK int) ([]float32, []int64) {
	type hit struct {
		score float32
		id    int64
	}
	hits := make([]hit, len(p.vectors))
	for i, v := range p.vectors {
		hits[i] = hit{score: dotProduct(query, v), id: p.ids[i]}
	}

	// Partial selection sort: topK is typically small relative to the corpus.
	n := topK
	if n > len(hits) {
		n = len(hits)
	}
	for i := 0; i < n; i++ {
		best := i
		for j := i + 1; j < len(hits); j++ {
			if hits[j].score > hits[best].score {
				best = j
			}
		}
		hits[i], hits[best] = hits[best], hits[i]
	}

	scores := make([]float32, topK)
	ids := make([]int64, topK)
	for i := 0; i < topK; i++ {
		if i < n {
			scores[i] = hits[i].score
			ids[i] = hits[i].id
		} else {
			scores[i] = 0.0
			ids[i] = MissingID
		}
	}
	return scores, ids
}

// AllIDs returns every identifier currently stored, in insertion order.
func (p *Portable) AllIDs() []int64 {
	p.mu.RLock()
	defer p.mu.RUnlock()

	out := make([]int64, len(p.ids))
	copy(out, p.ids)
	return out
}

// Delete removes the given ids and their vectors. Unknown ids are ignored.
func (p *Portable) Delete(ids []int64) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	remove := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		remove[id] = struct{}{}
	}

	keptIDs := p.ids[:0]
	keptVectors := p.vectors[:0]
	for i, id := range p.ids {
		if _, gone := remove[id]; gone {
			continue
		}
		keptIDs = append(keptIDs, id)
		keptVectors = append(keptVectors, p.vectors[i])
	}
	p.ids = keptIDs
	p.vectors = keptVectors
	return nil
}

func dotProduct(a, b []float32) float32 {
	var sum float32
	for i := range a {
		sum += a[i] * b[i]
	}
	return sum
}

// Save writes the index in the fixed binary layout.
func (p *Portable) Save(path string) error {
	p.mu.RLock()
	defer p.mu.RUnlock()

	f, err := os.Create(path)
	if err != nil {
		return ragerr.TransientIO("ERR_VEC_SAVE", fmt.Sprintf("failed to create %q", path), err)
	}
	defer f.Close()

	header := make([]byte, 12)
	binary.LittleEndian.PutUint32(header[0:4], portableFormatVersion)
	binary.LittleEndian.PutUint32(header[4:8], uint32(p.dimension))
	binary.LittleEndian.PutUint32(header[8:12], uint32(len(p.ids)))
	if _, err := f.Write(header); err != nil {
		return ragerr.TransientIO("ERR_VEC_SAVE", "failed to write header", err)
	}

	record := make([]byte, 8+4*p.dimension)
	for i, id := range p.ids {
		binary.LittleEndian.PutUint64(record[0:8], uint64(id))
		for d, x := range p.vectors[i] {
			binary.LittleEndian.PutUint32(record[8+4*d:12+4*d], math.Float32bits(x))
		}
		if _, err := f.Write(record); err != nil {
			return ragerr.TransientIO("ERR_VEC_SAVE", "failed to write record", err)
		}
	}
	return nil
}

// Load reads the fixed binary layout, replacing the in-memory contents.
func (p *Portable) Load(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return ragerr.Resource("ERR_VEC_LOAD", fmt.Sprintf("vector index %q not found", path), err)
	}
	if len(data) < 12 {
		return ragerr.DataIntegrity("ERR_VEC_TRUNCATED", "vector index file is shorter than its header", nil)
	}

	version := binary.LittleEndian.Uint32(data[0:4])
	if version != portableFormatVersion {
		return ragerr.DataIntegrity("ERR_VEC_VERSION",
			fmt.Sprintf("unsupported vector index version %d", version), nil)
	}
	dimension := int(binary.LittleEndian.Uint32(data[4:8]))
	count := int(binary.LittleEndian.Uint32(data[8:12]))

	recordSize := 8 + 4*dimension
	want := 12 + recordSize*count
	if len(data) != want {
		return ragerr.DataIntegrity("ERR_VEC_TRUNCATED",
			fmt.Sprintf("vector index %q has %d bytes, expected %d", path, len(data), want), nil)
	}

	ids := make([]int64, count)
	vectors := make([][]float32, count)
	off := 12
	for i := 0; i < count; i++ {
		ids[i] = int64(binary.LittleEndian.Uint64(data[off : off+8]))
		vec := make([]float32, dimension)
		base := off + 8
		for d := 0; d < dimension; d++ {
			vec[d] = math.Float32frombits(binary.LittleEndian.Uint32(data[base+4*d : base+4*d+4]))
		}
		vectors[i] = vec
		off += recordSize
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.dimension = dimension
	p.ids = ids
	p.vectors = vectors
	return nil
}

func (p *Portable) Dispose() error { return nil }
