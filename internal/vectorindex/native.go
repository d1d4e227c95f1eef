package vectorindex

import (
	"bufio"
	"encoding/gob"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/coder/hnsw"

	"github.com/ragcore/ragcore/internal/ragerr"
)

// Native is an HNSW-backed approximate index keyed directly by the caller's
// int64 identifiers (coder/hnsw supports arbitrary ordered key types, so no
// secondary id-mapping table is needed). coder/hnsw has no true delete, so
// Delete uses the same lazy-deletion approach as the teacher's HNSWStore:
// orphaned keys stay in the graph but are filtered out of AllIDs and search
// results.
type Native struct {
	mu        sync.RWMutex
	graph     *hnsw.Graph[int64]
	dimension int
	count     int
	ids       []int64
	deleted   map[int64]struct{}
}

// NewNative creates an empty HNSW index using an inner-product metric.
func NewNative(dimension int) *Native {
	graph := hnsw.NewGraph[int64]()
	graph.Distance = negatedInnerProduct
	return &Native{graph: graph, dimension: dimension, deleted: make(map[int64]struct{})}
}

// negatedInnerProduct turns inner product (similarity, higher is better)
// into a distance (lower is better) as coder/hnsw always walks toward
// smaller distances.
func negatedInnerProduct(a, b []float32) float32 {
	return -dotProduct(a, b)
}

func (n *Native) Dimension() int { return n.dimension }

func (n *Native) Count() int {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.count
}

func (n *Native) AddWithIDs(vectors [][]float32, ids []int64) error {
	if len(vectors) != len(ids) {
		return ragerr.DataIntegrity("ERR_VEC_LEN_MISMATCH",
			fmt.Sprintf("vectors/ids length mismatch: %d vs %d", len(vectors), len(ids)), nil)
	}

	n.mu.Lock()
	defer n.mu.Unlock()

	for i, v := range vectors {
		if len(v) != n.dimension {
			return dimensionMismatch(n.dimension, len(v))
		}
		cp := make([]float32, len(v))
		copy(cp, v)
		n.graph.Add(hnsw.MakeNode(ids[i], cp))
		delete(n.deleted, ids[i])
		n.ids = append(n.ids, ids[i])
		n.count++
	}
	return nil
}

// AllIDs returns every non-deleted identifier added so far, in insertion
// order.
func (n *Native) AllIDs() []int64 {
	n.mu.RLock()
	defer n.mu.RUnlock()

	out := make([]int64, 0, len(n.ids))
	for _, id := range n.ids {
		if _, gone := n.deleted[id]; !gone {
			out = append(out, id)
		}
	}
	return out
}

// Delete lazily removes ids: the graph keeps the underlying nodes (coder/hnsw
// has no true delete) but they no longer appear in AllIDs or search results.
func (n *Native) Delete(ids []int64) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	for _, id := range ids {
		if _, already := n.deleted[id]; already {
			continue
		}
		n.deleted[id] = struct{}{}
		n.count--
	}
	return nil
}

func (n *Native) Search(queries [][]float32, topK int) ([][]float32, [][]int64, error) {
	n.mu.RLock()
	defer n.mu.RUnlock()

	scores := make([][]float32, len(queries))
	ids := make([][]int64, len(queries))

	for qi, q := range queries {
		if len(q) != n.dimension {
			return nil, nil, dimensionMismatch(n.dimension, len(q))
		}
		s, id := n.searchOne(q, topK)
		scores[qi] = s
		ids[qi] = id
	}
	return scores, ids, nil
}

func (n *Native) searchOne(query []float32, topK int) ([]float32, []int64) {
	scores := make([]float32, topK)
	ids := make([]int64, topK)
	for i := range ids {
		ids[i] = MissingID
	}

	if n.graph.Len() == 0 {
		return scores, ids
	}

	fetch := topK
	if len(n.deleted) > 0 {
		fetch = topK + len(n.deleted)
	}
	nodes := n.graph.Search(query, fetch)

	i := 0
	for _, node := range nodes {
		if i >= topK {
			break
		}
		if _, gone := n.deleted[node.Key]; gone {
			continue
		}
		scores[i] = dotProduct(query, node.Value)
		ids[i] = node.Key
		i++
	}
	return scores, ids
}

// Save writes the HNSW graph binary export atomically (temp file + rename).
func (n *Native) Save(path string) error {
	n.mu.RLock()
	defer n.mu.RUnlock()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return ragerr.TransientIO("ERR_VEC_SAVE", "failed to create index directory", err)
	}

	tmpPath := path + ".tmp"
	f, err := os.Create(tmpPath)
	if err != nil {
		return ragerr.TransientIO("ERR_VEC_SAVE", "failed to create index file", err)
	}
	if err := n.graph.Export(f); err != nil {
		f.Close()
		os.Remove(tmpPath)
		return ragerr.TransientIO("ERR_VEC_SAVE", "failed to export hnsw graph", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmpPath)
		return ragerr.TransientIO("ERR_VEC_SAVE", "failed to close index file", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return ragerr.TransientIO("ERR_VEC_SAVE", "failed to rename index file", err)
	}

	return n.saveMeta(path + ".meta")
}

func (n *Native) saveMeta(path string) error {
	tmpPath := path + ".tmp"
	f, err := os.Create(tmpPath)
	if err != nil {
		return ragerr.TransientIO("ERR_VEC_SAVE", "failed to create meta file", err)
	}
	meta := nativeMeta{Dimension: n.dimension, Count: n.count, IDs: n.ids, Deleted: n.deleted}
	if err := gob.NewEncoder(f).Encode(meta); err != nil {
		f.Close()
		os.Remove(tmpPath)
		return ragerr.TransientIO("ERR_VEC_SAVE", "failed to encode meta", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmpPath)
		return ragerr.TransientIO("ERR_VEC_SAVE", "failed to close meta file", err)
	}
	return os.Rename(tmpPath, path)
}

type nativeMeta struct {
	Dimension int
	Count     int
	IDs       []int64
	Deleted   map[int64]struct{}
}

// Load replaces the in-memory graph with the one stored at path.
func (n *Native) Load(path string) error {
	metaFile, err := os.Open(path + ".meta")
	if err != nil {
		return ragerr.Resource("ERR_VEC_LOAD", fmt.Sprintf("vector index metadata %q not found", path+".meta"), err)
	}
	var meta nativeMeta
	decErr := gob.NewDecoder(metaFile).Decode(&meta)
	metaFile.Close()
	if decErr != nil {
		return ragerr.DataIntegrity("ERR_VEC_LOAD", "failed to decode vector index metadata", decErr)
	}

	f, err := os.Open(path)
	if err != nil {
		return ragerr.Resource("ERR_VEC_LOAD", fmt.Sprintf("vector index %q not found", path), err)
	}
	defer f.Close()

	graph := hnsw.NewGraph[int64]()
	graph.Distance = negatedInnerProduct
	if err := graph.Import(bufio.NewReader(f)); err != nil {
		return ragerr.DataIntegrity("ERR_VEC_LOAD", "failed to import hnsw graph", err)
	}

	n.mu.Lock()
	defer n.mu.Unlock()
	n.graph = graph
	n.dimension = meta.Dimension
	n.count = meta.Count
	n.ids = meta.IDs
	n.deleted = meta.Deleted
	if n.deleted == nil {
		n.deleted = make(map[int64]struct{})
	}
	return nil
}

func (n *Native) Dispose() error { return nil }
