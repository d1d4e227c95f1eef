package writer

import (
	"context"
	"log/slog"
	"time"

	"github.com/ragcore/ragcore/internal/chunkstore"
)

// InconsistencyType categorizes a detected cross-store issue.
type InconsistencyType int

const (
	InconsistencyOrphanVector InconsistencyType = iota
	InconsistencyOrphanLexical
	InconsistencyMissingVector
	InconsistencyMissingLexical
)

func (t InconsistencyType) String() string {
	switch t {
	case InconsistencyOrphanVector:
		return "orphan_vector"
	case InconsistencyOrphanLexical:
		return "orphan_lexical"
	case InconsistencyMissingVector:
		return "missing_vector"
	case InconsistencyMissingLexical:
		return "missing_lexical"
	default:
		return "unknown"
	}
}

// Inconsistency is one identifier that violates the tri-store-equality
// invariant: present in one store but absent from another.
type Inconsistency struct {
	Type InconsistencyType
	ID   int64
}

// CheckResult summarizes one consistency pass.
type CheckResult struct {
	Checked         int
	Inconsistencies []Inconsistency
	Duration        time.Duration
}

// ConsistencyChecker validates that every identifier present in any of the
// chunk store, vector index, and lexical index is present in all three.
type ConsistencyChecker struct {
	chunks  chunkstore.ChunkStore
	vectors interface{ AllIDs() []int64 }
	lex     interface {
		AllIDs(ctx context.Context) ([]int64, error)
	}
}

// NewConsistencyChecker builds a checker against the stores held by w.
func NewConsistencyChecker(w *Writer) *ConsistencyChecker {
	return &ConsistencyChecker{chunks: w.chunks, vectors: w.vectors, lex: w.lex}
}

// Check scans all three stores for identifiers that are not present
// everywhere. O(n) in the total number of identifiers across all stores.
func (c *ConsistencyChecker) Check(ctx context.Context) (*CheckResult, error) {
	start := time.Now()

	chunkIDs, err := c.chunks.AllIDs(ctx)
	if err != nil {
		return nil, err
	}
	chunkSet := toSet(chunkIDs)

	vectorIDs := c.vectors.AllIDs()
	vectorSet := toSet(vectorIDs)

	lexIDs, err := c.lex.AllIDs(ctx)
	if err != nil {
		slog.Warn("consistency_check_lexicon_allids_failed", slog.String("error", err.Error()))
	}
	lexSet := toSet(lexIDs)

	var issues []Inconsistency
	for _, id := range vectorIDs {
		if _, ok := chunkSet[id]; !ok {
			issues = append(issues, Inconsistency{Type: InconsistencyOrphanVector, ID: id})
		}
	}
	for _, id := range lexIDs {
		if _, ok := chunkSet[id]; !ok {
			issues = append(issues, Inconsistency{Type: InconsistencyOrphanLexical, ID: id})
		}
	}
	for id := range chunkSet {
		if _, ok := vectorSet[id]; !ok {
			issues = append(issues, Inconsistency{Type: InconsistencyMissingVector, ID: id})
		}
		if _, ok := lexSet[id]; !ok {
			issues = append(issues, Inconsistency{Type: InconsistencyMissingLexical, ID: id})
		}
	}

	return &CheckResult{Checked: len(chunkSet), Inconsistencies: issues, Duration: time.Since(start)}, nil
}

// QuickCheck compares only counts across the three stores, cheaper than a
// full identifier scan.
func (c *ConsistencyChecker) QuickCheck(ctx context.Context) (bool, error) {
	chunkIDs, err := c.chunks.AllIDs(ctx)
	if err != nil {
		return false, err
	}
	vectorCount := len(c.vectors.AllIDs())
	lexIDs, err := c.lex.AllIDs(ctx)
	if err != nil {
		return false, err
	}
	return len(chunkIDs) == vectorCount && len(chunkIDs) == len(lexIDs), nil
}

func toSet(ids []int64) map[int64]struct{} {
	m := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		m[id] = struct{}{}
	}
	return m
}
