package store

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"finrag/internal/domain"
	"finrag/internal/vectorstore/memory"
)

func corpus(t *testing.T, ids ...string) ([]domain.Document, *memory.Index) {
	t.Helper()
	index, err := memory.NewIndex(2)
	require.NoError(t, err)
	docs := make([]domain.Document, len(ids))
	vecs := make([][]float64, len(ids))
	for i, id := range ids {
		docs[i] = domain.Document{Text: id, Txn: domain.Transaction{TxnID: id}}
		vecs[i] = []float64{1, 0}
	}
	require.NoError(t, index.Add(docs, vecs))
	return docs, index
}

func TestSnapshotMissingUser(t *testing.T) {
	m := NewManager(0)
	_, ok := m.Snapshot("nobody")
	assert.False(t, ok)
	assert.False(t, m.StoreStatus("nobody").Ingested)
}

func TestReplaceAndSnapshot(t *testing.T) {
	m := NewManager(0)
	docs, index := corpus(t, "a", "b")
	m.Replace("u1", docs, index)

	st, ok := m.Snapshot("u1")
	require.True(t, ok)
	assert.Len(t, st.Documents, 2)
	assert.Equal(t, 2, st.Index.Len())

	status := m.StoreStatus("u1")
	assert.True(t, status.Ingested)
	assert.Equal(t, 2, status.Count)
}

func TestReplaceIsAtomicUnderConcurrency(t *testing.T) {
	m := NewManager(0)
	docsA, indexA := corpus(t, "a1", "a2", "a3")
	docsB, indexB := corpus(t, "b1", "b2")
	m.Replace("u1", docsA, indexA)

	stop := make(chan struct{})
	var wg sync.WaitGroup
	for w := 0; w < 4; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
				}
				st, ok := m.Snapshot("u1")
				if !ok {
					t.Error("store vanished mid-swap")
					return
				}
				// A snapshot is either corpus A or corpus B in full.
				n := len(st.Documents)
				if n != 3 && n != 2 {
					t.Errorf("observed torn store of %d documents", n)
					return
				}
				if st.Index.Len() != n {
					t.Errorf("index size %d disagrees with %d documents", st.Index.Len(), n)
					return
				}
			}
		}()
	}

	for i := 0; i < 500; i++ {
		if i%2 == 0 {
			m.Replace("u1", docsB, indexB)
		} else {
			m.Replace("u1", docsA, indexA)
		}
	}
	close(stop)
	wg.Wait()
}

func TestPerUserIsolation(t *testing.T) {
	m := NewManager(0)
	docs1, index1 := corpus(t, "u1-t1", "u1-t2")
	docs2, index2 := corpus(t, "u2-t1")
	m.Replace("u1", docs1, index1)
	m.Replace("u2", docs2, index2)

	st1, _ := m.Snapshot("u1")
	st2, _ := m.Snapshot("u2")
	assert.Len(t, st1.Documents, 2)
	assert.Len(t, st2.Documents, 1)
	for _, d := range st2.Documents {
		assert.NotContains(t, []string{"u1-t1", "u1-t2"}, d.Txn.TxnID)
	}
}

func TestConcurrentCreationMakesOneEntry(t *testing.T) {
	m := NewManager(0)
	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			e := m.getOrCreateEntry("same-user")
			assert.NotNil(t, e)
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, m.Len())
}

func TestIngestLockSerializes(t *testing.T) {
	m := NewManager(0)
	var inside, maxInside int
	var mu sync.Mutex
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := m.IngestLock("u1")
			defer unlock()
			mu.Lock()
			inside++
			if inside > maxInside {
				maxInside = inside
			}
			mu.Unlock()
			time.Sleep(time.Millisecond)
			mu.Lock()
			inside--
			mu.Unlock()
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, maxInside)
}

func TestEvictIdle(t *testing.T) {
	m := NewManager(time.Hour)
	clock := time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return clock }

	docs, index := corpus(t, "a")
	m.Replace("stale", docs, index)

	clock = clock.Add(30 * time.Minute)
	m.Replace("fresh", docs, index)

	clock = clock.Add(45 * time.Minute)
	assert.Equal(t, 1, m.EvictIdle())

	_, ok := m.Snapshot("stale")
	assert.False(t, ok, "stale store evicted; user must re-ingest")
	_, ok = m.Snapshot("fresh")
	assert.True(t, ok)
}

func TestEvictionDisabledWithoutTTL(t *testing.T) {
	m := NewManager(0)
	docs, index := corpus(t, "a")
	m.Replace("u", docs, index)
	assert.Equal(t, 0, m.EvictIdle())
}
