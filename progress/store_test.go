package progress

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/v-gu/mysqltc/model"
)

func pos(file string, offset uint64) model.Position {
	return model.Position{File: file, Offset: offset}
}

func TestRecordIfChanged(t *testing.T) {
	s := NewStore(4)

	require.Equal(t, Changed, s.RecordIfChanged("5", pos("mysql-bin.000001", 4)))
	require.Equal(t, Unchanged, s.RecordIfChanged("5", pos("mysql-bin.000001", 4)))
	require.Equal(t, Changed, s.RecordIfChanged("5", pos("mysql-bin.000001", 150)))
	// file change with a smaller offset is still a change
	require.Equal(t, Changed, s.RecordIfChanged("5", pos("mysql-bin.000002", 4)))
	require.Equal(t, Changed, s.RecordIfChanged("5", pos("mysql-bin.000003", 4)))

	got, ok := s.Get("5")
	require.True(t, ok)
	assert.Equal(t, pos("mysql-bin.000003", 4), got)
	assert.Equal(t, 1, s.Len())
}

func TestRecordAlternatingPositions(t *testing.T) {
	s := NewStore(0)
	seq := []model.Position{
		pos("a", 1), pos("a", 1), pos("b", 1), pos("a", 1), pos("a", 1), pos("a", 2), pos("b", 1), pos("b", 1),
	}
	want := []Result{Changed, Unchanged, Changed, Changed, Unchanged, Changed, Changed, Unchanged}

	for i, p := range seq {
		assert.Equal(t, want[i], s.RecordIfChanged("1", p), "call %d", i)
	}
	got, _ := s.Get("1")
	assert.Equal(t, pos("b", 1), got)
}

func TestRecordRepeats(t *testing.T) {
	s := NewStore(1, WithRepeatCounting())
	res, n := s.Record("1", pos("a", 1))
	assert.Equal(t, Changed, res)
	assert.Zero(t, n)

	for i := uint64(1); i <= 3; i++ {
		res, n = s.Record("1", pos("a", 1))
		assert.Equal(t, Unchanged, res)
		assert.Equal(t, i, n)
	}

	res, n = s.Record("1", pos("a", 2))
	assert.Equal(t, Changed, res)
	assert.Zero(t, n)
	_, n = s.Record("1", pos("a", 2))
	assert.Equal(t, uint64(1), n)
}

func TestUnchangedPathDoesNotCount(t *testing.T) {
	s := NewStore(1)
	s.Record("1", pos("a", 1))
	for i := 0; i < 5; i++ {
		res, n := s.Record("1", pos("a", 1))
		assert.Equal(t, Unchanged, res)
		assert.Zero(t, n)
	}
	e := s.shardOf("1").entries["1"]
	assert.Zero(t, e.repeats)
}

func TestNoDuplicateEntries(t *testing.T) {
	s := NewStore(8)
	const servers = 50

	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				id := fmt.Sprintf("%d", i%servers)
				s.RecordIfChanged(id, pos("mysql-bin.000001", uint64(w*1000+i)))
			}
		}(w)
	}
	wg.Wait()

	assert.Equal(t, servers, s.Len())
	seen := map[string]bool{}
	s.Range(func(id string, _ model.Position) {
		assert.False(t, seen[id], "duplicate entry for %s", id)
		seen[id] = true
	})
	assert.Len(t, seen, servers)
}

// Every distinct position sent concurrently for one server must be accepted
// exactly once.
func TestConcurrentSameServer(t *testing.T) {
	s := NewStore(2)
	const workers, per = 8, 500

	var (
		wg      sync.WaitGroup
		mtx     sync.Mutex
		changed int
	)
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			local := 0
			for i := 0; i < per; i++ {
				// all workers send the same position twice in a row
				if s.RecordIfChanged("7", pos("mysql-bin.000001", uint64(i/2))) == Changed {
					local++
				}
			}
			mtx.Lock()
			changed += local
			mtx.Unlock()
		}()
	}
	wg.Wait()

	assert.True(t, changed >= per/2, "at least one change per distinct offset, got %d", changed)
	assert.Equal(t, 1, s.Len())
}

func TestIndependentServers(t *testing.T) {
	s := NewStore(4)
	var wg sync.WaitGroup
	for _, id := range []string{"1", "2"} {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			for i := uint64(1); i <= 1000; i++ {
				assert.Equal(t, Changed, s.RecordIfChanged(id, pos("bin."+id, i)))
			}
		}(id)
	}
	wg.Wait()

	require.Equal(t, 2, s.Len())
	p1, _ := s.Get("1")
	p2, _ := s.Get("2")
	assert.Equal(t, pos("bin.1", 1000), p1)
	assert.Equal(t, pos("bin.2", 1000), p2)
}

func TestRecordPreconditions(t *testing.T) {
	s := NewStore(1)
	assert.Panics(t, func() { s.RecordIfChanged("", pos("a", 1)) })
	assert.Panics(t, func() { s.RecordIfChanged("1", pos("", 1)) })
	assert.Zero(t, s.Len())
}

func TestGetUnknown(t *testing.T) {
	_, ok := NewStore(1).Get("nope")
	assert.False(t, ok)
}
