package progress

import (
	"sync"
	"sync/atomic"

	"github.com/cespare/xxhash/v2"
	"github.com/v-gu/mysqltc/model"
)

type Result int

const (
	Unchanged Result = iota
	Changed
)

func (r Result) String() string {
	if r == Changed {
		return "changed"
	}
	return "unchanged"
}

const DefaultShards = 16

type entry struct {
	pos model.Position
	// unchanged notifications since the last change
	repeats uint64
}

type shard struct {
	mtx     sync.RWMutex
	entries map[string]*entry
}

// Store keeps the last known binlog position of every consumer. Consumer ids
// are spread over independently locked shards so that notifications for
// different consumers do not contend on one mutex.
type Store struct {
	shards       []*shard
	countRepeats bool
}

type StoreOption func(*Store)

// WithRepeatCounting makes Record count unchanged notifications per server.
// Without it the unchanged path performs no writes at all.
func WithRepeatCounting() StoreOption {
	return func(s *Store) {
		s.countRepeats = true
	}
}

func NewStore(shards int, opts ...StoreOption) *Store {
	if shards <= 0 {
		shards = DefaultShards
	}
	s := &Store{shards: make([]*shard, shards)}
	for _, opt := range opts {
		opt(s)
	}
	for i := range s.shards {
		s.shards[i] = &shard{entries: make(map[string]*entry)}
	}
	return s
}

func (s *Store) shardOf(serverId string) *shard {
	return s.shards[xxhash.Sum64String(serverId)%uint64(len(s.shards))]
}

// RecordIfChanged stores pos for serverId unless it equals the stored one.
func (s *Store) RecordIfChanged(serverId string, pos model.Position) Result {
	res, _ := s.Record(serverId, pos)
	return res
}

// Record is RecordIfChanged that also reports how many unchanged
// notifications in a row serverId has seen, counting this one. The count is
// always zero unless the store was built WithRepeatCounting.
func (s *Store) Record(serverId string, pos model.Position) (Result, uint64) {
	if serverId == "" {
		panic("progress: empty server id")
	}
	if !pos.Valid() {
		panic("progress: empty binlog file for server " + serverId)
	}
	sh := s.shardOf(serverId)

	var (
		repeats uint64
		hit     bool
	)
	withReadLock(&sh.mtx, func() {
		if e, ok := sh.entries[serverId]; ok && e.pos == pos {
			if s.countRepeats {
				repeats = atomic.AddUint64(&e.repeats, 1)
			}
			hit = true
		}
	})
	if hit {
		return Unchanged, repeats
	}

	res := Changed
	withWriteLock(&sh.mtx, func() {
		e, ok := sh.entries[serverId]
		switch {
		case !ok:
			sh.entries[serverId] = &entry{pos: pos}
		case e.pos == pos:
			// another caller stored the same position in between
			res = Unchanged
			if s.countRepeats {
				repeats = atomic.AddUint64(&e.repeats, 1)
			}
		default:
			e.pos = pos
			if s.countRepeats {
				atomic.StoreUint64(&e.repeats, 0)
			}
		}
	})
	return res, repeats
}

func (s *Store) Get(serverId string) (pos model.Position, ok bool) {
	sh := s.shardOf(serverId)
	withReadLock(&sh.mtx, func() {
		var e *entry
		if e, ok = sh.entries[serverId]; ok {
			pos = e.pos
		}
	})
	return
}

func (s *Store) Len() int {
	n := 0
	for _, sh := range s.shards {
		withReadLock(&sh.mtx, func() {
			n += len(sh.entries)
		})
	}
	return n
}

// Range calls fn for every tracked consumer. Each shard is locked while it is
// being visited, so fn must not call back into the store.
func (s *Store) Range(fn func(serverId string, pos model.Position)) {
	for _, sh := range s.shards {
		withReadLock(&sh.mtx, func() {
			for id, e := range sh.entries {
				fn(id, e.pos)
			}
		})
	}
}

func withWriteLock(lock *sync.RWMutex, fn func()) {
	lock.Lock()
	defer lock.Unlock()
	fn()
}

func withReadLock(lock *sync.RWMutex, fn func()) {
	lock.RLock()
	defer lock.RUnlock()
	fn()
}
