// Package framestore provides a fixed-capacity LRU cache of decoded frames
// for random-access seeking.
//
// The store never decodes on its own inside Get or Put: on a miss the caller
// decodes and inserts the result. Fetch bundles that miss path for
// navigators that own a decoder.
//
// # Copies
//
// Frames are copied on the way in and on the way out. A caller can mutate a
// frame returned by Get without affecting the cached entry or any other copy.
//
// # Thread Safety
//
// Every method serializes on a single mutex. Get needs the exclusive lock
// because promotion mutates the recency list.
package framestore

import (
	"container/list"
	"fmt"
	"sync"

	"github.com/ironsheep/video-brightness-mcp/internal/imaging"
	"github.com/ironsheep/video-brightness-mcp/internal/video"
)

// DefaultCapacity is the capacity used when none is configured.
const DefaultCapacity = 64

// CapacityError reports that a frame could not be copied into the store.
type CapacityError struct {
	Index int
	Bytes int
	Cause interface{}
}

func (e *CapacityError) Error() string {
	return fmt.Sprintf("cannot store frame %d (%d bytes): %v", e.Index, e.Bytes, e.Cause)
}

// entry is the value held by each list element.
type entry struct {
	index int
	frame video.Frame
}

// Store is an LRU cache keyed by frame index.
type Store struct {
	mu       sync.Mutex
	capacity int
	items    map[int]*list.Element
	lru      *list.List // front = most recently used
	stats    Stats
}

// New creates an empty store holding at most capacity frames.
func New(capacity int) (*Store, error) {
	if capacity < 1 {
		return nil, &imaging.ConfigError{Field: "cache_capacity", Reason: fmt.Sprintf("must be at least 1, got %d", capacity)}
	}
	return &Store{
		capacity: capacity,
		items:    make(map[int]*list.Element, capacity),
		lru:      list.New(),
	}, nil
}

// Get returns a copy of the cached frame and marks it most recently used.
// A miss returns false and leaves the cached frames and their recency order
// untouched; the only state it changes is the Misses counter in Stats.
func (s *Store) Get(index int) (video.Frame, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	elem, ok := s.items[index]
	if !ok {
		s.stats.Misses++
		return video.Frame{}, false
	}
	s.lru.MoveToFront(elem)
	s.stats.Hits++
	return elem.Value.(*entry).frame.Clone(), true
}

// Put stores a copy of f under index, replacing any existing entry, and
// evicts least recently used entries until the store is back at capacity.
func (s *Store) Put(index int, f video.Frame) error {
	cp, err := copyFrame(index, f)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if elem, ok := s.items[index]; ok {
		elem.Value.(*entry).frame = cp
		s.lru.MoveToFront(elem)
		return nil
	}

	s.items[index] = s.lru.PushFront(&entry{index: index, frame: cp})
	for s.lru.Len() > s.capacity {
		s.evictOldest()
	}
	return nil
}

// Clear drops every cached frame. Stats are kept.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = make(map[int]*list.Element, s.capacity)
	s.lru.Init()
}

// Len returns the number of cached frames.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lru.Len()
}

// Cap returns the fixed capacity.
func (s *Store) Cap() int { return s.capacity }

// Indices returns cached frame indices from most to least recently used.
func (s *Store) Indices() []int {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]int, 0, s.lru.Len())
	for e := s.lru.Front(); e != nil; e = e.Next() {
		out = append(out, e.Value.(*entry).index)
	}
	return out
}

// Fetch returns frame index from the cache, decoding it with dec on a miss.
func (s *Store) Fetch(index int, dec video.Decoder) (video.Frame, error) {
	if f, ok := s.Get(index); ok {
		return f, nil
	}
	return s.Load(index, dec)
}

// Load decodes frame index with dec and caches it, replacing any cached
// copy. Callers that must acquire the decoder first use Get then Load.
func (s *Store) Load(index int, dec video.Decoder) (video.Frame, error) {
	if err := dec.Seek(index); err != nil {
		return video.Frame{}, &video.DecodeError{Index: index, Err: err}
	}
	f, err := dec.ReadNext()
	if err != nil {
		if video.IsEOF(err) {
			return video.Frame{}, &video.DecodeError{Index: index, Err: err}
		}
		return video.Frame{}, err
	}
	f.Index = index
	if err := s.Put(index, f); err != nil {
		return video.Frame{}, err
	}
	return f, nil
}

// evictOldest removes the back of the list. Caller holds the lock.
func (s *Store) evictOldest() {
	elem := s.lru.Back()
	if elem == nil {
		return
	}
	s.lru.Remove(elem)
	delete(s.items, elem.Value.(*entry).index)
	s.stats.Evictions++
}

// copyFrame deep-copies f, turning a runtime allocation panic into a
// CapacityError.
func copyFrame(index int, f video.Frame) (cp video.Frame, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &CapacityError{Index: index, Bytes: len(f.Pix), Cause: r}
		}
	}()
	cp = f.Clone()
	cp.Index = index
	return cp, nil
}
