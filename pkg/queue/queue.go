// Package queue provides the integer-keyed staging area for messages
// produced before the server has acknowledged the connection.
package queue

import (
	"bytes"
	"sort"
	"sync"

	"github.com/cespare/xxhash/v2"
)

// Entry is one staged message together with its sequence key.
type Entry struct {
	Key     int
	Message []byte
}

// MessageQueue stages outbound messages under strictly increasing integer
// keys. Drain returns entries in ascending key order and empties the queue
// atomically.
//
// The keys are not a plain FIFO position: replay after a reconnect may
// re-issue a message under its original key, overwriting the staged copy
// instead of producing a duplicate.
type MessageQueue struct {
	mu      sync.Mutex
	entries map[int][]byte
	hashes  map[uint64]int
	maxKey  int
}

func NewMessageQueue() *MessageQueue {
	return &MessageQueue{
		entries: make(map[int][]byte),
		hashes:  make(map[uint64]int),
	}
}

// Enqueue stages a message under the next free key (max existing key + 1,
// or 1 when empty) and returns the key.
func (q *MessageQueue) Enqueue(message []byte) int {
	q.mu.Lock()
	defer q.mu.Unlock()

	key := q.maxKey + 1
	q.store(key, message)
	return key
}

// EnqueueWithKey stages a message under the given key, overwriting any
// entry already staged there.
func (q *MessageQueue) EnqueueWithKey(key int, message []byte) {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.store(key, message)
}

func (q *MessageQueue) store(key int, message []byte) {
	q.entries[key] = message
	q.hashes[xxhash.Sum64(message)] = key
	if key > q.maxKey {
		q.maxKey = key
	}
}

// KeyFor returns the key of a staged entry whose content equals message.
func (q *MessageQueue) KeyFor(message []byte) (int, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	key, ok := q.hashes[xxhash.Sum64(message)]
	if !ok {
		return 0, false
	}
	if !bytes.Equal(q.entries[key], message) {
		return 0, false
	}
	return key, true
}

// Drain removes and returns all staged entries sorted by ascending key.
func (q *MessageQueue) Drain() []Entry {
	q.mu.Lock()
	entries := q.entries
	q.entries = make(map[int][]byte)
	q.hashes = make(map[uint64]int)
	q.maxKey = 0
	q.mu.Unlock()

	drained := make([]Entry, 0, len(entries))
	for key, message := range entries {
		drained = append(drained, Entry{Key: key, Message: message})
	}
	sort.Slice(drained, func(i, j int) bool {
		return drained[i].Key < drained[j].Key
	})
	return drained
}

// Clear drops all staged entries.
func (q *MessageQueue) Clear() {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.entries = make(map[int][]byte)
	q.hashes = make(map[uint64]int)
	q.maxKey = 0
}

func (q *MessageQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()

	return len(q.entries)
}
