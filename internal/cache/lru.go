// TuneFrame - Behavioral Music Recommendation and Offline Cache
// Copyright 2026 TuneFrame Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tuneframe/tuneframe

package cache

import (
	"sort"
	"time"
)

// accessNode is an entry in the access-order list.
type accessNode struct {
	id         string
	accessedAt time.Time
	prev       *accessNode
	next       *accessNode
}

// accessIndex is a doubly-linked list plus hashmap tracking cache entries in
// access order. head.next is the most recently accessed entry, tail.prev the
// least recently accessed one, so both a touch and the eviction-victim lookup
// are O(1).
//
// The index is an in-memory mirror of the metadata records in Badger; it is
// rebuilt from them on startup and is only ever mutated by the Store while
// holding the Store's write lock, so it needs no locking of its own.
type accessIndex struct {
	items map[string]*accessNode

	// head and tail are sentinel nodes
	head *accessNode
	tail *accessNode
}

func newAccessIndex() *accessIndex {
	idx := &accessIndex{
		items: make(map[string]*accessNode),
		head:  &accessNode{},
		tail:  &accessNode{},
	}
	idx.head.next = idx.tail
	idx.tail.prev = idx.head
	return idx
}

// rebuild replaces the index contents with the given entries, ordered by
// their persisted LastAccessedAt. Used once at startup to recover access
// order from Badger.
func (idx *accessIndex) rebuild(entries []Entry) {
	sorted := make([]Entry, len(entries))
	copy(sorted, entries)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].LastAccessedAt.Before(sorted[j].LastAccessedAt)
	})

	idx.items = make(map[string]*accessNode, len(sorted))
	idx.head.next = idx.tail
	idx.tail.prev = idx.head
	// Oldest first, so each insertion at the head leaves the newest there.
	for _, e := range sorted {
		idx.touch(e.ID, e.LastAccessedAt)
	}
}

// touch records an access, moving the entry to the most-recent position.
// Unknown ids are inserted.
func (idx *accessIndex) touch(id string, at time.Time) {
	if node, ok := idx.items[id]; ok {
		node.accessedAt = at
		idx.unlink(node)
		idx.pushFront(node)
		return
	}
	node := &accessNode{id: id, accessedAt: at}
	idx.items[id] = node
	idx.pushFront(node)
}

// oldest returns the least recently accessed id, or ok=false when empty.
func (idx *accessIndex) oldest() (string, bool) {
	node := idx.tail.prev
	if node == idx.head {
		return "", false
	}
	return node.id, true
}

// remove drops an entry from the index. Removing an absent id is a no-op.
func (idx *accessIndex) remove(id string) {
	node, ok := idx.items[id]
	if !ok {
		return
	}
	idx.unlink(node)
	delete(idx.items, id)
}

func (idx *accessIndex) contains(id string) bool {
	_, ok := idx.items[id]
	return ok
}

func (idx *accessIndex) len() int {
	return len(idx.items)
}

func (idx *accessIndex) unlink(node *accessNode) {
	node.prev.next = node.next
	node.next.prev = node.prev
	node.prev = nil
	node.next = nil
}

func (idx *accessIndex) pushFront(node *accessNode) {
	node.prev = idx.head
	node.next = idx.head.next
	idx.head.next.prev = node
	idx.head.next = node
}

// sortEntriesByAccess orders entries most recently accessed first.
func sortEntriesByAccess(entries []Entry) {
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].LastAccessedAt.After(entries[j].LastAccessedAt)
	})
}
