// Package state holds the in-memory components behind the hospital
// dashboard. None of the components synchronize internally; callers
// serialize access (see core.Service).
package state

import "hospitalcore/pkg/domain"

const nilIndex = -1

type recordNode struct {
	record domain.PatientRecord
	next   int
}

// RecordList is a singly linked list of patient records stored in an arena.
// Links are arena indices; freed slots are recycled through a free list.
type RecordList struct {
	nodes []recordNode
	head  int
	free  []int
	size  int
}

// NewRecordList returns an empty list.
func NewRecordList() *RecordList {
	return &RecordList{head: nilIndex}
}

// Add appends a record after the current last node. Ids are not checked for
// uniqueness.
func (l *RecordList) Add(id int, name string) {
	idx := l.alloc(domain.PatientRecord{ID: id, Name: name})
	if l.head == nilIndex {
		l.head = idx
		l.size++
		return
	}
	cur := l.head
	for l.nodes[cur].next != nilIndex {
		cur = l.nodes[cur].next
	}
	l.nodes[cur].next = idx
	l.size++
}

// All returns the records from head to tail.
func (l *RecordList) All() []domain.PatientRecord {
	out := make([]domain.PatientRecord, 0, l.size)
	for cur := l.head; cur != nilIndex; cur = l.nodes[cur].next {
		out = append(out, l.nodes[cur].record)
	}
	return out
}

// Delete unlinks the first record whose id matches. It reports whether a
// record was removed.
func (l *RecordList) Delete(id int) bool {
	prev := nilIndex
	for cur := l.head; cur != nilIndex; cur = l.nodes[cur].next {
		if l.nodes[cur].record.ID != id {
			prev = cur
			continue
		}
		if prev == nilIndex {
			l.head = l.nodes[cur].next
		} else {
			l.nodes[prev].next = l.nodes[cur].next
		}
		l.release(cur)
		l.size--
		return true
	}
	return false
}

// Len reports the number of live records.
func (l *RecordList) Len() int {
	return l.size
}

func (l *RecordList) alloc(rec domain.PatientRecord) int {
	node := recordNode{record: rec, next: nilIndex}
	if n := len(l.free); n > 0 {
		idx := l.free[n-1]
		l.free = l.free[:n-1]
		l.nodes[idx] = node
		return idx
	}
	l.nodes = append(l.nodes, node)
	return len(l.nodes) - 1
}

func (l *RecordList) release(idx int) {
	l.nodes[idx] = recordNode{next: nilIndex}
	l.free = append(l.free, idx)
}
