package state

import "hospitalcore/pkg/domain"

// BucketCount is the fixed number of emergency index buckets.
const BucketCount = 10

// EmergencyIndex is a chained hash table of id to name with BucketCount
// buckets. Duplicate ids are kept; lookups return the earliest insert.
type EmergencyIndex struct {
	buckets [BucketCount][]domain.HashEntry
	size    int
}

// NewEmergencyIndex returns an index with every bucket empty.
func NewEmergencyIndex() *EmergencyIndex {
	return &EmergencyIndex{}
}

// BucketFor returns the bucket an id hashes to. Negative ids wrap so the
// result is always in [0, BucketCount).
func BucketFor(id int) int {
	b := id % BucketCount
	if b < 0 {
		b += BucketCount
	}
	return b
}

// Insert appends (id, name) to the id's bucket.
func (e *EmergencyIndex) Insert(id int, name string) {
	b := BucketFor(id)
	e.buckets[b] = append(e.buckets[b], domain.HashEntry{ID: id, Name: name})
	e.size++
}

// Search returns the name of the first entry with id.
func (e *EmergencyIndex) Search(id int) (string, bool) {
	for _, entry := range e.buckets[BucketFor(id)] {
		if entry.ID == id {
			return entry.Name, true
		}
	}
	return "", false
}

// Delete removes the first entry with id from its bucket.
func (e *EmergencyIndex) Delete(id int) bool {
	b := BucketFor(id)
	for i, entry := range e.buckets[b] {
		if entry.ID != id {
			continue
		}
		list := e.buckets[b]
		e.buckets[b] = append(list[:i:i], list[i+1:]...)
		e.size--
		return true
	}
	return false
}

// Buckets returns a copy of the raw bucket layout.
func (e *EmergencyIndex) Buckets() [][]domain.HashEntry {
	out := make([][]domain.HashEntry, BucketCount)
	for i, bucket := range e.buckets {
		out[i] = make([]domain.HashEntry, len(bucket))
		copy(out[i], bucket)
	}
	return out
}

// Install replaces the bucket layout verbatim. Entries are not rehashed, so
// an entry can sit in a bucket its id does not hash to. Buckets past
// BucketCount are discarded and the number of entries they held is
// returned.
func (e *EmergencyIndex) Install(buckets [][]domain.HashEntry) (dropped int) {
	var next [BucketCount][]domain.HashEntry
	size := 0
	for i, bucket := range buckets {
		if i >= BucketCount {
			dropped += len(bucket)
			continue
		}
		next[i] = make([]domain.HashEntry, len(bucket))
		copy(next[i], bucket)
		size += len(bucket)
	}
	e.buckets = next
	e.size = size
	return dropped
}

// Len reports the number of stored entries.
func (e *EmergencyIndex) Len() int {
	return e.size
}
