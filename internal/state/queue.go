package state

// RequestQueue is a FIFO of waiting-patient names.
type RequestQueue struct {
	items []string
}

// NewRequestQueue returns an empty queue.
func NewRequestQueue() *RequestQueue {
	return &RequestQueue{}
}

// Enqueue appends name at the tail.
func (q *RequestQueue) Enqueue(name string) {
	q.items = append(q.items, name)
}

// Dequeue removes and returns the head. ok is false when the queue is empty.
func (q *RequestQueue) Dequeue() (name string, ok bool) {
	if len(q.items) == 0 {
		return "", false
	}
	name = q.items[0]
	q.items[0] = ""
	q.items = q.items[1:]
	if len(q.items) == 0 {
		q.items = nil
	}
	return name, true
}

// PeekAll returns the queued names head to tail.
func (q *RequestQueue) PeekAll() []string {
	return cloneStrings(q.items)
}

// Len reports the queue length.
func (q *RequestQueue) Len() int {
	return len(q.items)
}
