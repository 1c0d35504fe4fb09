package domain

// Document is the persisted snapshot of the whole aggregate state.
// Incidents are stored in push order, oldest first. HashTable holds the raw
// bucket layout exactly as it was in memory.
type Document struct {
	Patients    []PatientRecord     `json:"patients"`
	Queue       []string            `json:"queue"`
	Incidents   []string            `json:"incidents"`
	Hierarchy   Hierarchy           `json:"hierarchy"`
	Graph       map[string][]string `json:"graph"`
	HashTable   [][]HashEntry       `json:"hash_table"`
	LastUpdated string              `json:"last_updated"`
	Revision    string              `json:"revision,omitempty"`
}

// Dashboard is a consistent read of every component for display.
// Incidents are most recent first; HashTable is one slice per bucket.
type Dashboard struct {
	Patients  []PatientRecord     `json:"patients"`
	Queue     []string            `json:"queue"`
	Incidents []string            `json:"incidents"`
	Hierarchy Hierarchy           `json:"hierarchy"`
	Graph     map[string][]string `json:"graph"`
	HashTable [][]HashEntry       `json:"hash_table"`
}
