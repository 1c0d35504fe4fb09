// Package domain defines the value types, persisted document shape, and
// persistence port shared by hospitalcore's state layer and its adapters.
package domain

import (
	"encoding/json"
	"fmt"
)

// DirectorTitle is the single fixed root of the organization hierarchy.
const DirectorTitle = "Hospital Director"

// Fixed department names under the director. The set never changes at runtime.
const (
	DepartmentMedical = "Medical Head"
	DepartmentSurgery = "Surgery Head"
	DepartmentNursing = "Nursing Head"
)

// Departments lists the fixed department names in display order.
func Departments() []string {
	return []string{DepartmentMedical, DepartmentSurgery, DepartmentNursing}
}

// IsDepartment reports whether name is one of the fixed departments.
func IsDepartment(name string) bool {
	switch name {
	case DepartmentMedical, DepartmentSurgery, DepartmentNursing:
		return true
	}
	return false
}

// PatientRecord is a caller-keyed patient entry. Ids are not unique.
// On the wire it is the pair [id, name].
type PatientRecord struct {
	ID   int
	Name string
}

// MarshalJSON encodes the record as [id, name].
func (p PatientRecord) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]any{p.ID, p.Name})
}

// UnmarshalJSON decodes the record from [id, name].
func (p *PatientRecord) UnmarshalJSON(b []byte) error {
	return decodePair(b, "patient record", &p.ID, &p.Name)
}

// HashEntry is one (id, name) pair chained inside an emergency bucket.
// On the wire it is the pair [id, name].
type HashEntry struct {
	ID   int
	Name string
}

// MarshalJSON encodes the entry as [id, name].
func (e HashEntry) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]any{e.ID, e.Name})
}

// UnmarshalJSON decodes the entry from [id, name].
func (e *HashEntry) UnmarshalJSON(b []byte) error {
	return decodePair(b, "hash entry", &e.ID, &e.Name)
}

func decodePair(b []byte, label string, id *int, name *string) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		return fmt.Errorf("decode %s: %w", label, err)
	}
	if len(raw) != 2 {
		return fmt.Errorf("decode %s: want [id, name], got %d elements", label, len(raw))
	}
	if err := json.Unmarshal(raw[0], id); err != nil {
		return fmt.Errorf("decode %s id: %w", label, err)
	}
	if err := json.Unmarshal(raw[1], name); err != nil {
		return fmt.Errorf("decode %s name: %w", label, err)
	}
	return nil
}

// OrgUnit is the body of the director node: its own staff list and the
// staff lists of each department.
type OrgUnit struct {
	Staff       []string            `json:"staff"`
	Departments map[string][]string `json:"departments"`
}

// Hierarchy maps the root title to its unit. A well-formed hierarchy has
// exactly one key, DirectorTitle.
type Hierarchy map[string]OrgUnit
