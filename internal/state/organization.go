package state

import "hospitalcore/pkg/domain"

// OrganizationTree is the fixed director/department staff hierarchy.
// Department names are fixed at construction and never added or removed.
type OrganizationTree struct {
	staff       []string
	departments map[string][]string
}

// NewOrganizationTree returns the hierarchy with every department empty.
func NewOrganizationTree() *OrganizationTree {
	depts := make(map[string][]string, 3)
	for _, d := range domain.Departments() {
		depts[d] = []string{}
	}
	return &OrganizationTree{staff: []string{}, departments: depts}
}

// AddStaff appends name to department. Unknown departments are ignored and
// false is returned.
func (o *OrganizationTree) AddStaff(department, name string) bool {
	if !domain.IsDepartment(department) {
		return false
	}
	o.departments[department] = append(o.departments[department], name)
	return true
}

// RemoveStaff removes the first occurrence of name from department.
func (o *OrganizationTree) RemoveStaff(department, name string) bool {
	if !domain.IsDepartment(department) {
		return false
	}
	list := o.departments[department]
	i := indexOf(list, name)
	if i < 0 {
		return false
	}
	o.departments[department] = append(list[:i:i], list[i+1:]...)
	return true
}

// View returns a copy of the whole hierarchy.
func (o *OrganizationTree) View() domain.Hierarchy {
	depts := make(map[string][]string, len(o.departments))
	for name, list := range o.departments {
		depts[name] = cloneStrings(list)
	}
	return domain.Hierarchy{
		domain.DirectorTitle: {Staff: cloneStrings(o.staff), Departments: depts},
	}
}

// Departments lists the fixed department names in display order.
func (o *OrganizationTree) Departments() []string {
	return domain.Departments()
}

// merge overlays a persisted hierarchy onto the tree. Department names the
// tree does not know are skipped and returned.
func (o *OrganizationTree) merge(h domain.Hierarchy) []string {
	unit, ok := h[domain.DirectorTitle]
	if !ok {
		return nil
	}
	if unit.Staff != nil {
		o.staff = cloneStrings(unit.Staff)
	}
	var ignored []string
	for name, list := range unit.Departments {
		if !domain.IsDepartment(name) {
			ignored = append(ignored, name)
			continue
		}
		o.departments[name] = cloneStrings(list)
	}
	return ignored
}

func indexOf(list []string, s string) int {
	for i, v := range list {
		if v == s {
			return i
		}
	}
	return -1
}
