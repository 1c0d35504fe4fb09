package state

import "hospitalcore/pkg/domain"

// Component names used for size reporting.
const (
	ComponentRecords      = "records"
	ComponentRequests     = "requests"
	ComponentIncidents    = "incidents"
	ComponentRoutes       = "routes"
	ComponentEmergency    = "emergency"
	ComponentOrganization = "organization"
)

// State aggregates every component owned by one running process.
type State struct {
	Records      *RecordList
	Requests     *RequestQueue
	Incidents    *IncidentStack
	Organization *OrganizationTree
	Routes       *RouteGraph
	Emergency    *EmergencyIndex
}

// New returns a State with every component at its default.
func New() *State {
	return &State{
		Records:      NewRecordList(),
		Requests:     NewRequestQueue(),
		Incidents:    NewIncidentStack(),
		Organization: NewOrganizationTree(),
		Routes:       NewRouteGraph(),
		Emergency:    NewEmergencyIndex(),
	}
}

// ImportReport lists the parts of a document that could not be applied.
type ImportReport struct {
	IgnoredDepartments []string
	DroppedEntries     int
}

// Clean reports whether every part of the document was applied.
func (r ImportReport) Clean() bool {
	return len(r.IgnoredDepartments) == 0 && r.DroppedEntries == 0
}

// ExportState copies every component into a document. LastUpdated and
// Revision are left for the caller to stamp.
func (s *State) ExportState() domain.Document {
	return domain.Document{
		Patients:  s.Records.All(),
		Queue:     s.Requests.PeekAll(),
		Incidents: s.Incidents.PushOrder(),
		Hierarchy: s.Organization.View(),
		Graph:     s.Routes.View(),
		HashTable: s.Emergency.Buckets(),
	}
}

// ImportState applies a decoded document on top of the current components.
// Records, requests and incidents are appended in stored order, the
// hierarchy and graph are merged key by key, and hash buckets are installed
// as stored.
func (s *State) ImportState(doc domain.Document) ImportReport {
	var report ImportReport
	for _, rec := range doc.Patients {
		s.Records.Add(rec.ID, rec.Name)
	}
	for _, name := range doc.Queue {
		s.Requests.Enqueue(name)
	}
	for _, text := range doc.Incidents {
		s.Incidents.Push(text)
	}
	report.IgnoredDepartments = s.Organization.merge(doc.Hierarchy)
	s.Routes.merge(doc.Graph)
	if doc.HashTable != nil {
		report.DroppedEntries = s.Emergency.Install(doc.HashTable)
	}
	return report
}

// Dashboard is a consistent read of every component for display.
func (s *State) Dashboard() domain.Dashboard {
	return domain.Dashboard{
		Patients:  s.Records.All(),
		Queue:     s.Requests.PeekAll(),
		Incidents: s.Incidents.ViewMostRecentFirst(),
		Hierarchy: s.Organization.View(),
		Graph:     s.Routes.View(),
		HashTable: s.Emergency.Buckets(),
	}
}

// Sizes reports the element count of each component. The organization size
// counts staff across all departments.
func (s *State) Sizes() map[string]int {
	staff := 0
	for _, list := range s.Organization.departments {
		staff += len(list)
	}
	return map[string]int{
		ComponentRecords:      s.Records.Len(),
		ComponentRequests:     s.Requests.Len(),
		ComponentIncidents:    s.Incidents.Len(),
		ComponentRoutes:       s.Routes.Len(),
		ComponentEmergency:    s.Emergency.Len(),
		ComponentOrganization: staff,
	}
}
