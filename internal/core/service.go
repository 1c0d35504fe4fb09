// Package core owns the running hospital state: it serializes every
// operation behind one lock and snapshots the state after each mutation.
package core

import (
	"context"
	"sync"
	"time"

	"hospitalcore/internal/state"
	"hospitalcore/pkg/domain"
)

// Operation names reported to metrics, traces and logs.
const (
	OpAddPatient      = "add_patient"
	OpDeletePatient   = "delete_patient"
	OpEnqueueRequest  = "enqueue_request"
	OpProcessRequest  = "process_request"
	OpPushIncident    = "push_incident"
	OpUndoIncident    = "undo_incident"
	OpAddStaff        = "add_staff"
	OpRemoveStaff     = "remove_staff"
	OpAddRoute        = "add_route"
	OpDeleteRoute     = "delete_route"
	OpInsertEmergency = "insert_emergency"
	OpDeleteEmergency = "delete_emergency"
	OpSave            = "save"
)

// Service exposes the component operations. Every call, including the save
// that follows a mutation, runs to completion before the next one starts.
type Service struct {
	mu      sync.Mutex
	state   *state.State
	codec   *Codec
	logger  Logger
	metrics MetricsRecorder
	tracer  Tracer
}

// ServiceOption customizes a Service.
type ServiceOption func(*Service)

// WithLogger sets the service logger.
func WithLogger(l Logger) ServiceOption {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithMetricsRecorder sets the recorder operations are reported to.
func WithMetricsRecorder(m MetricsRecorder) ServiceOption {
	return func(s *Service) {
		if m != nil {
			s.metrics = m
		}
	}
}

// WithTracer sets the tracer operations are wrapped in.
func WithTracer(t Tracer) ServiceOption {
	return func(s *Service) {
		if t != nil {
			s.tracer = t
		}
	}
}

// NewService constructs a service with default components persisted through codec.
func NewService(codec *Codec, opts ...ServiceOption) *Service {
	s := &Service{
		state:   state.New(),
		codec:   codec,
		logger:  noopLogger{},
		metrics: noopMetrics{},
		tracer:  noopTracer{},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// Load restores the persisted document. Call once before serving.
func (s *Service) Load(ctx context.Context) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	ok := s.codec.Load(ctx, s.state)
	s.reportSizes()
	return ok
}

// Save snapshots the current state on demand.
func (s *Service) Save(ctx context.Context) bool {
	return s.mutate(ctx, OpSave, func(*state.State) bool { return true })
}

// Phase reports the codec lifecycle state.
func (s *Service) Phase() Phase { return s.codec.Phase() }

// Driver names the document store backing the service.
func (s *Service) Driver() string { return s.codec.Driver() }

// LastPersistenceError returns the error from the most recent save or load.
func (s *Service) LastPersistenceError() error { return s.codec.LastError() }

// mutate applies fn and saves the result, whether or not fn changed anything.
func (s *Service) mutate(ctx context.Context, op string, fn func(*state.State) bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	ctx, span := s.tracer.Start(ctx, op)
	start := time.Now()

	changed := fn(s.state)
	saved := s.codec.Save(ctx, s.state)

	var err error
	if !saved {
		err = s.codec.LastError()
	}
	span.End(err)
	s.metrics.Observe(ctx, op, saved, time.Since(start))
	s.reportSizes()
	s.logger.Debug("operation applied", "operation", op, "changed", changed, "saved", saved)
	return changed
}

func (s *Service) read(fn func(*state.State)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(s.state)
}

func (s *Service) reportSizes() {
	for component, size := range s.state.Sizes() {
		s.metrics.SetComponentSize(component, size)
	}
}

// AddPatient appends a patient record.
func (s *Service) AddPatient(ctx context.Context, id int, name string) {
	s.mutate(ctx, OpAddPatient, func(st *state.State) bool {
		st.Records.Add(id, name)
		return true
	})
}

// DeletePatient removes the first record with id.
func (s *Service) DeletePatient(ctx context.Context, id int) bool {
	return s.mutate(ctx, OpDeletePatient, func(st *state.State) bool {
		return st.Records.Delete(id)
	})
}

// Patients lists the records in insertion order.
func (s *Service) Patients() []domain.PatientRecord {
	var out []domain.PatientRecord
	s.read(func(st *state.State) { out = st.Records.All() })
	return out
}

// EnqueueRequest appends a waiting patient.
func (s *Service) EnqueueRequest(ctx context.Context, name string) {
	s.mutate(ctx, OpEnqueueRequest, func(st *state.State) bool {
		st.Requests.Enqueue(name)
		return true
	})
}

// ProcessRequest removes the oldest waiting patient.
func (s *Service) ProcessRequest(ctx context.Context) (string, bool) {
	var name string
	ok := s.mutate(ctx, OpProcessRequest, func(st *state.State) bool {
		var ok bool
		name, ok = st.Requests.Dequeue()
		return ok
	})
	return name, ok
}

// Requests lists waiting patients, oldest first.
func (s *Service) Requests() []string {
	var out []string
	s.read(func(st *state.State) { out = st.Requests.PeekAll() })
	return out
}

// PushIncident records an incident.
func (s *Service) PushIncident(ctx context.Context, text string) {
	s.mutate(ctx, OpPushIncident, func(st *state.State) bool {
		st.Incidents.Push(text)
		return true
	})
}

// UndoIncident removes the most recent incident.
func (s *Service) UndoIncident(ctx context.Context) (string, bool) {
	var text string
	ok := s.mutate(ctx, OpUndoIncident, func(st *state.State) bool {
		var ok bool
		text, ok = st.Incidents.Pop()
		return ok
	})
	return text, ok
}

// Incidents lists incidents, most recent first.
func (s *Service) Incidents() []string {
	var out []string
	s.read(func(st *state.State) { out = st.Incidents.ViewMostRecentFirst() })
	return out
}

// AddStaff appends name to department. Unknown departments change nothing.
func (s *Service) AddStaff(ctx context.Context, department, name string) bool {
	return s.mutate(ctx, OpAddStaff, func(st *state.State) bool {
		return st.Organization.AddStaff(department, name)
	})
}

// RemoveStaff removes the first occurrence of name from department.
func (s *Service) RemoveStaff(ctx context.Context, department, name string) bool {
	return s.mutate(ctx, OpRemoveStaff, func(st *state.State) bool {
		return st.Organization.RemoveStaff(department, name)
	})
}

// Hierarchy returns the organization tree.
func (s *Service) Hierarchy() domain.Hierarchy {
	var out domain.Hierarchy
	s.read(func(st *state.State) { out = st.Organization.View() })
	return out
}

// Departments lists the fixed department names.
func (s *Service) Departments() []string {
	return domain.Departments()
}

// AddRoute links two cities.
func (s *Service) AddRoute(ctx context.Context, a, b string) {
	s.mutate(ctx, OpAddRoute, func(st *state.State) bool {
		st.Routes.AddRoute(a, b)
		return true
	})
}

// DeleteRoute unlinks two cities once.
func (s *Service) DeleteRoute(ctx context.Context, a, b string) {
	s.mutate(ctx, OpDeleteRoute, func(st *state.State) bool {
		st.Routes.DeleteRoute(a, b)
		return true
	})
}

// Routes returns the adjacency mapping.
func (s *Service) Routes() map[string][]string {
	var out map[string][]string
	s.read(func(st *state.State) { out = st.Routes.View() })
	return out
}

// InsertEmergency adds an id/name pair to the emergency index.
func (s *Service) InsertEmergency(ctx context.Context, id int, name string) {
	s.mutate(ctx, OpInsertEmergency, func(st *state.State) bool {
		st.Emergency.Insert(id, name)
		return true
	})
}

// SearchEmergency looks up the earliest name stored for id.
func (s *Service) SearchEmergency(id int) (string, bool) {
	var (
		name string
		ok   bool
	)
	s.read(func(st *state.State) { name, ok = st.Emergency.Search(id) })
	return name, ok
}

// DeleteEmergency removes the earliest entry for id.
func (s *Service) DeleteEmergency(ctx context.Context, id int) bool {
	return s.mutate(ctx, OpDeleteEmergency, func(st *state.State) bool {
		return st.Emergency.Delete(id)
	})
}

// EmergencyBuckets returns the raw bucket layout.
func (s *Service) EmergencyBuckets() [][]domain.HashEntry {
	var out [][]domain.HashEntry
	s.read(func(st *state.State) { out = st.Emergency.Buckets() })
	return out
}

// Dashboard reads every component under one lock.
func (s *Service) Dashboard() domain.Dashboard {
	var out domain.Dashboard
	s.read(func(st *state.State) { out = st.Dashboard() })
	return out
}
