// Package memory holds map-backed repositories for tests and local runs without a database.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/practice-api/internal/model"
	"github.com/jwalitptl/practice-api/internal/repository"
)

type AppointmentRepository struct {
	mu    sync.RWMutex
	items map[uuid.UUID]model.Appointment
}

func NewAppointmentRepository() *AppointmentRepository {
	return &AppointmentRepository{items: make(map[uuid.UUID]model.Appointment)}
}

func (r *AppointmentRepository) Create(_ context.Context, a *model.Appointment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	now := time.Now().UTC()
	a.CreatedAt, a.UpdatedAt = now, now
	r.items[a.ID] = *a
	return nil
}

func (r *AppointmentRepository) Get(_ context.Context, id uuid.UUID) (*model.Appointment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.items[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &a, nil
}

func (r *AppointmentRepository) UpdateStatus(_ context.Context, id uuid.UUID, status model.AppointmentStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.items[id]
	if !ok {
		return repository.ErrNotFound
	}
	a.Status = status
	a.UpdatedAt = time.Now().UTC()
	r.items[id] = a
	return nil
}

func (r *AppointmentRepository) List(_ context.Context, filters *model.AppointmentFilters) ([]*model.Appointment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*model.Appointment
	for _, a := range r.items {
		if filters != nil && !matchAppointment(a, filters) {
			continue
		}
		a := a
		out = append(out, &a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AppointmentDate.Before(out[j].AppointmentDate) })
	return out, nil
}

func matchAppointment(a model.Appointment, f *model.AppointmentFilters) bool {
	if f.PatientID != uuid.Nil && a.PatientID != f.PatientID {
		return false
	}
	if f.ClinicianID != uuid.Nil && a.ClinicianID != f.ClinicianID {
		return false
	}
	if !f.From.IsZero() && a.AppointmentDate.Before(f.From) {
		return false
	}
	if !f.Before.IsZero() && !a.AppointmentDate.Before(f.Before) {
		return false
	}
	if len(f.Statuses) == 0 {
		return true
	}
	for _, s := range f.Statuses {
		if a.Status == s {
			return true
		}
	}
	return false
}

type PatientRepository struct {
	mu    sync.RWMutex
	items map[uuid.UUID]model.Patient
}

func NewPatientRepository() *PatientRepository {
	return &PatientRepository{items: make(map[uuid.UUID]model.Patient)}
}

func (r *PatientRepository) Create(_ context.Context, p *model.Patient) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	now := time.Now().UTC()
	p.CreatedAt, p.UpdatedAt = now, now
	r.items[p.ID] = clonePatient(*p)
	return nil
}

func (r *PatientRepository) Get(_ context.Context, id uuid.UUID) (*model.Patient, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.items[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	p = clonePatient(p)
	return &p, nil
}

func (r *PatientRepository) Update(_ context.Context, p *model.Patient) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[p.ID]; !ok {
		return repository.ErrNotFound
	}
	p.UpdatedAt = time.Now().UTC()
	r.items[p.ID] = clonePatient(*p)
	return nil
}

func (r *PatientRepository) List(_ context.Context, filters *model.PatientFilters) ([]*model.Patient, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*model.Patient
	for _, p := range r.items {
		if filters != nil && filters.Status != "" && p.Status != filters.Status {
			continue
		}
		p = clonePatient(p)
		out = append(out, &p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// clonePatient copies the slice-valued document fields so callers cannot mutate stored state.
func clonePatient(p model.Patient) model.Patient {
	p.TreatmentGoals = append(model.TreatmentGoals(nil), p.TreatmentGoals...)
	p.DischargeRequests = append(model.DischargeRequests(nil), p.DischargeRequests...)
	return p
}

type TreatmentRecordRepository struct {
	mu    sync.RWMutex
	items []model.TreatmentRecord
}

func NewTreatmentRecordRepository() *TreatmentRecordRepository {
	return &TreatmentRecordRepository{}
}

func (r *TreatmentRecordRepository) Create(_ context.Context, rec *model.TreatmentRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	rec.CreatedAt = time.Now().UTC()
	r.items = append(r.items, *rec)
	return nil
}

func (r *TreatmentRecordRepository) ListByPatient(_ context.Context, patientID uuid.UUID) ([]*model.TreatmentRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*model.TreatmentRecord
	for _, rec := range r.items {
		if rec.PatientID == patientID {
			rec := rec
			out = append(out, &rec)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].SessionDate.After(out[j].SessionDate) })
	return out, nil
}

type UserRepository struct {
	mu    sync.RWMutex
	items map[uuid.UUID]model.User
}

func NewUserRepository(users ...model.User) *UserRepository {
	r := &UserRepository{items: make(map[uuid.UUID]model.User)}
	for _, u := range users {
		r.items[u.ID] = u
	}
	return r
}

func (r *UserRepository) Add(u model.User) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items[u.ID] = u
}

func (r *UserRepository) Get(_ context.Context, id uuid.UUID) (*model.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.items[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &u, nil
}

func (r *UserRepository) ListByRoles(_ context.Context, roles ...model.Role) ([]*model.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*model.User
	for _, u := range r.items {
		for _, role := range roles {
			if u.Role == role {
				u := u
				out = append(out, &u)
				break
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

type AuditRepository struct {
	mu      sync.Mutex
	entries []model.AuditEntry
}

func NewAuditRepository() *AuditRepository {
	return &AuditRepository{}
}

func (r *AuditRepository) Create(_ context.Context, e *model.AuditEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	r.entries = append(r.entries, *e)
	return nil
}

// Entries returns a snapshot of everything written so far.
func (r *AuditRepository) Entries() []model.AuditEntry {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]model.AuditEntry(nil), r.entries...)
}

var (
	_ repository.AppointmentRepository     = (*AppointmentRepository)(nil)
	_ repository.PatientRepository         = (*PatientRepository)(nil)
	_ repository.TreatmentRecordRepository = (*TreatmentRecordRepository)(nil)
	_ repository.UserRepository            = (*UserRepository)(nil)
	_ repository.AuditRepository           = (*AuditRepository)(nil)
)
