package usecase

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"pulsetrack/services/patient-service/internal/domain"
	"pulsetrack/shared/billing"
	"pulsetrack/shared/genproto/patienteventpb"
	xerrors "pulsetrack/shared/utils/errors"

	"github.com/google/uuid"
)

// callLog records cross-collaborator ordering.
type callLog struct {
	mu    sync.Mutex
	calls []string
}

func (l *callLog) add(s string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls = append(l.calls, s)
}

func (l *callLog) list() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.calls...)
}

type memRepo struct {
	mu       sync.Mutex
	patients map[string]*domain.Patient
	log      *callLog
	creates  int32
	// blindCheck makes ExistsByEmail miss, as when a concurrent insert lands
	// between the check and the write.
	blindCheck bool
}

func newMemRepo(log *callLog) *memRepo {
	return &memRepo{patients: map[string]*domain.Patient{}, log: log}
}

func (r *memRepo) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.blindCheck {
		return false, nil
	}
	for _, p := range r.patients {
		if strings.EqualFold(p.Email, email) {
			return true, nil
		}
	}
	return false, nil
}

func (r *memRepo) Create(ctx context.Context, p *domain.Patient) error {
	atomic.AddInt32(&r.creates, 1)
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.patients {
		if strings.EqualFold(existing.Email, p.Email) {
			return xerrors.ErrPersistenceConflict
		}
	}
	p.ID = uuid.NewString()
	p.CreatedAt = time.Now()
	cp := *p
	r.patients[p.ID] = &cp
	r.log.add("persist")
	return nil
}

func (r *memRepo) GetByID(ctx context.Context, id string) (*domain.Patient, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.patients[id]
	if !ok {
		return nil, xerrors.ErrPatientNotFound
	}
	cp := *p
	return &cp, nil
}

func (r *memRepo) List(ctx context.Context) ([]*domain.Patient, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*domain.Patient, 0, len(r.patients))
	for _, p := range r.patients {
		cp := *p
		out = append(out, &cp)
	}
	return out, nil
}

func (r *memRepo) Update(ctx context.Context, p *domain.Patient) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.patients[p.ID]; !ok {
		return xerrors.ErrPatientNotFound
	}
	cp := *p
	r.patients[p.ID] = &cp
	return nil
}

func (r *memRepo) Delete(ctx context.Context, id string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.patients[id]; !ok {
		return false, nil
	}
	delete(r.patients, id)
	return true, nil
}

func (r *memRepo) UpdateBilling(ctx context.Context, id string, status domain.BillingStatus, accountID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.patients[id]
	if !ok {
		return xerrors.ErrPatientNotFound
	}
	p.BillingStatus = status
	p.BillingAccountID = accountID
	return nil
}

func (r *memRepo) status(id string) domain.BillingStatus {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p, ok := r.patients[id]; ok {
		return p.BillingStatus
	}
	return ""
}

type mockBilling struct {
	fn    func(ctx context.Context, patientID, name, email string) (billing.Account, error)
	calls int32
	ids   []string
	mu    sync.Mutex
	log   *callLog
}

func (m *mockBilling) CreateAccount(ctx context.Context, patientID, name, email string) (billing.Account, error) {
	atomic.AddInt32(&m.calls, 1)
	m.mu.Lock()
	m.ids = append(m.ids, patientID)
	m.mu.Unlock()
	if m.log != nil {
		m.log.add("rpc:" + patientID)
	}
	if m.fn != nil {
		return m.fn(ctx, patientID, name, email)
	}
	return billing.Account{ID: "BA_" + patientID, Status: "ACTIVE"}, nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []*patienteventpb.PatientEvent
	log    *callLog
}

func (p *recordingPublisher) Publish(evt *patienteventpb.PatientEvent) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, evt)
	p.log.add("publish:" + evt.PatientId)
}

type recordingQueue struct {
	mu     sync.Mutex
	jobs   []ProvisionJob
	reject bool
}

func (q *recordingQueue) Enqueue(job ProvisionJob) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.reject {
		return false
	}
	q.jobs = append(q.jobs, job)
	return true
}
