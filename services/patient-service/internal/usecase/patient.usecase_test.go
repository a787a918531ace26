package usecase

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"pulsetrack/services/patient-service/internal/domain"
	"pulsetrack/shared/billing"
	"pulsetrack/shared/genproto/patienteventpb"
	xerrors "pulsetrack/shared/utils/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fixture struct {
	uc      *PatientUsecase
	repo    *memRepo
	billing *mockBilling
	pub     *recordingPublisher
	queue   *recordingQueue
	log     *callLog
}

func newFixture() *fixture {
	log := &callLog{}
	f := &fixture{
		repo:    newMemRepo(log),
		billing: &mockBilling{log: log},
		pub:     &recordingPublisher{log: log},
		queue:   &recordingQueue{},
		log:     log,
	}
	f.uc = NewPatientUsecase(f.repo, f.billing, f.pub, f.queue, zap.NewNop())
	return f
}

func createReq(name, email string) domain.PatientRequest {
	return domain.PatientRequest{
		Name:           name,
		Email:          email,
		Address:        "1 Main St",
		DateOfBirth:    "1990-04-01",
		RegisteredDate: "2024-01-15",
	}
}

func TestCreateProvisionsThenPublishes(t *testing.T) {
	f := newFixture()

	res, err := f.uc.Create(context.Background(), createReq("P1", "p1@x.com"))
	require.NoError(t, err)
	require.NoError(t, res.BillingErr)

	p := res.Patient
	assert.NotEmpty(t, p.ID)
	assert.Equal(t, domain.BillingActive, p.BillingStatus)
	assert.Equal(t, "BA_"+p.ID, p.BillingAccountID)
	assert.Equal(t, domain.BillingActive, f.repo.status(p.ID))

	assert.Equal(t, int32(1), atomic.LoadInt32(&f.billing.calls))
	assert.Equal(t, []string{p.ID}, f.billing.ids)

	require.Len(t, f.pub.events, 1)
	evt := f.pub.events[0]
	assert.Equal(t, p.ID, evt.PatientId)
	assert.Equal(t, "p1@x.com", evt.Email)
	assert.Equal(t, patienteventpb.EventTypeCreated, evt.EventType)
	assert.NotEmpty(t, evt.EventId)
	assert.NotZero(t, evt.OccurredAt)

	assert.Equal(t, []string{"persist", "rpc:" + p.ID, "publish:" + p.ID}, f.log.list())
	assert.Empty(t, f.queue.jobs)
}

func TestCreateDuplicateEmailHasNoSideEffects(t *testing.T) {
	f := newFixture()
	_, err := f.uc.Create(context.Background(), createReq("P1", "p1@x.com"))
	require.NoError(t, err)

	_, err = f.uc.Create(context.Background(), createReq("Other", "P1@x.com"))
	assert.True(t, errors.Is(err, xerrors.ErrDuplicateEmail))

	assert.Equal(t, int32(1), atomic.LoadInt32(&f.repo.creates))
	assert.Equal(t, int32(1), atomic.LoadInt32(&f.billing.calls))
	assert.Len(t, f.pub.events, 1)
}

func TestCreateLosingEmailRaceIsPersistenceConflict(t *testing.T) {
	f := newFixture()
	_, err := f.uc.Create(context.Background(), createReq("P1", "p1@x.com"))
	require.NoError(t, err)
	f.repo.blindCheck = true

	res, err := f.uc.Create(context.Background(), createReq("Other", "p1@x.com"))
	assert.Nil(t, res)
	assert.True(t, errors.Is(err, xerrors.ErrPersistenceConflict))

	assert.Equal(t, int32(2), atomic.LoadInt32(&f.repo.creates))
	assert.Equal(t, int32(1), atomic.LoadInt32(&f.billing.calls))
	assert.Len(t, f.pub.events, 1)
	assert.Empty(t, f.queue.jobs)
}

func TestCreateBillingFailureLeavesPending(t *testing.T) {
	f := newFixture()
	f.billing.fn = func(ctx context.Context, patientID, name, email string) (billing.Account, error) {
		return billing.Account{}, xerrors.ErrBillingUnavailable
	}

	res, err := f.uc.Create(context.Background(), createReq("P1", "p1@x.com"))
	require.NoError(t, err)
	assert.True(t, errors.Is(res.BillingErr, xerrors.ErrBillingUnavailable))
	assert.Equal(t, domain.BillingPending, res.Patient.BillingStatus)
	assert.Equal(t, domain.BillingPending, f.repo.status(res.Patient.ID))

	require.Len(t, f.queue.jobs, 1)
	assert.Equal(t, res.Patient.ID, f.queue.jobs[0].PatientID)
	assert.Len(t, f.pub.events, 1, "event is published regardless of billing outcome")
}

func TestCreateBillingFailureWithFullQueue(t *testing.T) {
	f := newFixture()
	f.queue.reject = true
	f.billing.fn = func(ctx context.Context, patientID, name, email string) (billing.Account, error) {
		return billing.Account{}, xerrors.ErrBillingUnavailable
	}

	res, err := f.uc.Create(context.Background(), createReq("P1", "p1@x.com"))
	require.NoError(t, err)
	assert.Error(t, res.BillingErr)
	assert.Equal(t, domain.BillingPending, f.repo.status(res.Patient.ID))
}

func TestCreateValidation(t *testing.T) {
	f := newFixture()
	req := createReq("P1", "p1@x.com")
	req.RegisteredDate = ""

	_, err := f.uc.Create(context.Background(), req)
	assert.True(t, errors.Is(err, xerrors.ErrInvalidInput))

	_, err = f.uc.Create(context.Background(), createReq("P1", "not-an-email"))
	assert.True(t, errors.Is(err, xerrors.ErrInvalidInput))
	assert.Zero(t, atomic.LoadInt32(&f.repo.creates))
}

func TestUpdateKeepsRegisteredDateWhenAbsent(t *testing.T) {
	f := newFixture()
	res, err := f.uc.Create(context.Background(), createReq("P1", "p1@x.com"))
	require.NoError(t, err)

	upd := domain.PatientRequest{Name: "P1 renamed", Email: "p1@x.com", Address: "2 Side St", DateOfBirth: "1991-05-02"}
	p, err := f.uc.Update(context.Background(), res.Patient.ID, upd)
	require.NoError(t, err)
	assert.Equal(t, "P1 renamed", p.Name)
	assert.Equal(t, "2 Side St", p.Address)
	assert.Equal(t, "1991-05-02", p.DateOfBirth.Format(domain.DateLayout))
	assert.Equal(t, "2024-01-15", p.RegisteredDate.Format(domain.DateLayout))

	upd.RegisteredDate = "2024-02-01"
	p, err = f.uc.Update(context.Background(), res.Patient.ID, upd)
	require.NoError(t, err)
	assert.Equal(t, "2024-02-01", p.RegisteredDate.Format(domain.DateLayout))
}

func TestUpdateRejectsTakenEmail(t *testing.T) {
	f := newFixture()
	a, err := f.uc.Create(context.Background(), createReq("A", "a@x.com"))
	require.NoError(t, err)
	_, err = f.uc.Create(context.Background(), createReq("B", "b@x.com"))
	require.NoError(t, err)

	upd := createReq("A", "b@x.com")
	_, err = f.uc.Update(context.Background(), a.Patient.ID, upd)
	assert.True(t, errors.Is(err, xerrors.ErrDuplicateEmail))
}

func TestUpdateMissingPatient(t *testing.T) {
	f := newFixture()
	_, err := f.uc.Update(context.Background(), "7c9e6679-7425-40de-944b-e07fc1f90ae7", createReq("A", "a@x.com"))
	assert.True(t, errors.Is(err, xerrors.ErrPatientNotFound))
}

func TestDelete(t *testing.T) {
	f := newFixture()
	res, err := f.uc.Create(context.Background(), createReq("P1", "p1@x.com"))
	require.NoError(t, err)

	ok, err := f.uc.Delete(context.Background(), res.Patient.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = f.uc.Delete(context.Background(), res.Patient.ID)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = f.uc.Delete(context.Background(), "not-a-uuid")
	assert.True(t, errors.Is(err, xerrors.ErrInvalidInput))
}

func TestGetAndList(t *testing.T) {
	f := newFixture()
	res, err := f.uc.Create(context.Background(), createReq("P1", "p1@x.com"))
	require.NoError(t, err)

	p, err := f.uc.Get(context.Background(), res.Patient.ID)
	require.NoError(t, err)
	assert.Equal(t, "p1@x.com", p.Email)

	_, err = f.uc.Get(context.Background(), "7c9e6679-7425-40de-944b-e07fc1f90ae7")
	assert.True(t, errors.Is(err, xerrors.ErrPatientNotFound))

	all, err := f.uc.List(context.Background())
	require.NoError(t, err)
	assert.Len(t, all, 1)
}
