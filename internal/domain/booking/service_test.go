package booking

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type mockRepo struct {
	bookings map[uuid.UUID]*Booking
	released map[uuid.UUID]time.Time
}

func newMockRepo() *mockRepo {
	return &mockRepo{
		bookings: make(map[uuid.UUID]*Booking),
		released: make(map[uuid.UUID]time.Time),
	}
}

func (m *mockRepo) Create(_ context.Context, b *Booking) error {
	cp := *b
	m.bookings[b.ID] = &cp
	return nil
}

func (m *mockRepo) GetByID(_ context.Context, id uuid.UUID) (*Booking, error) {
	if b, ok := m.bookings[id]; ok {
		cp := *b
		return &cp, nil
	}
	return nil, ErrNotFound
}

func (m *mockRepo) UpdateStatus(_ context.Context, id uuid.UUID, status string) error {
	b, ok := m.bookings[id]
	if !ok {
		return ErrNotFound
	}
	b.Status = status
	return nil
}

func (m *mockRepo) UpdateWindow(_ context.Context, id uuid.UUID, start, end time.Time) error {
	b, ok := m.bookings[id]
	if !ok {
		return ErrNotFound
	}
	b.StartTime = start
	b.EndTime = end
	b.DurationHours = end.Sub(start).Hours()
	return nil
}

func (m *mockRepo) List(_ context.Context, f Filter) ([]*Booking, int, error) {
	var out []*Booking
	for _, b := range m.bookings {
		if f.PatientID != uuid.Nil && b.PatientID != f.PatientID {
			continue
		}
		if f.DoctorID != uuid.Nil && b.DoctorID != f.DoctorID {
			continue
		}
		if f.StaffID != uuid.Nil && !containsID(b.StaffIDs, f.StaffID) {
			continue
		}
		if f.Status != "" && b.Status != f.Status {
			continue
		}
		if f.Kind != "" && b.Kind != f.Kind {
			continue
		}
		cp := *b
		out = append(out, &cp)
	}
	return out, len(out), nil
}

func containsID(ids []uuid.UUID, id uuid.UUID) bool {
	for _, x := range ids {
		if x == id {
			return true
		}
	}
	return false
}

func (m *mockRepo) CountDoctorOverlaps(_ context.Context, doctorID uuid.UUID, start, end time.Time, exclude uuid.UUID) (int, error) {
	count := 0
	for _, b := range m.bookings {
		if b.ID == exclude || b.Status != StatusScheduled || b.DoctorID != doctorID {
			continue
		}
		if Overlaps(b.StartTime, b.EndTime, start, end) {
			count++
		}
	}
	return count, nil
}

func (m *mockRepo) CountStaffOverlaps(_ context.Context, staffID uuid.UUID, start, end time.Time, exclude uuid.UUID) (int, error) {
	count := 0
	for _, b := range m.bookings {
		if b.ID == exclude || b.Status != StatusScheduled || !containsID(b.StaffIDs, staffID) {
			continue
		}
		if Overlaps(b.StartTime, b.EndTime, start, end) {
			count++
		}
	}
	return count, nil
}

func (m *mockRepo) CountResourceOverlaps(_ context.Context, resourceID uuid.UUID, start, end time.Time, exclude uuid.UUID) (int, error) {
	count := 0
	for _, b := range m.bookings {
		if b.ID == exclude || b.Status != StatusScheduled || !containsID(b.ResourceIDs, resourceID) {
			continue
		}
		if Overlaps(b.StartTime, b.EndTime, start, end) {
			count++
		}
	}
	return count, nil
}

func (m *mockRepo) CountResourceScheduled(_ context.Context, resourceID uuid.UUID, exclude uuid.UUID) (int, error) {
	count := 0
	for _, b := range m.bookings {
		if b.ID == exclude || b.Status != StatusScheduled {
			continue
		}
		if containsID(b.ResourceIDs, resourceID) {
			count++
		}
	}
	return count, nil
}

func (m *mockRepo) ReleaseAllocations(_ context.Context, bookingID uuid.UUID, at time.Time) error {
	if _, ok := m.bookings[bookingID]; !ok {
		return ErrNotFound
	}
	m.released[bookingID] = at
	return nil
}

type mockUsers struct {
	users map[uuid.UUID]*Participant
}

func (m *mockUsers) Participant(_ context.Context, id uuid.UUID) (*Participant, error) {
	if p, ok := m.users[id]; ok {
		return p, nil
	}
	return nil, errors.New("no such user")
}

type mockResources struct {
	assets map[uuid.UUID]*Asset
}

func (m *mockResources) Asset(_ context.Context, id uuid.UUID) (*Asset, error) {
	if a, ok := m.assets[id]; ok {
		return a, nil
	}
	return nil, errors.New("no such resource")
}

func (m *mockResources) SetStatus(_ context.Context, id uuid.UUID, status string) error {
	a, ok := m.assets[id]
	if !ok {
		return errors.New("no such resource")
	}
	a.Status = status
	return nil
}

type notification struct {
	userID  uuid.UUID
	title   string
	message string
}

type mockNotifier struct {
	sent []notification
}

func (m *mockNotifier) Notify(_ context.Context, userID uuid.UUID, title, message string) error {
	m.sent = append(m.sent, notification{userID, title, message})
	return nil
}

var passthroughTx TxRunner = func(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type fixture struct {
	svc       *Service
	repo      *mockRepo
	users     *mockUsers
	resources *mockResources
	notifier  *mockNotifier

	patient uuid.UUID
	doctor  uuid.UUID
	nurse   uuid.UUID
	bed     uuid.UUID
	theatre uuid.UUID
	machine uuid.UUID

	now time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		repo:      newMockRepo(),
		users:     &mockUsers{users: make(map[uuid.UUID]*Participant)},
		resources: &mockResources{assets: make(map[uuid.UUID]*Asset)},
		notifier:  &mockNotifier{},
		now:       time.Date(2026, 9, 1, 8, 0, 0, 0, time.UTC),
	}

	addUser := func(role string) uuid.UUID {
		id := uuid.New()
		f.users.users[id] = &Participant{ID: id, Role: role, Name: role, Active: true}
		return id
	}
	f.patient = addUser("patient")
	f.doctor = addUser("doctor")
	f.nurse = addUser("nurse")

	addAsset := func(kind, label string) uuid.UUID {
		id := uuid.New()
		f.resources.assets[id] = &Asset{ID: id, Kind: kind, Label: label, Status: "available"}
		return id
	}
	f.bed = addAsset("bed", "Bed 1 (Ward A)")
	f.theatre = addAsset("operation_theatre", "Operation Theatre 1")
	f.machine = addAsset("machine", "MRI Scanner #SN-1")

	f.svc = NewService(f.repo, f.users, f.resources, f.notifier, passthroughTx, zerolog.Nop())
	f.svc.now = func() time.Time { return f.now }
	return f
}

func (f *fixture) request(mutate func(*CreateRequest)) *CreateRequest {
	req := &CreateRequest{
		Kind:          KindAppointment,
		PatientID:     f.patient,
		DoctorID:      f.doctor,
		StartTime:     "2026-09-01T09:00:00Z",
		DurationHours: 1,
	}
	if mutate != nil {
		mutate(req)
	}
	return req
}

func (f *fixture) admin() Actor  { return Actor{UserID: uuid.New(), Role: "admin"} }
func (f *fixture) asDoctor() Actor {
	return Actor{UserID: f.doctor, Role: "doctor"}
}

func TestCreateBooking(t *testing.T) {
	f := newFixture(t)

	b, err := f.svc.Create(context.Background(), f.admin(), f.request(func(r *CreateRequest) {
		r.StaffIDs = []uuid.UUID{f.nurse}
		r.ResourceIDs = []uuid.UUID{f.bed}
	}))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if b.Status != StatusScheduled {
		t.Errorf("status = %q, want scheduled", b.Status)
	}
	if b.DurationHours != 1 {
		t.Errorf("duration_hours = %v, want 1", b.DurationHours)
	}
	if !b.EndTime.Equal(b.StartTime.Add(time.Hour)) {
		t.Errorf("end = %v, want one hour after %v", b.EndTime, b.StartTime)
	}
	if f.resources.assets[f.bed].Status != "booked" {
		t.Errorf("bed status = %q, want booked", f.resources.assets[f.bed].Status)
	}
	// Patient, doctor and nurse are each told.
	if len(f.notifier.sent) != 3 {
		t.Fatalf("sent %d notifications, want 3", len(f.notifier.sent))
	}
	got := map[uuid.UUID]bool{}
	for _, n := range f.notifier.sent {
		got[n.userID] = true
	}
	for _, id := range []uuid.UUID{f.patient, f.doctor, f.nurse} {
		if !got[id] {
			t.Errorf("participant %s not notified", id)
		}
	}
}

func TestCreateDoctorConflict(t *testing.T) {
	f := newFixture(t)
	if _, err := f.svc.Create(context.Background(), f.admin(), f.request(nil)); err != nil {
		t.Fatalf("first create: %v", err)
	}
	f.notifier.sent = nil

	otherPatient := uuid.New()
	f.users.users[otherPatient] = &Participant{ID: otherPatient, Role: "patient", Name: "p2", Active: true}

	_, err := f.svc.Create(context.Background(), f.admin(), f.request(func(r *CreateRequest) {
		r.PatientID = otherPatient
		r.StartTime = "2026-09-01T09:30:00Z"	}))
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
	if !strings.Contains(err.Error(), "doctor") {
		t.Errorf("conflict error should name the doctor, got %q", err.Error())
	}
	if len(f.repo.bookings) != 1 {
		t.Errorf("conflicting booking was persisted")
	}
	if len(f.notifier.sent) != 0 {
		t.Errorf("notifications sent for a rejected booking")
	}
}

func TestCreateBackToBackAllowed(t *testing.T) {
	f := newFixture(t)
	if _, err := f.svc.Create(context.Background(), f.admin(), f.request(func(r *CreateRequest) {
		r.ResourceIDs = []uuid.UUID{f.bed}
	})); err != nil {
		t.Fatalf("first create: %v", err)
	}

	otherPatient := uuid.New()
	f.users.users[otherPatient] = &Participant{ID: otherPatient, Role: "patient", Name: "p2", Active: true}

	// Same doctor and same bed, starting exactly when the first ends.
	if _, err := f.svc.Create(context.Background(), f.admin(), f.request(func(r *CreateRequest) {
		r.PatientID = otherPatient
		r.ResourceIDs = []uuid.UUID{f.bed}
		r.StartTime = "2026-09-01T10:00:00Z"	})); err != nil {
		t.Fatalf("back-to-back booking rejected: %v", err)
	}
}

func TestCreateResourceConflict(t *testing.T) {
	f := newFixture(t)
	if _, err := f.svc.Create(context.Background(), f.admin(), f.request(func(r *CreateRequest) {
		r.ResourceIDs = []uuid.UUID{f.machine}
	})); err != nil {
		t.Fatalf("first create: %v", err)
	}

	otherPatient := uuid.New()
	f.users.users[otherPatient] = &Participant{ID: otherPatient, Role: "patient", Name: "p2", Active: true}
	otherDoctor := uuid.New()
	f.users.users[otherDoctor] = &Participant{ID: otherDoctor, Role: "doctor", Name: "d2", Active: true}

	_, err := f.svc.Create(context.Background(), f.admin(), f.request(func(r *CreateRequest) {
		r.PatientID = otherPatient
		r.DoctorID = otherDoctor
		r.ResourceIDs = []uuid.UUID{f.machine}
		r.StartTime = "2026-09-01T09:30:00Z"	}))
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
	if !strings.Contains(err.Error(), "MRI Scanner") {
		t.Errorf("conflict should carry the resource label, got %q", err.Error())
	}
}

func TestConflictOnLastResourceLeavesNoTrace(t *testing.T) {
	f := newFixture(t)

	otherPatient := uuid.New()
	f.users.users[otherPatient] = &Participant{ID: otherPatient, Role: "patient", Name: "p2", Active: true}
	otherDoctor := uuid.New()
	f.users.users[otherDoctor] = &Participant{ID: otherDoctor, Role: "doctor", Name: "d2", Active: true}

	// An existing booking holds only the machine in the window.
	if _, err := f.svc.Create(context.Background(), f.admin(), f.request(func(r *CreateRequest) {
		r.PatientID = otherPatient
		r.DoctorID = otherDoctor
		r.ResourceIDs = []uuid.UUID{f.machine}
	})); err != nil {
		t.Fatalf("holder create: %v", err)
	}
	f.notifier.sent = nil

	// Bed and theatre are free; the machine, requested last, is not. The
	// whole claim must fail with nothing written.
	_, err := f.svc.Create(context.Background(), f.admin(), f.request(func(r *CreateRequest) {
		r.StaffIDs = []uuid.UUID{f.nurse}
		r.ResourceIDs = []uuid.UUID{f.bed, f.theatre, f.machine}
	}))
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}

	if len(f.repo.bookings) != 1 {
		t.Errorf("rejected booking was persisted: %d bookings", len(f.repo.bookings))
	}
	if got := f.resources.assets[f.bed].Status; got != "available" {
		t.Errorf("bed status = %q, want available", got)
	}
	if got := f.resources.assets[f.theatre].Status; got != "available" {
		t.Errorf("theatre status = %q, want available", got)
	}
	if len(f.notifier.sent) != 0 {
		t.Errorf("notifications sent for a rejected booking: %d", len(f.notifier.sent))
	}
	if len(f.repo.released) != 0 {
		t.Errorf("allocations released for a rejected booking")
	}
}

func TestCreateStaffConflict(t *testing.T) {
	f := newFixture(t)
	if _, err := f.svc.Create(context.Background(), f.admin(), f.request(func(r *CreateRequest) {
		r.StaffIDs = []uuid.UUID{f.nurse}
	})); err != nil {
		t.Fatalf("first create: %v", err)
	}

	otherPatient := uuid.New()
	f.users.users[otherPatient] = &Participant{ID: otherPatient, Role: "patient", Name: "p2", Active: true}
	otherDoctor := uuid.New()
	f.users.users[otherDoctor] = &Participant{ID: otherDoctor, Role: "doctor", Name: "d2", Active: true}

	_, err := f.svc.Create(context.Background(), f.admin(), f.request(func(r *CreateRequest) {
		r.PatientID = otherPatient
		r.DoctorID = otherDoctor
		r.StaffIDs = []uuid.UUID{f.nurse}
	}))
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
}

func TestCancelledBookingDoesNotBlock(t *testing.T) {
	f := newFixture(t)
	b, err := f.svc.Create(context.Background(), f.admin(), f.request(nil))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := f.svc.Cancel(context.Background(), f.admin(), b.ID); err != nil {
		t.Fatalf("cancel: %v", err)
	}

	otherPatient := uuid.New()
	f.users.users[otherPatient] = &Participant{ID: otherPatient, Role: "patient", Name: "p2", Active: true}

	if _, err := f.svc.Create(context.Background(), f.admin(), f.request(func(r *CreateRequest) {
		r.PatientID = otherPatient
	})); err != nil {
		t.Fatalf("cancelled booking still blocks the window: %v", err)
	}
}

func TestStatusFlagIsOnlyAHint(t *testing.T) {
	f := newFixture(t)
	if _, err := f.svc.Create(context.Background(), f.admin(), f.request(func(r *CreateRequest) {
		r.ResourceIDs = []uuid.UUID{f.bed}
	})); err != nil {
		t.Fatalf("create: %v", err)
	}

	// Flip the flag behind the allocator's back. The booking rows, not the
	// flag, decide availability.
	f.resources.assets[f.bed].Status = "available"

	otherPatient := uuid.New()
	f.users.users[otherPatient] = &Participant{ID: otherPatient, Role: "patient", Name: "p2", Active: true}
	otherDoctor := uuid.New()
	f.users.users[otherDoctor] = &Participant{ID: otherDoctor, Role: "doctor", Name: "d2", Active: true}

	_, err := f.svc.Create(context.Background(), f.admin(), f.request(func(r *CreateRequest) {
		r.PatientID = otherPatient
		r.DoctorID = otherDoctor
		r.ResourceIDs = []uuid.UUID{f.bed}
	}))
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict despite available flag, got %v", err)
	}
}

func TestKindRules(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Create(context.Background(), f.admin(), f.request(func(r *CreateRequest) {
		r.Kind = KindSurgery
		r.ResourceIDs = []uuid.UUID{f.bed}
	}))
	if !errors.Is(err, ErrInvalid) || !strings.Contains(err.Error(), "operation theatre") {
		t.Fatalf("surgery without theatre: got %v", err)
	}

	_, err = f.svc.Create(context.Background(), f.admin(), f.request(func(r *CreateRequest) {
		r.Kind = KindTest
	}))
	if !errors.Is(err, ErrInvalid) || !strings.Contains(err.Error(), "machine") {
		t.Fatalf("test without machine: got %v", err)
	}

	if _, err := f.svc.Create(context.Background(), f.admin(), f.request(func(r *CreateRequest) {
		r.Kind = KindSurgery
		r.ResourceIDs = []uuid.UUID{f.theatre, f.bed}
	})); err != nil {
		t.Fatalf("valid surgery rejected: %v", err)
	}
}

func TestMaintenanceResourceRejected(t *testing.T) {
	f := newFixture(t)
	f.resources.assets[f.machine].Status = "maintenance"

	_, err := f.svc.Create(context.Background(), f.admin(), f.request(func(r *CreateRequest) {
		r.ResourceIDs = []uuid.UUID{f.machine}
	}))
	if !errors.Is(err, ErrInvalid) || !strings.Contains(err.Error(), "maintenance") {
		t.Fatalf("expected maintenance rejection, got %v", err)
	}
}

func TestPatientBookingRules(t *testing.T) {
	f := newFixture(t)
	asPatient := Actor{UserID: f.patient, Role: "patient"}

	// Patients book appointments for themselves.
	if _, err := f.svc.Create(context.Background(), asPatient, f.request(nil)); err != nil {
		t.Fatalf("patient self-booking rejected: %v", err)
	}

	otherPatient := uuid.New()
	f.users.users[otherPatient] = &Participant{ID: otherPatient, Role: "patient", Name: "p2", Active: true}

	_, err := f.svc.Create(context.Background(), asPatient, f.request(func(r *CreateRequest) {
		r.PatientID = otherPatient
		r.StartTime = "2026-09-01T11:00:00Z"	}))
	if !errors.Is(err, ErrForbidden) {
		t.Fatalf("patient booked for someone else: %v", err)
	}

	_, err = f.svc.Create(context.Background(), asPatient, f.request(func(r *CreateRequest) {
		r.Kind = KindSurgery
		r.ResourceIDs = []uuid.UUID{f.theatre}
		r.StartTime = "2026-09-01T11:00:00Z"	}))
	if !errors.Is(err, ErrForbidden) {
		t.Fatalf("patient booked a surgery: %v", err)
	}
}

func TestParticipantValidation(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Create(context.Background(), f.admin(), f.request(func(r *CreateRequest) {
		r.DoctorID = f.nurse
	}))
	if !errors.Is(err, ErrInvalid) {
		t.Fatalf("nurse accepted as doctor: %v", err)
	}

	f.users.users[f.doctor].Active = false
	_, err = f.svc.Create(context.Background(), f.admin(), f.request(nil))
	if !errors.Is(err, ErrInvalid) || !strings.Contains(err.Error(), "deactivated") {
		t.Fatalf("deactivated doctor accepted: %v", err)
	}
}

func TestCompleteReleasesResources(t *testing.T) {
	f := newFixture(t)
	b, err := f.svc.Create(context.Background(), f.admin(), f.request(func(r *CreateRequest) {
		r.ResourceIDs = []uuid.UUID{f.bed}
	}))
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	got, err := f.svc.Complete(context.Background(), f.asDoctor(), b.ID)
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if got.Status != StatusCompleted {
		t.Errorf("status = %q, want completed", got.Status)
	}
	if f.resources.assets[f.bed].Status != "available" {
		t.Errorf("bed status = %q, want available", f.resources.assets[f.bed].Status)
	}
	if at, ok := f.repo.released[b.ID]; !ok || !at.Equal(f.now) {
		t.Errorf("allocations not stamped released at %v: %v", f.now, at)
	}
}

func TestCompleteKeepsResourceBookedWhenStillClaimed(t *testing.T) {
	f := newFixture(t)
	first, err := f.svc.Create(context.Background(), f.admin(), f.request(func(r *CreateRequest) {
		r.ResourceIDs = []uuid.UUID{f.bed}
	}))
	if err != nil {
		t.Fatalf("first create: %v", err)
	}

	otherPatient := uuid.New()
	f.users.users[otherPatient] = &Participant{ID: otherPatient, Role: "patient", Name: "p2", Active: true}
	otherDoctor := uuid.New()
	f.users.users[otherDoctor] = &Participant{ID: otherDoctor, Role: "doctor", Name: "d2", Active: true}

	if _, err := f.svc.Create(context.Background(), f.admin(), f.request(func(r *CreateRequest) {
		r.PatientID = otherPatient
		r.DoctorID = otherDoctor
		r.ResourceIDs = []uuid.UUID{f.bed}
		r.StartTime = "2026-09-01T10:00:00Z"	})); err != nil {
		t.Fatalf("second create: %v", err)
	}

	if _, err := f.svc.Complete(context.Background(), f.asDoctor(), first.ID); err != nil {
		t.Fatalf("complete: %v", err)
	}
	if f.resources.assets[f.bed].Status != "booked" {
		t.Errorf("bed released while another scheduled booking holds it")
	}
}

func TestFinishPermissions(t *testing.T) {
	f := newFixture(t)
	b, err := f.svc.Create(context.Background(), f.admin(), f.request(nil))
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	// The patient may cancel but not complete.
	asPatient := Actor{UserID: f.patient, Role: "patient"}
	if _, err := f.svc.Complete(context.Background(), asPatient, b.ID); !errors.Is(err, ErrForbidden) {
		t.Fatalf("patient completed a booking: %v", err)
	}

	// An unrelated doctor may do neither.
	stranger := Actor{UserID: uuid.New(), Role: "doctor"}
	if _, err := f.svc.Cancel(context.Background(), stranger, b.ID); !errors.Is(err, ErrForbidden) {
		t.Fatalf("unrelated doctor cancelled a booking: %v", err)
	}

	if _, err := f.svc.Cancel(context.Background(), asPatient, b.ID); err != nil {
		t.Fatalf("patient cancel: %v", err)
	}

	// Lifecycle changes on a closed booking are refused.
	if _, err := f.svc.Complete(context.Background(), f.asDoctor(), b.ID); !errors.Is(err, ErrNotScheduled) {
		t.Fatalf("completed a cancelled booking: %v", err)
	}
}

func TestReschedule(t *testing.T) {
	f := newFixture(t)
	b, err := f.svc.Create(context.Background(), f.admin(), f.request(nil))
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	// Moving within its own window must not conflict with itself.
	got, err := f.svc.Reschedule(context.Background(), f.asDoctor(), b.ID, &RescheduleRequest{
		StartTime:     "2026-09-01T09:30:00Z",
		DurationHours: 1,
	})
	if err != nil {
		t.Fatalf("reschedule: %v", err)
	}
	if !got.StartTime.Equal(time.Date(2026, 9, 1, 9, 30, 0, 0, time.UTC)) {
		t.Errorf("start not moved: %v", got.StartTime)
	}

	otherPatient := uuid.New()
	f.users.users[otherPatient] = &Participant{ID: otherPatient, Role: "patient", Name: "p2", Active: true}
	if _, err := f.svc.Create(context.Background(), f.admin(), f.request(func(r *CreateRequest) {
		r.PatientID = otherPatient
		r.StartTime = "2026-09-01T12:00:00Z"	})); err != nil {
		t.Fatalf("second create: %v", err)
	}

	// Moving onto the other booking's window hits the doctor conflict.
	_, err = f.svc.Reschedule(context.Background(), f.asDoctor(), b.ID, &RescheduleRequest{
		StartTime:     "2026-09-01T12:30:00Z",
		DurationHours: 1,
	})
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
}

func TestListRoleScoping(t *testing.T) {
	f := newFixture(t)
	if _, err := f.svc.Create(context.Background(), f.admin(), f.request(func(r *CreateRequest) {
		r.StaffIDs = []uuid.UUID{f.nurse}
	})); err != nil {
		t.Fatalf("create: %v", err)
	}

	otherPatient := uuid.New()
	f.users.users[otherPatient] = &Participant{ID: otherPatient, Role: "patient", Name: "p2", Active: true}
	otherDoctor := uuid.New()
	f.users.users[otherDoctor] = &Participant{ID: otherDoctor, Role: "doctor", Name: "d2", Active: true}
	if _, err := f.svc.Create(context.Background(), f.admin(), f.request(func(r *CreateRequest) {
		r.PatientID = otherPatient
		r.DoctorID = otherDoctor
		r.StartTime = "2026-09-01T11:00:00Z"	})); err != nil {
		t.Fatalf("create: %v", err)
	}

	cases := []struct {
		name  string
		actor Actor
		want  int
	}{
		{"patient sees own", Actor{UserID: f.patient, Role: "patient"}, 1},
		{"doctor sees assigned", Actor{UserID: f.doctor, Role: "doctor"}, 1},
		{"nurse sees allocated", Actor{UserID: f.nurse, Role: "nurse"}, 1},
		{"admin sees all", f.admin(), 2},
	}
	for _, tt := range cases {
		t.Run(tt.name, func(t *testing.T) {
			got, total, err := f.svc.List(context.Background(), tt.actor, Filter{})
			if err != nil {
				t.Fatalf("list: %v", err)
			}
			if len(got) != tt.want || total != tt.want {
				t.Errorf("got %d bookings (total %d), want %d", len(got), total, tt.want)
			}
		})
	}
}

func TestGetAccess(t *testing.T) {
	f := newFixture(t)
	b, err := f.svc.Create(context.Background(), f.admin(), f.request(nil))
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if _, err := f.svc.Get(context.Background(), Actor{UserID: f.patient, Role: "patient"}, b.ID); err != nil {
		t.Errorf("patient denied own booking: %v", err)
	}
	if _, err := f.svc.Get(context.Background(), Actor{UserID: uuid.New(), Role: "patient"}, b.ID); !errors.Is(err, ErrForbidden) {
		t.Errorf("stranger allowed: %v", err)
	}
}

func TestCheckAvailability(t *testing.T) {
	f := newFixture(t)
	if _, err := f.svc.Create(context.Background(), f.admin(), f.request(nil)); err != nil {
		t.Fatalf("create: %v", err)
	}

	conflicts, err := f.svc.CheckAvailability(context.Background(), f.request(func(r *CreateRequest) {
		r.StartTime = "2026-09-01T09:30:00Z"	}))
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if len(conflicts) != 1 || conflicts[0].Type != "doctor" {
		t.Fatalf("conflicts = %+v, want one doctor conflict", conflicts)
	}

	conflicts, err = f.svc.CheckAvailability(context.Background(), f.request(func(r *CreateRequest) {
		r.StartTime = "2026-09-01T14:00:00Z"	}))
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if len(conflicts) != 0 {
		t.Fatalf("conflicts = %+v, want none", conflicts)
	}
}
