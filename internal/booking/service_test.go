package booking_test

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"travel-booking/internal/booking"
	"travel-booking/internal/logger"
	"travel-booking/internal/models"
)

type MockStore struct {
	mock.Mock
}

func (m *MockStore) AdmitBooking(ctx context.Context, b *models.Booking) (models.AdmissionResult, error) {
	args := m.Called(ctx, b)
	return args.Get(0).(models.AdmissionResult), args.Error(1)
}

func (m *MockStore) UpdateBookingWithinCapacity(ctx context.Context, b *models.Booking) (models.AdmissionResult, error) {
	args := m.Called(ctx, b)
	return args.Get(0).(models.AdmissionResult), args.Error(1)
}

func (m *MockStore) GetBooking(ctx context.Context, id int64) (*models.Booking, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Booking), args.Error(1)
}

func (m *MockStore) DeleteBooking(ctx context.Context, id int64) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockStore) ListBookings(ctx context.Context, userID *int64, filter models.BookingFilter) ([]models.Booking, error) {
	args := m.Called(ctx, userID, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Booking), args.Error(1)
}

type MockGuard struct {
	mock.Mock
}

func (m *MockGuard) Acquire(ctx context.Context, key string) (bool, error) {
	args := m.Called(ctx, key)
	return args.Bool(0), args.Error(1)
}

func (m *MockGuard) Release(ctx context.Context, key string) error {
	return m.Called(ctx, key).Error(0)
}

type MockEvents struct {
	mock.Mock
}

func (m *MockEvents) PublishBookingCreated(ctx context.Context, b *models.Booking) error {
	return m.Called(ctx, b).Error(0)
}

func (m *MockEvents) PublishBookingUpdated(ctx context.Context, b *models.Booking) error {
	return m.Called(ctx, b).Error(0)
}

func (m *MockEvents) PublishBookingCancelled(ctx context.Context, b *models.Booking) error {
	return m.Called(ctx, b).Error(0)
}

type MockCapacity struct {
	mock.Mock
}

func (m *MockCapacity) Snapshot(ctx context.Context, tourID int64) (models.CapacitySnapshot, error) {
	args := m.Called(ctx, tourID)
	return args.Get(0).(models.CapacitySnapshot), args.Error(1)
}

func (m *MockCapacity) Invalidate(ctx context.Context, tourID int64) {
	m.Called(ctx, tourID)
}

type recordingStream struct {
	snapshots []models.CapacitySnapshot
}

func (r *recordingStream) Broadcast(s models.CapacitySnapshot) {
	r.snapshots = append(r.snapshots, s)
}

var now = time.Date(2030, 6, 15, 9, 0, 0, 0, time.UTC)

func int64Ptr(v int64) *int64 { return &v }

func userActor(id int64) models.Actor {
	return models.Actor{UserID: int64Ptr(id), Username: "traveller", Role: models.RoleAuthenticated}
}

func adminActor() models.Actor {
	return models.Actor{UserID: int64Ptr(1), Username: "admin", Role: models.RoleAdmin}
}

func request(guests int) models.BookingRequest {
	return models.BookingRequest{
		Name:     "Ada Lovelace",
		Email:    "ada@example.com",
		Phone:    "555 123 4567",
		Address:  "1 Analytical Way",
		TourID:   7,
		Location: "Zermatt",
		Guests:   guests,
		Arrivals: "2030-07-01",
		Leaving:  "2030-07-05",
	}
}

type fixture struct {
	store    *MockStore
	guard    *MockGuard
	events   *MockEvents
	capacity *MockCapacity
	stream   *recordingStream
	service  *booking.Service
}

func newFixture() *fixture {
	f := &fixture{
		store:    new(MockStore),
		guard:    new(MockGuard),
		events:   new(MockEvents),
		capacity: new(MockCapacity),
		stream:   &recordingStream{},
	}
	svc := booking.NewService(f.store, booking.NewValidator(func() time.Time { return now }), logger.NewLoggerWithWriter(&bytes.Buffer{}))
	svc.Guard = f.guard
	svc.Events = f.events
	svc.Capacity = f.capacity
	svc.Stream = f.stream
	svc.Now = func() time.Time { return now }
	f.service = svc
	return f
}

func TestSubmitAdmitsBooking(t *testing.T) {
	ctx := context.Background()
	f := newFixture()

	f.guard.On("Acquire", ctx, mock.AnythingOfType("string")).Return(true, nil)
	f.store.On("AdmitBooking", ctx, mock.MatchedBy(func(b *models.Booking) bool {
		return b.TourID == 7 && b.Guests == 10 && *b.UserID == 42 && b.CreatedAt.Equal(now)
	})).Run(func(args mock.Arguments) {
		args.Get(1).(*models.Booking).ID = 100
	}).Return(models.AdmissionResult{Admissible: true, Reason: models.ReasonOK, Remaining: 50}, nil)
	f.capacity.On("Invalidate", ctx, int64(7)).Return()
	f.capacity.On("Snapshot", ctx, int64(7)).Return(models.CapacitySnapshot{TourID: 7, TotalCapacity: 50, Booked: 10, Remaining: 40, Available: true}, nil)
	f.events.On("PublishBookingCreated", ctx, mock.AnythingOfType("*models.Booking")).Return(nil)

	b, err := f.service.Submit(ctx, userActor(42), request(10))
	require.NoError(t, err)
	assert.Equal(t, int64(100), b.ID)
	assert.Equal(t, "5551234567", b.Phone)

	require.Len(t, f.stream.snapshots, 1)
	assert.Equal(t, 40, f.stream.snapshots[0].Remaining)
	f.events.AssertExpectations(t)
	f.guard.AssertNotCalled(t, "Release", mock.Anything, mock.Anything)
}

func TestSubmitAsGuestLeavesUserEmpty(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	f.service.Guard, f.service.Events, f.service.Capacity = nil, nil, nil

	f.store.On("AdmitBooking", ctx, mock.MatchedBy(func(b *models.Booking) bool { return b.UserID == nil })).
		Return(models.AdmissionResult{Admissible: true, Reason: models.ReasonOK, Remaining: 5}, nil)

	_, err := f.service.Submit(ctx, models.Actor{Role: models.RoleUnauthenticated}, request(1))
	require.NoError(t, err)
	f.store.AssertExpectations(t)
}

func TestSubmitCapacityRejections(t *testing.T) {
	tests := []struct {
		name    string
		result  models.AdmissionResult
		message string
	}{
		{"insufficient", models.AdmissionResult{Reason: models.ReasonInsufficientCapacity, Remaining: 2}, "Only 2 spot(s) remaining"},
		{"fully booked", models.AdmissionResult{Reason: models.ReasonFullyBooked}, "This tour is fully booked"},
		{"tour not found", models.AdmissionResult{Reason: models.ReasonTourNotFound}, "Tour not found"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			f := newFixture()
			f.guard.On("Acquire", ctx, mock.Anything).Return(true, nil)
			f.guard.On("Release", ctx, mock.Anything).Return(nil)
			f.store.On("AdmitBooking", ctx, mock.Anything).Return(tt.result, nil)

			_, err := f.service.Submit(ctx, userActor(42), request(5))
			var capErr *booking.CapacityError
			require.True(t, errors.As(err, &capErr))
			assert.Equal(t, tt.result.Reason, capErr.Reason)
			assert.Equal(t, tt.message, capErr.Error())

			f.guard.AssertCalled(t, "Release", ctx, mock.Anything)
			f.events.AssertNotCalled(t, "PublishBookingCreated", mock.Anything, mock.Anything)
			assert.Empty(t, f.stream.snapshots)
		})
	}
}

func TestSubmitValidationStopsBeforeStore(t *testing.T) {
	ctx := context.Background()
	f := newFixture()

	for _, guests := range []int{0, 51} {
		_, err := f.service.Submit(ctx, userActor(42), request(guests))
		var verr *booking.ValidationError
		require.True(t, errors.As(err, &verr))
		assert.Equal(t, "Number of guests must be between 1 and 50", verr.Fields["guests"])
	}
	f.store.AssertNotCalled(t, "AdmitBooking", mock.Anything, mock.Anything)
	f.guard.AssertNotCalled(t, "Acquire", mock.Anything, mock.Anything)
}

func TestSubmitDuplicateIsRejected(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	f.guard.On("Acquire", ctx, mock.Anything).Return(false, nil)

	_, err := f.service.Submit(ctx, userActor(42), request(2))
	assert.ErrorIs(t, err, booking.ErrDuplicateSubmission)
	f.store.AssertNotCalled(t, "AdmitBooking", mock.Anything, mock.Anything)
}

func TestSubmitContinuesWhenGuardIsDown(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	f.service.Capacity, f.service.Events = nil, nil
	f.guard.On("Acquire", ctx, mock.Anything).Return(false, errors.New("redis: connection refused"))
	f.store.On("AdmitBooking", ctx, mock.Anything).Return(models.AdmissionResult{Admissible: true, Reason: models.ReasonOK, Remaining: 9}, nil)

	_, err := f.service.Submit(ctx, userActor(42), request(2))
	assert.NoError(t, err)
}

func TestSubmitStoreFailureIsPersistenceError(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	f.guard.On("Acquire", ctx, mock.Anything).Return(true, nil)
	f.guard.On("Release", ctx, mock.Anything).Return(nil)
	cause := errors.New("connection reset by peer")
	f.store.On("AdmitBooking", ctx, mock.Anything).Return(models.AdmissionResult{}, cause)

	_, err := f.service.Submit(ctx, userActor(42), request(2))
	var perr *booking.PersistenceError
	require.True(t, errors.As(err, &perr))
	assert.ErrorIs(t, err, cause)
	f.guard.AssertCalled(t, "Release", ctx, mock.Anything)
}

func TestSubmitPublishFailureDoesNotFailBooking(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	f.service.Capacity = nil
	f.guard.On("Acquire", ctx, mock.Anything).Return(true, nil)
	f.store.On("AdmitBooking", ctx, mock.Anything).Return(models.AdmissionResult{Admissible: true, Reason: models.ReasonOK, Remaining: 9}, nil)
	f.events.On("PublishBookingCreated", ctx, mock.Anything).Return(errors.New("kafka down"))

	b, err := f.service.Submit(ctx, userActor(42), request(2))
	require.NoError(t, err)
	assert.NotNil(t, b)
}

func TestGetEnforcesOwnership(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	owned := &models.Booking{ID: 5, TourID: 7, UserID: int64Ptr(42), Guests: 2}
	guest := &models.Booking{ID: 6, TourID: 7, Guests: 1}
	f.store.On("GetBooking", ctx, int64(5)).Return(owned, nil)
	f.store.On("GetBooking", ctx, int64(6)).Return(guest, nil)
	f.store.On("GetBooking", ctx, int64(9)).Return(nil, booking.ErrNotFound)

	b, err := f.service.Get(ctx, userActor(42), 5)
	require.NoError(t, err)
	assert.Equal(t, owned, b)

	_, err = f.service.Get(ctx, userActor(43), 5)
	assert.ErrorIs(t, err, booking.ErrForbidden)

	_, err = f.service.Get(ctx, userActor(42), 6)
	assert.ErrorIs(t, err, booking.ErrForbidden, "guest bookings are admin only")

	b, err = f.service.Get(ctx, adminActor(), 6)
	require.NoError(t, err)
	assert.Equal(t, guest, b)

	_, err = f.service.Get(ctx, userActor(42), 9)
	assert.ErrorIs(t, err, booking.ErrNotFound)

	_, err = f.service.Get(ctx, models.Actor{Role: models.RoleUnauthenticated}, 5)
	assert.ErrorIs(t, err, booking.ErrUnauthenticated)
}

func TestEditKeepsOwnerAndReportsCapacity(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	created := now.Add(-time.Hour)
	existing := &models.Booking{ID: 5, TourID: 7, UserID: int64Ptr(42), Guests: 2, CreatedAt: created}
	f.store.On("GetBooking", ctx, int64(5)).Return(existing, nil)

	f.store.On("UpdateBookingWithinCapacity", ctx, mock.MatchedBy(func(b *models.Booking) bool {
		return b.Guests == 9
	})).Return(models.AdmissionResult{Reason: models.ReasonInsufficientCapacity, Remaining: 4}, nil).Once()

	_, err := f.service.Edit(ctx, userActor(42), 5, request(9))
	var capErr *booking.CapacityError
	require.True(t, errors.As(err, &capErr))
	assert.Equal(t, 4, capErr.Remaining)

	f.store.On("UpdateBookingWithinCapacity", ctx, mock.MatchedBy(func(b *models.Booking) bool {
		return b.Guests == 4 && b.ID == 5 && *b.UserID == 42 && b.CreatedAt.Equal(created)
	})).Return(models.AdmissionResult{Admissible: true, Reason: models.ReasonOK, Remaining: 4}, nil).Once()
	f.capacity.On("Invalidate", ctx, int64(7)).Return()
	f.capacity.On("Snapshot", ctx, int64(7)).Return(models.CapacitySnapshot{TourID: 7}, nil)
	f.events.On("PublishBookingUpdated", ctx, mock.Anything).Return(nil)

	b, err := f.service.Edit(ctx, userActor(42), 5, request(4))
	require.NoError(t, err)
	assert.Equal(t, 4, b.Guests)
	f.events.AssertExpectations(t)
}

func TestEditByStrangerIsForbidden(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	f.store.On("GetBooking", ctx, int64(5)).Return(&models.Booking{ID: 5, UserID: int64Ptr(42)}, nil)

	_, err := f.service.Edit(ctx, userActor(7), 5, request(1))
	assert.ErrorIs(t, err, booking.ErrForbidden)
	f.store.AssertNotCalled(t, "UpdateBookingWithinCapacity", mock.Anything, mock.Anything)
}

func TestCancelReleasesCapacity(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	existing := &models.Booking{ID: 5, TourID: 7, UserID: int64Ptr(42), Guests: 3}
	f.store.On("GetBooking", ctx, int64(5)).Return(existing, nil)
	f.store.On("DeleteBooking", ctx, int64(5)).Return(nil)
	f.capacity.On("Invalidate", ctx, int64(7)).Return()
	f.capacity.On("Snapshot", ctx, int64(7)).Return(models.CapacitySnapshot{TourID: 7, TotalCapacity: 10, Remaining: 10, Available: true}, nil)
	f.events.On("PublishBookingCancelled", ctx, existing).Return(nil)

	require.NoError(t, f.service.Cancel(ctx, adminActor(), 5))
	f.capacity.AssertExpectations(t)
	f.events.AssertExpectations(t)
	require.Len(t, f.stream.snapshots, 1)
	assert.True(t, f.stream.snapshots[0].Available)
}

func TestListing(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	filter := models.BookingFilter{Location: "par", SortBy: "arrivals", Order: "asc"}
	mine := []models.Booking{{ID: 1, UserID: int64Ptr(42)}}
	f.store.On("ListBookings", ctx, int64Ptr(42), filter).Return(mine, nil)
	f.store.On("ListBookings", ctx, (*int64)(nil), filter).Return([]models.Booking{{ID: 1}, {ID: 2}}, nil)

	got, err := f.service.ListMine(ctx, userActor(42), filter)
	require.NoError(t, err)
	assert.Equal(t, mine, got)

	_, err = f.service.ListMine(ctx, models.Actor{}, filter)
	assert.ErrorIs(t, err, booking.ErrUnauthenticated)

	_, err = f.service.ListAll(ctx, userActor(42), filter)
	assert.ErrorIs(t, err, booking.ErrForbidden)

	all, err := f.service.ListAll(ctx, adminActor(), filter)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestReference(t *testing.T) {
	b := &models.Booking{ID: 12, TourID: 3, Guests: 2, Arrivals: time.Date(2030, 7, 1, 0, 0, 0, 0, time.UTC)}
	assert.Equal(t, "booking:12|tour:3|guests:2|arrivals:2030-07-01", booking.Reference(b))
}

type fakeQR struct{}

func (fakeQR) Generate(reference string) ([]byte, error) { return []byte("qr:" + reference), nil }

type recordingDocuments struct {
	booking *models.Booking
	qrCode  []byte
}

func (d *recordingDocuments) Generate(b *models.Booking, qrCode []byte) ([]byte, error) {
	d.booking, d.qrCode = b, qrCode
	return []byte("%PDF-1.4"), nil
}

func TestConfirmationPDF(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	owned := &models.Booking{ID: 5, TourID: 7, UserID: int64Ptr(42), Guests: 2, Arrivals: time.Date(2030, 7, 1, 0, 0, 0, 0, time.UTC)}
	f.store.On("GetBooking", ctx, int64(5)).Return(owned, nil)

	_, err := f.service.ConfirmationPDF(ctx, userActor(42), 5)
	assert.EqualError(t, err, "confirmation documents are not configured")

	docs := &recordingDocuments{}
	f.service.Documents = docs
	doc, err := f.service.ConfirmationPDF(ctx, userActor(42), 5)
	require.NoError(t, err)
	assert.Equal(t, []byte("%PDF-1.4"), doc)
	assert.Equal(t, owned, docs.booking)
	assert.Nil(t, docs.qrCode)

	f.service.QR = fakeQR{}
	_, err = f.service.ConfirmationPDF(ctx, userActor(42), 5)
	require.NoError(t, err)
	assert.Equal(t, "qr:booking:5|tour:7|guests:2|arrivals:2030-07-01", string(docs.qrCode))

	_, err = f.service.ConfirmationPDF(ctx, userActor(43), 5)
	assert.ErrorIs(t, err, booking.ErrForbidden)
}
