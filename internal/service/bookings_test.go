package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/pribylovaa/go-room-booking/internal/availability"
	"github.com/pribylovaa/go-room-booking/internal/events"
	"github.com/pribylovaa/go-room-booking/internal/models"
	"github.com/pribylovaa/go-room-booking/internal/storage"
	"github.com/pribylovaa/go-room-booking/mocks"
)

func date(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := availability.ParseDate(s)
	require.NoError(t, err)
	return d
}

func TestCreateBooking_OK(t *testing.T) {
	t.Parallel()

	svc, st, pub, ctrl := newSvcWithPublisher(t)
	defer ctrl.Finish()
	tx := mocks.NewMockTx(ctrl)

	userID, roomID := uuid.New(), uuid.New()
	// Соседняя бронь заканчивается в день заезда: пересечения нет.
	neighbour := models.Booking{ID: uuid.New(), RoomID: roomID, DateFrom: date(t, "2030-03-01"), DateTo: date(t, "2030-03-05")}

	expectTx(st, tx)
	gomock.InOrder(
		tx.EXPECT().LockRooms(gomock.Any(), roomID).Return(nil),
		tx.EXPECT().RoomByID(gomock.Any(), roomID).Return(&models.Room{ID: roomID}, nil),
		tx.EXPECT().OverlappingBookings(gomock.Any(), roomID, gomock.Any()).Return([]models.Booking{neighbour}, nil),
		tx.EXPECT().SaveBooking(gomock.Any(), gomock.Any()).Return(nil),
	)

	b, err := svc.CreateBooking(context.Background(), BookingInput{
		UserID:   userID,
		RoomID:   roomID,
		DateFrom: date(t, "2030-03-05"),
		DateTo:   date(t, "2030-03-08"),
	})
	require.NoError(t, err)
	require.Equal(t, userID, b.UserID)
	require.Equal(t, date(t, "2030-03-05"), b.DateFrom)
	require.Equal(t, []events.Type{events.BookingCreated}, pub.types())
	require.Equal(t, "2030-03-05", pub.events[0].DateFrom)
}

func TestCreateBooking_EmptyInterval(t *testing.T) {
	t.Parallel()

	svc, _, ctrl := newSvc(t)
	defer ctrl.Finish()

	for _, dates := range [][2]string{{"2030-03-05", "2030-03-05"}, {"2030-03-06", "2030-03-05"}} {
		_, err := svc.CreateBooking(context.Background(), BookingInput{
			UserID:   uuid.New(),
			RoomID:   uuid.New(),
			DateFrom: date(t, dates[0]),
			DateTo:   date(t, dates[1]),
		})
		require.ErrorIs(t, err, ErrInvalidArgument)
	}
}

func TestCreateBooking_RoomMissing(t *testing.T) {
	t.Parallel()

	svc, st, ctrl := newSvc(t)
	defer ctrl.Finish()
	tx := mocks.NewMockTx(ctrl)

	roomID := uuid.New()
	expectTx(st, tx)
	tx.EXPECT().LockRooms(gomock.Any(), roomID).Return(nil)
	tx.EXPECT().RoomByID(gomock.Any(), roomID).Return(nil, storage.ErrNotFound)

	_, err := svc.CreateBooking(context.Background(), BookingInput{
		UserID: uuid.New(), RoomID: roomID,
		DateFrom: date(t, "2030-03-01"), DateTo: date(t, "2030-03-02"),
	})
	require.ErrorIs(t, err, ErrNotFound)
	require.Contains(t, err.Error(), "Room not found")
}

func TestCreateBooking_Overlap(t *testing.T) {
	t.Parallel()

	svc, st, pub, ctrl := newSvcWithPublisher(t)
	defer ctrl.Finish()
	tx := mocks.NewMockTx(ctrl)

	roomID := uuid.New()
	existing := models.Booking{ID: uuid.New(), RoomID: roomID, DateFrom: date(t, "2030-03-01"), DateTo: date(t, "2030-03-05")}

	expectTx(st, tx)
	tx.EXPECT().LockRooms(gomock.Any(), roomID).Return(nil)
	tx.EXPECT().RoomByID(gomock.Any(), roomID).Return(&models.Room{ID: roomID}, nil)
	tx.EXPECT().OverlappingBookings(gomock.Any(), roomID, gomock.Any()).Return([]models.Booking{existing}, nil)

	_, err := svc.CreateBooking(context.Background(), BookingInput{
		UserID: uuid.New(), RoomID: roomID,
		DateFrom: date(t, "2030-03-04"), DateTo: date(t, "2030-03-06"),
	})
	require.ErrorIs(t, err, ErrAlreadyExists)
	require.Contains(t, err.Error(), "Booking already exists")
	require.Empty(t, pub.types())
}

func TestCreateBooking_ExclusionBackstop(t *testing.T) {
	t.Parallel()

	svc, st, ctrl := newSvc(t)
	defer ctrl.Finish()
	tx := mocks.NewMockTx(ctrl)

	roomID := uuid.New()
	expectTx(st, tx)
	tx.EXPECT().LockRooms(gomock.Any(), roomID).Return(nil)
	tx.EXPECT().RoomByID(gomock.Any(), roomID).Return(&models.Room{ID: roomID}, nil)
	tx.EXPECT().OverlappingBookings(gomock.Any(), roomID, gomock.Any()).Return(nil, nil)
	tx.EXPECT().SaveBooking(gomock.Any(), gomock.Any()).Return(storage.ErrConflict)

	_, err := svc.CreateBooking(context.Background(), BookingInput{
		UserID: uuid.New(), RoomID: roomID,
		DateFrom: date(t, "2030-03-01"), DateTo: date(t, "2030-03-02"),
	})
	require.ErrorIs(t, err, ErrAlreadyExists)
}

func TestBulkCreateBookings_ConflictWithinBatch(t *testing.T) {
	t.Parallel()

	svc, st, pub, ctrl := newSvcWithPublisher(t)
	defer ctrl.Finish()
	tx := mocks.NewMockTx(ctrl)

	userID, roomID := uuid.New(), uuid.New()

	expectTx(st, tx)
	tx.EXPECT().LockRooms(gomock.Any(), roomID).Return(nil)
	tx.EXPECT().UserByID(gomock.Any(), userID).Return(&models.User{ID: userID}, nil)
	tx.EXPECT().RoomByID(gomock.Any(), roomID).Return(&models.Room{ID: roomID}, nil)
	tx.EXPECT().OverlappingBookings(gomock.Any(), roomID, gomock.Any()).Return(nil, nil).Times(2)
	tx.EXPECT().SaveBooking(gomock.Any(), gomock.Any()).Return(nil)

	_, err := svc.BulkCreateBookings(context.Background(), []BookingInput{
		{UserID: userID, RoomID: roomID, DateFrom: date(t, "2030-03-01"), DateTo: date(t, "2030-03-05")},
		{UserID: userID, RoomID: roomID, DateFrom: date(t, "2030-03-04"), DateTo: date(t, "2030-03-07")},
	})

	var bie *BulkItemError
	require.True(t, errors.As(err, &bie))
	require.Equal(t, 1, bie.Index)
	require.ErrorIs(t, err, ErrAlreadyExists)
	require.Empty(t, pub.types())
}

func TestBulkCreateBookings_UnknownUser(t *testing.T) {
	t.Parallel()

	svc, st, ctrl := newSvc(t)
	defer ctrl.Finish()
	tx := mocks.NewMockTx(ctrl)

	roomID := uuid.New()
	missing := uuid.New()

	expectTx(st, tx)
	tx.EXPECT().LockRooms(gomock.Any(), roomID).Return(nil)
	tx.EXPECT().UserByID(gomock.Any(), missing).Return(nil, storage.ErrNotFound)

	_, err := svc.BulkCreateBookings(context.Background(), []BookingInput{
		{UserID: missing, RoomID: roomID, DateFrom: date(t, "2030-03-01"), DateTo: date(t, "2030-03-02")},
	})

	var bie *BulkItemError
	require.True(t, errors.As(err, &bie))
	require.Equal(t, 0, bie.Index)
	require.Contains(t, err.Error(), "User not found")
}

func TestBulkCreateBookings_OK_LocksEveryRoomOnce(t *testing.T) {
	t.Parallel()

	svc, st, pub, ctrl := newSvcWithPublisher(t)
	defer ctrl.Finish()
	tx := mocks.NewMockTx(ctrl)

	userID := uuid.New()
	roomA, roomB := uuid.New(), uuid.New()

	expectTx(st, tx)
	tx.EXPECT().LockRooms(gomock.Any(), roomA, roomB).Return(nil)
	tx.EXPECT().UserByID(gomock.Any(), userID).Return(&models.User{ID: userID}, nil)
	tx.EXPECT().RoomByID(gomock.Any(), roomA).Return(&models.Room{ID: roomA}, nil)
	tx.EXPECT().RoomByID(gomock.Any(), roomB).Return(&models.Room{ID: roomB}, nil)
	tx.EXPECT().OverlappingBookings(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil, nil).Times(3)
	tx.EXPECT().SaveBooking(gomock.Any(), gomock.Any()).Return(nil).Times(3)

	out, err := svc.BulkCreateBookings(context.Background(), []BookingInput{
		{UserID: userID, RoomID: roomA, DateFrom: date(t, "2030-03-01"), DateTo: date(t, "2030-03-03")},
		{UserID: userID, RoomID: roomB, DateFrom: date(t, "2030-03-01"), DateTo: date(t, "2030-03-03")},
		{UserID: userID, RoomID: roomA, DateFrom: date(t, "2030-03-03"), DateTo: date(t, "2030-03-04")},
	})
	require.NoError(t, err)
	require.Len(t, out, 3)
	require.Len(t, pub.types(), 3)
}

func TestBulkCreateBookings_Empty(t *testing.T) {
	t.Parallel()

	svc, _, ctrl := newSvc(t)
	defer ctrl.Finish()

	out, err := svc.BulkCreateBookings(context.Background(), nil)
	require.NoError(t, err)
	require.Empty(t, out)
}

func TestUpdateBooking_RecheckExcludesItself(t *testing.T) {
	t.Parallel()

	svc, st, pub, ctrl := newSvcWithPublisher(t)
	defer ctrl.Finish()
	tx := mocks.NewMockTx(ctrl)

	roomID := uuid.New()
	current := &models.Booking{
		ID: uuid.New(), UserID: uuid.New(), RoomID: roomID,
		DateFrom: date(t, "2030-03-01"), DateTo: date(t, "2030-03-05"),
	}
	newTo := date(t, "2030-03-07")

	expectTx(st, tx)
	tx.EXPECT().BookingByIDForUpdate(gomock.Any(), current.ID).Return(current, nil)
	tx.EXPECT().LockRooms(gomock.Any(), roomID).Return(nil)
	tx.EXPECT().OverlappingBookings(gomock.Any(), roomID, gomock.Any()).Return([]models.Booking{*current}, nil)
	tx.EXPECT().UpdateBooking(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, b *models.Booking) error {
			require.Equal(t, newTo, b.DateTo)
			require.Equal(t, current.DateFrom, b.DateFrom)
			return nil
		})

	b, err := svc.UpdateBooking(context.Background(), current.ID, BookingPatch{DateTo: &newTo})
	require.NoError(t, err)
	require.Equal(t, newTo, b.DateTo)
	require.Equal(t, []events.Type{events.BookingUpdated}, pub.types())
}

func TestUpdateBooking_ConflictInNewRoom(t *testing.T) {
	t.Parallel()

	svc, st, ctrl := newSvc(t)
	defer ctrl.Finish()
	tx := mocks.NewMockTx(ctrl)

	oldRoom, newRoom := uuid.New(), uuid.New()
	current := &models.Booking{
		ID: uuid.New(), UserID: uuid.New(), RoomID: oldRoom,
		DateFrom: date(t, "2030-03-01"), DateTo: date(t, "2030-03-05"),
	}
	other := models.Booking{ID: uuid.New(), RoomID: newRoom, DateFrom: date(t, "2030-03-02"), DateTo: date(t, "2030-03-03")}

	expectTx(st, tx)
	tx.EXPECT().BookingByIDForUpdate(gomock.Any(), current.ID).Return(current, nil)
	tx.EXPECT().LockRooms(gomock.Any(), newRoom).Return(nil)
	tx.EXPECT().RoomByID(gomock.Any(), newRoom).Return(&models.Room{ID: newRoom}, nil)
	tx.EXPECT().OverlappingBookings(gomock.Any(), newRoom, gomock.Any()).Return([]models.Booking{other}, nil)

	_, err := svc.UpdateBooking(context.Background(), current.ID, BookingPatch{RoomID: &newRoom})
	require.ErrorIs(t, err, ErrAlreadyExists)
}

func TestUpdateBooking_InvertedDates(t *testing.T) {
	t.Parallel()

	svc, st, ctrl := newSvc(t)
	defer ctrl.Finish()
	tx := mocks.NewMockTx(ctrl)

	current := &models.Booking{
		ID: uuid.New(), RoomID: uuid.New(),
		DateFrom: date(t, "2030-03-01"), DateTo: date(t, "2030-03-05"),
	}
	from := date(t, "2030-03-05")

	expectTx(st, tx)
	tx.EXPECT().BookingByIDForUpdate(gomock.Any(), current.ID).Return(current, nil)

	_, err := svc.UpdateBooking(context.Background(), current.ID, BookingPatch{DateFrom: &from})
	require.ErrorIs(t, err, ErrInvalidArgument)
}

func TestUpdateBooking_NotFound(t *testing.T) {
	t.Parallel()

	svc, st, ctrl := newSvc(t)
	defer ctrl.Finish()
	tx := mocks.NewMockTx(ctrl)

	id := uuid.New()
	expectTx(st, tx)
	tx.EXPECT().BookingByIDForUpdate(gomock.Any(), id).Return(nil, storage.ErrNotFound)

	_, err := svc.UpdateBooking(context.Background(), id, BookingPatch{})
	require.ErrorIs(t, err, ErrNotFound)
	require.Contains(t, err.Error(), "Booking not found")
}

func TestDeleteBooking(t *testing.T) {
	t.Parallel()

	svc, st, pub, ctrl := newSvcWithPublisher(t)
	defer ctrl.Finish()

	b := &models.Booking{ID: uuid.New(), DateFrom: date(t, "2030-03-01"), DateTo: date(t, "2030-03-02")}
	st.EXPECT().BookingByID(gomock.Any(), b.ID).Return(b, nil)
	st.EXPECT().DeleteBooking(gomock.Any(), b.ID).Return(nil)

	require.NoError(t, svc.DeleteBooking(context.Background(), b.ID))
	require.Equal(t, []events.Type{events.BookingDeleted}, pub.types())

	// Повторное удаление: брони уже нет, события нет.
	st.EXPECT().BookingByID(gomock.Any(), b.ID).Return(nil, storage.ErrNotFound)
	require.NoError(t, svc.DeleteBooking(context.Background(), b.ID))
	require.Len(t, pub.types(), 1)
}

func TestListUserBookings(t *testing.T) {
	t.Parallel()

	svc, st, ctrl := newSvc(t)
	defer ctrl.Finish()

	uid := uuid.New()
	page := models.Page{Limit: 100}
	gomock.InOrder(
		st.EXPECT().ListBookingsByUser(gomock.Any(), uid, page).Return([]models.Booking{{ID: uuid.New()}}, 1, nil),
		st.EXPECT().ListBookingsByUser(gomock.Any(), uid, page).Return(nil, 0, nil),
	)

	list, err := svc.ListUserBookings(context.Background(), uid, page)
	require.NoError(t, err)
	require.Equal(t, 1, list.Count)

	_, err = svc.ListUserBookings(context.Background(), uid, page)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestAuthorizeBooking(t *testing.T) {
	t.Parallel()

	owner := &models.User{ID: uuid.New(), IsActive: true}
	stranger := &models.User{ID: uuid.New(), IsActive: true}
	admin := &models.User{ID: uuid.New(), IsSuperuser: true}
	b := &models.Booking{ID: uuid.New(), UserID: owner.ID}

	require.NoError(t, AuthorizeBooking(owner, b))
	require.NoError(t, AuthorizeBooking(admin, b))
	require.ErrorIs(t, AuthorizeBooking(stranger, b), ErrNotEnoughPrivileges)
	require.ErrorIs(t, AuthorizeBooking(nil, b), ErrNotAuthenticated)
}
