package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/pribylovaa/go-room-booking/internal/models"
	"github.com/pribylovaa/go-room-booking/internal/storage"
	"github.com/pribylovaa/go-room-booking/mocks"
)

func TestCreateRoom(t *testing.T) {
	t.Parallel()

	svc, st, ctrl := newSvc(t)
	defer ctrl.Finish()

	st.EXPECT().SaveRoom(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, r *models.Room) error {
			require.Equal(t, "Lux", r.Name)
			require.NotEqual(t, uuid.Nil, r.ID)
			return nil
		})

	room, err := svc.CreateRoom(context.Background(), RoomInput{Name: " Lux ", PricePerDay: 99.5, Places: 2})
	require.NoError(t, err)
	require.Equal(t, 99.5, room.PricePerDay)
}

func TestCreateRoom_Validation(t *testing.T) {
	t.Parallel()

	svc, _, ctrl := newSvc(t)
	defer ctrl.Finish()

	for _, in := range []RoomInput{
		{Name: "", PricePerDay: 1, Places: 1},
		{Name: "A", PricePerDay: -1, Places: 1},
		{Name: "A", PricePerDay: 1, Places: 0},
	} {
		_, err := svc.CreateRoom(context.Background(), in)
		require.ErrorIs(t, err, ErrInvalidArgument)
	}
}

func TestCreateRoom_DuplicateName(t *testing.T) {
	t.Parallel()

	svc, st, ctrl := newSvc(t)
	defer ctrl.Finish()

	st.EXPECT().SaveRoom(gomock.Any(), gomock.Any()).Return(storage.ErrAlreadyExists)

	_, err := svc.CreateRoom(context.Background(), RoomInput{Name: "Lux", PricePerDay: 1, Places: 1})
	require.ErrorIs(t, err, ErrAlreadyExists)
	require.Contains(t, err.Error(), "Room already exists")
}

func TestBulkCreateRooms_AllOrNothing(t *testing.T) {
	t.Parallel()

	svc, st, ctrl := newSvc(t)
	defer ctrl.Finish()
	tx := mocks.NewMockTx(ctrl)

	expectTx(st, tx)
	gomock.InOrder(
		tx.EXPECT().SaveRoom(gomock.Any(), gomock.Any()).Return(nil),
		tx.EXPECT().SaveRoom(gomock.Any(), gomock.Any()).Return(storage.ErrAlreadyExists),
	)

	_, err := svc.BulkCreateRooms(context.Background(), []RoomInput{
		{Name: "A", PricePerDay: 1, Places: 1},
		{Name: "A", PricePerDay: 2, Places: 1},
		{Name: "C", PricePerDay: 3, Places: 1},
	})

	var bie *BulkItemError
	require.True(t, errors.As(err, &bie))
	require.Equal(t, 1, bie.Index)
	require.ErrorIs(t, err, ErrAlreadyExists)
}

func TestBulkCreateRooms_InvalidItemSkipsStorage(t *testing.T) {
	t.Parallel()

	svc, _, ctrl := newSvc(t)
	defer ctrl.Finish()

	_, err := svc.BulkCreateRooms(context.Background(), []RoomInput{
		{Name: "A", PricePerDay: 1, Places: 1},
		{Name: "B", PricePerDay: 1, Places: -2},
	})

	var bie *BulkItemError
	require.True(t, errors.As(err, &bie))
	require.Equal(t, 1, bie.Index)
	require.ErrorIs(t, err, ErrInvalidArgument)
}

func TestBulkCreateRooms_OK(t *testing.T) {
	t.Parallel()

	svc, st, ctrl := newSvc(t)
	defer ctrl.Finish()
	tx := mocks.NewMockTx(ctrl)

	expectTx(st, tx)
	tx.EXPECT().SaveRoom(gomock.Any(), gomock.Any()).Return(nil).Times(2)

	rooms, err := svc.BulkCreateRooms(context.Background(), []RoomInput{
		{Name: "A", PricePerDay: 1, Places: 1},
		{Name: "B", PricePerDay: 2, Places: 3},
	})
	require.NoError(t, err)
	require.Len(t, rooms, 2)
	require.Equal(t, "B", rooms[1].Name)
}

func TestListRooms_FilterBuilding(t *testing.T) {
	t.Parallel()

	svc, st, ctrl := newSvc(t)
	defer ctrl.Finish()

	from := time.Date(2030, 3, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2030, 3, 5, 0, 0, 0, 0, time.UTC)
	minPrice := 10.0
	page := models.Page{Limit: 100}

	st.EXPECT().ListRooms(gomock.Any(), gomock.Any(), page).
		DoAndReturn(func(_ context.Context, f storage.RoomFilter, _ models.Page) ([]models.Room, int, error) {
			require.Equal(t, &minPrice, f.MinPrice)
			require.Nil(t, f.MaxPrice)
			require.Equal(t, models.SortDesc, f.Sort)
			require.NotNil(t, f.Window)
			require.Equal(t, from, f.Window.From)
			require.Equal(t, to, f.Window.To)
			return []models.Room{{Name: "A"}}, 1, nil
		})

	list, err := svc.ListRooms(context.Background(), RoomQuery{
		MinPrice: &minPrice,
		DateFrom: &from,
		DateTo:   &to,
		Sort:     models.SortDesc,
		Page:     page,
	})
	require.NoError(t, err)
	require.Equal(t, 1, list.Count)
}

func TestListRooms_HalfWindowIgnored(t *testing.T) {
	t.Parallel()

	svc, st, ctrl := newSvc(t)
	defer ctrl.Finish()

	from := time.Date(2030, 3, 1, 0, 0, 0, 0, time.UTC)
	st.EXPECT().ListRooms(gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, f storage.RoomFilter, _ models.Page) ([]models.Room, int, error) {
			require.Nil(t, f.Window)
			return []models.Room{{Name: "A"}}, 1, nil
		})

	_, err := svc.ListRooms(context.Background(), RoomQuery{DateFrom: &from, Page: models.Page{Limit: 10}})
	require.NoError(t, err)
}

func TestListRooms_Rejects(t *testing.T) {
	t.Parallel()

	svc, _, ctrl := newSvc(t)
	defer ctrl.Finish()

	day := time.Date(2030, 3, 1, 0, 0, 0, 0, time.UTC)
	negative := -1.0

	for _, q := range []RoomQuery{
		{DateFrom: &day, DateTo: &day, Page: models.Page{Limit: 10}},
		{Sort: "sideways", Page: models.Page{Limit: 10}},
		{MaxPrice: &negative, Page: models.Page{Limit: 10}},
		{Page: models.Page{Limit: 500}},
	} {
		_, err := svc.ListRooms(context.Background(), q)
		require.ErrorIs(t, err, ErrInvalidArgument)
	}
}

func TestListRooms_EmptyIsNotFound(t *testing.T) {
	t.Parallel()

	svc, st, ctrl := newSvc(t)
	defer ctrl.Finish()

	st.EXPECT().ListRooms(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil, 0, nil)

	_, err := svc.ListRooms(context.Background(), RoomQuery{Page: models.Page{Limit: 10}})
	require.ErrorIs(t, err, ErrNotFound)
}

func TestUpdateRoom(t *testing.T) {
	t.Parallel()

	svc, st, ctrl := newSvc(t)
	defer ctrl.Finish()

	id := uuid.New()
	places := 4
	gomock.InOrder(
		st.EXPECT().UpdateRoom(gomock.Any(), id, storage.RoomUpdate{Places: &places}).
			Return(&models.Room{ID: id, Places: 4}, nil),
		st.EXPECT().UpdateRoom(gomock.Any(), id, gomock.Any()).Return(nil, storage.ErrNotFound),
	)

	room, err := svc.UpdateRoom(context.Background(), id, RoomPatch{Places: &places})
	require.NoError(t, err)
	require.Equal(t, 4, room.Places)

	_, err = svc.UpdateRoom(context.Background(), id, RoomPatch{Places: &places})
	require.ErrorIs(t, err, ErrNotFound)

	zero := 0
	_, err = svc.UpdateRoom(context.Background(), id, RoomPatch{Places: &zero})
	require.ErrorIs(t, err, ErrInvalidArgument)
}

func TestDeleteRoom(t *testing.T) {
	t.Parallel()

	svc, st, ctrl := newSvc(t)
	defer ctrl.Finish()

	id := uuid.New()
	st.EXPECT().DeleteRoom(gomock.Any(), id).Return(nil)

	require.NoError(t, svc.DeleteRoom(context.Background(), id))
}
