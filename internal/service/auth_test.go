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

func activeUser(t *testing.T, pw string) *models.User {
	t.Helper()
	return &models.User{
		ID:           uuid.New(),
		Email:        "user@example.com",
		Name:         "Ivan",
		Surname:      "Ivanov",
		Patronymic:   "Ivanovich",
		PasswordHash: mustHashPW(t, pw),
		IsActive:     true,
	}
}

func TestLogin_OK(t *testing.T) {
	t.Parallel()

	svc, st, ctrl := newSvc(t)
	defer ctrl.Finish()

	user := activeUser(t, "secret-pw")

	st.EXPECT().UserByEmail(gomock.Any(), "user@example.com").Return(user, nil)
	st.EXPECT().SaveSession(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, s *models.RefreshSession) error {
			require.Equal(t, user.ID, s.UserID)
			require.Equal(t, int64(24*60*60), s.ExpiresIn)
			return nil
		})

	pair, err := svc.Login(context.Background(), "User@Example.com", "secret-pw")
	require.NoError(t, err)
	require.NotEmpty(t, pair.AccessToken)

	_, err = uuid.Parse(pair.RefreshToken)
	require.NoError(t, err)

	require.Equal(t, testNow.Add(15*time.Minute), pair.AccessExpiresAt)
	require.Equal(t, testNow.Add(24*time.Hour), pair.RefreshExpiresAt)
}

func TestLogin_RejectedCases_AreIndistinguishable(t *testing.T) {
	t.Parallel()

	t.Run("wrong_password", func(t *testing.T) {
		t.Parallel()
		svc, st, ctrl := newSvc(t)
		defer ctrl.Finish()

		st.EXPECT().UserByEmail(gomock.Any(), "user@example.com").Return(activeUser(t, "right"), nil)

		_, err := svc.Login(context.Background(), "user@example.com", "wrong")
		require.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("inactive_user", func(t *testing.T) {
		t.Parallel()
		svc, st, ctrl := newSvc(t)
		defer ctrl.Finish()

		u := activeUser(t, "right")
		u.IsActive = false
		st.EXPECT().UserByEmail(gomock.Any(), "user@example.com").Return(u, nil)

		_, err := svc.Login(context.Background(), "user@example.com", "right")
		require.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("unknown_email", func(t *testing.T) {
		t.Parallel()
		svc, st, ctrl := newSvc(t)
		defer ctrl.Finish()

		st.EXPECT().UserByEmail(gomock.Any(), "user@example.com").Return(nil, storage.ErrNotFound)

		_, err := svc.Login(context.Background(), "user@example.com", "right")
		require.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("malformed_email_skips_storage", func(t *testing.T) {
		t.Parallel()
		svc, _, ctrl := newSvc(t)
		defer ctrl.Finish()

		_, err := svc.Login(context.Background(), "not-an-email", "right")
		require.ErrorIs(t, err, ErrInvalidCredentials)
	})
}

func TestLogin_StorageError_Propagated(t *testing.T) {
	t.Parallel()

	svc, st, ctrl := newSvc(t)
	defer ctrl.Finish()

	dbErr := errors.New("db down")
	st.EXPECT().UserByEmail(gomock.Any(), "user@example.com").Return(nil, dbErr)

	_, err := svc.Login(context.Background(), "user@example.com", "pw")
	require.ErrorIs(t, err, dbErr)
	require.NotErrorIs(t, err, ErrInvalidCredentials)
}

func TestLogin_RefreshCollision_Exhausted(t *testing.T) {
	t.Parallel()

	svc, st, ctrl := newSvc(t)
	defer ctrl.Finish()

	st.EXPECT().UserByEmail(gomock.Any(), "user@example.com").Return(activeUser(t, "pw"), nil)
	st.EXPECT().SaveSession(gomock.Any(), gomock.Any()).Return(storage.ErrAlreadyExists).Times(5)

	_, err := svc.Login(context.Background(), "user@example.com", "pw")
	require.ErrorIs(t, err, ErrRefreshTokenCollision)
}

func TestLogin_RefreshCollision_RetriedOnce(t *testing.T) {
	t.Parallel()

	svc, st, ctrl := newSvc(t)
	defer ctrl.Finish()

	st.EXPECT().UserByEmail(gomock.Any(), "user@example.com").Return(activeUser(t, "pw"), nil)
	gomock.InOrder(
		st.EXPECT().SaveSession(gomock.Any(), gomock.Any()).Return(storage.ErrAlreadyExists),
		st.EXPECT().SaveSession(gomock.Any(), gomock.Any()).Return(nil),
	)

	pair, err := svc.Login(context.Background(), "user@example.com", "pw")
	require.NoError(t, err)
	require.NotEmpty(t, pair.RefreshToken)
}

func refreshSession(userID uuid.UUID, token uuid.UUID, createdAt time.Time) *models.RefreshSession {
	return &models.RefreshSession{
		ID:           7,
		RefreshToken: token,
		UserID:       userID,
		ExpiresIn:    int64((24 * time.Hour).Seconds()),
		CreatedAt:    createdAt,
		UpdatedAt:    createdAt,
	}
}

func TestRefresh_Rotates(t *testing.T) {
	t.Parallel()

	svc, st, ctrl := newSvc(t)
	defer ctrl.Finish()
	tx := mocks.NewMockTx(ctrl)

	user := activeUser(t, "pw")
	oldToken := uuid.New()
	newToken := uuid.New()
	created := testNow.Add(-time.Hour)

	expectTx(st, tx)
	tx.EXPECT().SessionByTokenForUpdate(gomock.Any(), oldToken).
		Return(refreshSession(user.ID, oldToken, created), nil)
	tx.EXPECT().UserByID(gomock.Any(), user.ID).Return(user, nil)
	tx.EXPECT().RotateSession(gomock.Any(), int64(7), oldToken, gomock.Any(), int64(24*60*60)).
		Return(refreshSession(user.ID, newToken, created), nil)

	pair, err := svc.Refresh(context.Background(), oldToken)
	require.NoError(t, err)
	require.Equal(t, newToken.String(), pair.RefreshToken)
	require.Equal(t, created.Add(24*time.Hour), pair.RefreshExpiresAt)
	require.NotEmpty(t, pair.AccessToken)

	uid, err := svc.parseAccessToken(pair.AccessToken)
	require.NoError(t, err)
	require.Equal(t, user.ID, uid)
}

func TestRefresh_UnknownToken(t *testing.T) {
	t.Parallel()

	svc, st, ctrl := newSvc(t)
	defer ctrl.Finish()
	tx := mocks.NewMockTx(ctrl)

	token := uuid.New()
	expectTx(st, tx)
	tx.EXPECT().SessionByTokenForUpdate(gomock.Any(), token).Return(nil, storage.ErrNotFound)

	_, err := svc.Refresh(context.Background(), token)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestRefresh_Expired_DeletesSession(t *testing.T) {
	t.Parallel()

	svc, st, ctrl := newSvc(t)
	defer ctrl.Finish()
	tx := mocks.NewMockTx(ctrl)

	token := uuid.New()
	// Граница включительно: ровно created + 24h уже истекла.
	sess := refreshSession(uuid.New(), token, testNow.Add(-24*time.Hour))

	expectTx(st, tx)
	tx.EXPECT().SessionByTokenForUpdate(gomock.Any(), token).Return(sess, nil)
	tx.EXPECT().DeleteSession(gomock.Any(), int64(7)).Return(nil)

	_, err := svc.Refresh(context.Background(), token)
	require.ErrorIs(t, err, ErrTokenExpired)
}

func TestRefresh_OwnerGone(t *testing.T) {
	t.Parallel()

	svc, st, ctrl := newSvc(t)
	defer ctrl.Finish()
	tx := mocks.NewMockTx(ctrl)

	token := uuid.New()
	sess := refreshSession(uuid.New(), token, testNow.Add(-time.Minute))

	expectTx(st, tx)
	tx.EXPECT().SessionByTokenForUpdate(gomock.Any(), token).Return(sess, nil)
	tx.EXPECT().UserByID(gomock.Any(), sess.UserID).Return(nil, storage.ErrNotFound)

	_, err := svc.Refresh(context.Background(), token)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestRefresh_LostRace_InvalidToken(t *testing.T) {
	t.Parallel()

	svc, st, ctrl := newSvc(t)
	defer ctrl.Finish()
	tx := mocks.NewMockTx(ctrl)

	user := activeUser(t, "pw")
	token := uuid.New()

	expectTx(st, tx)
	tx.EXPECT().SessionByTokenForUpdate(gomock.Any(), token).
		Return(refreshSession(user.ID, token, testNow.Add(-time.Minute)), nil)
	tx.EXPECT().UserByID(gomock.Any(), user.ID).Return(user, nil)
	tx.EXPECT().RotateSession(gomock.Any(), int64(7), token, gomock.Any(), gomock.Any()).
		Return(nil, storage.ErrNotFound)

	_, err := svc.Refresh(context.Background(), token)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestRefresh_InactiveUserStillRotates(t *testing.T) {
	t.Parallel()

	svc, st, ctrl := newSvc(t)
	defer ctrl.Finish()
	tx := mocks.NewMockTx(ctrl)

	user := activeUser(t, "pw")
	user.IsActive = false
	token := uuid.New()
	sess := refreshSession(user.ID, token, testNow.Add(-time.Minute))

	expectTx(st, tx)
	tx.EXPECT().SessionByTokenForUpdate(gomock.Any(), token).Return(sess, nil)
	tx.EXPECT().UserByID(gomock.Any(), user.ID).Return(user, nil)
	tx.EXPECT().RotateSession(gomock.Any(), int64(7), token, gomock.Any(), gomock.Any()).
		Return(refreshSession(user.ID, uuid.New(), sess.CreatedAt), nil)

	_, err := svc.Refresh(context.Background(), token)
	require.NoError(t, err)
}

func TestLogout_DeletesByToken(t *testing.T) {
	t.Parallel()

	svc, st, ctrl := newSvc(t)
	defer ctrl.Finish()

	token := uuid.New()
	st.EXPECT().DeleteSessionByToken(gomock.Any(), token).Return(nil)

	require.NoError(t, svc.Logout(context.Background(), token))
}

func TestAbortSessions_ReturnsCount(t *testing.T) {
	t.Parallel()

	svc, st, ctrl := newSvc(t)
	defer ctrl.Finish()

	uid := uuid.New()
	st.EXPECT().DeleteUserSessions(gomock.Any(), uid).Return(int64(3), nil)

	n, err := svc.AbortSessions(context.Background(), uid)
	require.NoError(t, err)
	require.Equal(t, int64(3), n)
}

func TestDeleteExpiredSessions_UsesClock(t *testing.T) {
	t.Parallel()

	svc, st, ctrl := newSvc(t)
	defer ctrl.Finish()

	st.EXPECT().DeleteExpiredSessions(gomock.Any(), testNow).Return(int64(2), nil)

	n, err := svc.DeleteExpiredSessions(context.Background())
	require.NoError(t, err)
	require.Equal(t, int64(2), n)
}

func TestAuthenticate(t *testing.T) {
	t.Parallel()

	t.Run("ok", func(t *testing.T) {
		t.Parallel()
		svc, st, ctrl := newSvc(t)
		defer ctrl.Finish()

		user := activeUser(t, "pw")
		token, _, err := svc.generateAccessToken(context.Background(), user.ID, testNow)
		require.NoError(t, err)

		st.EXPECT().UserByID(gomock.Any(), user.ID).Return(user, nil)

		got, err := svc.Authenticate(context.Background(), token)
		require.NoError(t, err)
		require.Equal(t, user.ID, got.ID)
	})

	t.Run("empty", func(t *testing.T) {
		t.Parallel()
		svc, _, ctrl := newSvc(t)
		defer ctrl.Finish()

		_, err := svc.Authenticate(context.Background(), "")
		require.ErrorIs(t, err, ErrNotAuthenticated)
	})

	t.Run("garbage", func(t *testing.T) {
		t.Parallel()
		svc, _, ctrl := newSvc(t)
		defer ctrl.Finish()

		_, err := svc.Authenticate(context.Background(), "not.a.jwt")
		require.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("expired", func(t *testing.T) {
		t.Parallel()
		svc, _, ctrl := newSvc(t)
		defer ctrl.Finish()

		token, _, err := svc.generateAccessToken(context.Background(), uuid.New(), testNow.Add(-time.Hour))
		require.NoError(t, err)

		_, err = svc.Authenticate(context.Background(), token)
		require.ErrorIs(t, err, ErrInvalidToken)
		require.NotErrorIs(t, err, ErrTokenExpired)
	})

	t.Run("user_deleted", func(t *testing.T) {
		t.Parallel()
		svc, st, ctrl := newSvc(t)
		defer ctrl.Finish()

		uid := uuid.New()
		token, _, err := svc.generateAccessToken(context.Background(), uid, testNow)
		require.NoError(t, err)

		st.EXPECT().UserByID(gomock.Any(), uid).Return(nil, storage.ErrNotFound)

		_, err = svc.Authenticate(context.Background(), token)
		require.ErrorIs(t, err, ErrInvalidToken)
	})
}

func TestGuards(t *testing.T) {
	t.Parallel()

	require.ErrorIs(t, RequireActive(nil), ErrNotAuthenticated)
	require.ErrorIs(t, RequireActive(&models.User{}), ErrInactiveUser)
	require.NoError(t, RequireActive(&models.User{IsActive: true}))

	require.ErrorIs(t, RequireSuperuser(nil), ErrNotAuthenticated)
	require.ErrorIs(t, RequireSuperuser(&models.User{IsActive: true}), ErrNotEnoughPrivileges)
	// Флаг активности для суперпользователя не проверяется.
	require.NoError(t, RequireSuperuser(&models.User{IsSuperuser: true}))
}

func TestValidateEmail(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{"User@Example.com", "user@example.com", true},
		{"  a@b.io ", "a@b.io", true},
		{"", "", false},
		{"plain", "", false},
		{"Name <a@b.io>", "", false},
	}

	for _, tt := range tests {
		got, err := validateEmail(tt.in)
		if !tt.ok {
			require.ErrorIs(t, err, ErrInvalidArgument, tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		require.Equal(t, tt.want, got)
	}
}
