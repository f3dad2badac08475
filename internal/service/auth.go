package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/pribylovaa/go-room-booking/internal/metrics"
	"github.com/pribylovaa/go-room-booking/internal/models"
	"github.com/pribylovaa/go-room-booking/internal/pkg/log"
	"github.com/pribylovaa/go-room-booking/internal/pkg/redact"
	"github.com/pribylovaa/go-room-booking/internal/storage"
)

// Login выполняет вход по email+пароль и выпускает пару токенов.
// Несуществующий, неактивный пользователь и неверный пароль неразличимы
// для клиента: все дают ErrInvalidCredentials.
func (s *Service) Login(ctx context.Context, email, password string) (*models.TokenPair, error) {
	const op = "service.auth.Login"

	lg := log.From(ctx).With(slog.String("op", op))

	normEmail, err := validateEmail(email)
	if err != nil || password == "" {
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidCredentials)
	}

	user, err := s.storage.UserByEmail(ctx, normEmail)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			lg.Info("login_unknown_email", slog.String("email", redact.Email(normEmail)))
			return nil, fmt.Errorf("%s: %w", op, ErrInvalidCredentials)
		}

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if !user.IsActive || !checkPassword(user.PasswordHash, password) {
		lg.Info("login_rejected", slog.String("user_id", user.ID.String()))
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidCredentials)
	}

	pair, err := s.issueTokenPair(ctx, user)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return pair, nil
}

// Refresh ротирует refresh-сессию и выпускает новый access-токен.
//
// Всё выполняется в одной транзакции с блокировкой строки сессии:
//   - сессия не найдена -> ErrInvalidToken;
//   - сессия истекла -> строка удаляется (удаление коммитится), ErrTokenExpired;
//   - владелец не найден -> ErrInvalidToken;
//   - иначе токен и TTL перезаписываются на месте.
//
// При гонке двух обновлений с одним токеном проигравший после снятия
// блокировки строку уже не находит и получает ErrInvalidToken.
func (s *Service) Refresh(ctx context.Context, refreshToken uuid.UUID) (*models.TokenPair, error) {
	const op = "service.auth.Refresh"

	lg := log.From(ctx).With(slog.String("op", op))
	now := s.now()

	var (
		pair    *models.TokenPair
		expired bool
	)

	err := s.storage.InTx(ctx, func(tx storage.Tx) error {
		session, err := tx.SessionByTokenForUpdate(ctx, refreshToken)
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				return ErrInvalidToken
			}
			return err
		}

		if session.Expired(now) {
			if err := tx.DeleteSession(ctx, session.ID); err != nil {
				return err
			}
			expired = true
			return nil
		}

		user, err := tx.UserByID(ctx, session.UserID)
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				return ErrInvalidToken
			}
			return err
		}

		rotated, err := tx.RotateSession(ctx, session.ID, refreshToken, uuid.New(), s.refreshTTLSeconds())
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				return ErrInvalidToken
			}
			return err
		}

		access, accessExp, err := s.generateAccessToken(ctx, user.ID, now)
		if err != nil {
			return err
		}

		pair = &models.TokenPair{
			AccessToken:      access,
			RefreshToken:     rotated.RefreshToken.String(),
			AccessExpiresAt:  accessExp,
			RefreshExpiresAt: rotated.ExpiresAt(),
		}

		return nil
	})

	switch {
	case err != nil:
		if errors.Is(err, ErrInvalidToken) {
			s.metrics.Refresh(metrics.RefreshInvalid)
			lg.Info("refresh_invalid", slog.String("refresh_token", redact.Token(refreshToken.String())))
		} else {
			lg.Error("refresh_failed", slog.String("err", err.Error()))
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	case expired:
		s.metrics.Refresh(metrics.RefreshExpired)
		lg.Info("refresh_expired", slog.String("refresh_token", redact.Token(refreshToken.String())))
		return nil, fmt.Errorf("%s: %w", op, ErrTokenExpired)
	}

	s.metrics.Refresh(metrics.RefreshRotated)
	lg.Debug("refresh_rotated", slog.String("refresh_token", redact.Token(pair.RefreshToken)))

	return pair, nil
}

// Logout удаляет сессию с данным refresh-токеном. Отсутствие сессии ошибкой не является.
func (s *Service) Logout(ctx context.Context, refreshToken uuid.UUID) error {
	const op = "service.auth.Logout"

	if err := s.storage.DeleteSessionByToken(ctx, refreshToken); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// AbortSessions удаляет все refresh-сессии пользователя и возвращает их число.
func (s *Service) AbortSessions(ctx context.Context, userID uuid.UUID) (int64, error) {
	const op = "service.auth.AbortSessions"

	n, err := s.storage.DeleteUserSessions(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	log.From(ctx).Info("sessions_aborted",
		slog.String("user_id", userID.String()),
		slog.Int64("count", n),
	)

	return n, nil
}

// Authenticate проверяет access-токен и загружает его владельца.
// Пустой токен -> ErrNotAuthenticated; удалённый пользователь -> ErrInvalidToken.
func (s *Service) Authenticate(ctx context.Context, accessToken string) (*models.User, error) {
	const op = "service.auth.Authenticate"

	if accessToken == "" {
		return nil, fmt.Errorf("%s: %w", op, ErrNotAuthenticated)
	}

	uid, err := s.parseAccessToken(accessToken)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	user, err := s.storage.UserByID(ctx, uid)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("%s: %w", op, ErrInvalidToken)
		}

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return user, nil
}

// DeleteExpiredSessions удаляет истёкшие refresh-сессии (фоновая очистка).
func (s *Service) DeleteExpiredSessions(ctx context.Context) (int64, error) {
	const op = "service.auth.DeleteExpiredSessions"

	n, err := s.storage.DeleteExpiredSessions(ctx, s.now())
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	return n, nil
}

// RequireActive — пользователь должен быть активен.
func RequireActive(user *models.User) error {
	if user == nil {
		return ErrNotAuthenticated
	}

	if !user.IsActive {
		return ErrInactiveUser
	}

	return nil
}

// RequireSuperuser — пользователь должен быть суперпользователем.
func RequireSuperuser(user *models.User) error {
	if user == nil {
		return ErrNotAuthenticated
	}

	if !user.IsSuperuser {
		return ErrNotEnoughPrivileges
	}

	return nil
}

// hashPassword хэширует пароль с помощью bcrypt.
func hashPassword(password string) (string, error) {
	const op = "service.auth.hashPassword"

	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	return string(bytes), nil
}

// checkPassword сравнивает пароль с хэшем.
func checkPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// validateEmail проверяет формат email, обрезает пробелы и приводит к нижнему регистру.
func validateEmail(raw string) (string, error) {
	const op = "service.auth.validateEmail"

	email := strings.TrimSpace(raw)
	if email == "" {
		return "", fmt.Errorf("%s: %w", op, ErrInvalidArgument)
	}

	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", fmt.Errorf("%s: %w", op, ErrInvalidArgument)
	}

	return strings.ToLower(email), nil
}
