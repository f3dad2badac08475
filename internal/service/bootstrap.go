package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/pribylovaa/go-room-booking/internal/models"
	"github.com/pribylovaa/go-room-booking/internal/pkg/log"
	"github.com/pribylovaa/go-room-booking/internal/pkg/redact"
	"github.com/pribylovaa/go-room-booking/internal/storage"
)

// EnsureSuperuser создаёт суперпользователя при старте, если пользователя
// с таким email ещё нет. Пустой пароль отключает создание.
// Возвращает true, если пользователь был создан.
func (s *Service) EnsureSuperuser(ctx context.Context, email, password string) (bool, error) {
	const op = "service.bootstrap.EnsureSuperuser"

	lg := log.From(ctx).With(slog.String("op", op))

	if password == "" {
		lg.Info("superuser_bootstrap_disabled")
		return false, nil
	}

	normEmail, err := validateEmail(email)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}

	_, err = s.storage.UserByEmail(ctx, normEmail)
	if err == nil {
		lg.Info("superuser_exists", slog.String("email", redact.Email(normEmail)))
		return false, nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return false, fmt.Errorf("%s: %w", op, err)
	}

	hash, err := hashPassword(password)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}

	user := &models.User{
		ID:           uuid.New(),
		Email:        normEmail,
		Name:         "admin",
		Surname:      "admin",
		Patronymic:   "admin",
		PasswordHash: hash,
		IsActive:     true,
		IsSuperuser:  true,
	}

	if err := s.storage.SaveUser(ctx, user); err != nil {
		// Параллельно стартовавший экземпляр успел создать пользователя.
		if errors.Is(err, storage.ErrAlreadyExists) {
			return false, nil
		}

		return false, fmt.Errorf("%s: %w", op, err)
	}

	lg.Info("superuser_created",
		slog.String("user_id", user.ID.String()),
		slog.String("email", redact.Email(normEmail)),
	)

	return true, nil
}
