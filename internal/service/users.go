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

// RegisterInput — данные регистрации.
type RegisterInput struct {
	Email          string
	Name           string
	Surname        string
	Patronymic     string
	Password       string
	PasswordRepeat string
}

// UserPatch — частичное обновление пользователя: nil-поля не меняются.
// IsActive/IsSuperuser доступны только суперпользователю (UpdateUser).
type UserPatch struct {
	Email          *string
	Name           *string
	Surname        *string
	Patronymic     *string
	Password       *string
	PasswordRepeat *string
	IsActive       *bool
	IsSuperuser    *bool
}

// Register создаёт активного пользователя без прав суперпользователя.
//
// Валидация:
//   - email в корректном формате (хранится в нижнем регистре);
//   - name/surname/patronymic непустые, не длиннее 50 символов;
//   - пароль непустой и совпадает с PasswordRepeat (иначе ErrPasswordMismatch).
//
// Занятый email -> EntityError{user, ErrAlreadyExists}.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	const op = "service.users.Register"

	lg := log.From(ctx).With(slog.String("op", op))

	user, err := newUser(in)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	_, err = s.storage.UserByEmail(ctx, user.Email)
	if err == nil {
		return nil, fmt.Errorf("%s: %w", op, alreadyExists(EntityUser))
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if err := s.storage.SaveUser(ctx, user); err != nil {
		if errors.Is(err, storage.ErrAlreadyExists) {
			return nil, fmt.Errorf("%s: %w", op, alreadyExists(EntityUser))
		}

		lg.Error("save_user_failed", slog.String("err", err.Error()))
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	lg.Info("user_registered",
		slog.String("user_id", user.ID.String()),
		slog.String("email", redact.Email(user.Email)),
	)

	return user, nil
}

func newUser(in RegisterInput) (*models.User, error) {
	email, err := validateEmail(in.Email)
	if err != nil {
		return nil, invalid("invalid email")
	}

	name, err := normalizeName("name", in.Name)
	if err != nil {
		return nil, err
	}
	surname, err := normalizeName("surname", in.Surname)
	if err != nil {
		return nil, err
	}
	patronymic, err := normalizeName("patronymic", in.Patronymic)
	if err != nil {
		return nil, err
	}

	if in.Password == "" {
		return nil, invalid("password must not be empty")
	}
	if in.Password != in.PasswordRepeat {
		return nil, ErrPasswordMismatch
	}

	hash, err := hashPassword(in.Password)
	if err != nil {
		return nil, err
	}

	return &models.User{
		ID:           uuid.New(),
		Email:        email,
		Name:         name,
		Surname:      surname,
		Patronymic:   patronymic,
		PasswordHash: hash,
		IsActive:     true,
	}, nil
}

// User возвращает пользователя по ID.
func (s *Service) User(ctx context.Context, id uuid.UUID) (*models.User, error) {
	const op = "service.users.User"

	user, err := s.storage.UserByID(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("%s: %w", op, notFound(EntityUser))
		}

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return user, nil
}

// ListUsers возвращает страницу пользователей. Пустая страница -> EntityError{user, ErrNotFound}.
func (s *Service) ListUsers(ctx context.Context, page models.Page) (*models.List[models.User], error) {
	const op = "service.users.ListUsers"

	if err := validatePage(page); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	users, total, err := s.storage.ListUsers(ctx, page)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if len(users) == 0 {
		return nil, fmt.Errorf("%s: %w", op, notFound(EntityUser))
	}

	return &models.List[models.User]{Data: users, Count: total}, nil
}

// UpdateSelf — пользователь меняет собственные данные. Флаги активности и
// суперпользователя этим путём не меняются (ErrNotEnoughPrivileges).
func (s *Service) UpdateSelf(ctx context.Context, id uuid.UUID, patch UserPatch) (*models.User, error) {
	const op = "service.users.UpdateSelf"

	if patch.IsActive != nil || patch.IsSuperuser != nil {
		return nil, fmt.Errorf("%s: %w", op, ErrNotEnoughPrivileges)
	}

	user, err := s.updateUser(ctx, id, patch)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return user, nil
}

// UpdateUser — обновление пользователя суперпользователем, включая флаги.
func (s *Service) UpdateUser(ctx context.Context, id uuid.UUID, patch UserPatch) (*models.User, error) {
	const op = "service.users.UpdateUser"

	user, err := s.updateUser(ctx, id, patch)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	log.From(ctx).Info("user_updated_by_superuser", slog.String("user_id", id.String()))

	return user, nil
}

func (s *Service) updateUser(ctx context.Context, id uuid.UUID, patch UserPatch) (*models.User, error) {
	upd, err := buildUserUpdate(patch)
	if err != nil {
		return nil, err
	}

	user, err := s.storage.UpdateUser(ctx, id, upd)
	if err != nil {
		switch {
		case errors.Is(err, storage.ErrNotFound):
			return nil, notFound(EntityUser)
		case errors.Is(err, storage.ErrAlreadyExists):
			return nil, alreadyExists(EntityUser)
		default:
			return nil, err
		}
	}

	return user, nil
}

func buildUserUpdate(patch UserPatch) (storage.UserUpdate, error) {
	upd := storage.UserUpdate{
		IsActive:    patch.IsActive,
		IsSuperuser: patch.IsSuperuser,
	}

	if patch.Email != nil {
		email, err := validateEmail(*patch.Email)
		if err != nil {
			return upd, invalid("invalid email")
		}
		upd.Email = &email
	}

	names := []struct {
		field string
		src   *string
		dst   **string
	}{
		{"name", patch.Name, &upd.Name},
		{"surname", patch.Surname, &upd.Surname},
		{"patronymic", patch.Patronymic, &upd.Patronymic},
	}
	for _, n := range names {
		if n.src == nil {
			continue
		}
		v, err := normalizeName(n.field, *n.src)
		if err != nil {
			return upd, err
		}
		*n.dst = &v
	}

	if patch.Password != nil || patch.PasswordRepeat != nil {
		var pw, repeat string
		if patch.Password != nil {
			pw = *patch.Password
		}
		if patch.PasswordRepeat != nil {
			repeat = *patch.PasswordRepeat
		}

		if pw != repeat {
			return upd, ErrPasswordMismatch
		}
		if pw == "" {
			return upd, invalid("password must not be empty")
		}

		hash, err := hashPassword(pw)
		if err != nil {
			return upd, err
		}
		upd.PasswordHash = &hash
	}

	return upd, nil
}

// DeactivateSelf — мягкое удаление: закрывает текущую сессию (если передан
// refresh-токен) и выставляет is_active = false. Строка пользователя остаётся.
func (s *Service) DeactivateSelf(ctx context.Context, id uuid.UUID, refreshToken uuid.UUID) error {
	const op = "service.users.DeactivateSelf"

	if refreshToken != uuid.Nil {
		if err := s.storage.DeleteSessionByToken(ctx, refreshToken); err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
	}

	inactive := false
	if _, err := s.storage.UpdateUser(ctx, id, storage.UserUpdate{IsActive: &inactive}); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return fmt.Errorf("%s: %w", op, notFound(EntityUser))
		}

		return fmt.Errorf("%s: %w", op, err)
	}

	log.From(ctx).Info("user_deactivated", slog.String("user_id", id.String()))

	return nil
}

// DeleteUser — жёсткое удаление суперпользователем; брони и сессии
// удаляются каскадно.
func (s *Service) DeleteUser(ctx context.Context, id uuid.UUID) error {
	const op = "service.users.DeleteUser"

	if err := s.storage.DeleteUser(ctx, id); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return fmt.Errorf("%s: %w", op, notFound(EntityUser))
		}

		return fmt.Errorf("%s: %w", op, err)
	}

	log.From(ctx).Info("user_deleted", slog.String("user_id", id.String()))

	return nil
}
