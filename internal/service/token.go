package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/pribylovaa/go-room-booking/internal/models"
	"github.com/pribylovaa/go-room-booking/internal/pkg/log"
	"github.com/pribylovaa/go-room-booking/internal/pkg/redact"
	"github.com/pribylovaa/go-room-booking/internal/storage"
)

// generateAccessToken подписывает access-токен: sub = ID пользователя.
func (s *Service) generateAccessToken(ctx context.Context, userID uuid.UUID, now time.Time) (string, time.Time, error) {
	const op = "service.token.generateAccessToken"

	expiresAt := now.Add(s.cfg.AccessTokenTTL)
	claims := jwt.RegisteredClaims{
		Subject:   userID.String(),
		Issuer:    s.cfg.Issuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
	}

	signed, err := jwt.NewWithClaims(s.method, claims).SignedString([]byte(s.cfg.JWTSecret))
	if err != nil {
		log.From(ctx).Error("access_token_sign_failed",
			slog.String("op", op),
			slog.String("err", err.Error()),
		)
		return "", time.Time{}, fmt.Errorf("%s: %w", op, err)
	}

	return signed, expiresAt, nil
}

// parseAccessToken проверяет подпись, алгоритм, издателя и срок действия
// и возвращает ID пользователя из sub.
func (s *Service) parseAccessToken(tokenStr string) (uuid.UUID, error) {
	const op = "service.token.parseAccessToken"

	var claims jwt.RegisteredClaims
	token, err := jwt.ParseWithClaims(tokenStr, &claims,
		func(*jwt.Token) (any, error) { return []byte(s.cfg.JWTSecret), nil },
		jwt.WithValidMethods([]string{s.method.Alg()}),
		jwt.WithIssuer(s.cfg.Issuer),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(5*time.Second),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		// Истёкший access-токен неотличим от поддельного: ErrTokenExpired
		// относится только к refresh-сессиям.
		return uuid.Nil, fmt.Errorf("%s: %w", op, ErrInvalidToken)
	}

	if !token.Valid {
		return uuid.Nil, fmt.Errorf("%s: %w", op, ErrInvalidToken)
	}

	uid, err := uuid.Parse(claims.Subject)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%s: %w", op, ErrInvalidToken)
	}

	return uid, nil
}

// refreshTTLSeconds — время жизни refresh-сессии в секундах.
func (s *Service) refreshTTLSeconds() int64 {
	return int64(s.cfg.RefreshTokenTTL / time.Second)
}

// issueTokenPair выпускает access-токен и создаёт новую refresh-сессию.
// Коллизия refresh-токена (unique violation) приводит к повторной генерации.
func (s *Service) issueTokenPair(ctx context.Context, user *models.User) (*models.TokenPair, error) {
	const (
		op          = "service.token.issueTokenPair"
		maxAttempts = 5
	)

	lg := log.From(ctx)
	now := s.now()

	access, accessExp, err := s.generateAccessToken(ctx, user.ID, now)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	for attempt := 0; attempt < maxAttempts; attempt++ {
		session := &models.RefreshSession{
			RefreshToken: uuid.New(),
			UserID:       user.ID,
			ExpiresIn:    s.refreshTTLSeconds(),
			CreatedAt:    now,
			UpdatedAt:    now,
		}

		if err := s.storage.SaveSession(ctx, session); err != nil {
			if errors.Is(err, storage.ErrAlreadyExists) {
				continue
			}

			lg.Error("save_refresh_session_failed",
				slog.String("op", op),
				slog.String("user_id", user.ID.String()),
				slog.String("err", err.Error()),
			)
			return nil, fmt.Errorf("%s: %w", op, err)
		}

		lg.Debug("refresh_session_created",
			slog.String("user_id", user.ID.String()),
			slog.String("refresh_token", redact.Token(session.RefreshToken.String())),
		)

		return &models.TokenPair{
			AccessToken:      access,
			RefreshToken:     session.RefreshToken.String(),
			AccessExpiresAt:  accessExp,
			RefreshExpiresAt: session.ExpiresAt(),
		}, nil
	}

	lg.Error("refresh_collision_exceeded", slog.String("op", op))

	return nil, fmt.Errorf("%s: %w", op, ErrRefreshTokenCollision)
}
