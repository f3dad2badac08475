package models

import "time"

// TokenType — тип токена в ответе на login/refresh.
const TokenType = "bearer"

// TokenPair — пара токенов, выдаваемая при входе и обновлении.
//
// Описание:
//   - AccessToken — короткоживущий JWT без префикса "Bearer ";
//   - RefreshToken — непрозрачный UUID, по которому находится RefreshSession;
//   - AccessExpiresAt/RefreshExpiresAt — моменты истечения (UTC),
//     из них транспорт вычисляет Max-Age cookie.
type TokenPair struct {
	AccessToken      string
	RefreshToken     string
	AccessExpiresAt  time.Time
	RefreshExpiresAt time.Time
}
