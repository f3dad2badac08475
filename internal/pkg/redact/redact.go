// redact маскирует персональные данные и секреты перед записью в лог.
package redact

import "strings"

// Email оставляет первые две руны локальной части и домен.
func Email(s string) string {
	local, domain, ok := strings.Cut(s, "@")
	if !ok || strings.Contains(domain, "@") {
		return "***"
	}

	runes := []rune(local)
	if len(runes) > 2 {
		return string(runes[:2]) + "***@" + domain
	}

	return "***@" + domain
}

// Token оставляет префикс refresh-токена, достаточный для сопоставления
// записей одной сессии в логах.
func Token(s string) string {
	const keep = 8
	if len(s) <= keep {
		return "[REDACTED_TOKEN]"
	}

	return s[:keep] + "…"
}

func Password() string { return "[REDACTED_PASSWORD]" }
