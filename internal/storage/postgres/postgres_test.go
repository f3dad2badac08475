package postgres

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/pribylovaa/go-room-booking/internal/models"
)

// Интеграционные тесты пакета postgres:
// - поднимают реальный PostgreSQL через testcontainers-go (образ postgres:16-alpine);
// - применяют все миграции из ./migrations по порядку;
// - проверяют ограничения схемы (уникальность, exclusion по пересечению дат, каскады).
//
// Запуск локально:
//   GO_TEST_INTEGRATION=1 go test ./internal/storage/postgres -v -race -count=1

var migrations = []string{
	"1_init_users.up.sql",
	"2_init_refresh_sessions.up.sql",
	"3_init_rooms.up.sql",
	"4_init_bookings.up.sql",
}

// repoRootFromThisFile — корень репозитория относительно текущего файла тестов.
func repoRootFromThisFile() string {
	// internal/storage/postgres/... -> подняться на 3 уровня до корня.
	_, thisFile, _, _ := runtime.Caller(0)
	return filepath.Clean(filepath.Join(filepath.Dir(thisFile), "..", "..", ".."))
}

// readMigration — читает содержимое SQL-миграции из каталога ./migrations.
func readMigration(t *testing.T, name string) string {
	t.Helper()
	path := filepath.Join(repoRootFromThisFile(), "migrations", name)
	b, err := os.ReadFile(path)
	require.NoError(t, err, "read migration %s", path)
	return string(b)
}

// startPostgres — поднимает временный PostgreSQL, применяет миграции и
// возвращает хранилище. Без GO_TEST_INTEGRATION тест пропускается.
func startPostgres(t *testing.T) *Storage {
	t.Helper()
	if os.Getenv("GO_TEST_INTEGRATION") == "" {
		t.Skip("integration tests are disabled (set GO_TEST_INTEGRATION=1)")
	}

	ctx := context.Background()
	req := tc.ContainerRequest{
		Image:        "postgres:16-alpine",
		Env:          map[string]string{"POSTGRES_USER": "user", "POSTGRES_PASSWORD": "pass", "POSTGRES_DB": "db"},
		ExposedPorts: []string{"5432/tcp"},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}
	c, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{ContainerRequest: req, Started: true})
	require.NoError(t, err)

	host, err := c.Host(ctx)
	require.NoError(t, err)
	port, err := c.MappedPort(ctx, "5432/tcp")
	require.NoError(t, err)
	dsn := fmt.Sprintf("postgres://user:pass@%s:%s/db?sslmode=disable", host, port.Port())

	pool, err := pgxpool.New(ctx, dsn)
	require.NoError(t, err)
	for _, name := range migrations {
		_, err = pool.Exec(ctx, readMigration(t, name))
		require.NoError(t, err, "apply %s", name)
	}
	pool.Close()

	st, err := New(ctx, dsn)
	require.NoError(t, err)

	t.Cleanup(func() {
		st.Close()
		_ = c.Terminate(context.Background())
	})

	return st
}

// seedUser создаёт активного пользователя.
func seedUser(t *testing.T, st *Storage, email string) *models.User {
	t.Helper()
	u := &models.User{
		ID:           uuid.New(),
		Email:        email,
		Name:         "Ivan",
		Surname:      "Ivanov",
		Patronymic:   "Ivanovich",
		PasswordHash: "hash",
		IsActive:     true,
	}
	require.NoError(t, st.SaveUser(context.Background(), u))
	return u
}

// seedRoom создаёт номер.
func seedRoom(t *testing.T, st *Storage, name string, price float64, places int) *models.Room {
	t.Helper()
	r := &models.Room{ID: uuid.New(), Name: name, PricePerDay: price, Places: places}
	require.NoError(t, st.SaveRoom(context.Background(), r))
	return r
}

func date(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := time.Parse("2006-01-02", s)
	require.NoError(t, err)
	return d
}
