package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/pribylovaa/go-room-booking/internal/service"
	"github.com/pribylovaa/go-room-booking/internal/transport/http/apierrors"
)

func TestDate_JSON(t *testing.T) {
	var d date
	require.NoError(t, json.Unmarshal([]byte(`"2030-02-28"`), &d))
	require.Equal(t, time.Date(2030, time.February, 28, 0, 0, 0, 0, time.UTC), d.Time())

	out, err := json.Marshal(d)
	require.NoError(t, err)
	require.Equal(t, `"2030-02-28"`, string(out))

	require.Error(t, json.Unmarshal([]byte(`"28.02.2030"`), &d))
	require.Error(t, json.Unmarshal([]byte(`20300228`), &d))
}

func TestDecodeStrict(t *testing.T) {
	decode := func(body string) error {
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
		var in loginRequest
		return decodeStrict(req, &in)
	}

	require.NoError(t, decode(`{"email":"a@b.io","password":"x"}`))

	for _, body := range []string{
		`{"email":"a@b.io","extra":1}`,
		`{"email":`,
		`{"email":"a@b.io"} {"email":"c@d.io"}`,
		``,
	} {
		err := decode(body)
		require.Error(t, err, body)
		require.True(t, errors.Is(err, apierrors.ErrBadRequest), body)
	}
}

func TestParsePage(t *testing.T) {
	page, err := parsePage(httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)
	require.Equal(t, 0, page.Offset)
	require.Equal(t, 100, page.Limit)

	page, err = parsePage(httptest.NewRequest(http.MethodGet, "/?offset=20&limit=10", nil))
	require.NoError(t, err)
	require.Equal(t, 20, page.Offset)
	require.Equal(t, 10, page.Limit)

	_, err = parsePage(httptest.NewRequest(http.MethodGet, "/?limit=ten", nil))
	var ve *service.ValidationError
	require.ErrorAs(t, err, &ve)
	require.Equal(t, "limit must be an integer", ve.Reason)
}

func TestMaxAge(t *testing.T) {
	require.InDelta(t, 900, maxAge(time.Now().Add(15*time.Minute)), 1)
	require.Equal(t, 1, maxAge(time.Now().Add(-time.Minute)))
}

func TestCookieAttributes(t *testing.T) {
	h := &Handlers{}
	h.cookies.Secure = true
	h.cookies.Domain = "example.com"

	rr := httptest.NewRecorder()
	h.clearAuthCookies(rr)

	cookies := rr.Result().Cookies()
	require.Len(t, cookies, 2)
	for _, c := range cookies {
		require.True(t, c.Secure)
		require.True(t, c.HttpOnly)
		require.Equal(t, "example.com", c.Domain)
		require.Equal(t, http.SameSiteLaxMode, c.SameSite)
		require.Less(t, c.MaxAge, 0)
	}
}
