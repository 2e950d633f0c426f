package session

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "0123456789abcdef0123"

func TestParseRole(t *testing.T) {
	assert.Equal(t, RoleAdmin, ParseRole("1"))
	assert.Equal(t, RoleAdmin, ParseRole(" Admin "))
	assert.Equal(t, RoleDriver, ParseRole("2"))
	assert.Equal(t, RoleDriver, ParseRole("driver"))
	assert.Equal(t, RoleNone, ParseRole("3"))
	assert.Equal(t, "/dashboard", RoleAdmin.Home())
	assert.Equal(t, "/upload", RoleDriver.Home())
}

func TestLoginAndLogout(t *testing.T) {
	now := time.Date(2024, 1, 15, 9, 0, 0, 0, time.UTC)
	s, err := Login("tok", RoleDriver, 501, " Ayesha ", now)
	require.NoError(t, err)
	assert.True(t, s.Valid())
	assert.False(t, s.IsAdmin())
	assert.Equal(t, int64(501), s.DriverID)
	assert.Equal(t, "Ayesha", s.Name)
	assert.NotEmpty(t, s.ID)
	assert.NotEmpty(t, s.CSRF)

	out := s.Logout()
	assert.False(t, out.Valid())
	assert.Equal(t, Session{}, out)
	assert.True(t, s.Valid(), "logout must not mutate the receiver")

	admin, err := Login("tok", RoleAdmin, 9, "", now)
	require.NoError(t, err)
	assert.Zero(t, admin.DriverID)
	assert.True(t, admin.IsAdmin())
}

func TestLoginRejectsBadInput(t *testing.T) {
	_, err := Login("", RoleAdmin, 0, "", time.Now())
	assert.Error(t, err)
	_, err = Login("tok", RoleNone, 0, "", time.Now())
	assert.Error(t, err)
}

func TestCodecCookieRoundTrip(t *testing.T) {
	codec, err := NewCodec(testSecret, time.Hour, false)
	require.NoError(t, err)
	s, err := Login("tok", RoleAdmin, 0, "Ops", time.Now())
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	require.NoError(t, codec.Write(rec, s))
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.True(t, cookies[0].HttpOnly)
	assert.Equal(t, http.SameSiteLaxMode, cookies[0].SameSite)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(cookies[0])
	got, err := codec.Read(req)
	require.NoError(t, err)
	assert.Equal(t, s.Token, got.Token)
	assert.Equal(t, s.CSRF, got.CSRF)
	assert.Equal(t, RoleAdmin, got.Role)
}

func TestCodecRejectsExpiredAndForeign(t *testing.T) {
	codec, err := NewCodec(testSecret, time.Minute, false)
	require.NoError(t, err)
	s, err := Login("tok", RoleDriver, 1, "", time.Now().Add(-2*time.Minute))
	require.NoError(t, err)
	value, err := codec.Encode(s)
	require.NoError(t, err)
	_, err = codec.Decode(value)
	assert.ErrorIs(t, err, ErrExpired)

	other, err := NewCodec("another-secret-0000", time.Hour, false)
	require.NoError(t, err)
	fresh, err := Login("tok", RoleDriver, 1, "", time.Now())
	require.NoError(t, err)
	value, err = other.Encode(fresh)
	require.NoError(t, err)
	_, err = codec.Decode(value)
	assert.Error(t, err)

	_, err = codec.Read(httptest.NewRequest(http.MethodGet, "/", nil))
	assert.ErrorIs(t, err, ErrNoSession)
}

func TestCodecWriteLoggedOutClears(t *testing.T) {
	codec, err := NewCodec(testSecret, time.Hour, true)
	require.NoError(t, err)
	rec := httptest.NewRecorder()
	require.NoError(t, codec.Write(rec, Session{}))
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, "", cookies[0].Value)
	assert.Less(t, cookies[0].MaxAge, 0)
	assert.True(t, cookies[0].Secure)
}
