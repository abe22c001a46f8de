package jwtmiddleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
)

var testSecret = []byte("test_secret")

func signToken(t *testing.T, sub string, isAdmin bool) string {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":      sub,
		"is_admin": isAdmin,
		"exp":      time.Now().Add(time.Hour).Unix(),
	})
	s, err := token.SignedString(testSecret)
	require.NoError(t, err)
	return s
}

func doRequest(token, paramID string, mw echo.MiddlewareFunc) (*httptest.ResponseRecorder, error) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	if paramID != "" {
		c.SetParamNames("id")
		c.SetParamValues(paramID)
	}

	handler := mw(func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	})
	return rec, handler(c)
}

func TestRequireUserOwnPath(t *testing.T) {
	token := signToken(t, "user-1", false)
	rec, err := doRequest(token, "user-1", RequireUser(testSecret))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestRequireUserOtherPath(t *testing.T) {
	token := signToken(t, "user-1", false)
	_, err := doRequest(token, "user-2", RequireUser(testSecret))

	var httpErr *echo.HTTPError
	require.ErrorAs(t, err, &httpErr)
	require.Equal(t, http.StatusUnauthorized, httpErr.Code)
}

func TestRequireUserAdminBypassesOwnership(t *testing.T) {
	token := signToken(t, "admin-1", true)
	rec, err := doRequest(token, "user-2", RequireUser(testSecret))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestRequireUserMissingToken(t *testing.T) {
	_, err := doRequest("", "user-1", RequireUser(testSecret))

	var httpErr *echo.HTTPError
	require.ErrorAs(t, err, &httpErr)
	require.Equal(t, http.StatusUnauthorized, httpErr.Code)
}

func TestRequireUserBadSignature(t *testing.T) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": "user-1"})
	s, err := token.SignedString([]byte("other_secret"))
	require.NoError(t, err)

	_, err = doRequest(s, "user-1", RequireUser(testSecret))

	var httpErr *echo.HTTPError
	require.ErrorAs(t, err, &httpErr)
	require.Equal(t, http.StatusUnauthorized, httpErr.Code)
}

func TestRequireUserCookieToken(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: "accessToken", Value: signToken(t, "user-1", false)})
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues("user-1")

	handler := RequireUser(testSecret)(func(c echo.Context) error {
		require.Equal(t, "user-1", c.Get("user_id"))
		return c.NoContent(http.StatusOK)
	})
	require.NoError(t, handler(c))
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestRequireAdmin(t *testing.T) {
	rec, err := doRequest(signToken(t, "admin-1", true), "", RequireAdmin(testSecret))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, rec.Code)

	_, err = doRequest(signToken(t, "user-1", false), "", RequireAdmin(testSecret))
	var httpErr *echo.HTTPError
	require.ErrorAs(t, err, &httpErr)
	require.Equal(t, http.StatusForbidden, httpErr.Code)
}
