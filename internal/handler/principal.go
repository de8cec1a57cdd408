package handler

import (
	"net/http"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"

	"govichain/internal/auth"
)

// principalFrom resolves the authenticated principal from the verified JWT
// placed in the context by the echo-jwt middleware.
func principalFrom(c echo.Context) (auth.Principal, error) {
	token, ok := c.Get("user").(*jwt.Token)
	if !ok {
		return auth.Principal{}, echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
	}
	claims, ok := token.Claims.(*auth.Claims)
	if !ok {
		return auth.Principal{}, echo.NewHTTPError(http.StatusUnauthorized, "invalid token claims")
	}
	return claims.Principal(), nil
}
