package handler

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/caseperl/caseperl-api/internal/core/domain"
)

// ctxIdentity returns the caller identity injected by the Auth middleware.
// Its absence means the route was wired without Auth.
func ctxIdentity(c echo.Context) (*domain.Identity, error) {
	id, ok := domain.IdentityFromContext(c.Request().Context())
	if !ok {
		return nil, echo.NewHTTPError(http.StatusUnauthorized, "missing authentication claims")
	}
	return id, nil
}

// pathID parses the positive integer path parameter name. A malformed value
// resolves to notFound, the same as an unknown id.
func pathID(c echo.Context, name string, notFound error) (int64, error) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, notFound
	}
	return id, nil
}
