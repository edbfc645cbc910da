package handler

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/caseperl/caseperl-api/internal/api/metrics"
	"github.com/caseperl/caseperl-api/internal/core/domain"
	"github.com/caseperl/caseperl-api/internal/core/ports"
)

type AuthHandler struct {
	authService ports.AuthService
}

func NewAuthHandler(authService ports.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

func countAuth(action string, err error) {
	result := "success"
	if err != nil {
		result = "failure"
	}
	metrics.AuthAttemptsTotal.WithLabelValues(action, result).Inc()
}

func bindAndValidate(c echo.Context, req any) error {
	if err := c.Bind(req); err != nil {
		return fmt.Errorf("%w: invalid payload", domain.ErrInvalidInput)
	}
	return c.Validate(req)
}

// Register creates a new user account.
//
// @Summary      Register a new user
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      registerRequest  true  "User registration details"
// @Success      201   {object}  userResponse
// @Failure      400   {object}  errorResponse
// @Failure      429   {object}  errorResponse
// @Router       /auth/register/ [post]
func (h *AuthHandler) Register(c echo.Context) (err error) {
	defer func() { countAuth("register", err) }()

	var req registerRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	user, err := h.authService.Register(c.Request().Context(), ports.RegisterInput{
		Username: req.Username,
		Password: req.Password,
		Role:     req.Role,
	})
	if err != nil {
		return err
	}

	return c.JSON(http.StatusCreated, toUserResponse(user.Identity()))
}

// Login authenticates a user and returns an access/refresh token pair.
//
// @Summary      Login
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      loginRequest  true  "Login credentials"
// @Success      200   {object}  loginResponse
// @Failure      400   {object}  errorResponse
// @Failure      401   {object}  errorResponse
// @Failure      429   {object}  errorResponse
// @Router       /auth/login/ [post]
func (h *AuthHandler) Login(c echo.Context) (err error) {
	defer func() { countAuth("login", err) }()

	var req loginRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	ctx := c.Request().Context()
	user, err := h.authService.Authenticate(ctx, req.Username, req.Password)
	if err != nil {
		return err
	}
	session, err := h.authService.IssueSession(ctx, user)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, loginResponse{
		Access:  session.AccessToken,
		Refresh: session.RefreshToken,
		User:    toUserResponse(user.Identity()),
	})
}

// Refresh exchanges a refresh token for a new access token.
//
// @Summary      Refresh access token
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      refreshRequest  true  "Refresh token"
// @Success      200   {object}  refreshResponse
// @Failure      401   {object}  errorResponse
// @Router       /auth/token/refresh/ [post]
func (h *AuthHandler) Refresh(c echo.Context) (err error) {
	defer func() { countAuth("refresh", err) }()

	var req refreshRequest
	if err := c.Bind(&req); err != nil {
		return fmt.Errorf("%w: invalid payload", domain.ErrInvalidInput)
	}

	session, err := h.authService.RefreshSession(c.Request().Context(), req.Refresh)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, refreshResponse{
		Access:  session.AccessToken,
		Refresh: session.RefreshToken,
	})
}

// Logout revokes the given refresh token.
//
// @Summary      Logout
// @Tags         auth
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      refreshRequest  false  "Refresh token to revoke"
// @Success      200   {object}  messageResponse
// @Failure      400   {object}  errorResponse
// @Failure      401   {object}  errorResponse
// @Router       /auth/logout/ [post]
func (h *AuthHandler) Logout(c echo.Context) (err error) {
	defer func() { countAuth("logout", err) }()

	var req refreshRequest
	if err := c.Bind(&req); err != nil {
		return domain.ErrInvalidToken
	}
	if err := h.authService.RevokeSession(c.Request().Context(), req.Refresh); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, messageResponse{Message: "Logged out successfully"})
}

// Me returns the authenticated caller.
//
// @Summary      Current user
// @Tags         auth
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  userResponse
// @Failure      401  {object}  errorResponse
// @Router       /auth/me/ [get]
func (h *AuthHandler) Me(c echo.Context) error {
	id, err := ctxIdentity(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toUserResponse(id))
}

// SetActive enables or disables a user account. Admin only.
//
// @Summary      Set user active flag
// @Tags         admin
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path      int               true  "User ID"
// @Param        body  body      setActiveRequest  true  "Active flag"
// @Success      200   {object}  adminUserResponse
// @Failure      400   {object}  errorResponse
// @Failure      403   {object}  errorResponse
// @Failure      404   {object}  errorResponse
// @Router       /auth/users/{id}/active/ [put]
func (h *AuthHandler) SetActive(c echo.Context) error {
	userID, err := pathID(c, "id", domain.ErrUserNotFound)
	if err != nil {
		return err
	}

	var req setActiveRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	user, err := h.authService.SetActive(c.Request().Context(), userID, *req.IsActive)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toAdminUserResponse(user))
}

// DeleteUser removes a user and every case they own. Admin only.
//
// @Summary      Delete user
// @Tags         admin
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      int  true  "User ID"
// @Success      200  {object}  messageResponse
// @Failure      403  {object}  errorResponse
// @Failure      404  {object}  errorResponse
// @Router       /auth/users/{id}/ [delete]
func (h *AuthHandler) DeleteUser(c echo.Context) error {
	userID, err := pathID(c, "id", domain.ErrUserNotFound)
	if err != nil {
		return err
	}
	if err := h.authService.DeleteUser(c.Request().Context(), userID); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, messageResponse{Message: "User deleted successfully"})
}
