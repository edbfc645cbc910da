package handler

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/caseperl/caseperl-api/internal/api/metrics"
	"github.com/caseperl/caseperl-api/internal/core/domain"
	"github.com/caseperl/caseperl-api/internal/core/ports"
)

// CaseHandler handles HTTP requests for case operations.
type CaseHandler struct {
	cases  ports.CaseService
	events ports.EventService
}

func NewCaseHandler(cases ports.CaseService, events ports.EventService) *CaseHandler {
	return &CaseHandler{cases: cases, events: events}
}

// List handles GET /cases/.
//
// @Summary      List all cases
// @Description  Every non-deleted case, regardless of owner.
// @Tags         cases
// @Produce      json
// @Security     BearerAuth
// @Param        status    query     string  false  "Filter by status"
// @Param        priority  query     string  false  "Filter by priority"
// @Success      200       {array}   caseResponse
// @Failure      400       {object}  errorResponse
// @Failure      401       {object}  errorResponse
// @Router       /cases/ [get]
func (h *CaseHandler) List(c echo.Context) error {
	cases, err := h.cases.ListAllCases(c.Request().Context(), ports.ListCasesInput{
		Status:   c.QueryParam("status"),
		Priority: c.QueryParam("priority"),
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toCaseResponses(cases))
}

// Create handles POST /cases/. The caller becomes the owner.
//
// @Summary      Create a case
// @Tags         cases
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      createCaseRequest  true  "Case details"
// @Success      201   {object}  caseResponse
// @Failure      400   {object}  errorResponse
// @Failure      401   {object}  errorResponse
// @Router       /cases/ [post]
func (h *CaseHandler) Create(c echo.Context) error {
	id, err := ctxIdentity(c)
	if err != nil {
		return err
	}

	var req createCaseRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	created, err := h.cases.CreateCase(c.Request().Context(), ports.CreateCaseInput{
		OwnerID:     id.ID,
		Title:       req.Title,
		Description: req.Description,
		Priority:    domain.CasePriority(req.Priority),
		DueDate:     req.DueDate.timePtr(),
	})
	if err != nil {
		return err
	}

	metrics.CasesCreatedTotal.WithLabelValues(string(created.Priority)).Inc()
	return c.JSON(http.StatusCreated, toCaseResponse(created))
}

// Get handles GET /cases/:id/.
//
// @Summary      Get a case
// @Tags         cases
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      int  true  "Case ID"
// @Success      200  {object}  caseResponse
// @Failure      401  {object}  errorResponse
// @Failure      404  {object}  errorResponse
// @Router       /cases/{id}/ [get]
func (h *CaseHandler) Get(c echo.Context) error {
	caseID, err := pathID(c, "id", domain.ErrCaseNotFound)
	if err != nil {
		return err
	}
	found, err := h.cases.GetCase(c.Request().Context(), caseID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toCaseResponse(found))
}

// ListForUser handles GET /cases/user/:userId/.
//
// @Summary      List cases owned by a user
// @Tags         cases
// @Produce      json
// @Security     BearerAuth
// @Param        userId  path      int  true  "Owner user ID"
// @Success      200     {array}   caseResponse
// @Failure      401     {object}  errorResponse
// @Failure      404     {object}  errorResponse
// @Router       /cases/user/{userId}/ [get]
func (h *CaseHandler) ListForUser(c echo.Context) error {
	userID, err := pathID(c, "userId", domain.ErrUserNotFound)
	if err != nil {
		return err
	}
	cases, err := h.cases.ListCasesForUser(c.Request().Context(), userID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toCaseResponses(cases))
}

// Update handles PUT /cases/update/:id/:userId/. Only the owner named by
// userId may update the case.
//
// @Summary      Update a case
// @Tags         cases
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id      path      int                true  "Case ID"
// @Param        userId  path      int                true  "Requesting user ID"
// @Param        body    body      updateCaseRequest  true  "Fields to change"
// @Success      200     {object}  caseResponse
// @Failure      400     {object}  errorResponse
// @Failure      401     {object}  errorResponse
// @Failure      403     {object}  errorResponse
// @Failure      404     {object}  errorResponse
// @Router       /cases/update/{id}/{userId}/ [put]
func (h *CaseHandler) Update(c echo.Context) error {
	caseID, err := pathID(c, "id", domain.ErrCaseNotFound)
	if err != nil {
		return err
	}
	userID, err := pathID(c, "userId", domain.ErrForbidden)
	if err != nil {
		return err
	}

	var req updateCaseRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	updated, err := h.cases.UpdateCase(c.Request().Context(), caseID, userID, req.toPatch())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toCaseResponse(updated))
}

// SetStatus handles PUT /cases/status/:id/:statusIndex/.
//
// @Summary      Set case status by index
// @Description  0 new, 1 open, 2 in_progress, 3 resolved, 4 closed, 5 reopened.
// @Tags         cases
// @Produce      json
// @Security     BearerAuth
// @Param        id           path      int  true  "Case ID"
// @Param        statusIndex  path      int  true  "Status index"
// @Success      200          {object}  caseResponse
// @Failure      400          {object}  errorResponse
// @Failure      401          {object}  errorResponse
// @Failure      404          {object}  errorResponse
// @Router       /cases/status/{id}/{statusIndex}/ [put]
func (h *CaseHandler) SetStatus(c echo.Context) error {
	caseID, err := pathID(c, "id", domain.ErrCaseNotFound)
	if err != nil {
		return err
	}
	idx, err := strconv.Atoi(c.Param("statusIndex"))
	if err != nil {
		return domain.ErrInvalidStatusIndex
	}

	updated, err := h.cases.SetStatus(c.Request().Context(), caseID, idx)
	if err != nil {
		return err
	}

	metrics.CaseStatusChangesTotal.WithLabelValues(string(updated.Status)).Inc()
	return c.JSON(http.StatusOK, toCaseResponse(updated))
}

// Delete handles DELETE /cases/delete/:id/.
//
// @Summary      Soft-delete a case
// @Tags         cases
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      int  true  "Case ID"
// @Success      200  {object}  messageResponse
// @Failure      401  {object}  errorResponse
// @Failure      404  {object}  errorResponse
// @Router       /cases/delete/{id}/ [delete]
func (h *CaseHandler) Delete(c echo.Context) error {
	caseID, err := pathID(c, "id", domain.ErrCaseNotFound)
	if err != nil {
		return err
	}
	if err := h.cases.SoftDeleteCase(c.Request().Context(), caseID); err != nil {
		return err
	}

	metrics.CasesDeletedTotal.Inc()
	return c.JSON(http.StatusOK, messageResponse{Message: "Case deleted successfully"})
}

// History handles GET /cases/history/:id/.
//
// @Summary      Case audit trail
// @Tags         cases
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      int  true  "Case ID"
// @Success      200  {array}   caseEventResponse
// @Failure      401  {object}  errorResponse
// @Failure      404  {object}  errorResponse
// @Router       /cases/history/{id}/ [get]
func (h *CaseHandler) History(c echo.Context) error {
	caseID, err := pathID(c, "id", domain.ErrCaseNotFound)
	if err != nil {
		return err
	}
	events, err := h.events.History(c.Request().Context(), caseID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toCaseEventResponses(events))
}
