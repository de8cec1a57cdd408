package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"govichain/internal/errors"
	"govichain/internal/model"
	"govichain/internal/service"
)

// MilestoneHandler handles milestone endpoints.
type MilestoneHandler struct {
	milestoneService service.MilestoneService
}

// NewMilestoneHandler creates a new milestone handler.
func NewMilestoneHandler(milestoneService service.MilestoneService) *MilestoneHandler {
	return &MilestoneHandler{milestoneService: milestoneService}
}

// CreateMilestoneRequest represents a milestone creation request.
type CreateMilestoneRequest struct {
	ProjectID       uint   `json:"project_id" validate:"required"`
	Title           string `json:"title" validate:"required,min=3,max=200"`
	Description     string `json:"description" validate:"omitempty,max=1000"`
	RequestedAmount string `json:"requested_amount" validate:"required"`
}

// Create godoc
// @Summary Create a milestone
// @Description Only CONTRACTOR users can create milestones. The total requested over a project may not exceed its budget.
// @Tags milestones
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body CreateMilestoneRequest true "Milestone data"
// @Success 201 {object} model.Milestone
// @Failure 400 {object} errors.ErrorResponse
// @Failure 403 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /milestones [post]
func (h *MilestoneHandler) Create(c echo.Context) error {
	principal, err := principalFrom(c)
	if err != nil {
		return err
	}

	var req CreateMilestoneRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, errors.ErrorResponse{
			Error: "invalid request body",
			Code:  "INVALID_REQUEST",
		})
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusUnprocessableEntity, errors.ErrorResponse{
			Error: err.Error(),
			Code:  "VALIDATION_ERROR",
		})
	}

	amount, err := decimal.NewFromString(req.RequestedAmount)
	if err != nil {
		return echo.NewHTTPError(http.StatusUnprocessableEntity, errors.ErrorResponse{
			Error: "invalid requested_amount",
			Code:  "INVALID_AMOUNT",
		})
	}

	milestone, err := h.milestoneService.Create(c.Request().Context(), principal, req.ProjectID, req.Title, req.Description, amount)
	if err != nil {
		httpErr := errors.MapErrorToHTTP(err)
		return echo.NewHTTPError(httpErr.StatusCode, httpErr.ToErrorResponse())
	}
	return c.JSON(http.StatusCreated, milestone)
}

// ListMine godoc
// @Summary List milestones scoped to the current user's role
// @Description Contractors see their own milestones, auditors see the pending queue, other roles see all.
// @Tags milestones
// @Produce json
// @Security BearerAuth
// @Success 200 {array} model.Milestone
// @Router /milestones/my-milestones [get]
func (h *MilestoneHandler) ListMine(c echo.Context) error {
	principal, err := principalFrom(c)
	if err != nil {
		return err
	}

	milestones, err := h.milestoneService.ListMine(c.Request().Context(), principal)
	if err != nil {
		httpErr := errors.MapErrorToHTTP(err)
		return echo.NewHTTPError(httpErr.StatusCode, httpErr.ToErrorResponse())
	}
	return c.JSON(http.StatusOK, milestones)
}

// FilterByStatus godoc
// @Summary Filter milestones by status
// @Tags milestones
// @Produce json
// @Security BearerAuth
// @Param status query string false "Milestone status"
// @Success 200 {array} model.Milestone
// @Router /milestones/filter/by-status [get]
func (h *MilestoneHandler) FilterByStatus(c echo.Context) error {
	var status *model.MilestoneStatus
	if raw := c.QueryParam("status"); raw != "" {
		s := model.MilestoneStatus(raw)
		status = &s
	}

	milestones, err := h.milestoneService.FilterByStatus(c.Request().Context(), status)
	if err != nil {
		httpErr := errors.MapErrorToHTTP(err)
		return echo.NewHTTPError(httpErr.StatusCode, httpErr.ToErrorResponse())
	}
	return c.JSON(http.StatusOK, milestones)
}

// ListForProject godoc
// @Summary List milestones of a project
// @Tags milestones
// @Produce json
// @Security BearerAuth
// @Param project_id path int true "Project ID"
// @Success 200 {array} model.Milestone
// @Router /milestones/project/{project_id} [get]
func (h *MilestoneHandler) ListForProject(c echo.Context) error {
	projectID, err := parseID(c, "project_id")
	if err != nil {
		return err
	}

	milestones, err := h.milestoneService.ListForProject(c.Request().Context(), projectID)
	if err != nil {
		httpErr := errors.MapErrorToHTTP(err)
		return echo.NewHTTPError(httpErr.StatusCode, httpErr.ToErrorResponse())
	}
	return c.JSON(http.StatusOK, milestones)
}

// Get godoc
// @Summary Get a milestone by ID
// @Tags milestones
// @Produce json
// @Security BearerAuth
// @Param id path int true "Milestone ID"
// @Success 200 {object} model.Milestone
// @Failure 404 {object} errors.ErrorResponse
// @Router /milestones/{id} [get]
func (h *MilestoneHandler) Get(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}

	milestone, err := h.milestoneService.Get(c.Request().Context(), id)
	if err != nil {
		httpErr := errors.MapErrorToHTTP(err)
		return echo.NewHTTPError(httpErr.StatusCode, httpErr.ToErrorResponse())
	}
	return c.JSON(http.StatusOK, milestone)
}

// Approve godoc
// @Summary Approve a pending milestone
// @Description Only AUDITOR users can approve. Approved funds reaching the budget complete the project.
// @Tags milestones
// @Produce json
// @Security BearerAuth
// @Param id path int true "Milestone ID"
// @Success 200 {object} model.Milestone
// @Failure 400 {object} errors.ErrorResponse
// @Failure 403 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /milestones/{id}/approve [put]
func (h *MilestoneHandler) Approve(c echo.Context) error {
	principal, err := principalFrom(c)
	if err != nil {
		return err
	}
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}

	milestone, err := h.milestoneService.Approve(c.Request().Context(), principal, id)
	if err != nil {
		httpErr := errors.MapErrorToHTTP(err)
		return echo.NewHTTPError(httpErr.StatusCode, httpErr.ToErrorResponse())
	}
	return c.JSON(http.StatusOK, milestone)
}

// Flag godoc
// @Summary Flag a pending milestone
// @Description Only AUDITOR users can flag.
// @Tags milestones
// @Produce json
// @Security BearerAuth
// @Param id path int true "Milestone ID"
// @Success 200 {object} model.Milestone
// @Failure 400 {object} errors.ErrorResponse
// @Failure 403 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /milestones/{id}/flag [put]
func (h *MilestoneHandler) Flag(c echo.Context) error {
	principal, err := principalFrom(c)
	if err != nil {
		return err
	}
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}

	milestone, err := h.milestoneService.Flag(c.Request().Context(), principal, id)
	if err != nil {
		httpErr := errors.MapErrorToHTTP(err)
		return echo.NewHTTPError(httpErr.StatusCode, httpErr.ToErrorResponse())
	}
	return c.JSON(http.StatusOK, milestone)
}
