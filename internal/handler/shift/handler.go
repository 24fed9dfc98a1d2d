package shift

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/jwalitptl/vetclinic-api/internal/handler"
	"github.com/jwalitptl/vetclinic-api/internal/middleware"
	"github.com/jwalitptl/vetclinic-api/internal/model"
	shiftService "github.com/jwalitptl/vetclinic-api/internal/service/shift"
	apperrors "github.com/jwalitptl/vetclinic-api/pkg/errors"
	"github.com/jwalitptl/vetclinic-api/pkg/httputil"
)

type Handler struct {
	service shiftService.ShiftServicer
}

func NewHandler(service shiftService.ShiftServicer) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	manager := middleware.RequireRole(model.RoleManager)

	shifts := r.Group("/shifts")
	{
		shifts.POST("", manager, h.CreateShift)
		shifts.GET("", h.ListShifts)
		shifts.GET("/calendar.ics", h.ExportCalendar)
		shifts.GET("/:id", h.GetShift)
		shifts.PUT("/:id", manager, h.UpdateShift)
		shifts.DELETE("/:id", manager, h.DeleteShift)
		shifts.POST("/:id/claim", h.ClaimShift)
	}
}

type ShiftResponse struct {
	ID            uuid.UUID       `json:"id"`
	ClinicID      uuid.UUID       `json:"clinic_id"`
	StaffID       *uuid.UUID      `json:"staff_id,omitempty"`
	Date          string          `json:"date"`
	StartTime     model.TimeOfDay `json:"start_time"`
	EndTime       model.TimeOfDay `json:"end_time"`
	Kind          model.ShiftKind `json:"shift_kind"`
	SwappedWithID *uuid.UUID      `json:"swapped_with_id,omitempty"`
}

// ToResponse is shared with the transfer handler, which also returns shifts.
func ToResponse(shifts ...*model.WorkShift) ([]ShiftResponse, error) {
	out := make([]ShiftResponse, len(shifts))
	for i, s := range shifts {
		if err := handler.Copy(&out[i], s); err != nil {
			return nil, apperrors.NewInternal(err)
		}
	}
	return out, nil
}

func respondShift(c *gin.Context, status int, shift *model.WorkShift) {
	out, err := ToResponse(shift)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	if status == http.StatusCreated {
		httputil.RespondWithCreated(c, out[0])
		return
	}
	httputil.RespondWithSuccess(c, out[0])
}

func (h *Handler) CreateShift(c *gin.Context) {
	var req model.CreateShiftRequest
	if !handler.BindJSON(c, &req) {
		return
	}

	shift, err := h.service.CreateShift(c.Request.Context(), middleware.ClinicID(c), &req)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	respondShift(c, http.StatusCreated, shift)
}

func (h *Handler) ListShifts(c *gin.Context) {
	from, ok := handler.QueryDate(c, "from")
	if !ok {
		return
	}
	to, ok := handler.QueryDate(c, "to")
	if !ok {
		return
	}
	staffID, ok := handler.QueryID(c, "staff_id")
	if !ok {
		return
	}

	shifts, err := h.service.ListShifts(c.Request.Context(), &model.ShiftFilters{
		ClinicID: middleware.ClinicID(c),
		StaffID:  staffID,
		Range:    model.DateRange{From: from, To: to},
	})
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	out, err := ToResponse(shifts...)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, out)
}

func (h *Handler) GetShift(c *gin.Context) {
	id, ok := handler.ParamID(c, "id")
	if !ok {
		return
	}

	shift, err := h.service.GetShift(c.Request.Context(), middleware.ClinicID(c), id)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	respondShift(c, http.StatusOK, shift)
}

func (h *Handler) UpdateShift(c *gin.Context) {
	id, ok := handler.ParamID(c, "id")
	if !ok {
		return
	}
	var req model.UpdateShiftRequest
	if !handler.BindJSON(c, &req) {
		return
	}

	shift, err := h.service.UpdateShiftTimes(c.Request.Context(), middleware.ClinicID(c), id, &req)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	respondShift(c, http.StatusOK, shift)
}

func (h *Handler) DeleteShift(c *gin.Context) {
	id, ok := handler.ParamID(c, "id")
	if !ok {
		return
	}

	if err := h.service.DeleteShift(c.Request.Context(), middleware.ClinicID(c), id); err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, gin.H{"id": id})
}

func (h *Handler) ClaimShift(c *gin.Context) {
	id, ok := handler.ParamID(c, "id")
	if !ok {
		return
	}

	shift, err := h.service.ClaimShift(c.Request.Context(), middleware.UserID(c), middleware.ClinicID(c), id)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	respondShift(c, http.StatusOK, shift)
}

// ExportCalendar serves the caller's shifts as text/calendar. Managers may pass staff_id.
func (h *Handler) ExportCalendar(c *gin.Context) {
	from, ok := handler.QueryDate(c, "from")
	if !ok {
		return
	}
	to, ok := handler.QueryDate(c, "to")
	if !ok {
		return
	}
	staffID := middleware.UserID(c)
	if c.Query("staff_id") != "" {
		if c.GetString(middleware.ContextRole) != model.RoleManager {
			httputil.RespondWithError(c, apperrors.NewForbidden("only managers may export another member's calendar"))
			return
		}
		id, ok := handler.QueryID(c, "staff_id")
		if !ok {
			return
		}
		staffID = *id
	}

	feed, err := h.service.ExportCalendar(c.Request.Context(), middleware.ClinicID(c), staffID, from, to)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="shifts.ics"`)
	c.Data(http.StatusOK, "text/calendar; charset=utf-8", []byte(feed))
}
