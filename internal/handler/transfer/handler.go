package transfer

import (
	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/vetclinic-api/internal/handler"
	shiftHandler "github.com/jwalitptl/vetclinic-api/internal/handler/shift"
	"github.com/jwalitptl/vetclinic-api/internal/middleware"
	"github.com/jwalitptl/vetclinic-api/internal/model"
	transferService "github.com/jwalitptl/vetclinic-api/internal/service/transfer"
	"github.com/jwalitptl/vetclinic-api/pkg/httputil"
	"github.com/jwalitptl/vetclinic-api/pkg/validator"
)

type Handler struct {
	service   transferService.TransferServicer
	validator validator.Validator
}

func NewHandler(service transferService.TransferServicer) *Handler {
	return &Handler{service: service, validator: validator.New()}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	transfers := r.Group("/transfers")
	{
		transfers.POST("", h.CreateTransferRequest)
		transfers.GET("", h.ListMyTransferRequests)
		transfers.POST("/:id/accept", h.AcceptTransferRequest)
		transfers.POST("/:id/reject", h.RejectTransferRequest)
	}
	r.GET("/shifts/:id/swappable", h.ListSwappableShifts)
}

func (h *Handler) CreateTransferRequest(c *gin.Context) {
	var req model.CreateTransferRequest
	if !handler.BindJSON(c, &req) {
		return
	}
	if err := h.validator.Validate(&req); err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	transfer, err := h.service.CreateTransferRequest(c.Request.Context(), middleware.UserID(c), req.SourceShiftID, req.TargetShiftID)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithCreated(c, transfer)
}

func (h *Handler) ListMyTransferRequests(c *gin.Context) {
	transfers, err := h.service.ListMyTransferRequests(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, transfers)
}

func (h *Handler) AcceptTransferRequest(c *gin.Context) {
	id, ok := handler.ParamID(c, "id")
	if !ok {
		return
	}

	transfer, err := h.service.AcceptTransferRequest(c.Request.Context(), middleware.UserID(c), id)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, transfer)
}

func (h *Handler) RejectTransferRequest(c *gin.Context) {
	id, ok := handler.ParamID(c, "id")
	if !ok {
		return
	}

	transfer, err := h.service.RejectTransferRequest(c.Request.Context(), middleware.UserID(c), id)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, transfer)
}

func (h *Handler) ListSwappableShifts(c *gin.Context) {
	id, ok := handler.ParamID(c, "id")
	if !ok {
		return
	}

	shifts, err := h.service.ListSwappableShifts(c.Request.Context(), id, middleware.UserID(c))
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	out, err := shiftHandler.ToResponse(shifts...)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, out)
}
