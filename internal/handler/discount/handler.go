package discount

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/jwalitptl/vetclinic-api/internal/handler"
	"github.com/jwalitptl/vetclinic-api/internal/middleware"
	"github.com/jwalitptl/vetclinic-api/internal/model"
	discountService "github.com/jwalitptl/vetclinic-api/internal/service/discount"
	apperrors "github.com/jwalitptl/vetclinic-api/pkg/errors"
	"github.com/jwalitptl/vetclinic-api/pkg/httputil"
	"github.com/jwalitptl/vetclinic-api/pkg/validator"
)

type Handler struct {
	service   discountService.DiscountServicer
	validator validator.Validator
}

func NewHandler(service discountService.DiscountServicer) *Handler {
	return &Handler{service: service, validator: validator.New()}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	manager := middleware.RequireRole(model.RoleManager)

	discounts := r.Group("/discounts")
	{
		discounts.POST("", manager, h.CreateDiscountCode)
		discounts.GET("", manager, h.ListDiscountCodes)
		discounts.GET("/:id", manager, h.GetDiscountCode)
		discounts.DELETE("/:id", manager, h.DeleteDiscountCode)
		discounts.POST("/validate", h.ValidateDiscountCode)
		discounts.POST("/apply", h.ApplyDiscountCode)
		discounts.POST("/sweep", manager, h.SweepExpiredCodes)
	}
}

// codeSummary is what a customer sees of a code; usage details stay with managers.
type codeSummary struct {
	ID                uuid.UUID          `json:"id"`
	Code              string             `json:"code"`
	DiscountType      model.DiscountType `json:"discount_type"`
	DiscountValue     float64            `json:"discount_value"`
	MaxDiscountAmount float64            `json:"max_discount_amount,omitempty"`
	StartDate         time.Time          `json:"start_date"`
	EndDate           time.Time          `json:"end_date"`
}

func (h *Handler) CreateDiscountCode(c *gin.Context) {
	var req model.CreateDiscountCodeRequest
	if !handler.BindJSON(c, &req) {
		return
	}

	code, err := h.service.CreateDiscountCode(c.Request.Context(), middleware.ClinicID(c), &req)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithCreated(c, code)
}

func (h *Handler) ListDiscountCodes(c *gin.Context) {
	codes, err := h.service.ListDiscountCodes(c.Request.Context(), middleware.ClinicID(c))
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, codes)
}

func (h *Handler) GetDiscountCode(c *gin.Context) {
	id, ok := handler.ParamID(c, "id")
	if !ok {
		return
	}

	code, err := h.service.GetDiscountCode(c.Request.Context(), middleware.ClinicID(c), id)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, code)
}

func (h *Handler) DeleteDiscountCode(c *gin.Context) {
	id, ok := handler.ParamID(c, "id")
	if !ok {
		return
	}

	if err := h.service.DeleteDiscountCode(c.Request.Context(), middleware.ClinicID(c), id); err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, gin.H{"id": id})
}

func (h *Handler) ValidateDiscountCode(c *gin.Context) {
	var req model.ValidateDiscountRequest
	if !handler.BindJSON(c, &req) {
		return
	}
	if err := h.validator.Validate(&req); err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	code, err := h.service.Validate(c.Request.Context(), req.Code, req.ClinicID, middleware.UserID(c))
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	var out codeSummary
	if err := handler.Copy(&out, code); err != nil {
		httputil.RespondWithError(c, apperrors.NewInternal(err))
		return
	}
	httputil.RespondWithSuccess(c, out)
}

func (h *Handler) ApplyDiscountCode(c *gin.Context) {
	var req model.ApplyDiscountRequest
	if !handler.BindJSON(c, &req) {
		return
	}
	if err := h.validator.Validate(&req); err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	result, err := h.service.ValidateAndApply(c.Request.Context(), req.Code, req.ClinicID, req.TotalAmount, middleware.UserID(c))
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, result)
}

func (h *Handler) SweepExpiredCodes(c *gin.Context) {
	n, err := h.service.SweepExpiredCodes(c.Request.Context())
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, gin.H{"deactivated": n})
}
