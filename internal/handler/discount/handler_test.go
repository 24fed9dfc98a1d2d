package discount

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/vetclinic-api/internal/middleware"
	"github.com/jwalitptl/vetclinic-api/internal/model"
	"github.com/jwalitptl/vetclinic-api/internal/repository/memory"
	discountService "github.com/jwalitptl/vetclinic-api/internal/service/discount"
)

func init() {
	gin.SetMode(gin.TestMode)
}

var now = time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Message string `json:"message"`
	} `json:"error"`
}

func newService() *discountService.Service {
	return discountService.NewService(
		memory.NewDiscountRepository(memory.NewStore()),
		discountService.WithClock(func() time.Time { return now }),
	)
}

func router(svc discountService.DiscountServicer, userID, clinicID uuid.UUID, role string) *gin.Engine {
	r := gin.New()
	api := r.Group("/api/v1", func(c *gin.Context) {
		c.Set(middleware.ContextUserID, userID)
		c.Set(middleware.ContextClinicID, clinicID)
		c.Set(middleware.ContextRole, role)
	})
	NewHandler(svc).RegisterRoutes(api)
	return r
}

func do(t *testing.T, r *gin.Engine, method, path string, body interface{}) (int, envelope) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var out envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return w.Code, out
}

func createBody(code string) map[string]interface{} {
	return map[string]interface{}{
		"code":                code,
		"discount_type":       "percentage",
		"discount_value":      10,
		"max_discount_amount": 5000,
		"max_use":             1,
		"start_date":          now.Add(-time.Hour),
		"end_date":            now.Add(72 * time.Hour),
	}
}

func TestDiscountCheckout(t *testing.T) {
	svc := newService()
	clinicID := uuid.New()
	manager := router(svc, uuid.New(), clinicID, model.RoleManager)

	code, out := do(t, manager, http.MethodPost, "/api/v1/discounts", createBody("welcome10"))
	require.Equal(t, http.StatusCreated, code, out)
	var created model.DiscountCode
	require.NoError(t, json.Unmarshal(out.Data, &created))
	assert.Equal(t, "WELCOME10", created.Code)
	assert.True(t, created.IsActive)

	customerID := uuid.New()
	customer := router(svc, customerID, uuid.Nil, model.RoleCustomer)

	code, out = do(t, customer, http.MethodPost, "/api/v1/discounts/validate", map[string]interface{}{
		"code":      "welcome10",
		"clinic_id": clinicID,
	})
	require.Equal(t, http.StatusOK, code)
	var summary map[string]interface{}
	require.NoError(t, json.Unmarshal(out.Data, &summary))
	assert.Equal(t, "WELCOME10", summary["code"])
	assert.NotContains(t, summary, "used_by")

	code, out = do(t, customer, http.MethodPost, "/api/v1/discounts/apply", map[string]interface{}{
		"code":         "WELCOME10",
		"clinic_id":    clinicID,
		"total_amount": 200,
	})
	require.Equal(t, http.StatusOK, code)
	var result model.ApplyResult
	require.NoError(t, json.Unmarshal(out.Data, &result))
	assert.Equal(t, 20.0, result.ActualDiscount)
	assert.Equal(t, 180.0, result.FinalAmount)

	other := router(svc, uuid.New(), uuid.Nil, model.RoleCustomer)
	code, out = do(t, other, http.MethodPost, "/api/v1/discounts/apply", map[string]interface{}{
		"code":         "WELCOME10",
		"clinic_id":    clinicID,
		"total_amount": 200,
	})
	assert.Equal(t, http.StatusConflict, code)
	require.NotNil(t, out.Error)
	assert.Equal(t, "usage limit reached", out.Error.Message)
}

func TestDiscountManagement(t *testing.T) {
	svc := newService()
	clinicID := uuid.New()
	manager := router(svc, uuid.New(), clinicID, model.RoleManager)

	code, out := do(t, manager, http.MethodPost, "/api/v1/discounts", createBody("SUMMER"))
	require.Equal(t, http.StatusCreated, code)
	var created model.DiscountCode
	require.NoError(t, json.Unmarshal(out.Data, &created))

	code, _ = do(t, manager, http.MethodPost, "/api/v1/discounts", createBody("summer"))
	assert.Equal(t, http.StatusConflict, code)

	code, out = do(t, manager, http.MethodGet, "/api/v1/discounts", nil)
	require.Equal(t, http.StatusOK, code)
	var listed []model.DiscountCode
	require.NoError(t, json.Unmarshal(out.Data, &listed))
	assert.Len(t, listed, 1)

	elsewhere := router(svc, uuid.New(), uuid.New(), model.RoleManager)
	code, _ = do(t, elsewhere, http.MethodGet, "/api/v1/discounts/"+created.ID.String(), nil)
	assert.Equal(t, http.StatusForbidden, code)

	code, _ = do(t, manager, http.MethodDelete, "/api/v1/discounts/"+created.ID.String(), nil)
	assert.Equal(t, http.StatusOK, code)

	code, _ = do(t, manager, http.MethodGet, "/api/v1/discounts/"+created.ID.String(), nil)
	assert.Equal(t, http.StatusNotFound, code)
}

func TestDiscountRoles(t *testing.T) {
	svc := newService()
	customer := router(svc, uuid.New(), uuid.New(), model.RoleCustomer)

	for _, path := range []string{"/api/v1/discounts", "/api/v1/discounts/sweep"} {
		code, _ := do(t, customer, http.MethodPost, path, createBody("NOPE"))
		assert.Equal(t, http.StatusForbidden, code, path)
	}
}

func TestSweepEndpoint(t *testing.T) {
	svc := newService()
	manager := router(svc, uuid.New(), uuid.New(), model.RoleManager)

	code, out := do(t, manager, http.MethodPost, "/api/v1/discounts/sweep", nil)
	require.Equal(t, http.StatusOK, code)
	assert.JSONEq(t, `{"deactivated":0}`, string(out.Data))
}

func TestCreateValidation(t *testing.T) {
	svc := newService()
	manager := router(svc, uuid.New(), uuid.New(), model.RoleManager)

	body := createBody("BAD")
	body["discount_value"] = 150
	code, out := do(t, manager, http.MethodPost, "/api/v1/discounts", body)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.False(t, out.Success)

	code, _ = do(t, manager, http.MethodPost, "/api/v1/discounts/validate", map[string]string{"code": ""})
	assert.Equal(t, http.StatusBadRequest, code)
}
