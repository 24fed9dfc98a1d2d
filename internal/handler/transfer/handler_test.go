package transfer

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	shiftHandler "github.com/jwalitptl/vetclinic-api/internal/handler/shift"
	"github.com/jwalitptl/vetclinic-api/internal/middleware"
	"github.com/jwalitptl/vetclinic-api/internal/model"
	"github.com/jwalitptl/vetclinic-api/internal/repository"
	"github.com/jwalitptl/vetclinic-api/internal/repository/memory"
	transferService "github.com/jwalitptl/vetclinic-api/internal/service/transfer"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
}

type env struct {
	svc      *transferService.Service
	shifts   repository.ShiftRepository
	clinicID uuid.UUID
	alice    uuid.UUID
	bob      uuid.UUID
}

func setup(t *testing.T) *env {
	t.Helper()
	store := memory.NewStore()
	e := &env{
		shifts:   memory.NewShiftRepository(store),
		clinicID: uuid.New(),
		alice:    uuid.New(),
		bob:      uuid.New(),
	}
	e.svc = transferService.NewService(e.shifts, memory.NewTransferRepository(store))
	return e
}

func (e *env) shift(t *testing.T, owner uuid.UUID, start, end model.TimeOfDay) *model.WorkShift {
	t.Helper()
	s := &model.WorkShift{
		ClinicID:  e.clinicID,
		StaffID:   &owner,
		Date:      time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC),
		StartTime: start,
		EndTime:   end,
	}
	require.NoError(t, e.shifts.Create(context.Background(), s))
	return s
}

func (e *env) as(userID uuid.UUID) *gin.Engine {
	r := gin.New()
	api := r.Group("/api/v1", func(c *gin.Context) {
		c.Set(middleware.ContextUserID, userID)
		c.Set(middleware.ContextClinicID, e.clinicID)
		c.Set(middleware.ContextRole, model.RoleStaff)
	})
	NewHandler(e.svc).RegisterRoutes(api)
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

func TestTransferAcceptFlow(t *testing.T) {
	e := setup(t)
	opening := e.shift(t, e.alice, "08:00", "16:00")
	closing := e.shift(t, e.bob, "15:00", "23:00")

	code, out := do(t, e.as(e.alice), http.MethodPost, "/api/v1/transfers", map[string]string{
		"source_shift_id": opening.ID.String(),
		"target_shift_id": closing.ID.String(),
	})
	require.Equal(t, http.StatusCreated, code)
	var created model.TransferRequest
	require.NoError(t, json.Unmarshal(out.Data, &created))
	assert.Equal(t, model.TransferStatusPending, created.Status)

	code, out = do(t, e.as(e.bob), http.MethodGet, "/api/v1/transfers", nil)
	require.Equal(t, http.StatusOK, code)
	var pending []model.TransferRequest
	require.NoError(t, json.Unmarshal(out.Data, &pending))
	require.Len(t, pending, 1)
	assert.Equal(t, created.ID, pending[0].ID)

	code, _ = do(t, e.as(e.alice), http.MethodPost, "/api/v1/transfers/"+created.ID.String()+"/accept", nil)
	assert.Equal(t, http.StatusForbidden, code)

	code, out = do(t, e.as(e.bob), http.MethodPost, "/api/v1/transfers/"+created.ID.String()+"/accept", nil)
	require.Equal(t, http.StatusOK, code)
	var accepted model.TransferRequest
	require.NoError(t, json.Unmarshal(out.Data, &accepted))
	assert.Equal(t, model.TransferStatusAccepted, accepted.Status)
	assert.NotNil(t, accepted.RespondedAt)

	swapped, err := e.shifts.Get(context.Background(), opening.ID)
	require.NoError(t, err)
	assert.Equal(t, e.bob, *swapped.StaffID)

	code, _ = do(t, e.as(e.bob), http.MethodPost, "/api/v1/transfers/"+created.ID.String()+"/reject", nil)
	assert.Equal(t, http.StatusConflict, code)
}

func TestTransferReject(t *testing.T) {
	e := setup(t)
	a := e.shift(t, e.alice, "08:00", "16:00")
	b := e.shift(t, e.bob, "09:00", "17:00")

	code, out := do(t, e.as(e.alice), http.MethodPost, "/api/v1/transfers", map[string]string{
		"source_shift_id": a.ID.String(),
		"target_shift_id": b.ID.String(),
	})
	require.Equal(t, http.StatusCreated, code)
	var created model.TransferRequest
	require.NoError(t, json.Unmarshal(out.Data, &created))

	code, out = do(t, e.as(e.bob), http.MethodPost, "/api/v1/transfers/"+created.ID.String()+"/reject", nil)
	require.Equal(t, http.StatusOK, code)
	var rejected model.TransferRequest
	require.NoError(t, json.Unmarshal(out.Data, &rejected))
	assert.Equal(t, model.TransferStatusRejected, rejected.Status)

	unchanged, err := e.shifts.Get(context.Background(), a.ID)
	require.NoError(t, err)
	assert.Equal(t, e.alice, *unchanged.StaffID)
}

func TestCreateTransferValidation(t *testing.T) {
	e := setup(t)
	a := e.shift(t, e.alice, "08:00", "16:00")

	tests := []struct {
		name   string
		body   interface{}
		status int
	}{
		{"missing target", map[string]string{"source_shift_id": a.ID.String()}, http.StatusBadRequest},
		{"malformed id", map[string]string{"source_shift_id": "x", "target_shift_id": "y"}, http.StatusBadRequest},
		{"unknown target", map[string]string{"source_shift_id": a.ID.String(), "target_shift_id": uuid.NewString()}, http.StatusNotFound},
		{"same shift", map[string]string{"source_shift_id": a.ID.String(), "target_shift_id": a.ID.String()}, http.StatusConflict},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, out := do(t, e.as(e.alice), http.MethodPost, "/api/v1/transfers", tt.body)
			assert.Equal(t, tt.status, code)
			assert.False(t, out.Success)
		})
	}
}

func TestListSwappableShifts(t *testing.T) {
	e := setup(t)
	mine := e.shift(t, e.alice, "08:00", "16:00")
	other := e.shift(t, e.bob, "15:00", "23:00")
	e.shift(t, e.alice, "09:00", "17:00")

	code, out := do(t, e.as(e.alice), http.MethodGet, "/api/v1/shifts/"+mine.ID.String()+"/swappable", nil)
	require.Equal(t, http.StatusOK, code)

	var shifts []shiftHandler.ShiftResponse
	require.NoError(t, json.Unmarshal(out.Data, &shifts))
	require.Len(t, shifts, 1)
	assert.Equal(t, other.ID, shifts[0].ID)
	assert.Equal(t, "2026-06-01", shifts[0].Date)

	code, _ = do(t, e.as(e.alice), http.MethodGet, "/api/v1/shifts/"+uuid.NewString()+"/swappable", nil)
	assert.Equal(t, http.StatusNotFound, code)
}
