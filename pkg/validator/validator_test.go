package validator

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	apperrors "github.com/jwalitptl/vetclinic-api/pkg/errors"
)

type window struct {
	Code  string    `json:"code" validate:"required,alphanum,min=3"`
	Kind  string    `json:"kind" validate:"oneof=a b"`
	Start time.Time `json:"start" validate:"required"`
	End   time.Time `json:"end" validate:"required,gtfield=Start"`
}

func TestValidateReportsJSONFieldNames(t *testing.T) {
	v := New()
	now := time.Now()

	err := v.Validate(&window{Code: "x!", Kind: "c", Start: now, End: now.Add(-time.Hour)})
	assert.True(t, apperrors.Is(err, apperrors.ErrBadRequest))
	assert.Contains(t, err.Error(), "code must be alphanumeric")
	assert.Contains(t, err.Error(), "kind must be one of [a b]")
	assert.Contains(t, err.Error(), "end must be after Start")

	assert.NoError(t, v.Validate(&window{Code: "ABC1", Kind: "a", Start: now, End: now.Add(time.Hour)}))
}

func TestValidateVar(t *testing.T) {
	v := New()
	err := v.ValidateVar("percentage", 120.0, "lte=100")
	assert.True(t, apperrors.Is(err, apperrors.ErrBadRequest))
	assert.Contains(t, err.Error(), "percentage must be less than or equal to 100")
	assert.NoError(t, v.ValidateVar("percentage", 20.0, "gt=0,lte=100"))
}
