package handler

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jinzhu/copier"

	apperrors "github.com/jwalitptl/vetclinic-api/pkg/errors"
	"github.com/jwalitptl/vetclinic-api/pkg/httputil"
)

const DateLayout = "2006-01-02"

// copyOptions renders dates as YYYY-MM-DD when a response field is a string.
var copyOptions = copier.Option{
	Converters: []copier.TypeConverter{
		{
			SrcType: time.Time{},
			DstType: copier.String,
			Fn: func(src interface{}) (interface{}, error) {
				t, ok := src.(time.Time)
				if !ok || t.IsZero() {
					return "", nil
				}
				return t.Format(DateLayout), nil
			},
		},
	},
}

// Copy maps a model onto a response DTO.
func Copy(to, from interface{}) error {
	return copier.CopyWithOption(to, from, copyOptions)
}

// BindJSON decodes the request body and answers 400 on failure.
func BindJSON(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		httputil.RespondWithError(c, apperrors.NewBadRequest("invalid request body", err))
		return false
	}
	return true
}

// ParamID parses a uuid path parameter and answers 400 when it is malformed.
func ParamID(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		httputil.RespondWithError(c, apperrors.NewBadRequest("invalid "+name, err))
		return uuid.Nil, false
	}
	return id, true
}

// QueryDate parses an optional YYYY-MM-DD query parameter.
func QueryDate(c *gin.Context, name string) (time.Time, bool) {
	raw := c.Query(name)
	if raw == "" {
		return time.Time{}, true
	}
	t, err := time.Parse(DateLayout, raw)
	if err != nil {
		httputil.RespondWithError(c, apperrors.NewBadRequest(name+" must be YYYY-MM-DD", err))
		return time.Time{}, false
	}
	return t, true
}

// QueryID parses an optional uuid query parameter.
func QueryID(c *gin.Context, name string) (*uuid.UUID, bool) {
	raw := c.Query(name)
	if raw == "" {
		return nil, true
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		httputil.RespondWithError(c, apperrors.NewBadRequest("invalid "+name, err))
		return nil, false
	}
	return &id, true
}
