package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/nhatro/rentledger"
	"github.com/nhatro/rentledger/assist"
)

// errorBody is the JSON shape of every error response.
type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

// badRequest marks a body that could not be decoded at all.
type badRequest struct{ err error }

func (e badRequest) Error() string { return e.err.Error() }
func (e badRequest) Unwrap() error { return e.err }

// classify maps an error to its HTTP status and code. Conflicts are checked
// before validation because duplicate names are reported as validation
// errors on the offending field.
func classify(err error) (int, string) {
	var (
		ve  rentledger.ValidationError
		fes validator.ValidationErrors
		br  badRequest
	)
	switch {
	case errors.Is(err, ErrInvalidToken):
		return http.StatusUnauthorized, "invalid_token"
	case errors.Is(err, rentledger.ErrInvalidCredentials):
		return http.StatusUnauthorized, "invalid_credentials"
	case errors.Is(err, rentledger.ErrForbidden):
		return http.StatusForbidden, "forbidden"
	case errors.Is(err, rentledger.ErrAlreadyExists):
		return http.StatusConflict, "already_exists"
	case errors.Is(err, rentledger.ErrRoomOccupied):
		return http.StatusConflict, "room_occupied"
	case errors.Is(err, rentledger.ErrLockNotObtained):
		return http.StatusConflict, "busy"
	case errors.As(err, &ve), errors.As(err, &fes), errors.Is(err, rentledger.ErrInvalidInput):
		return http.StatusUnprocessableEntity, "validation_failed"
	case rentledger.IsNotFound(err):
		return http.StatusNotFound, "not_found"
	case errors.As(err, &br):
		return http.StatusBadRequest, "bad_request"
	case errors.Is(err, assist.ErrUnavailable):
		return http.StatusServiceUnavailable, "assistant_unavailable"
	case errors.Is(err, assist.ErrNotRecognised):
		return http.StatusUnprocessableEntity, "not_recognised"
	case errors.Is(err, assist.ErrBadImage):
		return http.StatusUnprocessableEntity, "bad_image"
	case errors.Is(err, assist.ErrBadResponse):
		return http.StatusBadGateway, "assistant_failed"
	}
	return http.StatusInternalServerError, "internal"
}

// abortWithError writes the error response and stops the handler chain.
// The text of internal errors is not sent to the client.
func abortWithError(c *gin.Context, err error) {
	status, code := classify(err)
	body := errorBody{Code: code, Message: err.Error()}

	var ve rentledger.ValidationError
	var fes validator.ValidationErrors
	switch {
	case errors.As(err, &ve):
		body.Field = ve.Field
	case errors.As(err, &fes) && len(fes) > 0:
		body.Field = fes[0].Field()
		body.Message = fes[0].Field() + " failed on " + fes[0].Tag()
	}

	if status == http.StatusInternalServerError {
		body.Message = http.StatusText(status)
	}
	_ = c.Error(err) //nolint:errcheck // picked up by the request logger
	c.AbortWithStatusJSON(status, gin.H{"error": body})
}

// bindJSON decodes the body into dst and writes the error response on
// failure.
func bindJSON(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		var fes validator.ValidationErrors
		if !errors.As(err, &fes) {
			err = badRequest{err}
		}
		abortWithError(c, err)
		return false
	}
	return true
}

// bindQuery decodes query parameters into dst.
func bindQuery(c *gin.Context, dst any) bool {
	if err := c.ShouldBindQuery(dst); err != nil {
		var fes validator.ValidationErrors
		if !errors.As(err, &fes) {
			err = badRequest{err}
		}
		abortWithError(c, err)
		return false
	}
	return true
}
