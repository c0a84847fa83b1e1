package handlers

import (
	"errors"
	"net/http"
	"strconv"

	dom "TodoApp/internal/domain"
	"TodoApp/internal/dto"

	"github.com/gin-gonic/gin"
)

// writeError maps a domain failure onto its HTTP status and body.
func writeError(c *gin.Context, err error) {
	kind := dom.KindOf(err)
	body := dto.ErrorResponse{Error: err.Error(), Kind: string(kind)}
	status := http.StatusServiceUnavailable

	switch kind {
	case dom.KindUnauthenticated:
		status = http.StatusUnauthorized
	case dom.KindRateLimited:
		status = http.StatusTooManyRequests
		var rl *dom.RateLimitedError
		if errors.As(err, &rl) {
			body.RetryAfterMs = rl.RetryAfterMs()
			c.Header("Retry-After", strconv.FormatInt(retryAfterSeconds(body.RetryAfterMs), 10))
		}
	case dom.KindValidation:
		status = http.StatusBadRequest
		var ve *dom.ValidationError
		if errors.As(err, &ve) {
			body.Error = ve.Reason
			body.Field = ve.Field
			body.Reason = ve.Reason
		}
	case dom.KindNotFound:
		status = http.StatusNotFound
	case dom.KindForbidden:
		status = http.StatusForbidden
	case dom.KindIllegalTransition:
		status = http.StatusConflict
		var te *dom.TransitionError
		if errors.As(err, &te) {
			body.From = string(te.From)
			body.To = string(te.To)
		}
	default:
		body.Error = dom.ErrStoreUnavailable.Error()
	}
	c.AbortWithStatusJSON(status, body)
}

func retryAfterSeconds(ms int64) int64 {
	s := (ms + 999) / 1000
	if s < 1 {
		s = 1
	}
	return s
}

func badRequest(c *gin.Context, err error) {
	c.AbortWithStatusJSON(http.StatusBadRequest, dto.ErrorResponse{Error: err.Error(), Kind: string(dom.KindValidation)})
}
