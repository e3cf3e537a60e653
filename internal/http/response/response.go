package response

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/neurobridge-psychometrics/internal/platform/apierr"
	"github.com/yungbote/neurobridge-psychometrics/internal/platform/ctxutil"
)

// APIError is the body of every non-2xx response. RequestID echoes the
// X-Request-Id header so clients can quote it.
type APIError struct {
	Message   string `json:"message"`
	Code      string `json:"code,omitempty"`
	RequestID string `json:"requestId,omitempty"`
}

type ErrorEnvelope struct {
	Error APIError `json:"error"`
}

func RespondError(c *gin.Context, status int, code string, err error) {
	body := APIError{Message: "unknown error", Code: code}
	if err != nil {
		body.Message = err.Error()
	}
	if td := ctxutil.GetTraceData(c.Request.Context()); td != nil {
		body.RequestID = td.RequestID
	}
	c.AbortWithStatusJSON(status, ErrorEnvelope{Error: body})
}

// RespondAPIError maps engine error codes onto HTTP statuses; anything
// without a code is a 500 tagged fallbackCode.
func RespondAPIError(c *gin.Context, fallbackCode string, err error) {
	ae := apierr.From(err, fallbackCode)
	if ae == nil {
		RespondError(c, http.StatusInternalServerError, fallbackCode, err)
		return
	}
	RespondError(c, ae.Status, ae.Code, ae.Err)
}

func RespondOK(c *gin.Context, payload any) {
	c.JSON(http.StatusOK, payload)
}

func RespondCreated(c *gin.Context, payload any) {
	c.JSON(http.StatusCreated, payload)
}
