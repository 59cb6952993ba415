package response

import (
	"bytes"
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/idmap-backend/internal/platform/apierr"
)

const contentTypeJSON = "application/json"

type APIError struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

type ErrorEnvelope struct {
	Error APIError `json:"error"`
}

// Marshal renders v indented by four spaces without HTML escaping and
// without a trailing newline.
func Marshal(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "    ")
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

func JSON(c *gin.Context, status int, payload any) {
	body, err := Marshal(payload)
	if err != nil {
		_ = c.Error(err)
		c.String(http.StatusInternalServerError, "internal server error")
		return
	}
	c.Data(status, contentTypeJSON, body)
}

func RespondError(c *gin.Context, status int, code string, err error) {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	JSON(c, status, ErrorEnvelope{
		Error: APIError{
			Message: msg,
			Code:    code,
		},
	})
}

// RespondAPIError maps err through apierr. Server-side failures never leak
// their message.
func RespondAPIError(c *gin.Context, err error) {
	status := apierr.StatusOf(err)
	code := apierr.CodeInternal
	if ae, ok := apierr.As(err); ok && ae.Code != "" {
		code = ae.Code
	}
	if status >= http.StatusInternalServerError {
		_ = c.Error(err)
		JSON(c, status, ErrorEnvelope{Error: APIError{Message: "internal server error", Code: code}})
		return
	}
	RespondError(c, status, code, err)
}

func RespondOK(c *gin.Context, payload any) {
	JSON(c, http.StatusOK, payload)
}

func RespondCreated(c *gin.Context, payload any) {
	JSON(c, http.StatusCreated, payload)
}
