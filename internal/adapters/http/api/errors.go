package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/render"

	service "github.com/okian/perfboard/internal/app"
	"github.com/okian/perfboard/pkg/logger"
)

// User-facing messages that only the HTTP layer produces.
const (
	msgInternal     = "서버 내부 오류가 발생했습니다."
	msgRateLimited  = "요청이 너무 많습니다. 잠시 후 다시 시도해 주세요."
	msgInvalidQuery = "잘못된 요청 파라미터입니다."
	msgBodyTooLarge = "요청 본문이 너무 큽니다."
)

// errorResponse is the body of every non-2xx JSON response.
type errorResponse struct {
	Error   string   `json:"error"`
	Details []string `json:"details,omitempty"`
}

func writeError(w http.ResponseWriter, r *http.Request, status int, msg string, details ...string) {
	render.Status(r, status)
	render.JSON(w, r, errorResponse{Error: msg, Details: details})
}

// fail maps a service error onto a response.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	var uerr *service.UploadError
	switch {
	case errors.As(err, &uerr) && errors.Is(err, service.ErrInvalidUpload):
		writeError(w, r, http.StatusBadRequest, uerr.Message, uerr.Details...)
	case errors.As(err, &uerr):
		writeError(w, r, http.StatusInternalServerError, uerr.Message)
	case errors.Is(err, service.ErrNotFound):
		writeError(w, r, http.StatusNotFound, service.MsgNotFound)
	case errors.Is(err, service.ErrInvalidPage):
		writeError(w, r, http.StatusNotFound, service.MsgInvalidPage)
	default:
		s.log.Error(r.Context(), "request failed", logger.String("path", r.URL.Path), logger.Error(err))
		writeError(w, r, http.StatusInternalServerError, msgInternal)
	}
}
