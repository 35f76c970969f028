package httpapi

import (
	"errors"
	"net/http"

	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/tinoosan/tesouraria/internal/errs"
)

// errorResponse is the standard error payload for the API.
type errorResponse struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
	Field   string `json:"field,omitempty"`
}

const (
	msgInvalidCredentials = "Credenciais inválidas."
	msgMissingToken       = "Token de autenticação ausente."
	msgInvalidToken       = "Token de autenticação inválido ou expirado."
	msgReportParams       = "Parâmetros de mês e ano são obrigatórios."
	msgAddressRequired    = "ID Dizimista, Rua, Bairro e CEP são obrigatórios."
)

func writeErr(w http.ResponseWriter, status int, msg, code string) {
	toJSON(w, status, errorResponse{Message: msg, Code: code})
}

func badRequest(w http.ResponseWriter, msg string) {
	writeErr(w, http.StatusBadRequest, msg, "bad_request")
}
func notFound(w http.ResponseWriter, msg string) { writeErr(w, http.StatusNotFound, msg, "not_found") }
func conflict(w http.ResponseWriter, msg string) { writeErr(w, http.StatusConflict, msg, "conflict") }

// failMessages holds the per-route wording for mapped errors.
type failMessages struct {
	NotFound string
	Conflict string
	Internal string
}

// fail maps a service error onto a status code. Unmatched errors are logged and answered 500.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error, m failMessages) {
	var fe *errs.Field
	switch {
	case errors.As(err, &fe):
		toJSON(w, http.StatusBadRequest, errorResponse{Message: fe.Error(), Code: "validation_error", Field: fe.Name})
	case errors.Is(err, errs.ErrInvalidPeriod):
		writeErr(w, http.StatusBadRequest, "Mês ou ano inválido.", "invalid_period")
	case errors.Is(err, errs.ErrInvalid):
		badRequest(w, "Requisição inválida.")
	case errors.Is(err, errs.ErrNotFound):
		notFound(w, orDefault(m.NotFound, "Registro não encontrado."))
	case errors.Is(err, errs.ErrConflict):
		conflict(w, orDefault(m.Conflict, "Registro duplicado."))
	case errors.Is(err, errs.ErrInvalidCredentials):
		writeErr(w, http.StatusUnauthorized, msgInvalidCredentials, "invalid_credentials")
	case errors.Is(err, errs.ErrMissingToken):
		writeErr(w, http.StatusUnauthorized, msgMissingToken, "missing_token")
	case errors.Is(err, errs.ErrInvalidToken):
		writeErr(w, http.StatusForbidden, msgInvalidToken, "invalid_token")
	default:
		s.log.Error("request failed", "req_id", chimw.GetReqID(r.Context()), "method", r.Method, "path", r.URL.Path, "err", err)
		writeErr(w, http.StatusInternalServerError, orDefault(m.Internal, "Erro interno do servidor."), "internal")
	}
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
