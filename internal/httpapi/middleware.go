package httpapi

import (
	"context"
	"net/http"
	"strings"

	chi "github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/tinoosan/tesouraria/internal/ledger"
)

type ctxKey string

const (
	ctxKeyID          ctxKey = "validatedID"
	ctxKeyContributor ctxKey = "validatedContributor"
	ctxKeyEntry       ctxKey = "validatedEntry"
	ctxKeyAddress     ctxKey = "validatedAddress"
	ctxKeyReportQuery ctxKey = "validatedReportQuery"
	ctxKeyLogin       ctxKey = "validatedLogin"
	ctxKeyClaims      ctxKey = "authClaims"
)

// validateID parses the {id} path parameter as a UUID.
func validateID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil || id == uuid.Nil {
			badRequest(w, "Identificador inválido.")
			return
		}
		ctx := context.WithValue(r.Context(), ctxKeyID, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// validatePostContributor decodes the body, normalizes it through the service
// and stores the validated contributor in the request context.
func (s *Server) validatePostContributor() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var req postContributorRequest
			if !decodeJSON(w, r, &req) {
				return
			}
			c, err := req.toContributor()
			if err == nil {
				c, err = s.contributors.Validate(c)
			}
			if err != nil {
				s.fail(w, r, err, failMessages{})
				return
			}
			ctx := context.WithValue(r.Context(), ctxKeyContributor, c)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// validateAddressBody answers every missing or malformed field with the same message.
func (s *Server) validateAddressBody() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var req addressRequest
			if !decodeJSON(w, r, &req) {
				return
			}
			a, err := s.contributors.ValidateAddress(req.toAddress())
			if err != nil {
				badRequest(w, msgAddressRequired)
				return
			}
			ctx := context.WithValue(r.Context(), ctxKeyAddress, a)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// validateEntryBody serves both POST and PUT: the body always carries every mutable field.
func (s *Server) validateEntryBody() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var req entryRequest
			if !decodeJSON(w, r, &req) {
				return
			}
			e, err := req.toEntry()
			if err == nil {
				e, err = s.entries.Validate(e)
			}
			if err != nil {
				s.fail(w, r, err, failMessages{})
				return
			}
			ctx := context.WithValue(r.Context(), ctxKeyEntry, e)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// validateReportQuery requires mes and ano before any storage access.
func (s *Server) validateReportQuery() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			q := r.URL.Query()
			rq, ok := parseReportQuery(q.Get("mes"), q.Get("ano"))
			if !ok {
				reportsTotal.WithLabelValues("invalid").Inc()
				badRequest(w, msgReportParams)
				return
			}
			if _, err := ledger.NewPeriod(rq.Month, rq.Year); err != nil {
				reportsTotal.WithLabelValues("invalid").Inc()
				s.fail(w, r, err, failMessages{})
				return
			}
			ctx := context.WithValue(r.Context(), ctxKeyReportQuery, rq)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func (s *Server) validateLogin() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var req loginRequest
			if !decodeJSON(w, r, &req) {
				return
			}
			req.Username = strings.TrimSpace(req.Username)
			if req.Username == "" || req.Password == "" {
				badRequest(w, "Nome de usuário e senha são obrigatórios.")
				return
			}
			ctx := context.WithValue(r.Context(), ctxKeyLogin, req)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
