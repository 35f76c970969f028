package httpapi

import (
	"context"
	"net/http"
	"strings"

	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/tinoosan/tesouraria/internal/service/auth"
)

// parseBearerToken extracts the token from "Authorization: Bearer <token>".
// The scheme is matched case-insensitively.
func parseBearerToken(r *http.Request) string {
	h := strings.TrimSpace(r.Header.Get("Authorization"))
	scheme, tok, ok := strings.Cut(h, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(tok)
}

// requireAuth rejects requests without a valid bearer token and stores the
// verified claims in the request context.
func (s *Server) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, err := s.auth.Verify(parseBearerToken(r))
		if err != nil {
			s.log.Debug("auth rejected", "req_id", chimw.GetReqID(r.Context()), "path", r.URL.Path, "err", err)
			s.fail(w, r, err, failMessages{})
			return
		}
		ctx := context.WithValue(r.Context(), ctxKeyClaims, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// claimsFrom returns the verified claims, if the route is gated.
func claimsFrom(ctx context.Context) (auth.Claims, bool) {
	c, ok := ctx.Value(ctxKeyClaims).(auth.Claims)
	return c, ok
}

// POST /api/auth/login
func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	req := r.Context().Value(ctxKeyLogin).(loginRequest)
	token, u, err := s.auth.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		s.fail(w, r, err, failMessages{Internal: "Erro interno do servidor ao fazer login."})
		return
	}
	s.log.Info("login", "req_id", chimw.GetReqID(r.Context()), "user", u.Username)
	toJSON(w, http.StatusOK, loginResponse{
		Message: "Login bem-sucedido!",
		Token:   token,
		User:    userResponse{ID: u.ID, Username: u.Username, Role: u.Role},
	})
}
