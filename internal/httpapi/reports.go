package httpapi

import (
	"net/http"

	chimw "github.com/go-chi/chi/v5/middleware"
)

// GET /api/relatorios/caixa?mes=&ano=
func (s *Server) cashReport(w http.ResponseWriter, r *http.Request) {
	q := r.Context().Value(ctxKeyReportQuery).(reportQuery)
	rep, err := s.reports.ComputeMonthly(r.Context(), q.Month, q.Year)
	if err != nil {
		reportsTotal.WithLabelValues("error").Inc()
		s.fail(w, r, err, failMessages{Internal: "Erro interno do servidor ao gerar relatório de caixa."})
		return
	}
	reportsTotal.WithLabelValues("ok").Inc()
	if c, ok := claimsFrom(r.Context()); ok {
		s.log.Info("cash report", "req_id", chimw.GetReqID(r.Context()), "period", rep.Period.String(), "user", c.Username)
	}
	toJSON(w, http.StatusOK, toCashReportResponse(rep))
}
