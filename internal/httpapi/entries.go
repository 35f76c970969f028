package httpapi

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/tinoosan/tesouraria/internal/ledger"
)

var entryMessages = failMessages{NotFound: "Lançamento não encontrado."}

// GET /api/lancamentos
func (s *Server) listEntries(w http.ResponseWriter, r *http.Request) {
	list, err := s.entries.List(r.Context())
	if err != nil {
		s.fail(w, r, err, failMessages{Internal: "Erro interno do servidor ao buscar lançamentos."})
		return
	}
	out := make([]entryResponse, 0, len(list))
	for _, e := range list {
		out = append(out, toEntryResponse(e))
	}
	toJSON(w, http.StatusOK, out)
}

// POST /api/lancamentos
func (s *Server) postEntry(w http.ResponseWriter, r *http.Request) {
	e := r.Context().Value(ctxKeyEntry).(ledger.Entry)
	created, err := s.entries.Create(r.Context(), e)
	if err != nil {
		m := entryMessages
		m.Internal = "Erro interno do servidor ao adicionar lançamento."
		s.fail(w, r, err, m)
		return
	}
	toJSON(w, http.StatusCreated, createEntryResponse{Message: "Lançamento adicionado com sucesso!", ID: created.ID})
}

// GET /api/lancamentos/{id}
func (s *Server) getEntry(w http.ResponseWriter, r *http.Request) {
	id := r.Context().Value(ctxKeyID).(uuid.UUID)
	e, err := s.entries.Get(r.Context(), id)
	if err != nil {
		m := entryMessages
		m.Internal = "Erro interno do servidor ao buscar lançamento."
		s.fail(w, r, err, m)
		return
	}
	toJSON(w, http.StatusOK, toEntryResponse(e))
}

// PUT /api/lancamentos/{id}
func (s *Server) putEntry(w http.ResponseWriter, r *http.Request) {
	e := r.Context().Value(ctxKeyEntry).(ledger.Entry)
	e.ID = r.Context().Value(ctxKeyID).(uuid.UUID)
	if _, err := s.entries.Update(r.Context(), e); err != nil {
		m := entryMessages
		m.Internal = "Erro interno do servidor ao atualizar lançamento."
		s.fail(w, r, err, m)
		return
	}
	toJSON(w, http.StatusOK, messageResponse{Message: "Lançamento atualizado com sucesso!"})
}

// DELETE /api/lancamentos/{id}
func (s *Server) deleteEntry(w http.ResponseWriter, r *http.Request) {
	id := r.Context().Value(ctxKeyID).(uuid.UUID)
	if err := s.entries.Delete(r.Context(), id); err != nil {
		m := entryMessages
		m.Internal = "Erro interno do servidor ao excluir lançamento."
		s.fail(w, r, err, m)
		return
	}
	toJSON(w, http.StatusOK, messageResponse{Message: "Lançamento excluído com sucesso!"})
}
