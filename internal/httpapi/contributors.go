package httpapi

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/tinoosan/tesouraria/internal/ledger"
)

var contributorMessages = failMessages{
	NotFound: "Dizimista não encontrado.",
	Conflict: "CPF já cadastrado.",
}

// GET /api/dizimistas
func (s *Server) listContributors(w http.ResponseWriter, r *http.Request) {
	list, err := s.contributors.List(r.Context())
	if err != nil {
		s.fail(w, r, err, failMessages{Internal: "Erro interno do servidor ao buscar dizimistas."})
		return
	}
	out := make([]contributorResponse, 0, len(list))
	for _, c := range list {
		out = append(out, toContributorResponse(c))
	}
	toJSON(w, http.StatusOK, out)
}

// POST /api/dizimistas
func (s *Server) postContributor(w http.ResponseWriter, r *http.Request) {
	c := r.Context().Value(ctxKeyContributor).(ledger.Contributor)
	created, err := s.contributors.Create(r.Context(), c)
	if err != nil {
		m := contributorMessages
		m.Internal = "Erro interno do servidor ao adicionar dizimista e endereço."
		s.fail(w, r, err, m)
		return
	}
	toJSON(w, http.StatusCreated, createContributorResponse{
		Message:     "Dizimista e Endereço adicionados com sucesso!",
		ID:          created.ID,
		Contributor: toContributorResponse(created),
	})
}

// GET /api/dizimistas/{id}
func (s *Server) getContributor(w http.ResponseWriter, r *http.Request) {
	id := r.Context().Value(ctxKeyID).(uuid.UUID)
	c, err := s.contributors.Get(r.Context(), id)
	if err != nil {
		m := contributorMessages
		m.Internal = "Erro interno do servidor ao buscar dizimista."
		s.fail(w, r, err, m)
		return
	}
	toJSON(w, http.StatusOK, toContributorResponse(c))
}

// DELETE /api/dizimistas/{id}
func (s *Server) deleteContributor(w http.ResponseWriter, r *http.Request) {
	id := r.Context().Value(ctxKeyID).(uuid.UUID)
	if err := s.contributors.Delete(r.Context(), id); err != nil {
		m := contributorMessages
		m.Internal = "Erro interno do servidor ao excluir dizimista."
		s.fail(w, r, err, m)
		return
	}
	toJSON(w, http.StatusOK, messageResponse{Message: "Dizimista e endereço associado excluídos com sucesso!"})
}
