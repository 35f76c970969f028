package httpapi

import (
	"net/http"

	"github.com/tinoosan/tesouraria/internal/ledger"
)

// GET /api/enderecos
func (s *Server) listAddresses(w http.ResponseWriter, r *http.Request) {
	list, err := s.contributors.Addresses(r.Context())
	if err != nil {
		s.fail(w, r, err, failMessages{Internal: "Erro interno do servidor ao buscar endereços."})
		return
	}
	out := make([]addressResponse, 0, len(list))
	for _, a := range list {
		out = append(out, toAddressResponse(a))
	}
	toJSON(w, http.StatusOK, out)
}

// POST /api/enderecos
func (s *Server) postAddress(w http.ResponseWriter, r *http.Request) {
	a := r.Context().Value(ctxKeyAddress).(ledger.ContributorAddress)
	saved, err := s.contributors.AddAddress(r.Context(), a)
	if err != nil {
		s.fail(w, r, err, failMessages{
			NotFound: "Dizimista não encontrado.",
			Conflict: "Dizimista já possui endereço cadastrado.",
			Internal: "Erro interno do servidor ao adicionar endereço.",
		})
		return
	}
	toJSON(w, http.StatusCreated, createAddressResponse{
		Message: "Endereço adicionado com sucesso!",
		ID:      saved.ContributorID,
		Address: toAddressResponse(saved),
	})
}
