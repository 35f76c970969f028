package httpapi

import (
	"net/http"

	"github.com/tinoosan/tesouraria/internal/dictionary"
	"github.com/tinoosan/tesouraria/internal/ledger"
)

// GET /api/categorias?natureza=
func (s *Server) getCategories(w http.ResponseWriter, r *http.Request) {
	var dir *ledger.Direction
	if v := r.URL.Query().Get("natureza"); v != "" {
		d := ledger.Direction(v)
		if !d.Valid() {
			badRequest(w, "natureza deve ser Entrada ou Saida.")
			return
		}
		dir = &d
	}
	type group struct {
		Direction  ledger.Direction         `json:"natureza"`
		Categories []dictionary.CategoryDef `json:"categorias"`
	}
	out := struct {
		Items []group `json:"items"`
	}{Items: []group{}}
	for _, d := range []ledger.Direction{ledger.DirectionIncoming, ledger.DirectionOutgoing} {
		if dir != nil && *dir != d {
			continue
		}
		out.Items = append(out.Items, group{Direction: d, Categories: s.categories.CategoriesFor(&d)})
	}
	toJSON(w, http.StatusOK, out)
}
