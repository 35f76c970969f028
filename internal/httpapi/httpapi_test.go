package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/tinoosan/tesouraria/internal/dictionary"
	"github.com/tinoosan/tesouraria/internal/ledger"
	"github.com/tinoosan/tesouraria/internal/service/auth"
	"github.com/tinoosan/tesouraria/internal/service/contributor"
	"github.com/tinoosan/tesouraria/internal/service/entry"
	"github.com/tinoosan/tesouraria/internal/service/report"
	"github.com/tinoosan/tesouraria/internal/storage/memory"
)

const (
	testUser     = "tesoureiro"
	testPassword = "s3nha-forte"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

type errResp struct {
	Message string `json:"message"`
	Code    string `json:"code"`
	Field   string `json:"field"`
}

func setup(t *testing.T, protectAll bool) (*memory.Store, http.Handler) {
	t.Helper()
	store := memory.New()
	authSvc := auth.New(store, store, []byte("test-secret"))
	hash, err := authSvc.HashPassword(testPassword)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	store.SeedUser(ledger.User{ID: uuid.New(), Username: testUser, PasswordHash: hash, Role: auth.DefaultRole})
	logger := testLogger()
	srv := New(Services{
		Contributors: contributor.New(store, store),
		Entries:      entry.New(store, store),
		Reports:      report.New(store, store, dictionary.DefaultReportCategories, logger),
		Auth:         authSvc,
		Categories:   dictionary.New(nil),
		Ready:        store,
	}, Options{ProtectAll: protectAll}, logger)
	return store, srv.Handler()
}

func do(t *testing.T, h http.Handler, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		rd = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, rd)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rr.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %q: %v", rr.Body.String(), err)
	}
	return v
}

func login(t *testing.T, h http.Handler) string {
	t.Helper()
	rr := do(t, h, http.MethodPost, "/api/auth/login", "", map[string]string{"nome_usuario": testUser, "senha": testPassword})
	if rr.Code != http.StatusOK {
		t.Fatalf("login: %d %s", rr.Code, rr.Body.String())
	}
	return decode[loginResponse](t, rr).Token
}

func TestLogin(t *testing.T) {
	_, h := setup(t, true)

	rr := do(t, h, http.MethodPost, "/api/auth/login", "", map[string]string{"nome_usuario": testUser, "senha": "errada"})
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("wrong password: want 401, got %d", rr.Code)
	}
	if got := decode[errResp](t, rr).Message; got != "Credenciais inválidas." {
		t.Fatalf("wrong password message: %q", got)
	}

	rr = do(t, h, http.MethodPost, "/api/auth/login", "", map[string]string{"nome_usuario": "ninguem", "senha": testPassword})
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("unknown user: want 401, got %d", rr.Code)
	}

	rr = do(t, h, http.MethodPost, "/api/auth/login", "", map[string]string{"nome_usuario": testUser})
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("missing password: want 400, got %d", rr.Code)
	}

	rr = do(t, h, http.MethodPost, "/api/auth/login", "", map[string]string{"nome_usuario": testUser, "senha": testPassword})
	if rr.Code != http.StatusOK {
		t.Fatalf("login: want 200, got %d %s", rr.Code, rr.Body.String())
	}
	resp := decode[loginResponse](t, rr)
	if resp.Token == "" || resp.User.Username != testUser || resp.User.Role != auth.DefaultRole {
		t.Fatalf("unexpected login response: %+v", resp)
	}

	rr = do(t, h, http.MethodGet, "/api/relatorios/caixa?mes=3&ano=2024", resp.Token, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("report with token: want 200, got %d %s", rr.Code, rr.Body.String())
	}
}

func TestReportGate(t *testing.T) {
	// Reports stay gated even when the rest of the API is open.
	_, h := setup(t, false)

	rr := do(t, h, http.MethodGet, "/api/relatorios/caixa?mes=3&ano=2024", "", nil)
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("missing token: want 401, got %d", rr.Code)
	}
	if got := decode[errResp](t, rr).Message; got != "Token de autenticação ausente." {
		t.Fatalf("missing token message: %q", got)
	}

	rr = do(t, h, http.MethodGet, "/api/relatorios/caixa?mes=3&ano=2024", "nao.e.jwt", nil)
	if rr.Code != http.StatusForbidden {
		t.Fatalf("bad token: want 403, got %d", rr.Code)
	}

	rr = do(t, h, http.MethodGet, "/api/dizimistas", "", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("open contributors: want 200, got %d", rr.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/relatorios/caixa?mes=3&ano=2024", nil)
	req.Header.Set("Authorization", "bearer "+login(t, h))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("lowercase scheme: want 200, got %d", rec.Code)
	}
}

func TestProtectAll(t *testing.T) {
	_, h := setup(t, true)
	for _, path := range []string{"/api/dizimistas", "/api/enderecos", "/api/lancamentos", "/api/categorias"} {
		if rr := do(t, h, http.MethodGet, path, "", nil); rr.Code != http.StatusUnauthorized {
			t.Fatalf("%s without token: want 401, got %d", path, rr.Code)
		}
	}
	tok := login(t, h)
	if rr := do(t, h, http.MethodGet, "/api/dizimistas", tok, nil); rr.Code != http.StatusOK {
		t.Fatalf("with token: want 200, got %d", rr.Code)
	}
}

func TestReportQuery(t *testing.T) {
	_, h := setup(t, true)
	tok := login(t, h)

	for _, q := range []string{"", "?mes=3", "?ano=2024"} {
		rr := do(t, h, http.MethodGet, "/api/relatorios/caixa"+q, tok, nil)
		if rr.Code != http.StatusBadRequest {
			t.Fatalf("%q: want 400, got %d", q, rr.Code)
		}
		if got := decode[errResp](t, rr).Message; got != "Parâmetros de mês e ano são obrigatórios." {
			t.Fatalf("%q: message %q", q, got)
		}
	}
	for _, q := range []string{"?mes=13&ano=2024", "?mes=abc&ano=2024", "?mes=0&ano=2024"} {
		if rr := do(t, h, http.MethodGet, "/api/relatorios/caixa"+q, tok, nil); rr.Code != http.StatusBadRequest {
			t.Fatalf("%q: want 400, got %d", q, rr.Code)
		}
	}
}

func TestContributorRoundTrip(t *testing.T) {
	_, h := setup(t, true)
	tok := login(t, h)

	body := map[string]any{
		"nome_completo": "Maria da Silva",
		"telefone":      "11999990000",
		"bairro":        "Centro",
		"cep":           12345678,
	}
	rr := do(t, h, http.MethodPost, "/api/dizimistas", tok, body)
	if rr.Code != http.StatusCreated {
		t.Fatalf("create: want 201, got %d %s", rr.Code, rr.Body.String())
	}
	created := decode[createContributorResponse](t, rr)
	if created.Message != "Dizimista e Endereço adicionados com sucesso!" || created.ID == uuid.Nil {
		t.Fatalf("unexpected create response: %+v", created)
	}

	rr = do(t, h, http.MethodGet, "/api/dizimistas/"+created.ID.String(), tok, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("get: want 200, got %d", rr.Code)
	}
	got := decode[map[string]any](t, rr)
	want := map[string]any{
		"id_dizimista":    created.ID.String(),
		"nome_completo":   "Maria da Silva",
		"cpf":             "",
		"data_nascimento": "",
		"telefone":        "11999990000",
		"rua":             "",
		"bairro":          "Centro",
		"numero_casa":     "",
		"cep":             "12345678",
	}
	for k, v := range want {
		if got[k] != v {
			t.Fatalf("field %s: want %q, got %v", k, v, got[k])
		}
	}

	rr = do(t, h, http.MethodGet, "/api/dizimistas", tok, nil)
	if list := decode[[]contributorResponse](t, rr); len(list) != 1 {
		t.Fatalf("list: want 1, got %d", len(list))
	}

	rr = do(t, h, http.MethodDelete, "/api/dizimistas/"+created.ID.String(), tok, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("delete: want 200, got %d", rr.Code)
	}
	rr = do(t, h, http.MethodGet, "/api/dizimistas/"+created.ID.String(), tok, nil)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("get after delete: want 404, got %d", rr.Code)
	}
	if got := decode[errResp](t, rr).Message; got != "Dizimista não encontrado." {
		t.Fatalf("404 message: %q", got)
	}
	if rr := do(t, h, http.MethodDelete, "/api/dizimistas/"+created.ID.String(), tok, nil); rr.Code != http.StatusNotFound {
		t.Fatalf("delete again: want 404, got %d", rr.Code)
	}
	if rr := do(t, h, http.MethodGet, "/api/dizimistas/not-a-uuid", tok, nil); rr.Code != http.StatusBadRequest {
		t.Fatalf("bad id: want 400, got %d", rr.Code)
	}
}

func TestContributorValidationAndConflict(t *testing.T) {
	_, h := setup(t, true)
	tok := login(t, h)

	rr := do(t, h, http.MethodPost, "/api/dizimistas", tok, map[string]any{"telefone": "1", "bairro": "b", "cep": "c"})
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("missing name: want 400, got %d", rr.Code)
	}
	if f := decode[errResp](t, rr).Field; f != "nome_completo" {
		t.Fatalf("field: %q", f)
	}

	rr = do(t, h, http.MethodPost, "/api/dizimistas", tok, map[string]any{"nome_completo": "x", "unknown": 1})
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("unknown field: want 400, got %d", rr.Code)
	}

	body := map[string]any{"nome_completo": "João", "cpf": "123.456.789-00", "telefone": "1", "bairro": "b", "cep": "c"}
	if rr := do(t, h, http.MethodPost, "/api/dizimistas", tok, body); rr.Code != http.StatusCreated {
		t.Fatalf("first: want 201, got %d", rr.Code)
	}
	body["cpf"] = "12345678900"
	rr = do(t, h, http.MethodPost, "/api/dizimistas", tok, body)
	if rr.Code != http.StatusConflict {
		t.Fatalf("duplicate cpf: want 409, got %d", rr.Code)
	}
	rr = do(t, h, http.MethodGet, "/api/dizimistas", tok, nil)
	if list := decode[[]contributorResponse](t, rr); len(list) != 1 {
		t.Fatalf("conflict must not write: got %d contributors", len(list))
	}

	req := httptest.NewRequest(http.MethodPost, "/api/dizimistas", bytes.NewBufferString(`{}`))
	req.Header.Set("Authorization", "Bearer "+tok)
	req.Header.Set("Content-Type", "text/plain")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnsupportedMediaType {
		t.Fatalf("content type: want 415, got %d", rec.Code)
	}
}

func TestAddresses(t *testing.T) {
	store, h := setup(t, true)
	tok := login(t, h)

	rr := do(t, h, http.MethodPost, "/api/dizimistas", tok, map[string]any{
		"nome_completo": "Maria", "telefone": "1", "rua": "Rua A", "bairro": "Centro", "numero_casa": 10, "cep": "01001000",
	})
	if rr.Code != http.StatusCreated {
		t.Fatalf("create contributor: %d %s", rr.Code, rr.Body.String())
	}
	maria := decode[createContributorResponse](t, rr).ID

	rr = do(t, h, http.MethodGet, "/api/enderecos", tok, nil)
	list := decode[[]addressResponse](t, rr)
	if rr.Code != http.StatusOK || len(list) != 1 || list[0].ContributorID != maria || list[0].HouseNumber != "10" {
		t.Fatalf("list: %d %+v", rr.Code, list)
	}

	for _, body := range []map[string]any{
		{"rua": "Rua B", "bairro": "Vila", "cep": "1"},
		{"id_dizimista": "nao-e-uuid", "rua": "Rua B", "bairro": "Vila", "cep": "1"},
		{"id_dizimista": maria.String(), "bairro": "Vila", "cep": "1"},
	} {
		rr = do(t, h, http.MethodPost, "/api/enderecos", tok, body)
		if rr.Code != http.StatusBadRequest || decode[errResp](t, rr).Message != "ID Dizimista, Rua, Bairro e CEP são obrigatórios." {
			t.Fatalf("%v: want 400 with required message, got %d %s", body, rr.Code, rr.Body.String())
		}
	}

	addr := map[string]any{"rua": "Rua B", "bairro": "Vila", "numero_casa": "7", "cep": "02000000"}
	with := func(id uuid.UUID) map[string]any {
		out := map[string]any{"id_dizimista": id.String()}
		for k, v := range addr {
			out[k] = v
		}
		return out
	}
	rr = do(t, h, http.MethodPost, "/api/enderecos", tok, with(uuid.New()))
	if rr.Code != http.StatusNotFound {
		t.Fatalf("unknown contributor: want 404, got %d", rr.Code)
	}
	rr = do(t, h, http.MethodPost, "/api/enderecos", tok, with(maria))
	if rr.Code != http.StatusConflict || decode[errResp](t, rr).Message != "Dizimista já possui endereço cadastrado." {
		t.Fatalf("existing address: want 409, got %d %s", rr.Code, rr.Body.String())
	}

	// A contributor stored without an address accepts one.
	bare := ledger.Contributor{ID: uuid.New(), FullName: "Sem Endereço", Phone: "2"}
	if _, err := store.CreateContributor(context.Background(), bare); err != nil {
		t.Fatal(err)
	}
	rr = do(t, h, http.MethodPost, "/api/enderecos", tok, with(bare.ID))
	if rr.Code != http.StatusCreated {
		t.Fatalf("add address: want 201, got %d %s", rr.Code, rr.Body.String())
	}
	created := decode[createAddressResponse](t, rr)
	if created.Message != "Endereço adicionado com sucesso!" || created.ID != bare.ID || created.Address.Street != "Rua B" {
		t.Fatalf("unexpected response: %+v", created)
	}
	rr = do(t, h, http.MethodGet, "/api/dizimistas/"+bare.ID.String(), tok, nil)
	if got := decode[contributorResponse](t, rr); got.PostalCode != "02000000" || got.HouseNumber != "7" {
		t.Fatalf("contributor should carry the new address: %+v", got)
	}
	if list := decode[[]addressResponse](t, do(t, h, http.MethodGet, "/api/enderecos", tok, nil)); len(list) != 2 {
		t.Fatalf("list after add: %+v", list)
	}
}

func TestEntriesCRUD(t *testing.T) {
	_, h := setup(t, true)
	tok := login(t, h)

	rr := do(t, h, http.MethodPost, "/api/dizimistas", tok, map[string]any{"nome_completo": "Ana", "telefone": "1", "bairro": "b", "cep": "c"})
	cid := decode[createContributorResponse](t, rr).ID

	body := map[string]any{
		"id_dizimista":         cid.String(),
		"natureza":             "Entrada",
		"tipo_de_contribuicao": "Dizimo",
		"valor":                150,
		"data_contribuicao":    "2024-03-10",
		"observacao":           "março",
	}
	rr = do(t, h, http.MethodPost, "/api/lancamentos", tok, body)
	if rr.Code != http.StatusCreated {
		t.Fatalf("create: want 201, got %d %s", rr.Code, rr.Body.String())
	}
	id := decode[createEntryResponse](t, rr).ID

	rr = do(t, h, http.MethodGet, "/api/lancamentos/"+id.String(), tok, nil)
	got := decode[entryResponse](t, rr)
	if got.Amount != "150.00" || got.Date != "2024-03-10" || got.ContributorID == nil || *got.ContributorID != cid {
		t.Fatalf("unexpected entry: %+v", got)
	}

	body["valor"] = "99,90"
	body["natureza"] = "Saida"
	body["tipo_de_contribuicao"] = "Energia"
	body["id_dizimista"] = nil
	rr = do(t, h, http.MethodPut, "/api/lancamentos/"+id.String(), tok, body)
	if rr.Code != http.StatusOK {
		t.Fatalf("update: want 200, got %d %s", rr.Code, rr.Body.String())
	}
	rr = do(t, h, http.MethodGet, "/api/lancamentos", tok, nil)
	list := decode[[]entryResponse](t, rr)
	if len(list) != 1 || list[0].Amount != "99.90" || list[0].Direction != ledger.DirectionOutgoing || list[0].ContributorID != nil {
		t.Fatalf("unexpected list after update: %+v", list)
	}

	if rr := do(t, h, http.MethodPut, "/api/lancamentos/"+uuid.NewString(), tok, body); rr.Code != http.StatusNotFound {
		t.Fatalf("update unknown: want 404, got %d", rr.Code)
	}

	bad := map[string]any{"natureza": "Talvez", "tipo_de_contribuicao": "x", "valor": 1, "data_contribuicao": "2024-03-10"}
	if rr := do(t, h, http.MethodPost, "/api/lancamentos", tok, bad); rr.Code != http.StatusBadRequest {
		t.Fatalf("bad natureza: want 400, got %d", rr.Code)
	}
	bad["natureza"] = "Entrada"
	bad["valor"] = -5
	if rr := do(t, h, http.MethodPost, "/api/lancamentos", tok, bad); rr.Code != http.StatusBadRequest {
		t.Fatalf("negative valor: want 400, got %d", rr.Code)
	}
	bad["valor"] = 5
	bad["id_dizimista"] = uuid.NewString()
	rr = do(t, h, http.MethodPost, "/api/lancamentos", tok, bad)
	if rr.Code != http.StatusBadRequest || decode[errResp](t, rr).Field != "id_dizimista" {
		t.Fatalf("unknown contributor: want 400 on id_dizimista, got %d %s", rr.Code, rr.Body.String())
	}

	if rr := do(t, h, http.MethodDelete, "/api/lancamentos/"+id.String(), tok, nil); rr.Code != http.StatusOK {
		t.Fatalf("delete: want 200, got %d", rr.Code)
	}
	rr = do(t, h, http.MethodDelete, "/api/lancamentos/"+id.String(), tok, nil)
	if rr.Code != http.StatusNotFound || decode[errResp](t, rr).Message != "Lançamento não encontrado." {
		t.Fatalf("delete again: want 404, got %d", rr.Code)
	}
}

func TestCashReport(t *testing.T) {
	store, h := setup(t, true)
	tok := login(t, h)
	store.SeedSnapshot(ledger.BalanceSnapshot{
		ID:         uuid.New(),
		Period:     ledger.Period{Year: 2023, Month: 12},
		Closing:    ledger.AmountFromMinor(100000),
		RecordedAt: time.Now(),
	})

	post := func(dir, cat string, valor any, date string) {
		t.Helper()
		rr := do(t, h, http.MethodPost, "/api/lancamentos", tok, map[string]any{
			"natureza": dir, "tipo_de_contribuicao": cat, "valor": valor, "data_contribuicao": date,
		})
		if rr.Code != http.StatusCreated {
			t.Fatalf("seed entry: %d %s", rr.Code, rr.Body.String())
		}
	}
	post("Entrada", "Dizimo", "300.00", "2024-01-05")
	post("Entrada", "Oferta EBD", 50.5, "2024-01-14")
	post("Entrada", "Outras Entradas", 20, "2024-01-20")
	post("Saida", "Energia", "120", "2024-01-25")
	post("Entrada", "Dizimo", 999, "2024-02-01")

	rr := do(t, h, http.MethodGet, "/api/relatorios/caixa?mes=1&ano=2024", tok, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("report: %d %s", rr.Code, rr.Body.String())
	}
	got := decode[cashReportResponse](t, rr)
	want := cashReportResponse{
		Period:     "1/2024",
		Opening:    "1000.00",
		Incoming:   "370.50",
		Outgoing:   "120.00",
		Closing:    "1250.50",
		GrandTotal: "1370.50",
	}
	if got.Period != want.Period || got.Opening != want.Opening || got.Incoming != want.Incoming ||
		got.Outgoing != want.Outgoing || got.Closing != want.Closing || got.GrandTotal != want.GrandTotal {
		t.Fatalf("report mismatch:\n got %+v\nwant %+v", got, want)
	}
	if got.OfferingsByGroup["Dizimo"] != "300.00" || got.OfferingsByGroup["Oferta EBD"] != "50.50" {
		t.Fatalf("categories: %+v", got.OfferingsByGroup)
	}
	if _, ok := got.OfferingsByGroup["Outras Entradas"]; ok {
		t.Fatalf("unlisted category must not appear: %+v", got.OfferingsByGroup)
	}
}

func TestCategories(t *testing.T) {
	_, h := setup(t, false)
	rr := do(t, h, http.MethodGet, "/api/categorias?natureza=Saida", "", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("want 200, got %d", rr.Code)
	}
	var out struct {
		Items []struct {
			Direction  string                   `json:"natureza"`
			Categories []dictionary.CategoryDef `json:"categorias"`
		} `json:"items"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &out); err != nil {
		t.Fatal(err)
	}
	if len(out.Items) != 1 || out.Items[0].Direction != "Saida" || len(out.Items[0].Categories) == 0 {
		t.Fatalf("unexpected: %+v", out)
	}
	if rr := do(t, h, http.MethodGet, "/api/categorias?natureza=Outro", "", nil); rr.Code != http.StatusBadRequest {
		t.Fatalf("bad natureza: want 400, got %d", rr.Code)
	}
}

func TestHealthAndReady(t *testing.T) {
	_, h := setup(t, true)
	if rr := do(t, h, http.MethodGet, "/healthz", "", nil); rr.Code != http.StatusOK {
		t.Fatalf("healthz: %d", rr.Code)
	}
	rr := do(t, h, http.MethodGet, "/readyz", "", nil)
	if rr.Code != http.StatusOK || decode[readyResponse](t, rr).Status != "ok" {
		t.Fatalf("readyz: %d %s", rr.Code, rr.Body.String())
	}
	if rr := do(t, h, http.MethodGet, "/metrics", "", nil); rr.Code != http.StatusOK {
		t.Fatalf("metrics: %d", rr.Code)
	}
}

func TestPanicAnswersInternalError(t *testing.T) {
	var logs bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&logs, &slog.HandlerOptions{Level: slog.LevelDebug}))
	srv := New(Services{Categories: dictionary.New(nil)}, Options{}, logger)
	srv.rt.Get("/boom", func(http.ResponseWriter, *http.Request) { panic("kaboom") })

	rr := do(t, srv.Handler(), http.MethodGet, "/boom", "", nil)
	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("want 500, got %d", rr.Code)
	}
	if ct := rr.Header().Get("Content-Type"); !strings.HasPrefix(ct, "application/json") {
		t.Fatalf("want json body, got %q", ct)
	}
	if got := decode[errResp](t, rr); got.Message != "Erro interno do servidor." || got.Code != "internal" {
		t.Fatalf("unexpected body: %+v", got)
	}
	if !strings.Contains(logs.String(), "panic: kaboom") {
		t.Fatalf("panic not logged: %s", logs.String())
	}

	var line struct {
		Level  string `json:"level"`
		Msg    string `json:"msg"`
		Status int    `json:"status"`
	}
	found := false
	for _, raw := range bytes.Split(bytes.TrimSpace(logs.Bytes()), []byte("\n")) {
		if err := json.Unmarshal(raw, &line); err == nil && line.Msg == "http request" {
			found = line.Level == "ERROR" && line.Status == http.StatusInternalServerError
		}
	}
	if !found {
		t.Fatalf("request line should be logged at ERROR with status 500: %s", logs.String())
	}
}

func TestRequestLogLevelFollowsStatus(t *testing.T) {
	var logs bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&logs, &slog.HandlerOptions{Level: slog.LevelInfo}))
	srv := New(Services{Categories: dictionary.New(nil)}, Options{}, logger)

	do(t, srv.Handler(), http.MethodGet, "/healthz", "", nil)
	if logs.Len() != 0 {
		t.Fatalf("health checks should log below INFO: %s", logs.String())
	}
	do(t, srv.Handler(), http.MethodGet, "/nao-existe", "", nil)
	if !strings.Contains(logs.String(), `"level":"WARN"`) || !strings.Contains(logs.String(), `"status":404`) {
		t.Fatalf("404 should log at WARN: %s", logs.String())
	}
}
