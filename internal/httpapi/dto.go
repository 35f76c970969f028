package httpapi

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/tinoosan/tesouraria/internal/errs"
	"github.com/tinoosan/tesouraria/internal/ledger"
	"github.com/tinoosan/tesouraria/internal/service/report"
)

// flexString accepts a JSON string, number or null. Forms send CEP, CPF and
// house numbers either way.
type flexString string

func (f *flexString) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	switch {
	case bytes.Equal(b, []byte("null")):
		*f = ""
	case len(b) > 0 && b[0] == '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = flexString(s)
	default:
		var n json.Number
		if err := json.Unmarshal(b, &n); err != nil {
			return fmt.Errorf("expected string or number, got %s", b)
		}
		*f = flexString(n.String())
	}
	return nil
}

func (f flexString) String() string { return strings.TrimSpace(string(f)) }

// Contributors

type postContributorRequest struct {
	FullName     string     `json:"nome_completo"`
	NationalID   flexString `json:"cpf"`
	BirthDate    string     `json:"data_nascimento"`
	Phone        flexString `json:"telefone"`
	Street       string     `json:"rua"`
	Neighborhood string     `json:"bairro"`
	HouseNumber  flexString `json:"numero_casa"`
	PostalCode   flexString `json:"cep"`
}

func (req postContributorRequest) toContributor() (ledger.Contributor, error) {
	c := ledger.Contributor{
		FullName:   req.FullName,
		NationalID: req.NationalID.String(),
		Phone:      req.Phone.String(),
		Address: ledger.Address{
			Street:       req.Street,
			Neighborhood: req.Neighborhood,
			HouseNumber:  req.HouseNumber.String(),
			PostalCode:   req.PostalCode.String(),
		},
	}
	if bd := strings.TrimSpace(req.BirthDate); bd != "" {
		d, err := ledger.ParseDate(bd)
		if err != nil {
			return ledger.Contributor{}, errs.Invalid("data_nascimento", "use o formato AAAA-MM-DD")
		}
		c.BirthDate = &d
	}
	return c, nil
}

type contributorResponse struct {
	ID           uuid.UUID `json:"id_dizimista"`
	FullName     string    `json:"nome_completo"`
	NationalID   string    `json:"cpf"`
	BirthDate    string    `json:"data_nascimento"`
	Phone        string    `json:"telefone"`
	Street       string    `json:"rua"`
	Neighborhood string    `json:"bairro"`
	HouseNumber  string    `json:"numero_casa"`
	PostalCode   string    `json:"cep"`
}

func toContributorResponse(c ledger.Contributor) contributorResponse {
	resp := contributorResponse{
		ID:           c.ID,
		FullName:     c.FullName,
		NationalID:   c.NationalID,
		Phone:        c.Phone,
		Street:       c.Address.Street,
		Neighborhood: c.Address.Neighborhood,
		HouseNumber:  c.Address.HouseNumber,
		PostalCode:   c.Address.PostalCode,
	}
	if c.BirthDate != nil {
		resp.BirthDate = c.BirthDate.Format(ledger.DateLayout)
	}
	return resp
}

type createContributorResponse struct {
	Message     string              `json:"message"`
	ID          uuid.UUID           `json:"id_dizimista"`
	Contributor contributorResponse `json:"dizimista"`
}

// Addresses

type addressRequest struct {
	ContributorID flexString `json:"id_dizimista"`
	Street        string     `json:"rua"`
	Neighborhood  string     `json:"bairro"`
	HouseNumber   flexString `json:"numero_casa"`
	PostalCode    flexString `json:"cep"`
}

// toAddress leaves ContributorID nil when the id is missing or malformed.
func (req addressRequest) toAddress() ledger.ContributorAddress {
	id, _ := uuid.Parse(req.ContributorID.String())
	return ledger.ContributorAddress{
		ContributorID: id,
		Address: ledger.Address{
			Street:       req.Street,
			Neighborhood: req.Neighborhood,
			HouseNumber:  req.HouseNumber.String(),
			PostalCode:   req.PostalCode.String(),
		},
	}
}

type addressResponse struct {
	ContributorID uuid.UUID `json:"id_dizimista"`
	Street        string    `json:"rua"`
	Neighborhood  string    `json:"bairro"`
	HouseNumber   string    `json:"numero_casa"`
	PostalCode    string    `json:"cep"`
}

func toAddressResponse(a ledger.ContributorAddress) addressResponse {
	return addressResponse{
		ContributorID: a.ContributorID,
		Street:        a.Street,
		Neighborhood:  a.Neighborhood,
		HouseNumber:   a.HouseNumber,
		PostalCode:    a.PostalCode,
	}
}

type createAddressResponse struct {
	Message string          `json:"message"`
	ID      uuid.UUID       `json:"id_dizimista"`
	Address addressResponse `json:"endereco"`
}

// Entries

type entryRequest struct {
	ContributorID flexString       `json:"id_dizimista"`
	Direction     ledger.Direction `json:"natureza"`
	Category      string           `json:"tipo_de_contribuicao"`
	Amount        flexString       `json:"valor"`
	Date          string           `json:"data_contribuicao"`
	Note          string           `json:"observacao"`
}

func (req entryRequest) toEntry() (ledger.Entry, error) {
	e := ledger.Entry{
		Direction: req.Direction,
		Category:  req.Category,
		Note:      req.Note,
	}
	if !e.Direction.Valid() {
		return ledger.Entry{}, errs.Invalid("natureza", "deve ser Entrada ou Saida")
	}
	if id := req.ContributorID.String(); id != "" {
		u, err := uuid.Parse(id)
		if err != nil {
			return ledger.Entry{}, errs.Invalid("id_dizimista", "identificador inválido")
		}
		e.ContributorID = &u
	}
	amt, err := ledger.ParseAmount(req.Amount.String())
	if err != nil {
		return ledger.Entry{}, err
	}
	e.Amount = amt
	ds := strings.TrimSpace(req.Date)
	if ds == "" {
		return ledger.Entry{}, errs.Invalid("data_contribuicao", "obrigatória")
	}
	d, err := ledger.ParseDate(ds)
	if err != nil {
		return ledger.Entry{}, errs.Invalid("data_contribuicao", "use o formato AAAA-MM-DD")
	}
	e.Date = d
	return e, nil
}

type entryResponse struct {
	ID            uuid.UUID        `json:"id_lancamento"`
	ContributorID *uuid.UUID       `json:"id_dizimista"`
	Direction     ledger.Direction `json:"natureza"`
	Category      string           `json:"tipo_de_contribuicao"`
	Amount        string           `json:"valor"`
	Date          string           `json:"data_contribuicao"`
	Note          string           `json:"observacao"`
}

func toEntryResponse(e ledger.Entry) entryResponse {
	return entryResponse{
		ID:            e.ID,
		ContributorID: e.ContributorID,
		Direction:     e.Direction,
		Category:      e.Category,
		Amount:        ledger.FormatAmount(e.Amount),
		Date:          e.Date.Format(ledger.DateLayout),
		Note:          e.Note,
	}
}

type createEntryResponse struct {
	Message string    `json:"message"`
	ID      uuid.UUID `json:"id"`
}

type messageResponse struct {
	Message string `json:"message"`
}

// Reports

type reportQuery struct {
	Month int
	Year  int
}

// parseReportQuery reads mes and ano. Missing values yield ok=false; present but
// non-numeric values are passed through as zero so the period check rejects them.
func parseReportQuery(mes, ano string) (reportQuery, bool) {
	mes, ano = strings.TrimSpace(mes), strings.TrimSpace(ano)
	if mes == "" || ano == "" {
		return reportQuery{}, false
	}
	m, _ := strconv.Atoi(mes)
	y, _ := strconv.Atoi(ano)
	return reportQuery{Month: m, Year: y}, true
}

type cashReportResponse struct {
	Period           string            `json:"mes_referente"`
	Opening          string            `json:"saldoInicial"`
	Incoming         string            `json:"totalEntradas"`
	Outgoing         string            `json:"totalSaidas"`
	Closing          string            `json:"saldoAtual"`
	GrandTotal       string            `json:"totalGeral"`
	OfferingsByGroup map[string]string `json:"ofertasPorCategoria"`
}

func toCashReportResponse(rep report.Report) cashReportResponse {
	cats := make(map[string]string, len(rep.Categories))
	for _, ct := range rep.Categories {
		cats[ct.Category] = ledger.FormatAmount(ct.Total)
	}
	return cashReportResponse{
		Period:           rep.Period.String(),
		Opening:          ledger.FormatAmount(rep.Opening),
		Incoming:         ledger.FormatAmount(rep.Incoming),
		Outgoing:         ledger.FormatAmount(rep.Outgoing),
		Closing:          ledger.FormatAmount(rep.Closing),
		GrandTotal:       ledger.FormatAmount(rep.GrandTotal),
		OfferingsByGroup: cats,
	}
}

// Auth

type loginRequest struct {
	Username string `json:"nome_usuario"`
	Password string `json:"senha"`
}

type userResponse struct {
	ID       uuid.UUID `json:"id"`
	Username string    `json:"nome_usuario"`
	Role     string    `json:"role"`
}

type loginResponse struct {
	Message string       `json:"message"`
	Token   string       `json:"token"`
	User    userResponse `json:"user"`
}

// Health

type readyResponse struct {
	Status string    `json:"status"`
	Time   time.Time `json:"time"`
	Error  string    `json:"error,omitempty"`
}
