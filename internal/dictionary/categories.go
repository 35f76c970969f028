package dictionary

import "github.com/tinoosan/tesouraria/internal/ledger"

type CategoryDef struct {
	Code       string `json:"code"`
	Label      string `json:"label"`
	Reportable bool   `json:"reportable"`
}

// DefaultReportCategories is the report breakdown used when configuration does not override it.
var DefaultReportCategories = []string{"Dizimo", "Oferta EBD", "Oferta Culto Evangelistico", "Oferta PBB"}

var curated = map[ledger.Direction][]CategoryDef{
	ledger.DirectionIncoming: {
		{Code: "Dizimo", Label: "Dízimo"},
		{Code: "Oferta EBD", Label: "Oferta EBD"},
		{Code: "Oferta Culto Evangelistico", Label: "Oferta Culto Evangelístico"},
		{Code: "Oferta PBB", Label: "Oferta PBB"},
		{Code: "Outras Entradas", Label: "Outras Entradas"},
	},
	ledger.DirectionOutgoing: {
		{Code: "Despesas Gerais", Label: "Despesas Gerais"},
		{Code: "Agua", Label: "Água"},
		{Code: "Energia", Label: "Energia"},
		{Code: "Aluguel", Label: "Aluguel"},
		{Code: "Manutencao", Label: "Manutenção"},
		{Code: "Missoes", Label: "Missões"},
		{Code: "Outras Saidas", Label: "Outras Saídas"},
	},
}

// Dictionary lists category tags per direction, flagging the ones that appear in the report breakdown.
type Dictionary struct {
	reportable map[string]struct{}
	report     []string
}

// New builds a dictionary whose report breakdown is the given list (defaults when empty).
// Report categories missing from the curated incoming list are appended to it.
func New(reportCategories []string) *Dictionary {
	if len(reportCategories) == 0 {
		reportCategories = DefaultReportCategories
	}
	d := &Dictionary{reportable: make(map[string]struct{}, len(reportCategories))}
	for _, c := range reportCategories {
		if _, dup := d.reportable[c]; dup || c == "" {
			continue
		}
		d.reportable[c] = struct{}{}
		d.report = append(d.report, c)
	}
	return d
}

// ReportCategories returns the configured breakdown in configuration order.
func (d *Dictionary) ReportCategories() []string {
	out := make([]string, len(d.report))
	copy(out, d.report)
	return out
}

// IsReportable reports whether the tag appears in the report breakdown.
func (d *Dictionary) IsReportable(tag string) bool {
	_, ok := d.reportable[tag]
	return ok
}

// CategoriesFor returns the categories of one direction, or of both when dir is nil.
func (d *Dictionary) CategoriesFor(dir *ledger.Direction) []CategoryDef {
	dirs := []ledger.Direction{ledger.DirectionIncoming, ledger.DirectionOutgoing}
	if dir != nil {
		dirs = []ledger.Direction{*dir}
	}
	out := make([]CategoryDef, 0)
	for _, dr := range dirs {
		seen := map[string]struct{}{}
		for _, c := range curated[dr] {
			c.Reportable = dr == ledger.DirectionIncoming && d.IsReportable(c.Code)
			seen[c.Code] = struct{}{}
			out = append(out, c)
		}
		if dr != ledger.DirectionIncoming {
			continue
		}
		for _, code := range d.report {
			if _, ok := seen[code]; ok {
				continue
			}
			out = append(out, CategoryDef{Code: code, Label: code, Reportable: true})
		}
	}
	return out
}
