package importer

import (
	"encoding/json"
	"slices"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Field is a logical column of a holdings file.
type Field int

const (
	FieldInstrument Field = iota
	FieldQuantity
	FieldPrice
	FieldDate
	FieldName
	fieldCount
)

var fieldNames = [fieldCount]string{"instrument", "quantity", "price", "date", "name"}

func (f Field) String() string {
	if f < 0 || f >= fieldCount {
		return "unknown"
	}
	return fieldNames[f]
}

// HeaderRule matches header cells to a Field. Exact keywords are compared
// against the whole normalized header; Contains keywords match substrings.
type HeaderRule struct {
	Field    Field
	Exact    []string
	Contains []string
}

// HeaderRules is evaluated in order; a column claimed by an earlier rule is
// never reused by a later one.
var HeaderRules = []HeaderRule{
	{
		Field: FieldInstrument,
		Exact: []string{
			"ticker", "ativo", "codigo", "codigo de negociacao", "cod negociacao", "produto",
			"papel", "acao", "instrumento", "instrument", "symbol", "simbolo",
		},
		Contains: []string{"ticker", "codigo", "produto", "papel", "ativo", "instrument", "symbol"},
	},
	{
		Field:    FieldQuantity,
		Exact:    []string{"quantidade", "qtd", "qtde", "quant", "quantity", "qty", "shares", "cotas"},
		Contains: []string{"quantidade", "qtd", "qtde", "quant", "qty"},
	},
	{
		Field: FieldPrice,
		Exact: []string{
			"preco", "preco medio", "pm", "preco de compra", "preco unitario", "custo medio",
			"price", "average price", "avg price", "cost",
		},
		Contains: []string{"preco", "price", "custo", "cost"},
	},
	{
		Field:    FieldDate,
		Exact:    []string{"data", "date", "data de compra", "data compra", "data de aquisicao", "data do negocio"},
		Contains: []string{"data", "date"},
	},
	{
		Field:    FieldName,
		Exact:    []string{"nome", "name", "empresa", "razao social", "company", "descricao"},
		Contains: []string{"nome", "empresa", "razao social", "company"},
	},
}

// ColumnMap holds the column index for each Field, -1 when absent.
type ColumnMap [fieldCount]int

func emptyColumnMap() ColumnMap {
	var m ColumnMap
	for i := range m {
		m[i] = -1
	}
	return m
}

// Index returns the column of f.
func (m ColumnMap) Index(f Field) (int, bool) {
	if f < 0 || f >= fieldCount || m[f] < 0 {
		return -1, false
	}
	return m[f], true
}

// HasInstrument reports whether an instrument column was found.
func (m ColumnMap) HasInstrument() bool {
	_, ok := m.Index(FieldInstrument)
	return ok
}

// required is the highest index a row must reach to be readable.
func (m ColumnMap) required() int {
	need := m[FieldInstrument]
	if q := m[FieldQuantity]; q > need {
		need = q
	}
	return need
}

func (m ColumnMap) cell(cells []string, f Field) string {
	i, ok := m.Index(f)
	if !ok || i >= len(cells) {
		return ""
	}
	return strings.TrimSpace(cells[i])
}

// MarshalJSON renders the map as {"instrument": 0, ...}, omitting absent fields.
func (m ColumnMap) MarshalJSON() ([]byte, error) {
	out := make(map[string]int, fieldCount)
	for f := Field(0); f < fieldCount; f++ {
		if i, ok := m.Index(f); ok {
			out[f.String()] = i
		}
	}
	return json.Marshal(out)
}

// NormalizeHeader folds case, strips diacritics and treats '_', '-' and '.'
// as spaces so "Preço_Médio" and "preco medio" compare equal.
func NormalizeHeader(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		folded = s
	}
	folded = strings.ToLower(folded)
	folded = strings.Map(func(r rune) rune {
		switch r {
		case '_', '-', '.', '/':
			return ' '
		}
		return r
	}, folded)
	return strings.Join(strings.Fields(folded), " ")
}

// MatchColumns applies HeaderRules to a header row.
func MatchColumns(header []string) ColumnMap {
	names := make([]string, len(header))
	for i, h := range header {
		names[i] = NormalizeHeader(h)
	}

	cols := emptyColumnMap()
	claimed := make([]bool, len(names))
	for _, rule := range HeaderRules {
		idx := matchRule(rule, names, claimed)
		if idx >= 0 {
			cols[rule.Field] = idx
			claimed[idx] = true
		}
	}
	return cols
}

func matchRule(rule HeaderRule, names []string, claimed []bool) int {
	for i, name := range names {
		if !claimed[i] && slices.Contains(rule.Exact, name) {
			return i
		}
	}
	for i, name := range names {
		if claimed[i] || name == "" {
			continue
		}
		for _, kw := range rule.Contains {
			if strings.Contains(name, kw) {
				return i
			}
		}
	}
	return -1
}

// headerScanLimit bounds how many leading rows may precede the header.
const headerScanLimit = 10

// findHeader returns the index of the first row within headerScanLimit that
// yields an instrument column. Single-cell rows never qualify; they mean the
// delimiter guess is wrong.
func findHeader(rows [][]string) (int, ColumnMap, bool) {
	for i, row := range rows {
		if i >= headerScanLimit {
			break
		}
		if len(row) < 2 {
			continue
		}
		cols := MatchColumns(row)
		if cols.HasInstrument() {
			return i, cols, true
		}
	}
	return -1, emptyColumnMap(), false
}
