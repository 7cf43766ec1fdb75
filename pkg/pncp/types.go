package pncp

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// FlexInt decodes JSON values that arrive as either a number or a
// numeric string. The search index is not consistent about this.
type FlexInt int

// UnmarshalJSON implements json.Unmarshaler.
func (f *FlexInt) UnmarshalJSON(data []byte) error {
	data = bytes.Trim(data, `"`)
	if len(data) == 0 || string(data) == "null" {
		*f = 0
		return nil
	}
	n, err := strconv.Atoi(string(data))
	if err != nil {
		*f = 0
		return nil
	}
	*f = FlexInt(n)
	return nil
}

// FlexString decodes JSON values that arrive as either a string or a
// number into a string.
type FlexString string

// UnmarshalJSON implements json.Unmarshaler.
func (f *FlexString) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "null" {
		s = ""
	}
	*f = FlexString(s)
	return nil
}

// SearchPage is one page of the catalog search response.
type SearchPage struct {
	Items []SearchItem `json:"items"`
	Total int          `json:"total"`
}

// SearchItem is one tender (edital) as returned by the search index.
// Organization fields appear under different keys depending on the
// document's indexing vintage.
type SearchItem struct {
	OrgCNPJ       string  `json:"orgao_cnpj"`
	CNPJ          string  `json:"cnpj"`
	OrgName       string  `json:"orgao_nome"`
	CorporateName string  `json:"razaoSocial"`
	Year          FlexInt `json:"ano"`
	Sequence      FlexInt `json:"numero_sequencial"`
	PublishedPNCP string  `json:"data_publicacao_pncp"`
	Description   string  `json:"description"`
	DocumentType  string  `json:"document_type"`
}

// OrganizationID returns the CNPJ under whichever key it was indexed.
func (s SearchItem) OrganizationID() string {
	if s.OrgCNPJ != "" {
		return s.OrgCNPJ
	}
	return s.CNPJ
}

// OrganizationName returns the organization name under whichever key
// it was indexed, or "N/D" when absent.
func (s SearchItem) OrganizationName() string {
	if s.OrgName != "" {
		return s.OrgName
	}
	if s.CorporateName != "" {
		return s.CorporateName
	}
	return "N/D"
}

// Item is one line item of a tender's purchase.
type Item struct {
	ItemNumber      int              `json:"numeroItem"`
	Description     string           `json:"descricao"`
	Quantity        *decimal.Decimal `json:"quantidade"`
	UnitValue       *decimal.Decimal `json:"valorUnitario"`
	EstimatedValue  *decimal.Decimal `json:"valorUnitarioEstimado"`
	HomologatedUnit *decimal.Decimal `json:"valorUnitarioHomologado"`
	Situation       FlexString       `json:"situacaoCompraItem"`
}

// ItemResult is one award result for a line item.
type ItemResult struct {
	HomologatedUnit *decimal.Decimal `json:"valorUnitarioHomologado"`
	SupplierName    string           `json:"nomeRazaoSocialFornecedor"`
}

// Positive reports whether a nullable decimal holds a value > 0.
// Catalog value fields are frequently null or zero-filled.
func Positive(d *decimal.Decimal) bool {
	return d != nil && d.Sign() > 0
}

var _ json.Unmarshaler = (*FlexInt)(nil)
var _ json.Unmarshaler = (*FlexString)(nil)
