package models

import "strings"

// ChangeRequest is the agent reassignment forwarded to a product service and,
// once confirmed, applied to the stored contract. All values stay strings.
type ChangeRequest struct {
	PreviousAgentID string `json:"idAgenteAnterior"`
	NewAgentID      string `json:"idAgenteNuevo"`
	Product         string `json:"producto"`
	ProductPlan     string `json:"planProducto"`
	ContractNumber  string `json:"contrato"`
}

// Contract is the persisted contract whose servicing agent gets reassigned.
type Contract struct {
	ID             int64
	ContractNumber string
	Product        string
	ProductPlan    string
	DocumentNumber string
	DocumentType   string
	Status         string
	CurrentAgentID string
}

// Product identifies a financial product line with its own change service.
type Product string

const (
	ProductACCAI Product = "ACCAI"
	ProductCREA  Product = "CREA"
)

// knownProducts is the closed set of products the system can route.
var knownProducts = map[string]Product{
	string(ProductACCAI): ProductACCAI,
	string(ProductCREA):  ProductCREA,
}

// ParseProduct resolves a product code case-insensitively against the closed set.
func ParseProduct(code string) (Product, bool) {
	p, ok := knownProducts[strings.ToUpper(strings.TrimSpace(code))]
	return p, ok
}

func (p Product) String() string {
	return string(p)
}
