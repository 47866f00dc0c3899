package models

// CSV column names. They double as the field names reported in RowError.Field.
const (
	FieldSurname        = "Apellidos"
	FieldGivenName      = "Nombres"
	FieldDocumentNumber = "NroDocum"
	FieldDocumentType   = "TipoDocum"
	FieldProduct        = "Producto"
	FieldProductPlan    = "PlanProducto"
	FieldContractNumber = "Contrato"
	FieldCompany        = "Empresa"
	FieldSegment        = "Segmento"
	FieldCity           = "Ciudad"
	FieldCurrentAgentID = "IdAgte"
	FieldCurrentAgent   = "NombreAgte"
	FieldNewAgentID     = "IdAgteNuevo"
	FieldNewAgentName   = "NombreAgteNuevo"
	FieldSubGroupFP     = "SubGrupoFp"
	FieldDescription    = "descripcion"
)

// Sentinel field names for errors that are not tied to a CSV column.
const (
	FieldFile = "_archivo"
	FieldDB   = "_db"
)

// ExpectedHeader is the exact, ordered header an upload must carry.
// NombreAgte is positional only: it is never read into a Row.
var ExpectedHeader = []string{
	FieldSurname, FieldGivenName, FieldDocumentNumber, FieldDocumentType,
	FieldProduct, FieldProductPlan, FieldContractNumber, FieldCompany,
	FieldSegment, FieldCity, FieldCurrentAgentID, FieldCurrentAgent,
	FieldNewAgentID, FieldNewAgentName, FieldSubGroupFP, FieldDescription,
}

// Row is one data line of an FP agent reassignment upload. Values are the
// trimmed cell contents; no type coercion happens at parse time.
type Row struct {
	Surname        string
	GivenName      string
	DocumentNumber string
	DocumentType   string
	Product        string
	ProductPlan    string
	ContractNumber string
	Company        string
	Segment        string
	City           string
	CurrentAgentID string
	NewAgentID     string
	NewAgentName   string
	SubGroupFP     string
	Description    string
}

// NumberedRow binds a Row to its 1-based line in the source file.
// The line travels with the row so duplicate rows never collapse.
type NumberedRow struct {
	Line int
	Row  Row
}

// Value returns the raw value of the named field. ok is false for column
// names that are not carried by Row (NombreAgte, sentinels, unknown names).
func (r Row) Value(field string) (value string, ok bool) {
	switch field {
	case FieldSurname:
		return r.Surname, true
	case FieldGivenName:
		return r.GivenName, true
	case FieldDocumentNumber:
		return r.DocumentNumber, true
	case FieldDocumentType:
		return r.DocumentType, true
	case FieldProduct:
		return r.Product, true
	case FieldProductPlan:
		return r.ProductPlan, true
	case FieldContractNumber:
		return r.ContractNumber, true
	case FieldCompany:
		return r.Company, true
	case FieldSegment:
		return r.Segment, true
	case FieldCity:
		return r.City, true
	case FieldCurrentAgentID:
		return r.CurrentAgentID, true
	case FieldNewAgentID:
		return r.NewAgentID, true
	case FieldNewAgentName:
		return r.NewAgentName, true
	case FieldSubGroupFP:
		return r.SubGroupFP, true
	case FieldDescription:
		return r.Description, true
	default:
		return "", false
	}
}

// RowFromRecord maps a parsed record onto a Row using the header positions.
// Columns absent from the record resolve to "".
func RowFromRecord(positions map[string]int, record []string) Row {
	cell := func(name string) string {
		idx, ok := positions[name]
		if !ok || idx >= len(record) {
			return ""
		}
		return record[idx]
	}
	return Row{
		Surname:        cell(FieldSurname),
		GivenName:      cell(FieldGivenName),
		DocumentNumber: cell(FieldDocumentNumber),
		DocumentType:   cell(FieldDocumentType),
		Product:        cell(FieldProduct),
		ProductPlan:    cell(FieldProductPlan),
		ContractNumber: cell(FieldContractNumber),
		Company:        cell(FieldCompany),
		Segment:        cell(FieldSegment),
		City:           cell(FieldCity),
		CurrentAgentID: cell(FieldCurrentAgentID),
		NewAgentID:     cell(FieldNewAgentID),
		NewAgentName:   cell(FieldNewAgentName),
		SubGroupFP:     cell(FieldSubGroupFP),
		Description:    cell(FieldDescription),
	}
}

// ChangeRequest derives the outbound change request for this row.
func (r Row) ChangeRequest() ChangeRequest {
	return ChangeRequest{
		PreviousAgentID: r.CurrentAgentID,
		NewAgentID:      r.NewAgentID,
		Product:         r.Product,
		ProductPlan:     r.ProductPlan,
		ContractNumber:  r.ContractNumber,
	}
}
