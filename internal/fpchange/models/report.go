package models

import (
	"cmp"
	"slices"
)

// RowError describes one problem found in an upload. Line 0 marks a
// whole-file error.
type RowError struct {
	Line     int     `json:"linea"`
	Field    string  `json:"campo"`
	Message  string  `json:"mensaje"`
	RawValue *string `json:"valor"`
}

// NewRowError builds a RowError carrying the offending raw value.
func NewRowError(line int, field, message, raw string) RowError {
	return RowError{Line: line, Field: field, Message: message, RawValue: &raw}
}

// Report is the outcome of processing one upload.
type Report struct {
	TotalRows     int        `json:"totalFilas"`
	ErrorCount    int        `json:"errores"`
	CorrelationID string     `json:"correlationId"`
	Errors        []RowError `json:"detalle"`
}

// NewReport assembles a report, keeping ErrorCount in step with Errors.
func NewReport(totalRows int, errs []RowError, correlationID string) *Report {
	if errs == nil {
		errs = []RowError{}
	}
	return &Report{
		TotalRows:     totalRows,
		ErrorCount:    len(errs),
		CorrelationID: correlationID,
		Errors:        errs,
	}
}

// FileFailure reports a whole-file error. No row is evaluated in that case.
func FileFailure(message, correlationID string) *Report {
	return NewReport(0, []RowError{{Line: 0, Field: FieldFile, Message: message}}, correlationID)
}

// OK reports whether the upload was accepted without errors.
func (r *Report) OK() bool {
	return r.ErrorCount == 0
}

// SortRowErrors orders errors by line, then field, then message so reports
// are stable regardless of dispatch completion order.
func SortRowErrors(errs []RowError) {
	slices.SortStableFunc(errs, func(a, b RowError) int {
		return cmp.Or(
			cmp.Compare(a.Line, b.Line),
			cmp.Compare(a.Field, b.Field),
			cmp.Compare(a.Message, b.Message),
		)
	})
}
