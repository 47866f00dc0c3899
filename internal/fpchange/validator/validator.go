// Package validator applies the business rules to a single upload row.
//
// Validate is pure: no I/O, deterministic, and independent per row. Every
// field is checked; within a field the first failing rule wins.
package validator

import (
	"fmt"
	"regexp"
	"unicode/utf8"

	"accai/internal/fpchange/models"
)

// Violation is a field-level rule failure.
type Violation struct {
	Field   string
	Message string
}

// rule returns a message when value breaks it, "" otherwise.
type rule func(field, value string, row models.Row) string

type fieldRules struct {
	field string
	rules []rule
}

var digitsOnly = regexp.MustCompile(`^[0-9]+$`)

// SupportedDocumentType is the only identity document currently accepted.
const SupportedDocumentType = "C"

var rowRules = []fieldRules{
	{models.FieldSurname, []rule{required, maxLen(120)}},
	{models.FieldGivenName, []rule{required, maxLen(120)}},
	{models.FieldDocumentType, []rule{required, equals(SupportedDocumentType)}},
	{models.FieldDocumentNumber, []rule{required, numeric, maxLen(20)}},
	{models.FieldProduct, []rule{required, equals(string(models.ProductACCAI))}},
	{models.FieldProductPlan, []rule{required, numeric}},
	{models.FieldContractNumber, []rule{required, numeric}},
	{models.FieldCompany, []rule{required, maxLen(120)}},
	{models.FieldSegment, []rule{required, maxLen(60)}},
	{models.FieldCity, []rule{required, maxLen(80)}},
	{models.FieldCurrentAgentID, []rule{required, numeric}},
	{models.FieldNewAgentID, []rule{required, numeric, differsFromCurrentAgent}},
	{models.FieldNewAgentName, []rule{required, maxLen(150)}},
	{models.FieldSubGroupFP, []rule{required, numeric}},
	{models.FieldDescription, []rule{required, maxLen(250)}},
}

// Validate returns every violation found in row, in rule table order.
func Validate(row models.Row) []Violation {
	var violations []Violation
	for _, fr := range rowRules {
		value, _ := row.Value(fr.field)
		for _, check := range fr.rules {
			if msg := check(fr.field, value, row); msg != "" {
				violations = append(violations, Violation{Field: fr.field, Message: msg})
				break
			}
		}
	}
	return violations
}

func required(field, value string, _ models.Row) string {
	if value == "" {
		return fmt.Sprintf("%s es obligatorio.", field)
	}
	return ""
}

func numeric(field, value string, _ models.Row) string {
	if !digitsOnly.MatchString(value) {
		return fmt.Sprintf("%s debe ser numérico.", field)
	}
	return ""
}

func maxLen(limit int) rule {
	return func(field, value string, _ models.Row) string {
		if utf8.RuneCountInString(value) > limit {
			return fmt.Sprintf("%s no puede superar %d caracteres.", field, limit)
		}
		return ""
	}
}

func equals(expected string) rule {
	return func(field, value string, _ models.Row) string {
		if value != expected {
			return fmt.Sprintf("%s debe ser exactamente '%s'.", field, expected)
		}
		return ""
	}
}

func differsFromCurrentAgent(field, value string, row models.Row) string {
	if value == row.CurrentAgentID {
		return fmt.Sprintf("%s debe ser diferente de %s.", field, models.FieldCurrentAgentID)
	}
	return ""
}
