package model

import internalmodel "github.com/goliatone/go-xsdform/internal/model"

// Restriction kinds re-exported from the internal builder.
const (
	ValidationRuleLength         = internalmodel.ValidationRuleLength
	ValidationRuleMinLength      = internalmodel.ValidationRuleMinLength
	ValidationRuleMaxLength      = internalmodel.ValidationRuleMaxLength
	ValidationRuleMinInclusive   = internalmodel.ValidationRuleMinInclusive
	ValidationRuleMaxInclusive   = internalmodel.ValidationRuleMaxInclusive
	ValidationRuleMinExclusive   = internalmodel.ValidationRuleMinExclusive
	ValidationRuleMaxExclusive   = internalmodel.ValidationRuleMaxExclusive
	ValidationRuleTotalDigits    = internalmodel.ValidationRuleTotalDigits
	ValidationRuleFractionDigits = internalmodel.ValidationRuleFractionDigits
	ValidationRulePattern        = internalmodel.ValidationRulePattern
)

var (
	ErrSchemaMissing  = internalmodel.ErrSchemaMissing
	ErrRootMissing    = internalmodel.ErrRootMissing
	ErrRootNotComplex = internalmodel.ErrRootNotComplex
)

type ValidationRule = internalmodel.ValidationRule
type TypeValidator = internalmodel.TypeValidator
type FieldDef = internalmodel.FieldDef
type SectionDef = internalmodel.SectionDef
type FormModel = internalmodel.FormModel

// DefaultLabeler exposes the builder's label function.
func DefaultLabeler(name string) string {
	return internalmodel.DefaultLabeler(name)
}

// SortedFieldPaths lists every field path of m in lexicographic order.
func SortedFieldPaths(m FormModel) []string {
	return internalmodel.SortedFieldPaths(m)
}
