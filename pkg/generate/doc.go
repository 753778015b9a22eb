// Package generate produces plausible test values for form fields.
//
// Default picks a value from, in order: rule hints, the currently allowed
// choices, enumerations, type and name heuristics, the field's base type, its
// pattern, and finally a generic bounded string. A named catalog of
// domain generators (tax identifiers, metering point codes, dates, operator
// codes) is exposed to the rule engine through Catalog.
package generate
