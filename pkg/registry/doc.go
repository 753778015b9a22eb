// Package registry loads the read-only reference dictionaries used while
// generating and constraining message data: market operators keyed by EIC
// code and the matrix of result codes allowed per business process.
//
// Registries are constructed once and passed to the generator and the rule
// engine explicitly. Both are safe for concurrent reads.
package registry
