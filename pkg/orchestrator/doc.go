// Package orchestrator wires the loader → compiler → model builder → form
// session pipeline, providing dependency injection friendly helpers for
// consumers that prefer a single entry point.
//
// A Session owns one form tree together with its rule engine, collector and
// generator. It exposes the high level operations a frontend needs: import
// prefill, test data synthesis, presets and data collection.
package orchestrator
