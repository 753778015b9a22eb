// Package openapi exposes the contract for reading schema definitions out of
// OpenAPI 3 documents. Every entry of components.schemas becomes a named type
// and object schemas also become global elements, so an OpenAPI document can
// stand in for a native schema definition. The kin-openapi implementation
// lives under internal/openapi.
package openapi
