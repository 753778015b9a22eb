// Package model defines the read-only form model derived from a schema. A
// FormModel is a tree of SectionDef values (one per complex element) holding
// FieldDef leaves (one per simple element or attribute). Paths are dotted
// element names starting at the root, for example "Message.Header.MessageId".
// Fields keep their restriction facets as ValidationRule entries with string
// parameters plus a TypeValidator that checks values against the full type
// derivation chain. The model is immutable once built and safe to share.
package model
