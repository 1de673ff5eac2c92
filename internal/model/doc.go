// Package model defines the core data structures shared across kadcrawl.
//
// The model follows a tagged progression for documents:
//
//	DocumentReference -> DocumentRecord
//
// A DocumentReference is produced by tab traversal and is immutable.
// A DocumentRecord is produced by NewDocumentRecord after a successful
// fetch and text extraction. Each stage is a distinct type created by a
// pure transition function; records never accrete optional fields in place.
//
// Design decision: We keep the model package free of browser, database,
// and filesystem dependencies because:
//  1. Every other internal package imports model; cycles would be easy otherwise
//  2. Identity derivation and case-number parsing are pure and trivially testable
//  3. Downstream consumers of the JSON output can treat these structs as the
//     documented schema
package model
