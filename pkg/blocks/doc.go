// Package blocks implements the flexible-content model used by page fields.
//
// A BlockType describes one variant of content: a scalar leaf with a
// primitive validator, a struct with an ordered set of named children, or a
// list with a single element type. Block types are registered under a
// discriminator name in a Registry, which is built once at startup and is
// read-only afterwards.
//
// A Stream is the ordered sequence of (type, value) entries stored in one page
// field. Streams are persisted as a portable, JSON-compatible tree:
//
//	[{"type": "heading", "value": "Cennik", "id": "..."}, ...]
//
// Decoding and validation are not separable: Decode resolves each entry's
// type against the registry and validates the value before returning it.
// Validation reports the first error found in field-declaration order, with
// a path such as "items[2].price" attributing it to the offending node.
package blocks
