package compiler

import "gopkg.in/src-d/go-errors.v1"

// ErrInvalidInnerQuery is returned when an InnerQuery has none of
// SourceTable, SourceQuery, or NativeSourceQuery set (spec.md §7).
var ErrInvalidInnerQuery = errors.NewKind("invalid inner query: no source-table, source-query, or native source-query: %v")
