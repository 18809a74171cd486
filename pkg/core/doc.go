// Package core defines the shared language of the mallard toolkit.
//
// This package contains:
//   - Connection targets (TargetConfig)
//   - Schema entities (Table, Column, Index, TableMetadata)
//   - Result wrappers (Rows)
//
// The Golden Rule: pkg/core imports ONLY stdlib.
// All other packages depend on core, not the reverse.
package core
