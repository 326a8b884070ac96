// Package core defines the shared language of the stepcat system.
//
// This package contains:
//   - Domain entities (TableRef, Configuration, CatalogRow)
//   - Service interfaces (Store)
//   - Sentinel errors shared by every layer
//
// The Golden Rule: pkg/core imports ONLY stdlib.
// All other packages depend on core, not the reverse.
package core
