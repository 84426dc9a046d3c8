// Package sheets mirrors export tables into an external spreadsheet.
package sheets

import (
	"context"

	"caja/internal/export"
)

// Ports for outbound adapters.
type (
	// TableWriter replaces the whole content of a tab with a table,
	// creating the tab when it does not exist yet.
	TableWriter interface {
		WriteTable(ctx context.Context, t export.Table) error
	}

	// TableReader returns the current cells of a tab as text, or nil when
	// the tab does not exist.
	TableReader interface {
		ReadTable(ctx context.Context, sheet string) ([][]string, error)
	}

	Mirror interface {
		TableWriter
		TableReader
	}
)
