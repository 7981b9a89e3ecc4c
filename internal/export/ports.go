package export

import (
	"context"

	"saldo/internal/core"
)

// Ports for outbound report adapters.
type (
	// ReportWriter writes a settlement report to an external destination and
	// returns a reference to where it landed.
	ReportWriter interface {
		WriteSettlement(ctx context.Context, st core.Settlement) (ref string, err error)
	}
)
