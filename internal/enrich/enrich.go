// Package enrich adds an optional qualitative analysis of a lead from an
// external text-generation service.
package enrich

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/leadscore/internal/model"
)

// ErrDisabled is returned by Noop.
var ErrDisabled = eris.New("enrich: disabled")

// Enricher analyzes a reduced profile summary. Implementations may block on
// I/O; callers bound them with a context deadline and treat any error as
// "no enrichment".
type Enricher interface {
	Enrich(ctx context.Context, s model.Summary) (*model.Enrichment, error)
}

// Noop never enriches.
type Noop struct{}

func (Noop) Enrich(context.Context, model.Summary) (*model.Enrichment, error) {
	return nil, ErrDisabled
}
