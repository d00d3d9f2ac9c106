package detect

import (
	"time"

	"github.com/cryptoedge/arbmon/internal/domain"
)

// TriangleStrategy is a reserved extension point for three-currency
// arbitrage (spec.md §4.E.4). No semantics are implemented; the interface
// exists so the engine can wire it in once a design is settled.
type TriangleStrategy struct{}

func NewTriangleStrategy() *TriangleStrategy { return &TriangleStrategy{} }

// Detect always returns an empty slice.
func (s *TriangleStrategy) Detect(pair string, quotes []domain.Quote, now time.Time) []domain.ArbitrageOpportunity {
	return nil
}
