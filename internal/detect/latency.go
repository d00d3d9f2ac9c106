package detect

import (
	"time"

	"github.com/cryptoedge/arbmon/internal/domain"
)

// LatencyStrategy is a reserved extension point for exploiting differing
// market reaction speeds across venues (spec.md §4.E.4). Left unimplemented
// per spec.md §9's open question — no semantics are invented here.
type LatencyStrategy struct{}

func NewLatencyStrategy() *LatencyStrategy { return &LatencyStrategy{} }

// Detect always returns an empty slice.
func (s *LatencyStrategy) Detect(pair string, quotes []domain.Quote, now time.Time) []domain.ArbitrageOpportunity {
	return nil
}
