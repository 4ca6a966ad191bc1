package application

import (
	"context"
	"fmt"
)

// pollSource reads the source ledger's round counter. The caller decides
// whether the candidate triggers mirroring: only a candidate strictly greater
// than the watermark does, which guards against reprocessing and against
// stale or non-monotonic reads.
func (s *service) pollSource(ctx context.Context) (uint64, error) {
	candidate, err := s.source.LastRound(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to read source round counter: %w", err)
	}
	return candidate, nil
}
