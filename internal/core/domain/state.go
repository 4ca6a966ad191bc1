package domain

// RelayerState is the loop state threaded through each relayer cycle.
// Watermark is the highest round id known to be fully mirrored (registry
// entry plus every then-known cipher) to the destination. It is re-derived
// from the destination's own round counter at startup, never persisted by
// the relayer itself.
type RelayerState struct {
	Watermark uint64
}

// WithWatermark returns a copy of the state advanced to the given round.
func (s RelayerState) WithWatermark(round uint64) RelayerState {
	s.Watermark = round
	return s
}
