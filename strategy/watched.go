package strategy

// ResolveWatchedSymbols implements the three watched-symbol rules from the
// strategy contract. Concrete strategies call this from their own
// WatchedSymbols method rather than re-deriving the rule per type.
func ResolveWatchedSymbols(stype Type, strategyID string, universe Universe) []string {
	switch stype {
	case TypeEntry:
		held := make(map[string]bool)
		for _, s := range universe.HeldSymbols(strategyID) {
			held[s] = true
		}
		var out []string
		for _, s := range universe.AllSymbols() {
			if !held[s] {
				out = append(out, s)
			}
		}
		return out

	case TypeExit:
		return universe.HeldSymbols(strategyID)

	case TypeUniversalStop:
		return universe.AllHeldSymbols()

	default:
		return nil
	}
}
