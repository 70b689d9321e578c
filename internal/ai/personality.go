package ai

// Personality is a per-player behavior profile derived deterministically from
// the player id, so each computer opponent plays differently but consistently
// across turns and restarts.
type Personality struct {
	// PreferLocal leans the opponent toward regional campaigning.
	PreferLocal bool
	// Aggressiveness in [0.3, 1.0) controls how readily the opponent spends
	// down its budget and spreads across regions.
	Aggressiveness float64
	// RiskTolerance in [0, 1) scales the variance applied to action scores.
	RiskTolerance float64
	// ActionBias in [0, 5) shifts which action tier gets a scoring bump.
	ActionBias int
}

// personalityFor hashes the player id with a Knuth multiplicative hash and
// slices the bits into a profile.
func personalityFor(playerID int64) Personality {
	h := uint32(uint64(playerID) * 2654435761)
	return Personality{
		PreferLocal:    h%100 < 45,
		Aggressiveness: 0.3 + float64((h>>8)%70)/100,
		RiskTolerance:  float64((h>>16)%100)/100,
		ActionBias:     int((h >> 24) % 5),
	}
}
