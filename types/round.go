package types

// Round is one phase of the fixed room sequence. Rooms only ever move
// forward through RoundSequence, one step at a time.
type Round string

const (
	RoundWaiting     Round = "WAITING"
	RoundOffers      Round = "OFFERS"
	RoundDesires     Round = "DESIRES"
	RoundConnections Round = "CONNECTIONS"
	RoundDecisions   Round = "DECISIONS"
	RoundSummary     Round = "SUMMARY"
)

// RoundSequence is the complete ordered round sequence.
var RoundSequence = []Round{
	RoundWaiting,
	RoundOffers,
	RoundDesires,
	RoundConnections,
	RoundDecisions,
	RoundSummary,
}

func (r Round) Valid() bool {
	for _, s := range RoundSequence {
		if s == r {
			return true
		}
	}
	return false
}
