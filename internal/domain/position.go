package domain

import "time"

// CurrentPosition computes a token's live queue position from the current
// set of active tokens in its queue. It is a pure function and must be
// recomputed on every read; the Position field on Token is only the
// admission-time snapshot.
//
// Positions: serving is 0 (currently being helped), called is 1 (already
// summoned), waiting is the number of active tokens whose token number sorts
// strictly before this one, plus 1. Token numbers embed the admission
// sequence, so they order tokens without trusting wall-clock timestamps.
// Terminal tokens have no position and return ok=false.
//
// Note that a waiting token's position compresses whenever a called or
// serving token reaches a terminal state, because that token leaves the
// active set. This matches the product behavior: positions report tokens
// actually ahead of you, not your admission rank.
func CurrentPosition(token *Token, activeInQueue []*Token) (int, bool) {
	switch token.Status {
	case TokenStatusServing:
		return 0, true
	case TokenStatusCalled:
		return 1, true
	case TokenStatusWaiting:
		ahead := 0
		for _, other := range activeInQueue {
			if !other.Status.IsActive() {
				continue
			}
			if other.QueueID == token.QueueID && other.Number < token.Number {
				ahead++
			}
		}
		return ahead + 1, true
	default:
		return 0, false
	}
}

// EstimateCallTime projects when a token at the given position will be
// called, assuming avgServiceTime minutes per position.
func EstimateCallTime(now time.Time, position int, avgServiceTimeMinutes int) time.Time {
	if position < 0 {
		position = 0
	}
	return now.Add(time.Duration(position*avgServiceTimeMinutes) * time.Minute)
}
