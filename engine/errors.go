package engine

import "errors"

// The error taxonomy callers rely on: validation and authorization
// errors will never succeed on retry, conflicts may succeed once the
// room state changes, not-found covers absent rows including rooms
// deleted by the lazy expiry check.
var (
	// validation
	ErrTitleRequired    = errors.New("title is required")
	ErrNicknameTooLong  = errors.New("nickname too long")
	ErrExactlyOneTarget = errors.New("exactly one of offer_id and desire_id must be set")
	ErrBadStatus        = errors.New("invalid status value")
	ErrBadDecision      = errors.New("decision must be ACCEPTED or DECLINED")
	ErrSelfClaim        = errors.New("cannot claim your own entry")

	// authorization
	ErrNotMember  = errors.New("not a member of this room")
	ErrNotAuthor  = errors.New("only the author may modify this entry")
	ErrNotHost    = errors.New("only the host may do this")
	ErrNotClaimer = errors.New("only the claimer may withdraw this claim")

	// state conflict
	ErrWrongRound      = errors.New("operation not allowed in the current round")
	ErrFinalRound      = errors.New("room is in the final round")
	ErrTargetNotOpen   = errors.New("target entry is not open")
	ErrClaimNotPending = errors.New("claim is not pending")
	ErrHostCannotLeave = errors.New("host must transfer the room before leaving")

	// not found
	ErrRoomNotFound   = errors.New("room not found")
	ErrMemberNotFound = errors.New("member not found")
	ErrOfferNotFound  = errors.New("offer not found")
	ErrDesireNotFound = errors.New("desire not found")
	ErrClaimNotFound  = errors.New("claim not found")

	// join code generation exhausted its retries
	ErrCodeExhausted = errors.New("could not generate a unique room code")
)

// Kind buckets an error for transport mapping.
type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindAuthorization
	KindConflict
	KindNotFound
)

func Classify(err error) Kind {
	switch {
	case errors.Is(err, ErrTitleRequired),
		errors.Is(err, ErrNicknameTooLong),
		errors.Is(err, ErrExactlyOneTarget),
		errors.Is(err, ErrBadStatus),
		errors.Is(err, ErrBadDecision),
		errors.Is(err, ErrSelfClaim):
		return KindValidation

	case errors.Is(err, ErrNotMember),
		errors.Is(err, ErrNotAuthor),
		errors.Is(err, ErrNotHost),
		errors.Is(err, ErrNotClaimer):
		return KindAuthorization

	case errors.Is(err, ErrWrongRound),
		errors.Is(err, ErrFinalRound),
		errors.Is(err, ErrTargetNotOpen),
		errors.Is(err, ErrClaimNotPending),
		errors.Is(err, ErrHostCannotLeave):
		return KindConflict

	case errors.Is(err, ErrRoomNotFound),
		errors.Is(err, ErrMemberNotFound),
		errors.Is(err, ErrOfferNotFound),
		errors.Is(err, ErrDesireNotFound),
		errors.Is(err, ErrClaimNotFound):
		return KindNotFound
	}
	return KindInternal
}
