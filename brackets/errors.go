package brackets

import "errors"

// Kind is the machine-readable error code surfaced to callers.
type Kind string

const (
	KindInsufficientTeams        Kind = "INSUFFICIENT_TEAMS"
	KindInvalidSeedSet           Kind = "INVALID_SEED_SET"
	KindBracketLocked            Kind = "BRACKET_LOCKED"
	KindGenerationInProgress     Kind = "BRACKET_GENERATION_IN_PROGRESS"
	KindInvalidMatchState        Kind = "INVALID_MATCH_STATE"
	KindInvalidResult            Kind = "INVALID_RESULT"
	KindStaleMatchState          Kind = "STALE_MATCH_STATE"
	KindUnknownMatch             Kind = "UNKNOWN_MATCH"
	KindInvalidGenerationRequest Kind = "INVALID_GENERATION_REQUEST"
	KindBracketNotFound          Kind = "BRACKET_NOT_FOUND"
	KindInternal                 Kind = "INTERNAL"
)

var (
	ErrInsufficientTeams        = errors.New("not enough teams to generate a bracket")
	ErrInvalidSeedSet           = errors.New("seeds must be a permutation of 1..N")
	ErrBracketLocked            = errors.New("bracket has started matches and cannot be regenerated")
	ErrGenerationInProgress     = errors.New("bracket generation already in progress")
	ErrInvalidMatchState        = errors.New("operation not allowed in the current match state")
	ErrInvalidResult            = errors.New("invalid match result")
	ErrStaleMatchState          = errors.New("match was modified concurrently")
	ErrUnknownMatch             = errors.New("match not found")
	ErrInvalidGenerationRequest = errors.New("invalid bracket generation request")
	ErrBracketNotFound          = errors.New("bracket not found")
)

var kinds = []struct {
	err  error
	kind Kind
}{
	{ErrInsufficientTeams, KindInsufficientTeams},
	{ErrInvalidSeedSet, KindInvalidSeedSet},
	{ErrBracketLocked, KindBracketLocked},
	{ErrGenerationInProgress, KindGenerationInProgress},
	{ErrInvalidMatchState, KindInvalidMatchState},
	{ErrInvalidResult, KindInvalidResult},
	{ErrStaleMatchState, KindStaleMatchState},
	{ErrUnknownMatch, KindUnknownMatch},
	{ErrInvalidGenerationRequest, KindInvalidGenerationRequest},
	{ErrBracketNotFound, KindBracketNotFound},
}

// KindOf maps an error chain onto its engine kind. Anything unrecognised is
// reported as KindInternal.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	for _, k := range kinds {
		if errors.Is(err, k.err) {
			return k.kind
		}
	}
	return KindInternal
}
