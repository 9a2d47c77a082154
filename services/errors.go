package services

import "errors"

// Sentinel errors shared across services and mapped to HTTP in handlers.
var (
	ErrNotFound = errors.New("requested resource not found")

	// Validation and business-rule errors. Rejected synchronously, never
	// partially applied.
	ErrValidationFailed      = errors.New("validation failed")
	ErrInvalidStrategy       = errors.New("invalid formation strategy")
	ErrInvalidQualification  = errors.New("invalid qualification rule")
	ErrInvalidMatchCount     = errors.New("match count must be between 1 and 6")
	ErrInvalidQualifierCount = errors.New("qualifier count must be between 1 and the group capacity")
	ErrInvalidRoundNumber    = errors.New("invalid round number for this tournament")
	ErrUnknownParticipant    = errors.New("team is not a member of this match's group")
	ErrIncompleteScores      = errors.New("every participating team needs exactly one score entry before finalize")
	ErrRoundIncomplete       = errors.New("round has unfinalized matches")
	ErrInsufficientGroups    = errors.New("qualification rule selects more groups than were formed")
	ErrSequentialMatchOrder  = errors.New("previous match must be finalized before this one can start")

	// Conflict errors. Rejected, never silently merged.
	ErrRoundAlreadyFormed = errors.New("groups have already been formed for this round")
	ErrMatchFinalized     = errors.New("match is finalized; reopen it to correct scores")
	ErrMatchNotFinalized  = errors.New("match is not finalized")
	ErrMatchNotLive       = errors.New("match is not currently live")
	ErrAbortNotAllowed    = errors.New("round cannot be aborted once a match is finalized")

	// State machine errors.
	ErrIllegalTransition = errors.New("illegal tournament state transition")
	ErrTournamentClosed  = errors.New("tournament is completed or canceled")

	// Authorization.
	ErrForbiddenOperation = errors.New("operation not allowed for the current user")
	ErrHostOnly           = errors.New("only the tournament host can perform this action")
)
