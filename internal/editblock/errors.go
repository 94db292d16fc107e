package editblock

// ErrorKind enumerates the failure taxonomy from spec.md §7. Block-local
// kinds (ParseMalformed, ValidationRejected, MatchFailed, WriteFailed) are
// recovered and reported; session-level kinds (AttemptsExhausted, LlmError,
// Cancelled) are defined here for a single shared vocabulary but are
// surfaced by editsession, not editblock.
type ErrorKind int

const (
	ErrNone ErrorKind = iota
	ErrParseEmpty
	ErrParseMalformed
	ErrValidationRejected
	ErrMatchFailed
	ErrWriteFailed
	ErrCommitFailed
	ErrAttemptsExhausted
	ErrLlmError
	ErrCancelled
)

// Code returns the stable, model- and human-readable identifier for a kind,
// the same token the reflection report embeds so a resending model (or a
// test) can key off it without parsing prose. MatchFailed's code preserves
// the original SEARCH/REPLACE tooling's exception name for this exact
// failure mode: an edit block whose SEARCH text has no exact (or
// tolerant-cascade) match anywhere in the target file.
func (k ErrorKind) Code() string {
	switch k {
	case ErrParseEmpty:
		return "ParseEmpty"
	case ErrParseMalformed:
		return "ParseMalformed"
	case ErrValidationRejected:
		return "ValidationRejected"
	case ErrMatchFailed:
		return "SearchReplaceNoExactMatch"
	case ErrWriteFailed:
		return "WriteFailed"
	case ErrCommitFailed:
		return "CommitFailed"
	case ErrAttemptsExhausted:
		return "AttemptsExhausted"
	case ErrLlmError:
		return "LlmError"
	case ErrCancelled:
		return "Cancelled"
	default:
		return "None"
	}
}
