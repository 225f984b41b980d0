package loadto

// Error codes carried by DomainError.
const (
	CodeSessionNotFound   = "session_not_found"
	CodeSessionInProgress = "session_in_progress"
	CodeInvalidMove       = "invalid_move"
	CodeIllegalMove       = "illegal_move"
	CodeGameFinished      = "game_finished"
	CodeNotYourTurn       = "not_your_turn"
	CodeGameNotFound      = "game_not_found"
	CodeProfileNotFound   = "profile_not_found"
	CodeUndoUnavailable   = "undo_unavailable"
	CodeRedoUnavailable   = "redo_unavailable"
	CodeRoomNotAllowed    = "room_not_allowed"
	CodeInvalidMode       = "invalid_mode"
	CodeInvalidLevel      = "invalid_level"
	CodeInternal          = "internal"
)

type DomainError struct {
	Code      string
	Message   string
	Retryable bool
}

func (e DomainError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Code != "" {
		return e.Code
	}
	return "loa service error"
}
