// Package apierr defines the wire-level error codes shared by
// PlayerRegistry, GameState, and WSHub (spec.md §6.3, §7), kept in one
// place so the WebSocket boundary's error frames, built from Error's
// Code and Message, share a single vocabulary.
package apierr

// Code is one of the fixed error codes a client may see in a ws error
// frame or an HTTP JSON error body.
type Code = string

const (
	NameTaken          Code = "NAME_TAKEN"
	NameInvalid        Code = "NAME_INVALID"
	GameNotStarted     Code = "GAME_NOT_STARTED"
	GameAlreadyStarted Code = "GAME_ALREADY_STARTED"
	GameEnded          Code = "GAME_ENDED"
	GameFull           Code = "GAME_FULL"
	NotAdmin           Code = "NOT_ADMIN"
	AdminExists        Code = "ADMIN_EXISTS"
	RoundExpired       Code = "ROUND_EXPIRED"
	AlreadySubmitted   Code = "ALREADY_SUBMITTED"
	NotInGame          Code = "NOT_IN_GAME"
	InvalidAction      Code = "INVALID_ACTION"
	MAUnavailable      Code = "MA_UNAVAILABLE"
	UnsupportedPlatform Code = "UNSUPPORTED_PLATFORM"
)

// Error implements the error interface while carrying the wire code
// through internal return paths (spec.md §7 design note: explicit Go
// error values rather than exceptions).
type Error struct {
	Code    Code
	Message string
}

func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return e.Code
}

// New constructs an *Error with the code as its default message.
func New(code Code) *Error { return &Error{Code: code, Message: code} }

// Newf constructs an *Error with a custom message.
func Newf(code Code, message string) *Error { return &Error{Code: code, Message: message} }
