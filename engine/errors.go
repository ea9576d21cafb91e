package engine

import "errors"

var (
	ErrNotYourTurn         = errors.New("not your turn")
	ErrWrongPhase          = errors.New("action not allowed in this phase")
	ErrInsufficientCredits = errors.New("insufficient credits")
	ErrUnknownPlayer       = errors.New("player is not seated in this room")
	ErrInvalidMessage      = errors.New("invalid message")
	ErrBalancePending      = errors.New("balance lookup still pending")
	ErrNotOwner            = errors.New("only the room owner can do that")

	ErrRoomFull        = errors.New("room is full")
	ErrRoomClosed      = errors.New("room is closed")
	ErrRoomNotFound    = errors.New("room not found")
	ErrUnknownGameType = errors.New("unknown game type")
	ErrLobbyNotFound   = errors.New("lobby not found")
)

// IsRejection reports whether err is a protocol violation that only the sender should hear about.
func IsRejection(err error) bool {
	for _, target := range []error{
		ErrNotYourTurn, ErrWrongPhase, ErrInsufficientCredits, ErrUnknownPlayer,
		ErrInvalidMessage, ErrBalancePending, ErrNotOwner,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
