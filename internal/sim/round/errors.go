package round

import "errors"

var (
	ErrInvalidConfig      = errors.New("invalid round config")
	ErrInvalidTransition  = errors.New("invalid shard transition")
	ErrUnknownParticipant = errors.New("unknown participant")
	ErrMissingPort        = errors.New("missing round port")
)
