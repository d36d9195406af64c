package domain

import "errors"

var (
	ErrInvalidUserID      = errors.New("invalid user id")
	ErrUserNotFound       = errors.New("user not found")
	ErrCallNotFound       = errors.New("call not found")
	ErrNotContact         = errors.New("users are not contacts")
	ErrAlreadyInCall      = errors.New("user already in an active call")
	ErrCalleeOffline      = errors.New("callee is offline")
	ErrInvalidCallState   = errors.New("operation not valid in current call state")
	ErrNotCallParticipant = errors.New("user is not a party to this call")
)
