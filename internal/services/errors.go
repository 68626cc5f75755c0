package services

import "errors"

var (
	ErrRecipientNotFound = errors.New("recipient not found")
	ErrInvalidPair       = errors.New("cannot send a friend request to yourself")
	ErrRateLimited       = errors.New("friend request rate limit exceeded")
	ErrAlreadyRequested  = errors.New("friend request already sent")
	ErrRequestNotFound   = errors.New("friend request not found")
	ErrInvalidState      = errors.New("friend request is not pending")
	ErrInvalidAction     = errors.New("action must be accept or reject")
)
