package publish

import "errors"

var (
	errEmptyTarget = errors.New("broadcast target is not configured")
	errNoResolver  = errors.New("adapter cannot resolve chat usernames")
)
