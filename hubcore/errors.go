package hubcore

import "errors"

var (
	ErrorAlreadyRunning = errors.New("The hub is already running")
)
