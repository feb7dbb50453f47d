package runtime

import "errors"

var (
	// ErrNameEmpty is returned by Run if the System was never given a name.
	ErrNameEmpty = errors.New("runtime: system name must not be empty")
	// ErrAlreadyRunning is returned by Run if called more than once on the
	// same System.
	ErrAlreadyRunning = errors.New("runtime: system is already running")
	// ErrNotRunning is returned by the deploy/broadcast/stop/kill helpers
	// when called before Run or after the system has wound down.
	ErrNotRunning = errors.New("runtime: system is not running")
)
