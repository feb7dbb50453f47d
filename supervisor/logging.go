package supervisor

// Logger is a minimal logging seam for the supervisor package. Keeping the
// package's own logging dependency-free (rather than importing a structured
// logging library directly) lets callers bridge it to whatever logger their
// application already uses; see internal/obslog for the slog/zerolog-backed
// adapter used by the runtime and group packages.
type Logger interface {
	// Println logs a single line.
	Println(string)
}

var logger Logger

// WithLogger sets the package-level Logger. By default, log output is
// discarded. It should only be changed while no Supervisor created by this
// package is running, to avoid racing on the unexported package variable.
func WithLogger(l Logger) {
	logger = l
}

func log(msg string) {
	if logger != nil {
		logger.Println(msg)
	}
}
