package visstream

type (
	// Logger interface for status lines.
	Logger interface {
		Log(string)
	}

	// ErrorQueue interface for error reporting.
	ErrorQueue interface {
		Report(error)
	}
)
