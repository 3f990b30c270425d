package ai

// Engine scores a prepared input. Implementations are read-only after
// construction and safe for concurrent use.
type Engine interface {
	Predict(in PreparedInput) (ClassProbabilities, error)
}

// Logger is the leveled logger the pipeline reports to.
type Logger interface {
	Info(format string, v ...interface{})
	Warning(format string, v ...interface{})
	Error(format string, v ...interface{})
}

type nopLogger struct{}

func (nopLogger) Info(string, ...interface{})    {}
func (nopLogger) Warning(string, ...interface{}) {}
func (nopLogger) Error(string, ...interface{})   {}
