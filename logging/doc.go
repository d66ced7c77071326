// The Logger interface defines the standard logging methods (Debug, Info,
// Warn, Error) plus With for attaching fields. This package includes:
//
//   - SlogAdapter wrapping Go's structured logging
//   - ZapAdapter wrapping go.uber.org/zap
//   - NoOpLogger for silent operation (testing, minimal setups)
//   - New, which picks a backend from Config
//
// Usage:
//
//	logger, err := logging.New(logging.Config{Level: "debug", Backend: "zap"}, os.Stderr)
//	kb := agent.NewFixedAgent("hello", "Hello", func(o *agent.FixedOptions) { o.Logger = logger })
package logging
