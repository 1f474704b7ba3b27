// The Logger interface defines the standard logging methods (Debug, Info, Warn, Error)
// that the orchestrator, tools and provider clients use for observability. This
// package includes:
//
//   - Logger interface for dependency injection
//   - SlogAdapter wrapping Go's structured logging
//   - MeshLogger with component / request scoping and turn, tool and model helpers
//   - NoOpLogger for silent operation (testing, minimal setups)
//
// Usage:
//
//	logger := logging.NewSlogLogger(logging.LogLevelInfo, "json", false).WithComponent("server")
//	orch := orchestrator.New(backend, modes, registry, func(o *orchestrator.Options) { o.Logger = logger })
//
// Credentials never appear in log attributes; provider clients log hosts and
// paths only.
package logging
