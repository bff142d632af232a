// Package appconf holds application-level configuration shared across
// packages: the runtime environment and the knobs the pipeline entry point
// collects from flags and the env file.
package appconf

// Environment identifies the runtime environment of the application.
type Environment int

const (
	Test Environment = iota
	Development
	Production
)

// EnvFlagToEnvironment maps the string form used in flags/env files to an
// Environment, defaulting to Development for unknown values.
func EnvFlagToEnvironment(env string) Environment {
	switch env {
	case "test":
		return Test
	case "production":
		return Production
	default:
		return Development
	}
}

func (e Environment) String() string {
	switch e {
	case Test:
		return "test"
	case Production:
		return "production"
	default:
		return "development"
	}
}

// Config is the application configuration.
type Config struct {
	Env     Environment
	Verbose bool

	// DBPath is the SQLite database holding the schedule snapshot,
	// collected vehicle positions, and persisted metrics.
	DBPath string
}
