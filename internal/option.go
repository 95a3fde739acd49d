package internal

// Option is a functional option for configuring the application.
type Option func(*application)

type application struct {
	config *Config

	// reportPath, when non-empty, routes one-shot audit output to a file
	// instead of stdout.
	reportPath string
}

// WithConfig sets the application configuration.
func WithConfig(cfg *Config) Option {
	return func(a *application) {
		a.config = cfg
	}
}

// WithReportPath sets the output file for one-shot audit reports.
func WithReportPath(path string) Option {
	return func(a *application) {
		a.reportPath = path
	}
}
