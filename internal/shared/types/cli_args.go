package types

// CLIArgs represents the command-line arguments.
type CLIArgs struct {
	ConfigFile string
	EnvFile    string
	Timezone   string
	Period     string
	LogLevel   string
	LogFormat  string
	OutputDir  string
	ReportName string
	Export     []string
	// DryRun skips the webhook requirement for commands that never deliver.
	DryRun bool
}
