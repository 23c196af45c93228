package main

// rootFlags carries the persistent flags shared by every subcommand.
type rootFlags struct {
	configPath  string
	repoPath    string
	stateDir    string
	handoverDir string
	verbose     bool
}
