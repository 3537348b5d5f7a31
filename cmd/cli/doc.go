// Package cli constructs the git-global command-line interface, wiring the
// Cobra command hierarchy, the Viper configuration loader, and zap logging.
// Every fleet subcommand is registered on the root command, and invoking the
// root command without a subcommand runs the configured default command.
package cli
