// Package utils exposes reusable helpers consumed by multiple commands.
//
// It houses ConfigurationLoader, which layers embedded defaults, configuration
// files, and GITGLOBAL_* environment variables through Viper, and
// LoggerFactory, which builds zap loggers writing diagnostics to stderr.
// CommandContextAccessor carries execution metadata on command contexts and
// FlushingWriter keeps report output usable when the reader closes the pipe.
package utils
