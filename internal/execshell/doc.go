// Package execshell provides structured helpers for invoking the git executable.
//
// ShellExecutor wraps a CommandRunner with zap logging and typed failures,
// and OSCommandRunner runs processes through os/exec so that repository
// inspection can be exercised in tests with a recording runner instead.
package execshell
