// Package fleet dispatches git-global subcommands.
//
// Service maps a query kind onto the repository cache, the concurrent query
// executor and the report aggregator, and CommandBuilder exposes every kind
// as a cobra subcommand sharing the root command's report flags.
package fleet
