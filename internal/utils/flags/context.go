package flags

import (
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

const (
	// JSONFlagName exposes the structured output flag name.
	JSONFlagName = "json"
	// JSONFlagShorthand provides the shorthand for the structured output flag.
	JSONFlagShorthand = "j"
	// JSONFlagUsage describes the structured output flag purpose.
	JSONFlagUsage = "Emit a JSON report instead of text"
	// UntrackedFlagName exposes the untracked inclusion flag name.
	UntrackedFlagName = "untracked"
	// UntrackedFlagShorthand provides the shorthand for the untracked inclusion flag.
	UntrackedFlagShorthand = "u"
	// UntrackedFlagUsage describes the untracked inclusion flag purpose.
	UntrackedFlagUsage = "Include untracked files in status output"
	// NoUntrackedFlagName exposes the untracked exclusion flag name.
	NoUntrackedFlagName = "nountracked"
	// NoUntrackedFlagShorthand provides the shorthand for the untracked exclusion flag.
	NoUntrackedFlagShorthand = "t"
	// NoUntrackedFlagUsage describes the untracked exclusion flag purpose.
	NoUntrackedFlagUsage = "Exclude untracked files from status output"
)

// QueryFlagValues stores the report flags shared by every query subcommand.
type QueryFlagValues struct {
	JSON      bool
	Untracked ToggleOverride
}

// BindQueryFlags attaches the shared report flags to the provided command using persistent scope.
func BindQueryFlags(command *cobra.Command) *QueryFlagValues {
	values := &QueryFlagValues{}
	if command == nil {
		return values
	}

	persistentFlagSet := command.PersistentFlags()
	persistentFlagSet.BoolVarP(&values.JSON, JSONFlagName, JSONFlagShorthand, false, JSONFlagUsage)
	AddToggleFlag(persistentFlagSet, &values.Untracked, UntrackedFlagName, UntrackedFlagShorthand, UntrackedFlagUsage)
	AddNegatingFlag(persistentFlagSet, &values.Untracked, NoUntrackedFlagName, NoUntrackedFlagShorthand, UntrackedFlagName, NoUntrackedFlagUsage)

	return values
}

// ResolveShowUntracked combines the untracked flags with the configured fallback.
// An explicit --nountracked wins over --untracked.
func ResolveShowUntracked(command *cobra.Command, configured bool) bool {
	if command == nil {
		return configured
	}
	untrackedFlag := command.Flags().Lookup(UntrackedFlagName)
	if untrackedFlag == nil {
		return configured
	}
	toggleValue, isToggle := untrackedFlag.Value.(*toggleFlagValue)
	if !isToggle || toggleValue.override == nil {
		return configured
	}
	return toggleValue.override.Resolve(configured)
}

// ResolveJSONOutput reports whether structured output was requested on the command line.
func ResolveJSONOutput(command *cobra.Command) bool {
	if command == nil {
		return false
	}
	return flagEnabled(command.Flags(), JSONFlagName)
}

func flagEnabled(flagSet *pflag.FlagSet, name string) bool {
	if flagSet == nil {
		return false
	}
	flag := flagSet.Lookup(name)
	if flag == nil || !flag.Changed {
		return false
	}
	value, parseError := parseToggleValue(flag.Value.String())
	if parseError != nil {
		return false
	}
	return value
}
