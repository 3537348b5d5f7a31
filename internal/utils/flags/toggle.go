package flags

import (
	"fmt"
	"strings"

	"github.com/spf13/pflag"
)

const (
	toggleTrueCanonicalValue   = "true"
	toggleFalseCanonicalValue  = "false"
	toggleParseErrorTemplate   = "invalid toggle value %q"
	negatingFlagErrorTemplate  = "invalid value %q for --%s"
	toggleUsagePlaceholder     = "`<yes|no>`"
	toggleUsageTemplate        = "%s %s"
	negatingUsageTemplate      = "%s (overrides --%s)"
	toggleFlagTypeConstant     = "bool"
	toggleUnsetDisplayConstant = ""
)

var toggleLiterals = map[string]bool{
	"true":  true,
	"yes":   true,
	"on":    true,
	"1":     true,
	"false": false,
	"no":    false,
	"off":   false,
	"0":     false,
}

// ToggleOverride records a command-line override for a configured boolean setting.
// An unset override defers to the configured value; a negating flag beats an explicit value.
type ToggleOverride struct {
	set       bool
	value     bool
	forcedOff bool
}

// Resolve returns the effective value given the configured fallback.
func (override ToggleOverride) Resolve(configured bool) bool {
	switch {
	case override.forcedOff:
		return false
	case override.set:
		return override.value
	default:
		return configured
	}
}

// AddToggleFlag registers a flag accepting yes/no style values that overrides a configured setting.
// A bare --flag sets the override to true.
func AddToggleFlag(flagSet *pflag.FlagSet, target *ToggleOverride, name string, shorthand string, usage string) {
	if flagSet == nil || target == nil || len(name) == 0 {
		return
	}
	flagSet.VarP(&toggleFlagValue{override: target}, name, shorthand, fmt.Sprintf(toggleUsageTemplate, toggleUsagePlaceholder, strings.TrimSpace(usage)))
	flagSet.Lookup(name).NoOptDefVal = toggleTrueCanonicalValue
}

// AddNegatingFlag registers a value-less flag that forces the override of toggleName off.
func AddNegatingFlag(flagSet *pflag.FlagSet, target *ToggleOverride, name string, shorthand string, toggleName string, usage string) {
	if flagSet == nil || target == nil || len(name) == 0 {
		return
	}
	flagSet.VarP(&negatingFlagValue{override: target, name: name}, name, shorthand, fmt.Sprintf(negatingUsageTemplate, strings.TrimSpace(usage), toggleName))
	flagSet.Lookup(name).NoOptDefVal = toggleTrueCanonicalValue
}

type toggleFlagValue struct {
	override *ToggleOverride
}

func (value *toggleFlagValue) Set(rawValue string) error {
	parsedValue, parseError := parseToggleValue(rawValue)
	if parseError != nil {
		return parseError
	}
	value.override.set = true
	value.override.value = parsedValue
	return nil
}

func (value *toggleFlagValue) String() string {
	if value == nil || value.override == nil || !value.override.set {
		return toggleUnsetDisplayConstant
	}
	return formatToggleValue(value.override.value)
}

func (value *toggleFlagValue) Type() string {
	return toggleFlagTypeConstant
}

type negatingFlagValue struct {
	override *ToggleOverride
	name     string
}

func (value *negatingFlagValue) Set(rawValue string) error {
	enabled, parseError := parseToggleValue(rawValue)
	if parseError != nil {
		return fmt.Errorf(negatingFlagErrorTemplate, rawValue, value.name)
	}
	value.override.forcedOff = enabled
	return nil
}

func (value *negatingFlagValue) String() string {
	if value == nil || value.override == nil {
		return toggleFalseCanonicalValue
	}
	return formatToggleValue(value.override.forcedOff)
}

func (value *negatingFlagValue) Type() string {
	return toggleFlagTypeConstant
}

func formatToggleValue(enabled bool) string {
	if enabled {
		return toggleTrueCanonicalValue
	}
	return toggleFalseCanonicalValue
}

func parseToggleValue(rawValue string) (bool, error) {
	normalizedValue := strings.ToLower(strings.TrimSpace(rawValue))
	if len(normalizedValue) == 0 {
		return true, nil
	}
	parsedValue, known := toggleLiterals[normalizedValue]
	if !known {
		return false, fmt.Errorf(toggleParseErrorTemplate, rawValue)
	}
	return parsedValue, nil
}
