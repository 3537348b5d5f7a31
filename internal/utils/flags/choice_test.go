package flags

import (
	"fmt"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/require"
)

func TestFormatChoiceUsage(testInstance *testing.T) {
	testCases := []struct {
		name           string
		defaultChoice  string
		choices        []string
		description    string
		expectedOutput string
	}{
		{
			name:           "default_first_choice",
			defaultChoice:  "text",
			choices:        []string{"text", "json"},
			description:    "Report format.",
			expectedOutput: "`<TEXT|json>` Report format.",
		},
		{
			name:           "default_middle_choice",
			defaultChoice:  "warn",
			choices:        []string{"debug", "info", "warn", "error"},
			description:    "Diagnostic level.",
			expectedOutput: "`<debug|info|WARN|error>` Diagnostic level.",
		},
		{
			name:           "empty_description",
			defaultChoice:  "console",
			choices:        []string{"structured", "console"},
			description:    "",
			expectedOutput: "`<structured|CONSOLE>`",
		},
		{
			name:           "duplicate_choices_ignored",
			defaultChoice:  "json",
			choices:        []string{"json", "json", "text", "TEXT"},
			description:    "Select between options.",
			expectedOutput: "`<JSON|text>` Select between options.",
		},
		{
			name:           "whitespace_trimmed",
			defaultChoice:  "info",
			choices:        []string{" info ", " debug "},
			description:    "Pick a level.",
			expectedOutput: "`<INFO|debug>` Pick a level.",
		},
	}

	for testCaseIndex, testCase := range testCases {
		testInstance.Run(fmt.Sprintf("%d_%s", testCaseIndex, testCase.name), func(subTest *testing.T) {
			actual := FormatChoiceUsage(testCase.defaultChoice, testCase.choices, testCase.description)
			require.Equal(subTest, testCase.expectedOutput, actual)
		})
	}
}

func TestAddChoiceFlag(testInstance *testing.T) {
	testCases := []struct {
		name          string
		arguments     []string
		expectedValue string
		expectError   bool
	}{
		{name: "absent_keeps_empty", arguments: []string{}, expectedValue: ""},
		{name: "valid_choice", arguments: []string{"--log-level=debug"}, expectedValue: "debug"},
		{name: "case_insensitive", arguments: []string{"--log-level", " ERROR "}, expectedValue: "error"},
		{name: "invalid_choice", arguments: []string{"--log-level=verbose"}, expectError: true},
	}

	for testCaseIndex, testCase := range testCases {
		testInstance.Run(fmt.Sprintf("%d_%s", testCaseIndex, testCase.name), func(subTest *testing.T) {
			flagSet := pflag.NewFlagSet("choice", pflag.ContinueOnError)
			var target string
			AddChoiceFlag(flagSet, &target, "log-level", "warn", []string{"debug", "info", "warn", "error"}, "Diagnostic level.")

			flag := flagSet.Lookup("log-level")
			require.NotNil(subTest, flag)
			require.Equal(subTest, "`<debug|info|WARN|error>` Diagnostic level.", flag.Usage)

			parseError := flagSet.Parse(testCase.arguments)
			if testCase.expectError {
				require.Error(subTest, parseError)
				return
			}
			require.NoError(subTest, parseError)
			require.Equal(subTest, testCase.expectedValue, target)
		})
	}
}
