package flags

import (
	"fmt"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"
)

func TestBindQueryFlagsParsesValues(testInstance *testing.T) {
	command := &cobra.Command{}

	values := BindQueryFlags(command)
	require.NotNil(testInstance, values)
	require.False(testInstance, values.JSON)
	require.True(testInstance, values.Untracked.Resolve(true))

	require.NoError(testInstance, command.ParseFlags([]string{"-j", "--untracked"}))
	require.True(testInstance, values.JSON)
	require.True(testInstance, values.Untracked.Resolve(false))
	require.NotNil(testInstance, BindQueryFlags(nil))
}

func TestResolveShowUntracked(testInstance *testing.T) {
	testCases := []struct {
		name       string
		arguments  []string
		configured bool
		expected   bool
	}{
		{name: "configured_true", arguments: []string{}, configured: true, expected: true},
		{name: "configured_false", arguments: []string{}, configured: false, expected: false},
		{name: "untracked_overrides_configuration", arguments: []string{"-u"}, configured: false, expected: true},
		{name: "untracked_no_overrides_configuration", arguments: []string{"--untracked=no"}, configured: true, expected: false},
		{name: "nountracked_overrides_configuration", arguments: []string{"-t"}, configured: true, expected: false},
		{name: "nountracked_wins_over_untracked", arguments: []string{"-u", "-t"}, configured: true, expected: false},
		{name: "nountracked_wins_in_any_order", arguments: []string{"-t", "--untracked=yes"}, configured: false, expected: false},
	}

	for testCaseIndex, testCase := range testCases {
		testInstance.Run(fmt.Sprintf("%d_%s", testCaseIndex, testCase.name), func(subTest *testing.T) {
			command := &cobra.Command{}
			BindQueryFlags(command)

			require.NoError(subTest, command.ParseFlags(testCase.arguments))
			require.Equal(subTest, testCase.expected, ResolveShowUntracked(command, testCase.configured))
		})
	}

	require.True(testInstance, ResolveShowUntracked(nil, true))
	require.False(testInstance, ResolveShowUntracked(&cobra.Command{}, false))
}

func TestResolveJSONOutput(testInstance *testing.T) {
	command := &cobra.Command{}
	BindQueryFlags(command)
	require.False(testInstance, ResolveJSONOutput(command))

	require.NoError(testInstance, command.ParseFlags([]string{"--json"}))
	require.True(testInstance, ResolveJSONOutput(command))
	require.False(testInstance, ResolveJSONOutput(nil))
}
