package fleet_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"

	"github.com/temirov/git-global/internal/fleet"
	"github.com/temirov/git-global/internal/repos/shared"
	flagutils "github.com/temirov/git-global/internal/utils/flags"
)

type commandFixture struct {
	scanner   *stubScanner
	inspector *stubInspector
	output    *bytes.Buffer
	root      *cobra.Command
}

type renderedDocument struct {
	Error        bool     `json:"error"`
	Command      string   `json:"command"`
	Messages     []string `json:"messages"`
	Repositories []struct {
		Path    string   `json:"path"`
		Lines   []string `json:"lines"`
		Failure *struct {
			Reason string `json:"reason"`
		} `json:"failure"`
	} `json:"repositories"`
}

func newCommandFixture(testInstance *testing.T, mutate func(*fleet.Configuration)) commandFixture {
	testInstance.Helper()

	scanner := &stubScanner{repositories: identities("/h/a", "/h/b", "/h/c")}
	inspector := newStubInspector()
	inspector.findings["/h/b"] = shared.Findings{Lines: []string{"?? " + testModifiedFileConstant}}

	configuration := fleet.DefaultConfiguration()
	configuration.Discovery.Root = testRootConstant
	configuration.Cache.File = filepath.Join(testInstance.TempDir(), "repos.yaml")
	if mutate != nil {
		mutate(&configuration)
	}

	builder := fleet.CommandBuilder{
		ConfigurationProvider: func() fleet.Configuration { return configuration },
		VersionProvider:       func() string { return testVersionConstant },
		Scanner:               scanner,
		Inspector:             inspector,
		Clock:                 fixedClock{now: testNow},
		HomeExpander:          testHomeExpander(),
	}
	subcommands := builder.Build()

	root := &cobra.Command{
		Use:           "git-global",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          builder.RunDefault,
	}
	flagutils.BindQueryFlags(root)
	root.AddCommand(subcommands...)

	output := &bytes.Buffer{}
	root.SetOut(output)
	root.SetErr(&bytes.Buffer{})

	return commandFixture{scanner: scanner, inspector: inspector, output: output, root: root}
}

func (fixture commandFixture) execute(arguments ...string) error {
	fixture.root.SetArgs(arguments)
	return fixture.root.ExecuteContext(context.Background())
}

func TestCommandBuilderBuildsEveryKind(testInstance *testing.T) {
	builder := fleet.CommandBuilder{}
	subcommands := builder.Build()

	names := make([]string, 0, len(subcommands))
	for _, subcommand := range subcommands {
		names = append(names, subcommand.Name())
		require.NotEmpty(testInstance, subcommand.Short)
	}

	expected := make([]string, 0)
	for _, kind := range shared.QueryKinds() {
		expected = append(expected, string(kind))
	}
	require.Equal(testInstance, expected, names)
}

func TestCommandRendersText(testInstance *testing.T) {
	testCases := []struct {
		name           string
		mutate         func(*fleet.Configuration)
		arguments      []string
		expectedOutput string
	}{
		{
			name:           "status",
			arguments:      []string{"status"},
			expectedOutput: "/h/b\n?? " + testModifiedFileConstant + "\n",
		},
		{
			name:           "configured_default_command",
			mutate:         func(configuration *fleet.Configuration) { configuration.Query.DefaultCommand = "list" },
			arguments:      []string{},
			expectedOutput: "/h/a\n/h/b\n/h/c\n",
		},
		{
			name:           "scan",
			arguments:      []string{"scan"},
			expectedOutput: "Found 3 repos. Use `git global list` to show them.\n",
		},
		{
			name:           "ignored",
			arguments:      []string{"ignored"},
			expectedOutput: "Ignored patterns (1):\n  .cargo\n",
		},
	}

	for testCaseIndex, testCase := range testCases {
		testInstance.Run(fmt.Sprintf("%d_%s", testCaseIndex, testCase.name), func(subTest *testing.T) {
			fixture := newCommandFixture(subTest, testCase.mutate)
			require.NoError(subTest, fixture.execute(testCase.arguments...))
			require.Equal(subTest, testCase.expectedOutput, fixture.output.String())
		})
	}
}

func TestCommandRendersJSON(testInstance *testing.T) {
	testCases := []struct {
		name      string
		mutate    func(*fleet.Configuration)
		arguments []string
	}{
		{
			name:      "flag",
			arguments: []string{"--json", "status"},
		},
		{
			name:      "configured_output",
			mutate:    func(configuration *fleet.Configuration) { configuration.Query.Output = "json" },
			arguments: []string{"status"},
		},
	}

	for testCaseIndex, testCase := range testCases {
		testInstance.Run(fmt.Sprintf("%d_%s", testCaseIndex, testCase.name), func(subTest *testing.T) {
			fixture := newCommandFixture(subTest, testCase.mutate)
			fixture.inspector.missing["/h/c"] = true
			require.NoError(subTest, fixture.execute(testCase.arguments...))

			var document renderedDocument
			require.NoError(subTest, json.Unmarshal(fixture.output.Bytes(), &document))
			require.False(subTest, document.Error)
			require.Equal(subTest, "status", document.Command)
			require.Empty(subTest, document.Messages)
			require.Len(subTest, document.Repositories, 2)
			require.Equal(subTest, "/h/b", document.Repositories[0].Path)
			require.Equal(subTest, []string{"?? " + testModifiedFileConstant}, document.Repositories[0].Lines)
			require.Nil(subTest, document.Repositories[0].Failure)
			require.Equal(subTest, "/h/c", document.Repositories[1].Path)
			require.NotNil(subTest, document.Repositories[1].Failure)
			require.Equal(subTest, "missing", document.Repositories[1].Failure.Reason)
		})
	}
}

func TestCommandUntrackedFlags(testInstance *testing.T) {
	testCases := []struct {
		name                  string
		configuredUntracked   bool
		arguments             []string
		expectedShowUntracked bool
	}{
		{name: "configured_default", configuredUntracked: true, arguments: []string{"status"}, expectedShowUntracked: true},
		{name: "untracked_flag", configuredUntracked: false, arguments: []string{"--untracked", "status"}, expectedShowUntracked: true},
		{name: "untracked_flag_false", configuredUntracked: true, arguments: []string{"--untracked=no", "status"}, expectedShowUntracked: false},
		{name: "nountracked_flag", configuredUntracked: true, arguments: []string{"-t", "status"}, expectedShowUntracked: false},
		{name: "nountracked_wins", configuredUntracked: false, arguments: []string{"-u", "-t", "status"}, expectedShowUntracked: false},
	}

	for testCaseIndex, testCase := range testCases {
		testInstance.Run(fmt.Sprintf("%d_%s", testCaseIndex, testCase.name), func(subTest *testing.T) {
			fixture := newCommandFixture(subTest, func(configuration *fleet.Configuration) {
				configuration.Query.ShowUntracked = testCase.configuredUntracked
			})
			require.NoError(subTest, fixture.execute(testCase.arguments...))
			require.Len(subTest, fixture.inspector.options, 3)
			for _, options := range fixture.inspector.options {
				require.Equal(subTest, testCase.expectedShowUntracked, options.ShowUntracked)
			}
		})
	}
}

func TestCommandFailures(testInstance *testing.T) {
	testCases := []struct {
		name      string
		mutate    func(*fleet.Configuration)
		arguments []string
		assert    func(*testing.T, error)
	}{
		{
			name:      "ignore_requires_pattern",
			arguments: []string{"ignore"},
			assert: func(subTest *testing.T, executionError error) {
				require.Error(subTest, executionError)
			},
		},
		{
			name:      "query_rejects_arguments",
			arguments: []string{"status", "extra"},
			assert: func(subTest *testing.T, executionError error) {
				require.Error(subTest, executionError)
			},
		},
		{
			name:      "invalid_configuration",
			mutate:    func(configuration *fleet.Configuration) { configuration.Query.Output = "xml" },
			arguments: []string{"status"},
			assert: func(subTest *testing.T, executionError error) {
				var configurationError shared.ConfigurationError
				require.ErrorAs(subTest, executionError, &configurationError)
				require.Equal(subTest, "query.output", configurationError.Setting)
			},
		},
	}

	for testCaseIndex, testCase := range testCases {
		testInstance.Run(fmt.Sprintf("%d_%s", testCaseIndex, testCase.name), func(subTest *testing.T) {
			fixture := newCommandFixture(subTest, testCase.mutate)
			testCase.assert(subTest, fixture.execute(testCase.arguments...))
			require.Zero(subTest, fixture.scanner.calls)
		})
	}
}
