package fleet_test

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/temirov/git-global/internal/fleet"
	"github.com/temirov/git-global/internal/repos/filesystem"
)

const ignoreEditorCommentConstant = "# managed by hand"

func TestIgnorePatternEditorAppend(testInstance *testing.T) {
	testCases := []struct {
		name                   string
		initialContents        *string
		effectivePatterns      []string
		pattern                string
		expectedChanged        bool
		expectedIgnore         []string
		expectedDefaultCommand string
	}{
		{
			name:              "creates_missing_file_seeded_with_effective_patterns",
			effectivePatterns: []string{".cargo"},
			pattern:           "vendor",
			expectedChanged:   true,
			expectedIgnore:    []string{".cargo", "vendor"},
		},
		{
			name:                   "preserves_other_settings",
			initialContents:        stringPointer(ignoreEditorCommentConstant + "\nquery:\n  default_command: list\ndiscovery:\n  ignore:\n    - node_modules\n"),
			effectivePatterns:      []string{"node_modules"},
			pattern:                "build",
			expectedChanged:        true,
			expectedIgnore:         []string{"node_modules", "build"},
			expectedDefaultCommand: "list",
		},
		{
			name:                   "adds_discovery_section",
			initialContents:        stringPointer("query:\n  default_command: ahead\n"),
			effectivePatterns:      []string{".cargo"},
			pattern:                "tmp",
			expectedChanged:        true,
			expectedIgnore:         []string{".cargo", "tmp"},
			expectedDefaultCommand: "ahead",
		},
		{
			name:              "expands_comma_separated_scalar",
			initialContents:   stringPointer("discovery:\n  ignore: a, b\n"),
			effectivePatterns: []string{"a", "b"},
			pattern:           "c",
			expectedChanged:   true,
			expectedIgnore:    []string{"a", "b", "c"},
		},
		{
			name:              "duplicate_is_unchanged",
			initialContents:   stringPointer("discovery:\n  ignore:\n    - vendor\n"),
			effectivePatterns: []string{"vendor"},
			pattern:           "vendor",
			expectedChanged:   false,
			expectedIgnore:    []string{"vendor"},
		},
		{
			name:              "empty_file",
			initialContents:   stringPointer(""),
			effectivePatterns: nil,
			pattern:           "vendor",
			expectedChanged:   true,
			expectedIgnore:    []string{"vendor"},
		},
	}

	for testCaseIndex, testCase := range testCases {
		testInstance.Run(fmt.Sprintf("%d_%s", testCaseIndex, testCase.name), func(subTest *testing.T) {
			configurationFilePath := filepath.Join(subTest.TempDir(), "git-global", "config.yaml")
			if testCase.initialContents != nil {
				require.NoError(subTest, os.MkdirAll(filepath.Dir(configurationFilePath), 0o755))
				require.NoError(subTest, os.WriteFile(configurationFilePath, []byte(*testCase.initialContents), 0o644))
			}

			editor := fleet.NewIgnorePatternEditor(filesystem.OSFileSystem{})
			changed, appendError := editor.Append(configurationFilePath, testCase.effectivePatterns, testCase.pattern)
			require.NoError(subTest, appendError)
			require.Equal(subTest, testCase.expectedChanged, changed)

			contents, readError := os.ReadFile(configurationFilePath)
			require.NoError(subTest, readError)

			var persisted persistedConfiguration
			require.NoError(subTest, yaml.Unmarshal(contents, &persisted))
			require.Equal(subTest, testCase.expectedIgnore, persisted.Discovery.Ignore)
			require.Equal(subTest, testCase.expectedDefaultCommand, persisted.Query.DefaultCommand)
			if testCase.initialContents != nil && len(*testCase.initialContents) > 0 && (*testCase.initialContents)[0] == '#' {
				require.Contains(subTest, string(contents), ignoreEditorCommentConstant)
			}
		})
	}
}

func TestIgnorePatternEditorRejectsNonMappingDocuments(testInstance *testing.T) {
	configurationFilePath := filepath.Join(testInstance.TempDir(), "config.yaml")
	require.NoError(testInstance, os.WriteFile(configurationFilePath, []byte("- vendor\n"), 0o644))

	editor := fleet.NewIgnorePatternEditor(filesystem.OSFileSystem{})
	changed, appendError := editor.Append(configurationFilePath, nil, "build")
	require.Error(testInstance, appendError)
	require.False(testInstance, changed)
}

func TestIgnorePatternEditorRejectsNonListIgnoreSetting(testInstance *testing.T) {
	originalContents := "discovery:\n  ignore:\n    vendor: true\n"
	configurationFilePath := filepath.Join(testInstance.TempDir(), "config.yaml")
	require.NoError(testInstance, os.WriteFile(configurationFilePath, []byte(originalContents), 0o644))

	editor := fleet.NewIgnorePatternEditor(filesystem.OSFileSystem{})
	changed, appendError := editor.Append(configurationFilePath, nil, "build")
	require.ErrorContains(testInstance, appendError, "discovery.ignore is not a list")
	require.False(testInstance, changed)

	contents, readError := os.ReadFile(configurationFilePath)
	require.NoError(testInstance, readError)
	require.Equal(testInstance, originalContents, string(contents))
}

func TestIgnorePatternEditorKeepsJSONFilesJSON(testInstance *testing.T) {
	testCases := []struct {
		name            string
		fileName        string
		initialContents *string
		expectedIgnore  []string
		expectedCommand string
	}{
		{
			name:            "existing_document",
			fileName:        "config.json",
			initialContents: stringPointer(`{"discovery": {"root": "~/src", "ignore": [".cargo"]}, "query": {"default_command": "list", "parallelism": 4}}`),
			expectedIgnore:  []string{".cargo", "vendor"},
			expectedCommand: "list",
		},
		{
			name:           "missing_file",
			fileName:       "settings.JSON",
			expectedIgnore: []string{".cargo", "vendor"},
		},
	}

	for testCaseIndex, testCase := range testCases {
		testInstance.Run(fmt.Sprintf("%d_%s", testCaseIndex, testCase.name), func(subTest *testing.T) {
			configurationFilePath := filepath.Join(subTest.TempDir(), testCase.fileName)
			if testCase.initialContents != nil {
				require.NoError(subTest, os.WriteFile(configurationFilePath, []byte(*testCase.initialContents), 0o644))
			}

			editor := fleet.NewIgnorePatternEditor(filesystem.OSFileSystem{})
			changed, appendError := editor.Append(configurationFilePath, []string{".cargo"}, "vendor")
			require.NoError(subTest, appendError)
			require.True(subTest, changed)

			contents, readError := os.ReadFile(configurationFilePath)
			require.NoError(subTest, readError)

			var persisted struct {
				Discovery struct {
					Ignore []string `json:"ignore"`
				} `json:"discovery"`
				Query struct {
					DefaultCommand string `json:"default_command"`
					Parallelism    int    `json:"parallelism"`
				} `json:"query"`
			}
			require.NoError(subTest, json.Unmarshal(contents, &persisted))
			require.Equal(subTest, testCase.expectedIgnore, persisted.Discovery.Ignore)
			require.Equal(subTest, testCase.expectedCommand, persisted.Query.DefaultCommand)
			if testCase.initialContents != nil {
				require.Equal(subTest, 4, persisted.Query.Parallelism)
			}
		})
	}
}

func stringPointer(value string) *string {
	return &value
}
