package utils_test

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/temirov/git-global/internal/utils"
)

const (
	testEnvironmentPrefixConstant   = "TESTGITGLOBAL"
	testLogLevelKeyConstant         = "common.log_level"
	testIgnoreKeyConstant           = "discovery.ignore"
	testTimeoutKeyConstant          = "query.timeout"
	testLogLevelVariableConstant    = testEnvironmentPrefixConstant + "_COMMON_LOG_LEVEL"
	testIgnoreVariableConstant      = testEnvironmentPrefixConstant + "_DISCOVERY_IGNORE"
	testTimeoutVariableConstant     = testEnvironmentPrefixConstant + "_QUERY_TIMEOUT"
	testConfigFileNameConstant      = "config.yaml"
	testConfigContentTemplate       = "common:\n  log_level: %s\n"
	testUserConfigurationDirectory  = "git-global"
	testDefaultLogLevelConstant     = "warn"
	testEmbeddedLogLevelConstant    = "info"
	testFileLogLevelConstant        = "debug"
	testEnvironmentLogLevelConstant = "error"
)

type configurationFixture struct {
	Common struct {
		LogLevel string `mapstructure:"log_level"`
	} `mapstructure:"common"`
	Discovery struct {
		Ignore []string `mapstructure:"ignore"`
	} `mapstructure:"discovery"`
	Query struct {
		Timeout time.Duration `mapstructure:"timeout"`
	} `mapstructure:"query"`
}

func newTestLoader(searchPaths []string, embedded []byte) *utils.ConfigurationLoader {
	return utils.NewConfigurationLoader(utils.ConfigurationSources{
		Name:              "config",
		Type:              "yaml",
		EnvironmentPrefix: testEnvironmentPrefixConstant,
		SearchPaths:       searchPaths,
		Embedded:          embedded,
	})
}

func TestConfigurationLoaderLayersSources(testInstance *testing.T) {
	testCases := []struct {
		name                string
		embeddedLogLevel    string
		fileLogLevel        string
		environmentLogLevel string
		expectedLogLevel    string
		expectedEnvironment []string
	}{
		{name: "defaults_apply", expectedLogLevel: testDefaultLogLevelConstant, expectedEnvironment: []string{}},
		{name: "embedded_beats_defaults", embeddedLogLevel: testEmbeddedLogLevelConstant, expectedLogLevel: testEmbeddedLogLevelConstant, expectedEnvironment: []string{}},
		{name: "file_beats_embedded", embeddedLogLevel: testEmbeddedLogLevelConstant, fileLogLevel: testFileLogLevelConstant, expectedLogLevel: testFileLogLevelConstant, expectedEnvironment: []string{}},
		{
			name:                "environment_beats_file",
			embeddedLogLevel:    testEmbeddedLogLevelConstant,
			fileLogLevel:        testFileLogLevelConstant,
			environmentLogLevel: testEnvironmentLogLevelConstant,
			expectedLogLevel:    testEnvironmentLogLevelConstant,
			expectedEnvironment: []string{testLogLevelKeyConstant},
		},
	}

	for testCaseIndex, testCase := range testCases {
		testInstance.Run(fmt.Sprintf("%d_%s", testCaseIndex, testCase.name), func(subTest *testing.T) {
			configurationFilePath := ""
			if len(testCase.fileLogLevel) > 0 {
				configurationFilePath = filepath.Join(subTest.TempDir(), testConfigFileNameConstant)
				require.NoError(subTest, os.WriteFile(configurationFilePath, []byte(fmt.Sprintf(testConfigContentTemplate, testCase.fileLogLevel)), 0o600))
			}
			if len(testCase.environmentLogLevel) > 0 {
				subTest.Setenv(testLogLevelVariableConstant, testCase.environmentLogLevel)
			}

			var embedded []byte
			if len(testCase.embeddedLogLevel) > 0 {
				embedded = []byte(fmt.Sprintf(testConfigContentTemplate, testCase.embeddedLogLevel))
			}
			loader := newTestLoader([]string{subTest.TempDir()}, embedded)

			loadedConfiguration := configurationFixture{}
			metadata, loadError := loader.LoadConfiguration(configurationFilePath, map[string]any{testLogLevelKeyConstant: testDefaultLogLevelConstant}, &loadedConfiguration)
			require.NoError(subTest, loadError)
			require.Equal(subTest, testCase.expectedLogLevel, loadedConfiguration.Common.LogLevel)
			require.Equal(subTest, configurationFilePath, metadata.ConfigFileUsed)
			require.Equal(subTest, testCase.expectedEnvironment, metadata.EnvironmentOverrides)
		})
	}
}

func TestConfigurationLoaderDecodesEnvironmentValues(testInstance *testing.T) {
	testInstance.Setenv(testIgnoreVariableConstant, ".cargo,vendor,node_modules")
	testInstance.Setenv(testTimeoutVariableConstant, "1500ms")

	loader := newTestLoader([]string{testInstance.TempDir()}, nil)

	loadedConfiguration := configurationFixture{}
	metadata, loadError := loader.LoadConfiguration("", map[string]any{
		testIgnoreKeyConstant:  []string{},
		testTimeoutKeyConstant: "0s",
	}, &loadedConfiguration)
	require.NoError(testInstance, loadError)
	require.Equal(testInstance, []string{".cargo", "vendor", "node_modules"}, loadedConfiguration.Discovery.Ignore)
	require.Equal(testInstance, 1500*time.Millisecond, loadedConfiguration.Query.Timeout)
	require.Equal(testInstance, []string{testIgnoreKeyConstant, testTimeoutKeyConstant}, metadata.EnvironmentOverrides)
}

func TestConfigurationLoaderRejectsBrokenFiles(testInstance *testing.T) {
	testCases := []struct {
		name     string
		contents *string
	}{
		{name: "malformed_yaml", contents: stringPointer("common: [unterminated\n")},
		{name: "explicit_file_missing", contents: nil},
	}

	for testCaseIndex, testCase := range testCases {
		testInstance.Run(fmt.Sprintf("%d_%s", testCaseIndex, testCase.name), func(subTest *testing.T) {
			configurationFilePath := filepath.Join(subTest.TempDir(), testConfigFileNameConstant)
			if testCase.contents != nil {
				require.NoError(subTest, os.WriteFile(configurationFilePath, []byte(*testCase.contents), 0o600))
			}

			loadedConfiguration := configurationFixture{}
			_, loadError := newTestLoader(nil, nil).LoadConfiguration(configurationFilePath, nil, &loadedConfiguration)
			require.Error(subTest, loadError)
		})
	}
}

func TestConfigurationLoaderSearchPaths(testInstance *testing.T) {
	testCases := []struct {
		name          string
		pickDirectory func(workingDirectoryPath string, userConfigurationDirectoryPath string) string
	}{
		{
			name:          "working_directory",
			pickDirectory: func(workingDirectoryPath string, _ string) string { return workingDirectoryPath },
		},
		{
			name:          "user_configuration_directory",
			pickDirectory: func(_ string, userConfigurationDirectoryPath string) string { return userConfigurationDirectoryPath },
		},
	}

	for testCaseIndex, testCase := range testCases {
		testInstance.Run(fmt.Sprintf("%d_%s", testCaseIndex, testCase.name), func(subTest *testing.T) {
			workingDirectoryPath := subTest.TempDir()
			homeDirectoryPath := subTest.TempDir()
			subTest.Setenv("HOME", homeDirectoryPath)
			subTest.Setenv("XDG_CONFIG_HOME", filepath.Join(homeDirectoryPath, ".config"))

			userConfigurationBaseDirectoryPath, userConfigurationDirectoryError := os.UserConfigDir()
			require.NoError(subTest, userConfigurationDirectoryError)
			userConfigurationDirectoryPath := filepath.Join(userConfigurationBaseDirectoryPath, testUserConfigurationDirectory)
			require.NoError(subTest, os.MkdirAll(userConfigurationDirectoryPath, 0o755))

			configurationFilePath := filepath.Join(testCase.pickDirectory(workingDirectoryPath, userConfigurationDirectoryPath), testConfigFileNameConstant)
			require.NoError(subTest, os.WriteFile(configurationFilePath, []byte(fmt.Sprintf(testConfigContentTemplate, testFileLogLevelConstant)), 0o600))

			loader := newTestLoader([]string{"", workingDirectoryPath, userConfigurationDirectoryPath}, nil)

			loadedConfiguration := configurationFixture{}
			metadata, loadError := loader.LoadConfiguration("", map[string]any{testLogLevelKeyConstant: testDefaultLogLevelConstant}, &loadedConfiguration)
			require.NoError(subTest, loadError)
			require.Equal(subTest, testFileLogLevelConstant, loadedConfiguration.Common.LogLevel)
			require.Equal(subTest, configurationFilePath, metadata.ConfigFileUsed)
		})
	}
}

func stringPointer(value string) *string {
	return &value
}
