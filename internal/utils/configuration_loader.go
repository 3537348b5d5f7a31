package utils

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
)

const (
	environmentKeySeparatorOldConstant              = "."
	environmentKeySeparatorNewConstant              = "_"
	environmentVariableTemplateConstant             = "%s_%s"
	listValueSeparatorConstant                      = ","
	configurationReadErrorTemplateConstant          = "failed to read configuration: %w"
	configurationUnmarshalErrorTemplateConstant     = "failed to parse configuration: %w"
	embeddedConfigurationMergeErrorTemplateConstant = "failed to merge embedded configuration: %w"
)

// ConfigurationSources names every layer the loader consults, lowest precedence first:
// embedded defaults, the first configuration file found, then prefixed environment variables.
type ConfigurationSources struct {
	Name              string
	Type              string
	EnvironmentPrefix string
	SearchPaths       []string
	Embedded          []byte
}

// ConfigurationLoader wraps Viper to load layered configuration into a mapstructure-tagged target.
type ConfigurationLoader struct {
	sources                ConfigurationSources
	environmentKeyReplacer *strings.Replacer
}

// LoadedConfiguration surfaces metadata about the resolved configuration.
type LoadedConfiguration struct {
	ConfigFileUsed       string
	EnvironmentOverrides []string
}

// NewConfigurationLoader creates a loader for the provided sources. Blank search paths are dropped.
func NewConfigurationLoader(sources ConfigurationSources) *ConfigurationLoader {
	searchPaths := make([]string, 0, len(sources.SearchPaths))
	for _, searchPath := range sources.SearchPaths {
		if len(strings.TrimSpace(searchPath)) == 0 {
			continue
		}
		searchPaths = append(searchPaths, searchPath)
	}
	sources.SearchPaths = searchPaths
	sources.Embedded = bytes.Clone(sources.Embedded)

	return &ConfigurationLoader{
		sources:                sources,
		environmentKeyReplacer: strings.NewReplacer(environmentKeySeparatorOldConstant, environmentKeySeparatorNewConstant),
	}
}

// LoadConfiguration populates targetConfiguration from the configured sources.
// An explicit configurationFilePath replaces the search paths and must exist.
// Comma-separated strings decode into string slices so list settings can be supplied through the environment.
func (loader *ConfigurationLoader) LoadConfiguration(configurationFilePath string, defaultValues map[string]any, targetConfiguration any) (LoadedConfiguration, error) {
	viperInstance := viper.New()
	viperInstance.SetConfigName(loader.sources.Name)
	viperInstance.SetConfigType(loader.sources.Type)

	if len(loader.sources.Embedded) > 0 {
		if mergeError := viperInstance.MergeConfig(bytes.NewReader(loader.sources.Embedded)); mergeError != nil {
			return LoadedConfiguration{}, fmt.Errorf(embeddedConfigurationMergeErrorTemplateConstant, mergeError)
		}
	}

	for defaultKey, defaultValue := range defaultValues {
		viperInstance.SetDefault(defaultKey, defaultValue)
	}

	if readError := loader.mergeConfigurationFile(viperInstance, configurationFilePath); readError != nil {
		return LoadedConfiguration{}, readError
	}

	viperInstance.SetEnvPrefix(loader.sources.EnvironmentPrefix)
	viperInstance.SetEnvKeyReplacer(loader.environmentKeyReplacer)
	viperInstance.AutomaticEnv()

	decodeHook := viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(listValueSeparatorConstant),
	))
	if unmarshalError := viperInstance.Unmarshal(targetConfiguration, decodeHook); unmarshalError != nil {
		return LoadedConfiguration{}, fmt.Errorf(configurationUnmarshalErrorTemplateConstant, unmarshalError)
	}

	return LoadedConfiguration{
		ConfigFileUsed:       viperInstance.ConfigFileUsed(),
		EnvironmentOverrides: loader.environmentOverrides(viperInstance.AllKeys()),
	}, nil
}

func (loader *ConfigurationLoader) mergeConfigurationFile(viperInstance *viper.Viper, configurationFilePath string) error {
	if len(configurationFilePath) > 0 {
		viperInstance.SetConfigFile(configurationFilePath)
	} else {
		for _, searchPath := range loader.sources.SearchPaths {
			viperInstance.AddConfigPath(searchPath)
		}
	}

	readError := viperInstance.MergeInConfig()
	if readError == nil {
		return nil
	}
	var notFoundError viper.ConfigFileNotFoundError
	if errors.As(readError, &notFoundError) {
		return nil
	}
	return fmt.Errorf(configurationReadErrorTemplateConstant, readError)
}

func (loader *ConfigurationLoader) environmentOverrides(keys []string) []string {
	overrides := make([]string, 0)
	for _, key := range keys {
		variableName := strings.ToUpper(loader.environmentKeyReplacer.Replace(key))
		if len(loader.sources.EnvironmentPrefix) > 0 {
			variableName = fmt.Sprintf(environmentVariableTemplateConstant, strings.ToUpper(loader.sources.EnvironmentPrefix), variableName)
		}
		if _, present := os.LookupEnv(variableName); present {
			overrides = append(overrides, key)
		}
	}
	sort.Strings(overrides)
	return overrides
}
