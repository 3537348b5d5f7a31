package utils

import "context"

const (
	executionMetadataContextKeyConstant = commandContextKey("executionMetadata")
)

type commandContextKey string

// ExecutionMetadata describes where the running command took its settings from.
type ExecutionMetadata struct {
	ConfigurationFilePath string
	Version               string
}

// CommandContextAccessor stores and retrieves execution metadata on command contexts.
type CommandContextAccessor struct{}

// NewCommandContextAccessor constructs a CommandContextAccessor instance.
func NewCommandContextAccessor() CommandContextAccessor {
	return CommandContextAccessor{}
}

// WithExecutionMetadata attaches the metadata to the provided context.
func (accessor CommandContextAccessor) WithExecutionMetadata(parentContext context.Context, metadata ExecutionMetadata) context.Context {
	if parentContext == nil {
		parentContext = context.Background()
	}
	return context.WithValue(parentContext, executionMetadataContextKeyConstant, metadata)
}

// ExecutionMetadata extracts the metadata, reporting whether any was attached.
func (accessor CommandContextAccessor) ExecutionMetadata(executionContext context.Context) (ExecutionMetadata, bool) {
	if executionContext == nil {
		return ExecutionMetadata{}, false
	}
	metadata, available := executionContext.Value(executionMetadataContextKeyConstant).(ExecutionMetadata)
	return metadata, available
}

// ConfigurationFilePath returns the configuration file recorded on the context, if any.
func (accessor CommandContextAccessor) ConfigurationFilePath(executionContext context.Context) (string, bool) {
	metadata, available := accessor.ExecutionMetadata(executionContext)
	if !available || len(metadata.ConfigurationFilePath) == 0 {
		return "", false
	}
	return metadata.ConfigurationFilePath, true
}
