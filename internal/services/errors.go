package services

// Custom errors. Message is what the workspace shows in its error banner;
// Err keeps the upstream cause for logs.

type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	for _, msg := range e.Fields {
		return msg
	}
	return "Validation error"
}

type NotFoundError struct{ Message string }

func (e *NotFoundError) Error() string { return e.Message }

// CredentialError means no usable service credential is selected.
type CredentialError struct {
	Message string
	Err     error
}

func (e *CredentialError) Error() string { return e.Message }
func (e *CredentialError) Unwrap() error { return e.Err }

// GenerationError covers outline requests that failed, came back empty or
// could not be parsed.
type GenerationError struct {
	Message string
	Err     error
}

func (e *GenerationError) Error() string { return e.Message }
func (e *GenerationError) Unwrap() error { return e.Err }

type ImageGenerationError struct {
	Message string
	// StaleCredential is set when the service reported the requested entity
	// as missing, which happens when the key and model do not belong together.
	StaleCredential bool
	Err             error
}

func (e *ImageGenerationError) Error() string { return e.Message }
func (e *ImageGenerationError) Unwrap() error { return e.Err }

type AnalysisError struct {
	Message string
	Err     error
}

func (e *AnalysisError) Error() string { return e.Message }
func (e *AnalysisError) Unwrap() error { return e.Err }
