package translator

import (
	"context"
	"fmt"
	"time"
)

type ServiceConfig struct {
	Credentials string        `mapstructure:"credentials" json:"credentials"`
	ProjectID   string        `mapstructure:"project_id" json:"project_id"`
	Model       string        `mapstructure:"model" json:"model"`
	Timeout     time.Duration `mapstructure:"timeout" json:"timeout"`
}

type TranslateRequest struct {
	Text       string `json:"text"`
	SourceLang string `json:"source_lang"`
	TargetLang string `json:"target_lang"`
}

type ServiceResult struct {
	ServiceName    string            `json:"service_name"`
	TranslatedText string            `json:"translated_text"`
	Metadata       map[string]string `json:"metadata"`
	Latency        time.Duration     `json:"latency"`
	Error          string            `json:"error,omitempty"`
}

// TranslationService is the network boundary to an external translator.
// Implementations must not retry; a failed call is reported as is.
type TranslationService interface {
	Name() string
	Translate(ctx context.Context, cfg ServiceConfig, req TranslateRequest) (*ServiceResult, error)
	IsAvailable(ctx context.Context) error
	SupportedLanguages(ctx context.Context) ([]string, error)
}

// ServiceError reports a translation call the external service could not
// complete: unreachable, rejected, over quota or otherwise failed.
type ServiceError struct {
	Service    string
	SourceLang string
	TargetLang string
	Err        error
}

func (e *ServiceError) Error() string {
	return fmt.Sprintf("%s: translate %s->%s: %v", e.Service, e.SourceLang, e.TargetLang, e.Err)
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}
