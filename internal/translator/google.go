package translator

import (
	"context"
	"fmt"
	"time"

	translate "cloud.google.com/go/translate"
	translateapi "cloud.google.com/go/translate/apiv3"
	"cloud.google.com/go/translate/apiv3/translatepb"
	"golang.org/x/text/language"
	"google.golang.org/api/option"
)

// GoogleService talks to Google Cloud Translation. With a project id it
// uses the v3 API under projects/{id}/locations/global, otherwise the v2
// basic API. Clients are created on first use and kept until Close.
type GoogleService struct {
	basic    *translate.Client
	advanced *translateapi.TranslationClient
}

func NewGoogleService() *GoogleService {
	return &GoogleService{}
}

func (s *GoogleService) Name() string {
	return "google"
}

func (s *GoogleService) Translate(ctx context.Context, cfg ServiceConfig, req TranslateRequest) (*ServiceResult, error) {
	result := &ServiceResult{ServiceName: s.Name()}
	start := time.Now()
	defer func() { result.Latency = time.Since(start) }()

	target, err := language.Parse(req.TargetLang)
	if err != nil {
		result.Error = fmt.Sprintf("invalid target language: %v", err)
		return result, fmt.Errorf("invalid target language: %w", err)
	}
	source, err := language.Parse(req.SourceLang)
	if err != nil {
		result.Error = fmt.Sprintf("invalid source language: %v", err)
		return result, fmt.Errorf("invalid source language: %w", err)
	}

	var text string
	if cfg.ProjectID != "" {
		text, err = s.translateAdvanced(ctx, cfg, req)
		result.Metadata = map[string]string{"api": "v3", "project": cfg.ProjectID}
	} else {
		text, err = s.translateBasic(ctx, cfg, req.Text, source, target)
		result.Metadata = map[string]string{"api": "v2"}
	}
	if err != nil {
		result.Error = err.Error()
		return result, err
	}

	result.TranslatedText = text
	return result, nil
}

func (s *GoogleService) translateBasic(ctx context.Context, cfg ServiceConfig, text string, source, target language.Tag) (string, error) {
	if s.basic == nil {
		client, err := translate.NewClient(ctx, clientOptions(cfg)...)
		if err != nil {
			return "", fmt.Errorf("failed to create client: %w", err)
		}
		s.basic = client
	}

	translations, err := s.basic.Translate(ctx, []string{text}, target, &translate.Options{
		Source: source,
		Format: translate.Text,
	})
	if err != nil {
		return "", fmt.Errorf("translation failed: %w", err)
	}
	if len(translations) == 0 {
		return "", fmt.Errorf("no translation returned")
	}
	return translations[0].Text, nil
}

func (s *GoogleService) translateAdvanced(ctx context.Context, cfg ServiceConfig, req TranslateRequest) (string, error) {
	if s.advanced == nil {
		client, err := translateapi.NewTranslationClient(ctx, clientOptions(cfg)...)
		if err != nil {
			return "", fmt.Errorf("failed to create client: %w", err)
		}
		s.advanced = client
	}

	resp, err := s.advanced.TranslateText(ctx, &translatepb.TranslateTextRequest{
		Parent:             fmt.Sprintf("projects/%s/locations/global", cfg.ProjectID),
		Contents:           []string{req.Text},
		MimeType:           "text/plain",
		SourceLanguageCode: req.SourceLang,
		TargetLanguageCode: req.TargetLang,
	})
	if err != nil {
		return "", fmt.Errorf("translation failed: %w", err)
	}
	translations := resp.GetTranslations()
	if len(translations) == 0 {
		return "", fmt.Errorf("no translation returned")
	}
	return translations[0].GetTranslatedText(), nil
}

func clientOptions(cfg ServiceConfig) []option.ClientOption {
	var opts []option.ClientOption
	if cfg.Credentials != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.Credentials))
	}
	return opts
}

// IsAvailable is optimistic: credentials are only exercised by the first call.
func (s *GoogleService) IsAvailable(ctx context.Context) error {
	return nil
}

func (s *GoogleService) SupportedLanguages(ctx context.Context) ([]string, error) {
	return nil, nil
}

func (s *GoogleService) Close() error {
	var firstErr error
	if s.basic != nil {
		firstErr = s.basic.Close()
		s.basic = nil
	}
	if s.advanced != nil {
		if err := s.advanced.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		s.advanced = nil
	}
	return firstErr
}
