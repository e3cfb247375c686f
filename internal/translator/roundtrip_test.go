package translator

import (
	"context"
	"errors"
	"testing"
	"time"
)

type mockService struct {
	nameVal       string
	translateFunc func(ctx context.Context, cfg ServiceConfig, req TranslateRequest) (*ServiceResult, error)
	calls         []TranslateRequest
}

func (m *mockService) Name() string { return m.nameVal }

func (m *mockService) Translate(ctx context.Context, cfg ServiceConfig, req TranslateRequest) (*ServiceResult, error) {
	m.calls = append(m.calls, req)
	if m.translateFunc != nil {
		return m.translateFunc(ctx, cfg, req)
	}
	return &ServiceResult{ServiceName: m.nameVal, TranslatedText: req.Text}, nil
}

func (m *mockService) IsAvailable(ctx context.Context) error { return nil }

func (m *mockService) SupportedLanguages(ctx context.Context) ([]string, error) {
	return []string{"en", "de"}, nil
}

func TestRoundTripper_RoundTrip(t *testing.T) {
	svc := &mockService{
		nameVal: "mock",
		translateFunc: func(ctx context.Context, cfg ServiceConfig, req TranslateRequest) (*ServiceResult, error) {
			switch req.TargetLang {
			case "de":
				return &ServiceResult{TranslatedText: "Welche Farbe hat der Himmel?"}, nil
			case "en":
				return &ServiceResult{TranslatedText: "Which Color Does The Sky Have?"}, nil
			}
			return nil, errors.New("unexpected target")
		},
	}

	rt := NewRoundTripper(svc, ServiceConfig{}, "")
	got, err := rt.RoundTrip(context.Background(), "what color is the sky?", "de")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "which color does the sky have?" {
		t.Errorf("expected lower-cased back-translation, got %q", got)
	}

	if len(svc.calls) != 2 {
		t.Fatalf("expected 2 calls, got %d", len(svc.calls))
	}
	if svc.calls[0].SourceLang != "en" || svc.calls[0].TargetLang != "de" {
		t.Errorf("unexpected first leg: %+v", svc.calls[0])
	}
	if svc.calls[1].SourceLang != "de" || svc.calls[1].TargetLang != "en" {
		t.Errorf("unexpected second leg: %+v", svc.calls[1])
	}
	if svc.calls[1].Text != "Welche Farbe hat der Himmel?" {
		t.Errorf("second leg should translate the first leg's output, got %q", svc.calls[1].Text)
	}
}

func TestRoundTripper_CustomSourceLang(t *testing.T) {
	svc := &mockService{nameVal: "mock"}
	rt := NewRoundTripper(svc, ServiceConfig{}, "fr")

	if _, err := rt.RoundTrip(context.Background(), "Bonjour", "de"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if svc.calls[0].SourceLang != "fr" || svc.calls[1].TargetLang != "fr" {
		t.Errorf("expected round trip through fr, got %+v", svc.calls)
	}
	if rt.SourceLang() != "fr" {
		t.Errorf("expected source fr, got %q", rt.SourceLang())
	}
}

func TestRoundTripper_Translate_ServiceError(t *testing.T) {
	cause := errors.New("quota exceeded")
	svc := &mockService{
		nameVal: "mock",
		translateFunc: func(ctx context.Context, cfg ServiceConfig, req TranslateRequest) (*ServiceResult, error) {
			return &ServiceResult{Error: cause.Error()}, cause
		},
	}

	rt := NewRoundTripper(svc, ServiceConfig{}, "en")
	_, err := rt.Translate(context.Background(), "hi", "en", "ja")

	var svcErr *ServiceError
	if !errors.As(err, &svcErr) {
		t.Fatalf("expected *ServiceError, got %T: %v", err, err)
	}
	if svcErr.Service != "mock" || svcErr.SourceLang != "en" || svcErr.TargetLang != "ja" {
		t.Errorf("unexpected error fields: %+v", svcErr)
	}
	if !errors.Is(err, cause) {
		t.Error("expected the cause to be wrapped")
	}
}

func TestRoundTripper_Translate_ResultError(t *testing.T) {
	svc := &mockService{
		nameVal: "mock",
		translateFunc: func(ctx context.Context, cfg ServiceConfig, req TranslateRequest) (*ServiceResult, error) {
			return &ServiceResult{Error: "rejected"}, nil
		},
	}

	rt := NewRoundTripper(svc, ServiceConfig{}, "en")
	_, err := rt.Translate(context.Background(), "hi", "en", "de")

	var svcErr *ServiceError
	if !errors.As(err, &svcErr) {
		t.Fatalf("expected *ServiceError, got %v", err)
	}
}

func TestRoundTripper_RoundTrip_StopsOnFirstLegFailure(t *testing.T) {
	svc := &mockService{
		nameVal: "mock",
		translateFunc: func(ctx context.Context, cfg ServiceConfig, req TranslateRequest) (*ServiceResult, error) {
			return nil, errors.New("unreachable")
		},
	}

	rt := NewRoundTripper(svc, ServiceConfig{}, "en")
	if _, err := rt.RoundTrip(context.Background(), "hi", "de"); err == nil {
		t.Fatal("expected error")
	}
	if len(svc.calls) != 1 {
		t.Errorf("expected no second call after failure, got %d calls", len(svc.calls))
	}
}

func TestRoundTripper_ServiceName(t *testing.T) {
	rt := NewRoundTripper(&mockService{nameVal: "google"}, ServiceConfig{}, "en")
	if rt.ServiceName() != "google" {
		t.Errorf("expected google, got %q", rt.ServiceName())
	}
}

func TestRoundTripper_Translate_AppliesTimeout(t *testing.T) {
	var hadDeadline bool
	svc := &mockService{
		nameVal: "mock",
		translateFunc: func(ctx context.Context, cfg ServiceConfig, req TranslateRequest) (*ServiceResult, error) {
			_, hadDeadline = ctx.Deadline()
			return &ServiceResult{TranslatedText: "hallo"}, nil
		},
	}

	rt := NewRoundTripper(svc, ServiceConfig{Timeout: time.Minute}, "en")
	if _, err := rt.Translate(context.Background(), "hello", "en", "de"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !hadDeadline {
		t.Error("expected the call to carry a deadline")
	}
}
