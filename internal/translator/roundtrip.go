package translator

import (
	"context"
	"errors"
	"strings"
)

// DefaultSourceLang is the language the datasets are written in.
const DefaultSourceLang = "en"

// RoundTripper composes two translate calls into a paraphrase:
// source → middle → source. Nothing is cached and nothing is retried.
type RoundTripper struct {
	svc    TranslationService
	cfg    ServiceConfig
	source string
}

func NewRoundTripper(svc TranslationService, cfg ServiceConfig, sourceLang string) *RoundTripper {
	if sourceLang == "" {
		sourceLang = DefaultSourceLang
	}
	return &RoundTripper{svc: svc, cfg: cfg, source: sourceLang}
}

func (t *RoundTripper) SourceLang() string {
	return t.source
}

func (t *RoundTripper) ServiceName() string {
	return t.svc.Name()
}

// Translate performs one call to the service, bounded by the configured
// timeout when one is set. Every failure is returned as a *ServiceError.
func (t *RoundTripper) Translate(ctx context.Context, text, srcLang, dstLang string) (string, error) {
	if t.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.cfg.Timeout)
		defer cancel()
	}

	res, err := t.svc.Translate(ctx, t.cfg, TranslateRequest{
		Text:       text,
		SourceLang: srcLang,
		TargetLang: dstLang,
	})
	switch {
	case err != nil:
	case res == nil:
		err = errors.New("no result returned")
	case res.Error != "":
		err = errors.New(res.Error)
	default:
		return res.TranslatedText, nil
	}
	return "", &ServiceError{
		Service:    t.svc.Name(),
		SourceLang: srcLang,
		TargetLang: dstLang,
		Err:        err,
	}
}

// RoundTrip translates text into middleLang and back, returning the result
// lower-cased.
func (t *RoundTripper) RoundTrip(ctx context.Context, text, middleLang string) (string, error) {
	there, err := t.Translate(ctx, text, t.source, middleLang)
	if err != nil {
		return "", err
	}
	back, err := t.Translate(ctx, there, middleLang, t.source)
	if err != nil {
		return "", err
	}
	return strings.ToLower(back), nil
}
