// Package actions maps resolved intents to their side effects: screen
// navigation, advisory data fetches, or nothing beyond the spoken reply.
package actions

import (
	"context"
	"strings"

	"github.com/rs/zerolog"

	"github.com/kisanmitra/ariavoice/internal/advisory"
	"github.com/kisanmitra/ariavoice/internal/intent"
)

// Navigator is the navigation collaborator. Navigation is fire-and-forget
// from the session's point of view; errors are logged, never fatal.
type Navigator interface {
	Navigate(screen string, params map[string]string) error
}

// Fetcher is the advisory data-fetch collaborator.
type Fetcher interface {
	PriceForecast(ctx context.Context, params map[string]string) (advisory.Result, error)
	BestMandi(ctx context.Context, params map[string]string) (advisory.Result, error)
	HarvestWindow(ctx context.Context, params map[string]string) (advisory.Result, error)
	FullAdvisory(ctx context.Context, params map[string]string) (advisory.Result, error)
	Weather(ctx context.Context, params map[string]string) (advisory.Result, error)
}

// Executor executes intents and returns the text to speak.
type Executor struct {
	nav     Navigator
	fetcher Fetcher
	locale  string
	logger  zerolog.Logger
}

// NewExecutor creates an executor.
func NewExecutor(nav Navigator, fetcher Fetcher, locale string, logger zerolog.Logger) *Executor {
	return &Executor{
		nav:     nav,
		fetcher: fetcher,
		locale:  locale,
		logger:  logger.With().Str("component", "actions").Logger(),
	}
}

func (e *Executor) genericFallback() string {
	if strings.HasPrefix(e.locale, "hi") {
		return "माफ़ कीजिए, अभी जानकारी नहीं मिल पाई। थोड़ी देर बाद कोशिश करें।"
	}
	return "Sorry, I couldn't get that information right now. Please try again later."
}

// Execute performs the intent's side effect and returns the text to
// speak. A fetch failure never aborts the turn: the caller always gets
// something speakable back.
func (e *Executor) Execute(ctx context.Context, it intent.Intent, uc intent.Context) string {
	switch it.Kind {
	case intent.KindNavigate:
		if e.nav != nil {
			if err := e.nav.Navigate(it.Screen, it.Params); err != nil {
				e.logger.Warn().Err(err).Str("screen", it.Screen).Msg("navigation failed")
			}
		}
		return it.Response

	case intent.KindFetch:
		return e.executeFetch(ctx, it, uc)

	case intent.KindStop, intent.KindChat, intent.KindUnknown:
		return it.Response
	}
	return it.Response
}

// executeFetch merges the ambient context under the intent params (intent
// params win) and speaks a summary composed from the response shape.
func (e *Executor) executeFetch(ctx context.Context, it intent.Intent, uc intent.Context) string {
	params := uc.Map()
	for k, v := range it.Params {
		if v != "" {
			params[k] = v
		}
	}

	var (
		result advisory.Result
		err    error
	)
	switch it.Action {
	case intent.ActionPriceForecast:
		result, err = e.fetcher.PriceForecast(ctx, params)
	case intent.ActionBestMandi:
		result, err = e.fetcher.BestMandi(ctx, params)
	case intent.ActionHarvestWindow:
		result, err = e.fetcher.HarvestWindow(ctx, params)
	case intent.ActionFullAdvisory:
		result, err = e.fetcher.FullAdvisory(ctx, params)
	case intent.ActionWeather:
		result, err = e.fetcher.Weather(ctx, params)
	default:
		e.logger.Warn().Str("action", it.Action).Msg("unknown fetch action")
		return e.fallback(it)
	}

	if err != nil {
		e.logger.Warn().Err(err).Str("action", it.Action).Msg("fetch failed, speaking fallback")
		return e.fallback(it)
	}

	summary := e.composeSummary(it.Action, params, result)
	if summary == "" {
		return e.fallback(it)
	}
	return summary
}

func (e *Executor) fallback(it intent.Intent) string {
	if it.Response != "" {
		return it.Response
	}
	return e.genericFallback()
}
