package intent

import (
	"context"
	"strings"

	"github.com/rs/zerolog"

	"github.com/kisanmitra/ariavoice/internal/nlu"
)

// Interpreter is the remote fallback tier.
type Interpreter interface {
	Interpret(ctx context.Context, transcript string, userContext map[string]string) (*nlu.Reply, error)
}

// Resolver resolves transcripts in two tiers: the local keyword table
// first for deterministic low-latency handling of the common commands,
// then the remote NLU. It never returns an error; every failure mode
// degrades to a speakable Chat intent.
type Resolver struct {
	interpreter Interpreter
	locale      string
	logger      zerolog.Logger
}

// NewResolver creates a resolver with the given NLU fallback.
func NewResolver(interpreter Interpreter, locale string, logger zerolog.Logger) *Resolver {
	return &Resolver{
		interpreter: interpreter,
		locale:      locale,
		logger:      logger.With().Str("component", "intent").Logger(),
	}
}

func (r *Resolver) retryResponse() string {
	if strings.HasPrefix(r.locale, "hi") {
		return "माफ़ कीजिए, मैं समझ नहीं पाई। कृपया फिर से कोशिश करें।"
	}
	return "Sorry, I couldn't understand that. Please try again."
}

// Resolve maps a transcript to an intent.
func (r *Resolver) Resolve(ctx context.Context, transcript string, uc Context) Intent {
	transcript = strings.TrimSpace(transcript)
	if transcript == "" {
		return Intent{Kind: KindUnknown, Response: r.retryResponse()}
	}

	if it, ok := lookupLocal(transcript, r.locale); ok {
		r.logger.Debug().Str("kind", string(it.Kind)).Str("transcript", transcript).Msg("resolved locally")
		return it
	}

	if r.interpreter == nil {
		return Intent{Kind: KindChat, Response: r.retryResponse()}
	}

	reply, err := r.interpreter.Interpret(ctx, transcript, uc.Map())
	if err != nil {
		r.logger.Warn().Err(err).Msg("nlu fallback failed")
		return Intent{Kind: KindChat, Response: r.retryResponse()}
	}
	return r.fromReply(reply)
}

// fromReply maps the NLU reply onto the shared intent type.
func (r *Resolver) fromReply(reply *nlu.Reply) Intent {
	response := strings.TrimSpace(reply.Response)
	if response == "" {
		response = r.retryResponse()
	}

	if reply.Malformed {
		return Intent{Kind: KindChat, Response: response}
	}

	switch strings.ToLower(reply.Intent) {
	case "navigate":
		if reply.Screen == "" {
			return Intent{Kind: KindChat, Response: response}
		}
		return Intent{Kind: KindNavigate, Screen: reply.Screen, Params: reply.Params, Response: response}
	case "fetch":
		if !validAction(reply.Action) {
			r.logger.Warn().Str("action", reply.Action).Msg("nlu returned unknown fetch action")
			return Intent{Kind: KindChat, Response: response}
		}
		return Intent{Kind: KindFetch, Action: reply.Action, Params: reply.Params, Response: response}
	case "stop":
		return Intent{Kind: KindStop, Response: response}
	case "chat", "":
		return Intent{Kind: KindChat, Response: response}
	default:
		return Intent{Kind: KindUnknown, Response: response}
	}
}

func validAction(action string) bool {
	switch action {
	case ActionPriceForecast, ActionBestMandi, ActionHarvestWindow, ActionFullAdvisory, ActionWeather:
		return true
	}
	return false
}
