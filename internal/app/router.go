package app

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jsamuelsen/quotebox/internal/domain"
	"github.com/jsamuelsen/quotebox/internal/platform/logging"
	"github.com/jsamuelsen/quotebox/internal/platform/telemetry"
)

// Command phrases. Matching is case-insensitive substring containment,
// so no phrase may contain another.
const (
	PhraseInspire = "inspire me"
	PhraseWhat    = "what was that"
	PhraseAdd     = "add a quote"
	PhraseForget  = "forget"
	PhraseAbort   = "never mind"
)

// Command names the handler an utterance was dispatched to.
type Command string

const (
	CommandRandomQuote  Command = "random_quote"
	CommandIdentifyLast Command = "identify_last"
	CommandAddQuote     Command = "add_quote"
	CommandForget       Command = "forget"
	CommandUnrecognized Command = "unrecognized"
)

// Hints returns the phrases passed to transcribers to bias recognition.
func Hints() []string {
	return []string{PhraseInspire, PhraseWhat, PhraseAdd, PhraseForget, PhraseAbort}
}

// Dispatch describes what the router did with one utterance.
type Dispatch struct {
	Command   Command
	Utterance string
}

type handler func(ctx context.Context, utterance string) error

type route struct {
	phrase  string
	command Command
	handle  handler
}

// Router maps utterances to command handlers in a fixed priority order.
type Router struct {
	store    *domain.QuoteStore
	voice    *Voice
	dialog   *Dialog
	executor *Executor
	metrics  *telemetry.Metrics
	routes   []route
}

// RouterConfig holds the router's dependencies.
type RouterConfig struct {
	Store    *domain.QuoteStore
	Voice    *Voice
	Dialog   *Dialog
	Executor *Executor
	Metrics  *telemetry.Metrics
}

// NewRouter creates a router over store.
// Returns an error if any command phrase is a substring of another.
func NewRouter(cfg RouterConfig) (*Router, error) {
	if cfg.Store == nil || cfg.Voice == nil || cfg.Dialog == nil {
		return nil, domain.NewValidationError("router", "store, voice and dialog are required")
	}

	if err := checkPhrases(Hints()); err != nil {
		return nil, err
	}

	executor := cfg.Executor
	if executor == nil {
		executor = NewExecutor(nil)
	}

	r := &Router{
		store:    cfg.Store,
		voice:    cfg.Voice,
		dialog:   cfg.Dialog,
		executor: executor,
		metrics:  cfg.Metrics,
	}

	r.routes = []route{
		{PhraseInspire, CommandRandomQuote, r.randomQuote},
		{PhraseWhat, CommandIdentifyLast, r.identifyLast},
		{PhraseAdd, CommandAddQuote, r.addQuote},
		{PhraseForget, CommandForget, r.forget},
	}

	return r, nil
}

// Route dispatches utterance to the first handler whose phrase it contains,
// or to the help message. The returned error is a handler failure; the
// caller logs it and carries on.
func (r *Router) Route(ctx context.Context, utterance string) (Dispatch, error) {
	utterance = strings.ToLower(utterance)

	for _, rt := range r.routes {
		if !strings.Contains(utterance, rt.phrase) {
			continue
		}

		return r.dispatch(ctx, rt.command, utterance, rt.handle)
	}

	return r.dispatch(ctx, CommandUnrecognized, utterance, r.unrecognized)
}

func (r *Router) dispatch(ctx context.Context, command Command, utterance string, h handler) (Dispatch, error) {
	ctx = logging.WithCommand(ctx, string(command))
	logging.FromContext(ctx).DebugContext(ctx, "received command", slog.String("utterance", utterance))

	r.metrics.CommandRouted(string(command))

	d := Dispatch{Command: command, Utterance: utterance}
	if err := h(ctx, utterance); err != nil {
		return d, fmt.Errorf("handling %s: %w", command, err)
	}

	return d, nil
}

// checkPhrases rejects phrase sets where one phrase contains another,
// which would make routing depend on order rather than meaning.
func checkPhrases(phrases []string) error {
	for i, a := range phrases {
		if strings.TrimSpace(a) == "" {
			return domain.NewValidationError("phrase", "cannot be empty")
		}

		for j, b := range phrases {
			if i != j && strings.Contains(a, b) {
				return domain.NewConflictError("phrase", "phrase contains another phrase", fmt.Sprintf("%q contains %q", a, b))
			}
		}
	}

	return nil
}
