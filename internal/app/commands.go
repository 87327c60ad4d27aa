package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jsamuelsen/quotebox/internal/domain"
	"github.com/jsamuelsen/quotebox/internal/platform/logging"
)

// Spoken responses.
const (
	msgHelp          = "I didn't understand that. You can say " + PhraseInspire + " or " + PhraseAdd + "."
	msgEmptyStore    = "I don't know any quotes yet. You can say " + PhraseAdd + "."
	msgNothingSpoken = "I haven't said a quote yet."
	msgThatWas       = "That was quote %s."
	msgAdded         = "Added quote %s."
	msgAddAborted    = "Okay, never mind."
	msgAddEmpty      = "I didn't catch that, so nothing was added."
	msgRemoving      = "Removing quote %s."

	questionText   = "What is the quote?"
	questionAuthor = "Who said it?"
)

func (r *Router) randomQuote(ctx context.Context, _ string) error {
	q, err := r.store.RandomQuote()
	if errors.Is(err, domain.ErrEmptyStore) {
		return r.voice.Say(ctx, msgEmptyStore)
	}
	if err != nil {
		return err
	}

	logging.FromContext(ctx).DebugContext(ctx, "saying quote", slog.String("quote_id", q.ID().String()))

	if err := r.voice.Say(ctx, q.Speakable()); err != nil {
		return err
	}

	return r.store.MarkSpoken(q.ID())
}

func (r *Router) identifyLast(ctx context.Context, _ string) error {
	q, err := r.store.LastSaid()
	if errors.Is(err, domain.ErrNoQuoteSpokenYet) {
		return r.voice.Say(ctx, msgNothingSpoken)
	}
	if err != nil {
		return err
	}

	logging.FromContext(ctx).DebugContext(ctx, "retrieved last id", slog.String("quote_id", q.ID().String()))

	return r.voice.Say(ctx, fmt.Sprintf(msgThatWas, q.ID()))
}

// quoteDraft carries dictated fields through the add-quote steps.
type quoteDraft struct {
	text   string
	author string
}

func (r *Router) addQuote(ctx context.Context, _ string) error {
	add := Dictation[quoteDraft, domain.Quote]{
		Name: "add_quote",

		Dictate: func(ctx context.Context) (quoteDraft, error) {
			text, err := r.dialog.Confirm(ctx, questionText)
			if err != nil {
				return quoteDraft{}, err
			}

			author, err := r.dialog.Confirm(ctx, questionAuthor)
			if err != nil {
				return quoteDraft{}, err
			}

			return quoteDraft{text: text, author: author}, nil
		},

		Check: func(_ context.Context, d quoteDraft) error {
			return domain.ValidateQuoteFields(d.text, d.author)
		},

		Commit: func(_ context.Context, d quoteDraft) (domain.Quote, error) {
			return r.store.Add(d.text, d.author)
		},

		Acknowledge: func(ctx context.Context, q domain.Quote) error {
			logging.FromContext(ctx).InfoContext(ctx, "added quote", slog.String("quote_id", q.ID().String()))
			return r.voice.Say(ctx, fmt.Sprintf(msgAdded, q.ID()))
		},
	}

	_, err := Execute(ctx, r.executor, add)

	switch {
	case err == nil:
		return nil
	case domain.IsAborted(err), errors.Is(err, domain.ErrDialogExhausted):
		return r.voice.Say(ctx, msgAddAborted)
	case domain.IsValidation(err):
		return r.voice.Say(ctx, msgAddEmpty)
	default:
		return err
	}
}

func (r *Router) forget(ctx context.Context, utterance string) error {
	target := strings.TrimSpace(strings.ReplaceAll(utterance, PhraseForget, ""))
	logger := logging.FromContext(ctx).With(slog.String("target", target))

	id, err := domain.ParseQuoteID(target)
	if err != nil {
		logger.InfoContext(ctx, "could not parse quote id", slog.Any("error", err))
		return r.voice.Say(ctx, removingMessage(target))
	}

	logger.DebugContext(ctx, "removing quote", slog.String("quote_id", id.String()))

	speakErr := r.voice.Say(ctx, removingMessage(id.String()))

	if !r.store.Delete(id) {
		logger.InfoContext(ctx, "no quote with that id", slog.String("quote_id", id.String()))
	}

	return speakErr
}

func removingMessage(target string) string {
	if target == "" {
		return strings.Replace(msgRemoving, " %s", "", 1)
	}
	return fmt.Sprintf(msgRemoving, target)
}

func (r *Router) unrecognized(ctx context.Context, _ string) error {
	return r.voice.Say(ctx, msgHelp)
}
