package ports

import (
	"context"

	"burtrend/domain/phrase"
)

// PhraseSource loads the phrases of one run. Implementations return phrases
// ordered by key with values in temporal order.
type PhraseSource interface {
	Load(ctx context.Context) ([]phrase.Phrase, error)
}

// PhraseSourceFunc adapts a plain function to PhraseSource
type PhraseSourceFunc func(ctx context.Context) ([]phrase.Phrase, error)

func (f PhraseSourceFunc) Load(ctx context.Context) ([]phrase.Phrase, error) {
	return f(ctx)
}

// StaticSource serves a fixed phrase set, used for synthetic null-model runs
type StaticSource []phrase.Phrase

func (s StaticSource) Load(ctx context.Context) ([]phrase.Phrase, error) {
	return []phrase.Phrase(s), ctx.Err()
}
