// Package tags generates descriptive tags for entries in the background.
// Generation is best-effort: a slow or failing provider never delays or
// fails the write path.
package tags

import (
	"context"

	"github.com/tsuzuri-app/tsuzuri/internal/model"
)

// MaxTags caps how many tags a provider may attach to one entry.
const MaxTags = 8

// Generator produces tags for an entry. pastPhoto marks entries created
// retroactively from an old photo, which changes the prompt.
type Generator interface {
	Generate(ctx context.Context, e *model.Entry, pastPhoto bool) ([]string, error)
}

// Applier persists generated tags. The diary write path implements this;
// applying to a deleted entry is a silent no-op.
type Applier interface {
	ApplyGeneratedTags(ctx context.Context, id string, tags []string) error
}
