package tags

import (
	"context"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/tsuzuri-app/tsuzuri/internal/model"
)

// KeywordProvider derives tags from the entry text itself: the most
// frequent words become tags. It needs no network and backs installs
// without a local model.
type KeywordProvider struct{}

// NewKeywordProvider constructs the offline provider.
func NewKeywordProvider() *KeywordProvider { return &KeywordProvider{} }

// Generate picks the most frequent words of at least two runes from title
// and content. Ties resolve by first appearance.
func (p *KeywordProvider) Generate(_ context.Context, e *model.Entry, _ bool) ([]string, error) {
	text := strings.ToLower(e.Title + " " + e.Content)
	words := strings.FieldsFunc(text, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})

	counts := make(map[string]int)
	first := make(map[string]int)
	for i, w := range words {
		if utf8.RuneCountInString(w) < 2 {
			continue
		}
		counts[w]++
		if _, ok := first[w]; !ok {
			first[w] = i
		}
	}

	uniq := make([]string, 0, len(counts))
	for w := range counts {
		uniq = append(uniq, w)
	}
	sort.Slice(uniq, func(i, j int) bool {
		if counts[uniq[i]] != counts[uniq[j]] {
			return counts[uniq[i]] > counts[uniq[j]]
		}
		return first[uniq[i]] < first[uniq[j]]
	})

	if len(uniq) > MaxTags {
		uniq = uniq[:MaxTags]
	}
	return uniq, nil
}
