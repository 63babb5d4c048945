package product

import (
	"regexp"
	"strings"
)

// Matcher selects a replacement variant for a set of subscription line
// items. Implementations return nil when no candidate qualifies; callers
// decide the fallback.
type Matcher interface {
	PickReplacement(sources []ReplacementSource, products []Product) *Variant
}

var (
	sizePattern  = regexp.MustCompile(`(?i)\d+\s?(g|gram|kg|ml)`)
	tastePattern = regexp.MustCompile(`(?i)(light|medium|dark)(\s?roast)?`)
)

// HeuristicMatcher picks the first variant whose options or title contain
// both the size and taste tokens extracted from the first subscription line
// item. No scoring; catalog order wins. Only the first line item is used as
// the pattern source, even for multi-item orders.
type HeuristicMatcher struct{}

// NewHeuristicMatcher builds the default first-match strategy.
func NewHeuristicMatcher() *HeuristicMatcher {
	return &HeuristicMatcher{}
}

// PickReplacement returns the first qualifying variant, or nil. A missing
// size or taste token disqualifies the match outright; a token that could
// not be extracted is never "contained" in anything.
func (m *HeuristicMatcher) PickReplacement(sources []ReplacementSource, products []Product) *Variant {
	if len(sources) == 0 {
		return nil
	}
	src := sources[0]
	size := extractToken(sizePattern, src)
	taste := extractToken(tastePattern, src)
	if size == "" || taste == "" {
		return nil
	}

	for _, p := range products {
		if strings.Contains(strings.ToLower(p.Title), "subscription") {
			continue
		}
		for i := range p.Variants {
			v := p.Variants[i]
			if strings.Contains(strings.ToLower(v.Title), "subscription") ||
				strings.Contains(strings.ToLower(v.ProductTitle), "subscription") {
				continue
			}
			opts := lowerOptionMap(v.SelectedOptions)
			title := strings.ToLower(v.Title)
			sizeOK := strings.Contains(opts["size"], size) || strings.Contains(title, size)
			tasteOK := strings.Contains(opts["taste"], taste) || strings.Contains(title, taste)
			if sizeOK && tasteOK {
				out := v
				return &out
			}
		}
	}
	return nil
}

// extractToken scans structured option values when any are present,
// otherwise the free-text variant title. Options that exist but carry no
// token do not fall through to the title. Returns the lower-cased match
// or "".
func extractToken(pattern *regexp.Regexp, src ReplacementSource) string {
	if len(src.Options) > 0 {
		for _, opt := range src.Options {
			if match := pattern.FindString(opt.Value); match != "" {
				return strings.ToLower(match)
			}
		}
		return ""
	}
	return strings.ToLower(pattern.FindString(src.VariantTitle))
}

func lowerOptionMap(opts []SelectedOption) map[string]string {
	out := make(map[string]string, len(opts))
	for _, opt := range opts {
		out[strings.ToLower(opt.Name)] = strings.ToLower(opt.Value)
	}
	return out
}
