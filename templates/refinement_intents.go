package templates

import (
	"regexp"
	"sort"
	"strconv"
	"strings"

	"tripcast-service/internal/domain/entity"
	"tripcast-service/internal/usecase"

	"github.com/samber/lo"
)

var (
	reConfirm = regexp.MustCompile(`^(yes|yep|yeah|sure|ok|okay|confirm(ed)?|looks (good|great)|sounds (good|great)|perfect|great|go ahead|let'?s (go|do it)|book (it|them)|i'?m happy with (these|those|that|this))( please| thanks| thank you| with (these|those|all( of them)?))?[.!\s]*$`)
	reKeep    = regexp.MustCompile(`\b(keep|only|just|choose|pick|select|go with|stick with|narrow (it )?(down )?to)\b`)
	reDrop    = regexp.MustCompile(`\b(drop|remove|skip|exclude|without|cut)\b`)
	reNumber  = regexp.MustCompile(`#?\b(\d{1,2})\b`)
	reRefine  = regexp.MustCompile(`\b(instead|replace|swap|add|more|fewer|less|cheaper|warmer|quieter|different|prefer|rather|other|change|include|beach|city|cities|nature|closer|budget)\b`)
	reAsk     = regexp.MustCompile(`^(what|how|why|when|where|which|who|is|are|can|could|do|does|should|will|would)\b`)
)

func normalize(message string) string {
	return strings.ToLower(strings.Join(strings.Fields(message), " "))
}

// ConfirmMatcher recognizes a plain acceptance of the researched destinations
type ConfirmMatcher struct{}

// NewConfirmMatcher creates a new confirm matcher
func NewConfirmMatcher() *ConfirmMatcher {
	return &ConfirmMatcher{}
}

// Match determines if this matcher can handle the given message
func (m *ConfirmMatcher) Match(message string, _ []entity.Destination) (usecase.RefinementIntent, bool) {
	if reConfirm.MatchString(normalize(message)) {
		return usecase.ConfirmIntent{}, true
	}
	return nil, false
}

// IndexMatcher recognizes "keep 1 and 3", "only Lisbon and Porto" or "drop 2"
type IndexMatcher struct{}

// NewIndexMatcher creates a new index matcher
func NewIndexMatcher() *IndexMatcher {
	return &IndexMatcher{}
}

// Match determines if this matcher can handle the given message
func (m *IndexMatcher) Match(message string, destinations []entity.Destination) (usecase.RefinementIntent, bool) {
	text := normalize(message)
	keep := reKeep.MatchString(text)
	drop := reDrop.MatchString(text)
	if keep == drop {
		return nil, false
	}

	picked := mentionedIndices(text, destinations)
	if len(picked) == 0 {
		return nil, false
	}

	if drop {
		n := len(destinations)
		if lo.SomeBy(picked, func(i int) bool { return i > n }) {
			return usecase.RefineByIndexIntent{Indices: picked}, true
		}
		remaining := lo.Filter(lo.RangeFrom(1, n), func(i int, _ int) bool { return !lo.Contains(picked, i) })
		if len(remaining) == 0 {
			return nil, false
		}
		return usecase.RefineByIndexIntent{Indices: remaining}, true
	}
	return usecase.RefineByIndexIntent{Indices: picked}, true
}

// mentionedIndices returns the 1-based positions named in text, either as
// numbers or as destination names, sorted and deduplicated
func mentionedIndices(text string, destinations []entity.Destination) []int {
	var picked []int
	for _, match := range reNumber.FindAllStringSubmatch(text, -1) {
		if n, err := strconv.Atoi(match[1]); err == nil && n > 0 {
			picked = append(picked, n)
		}
	}
	for i, d := range destinations {
		name := strings.ToLower(strings.TrimSpace(d.Name))
		if name != "" && regexp.MustCompile(`\b`+regexp.QuoteMeta(name)+`\b`).MatchString(text) {
			picked = append(picked, i+1)
		}
	}
	picked = lo.Uniq(picked)
	sort.Ints(picked)
	return picked
}

// FilterMatcher recognizes a request to adjust the candidate set
type FilterMatcher struct{}

// NewFilterMatcher creates a new filter matcher
func NewFilterMatcher() *FilterMatcher {
	return &FilterMatcher{}
}

// Match determines if this matcher can handle the given message
func (m *FilterMatcher) Match(message string, _ []entity.Destination) (usecase.RefinementIntent, bool) {
	text := normalize(message)
	if !reRefine.MatchString(text) {
		return nil, false
	}
	return usecase.RefineByFilterIntent{Filter: strings.TrimSpace(message)}, true
}

// QuestionMatcher recognizes questions about the destinations
type QuestionMatcher struct{}

// NewQuestionMatcher creates a new question matcher
func NewQuestionMatcher() *QuestionMatcher {
	return &QuestionMatcher{}
}

// Match determines if this matcher can handle the given message
func (m *QuestionMatcher) Match(message string, _ []entity.Destination) (usecase.RefinementIntent, bool) {
	text := normalize(message)
	if strings.HasSuffix(text, "?") || reAsk.MatchString(text) {
		return usecase.QuestionIntent{Text: strings.TrimSpace(message)}, true
	}
	return nil, false
}

// DefaultMatchers returns the matchers in the order they should be registered
func DefaultMatchers() []usecase.IntentMatcher {
	return []usecase.IntentMatcher{
		NewConfirmMatcher(),
		NewIndexMatcher(),
		NewFilterMatcher(),
		NewQuestionMatcher(),
	}
}
