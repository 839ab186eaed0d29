package heuristics

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/cloudflare/ahocorasick"
	"github.com/viralforge/mesh/services/trust-compliance/M99-abuse-detection-service/internal/domain"
	"github.com/viralforge/mesh/services/trust-compliance/M99-abuse-detection-service/internal/ports"
)

// Config drives the trigger-term engine. Terms are matched case
// insensitively; an entry of the form "term=3" carries its own weight.
type Config struct {
	Terms                 []string
	ScoreThreshold        int
	UserConsideredNewDays int
}

// TermMatcher flags text whose summed trigger-term weights reach the
// threshold. Each distinct term counts once per text.
type TermMatcher struct {
	// mu guards matcher, whose Match mutates internal counters.
	mu        sync.Mutex
	matcher   *ahocorasick.Matcher
	terms     []string
	weights   []int
	threshold int
	newWindow time.Duration
	nowFn     func() time.Time
}

func NewTermMatcher(cfg Config, nowFn func() time.Time) (*TermMatcher, error) {
	terms := make([]string, 0, len(cfg.Terms))
	weights := make([]int, 0, len(cfg.Terms))
	seen := make(map[string]struct{}, len(cfg.Terms))
	for _, raw := range cfg.Terms {
		term, weight, err := parseTerm(raw)
		if err != nil {
			return nil, err
		}
		if term == "" {
			continue
		}
		if _, dup := seen[term]; dup {
			continue
		}
		seen[term] = struct{}{}
		terms = append(terms, term)
		weights = append(weights, weight)
	}
	threshold := cfg.ScoreThreshold
	if threshold <= 0 {
		threshold = 1
	}
	days := cfg.UserConsideredNewDays
	if days <= 0 {
		days = 3
	}
	if nowFn == nil {
		nowFn = func() time.Time { return time.Now().UTC() }
	}
	m := &TermMatcher{
		terms:     terms,
		weights:   weights,
		threshold: threshold,
		newWindow: time.Duration(days) * 24 * time.Hour,
		nowFn:     nowFn,
	}
	if len(terms) > 0 {
		m.matcher = ahocorasick.NewStringMatcher(terms)
	}
	slog.Default().Info("spam term matcher initialized",
		"module", "heuristics.term_matcher",
		"layer", "adapter",
		"operation", "init",
		"outcome", "success",
		"term_count", len(terms),
		"score_threshold", threshold,
	)
	return m, nil
}

func parseTerm(raw string) (string, int, error) {
	term := strings.TrimSpace(raw)
	weight := 1
	if i := strings.LastIndex(term, "="); i > 0 {
		w, err := strconv.Atoi(strings.TrimSpace(term[i+1:]))
		if err != nil || w <= 0 {
			return "", 0, fmt.Errorf("%w: bad weight in trigger term %q", domain.ErrInvalidInput, raw)
		}
		term, weight = strings.TrimSpace(term[:i]), w
	}
	return strings.ToLower(term), weight, nil
}

func (m *TermMatcher) Score(text string) int {
	if m.matcher == nil || text == "" {
		return 0
	}
	m.mu.Lock()
	hits := m.matcher.Match([]byte(strings.ToLower(text)))
	m.mu.Unlock()
	score := 0
	for _, hit := range hits {
		score += m.weights[hit]
	}
	return score
}

func (m *TermMatcher) TriggerSpamFor(ctx context.Context, text string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	return m.Score(text) >= m.threshold, nil
}

// UserConsideredNew reports whether the account is still inside its
// probation window. Trusted users never are.
func (m *TermMatcher) UserConsideredNew(ctx context.Context, user domain.User) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	if user.IsTrusted() {
		return false, nil
	}
	if user.RegisteredAt.IsZero() {
		return true, nil
	}
	return m.nowFn().Sub(user.RegisteredAt) < m.newWindow, nil
}

var _ ports.SpamHeuristics = (*TermMatcher)(nil)
