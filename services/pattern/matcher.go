package pattern

import (
	"context"
	"fmt"

	"github.com/upb/agent-gateway/models"
	"github.com/upb/agent-gateway/repositories"
	"go.uber.org/zap"
)

// CompileError reports that a stored rule does not compile. It is a
// recoverable result: evaluation skips the rule and continues, it never
// fails the request.
type CompileError struct {
	Rule string
	Err  error
}

// Error implements the error interface
func (e *CompileError) Error() string {
	return fmt.Sprintf("pattern rule %q does not compile: %v", e.Rule, e.Err)
}

// Unwrap implements errors.Unwrap
func (e *CompileError) Unwrap() error {
	return e.Err
}

// Matcher compiles and evaluates content-matching rules scoped to an
// (agent, tier, model) triple. Compiled rules are cached for the process
// lifetime.
type Matcher struct {
	patterns repositories.PatternRepository
	cache    *regexCache
	logger   *zap.Logger
}

// NewMatcher creates a new Matcher instance
func NewMatcher(patterns repositories.PatternRepository, logger *zap.Logger) *Matcher {
	return &Matcher{
		patterns: patterns,
		cache:    newRegexCache(),
		logger:   logger,
	}
}

// FindPatterns returns the active patterns for (agent, tier) wired to the
// model, in stable ascending-id order
func (m *Matcher) FindPatterns(ctx context.Context, agentID, tierID, modelID int64) ([]models.Pattern, error) {
	return m.patterns.ListForModel(ctx, agentID, tierID, modelID)
}

// FindPatternsWithModels returns the active patterns for (agent, tier)
// together with the models each allows (the suggestion path)
func (m *Matcher) FindPatternsWithModels(ctx context.Context, agentID, tierID int64) ([]models.PatternWithModels, error) {
	return m.patterns.ListForAgentTier(ctx, agentID, tierID)
}

// Matches evaluates text against a stored rule. A compile failure is
// returned as *CompileError, never propagated as a request failure.
func (m *Matcher) Matches(rule, text string) (bool, error) {
	re, err := m.cache.get(rule)
	if err != nil {
		return false, &CompileError{Rule: rule, Err: err}
	}
	return re.MatchString(text), nil
}

// AnyMatches evaluates text against the patterns in order and returns true
// on the first match. Broken rules are skipped with a logged warning. The
// returned rules slice lists every rule that was considered, for the
// mismatch suggestion path.
func (m *Matcher) AnyMatches(patterns []models.Pattern, text string) (bool, []string) {
	rules := make([]string, 0, len(patterns))
	matched := false

	for _, p := range patterns {
		rules = append(rules, p.Rule)
		if matched {
			continue
		}

		ok, err := m.Matches(p.Rule, text)
		if err != nil {
			// Fail-open per broken rule: skip and keep evaluating
			m.logger.Warn("skipping pattern with invalid rule",
				zap.Int64("pattern_id", p.ID),
				zap.String("rule", p.Rule),
				zap.Error(err))
			continue
		}
		if ok {
			matched = true
		}
	}

	return matched, rules
}

// Stats returns compile-cache counters
func (m *Matcher) Stats() CacheStats {
	return m.cache.stats()
}
