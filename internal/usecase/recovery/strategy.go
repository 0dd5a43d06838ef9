package recovery

import "github.com/kailas-cloud/contactdex/internal/domain/search/failure"

// Strategy is a named recovery path.
type Strategy string

// Recovery strategies.
const (
	StrategyTimeout              Strategy = "timeout_recovery"
	StrategyPatternCorrection    Strategy = "pattern_correction"
	StrategyFallbackSearch       Strategy = "fallback_search"
	StrategyFilterSimplification Strategy = "filter_simplification"
	StrategyRetryWithBackoff     Strategy = "retry_with_backoff"
	StrategyGracefulFallback     Strategy = "graceful_fallback"
)

// StrategyFor returns the strategy for a failure kind. Non-recoverable kinds go straight to
// graceful fallback.
func StrategyFor(k failure.Kind) Strategy {
	if !k.Recoverable() {
		return StrategyGracefulFallback
	}
	switch k {
	case failure.KindTimeout:
		return StrategyTimeout
	case failure.KindPatternInvalid:
		return StrategyPatternCorrection
	case failure.KindIndex:
		return StrategyFallbackSearch
	case failure.KindFilter:
		return StrategyFilterSimplification
	default:
		return StrategyRetryWithBackoff
	}
}

func (s Strategy) message() string {
	switch s {
	case StrategyTimeout:
		return "The search took too long, so results were computed with only id and phone filters."
	case StrategyPatternCorrection:
		return "The query pattern was invalid and has been corrected."
	case StrategyFallbackSearch:
		return "The search index was unavailable, so results come from a capped full scan."
	case StrategyFilterSimplification:
		return "Some filters could not be evaluated, so only id and phone filters were applied."
	case StrategyRetryWithBackoff:
		return "The search hit a transient error and succeeded on retry."
	default:
		return "The search could not be completed."
	}
}
