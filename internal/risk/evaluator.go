// Package risk computes expiry risk for credentials and scans for those at
// risk inside a caller-supplied window.
package risk

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	credmodels "credentialwatch/internal/credential/models"
	credstore "credentialwatch/internal/credential/store"
	provmodels "credentialwatch/internal/provider/models"
	provstore "credentialwatch/internal/provider/store"
	dErrors "credentialwatch/pkg/domain-errors"
	"credentialwatch/pkg/platform/sentinel"
	"credentialwatch/pkg/requestcontext"
)

// urgentThresholdDays is the cut between the two risk tiers. The scoring
// policy is deliberately a step function; it is the documented contract, not
// a placeholder to be smoothed out silently.
const urgentThresholdDays = 30

const (
	scoreUrgent  = 1.0
	scoreWatched = 0.5
)

// Evaluation is the risk verdict for a single credential.
type Evaluation struct {
	DaysToExpiry int     `json:"days_to_expiry"`
	RiskScore    float64 `json:"risk_score"`
}

// Evaluate scores one credential as of the given instant. Credentials without
// an expiry date have no expiry lifecycle and must be filtered out upstream;
// scoring one is a caller bug, reported as a validation error.
func Evaluate(credential *credmodels.Credential, asOf time.Time) (Evaluation, error) {
	if credential.ExpiryDate == nil {
		return Evaluation{}, dErrors.New(dErrors.CodeValidation, "credential has no expiry date")
	}
	days := DaysBetween(asOf, *credential.ExpiryDate)
	return Evaluation{DaysToExpiry: days, RiskScore: Score(days)}, nil
}

// Score maps days-to-expiry onto the two-tier risk scale.
func Score(daysToExpiry int) float64 {
	if daysToExpiry < urgentThresholdDays {
		return scoreUrgent
	}
	return scoreWatched
}

// DaysBetween returns the exact number of civil days from a to b, negative
// when b is in the past. Both instants are truncated to UTC dates first so
// time-of-day never shifts the count.
func DaysBetween(a, b time.Time) int {
	from := credmodels.DateOf(a)
	to := credmodels.DateOf(b)
	return int(to.Sub(from).Hours() / 24)
}

// Filters narrows an expiry scan by provider attributes. Dept is an exact
// match; LocationContains is a case-sensitive substring match.
type Filters struct {
	Dept             string
	LocationContains string
}

// Candidate pairs an at-risk credential with its provider and evaluation.
type Candidate struct {
	Provider     *provmodels.Provider   `json:"provider"`
	Credential   *credmodels.Credential `json:"credential"`
	DaysToExpiry int                    `json:"days_to_expiry"`
	RiskScore    float64                `json:"risk_score"`
}

// Evaluator scans stored credentials for expiry risk.
type Evaluator struct {
	credentials credstore.Store
	providers   provstore.Store
}

func NewEvaluator(credentials credstore.Store, providers provstore.Store) *Evaluator {
	return &Evaluator{credentials: credentials, providers: providers}
}

// FindExpiring returns credentials with status active whose expiry date falls
// on or before asOf+windowDays, paired with their provider and risk
// evaluation, most urgent first (days ascending, credential ID tie-break).
//
// Already-expired credentials whose stored status is still active ARE
// included: status is only recomputed on write, and a stale active status on
// a past-expiry credential is precisely what should raise risk. Credentials
// already marked expired in the store never reappear here.
func (e *Evaluator) FindExpiring(ctx context.Context, windowDays int, filters Filters) ([]Candidate, error) {
	if windowDays < 0 {
		return nil, dErrors.New(dErrors.CodeValidation, "window_days cannot be negative")
	}
	asOf := requestcontext.Now(ctx)
	target := asOf.AddDate(0, 0, windowDays)

	matches, err := e.credentials.Search(ctx, credstore.Query{
		Status:           credmodels.StatusActive,
		ExpiryOnOrBefore: &target,
	})
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to scan credentials")
	}

	providerCache := make(map[string]*provmodels.Provider)
	var candidates []Candidate
	for _, credential := range matches {
		provider, err := e.providerFor(ctx, providerCache, credential)
		if err != nil {
			return nil, err
		}
		if !matchesFilters(provider, filters) {
			continue
		}
		evaluation, err := Evaluate(credential, asOf)
		if err != nil {
			// Search already excluded expiry-less credentials.
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "unexpected credential without expiry")
		}
		candidates = append(candidates, Candidate{
			Provider:     provider,
			Credential:   credential,
			DaysToExpiry: evaluation.DaysToExpiry,
			RiskScore:    evaluation.RiskScore,
		})
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].DaysToExpiry != candidates[j].DaysToExpiry {
			return candidates[i].DaysToExpiry < candidates[j].DaysToExpiry
		}
		return candidates[i].Credential.ID.String() < candidates[j].Credential.ID.String()
	})
	return candidates, nil
}

func (e *Evaluator) providerFor(ctx context.Context, cache map[string]*provmodels.Provider, credential *credmodels.Credential) (*provmodels.Provider, error) {
	key := credential.ProviderID.String()
	if provider, ok := cache[key]; ok {
		return provider, nil
	}
	provider, err := e.providers.FindByID(ctx, credential.ProviderID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal,
				fmt.Sprintf("credential %s references missing provider %s", credential.ID, credential.ProviderID))
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load provider")
	}
	cache[key] = provider
	return provider, nil
}

func matchesFilters(provider *provmodels.Provider, filters Filters) bool {
	if filters.Dept != "" && provider.Dept != filters.Dept {
		return false
	}
	if filters.LocationContains != "" && !strings.Contains(provider.Location, filters.LocationContains) {
		return false
	}
	return true
}
