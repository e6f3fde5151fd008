// Package scanner runs the periodic expiry scan: it asks the risk evaluator
// for credentials expiring inside the configured window and raises an alert
// for each, relying on alert deduplication to keep repeat scans quiet.
package scanner

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	alertmodels "credentialwatch/internal/alert/models"
	alertservice "credentialwatch/internal/alert/service"
	"credentialwatch/internal/risk"
	"credentialwatch/pkg/requestcontext"
)

// maxConcurrentAlerts bounds alert creation fan-out per scan pass.
const maxConcurrentAlerts = 4

// criticalScore is the risk score at and above which a candidate raises a
// critical alert; everything below raises a warning.
const criticalScore = 1.0

// Expiring is the slice of the credential service the scanner consumes.
type Expiring interface {
	FindExpiring(ctx context.Context, windowDays int, filters risk.Filters) ([]risk.Candidate, error)
}

// Alerts is the slice of the alert service the scanner consumes.
type Alerts interface {
	Create(ctx context.Context, input alertservice.CreateInput) (*alertmodels.Alert, error)
}

// Scanner periodically sweeps for expiring credentials.
type Scanner struct {
	credentials Expiring
	alerts      Alerts
	interval    time.Duration
	windowDays  int
	logger      *slog.Logger
}

func New(credentials Expiring, alerts Alerts, interval time.Duration, windowDays int, logger *slog.Logger) *Scanner {
	return &Scanner{
		credentials: credentials,
		alerts:      alerts,
		interval:    interval,
		windowDays:  windowDays,
		logger:      logger,
	}
}

// Run blocks until ctx is cancelled, scanning once per interval. A zero or
// negative interval disables the scanner entirely.
func (s *Scanner) Run(ctx context.Context) error {
	if s.interval <= 0 {
		s.logger.InfoContext(ctx, "expiry scanner disabled")
		return nil
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.logger.InfoContext(ctx, "expiry scanner started",
		"interval", s.interval.String(),
		"window_days", s.windowDays,
	)

	for {
		select {
		case <-ctx.Done():
			s.logger.InfoContext(ctx, "expiry scanner stopped")
			return ctx.Err()
		case <-ticker.C:
			if err := s.ScanOnce(ctx); err != nil && ctx.Err() == nil {
				s.logger.ErrorContext(ctx, "expiry scan failed", "error", err.Error())
			}
		}
	}
}

// ScanOnce runs a single scan pass. The pass-wide scan time is pinned so
// every candidate in the pass is evaluated against the same clock.
func (s *Scanner) ScanOnce(ctx context.Context) error {
	start := time.Now()
	ctx = requestcontext.WithTime(ctx, start.UTC())

	candidates, err := s.credentials.FindExpiring(ctx, s.windowDays, risk.Filters{})
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentAlerts)
	for _, candidate := range candidates {
		g.Go(func() error {
			return s.raise(gctx, candidate)
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	s.logger.InfoContext(ctx, "expiry scan completed",
		"candidates", len(candidates),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return nil
}

func (s *Scanner) raise(ctx context.Context, candidate risk.Candidate) error {
	credentialID := candidate.Credential.ID
	_, err := s.alerts.Create(ctx, alertservice.CreateInput{
		ProviderID:   candidate.Provider.ID,
		CredentialID: &credentialID,
		Severity:     severityOf(candidate.RiskScore),
		WindowDays:   s.windowDays,
		Message:      messageFor(candidate),
	})
	return err
}

func severityOf(score float64) alertmodels.Severity {
	if score >= criticalScore {
		return alertmodels.SeverityCritical
	}
	return alertmodels.SeverityWarning
}

func messageFor(c risk.Candidate) string {
	switch {
	case c.DaysToExpiry < 0:
		return fmt.Sprintf("%s %s for %s expired %d days ago",
			c.Credential.Type, c.Credential.Number, c.Provider.FullName, -c.DaysToExpiry)
	case c.DaysToExpiry == 0:
		return fmt.Sprintf("%s %s for %s expires today",
			c.Credential.Type, c.Credential.Number, c.Provider.FullName)
	default:
		return fmt.Sprintf("%s %s for %s expires in %d days",
			c.Credential.Type, c.Credential.Number, c.Provider.FullName, c.DaysToExpiry)
	}
}
