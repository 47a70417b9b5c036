package services

import (
	"context"
	"errors"

	"github.com/gerai/api/internal/repositories"
)

var errSystemHealthRequired = errors.New("system service: health repository is required")

// ErrSystemUnavailable indicates health information could not be collected.
var ErrSystemUnavailable = errors.New("system service: unavailable")

// SystemServiceDeps wires the health repository for readiness reporting.
type SystemServiceDeps struct {
	Health repositories.HealthRepository
	Logger func(context.Context, string, map[string]any)
}

type systemService struct {
	health repositories.HealthRepository
	logger func(context.Context, string, map[string]any)
}

// NewSystemService constructs a SystemService enforcing dependency validation.
func NewSystemService(deps SystemServiceDeps) (SystemService, error) {
	if deps.Health == nil {
		return nil, errSystemHealthRequired
	}

	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}

	return &systemService{health: deps.Health, logger: logger}, nil
}

// Health collects the dependency probes into one report.
func (s *systemService) Health(ctx context.Context) (SystemHealthReport, error) {
	if s == nil || s.health == nil {
		return SystemHealthReport{}, ErrSystemUnavailable
	}

	report, err := s.health.Collect(ctx)
	if err != nil {
		s.logger(ctx, "system.health_collect_failed", map[string]any{"error": err.Error()})
		return SystemHealthReport{}, ErrSystemUnavailable
	}
	return report, nil
}
