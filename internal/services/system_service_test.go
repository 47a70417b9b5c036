package services

import (
	"context"
	"errors"
	"testing"
	"time"

	domain "github.com/gerai/api/internal/domain"
)

func TestSystemServiceHealthPassesReportThrough(t *testing.T) {
	report := domain.SystemHealthReport{
		Status:      domain.HealthStatusOK,
		GeneratedAt: time.Date(2025, 5, 6, 12, 0, 0, 0, time.UTC),
	}
	repo := &stubHealthRepository{
		collectFunc: func(ctx context.Context) (domain.SystemHealthReport, error) {
			return report, nil
		},
	}
	service, err := NewSystemService(SystemServiceDeps{Health: repo})
	if err != nil {
		t.Fatalf("unexpected error constructing system service: %v", err)
	}

	got, err := service.Health(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Status != domain.HealthStatusOK {
		t.Fatalf("expected ok status, got %s", got.Status)
	}
}

func TestSystemServiceHealthCollectFailure(t *testing.T) {
	repo := &stubHealthRepository{
		collectFunc: func(ctx context.Context) (domain.SystemHealthReport, error) {
			return domain.SystemHealthReport{}, errors.New("probe wiring broken")
		},
	}
	service, err := NewSystemService(SystemServiceDeps{Health: repo})
	if err != nil {
		t.Fatalf("unexpected error constructing system service: %v", err)
	}

	if _, err := service.Health(context.Background()); !errors.Is(err, ErrSystemUnavailable) {
		t.Fatalf("expected ErrSystemUnavailable, got %v", err)
	}
}
