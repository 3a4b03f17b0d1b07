package cron

import (
	"context"
	"log"
	"time"

	"github.com/kromio/kromio-server/internal/pkg/ratelimit"
	"github.com/kromio/kromio-server/internal/repository"
	"github.com/kromio/kromio-server/internal/service"
)

type Service struct {
	planService *service.PlanService
	subRepo     *repository.SubscriptionRepository
	limiter     *ratelimit.Window
	stopChan    chan struct{}
}

func NewService(
	planService *service.PlanService,
	subRepo *repository.SubscriptionRepository,
	limiter *ratelimit.Window,
) *Service {
	return &Service{
		planService: planService,
		subRepo:     subRepo,
		limiter:     limiter,
		stopChan:    make(chan struct{}),
	}
}

// Start launches the background loops.
func (s *Service) Start() {
	go s.runDailyExpirationSweep()
	go s.runHourlyMaintenance()
	log.Println("Cron service started (expiration sweep + maintenance)")
}

// Stop stops the background loops.
func (s *Service) Stop() {
	close(s.stopChan)
	log.Println("Cron service stopped")
}

// runDailyExpirationSweep handles lapsed subscriptions once per day at UTC midnight.
func (s *Service) runDailyExpirationSweep() {
	now := time.Now().UTC()
	nextMidnight := time.Date(now.Year(), now.Month(), now.Day()+1, 0, 0, 0, 0, time.UTC)
	timer := time.NewTimer(nextMidnight.Sub(now))

	for {
		select {
		case <-s.stopChan:
			timer.Stop()
			return
		case <-timer.C:
			s.sweepExpirations()
			timer.Reset(24 * time.Hour)
		}
	}
}

// sweepExpirations walks subscriptions past their period end and applies
// the downgrade or grace transition for each owner.
func (s *Service) sweepExpirations() {
	log.Println("Starting subscription expiration sweep...")

	expired, err := s.subRepo.ListExpired(time.Now().UTC())
	if err != nil {
		log.Printf("Expiration sweep: failed to list subscriptions: %v", err)
		return
	}

	handled := 0
	for _, sub := range expired {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		result, err := s.planService.HandleExpiration(ctx, sub.UserID)
		cancel()
		if err != nil {
			log.Printf("Expiration sweep: user %d: %v", sub.UserID, err)
			continue
		}
		if result.Action != "none" {
			handled++
		}
	}

	log.Printf("Expiration sweep completed: %d/%d handled", handled, len(expired))
}

// runHourlyMaintenance sweeps the rate limiter and reports stuck plan changes.
func (s *Service) runHourlyMaintenance() {
	ticker := time.NewTicker(1 * time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopChan:
			return
		case <-ticker.C:
			if removed := s.limiter.Sweep(); removed > 0 {
				log.Printf("Rate limiter sweep: removed %d idle keys", removed)
			}
			s.reportReconciliation()
		}
	}
}

// reportReconciliation logs plan changes that credited or rolled back
// incompletely. They need a human, so we only surface them.
func (s *Service) reportReconciliation() {
	pending, err := s.planService.PendingReconciliation()
	if err != nil {
		log.Printf("Reconciliation check failed: %v", err)
		return
	}
	for _, change := range pending {
		log.Printf("Reconciliation needed: plan change %d (user %d, %s -> %s): %s",
			change.ID, change.UserID, change.FromPlan, change.ToPlan, change.Detail)
	}
}

// RunExpirationsNow triggers the expiration sweep immediately (manual ops use).
func (s *Service) RunExpirationsNow() {
	s.sweepExpirations()
}
