package jobs

import (
	"context"
	"log"
	"sync/atomic"
	"time"

	"codeduel/internal/models"
	"codeduel/internal/repository"
	"codeduel/internal/services"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// sweepConcurrency bounds how many duels one sweep transitions at a time
const sweepConcurrency = 4

// SweeperConfig carries the lifecycle deadlines the sweeper enforces.
type SweeperConfig struct {
	Interval              time.Duration
	WaitingTimeoutRandom  time.Duration
	WaitingTimeoutAI      time.Duration
	WaitingTimeoutPrivate time.Duration
	MaxDuration           time.Duration
}

// DuelSweeper expires stale waiting duels and times out overrunning ones
type DuelSweeper struct {
	duelService *services.DuelService
	duels       *repository.DuelRepository
	config      SweeperConfig
	stopChan    chan struct{}
}

// NewDuelSweeper creates a new duel sweeper job
func NewDuelSweeper(duelService *services.DuelService, duels *repository.DuelRepository, config SweeperConfig) *DuelSweeper {
	if config.Interval <= 0 {
		config.Interval = time.Minute
	}
	if config.WaitingTimeoutRandom <= 0 {
		config.WaitingTimeoutRandom = 30 * time.Minute
	}
	if config.WaitingTimeoutAI <= 0 {
		config.WaitingTimeoutAI = 10 * time.Minute
	}
	if config.WaitingTimeoutPrivate <= 0 {
		config.WaitingTimeoutPrivate = 60 * time.Minute
	}
	if config.MaxDuration <= 0 {
		config.MaxDuration = 30 * time.Minute
	}
	return &DuelSweeper{
		duelService: duelService,
		duels:       duels,
		config:      config,
		stopChan:    make(chan struct{}),
	}
}

// Start begins the sweep loop
func (ds *DuelSweeper) Start() {
	log.Printf("[DuelSweeper] Starting duel sweep job (interval: %v)", ds.config.Interval)

	ticker := time.NewTicker(ds.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			ds.Sweep(context.Background())
		case <-ds.stopChan:
			log.Println("[DuelSweeper] Stopping duel sweep job")
			return
		}
	}
}

// Stop stops the sweep loop
func (ds *DuelSweeper) Stop() {
	close(ds.stopChan)
}

// Sweep runs one pass: unmatched WAITING duels past their per-mode timeout
// are cancelled, IN_PROGRESS duels past the max duration are timed out.
func (ds *DuelSweeper) Sweep(ctx context.Context) {
	expired := 0
	expired += ds.expireWaiting(ctx, models.DuelModeRandomPlayer, ds.config.WaitingTimeoutRandom)
	expired += ds.expireWaiting(ctx, models.DuelModeAIOpponent, ds.config.WaitingTimeoutAI)
	expired += ds.expireWaiting(ctx, models.DuelModePrivateRoom, ds.config.WaitingTimeoutPrivate)

	timedOut := ds.timeoutOverrunning(ctx)

	if expired > 0 || timedOut > 0 {
		log.Printf("[DuelSweeper] swept %d expired waiting duels, %d timed out duels", expired, timedOut)
	}
}

func (ds *DuelSweeper) expireWaiting(ctx context.Context, mode models.DuelMode, timeout time.Duration) int {
	cutoff := time.Now().Add(-timeout)

	duels, err := ds.duels.FindWaitingDuelsOlderThan(ctx, mode, cutoff)
	if err != nil {
		log.Printf("[DuelSweeper] Error fetching stale %s duels: %v", mode, err)
		return 0
	}

	return ds.transition(ctx, duels, "expiring", ds.duelService.ExpireWaiting)
}

func (ds *DuelSweeper) timeoutOverrunning(ctx context.Context) int {
	cutoff := time.Now().Add(-ds.config.MaxDuration)

	duels, err := ds.duels.FindInProgressStartedBefore(ctx, cutoff)
	if err != nil {
		log.Printf("[DuelSweeper] Error fetching overrunning duels: %v", err)
		return 0
	}

	return ds.transition(ctx, duels, "timing out", ds.duelService.TimeoutDuel)
}

// transition applies fn to each duel with bounded parallelism, so one duel
// stuck on a row lock cannot stall the whole sweep. Failures are logged and
// retried on the next tick.
func (ds *DuelSweeper) transition(
	ctx context.Context,
	duels []*models.Duel,
	verb string,
	fn func(context.Context, uuid.UUID) error,
) int {
	var done atomic.Int64

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(sweepConcurrency)
	for _, duel := range duels {
		duel := duel
		g.Go(func() error {
			if err := fn(ctx, duel.ID); err != nil {
				log.Printf("[DuelSweeper] Error %s duel %s: %v", verb, duel.ID, err)
				return nil
			}
			done.Add(1)
			return nil
		})
	}
	g.Wait()

	return int(done.Load())
}
