package worker

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	apperrors "github.com/jwalitptl/vetclinic-api/pkg/errors"
)

// Sweeper is the part of the discount service the sweep worker drives.
type Sweeper interface {
	SweepExpiredCodes(ctx context.Context) (int64, error)
}

type DiscountSweepWorker struct {
	sweeper  Sweeper
	interval time.Duration
}

func NewDiscountSweepWorker(sweeper Sweeper, interval time.Duration) *DiscountSweepWorker {
	return &DiscountSweepWorker{
		sweeper:  sweeper,
		interval: interval,
	}
}

// Start sweeps once immediately and then on every tick until ctx is cancelled.
func (w *DiscountSweepWorker) Start(ctx context.Context) {
	log.Info().Dur("interval", w.interval).Msg("starting discount sweep worker")

	w.sweep(ctx)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("shutting down discount sweep worker")
			return
		case <-ticker.C:
			w.sweep(ctx)
		}
	}
}

func (w *DiscountSweepWorker) sweep(ctx context.Context) {
	n, err := w.sweeper.SweepExpiredCodes(ctx)
	switch {
	case apperrors.Is(err, apperrors.ErrConflict):
		log.Info().Msg("discount sweep skipped, another run holds the lock")
	case err != nil:
		log.Error().Err(err).Msg("discount sweep failed")
	default:
		log.Debug().Int64("deactivated", n).Msg("discount sweep tick")
	}
}
