package registry

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Pruner periodically deletes registrations that have not been seen within
// the retention window.
type Pruner struct {
	store    *Store
	maxAge   time.Duration
	interval time.Duration
	logger   *slog.Logger
	done     chan struct{}
	wg       sync.WaitGroup
	stopOnce sync.Once
}

// NewPruner starts a pruner that drops registrations idle for retentionDays.
// It returns nil when retentionDays is 0 or less (retention disabled).
func NewPruner(store *Store, retentionDays int, logger *slog.Logger) *Pruner {
	if retentionDays <= 0 {
		return nil
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	p := &Pruner{
		store:    store,
		maxAge:   time.Duration(retentionDays) * 24 * time.Hour,
		interval: time.Hour,
		logger:   logger.With(slog.String("component", "registry")),
		done:     make(chan struct{}),
	}

	// Catch up after downtime.
	p.prune(time.Now())

	p.wg.Add(1)
	go p.loop()
	return p
}

func (p *Pruner) loop() {
	defer p.wg.Done()
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case now := <-ticker.C:
			p.prune(now)
		case <-p.done:
			return
		}
	}
}

func (p *Pruner) prune(now time.Time) int64 {
	n, err := p.store.DeleteBefore(context.Background(), now.Add(-p.maxAge))
	if err != nil {
		p.logger.Error("prune registrations", slog.String("error", err.Error()))
		return 0
	}
	if n > 0 {
		p.logger.Info("pruned registrations", slog.Int64("deleted", n), slog.Duration("max_age", p.maxAge))
	}
	return n
}

// Stop signals the pruner to stop and waits for it to finish. Stop on a nil
// Pruner is a no-op.
func (p *Pruner) Stop() {
	if p == nil {
		return
	}
	p.stopOnce.Do(func() {
		close(p.done)
		p.wg.Wait()
	})
}
