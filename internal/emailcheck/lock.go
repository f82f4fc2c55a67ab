package emailcheck

import (
	"context"
	"sync"
	"time"

	"invoice-pipeline/internal/apperr"
	"invoice-pipeline/internal/config"
	"invoice-pipeline/internal/repository"
)

// LockService implements the §4.C1 locking protocol: delete expired locks,
// then attempt an atomic insert racing on the monitor_id primary key. A
// process-local mutex keyed by monitor id short-circuits same-process
// races before they ever reach the database (§9 "Concurrency primitives").
type LockService struct {
	repo     *repository.MonitorLockRepository
	localMu  sync.Mutex
	inFlight map[string]struct{}
}

func NewLockService(repo *repository.MonitorLockRepository) *LockService {
	return &LockService{repo: repo, inFlight: make(map[string]struct{})}
}

// Acquire returns a release func on success. Callers must defer it on every
// exit path (§4.C1 step 3).
func (s *LockService) Acquire(ctx context.Context, monitorID, owner string) (release func(), err error) {
	s.localMu.Lock()
	if _, busy := s.inFlight[monitorID]; busy {
		s.localMu.Unlock()
		return nil, apperr.New(apperr.Locked, "monitor is already being checked")
	}
	s.inFlight[monitorID] = struct{}{}
	s.localMu.Unlock()

	releaseLocal := func() {
		s.localMu.Lock()
		delete(s.inFlight, monitorID)
		s.localMu.Unlock()
	}

	now := time.Now()
	if err := s.repo.DeleteExpired(ctx, now); err != nil {
		releaseLocal()
		return nil, apperr.Wrap(apperr.ProcessingError, "failed clearing expired locks", err)
	}

	ok, err := s.repo.TryAcquire(ctx, monitorID, owner, now, config.LockTTL)
	if err != nil {
		releaseLocal()
		return nil, apperr.Wrap(apperr.ProcessingError, "failed acquiring monitor lock", err)
	}
	if !ok {
		releaseLocal()
		return nil, apperr.New(apperr.Locked, "monitor is already being checked")
	}

	released := false
	return func() {
		if released {
			return
		}
		released = true
		_ = s.repo.Release(context.Background(), monitorID, owner)
		releaseLocal()
	}, nil
}
