// Package sweeper runs the daily anonymization of accounts whose deletion
// grace window has elapsed.
package sweeper

import (
	"context"
	"errors"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-community-go/internal/account/entity"
	"github.com/ovaphlow/pitchfork/service-community-go/internal/account/lifecycle"
)

// DefaultSpec fires at 03:00 server local time.
const DefaultSpec = "0 3 * * *"

const defaultBatchSize = 500

// CandidateStore is implemented by repo.AccountRepo.
type CandidateStore interface {
	FindDeletionCandidates(ctx context.Context, now, afterDeletedAt time.Time, afterID int64, limit int) ([]entity.Account, error)
	ApplyAnonymization(ctx context.Context, id int64, z lifecycle.Anonymized) (bool, error)
}

// SessionRevoker ends every refresh session of an account.
type SessionRevoker interface {
	RevokeAll(ctx context.Context, accountID int64) error
}

// Report summarizes a single run.
type Report struct {
	Candidates int
	Anonymized []int64
	Skipped    []int64
	Failed     []int64
}

type DeletionScheduler struct {
	store     CandidateStore
	sessions  SessionRevoker
	logger    *zap.SugaredLogger
	batchSize int
}

// New builds a scheduler. sessions may be nil.
func New(store CandidateStore, sessions SessionRevoker, logger *zap.SugaredLogger) *DeletionScheduler {
	return &DeletionScheduler{store: store, sessions: sessions, logger: logger, batchSize: defaultBatchSize}
}

// Run anonymizes every candidate due at now. Candidates are read in
// (deleted_at, id) order, one batch at a time, until a short batch comes back.
// A failing account is logged and passed over; it stays a candidate for the
// next run and never aborts the batch. Only a failure to load candidates is
// returned, together with the report so far.
func (s *DeletionScheduler) Run(ctx context.Context, now time.Time) (Report, error) {
	var (
		rep     Report
		afterAt time.Time
		afterID int64
	)
	for {
		batch, err := s.store.FindDeletionCandidates(ctx, now, afterAt, afterID, s.batchSize)
		if err != nil {
			return rep, err
		}
		rep.Candidates += len(batch)
		if !s.sweep(ctx, now, batch, &rep) || len(batch) < s.batchSize {
			break
		}
		last := batch[len(batch)-1]
		if last.DeletedAt == nil {
			break
		}
		afterAt, afterID = *last.DeletedAt, last.ID
	}

	s.logger.Infow("deletion sweep finished",
		"candidates", rep.Candidates,
		"anonymized", len(rep.Anonymized),
		"skipped", len(rep.Skipped),
		"failed", len(rep.Failed),
	)
	return rep, nil
}

// sweep processes one batch. It returns false when ctx was cancelled.
func (s *DeletionScheduler) sweep(ctx context.Context, now time.Time, batch []entity.Account, rep *Report) bool {
	for _, a := range batch {
		if ctx.Err() != nil {
			s.logger.Warnw("deletion sweep interrupted", "processed", len(rep.Anonymized)+len(rep.Skipped)+len(rep.Failed))
			return false
		}
		z, err := lifecycle.Anonymize(a, now)
		if err != nil {
			if errors.Is(err, lifecycle.ErrAlreadyAnonymized) || errors.Is(err, lifecycle.ErrGraceWindowNotExpired) || errors.Is(err, lifecycle.ErrNotScheduled) {
				rep.Skipped = append(rep.Skipped, a.ID)
				continue
			}
			s.logger.Warnw("anonymize account failed", "account_id", a.ID, "err", err)
			rep.Failed = append(rep.Failed, a.ID)
			continue
		}
		ok, err := s.store.ApplyAnonymization(ctx, a.ID, z)
		if err != nil {
			s.logger.Warnw("anonymize account failed", "account_id", a.ID, "err", err)
			rep.Failed = append(rep.Failed, a.ID)
			continue
		}
		if !ok {
			// anonymized concurrently
			rep.Skipped = append(rep.Skipped, a.ID)
			continue
		}
		rep.Anonymized = append(rep.Anonymized, a.ID)
		if s.sessions != nil {
			if err := s.sessions.RevokeAll(ctx, a.ID); err != nil {
				s.logger.Warnw("revoke sessions of anonymized account failed", "account_id", a.ID, "err", err)
			}
		}
	}
	return true
}

// cronLogger adapts zap to cron.Logger.
type cronLogger struct {
	l *zap.SugaredLogger
}

func (c cronLogger) Info(msg string, keysAndValues ...interface{}) {
	c.l.Debugw(msg, keysAndValues...)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	c.l.Errorw(msg, append(keysAndValues, "err", err)...)
}

// Start schedules Run on spec (standard 5 field cron syntax). Overlapping
// runs are skipped. The returned function stops the cron and waits for a
// running sweep to finish.
func (s *DeletionScheduler) Start(spec string) (func(), error) {
	if spec == "" {
		spec = DefaultSpec
	}
	lg := cronLogger{l: s.logger}
	c := cron.New(
		cron.WithLogger(lg),
		cron.WithChain(cron.Recover(lg), cron.SkipIfStillRunning(lg)),
	)
	ctx, cancel := context.WithCancel(context.Background())
	_, err := c.AddFunc(spec, func() {
		if _, err := s.Run(ctx, time.Now()); err != nil {
			s.logger.Errorw("deletion sweep failed", "err", err)
		}
	})
	if err != nil {
		cancel()
		return nil, err
	}
	c.Start()
	s.logger.Infow("deletion sweep scheduled", "spec", spec)
	return func() {
		cancel()
		<-c.Stop().Done()
	}, nil
}
