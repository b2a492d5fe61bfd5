// Package scheduler turns a once-a-minute UTC tick into per-user reminders.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/tiffin-tracker/internal/application/dispatch"
	"github.com/tiffin-tracker/internal/domain"
	"github.com/tiffin-tracker/internal/pkg/id"
	"github.com/tiffin-tracker/internal/pkg/localclock"
)

const DefaultSpec = "* * * * *"

// EligibleLister returns users that are verified, subscribed, and have a
// timezone and at least one reminder time.
type EligibleLister interface {
	ListEligible(ctx context.Context) ([]domain.User, error)
}

type EntryEnsurer interface {
	EnsureEntry(ctx context.Context, userID, date, tm string) (domain.TiffinEntry, bool, error)
}

type Dispatcher interface {
	Dispatch(ctx context.Context, u *domain.User, e domain.TiffinEntry) dispatch.Outcome
}

type Config struct {
	Spec        string
	Concurrency int
	// TickTimeout bounds one tick's fan-out. Zero means no bound.
	TickTimeout time.Duration
}

// Report counts what one tick did.
type Report struct {
	Users     int
	Skipped   int // users whose timezone did not resolve
	Matched   int
	Created   int
	Failed    int // store errors
	Delivered int
	Gone      int
	Transient int
}

type Scheduler struct {
	cron       *cron.Cron
	users      EligibleLister
	entries    EntryEnsurer
	dispatcher Dispatcher
	cfg        Config
	now        func() time.Time
	log        logrus.FieldLogger
}

type Option func(*Scheduler)

// WithClock replaces time.Now as the tick source for cron-driven runs.
func WithClock(now func() time.Time) Option {
	return func(s *Scheduler) { s.now = now }
}

func New(users EligibleLister, entries EntryEnsurer, d Dispatcher, cfg Config, log logrus.FieldLogger, opts ...Option) *Scheduler {
	if cfg.Spec == "" {
		cfg.Spec = DefaultSpec
	}
	if cfg.Concurrency < 1 {
		cfg.Concurrency = 1
	}
	s := &Scheduler{
		users:      users,
		entries:    entries,
		dispatcher: d,
		cfg:        cfg,
		now:        time.Now,
		log:        log,
	}
	for _, o := range opts {
		o(s)
	}
	cl := cron.PrintfLogger(log)
	s.cron = cron.New(
		cron.WithLocation(time.UTC),
		cron.WithLogger(cl),
		cron.WithChain(cron.Recover(cl)),
	)
	return s
}

func (s *Scheduler) Start() error {
	if _, err := s.cron.AddFunc(s.cfg.Spec, s.run); err != nil {
		return fmt.Errorf("schedule %q: %w", s.cfg.Spec, err)
	}
	s.cron.Start()
	s.log.WithField("spec", s.cfg.Spec).Info("scheduler started")
	return nil
}

// Stop halts the tick source and waits for running ticks to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.log.Info("scheduler stopped")
}

func (s *Scheduler) run() {
	ctx := context.Background()
	if s.cfg.TickTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.TickTimeout)
		defer cancel()
	}
	s.Tick(ctx, s.now())
}

// Tick processes every eligible user for the minute containing now. Users are
// handled concurrently up to the configured limit and never affect each other.
func (s *Scheduler) Tick(ctx context.Context, now time.Time) Report {
	now = now.UTC().Truncate(time.Minute)
	log := s.log.WithFields(logrus.Fields{"run": id.ForTick(now), "tick": now.Format(time.RFC3339)})

	users, err := s.users.ListEligible(ctx)
	if err != nil {
		log.WithError(err).Error("list eligible users")
		return Report{}
	}

	var (
		mu  sync.Mutex
		rep = Report{Users: len(users)}
	)
	var g errgroup.Group
	g.SetLimit(s.cfg.Concurrency)
	for i := range users {
		u := &users[i]
		g.Go(func() error {
			r := s.processUser(ctx, now, u, log.WithField("user_id", u.UserID))
			mu.Lock()
			rep.add(r)
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	log.WithFields(logrus.Fields{
		"users":     rep.Users,
		"created":   rep.Created,
		"delivered": rep.Delivered,
		"gone":      rep.Gone,
		"transient": rep.Transient,
	}).Debug("tick done")
	return rep
}

func (s *Scheduler) processUser(ctx context.Context, now time.Time, u *domain.User, log logrus.FieldLogger) Report {
	var r Report
	wall, err := localclock.Resolve(now, u.Settings.Timezone)
	if err != nil {
		log.WithError(err).Warn("skipping user")
		r.Skipped++
		return r
	}

	matched, malformed := localclock.Match(wall, u.Settings.NotificationTimes)
	for _, t := range malformed {
		log.WithField("time", t).Warn("ignoring malformed reminder time")
	}

	for _, tm := range matched {
		r.Matched++
		entry, created, err := s.entries.EnsureEntry(ctx, u.UserID, wall.Date, tm)
		if err != nil {
			log.WithError(err).WithFields(logrus.Fields{"date": wall.Date, "time": tm}).Error("ensure entry")
			r.Failed++
			continue
		}
		if !created {
			continue
		}
		r.Created++
		switch s.dispatcher.Dispatch(ctx, u, entry) {
		case dispatch.OutcomeOK:
			r.Delivered++
		case dispatch.OutcomeGone:
			r.Gone++
			// The subscription is cleared; later matches this tick would fail the same way.
			return r
		case dispatch.OutcomeTransient:
			r.Transient++
		}
	}
	return r
}

func (r *Report) add(o Report) {
	r.Skipped += o.Skipped
	r.Matched += o.Matched
	r.Created += o.Created
	r.Failed += o.Failed
	r.Delivered += o.Delivered
	r.Gone += o.Gone
	r.Transient += o.Transient
}
