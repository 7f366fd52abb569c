package auditimpl

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/jonboulle/clockwork"
	"github.com/orgball2608/storyshare/internal/audit"
	"github.com/orgball2608/storyshare/internal/repositories/story"
	"github.com/orgball2608/storyshare/internal/storage"
	"github.com/orgball2608/storyshare/pkg/config"
	"github.com/orgball2608/storyshare/pkg/logger"
	"go.uber.org/fx"
)

const (
	defaultInterval = 6 * time.Hour
	runTimeout      = 10 * time.Minute
	// reportLimit caps how many keys go into an admin notification.
	reportLimit = 20
)

// Notifier receives a human-readable summary when orphans are found.
type Notifier interface {
	SendMessageToAdmin(msg string)
}

type Opts struct {
	fx.In

	Store    storage.ObjectStore
	Stories  story.Repository
	Config   *config.Config
	Logger   logger.Logger
	Clock    clockwork.Clock
	Notifier Notifier `optional:"true"`
}

type AuditImpl struct {
	store    storage.ObjectStore
	stories  story.Repository
	notifier Notifier
	interval time.Duration
	clock    clockwork.Clock
	logger   logger.Logger
}

var _ audit.Auditor = (*AuditImpl)(nil)

func New(opts Opts) *AuditImpl {
	interval := defaultInterval
	if opts.Config != nil && opts.Config.Audit.Interval > 0 {
		interval = opts.Config.Audit.Interval
	}
	return &AuditImpl{
		store:    opts.Store,
		stories:  opts.Stories,
		notifier: opts.Notifier,
		interval: interval,
		clock:    opts.Clock,
		logger:   opts.Logger.WithComponent("Audit"),
	}
}

// FindOrphans returns the object keys no record points at, sorted.
func FindOrphans(objectKeys, recordKeys []string) []string {
	referenced := make(map[string]struct{}, len(recordKeys))
	for _, k := range recordKeys {
		referenced[k] = struct{}{}
	}

	var orphans []string
	for _, k := range objectKeys {
		if _, ok := referenced[k]; !ok {
			orphans = append(orphans, k)
		}
	}
	sort.Strings(orphans)
	return orphans
}

// Run never deletes anything. Orphans are reported for an operator to review.
func (a *AuditImpl) Run(ctx context.Context) (*audit.Report, error) {
	objects, err := a.store.List(ctx, storage.BucketStories)
	if err != nil {
		return nil, fmt.Errorf("failed to list stored objects: %w", err)
	}
	records, err := a.stories.ImageKeys(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list story records: %w", err)
	}

	report := &audit.Report{
		Checked: len(objects),
		Orphans: FindOrphans(objects, records),
		At:      a.clock.Now(),
	}

	if len(report.Orphans) == 0 {
		a.logger.Info("Storage audit clean", "Checked", report.Checked)
		return report, nil
	}

	a.logger.Warn("Storage audit found orphaned objects",
		"Checked", report.Checked,
		"Orphans", len(report.Orphans))
	if a.notifier != nil {
		a.notifier.SendMessageToAdmin(formatReport(report))
	}
	return report, nil
}

func formatReport(r *audit.Report) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Storage audit: %d of %d story objects have no record.\n", len(r.Orphans), r.Checked)
	for i, k := range r.Orphans {
		if i == reportLimit {
			fmt.Fprintf(&b, "... and %d more", len(r.Orphans)-reportLimit)
			break
		}
		b.WriteString(k)
		b.WriteByte('\n')
	}
	return strings.TrimRight(b.String(), "\n")
}

func (a *AuditImpl) Schedule(ctx context.Context) error {
	scheduler, err := gocron.NewScheduler(gocron.WithClock(a.clock))
	if err != nil {
		return fmt.Errorf("failed to create scheduler: %w", err)
	}

	_, err = scheduler.NewJob(
		gocron.DurationJob(a.interval),
		gocron.NewTask(func() {
			if ctx.Err() != nil {
				a.logger.Info("Context cancelled, skipping storage audit")
				return
			}
			taskCtx, cancel := context.WithTimeout(ctx, runTimeout)
			defer cancel()

			if _, err := a.Run(taskCtx); err != nil {
				a.logger.Error("Storage audit failed", "error", err)
			}
		}),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return fmt.Errorf("failed to schedule storage audit: %w", err)
	}

	scheduler.Start()
	a.logger.Info("Storage audit scheduled", "Interval", a.interval)

	go func() {
		<-ctx.Done()
		a.logger.Info("Stopping storage audit scheduler")
		if err := scheduler.Shutdown(); err != nil {
			a.logger.Error("Failed to shut down scheduler", "error", err)
		}
	}()

	return nil
}
