package ops

import (
	"github.com/robfig/cron/v3"

	"insightforge/internal"
	"insightforge/internal/errors"
)

// Scheduler runs periodic maintenance jobs such as cache sweeps
type Scheduler struct {
	cron   *cron.Cron
	logger *internal.Logger
}

// NewScheduler creates a stopped scheduler. Specs accept an optional
// seconds field and descriptors like "@every 5m".
func NewScheduler(logger *internal.Logger) *Scheduler {
	if logger == nil {
		logger = internal.NewDefaultLogger()
	}
	return &Scheduler{
		cron:   cron.New(cron.WithParser(cron.NewParser(cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor))),
		logger: logger.With("scheduler"),
	}
}

// Add registers job under spec. A panicking job is logged and skipped.
func (s *Scheduler) Add(name, spec string, job func()) error {
	_, err := s.cron.AddFunc(spec, func() {
		defer func() {
			if r := recover(); r != nil {
				s.logger.Error("job %s panicked: %v", name, r)
			}
		}()
		s.logger.Debug("running job %s", name)
		job()
	})
	if err != nil {
		return errors.ConfigInvalid("invalid schedule " + spec + " for " + name + ": " + err.Error())
	}
	s.logger.Info("scheduled %s (%s)", name, spec)
	return nil
}

// Len reports the number of registered jobs
func (s *Scheduler) Len() int {
	return len(s.cron.Entries())
}

// Start runs the jobs in the background
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop halts scheduling and waits for running jobs
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}
