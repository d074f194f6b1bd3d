package scheduler

import (
	"errors"
	"log"
	"time"

	"github.com/go-co-op/gocron"

	"github.com/PsiSigmaCyber/OnePlus-Weather-Widget/internal/widget"
)

// Scheduler is the widget alarm: one single-shot job per instance, tagged
// with the instance id.
type Scheduler struct {
	scheduler *gocron.Scheduler
	interval  time.Duration
}

var _ widget.Alarm = (*Scheduler)(nil)

// New creates a new Scheduler firing interval after each Arm.
func New(interval time.Duration) *Scheduler {
	if interval <= 0 {
		interval = 30 * time.Minute
	}
	s := gocron.NewScheduler(time.UTC)
	s.TagsUnique()
	return &Scheduler{
		scheduler: s,
		interval:  interval,
	}
}

// Start starts the underlying scheduler.
func (s *Scheduler) Start() {
	s.scheduler.StartAsync()
}

// Stop stops the scheduler and cancels any future jobs.
func (s *Scheduler) Stop() {
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
}

// Arm schedules fire to run once, interval from now. Arming an instance that
// already has a pending trigger fails; callers Cancel first.
func (s *Scheduler) Arm(id widget.InstanceID, fire func()) error {
	_, err := s.scheduler.Every(s.interval).
		WaitForSchedule().
		LimitRunsTo(1).
		Tag(tag(id)).
		Do(fire)
	return err
}

// Cancel drops the pending trigger of id, if any.
func (s *Scheduler) Cancel(id widget.InstanceID) error {
	err := s.scheduler.RemoveByTag(tag(id))
	if errors.Is(err, gocron.ErrJobNotFoundWithTag) {
		return nil
	}
	return err
}

// CancelAll drops every pending trigger.
func (s *Scheduler) CancelAll() error {
	s.scheduler.Clear()
	log.Println("scheduler: cleared all widget alarms")
	return nil
}

// Pending reports whether id has a trigger waiting to fire.
func (s *Scheduler) Pending(id widget.InstanceID) bool {
	jobs, err := s.scheduler.FindJobsByTag(tag(id))
	if err != nil {
		return false
	}
	for _, j := range jobs {
		if j.IsRunning() || j.RunCount() == 0 {
			return true
		}
	}
	return false
}

// Len returns the number of scheduled jobs.
func (s *Scheduler) Len() int {
	return s.scheduler.Len()
}

func tag(id widget.InstanceID) string {
	return "widget-" + id.String()
}
