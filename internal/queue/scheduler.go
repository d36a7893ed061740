package queue

import (
	"context"
	"time"

	"github.com/azamatb/parcelhub/internal/log"
)

// NotificationLead is how long before the pickup window start the reminder
// fires.
const NotificationLead = time.Hour

// Scheduler turns a pickup window into a delayed reminder job. Enqueue is
// fire-and-forget from the API's point of view: the publish is bounded and
// pickup creation never waits on delivery.
type Scheduler struct {
	pub  Publisher
	lead time.Duration
}

func NewScheduler(pub Publisher) *Scheduler {
	return &Scheduler{pub: pub, lead: NotificationLead}
}

// ScheduleNotification enqueues a reminder to fire lead time before
// windowStart and returns the job id. A fire time already in the past is
// accepted and published with zero delay, so the reminder goes out as soon
// as possible instead of being dropped.
func (s *Scheduler) ScheduleNotification(ctx context.Context, pickupID string, windowStart time.Time) (string, error) {
	delay := time.Until(windowStart.Add(-s.lead))
	if delay < 0 {
		log.S().Warnw("notification fire time already passed, enqueueing immediately",
			"pickup_id", pickupID, "window_start", windowStart)
		delay = 0
	}
	jobID, err := s.pub.PublishDelayed(ctx, KeyNotifyDue, PickupNotificationDue{
		PickupID:    pickupID,
		WindowStart: windowStart,
	}, delay)
	if err != nil {
		return "", err
	}
	log.S().Infow("scheduled pickup notification",
		"pickup_id", pickupID, "job_id", jobID, "delay", delay)
	return jobID, nil
}
