package app

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"learnhub/internal/domain/course"
	"learnhub/internal/domain/message"
	"learnhub/internal/domain/notify"
	"learnhub/internal/domain/progress"
	"learnhub/internal/domain/schedule"
)

// DeliveryConfig tunes the lesson delivery handler.
type DeliveryConfig struct {
	ContentTimeout   time.Duration // bound on content generation, default 10s
	PartLimit        int           // per-message byte budget, default message.DefaultPartLimit
	AdvanceOnFailure bool          // count terminally failed lessons as delivered
}

// DeliveryService executes one lesson delivery: fetch content, format for
// the channel, send every part, then advance the progress counter. It is the
// scheduler.Handler for the dispatcher.
type DeliveryService struct {
	progress progress.Store
	content  course.ContentProvider
	notifier notify.Notifier
	cfg      DeliveryConfig
	log      *logrus.Entry
}

func NewDeliveryService(
	ps progress.Store,
	cp course.ContentProvider,
	n notify.Notifier,
	cfg DeliveryConfig,
	log *logrus.Entry,
) *DeliveryService {
	if cfg.ContentTimeout <= 0 {
		cfg.ContentTimeout = 10 * time.Second
	}
	if cfg.PartLimit <= 0 {
		cfg.PartLimit = message.DefaultPartLimit
	}
	return &DeliveryService{
		progress: ps,
		content:  cp,
		notifier: n,
		cfg:      cfg,
		log:      log,
	}
}

// Deliver sends one lesson. The lesson counts as delivered only if every
// message part was accepted by the notifier; a content-provider failure is
// recovered with placeholder text and never fails the delivery.
func (s *DeliveryService) Deliver(ctx context.Context, job *schedule.Job) error {
	cctx, cancel := context.WithTimeout(ctx, s.cfg.ContentTimeout)
	text, err := s.content.Generate(cctx, job.Course, job.LessonIndex, job.TotalLessons)
	cancel()
	if err != nil {
		s.log.WithFields(logrus.Fields{
			"course":       job.Course,
			"lesson_index": job.LessonIndex,
		}).WithError(err).Warn("Content generation failed, using placeholder lesson")
		text = course.PlaceholderLesson(job.Course, job.LessonIndex, job.TotalLessons)
	}

	parts := message.Split(text, s.cfg.PartLimit)
	for i, part := range parts {
		if err := s.notifier.Send(ctx, job.Recipient, part); err != nil {
			return fmt.Errorf("sending part %d/%d of lesson %d: %w", i+1, len(parts), job.LessonIndex, err)
		}
	}

	// The lesson reached the recipient; a progress bookkeeping error must
	// not trigger a redelivery.
	if err := s.progress.Increment(ctx, job.Recipient, job.Course); err != nil {
		s.log.WithError(err).WithField("recipient", job.Recipient).Error("Failed to increment progress after delivery")
	}

	if job.LessonIndex == job.TotalLessons {
		s.sendCompletionNotice(ctx, job)
	}
	return nil
}

// OnTerminalFailure runs after retries are exhausted. The default policy
// still advances the counter so the learner's course keeps moving; the
// missed lesson is logged, not resurfaced.
func (s *DeliveryService) OnTerminalFailure(ctx context.Context, job *schedule.Job) {
	if !s.cfg.AdvanceOnFailure {
		return
	}
	if err := s.progress.Increment(ctx, job.Recipient, job.Course); err != nil {
		s.log.WithError(err).WithField("recipient", job.Recipient).Error("Failed to advance progress past failed lesson")
	}
}

func (s *DeliveryService) sendCompletionNotice(ctx context.Context, job *schedule.Job) {
	notice := fmt.Sprintf(
		"🎉 Congratulations! You've completed all %d lessons of %s. Well done!",
		job.TotalLessons, job.Course,
	)
	if err := s.notifier.Send(ctx, job.Recipient, notice); err != nil {
		// Best effort: the course is complete either way.
		s.log.WithError(err).WithField("recipient", job.Recipient).Warn("Failed to send completion notice")
	}
}
