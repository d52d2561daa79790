// Package sweeper marks sessions that have been idle past a configured
// window as abandoned. Abandonment is a status transition done from outside
// the interpreter; an in-flight walk that reaches a pause point simply never
// gets resumed afterwards.
package sweeper

import (
	"context"
	"log"
	"time"

	"github.com/Abraxas-365/chatflow/engine"
	"github.com/robfig/cron/v3"
)

type SessionSweeper struct {
	sessions     engine.SessionRepository
	abandonAfter time.Duration
	schedule     cron.Schedule
	stopChan     chan struct{}
	running      bool
}

func NewSessionSweeper(
	sessions engine.SessionRepository,
	abandonAfter time.Duration,
	scheduleSpec string,
) (*SessionSweeper, error) {
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	schedule, err := parser.Parse(scheduleSpec)
	if err != nil {
		return nil, err
	}

	return &SessionSweeper{
		sessions:     sessions,
		abandonAfter: abandonAfter,
		schedule:     schedule,
		stopChan:     make(chan struct{}),
	}, nil
}

// Start starts the sweeper loop
func (s *SessionSweeper) Start(ctx context.Context) {
	if s.running {
		log.Println("⚠️  Session sweeper already running")
		return
	}
	s.running = true
	log.Println("🧹 Starting session sweeper...")

	go func() {
		for {
			next := s.schedule.Next(time.Now())
			timer := time.NewTimer(time.Until(next))

			select {
			case <-ctx.Done():
				timer.Stop()
				log.Println("⏹️  Session sweeper stopped (context done)")
				return
			case <-s.stopChan:
				timer.Stop()
				log.Println("⏹️  Session sweeper stopped")
				return
			case <-timer.C:
				s.sweep(ctx)
			}
		}
	}()
}

// Stop stops the sweeper loop
func (s *SessionSweeper) Stop() {
	if !s.running {
		return
	}
	s.running = false
	close(s.stopChan)
}

func (s *SessionSweeper) sweep(ctx context.Context) {
	cutoff := time.Now().Add(-s.abandonAfter)

	idle, err := s.sessions.FindIdleSince(ctx, cutoff)
	if err != nil {
		log.Printf("❌ Sweep failed to list idle sessions: %v", err)
		return
	}

	abandoned := 0
	for _, session := range idle {
		session.Abandon()
		if err := s.sessions.Save(ctx, *session); err != nil {
			log.Printf("❌ Sweep failed to abandon session %s: %v", session.ID, err)
			continue
		}
		abandoned++
	}

	if abandoned > 0 {
		log.Printf("🧹 Sweep abandoned %d idle sessions (idle since %s)", abandoned, cutoff.Format(time.RFC3339))
	}
}
