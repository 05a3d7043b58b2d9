package services

import (
	"log"
	"sync"
	"time"

	"github.com/nhattan2005/AI-Job-Board-sub001/internal/models"
	"github.com/nhattan2005/AI-Job-Board-sub001/internal/repositories"
)

// SessionJanitor force-completes interview sessions that have been idle
// longer than the TTL, so abandoned conversations do not stay active forever.
type SessionJanitor interface {
	Start()
	Stop()
}

type sessionJanitor struct {
	sessionRepo   repositories.SessionRepository
	idleTTL       time.Duration
	sweepInterval time.Duration
	wg            sync.WaitGroup
	stopChan      chan struct{}
}

func NewSessionJanitor(sessionRepo repositories.SessionRepository, idleTTL, sweepInterval time.Duration) SessionJanitor {
	return &sessionJanitor{
		sessionRepo:   sessionRepo,
		idleTTL:       idleTTL,
		sweepInterval: sweepInterval,
		stopChan:      make(chan struct{}),
	}
}

// Start implements SessionJanitor.
func (j *sessionJanitor) Start() {
	j.wg.Add(1)
	go j.sweepLoop()
	log.Printf("🧹 Session janitor started (TTL %s, every %s)", j.idleTTL, j.sweepInterval)
}

// Stop implements SessionJanitor.
func (j *sessionJanitor) Stop() {
	close(j.stopChan)
	j.wg.Wait()
	log.Println("✅ Session janitor stopped")
}

func (j *sessionJanitor) sweepLoop() {
	defer j.wg.Done()

	ticker := time.NewTicker(j.sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-j.stopChan:
			return
		case <-ticker.C:
			j.sweep()
		}
	}
}

func (j *sessionJanitor) sweep() {
	cutoff := time.Now().Add(-j.idleTTL)

	stale, err := j.sessionRepo.FindIdleActive(cutoff, 50)
	if err != nil {
		log.Printf("⚠️  Failed to fetch idle sessions: %v", err)
		return
	}

	if len(stale) == 0 {
		return
	}

	log.Printf("🧹 Closing %d idle interview sessions", len(stale))
	for _, session := range stale {
		report := &models.FeedbackReport{
			Strengths:      []string{},
			Weaknesses:     []string{},
			Recommendation: "Maybe",
		}
		if err := j.sessionRepo.Complete(session.ID, report, nil); err != nil {
			log.Printf("⚠️  Failed to close idle session %s: %v", session.ID, err)
		}
	}
}
