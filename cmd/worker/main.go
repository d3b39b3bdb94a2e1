package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"campus/internal/attendance"
	"campus/internal/config"
	"campus/internal/queue"
	"campus/internal/store"
	"campus/internal/verifyclient"
)

// Worker consumes present events, re-runs face verification as an audit,
// and stamps each event processed or flagged.
func main() {
	cfg := config.Load()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Println("shutdown signal received")
		cancel()
	}()

	db, err := store.NewDB(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db connect failed: %v", err)
	}
	defer db.Close()

	redisClient := store.NewRedis(cfg.RedisAddr)

	var q queue.Queue
	if cfg.QueueBackend == "memory" {
		q = queue.NewInMemory(64)
	} else {
		q = queue.NewRedisQueue(redisClient.Client, "campus:attendance")
	}

	repo := attendance.NewRepository(db.Client)
	sessions := attendance.NewRedisSessionStore(redisClient.Client, cfg.SessionTTL)
	verifier := verifyclient.New(cfg.VerifyServiceURL, cfg.VerifySkip)

	// Check verification service health on startup
	if !cfg.VerifySkip {
		if err := verifier.Health(ctx); err != nil {
			log.Printf("WARNING: verification service not available: %v", err)
			log.Println("Worker will retry audits when events arrive")
		} else {
			log.Println("verification service connected")
		}
	}

	messages, err := q.Consume(ctx)
	if err != nil {
		log.Fatalf("queue consume init failed: %v", err)
	}

	log.Println("worker started, waiting for messages...")
	for msg := range messages {
		if msg.Type != "present" {
			continue
		}

		id := string(msg.Body)
		log.Printf("auditing event %s", id)

		evt, err := repo.GetEvent(ctx, id)
		if err != nil {
			log.Printf("fetch event %s failed: %v", id, err)
			continue
		}

		// The captured frame URL lives on the session evidence. A session
		// expired out of Redis means no frame to re-check; leave the event
		// as recorded.
		imageURL := ""
		if sess, err := sessions.Get(ctx, evt.SessionID); err == nil && sess != nil {
			imageURL = sess.Evidence.ImageURL
		}
		if imageURL == "" {
			log.Printf("event %s: no frame available, skipping audit", id)
			_ = repo.UpdateEventStatus(ctx, id, "processed", nil)
			continue
		}

		result, err := verifier.Verify(ctx, evt.UserID, imageURL)
		if err != nil {
			log.Printf("audit verify failed for %s: %v", id, err)
			_ = repo.UpdateEventStatus(ctx, id, "audit-failed", nil)
			continue
		}

		score := result.Similarity
		status := "processed"
		if !result.Verified {
			status = "flagged"
		}
		log.Printf("event %s: verified=%v similarity=%.2f", id, result.Verified, score)
		_ = repo.UpdateEventStatus(ctx, id, status, &score)

		time.Sleep(10 * time.Millisecond) // Small delay between processing
	}

	log.Println("worker stopped")
}
