package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"classmeet/internal/classifier"
	"classmeet/internal/config"
	"classmeet/internal/ledger"
	"classmeet/internal/queue"
	"classmeet/internal/store"
)

// Worker consumes queued frames, calls the classifier, and appends the
// observation to the attendance/emotion ledger.
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
	if err := db.Migrate(ctx); err != nil {
		log.Fatalf("db migrate failed: %v", err)
	}

	redisClient := store.NewRedis(cfg.RedisAddr)

	var q queue.Queue
	if cfg.QueueBackend == "memory" {
		q = queue.NewInMemory(64)
	} else {
		q = queue.NewRedisQueue(redisClient.Client, "classmeet:frames")
	}

	led := ledger.NewService(ledger.NewRepository(db.Client))
	faces := classifier.New(cfg.ClassifierURL, cfg.ClassifierSkip)

	// Check classifier health on startup
	if !cfg.ClassifierSkip {
		if err := faces.Health(ctx); err != nil {
			log.Printf("WARNING: classifier not available: %v", err)
			log.Println("Worker will retry classification when frames arrive")
		} else {
			log.Println("Classifier connected")
		}
	}

	messages, err := q.Consume(ctx)
	if err != nil {
		log.Fatalf("queue consume init failed: %v", err)
	}

	log.Println("worker started, waiting for frames...")
	for msg := range messages {
		if msg.Type != "frame" {
			continue
		}

		imageURL := string(msg.Body)
		result, err := faces.Classify(ctx, imageURL)
		if err != nil {
			log.Printf("classification failed for %s: %v", imageURL, err)
			continue
		}

		obs := ledger.Observation{
			Identity:  result.Identity,
			Emotion:   result.Emotion,
			Attention: result.Attention,
		}
		if err := led.RecordObservation(ctx, obs); err != nil {
			log.Printf("record observation for %s failed: %v", result.Identity, err)
			continue
		}
		log.Printf("recorded %s: emotion=%s attention=%s", result.Identity, result.Emotion, result.Attention)

		time.Sleep(10 * time.Millisecond) // Small delay between frames
	}

	log.Println("worker stopped")
}
