package backup

import (
	"context"
	"log"
	"time"

	"gorm.io/gorm"
)

// Job takes a snapshot every Interval and writes it to every sink.
type Job struct {
	DB       *gorm.DB
	Interval time.Duration
	Sinks    []Sink
}

// Run blocks until ctx is done. A zero interval disables the job.
func (j *Job) Run(ctx context.Context) {
	if j.Interval <= 0 || len(j.Sinks) == 0 {
		log.Println("backup job disabled")
		return
	}

	ticker := time.NewTicker(j.Interval)
	defer ticker.Stop()
	log.Printf("backup job every %s to %d sink(s)", j.Interval, len(j.Sinks))

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := j.RunOnce(ctx); err != nil {
				log.Printf("backup failed: %v", err)
			}
		}
	}
}

// RunOnce takes one snapshot. A failing sink does not stop the others;
// the first sink error is returned.
func (j *Job) RunOnce(ctx context.Context) error {
	snap, err := Take(ctx, j.DB)
	if err != nil {
		return err
	}

	var firstErr error
	for _, s := range j.Sinks {
		if err := s.Write(ctx, snap); err != nil {
			log.Printf("backup sink %s: %v", s.Name(), err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	if firstErr == nil {
		log.Printf("backup %s written (%d rows)", snap.ID, snap.Rows())
	}
	return firstErr
}
