package server

import (
	"context"
	"log"
	"time"

	"github.com/gorhill/cronexpr"
	"github.com/redis/go-redis/v9"

	"github.com/mohammad-safakhou/prepagent/internal/conversation"
)

// sweepable is implemented by conversation stores that need periodic
// expiry; the redis backend expires keys natively and opts out.
type sweepable interface {
	Sweep() int
}

// Sweeper periodically drops idle conversations on a cron schedule. With
// redis present, a lock keeps multiple instances from sweeping at once.
type Sweeper struct {
	Conv   conversation.Store
	Rdb    *redis.Client
	Cron   string
	Stop   chan struct{}
	Logger *log.Logger
}

func (s *Sweeper) Start() {
	target, ok := s.Conv.(sweepable)
	if !ok {
		return
	}
	if s.Logger == nil {
		s.Logger = log.New(log.Writer(), "[SWEEP] ", log.LstdFlags)
	}
	spec := s.Cron
	if spec == "" {
		spec = "@hourly"
	}
	expr, err := cronexpr.Parse(spec)
	if err != nil {
		s.Logger.Printf("invalid sweep cron %q, sweeper disabled: %v", spec, err)
		return
	}

	go func() {
		for {
			next := expr.Next(time.Now())
			if next.IsZero() {
				return
			}
			select {
			case <-s.Stop:
				return
			case <-time.After(time.Until(next)):
				s.sweep(target)
			}
		}
	}()
}

func (s *Sweeper) sweep(target sweepable) {
	ctx := context.Background()
	if s.Rdb != nil {
		ok, _ := s.Rdb.SetNX(ctx, "sweep:lock", "1", 2*time.Minute).Result()
		if !ok {
			return
		}
		defer s.Rdb.Del(ctx, "sweep:lock")
	}
	if removed := target.Sweep(); removed > 0 {
		conversationsSweptTotal.Add(float64(removed))
		s.Logger.Printf("removed %d idle conversations", removed)
	}
}
