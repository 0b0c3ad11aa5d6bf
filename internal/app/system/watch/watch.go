// internal/app/system/watch/watch.go

// Package watch provides live subscriptions over roster collections.
//
// A Subscription opens a Mongo change stream on one collection and, on every
// change, re-materializes the full snapshot through the caller's fetch
// function and delivers it on Events. Consumers always receive whole
// snapshots, never deltas, and must tolerate the list being replaced
// wholesale at any point.
//
// A Subscription is a scoped resource: acquire it when a consuming view
// activates and Close it unconditionally when the view goes away, error
// exits included. Close releases the server-side watch and stops delivery.
package watch

import (
	"context"
	"sync"

	"maktabhub/internal/domain/models"

	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// FetchFunc materializes the full snapshot the subscription delivers.
type FetchFunc func(ctx context.Context) ([]models.Member, error)

// Subscription is a live view over one member collection.
type Subscription struct {
	events chan []models.Member
	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
}

// Members subscribes to changes on coll. The initial snapshot is delivered
// before any change event. The subscription runs until Close is called or
// ctx is cancelled.
func Members(ctx context.Context, coll *mongo.Collection, fetch FetchFunc, logger *zap.Logger) (*Subscription, error) {
	wctx, cancel := context.WithCancel(ctx)

	stream, err := coll.Watch(wctx, mongo.Pipeline{})
	if err != nil {
		cancel()
		return nil, err
	}

	initial, err := fetch(wctx)
	if err != nil {
		_ = stream.Close(context.Background())
		cancel()
		return nil, err
	}

	s := &Subscription{
		events: make(chan []models.Member, 1),
		cancel: cancel,
		done:   make(chan struct{}),
	}
	s.push(initial)

	go s.run(wctx, stream, fetch, logger)
	return s, nil
}

// Events yields full snapshots. The channel is closed after Close.
// Intermediate snapshots may be dropped; the latest one always arrives.
func (s *Subscription) Events() <-chan []models.Member {
	return s.events
}

// Close releases the server-side watch and stops delivery. Safe to call
// more than once and from any goroutine.
func (s *Subscription) Close() {
	s.once.Do(func() {
		s.cancel()
		<-s.done
		close(s.events)
	})
}

func (s *Subscription) run(ctx context.Context, stream *mongo.ChangeStream, fetch FetchFunc, logger *zap.Logger) {
	defer close(s.done)
	defer func() {
		// Close with a fresh context: ctx is already cancelled by the
		// time Close unwinds the stream.
		_ = stream.Close(context.Background())
	}()

	for stream.Next(ctx) {
		snapshot, err := fetch(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			logger.Warn("live snapshot refresh failed", zap.Error(err))
			continue
		}
		s.push(snapshot)
	}

	if err := stream.Err(); err != nil && ctx.Err() == nil {
		logger.Warn("change stream ended", zap.Error(err))
	}
}

// push delivers latest-wins: a stale undelivered snapshot is replaced.
func (s *Subscription) push(snapshot []models.Member) {
	for {
		select {
		case s.events <- snapshot:
			return
		default:
			select {
			case <-s.events:
			default:
			}
		}
	}
}
