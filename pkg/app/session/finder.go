package session

import (
	"context"
	"time"

	domainSession "github.com/NeuralTrust/RecruitGate/pkg/domain/session"
	infraCache "github.com/NeuralTrust/RecruitGate/pkg/infra/cache"
	"golang.org/x/sync/singleflight"
)

// Finder is the read path for latency-sensitive callers: mirror first, then the
// actor, repopulating the mirror on the partition so a refill never lands after
// a newer committed write.
//
//go:generate mockery --name=Finder --dir=. --output=./mocks --filename=finder_mock.go --case=underscore --with-expecter
type Finder interface {
	Find(ctx context.Context, id string) (*domainSession.Session, error)
	FindRoster(ctx context.Context, id string) ([]string, error)
}

type finder struct {
	actor  Actor
	mirror infraCache.LocalMirrorCache
	group  singleflight.Group
	now    func() time.Time
}

func NewFinder(actor Actor, mirror infraCache.LocalMirrorCache, now func() time.Time) Finder {
	if now == nil {
		now = time.Now
	}
	return &finder{
		actor:  actor,
		mirror: mirror,
		now:    now,
	}
}

func (f *finder) Find(ctx context.Context, id string) (*domainSession.Session, error) {
	if s, ok := f.mirror.Get(ctx, id); ok && !s.IsExpired(f.now()) {
		return s, nil
	}
	return f.loadAndCache(ctx, id)
}

// FindRoster answers from the roster mirror when the session mirror is warm.
func (f *finder) FindRoster(ctx context.Context, id string) ([]string, error) {
	if s, ok := f.mirror.Get(ctx, id); ok && s.OriginID != "" {
		if roster, ok := f.mirror.GetRoster(ctx, s.OriginID); ok {
			return roster, nil
		}
	}
	s, err := f.loadAndCache(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.Roster, nil
}

func (f *finder) loadAndCache(ctx context.Context, id string) (*domainSession.Session, error) {
	v, err, _ := f.group.Do(id, func() (interface{}, error) {
		s, err := f.actor.Inspect(ctx, id, func(ctx context.Context, s *domainSession.Session) {
			remaining := s.Remaining(f.now())
			f.mirror.Set(ctx, s.ID, s, remaining)
			if s.OriginID != "" {
				f.mirror.SetRoster(ctx, s.OriginID, s.Roster, remaining)
			}
		})
		if err != nil {
			return nil, err
		}
		return s, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*domainSession.Session).Clone(), nil
}
