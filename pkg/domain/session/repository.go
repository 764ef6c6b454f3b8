package session

import "context"

//go:generate mockery --name=ArchiveRepository --dir=. --output=./mocks --filename=archive_repository_mock.go --case=underscore --with-expecter
type ArchiveRepository interface {
	Save(ctx context.Context, s *Session, reason string) error
}

// EvictionListener is told about every session removed because its lifetime ended.
// autoClosed is true when the session was still open at that point.
type EvictionListener interface {
	OnEvicted(ctx context.Context, s *Session, autoClosed bool)
}

type EvictionListenerFunc func(ctx context.Context, s *Session, autoClosed bool)

func (f EvictionListenerFunc) OnEvicted(ctx context.Context, s *Session, autoClosed bool) {
	f(ctx, s, autoClosed)
}

// ChangeObserver receives every committed change, after the partition released it.
type ChangeObserver interface {
	OnChange(ctx context.Context, ev Event)
}

type ChangeObserverFunc func(ctx context.Context, ev Event)

func (f ChangeObserverFunc) OnChange(ctx context.Context, ev Event) {
	f(ctx, ev)
}
