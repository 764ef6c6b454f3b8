package session_test

import (
	"testing"
	"time"

	"github.com/NeuralTrust/RecruitGate/pkg/domain"
	"github.com/NeuralTrust/RecruitGate/pkg/domain/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeriveID(t *testing.T) {
	assert.Equal(t, "77889900", session.DeriveID("1203344556677889900"))
	assert.Equal(t, "short", session.DeriveID("short"))
	assert.Equal(t, "abcdefgh", session.DeriveID("  xxabcdefgh "))
}

func TestSession_Lifetime(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	s := &session.Session{Status: session.StatusOpen, ExpiresAt: now.Add(time.Minute)}

	assert.False(t, s.IsExpired(now))
	assert.Equal(t, time.Minute, s.Remaining(now))
	assert.True(t, s.IsExpired(now.Add(time.Minute)))
	assert.Equal(t, time.Duration(0), s.Remaining(now.Add(time.Hour)))

	s.MarkClosed(now, 5*time.Hour)
	assert.Equal(t, session.StatusClosed, s.Status)
	require.NotNil(t, s.ClosedAt)
	assert.Equal(t, now.Add(5*time.Hour), s.ExpiresAt)

	closedAt := *s.ClosedAt
	s.MarkClosed(now.Add(time.Hour), time.Minute)
	assert.Equal(t, closedAt, *s.ClosedAt)
}

func TestSession_Membership(t *testing.T) {
	s := &session.Session{Capacity: 2, Roster: []string{"a"}}
	assert.True(t, s.HasMember("a"))
	assert.False(t, s.HasMember("b"))
	assert.False(t, s.IsFull())
	s.Roster = append(s.Roster, "b")
	assert.True(t, s.IsFull())

	s.Capacity = 0
	assert.False(t, s.IsFull())
}

func TestSession_StartReached(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	start := now.Add(time.Minute)
	s := &session.Session{Status: session.StatusOpen, StartAt: &start}

	assert.False(t, s.StartReached(now))
	assert.True(t, s.StartReached(start))
	s.NotifiedAtStart = true
	assert.False(t, s.StartReached(start))
}

func TestSession_CloneIsDeep(t *testing.T) {
	start := time.Now()
	s := &session.Session{
		Roster:   []string{"a"},
		StartAt:  &start,
		Metadata: map[string]interface{}{"realm": "eu"},
	}
	c := s.Clone()
	c.Roster[0] = "z"
	c.Metadata["realm"] = "us"
	*c.StartAt = start.Add(time.Hour)

	assert.Equal(t, "a", s.Roster[0])
	assert.Equal(t, "eu", s.Metadata["realm"])
	assert.Equal(t, start, *s.StartAt)
	assert.Nil(t, (*session.Session)(nil).Clone())
}

func TestRequester_CanManage(t *testing.T) {
	s := &session.Session{OwnerID: "owner"}
	assert.True(t, session.Requester{ID: "owner"}.CanManage(s))
	assert.True(t, session.Requester{ID: "someone", Admin: true}.CanManage(s))
	assert.False(t, session.Requester{ID: "someone"}.CanManage(s))
	assert.False(t, session.Requester{}.CanManage(&session.Session{}))
}

func TestDecodePatch(t *testing.T) {
	p, err := session.DecodePatch(map[string]interface{}{
		"title":      "new title",
		"capacity":   float64(5),
		"status":     "closed",
		"expires_at": "2024-05-01T20:00:00Z",
		"roster":     []interface{}{"x"},
		"owner_id":   "thief",
	})
	require.NoError(t, err)
	require.NotNil(t, p.Title)
	assert.Equal(t, "new title", *p.Title)
	require.NotNil(t, p.Capacity)
	assert.Equal(t, 5, *p.Capacity)
	require.NotNil(t, p.Status)
	assert.Equal(t, session.StatusClosed, *p.Status)
	require.NotNil(t, p.ExpiresAt)
	assert.Equal(t, time.Date(2024, 5, 1, 20, 0, 0, 0, time.UTC), p.ExpiresAt.UTC())

	_, err = session.DecodePatch(map[string]interface{}{"status": "archived"})
	assert.True(t, domain.IsValidationError(err))

	empty, err := session.DecodePatch(map[string]interface{}{"roster": []interface{}{"x"}})
	require.NoError(t, err)
	assert.True(t, empty.IsEmpty())
}

func TestPatch_Apply(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	newSession := func() *session.Session {
		return &session.Session{
			Status:    session.StatusOpen,
			Roster:    []string{"a", "b"},
			ExpiresAt: now.Add(time.Hour),
			Metadata:  map[string]interface{}{"realm": "eu"},
		}
	}
	intp := func(v int) *int { return &v }
	closed := session.StatusClosed

	t.Run("capacity below roster is rejected", func(t *testing.T) {
		s := newSession()
		err := session.Patch{Capacity: intp(1)}.Apply(s, now, time.Hour)
		assert.True(t, domain.IsValidationError(err))
		assert.Equal(t, 0, s.Capacity)
	})

	t.Run("metadata merges", func(t *testing.T) {
		s := newSession()
		require.NoError(t, session.Patch{Metadata: map[string]interface{}{"tier": 3}}.Apply(s, now, time.Hour))
		assert.Equal(t, map[string]interface{}{"realm": "eu", "tier": 3}, s.Metadata)
	})

	t.Run("closing shortens the lifetime", func(t *testing.T) {
		s := newSession()
		require.NoError(t, session.Patch{Status: &closed}.Apply(s, now, 10*time.Minute))
		assert.Equal(t, session.StatusClosed, s.Status)
		assert.Equal(t, now.Add(10*time.Minute), s.ExpiresAt)
	})

	t.Run("closed sessions are immutable", func(t *testing.T) {
		s := newSession()
		s.MarkClosed(now, time.Hour)
		title := "late edit"
		assert.ErrorIs(t, session.Patch{Title: &title}.Apply(s, now, time.Hour), domain.ErrClosed)
	})
}

func TestHistory(t *testing.T) {
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	s := &session.Session{ID: "s1", ScopeID: "g1", Roster: []string{"a"}}

	var events []session.Event
	for i := 0; i < session.HistoryLimit+5; i++ {
		events = session.AppendEvent(events, session.NewEvent(session.EventJoined, s, "a", base.Add(time.Duration(i)*time.Minute)))
	}
	require.Len(t, events, session.HistoryLimit)
	assert.Equal(t, base.Add(5*time.Minute), events[0].Timestamp)

	s.Roster[0] = "mutated"
	assert.Equal(t, "a", events[0].Snapshot.Roster[0])

	window := session.FilterEvents(events, base.Add(10*time.Minute), base.Add(12*time.Minute))
	require.Len(t, window, 3)
	assert.Equal(t, base.Add(10*time.Minute), window[0].Timestamp)
	assert.Len(t, session.FilterEvents(events, time.Time{}, time.Time{}), session.HistoryLimit)
}
