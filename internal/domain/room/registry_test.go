package room

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/GriffinCanCode/coderoom/backend/internal/infrastructure/monitoring"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreate(t *testing.T) {
	r := NewRegistry()

	snap, err := r.Create("r1", "a")
	require.NoError(t, err)
	assert.Equal(t, "r1", snap.ID)
	assert.Equal(t, "", snap.Buffer)
	assert.Equal(t, []string{"a"}, snap.Members)

	_, err = r.Create("", "a")
	assert.ErrorIs(t, err, ErrInvalidRoomID)
	assert.Equal(t, 1, r.Count())
}

func TestCreateExistingResetsBufferKeepsMembers(t *testing.T) {
	r := NewRegistry()

	_, err := r.Create("r1", "a")
	require.NoError(t, err)
	_, err = r.Join("r1", "b")
	require.NoError(t, err)
	_, err = r.ApplyEdit("r1", "a", "let x = 1")
	require.NoError(t, err)

	snap, err := r.Create("r1", "c")
	require.NoError(t, err)
	assert.Equal(t, "", snap.Buffer)
	assert.Equal(t, []string{"a", "b", "c"}, snap.Members)
}

func TestJoinUnknownRoom(t *testing.T) {
	r := NewRegistry()

	for _, id := range []string{"never", "r2", "ROOM"} {
		_, err := r.Join(id, "a")
		assert.ErrorIs(t, err, ErrRoomNotFound)
		assert.False(t, r.Exists(id))
	}
	assert.Equal(t, 0, r.Count())
	assert.Equal(t, 0, r.Stats().Connections)
}

func TestJoinIsIdempotent(t *testing.T) {
	r := NewRegistry()
	_, err := r.Create("r1", "a")
	require.NoError(t, err)
	_, err = r.ApplyEdit("r1", "a", "code")
	require.NoError(t, err)

	before, _ := r.Get("r1")

	for i := 0; i < 2; i++ {
		buffer, err := r.Join("r1", "b")
		require.NoError(t, err)
		assert.Equal(t, "code", buffer)
	}

	after, _ := r.Get("r1")
	assert.Equal(t, before.Revision, after.Revision)
	assert.Equal(t, []string{"a", "b"}, after.Members)
}

func TestTwoJoinersSeeSameBuffer(t *testing.T) {
	r := NewRegistry()
	_, err := r.Create("r1", "creator")
	require.NoError(t, err)

	first, err := r.Join("r1", "a")
	require.NoError(t, err)
	second, err := r.Join("r1", "b")
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestApplyEditExcludesSender(t *testing.T) {
	r := NewRegistry()
	_, err := r.Create("r1", "a")
	require.NoError(t, err)
	_, _ = r.Join("r1", "b")
	_, _ = r.Join("r1", "c")

	recipients, err := r.ApplyEdit("r1", "a", "T")
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "c"}, recipients)

	snap, _ := r.Get("r1")
	assert.Equal(t, "T", snap.Buffer)
}

func TestApplyEditUnknownRoom(t *testing.T) {
	r := NewRegistry()

	_, err := r.ApplyEdit("ghost", "a", "text")
	assert.ErrorIs(t, err, ErrRoomNotFound)
	assert.False(t, r.Exists("ghost"))

	_, err = r.ApplyEdit("", "a", "text")
	assert.ErrorIs(t, err, ErrInvalidRoomID)
}

func TestRecordCompileOutput(t *testing.T) {
	r := NewRegistry()
	_, err := r.Create("r1", "a")
	require.NoError(t, err)
	_, _ = r.Join("r1", "b")

	rev, err := r.Revision("r1")
	require.NoError(t, err)

	members, err := r.RecordCompileOutput("r1", "ab", rev)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, members)

	snap, _ := r.Get("r1")
	assert.Equal(t, "ab", snap.Buffer)
	assert.Equal(t, uint64(1), r.Stats().Compiles)

	_, err = r.RecordCompileOutput("ghost", "x", 0)
	assert.ErrorIs(t, err, ErrRoomNotFound)
	_, err = r.Revision("ghost")
	assert.ErrorIs(t, err, ErrRoomNotFound)
}

func TestRecordCompileOutputAfterNewerEdit(t *testing.T) {
	r := NewRegistry()
	_, err := r.Create("r1", "a")
	require.NoError(t, err)
	_, _ = r.Join("r1", "b")

	rev, err := r.Revision("r1")
	require.NoError(t, err)

	_, err = r.ApplyEdit("r1", "b", "newer edit")
	require.NoError(t, err)

	members, err := r.RecordCompileOutput("r1", "stale output", rev)
	assert.ErrorIs(t, err, ErrStaleRevision)
	assert.Equal(t, []string{"a", "b"}, members)

	snap, _ := r.Get("r1")
	assert.Equal(t, "newer edit", snap.Buffer)
	assert.Equal(t, rev+1, snap.Revision)
}

func TestScenarioEditThenCompile(t *testing.T) {
	r := NewRegistry()

	snap, err := r.Create("r1", "a")
	require.NoError(t, err)
	assert.Equal(t, "", snap.Buffer)

	_, err = r.ApplyEdit("r1", "a", "x=1")
	require.NoError(t, err)
	snap, _ = r.Get("r1")
	assert.Equal(t, "x=1", snap.Buffer)

	rev, err := r.Revision("r1")
	require.NoError(t, err)
	_, err = r.RecordCompileOutput("r1", "no output produced", rev)
	require.NoError(t, err)
	snap, _ = r.Get("r1")
	assert.Equal(t, "no output produced", snap.Buffer)
	assert.Equal(t, uint64(3), snap.Revision)
}

func TestLeaveAndLeaveAll(t *testing.T) {
	r := NewRegistry()
	_, _ = r.Create("r1", "a")
	_, _ = r.Create("r2", "a")
	_, _ = r.Join("r2", "b")

	r.Leave("r1", "a")
	assert.False(t, r.IsMember("r1", "a"))
	assert.True(t, r.IsMember("r2", "a"))

	left := r.LeaveAll("a")
	assert.Equal(t, []string{"r2"}, left)

	members, err := r.Members("r2")
	require.NoError(t, err)
	assert.Equal(t, []string{"b"}, members)

	// Rooms outlive their members
	assert.Equal(t, 2, r.Count())
	assert.True(t, r.Exists("r1"))

	assert.Empty(t, r.LeaveAll("nobody"))
	r.Leave("ghost", "a")

	_, err = r.Members("ghost")
	assert.ErrorIs(t, err, ErrRoomNotFound)
}

func TestListAndStats(t *testing.T) {
	r := NewRegistry()
	_, _ = r.Create("b", "c1")
	_, _ = r.Create("a", "c1")
	_, _ = r.Join("a", "c2")
	_, _ = r.ApplyEdit("a", "c1", "hello")

	list := r.List()
	require.Len(t, list, 2)
	assert.Equal(t, "a", list[0].ID)
	assert.Equal(t, 2, list[0].MemberCount)
	assert.Equal(t, 5, list[0].BufferBytes)
	assert.Equal(t, "b", list[1].ID)

	stats := r.Stats()
	assert.Equal(t, 2, stats.Rooms)
	assert.Equal(t, 3, stats.Subscriptions)
	assert.Equal(t, 2, stats.Connections)
	assert.Equal(t, uint64(1), stats.Edits)
}

func TestSnapshotIsCopy(t *testing.T) {
	r := NewRegistry()
	_, _ = r.Create("r1", "a")

	snap, ok := r.Get("r1")
	require.True(t, ok)
	snap.Members[0] = "mallory"
	snap.Buffer = "changed"

	again, _ := r.Get("r1")
	assert.Equal(t, []string{"a"}, again.Members)
	assert.Equal(t, "", again.Buffer)

	_, ok = r.Get("ghost")
	assert.False(t, ok)
}

func TestTimestamps(t *testing.T) {
	r := NewRegistry()
	clock := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	r.now = func() time.Time { return clock }

	_, _ = r.Create("r1", "a")
	clock = clock.Add(time.Minute)
	_, _ = r.ApplyEdit("r1", "a", "x")

	snap, _ := r.Get("r1")
	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), snap.CreatedAt)
	assert.Equal(t, clock, snap.UpdatedAt)
}

func TestWithMetrics(t *testing.T) {
	metrics := monitoring.NewMetrics()
	r := NewRegistry().WithMetrics(metrics)

	_, _ = r.Create("r1", "a")
	_, _ = r.Create("r1", "b")
	_, _ = r.Join("r1", "c")

	assert.Equal(t, float64(2), testutil.ToFloat64(metrics.RoomsCreated))
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.RoomsActive))
	assert.Equal(t, float64(3), testutil.ToFloat64(metrics.RoomMembers))

	r.LeaveAll("c")
	assert.Equal(t, float64(2), testutil.ToFloat64(metrics.RoomMembers))
}

func TestConcurrentEdits(t *testing.T) {
	r := NewRegistry()
	_, _ = r.Create("r1", "owner")

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			conn := fmt.Sprintf("c%d", i)
			_, _ = r.Join("r1", conn)
			_, err := r.ApplyEdit("r1", conn, conn)
			assert.NoError(t, err)
			r.LeaveAll(conn)
		}(i)
	}
	wg.Wait()

	snap, _ := r.Get("r1")
	assert.Equal(t, uint64(21), snap.Revision)
	assert.Equal(t, []string{"owner"}, snap.Members)
}
