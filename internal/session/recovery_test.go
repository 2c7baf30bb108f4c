package session

import (
	"context"
	"testing"
	"time"

	"github.com/GrEarl/CloverBINGO-sub000/bingo"
	"github.com/GrEarl/CloverBINGO-sub000/internal/ledger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func adminView(t *testing.T, c *Coordinator) AdminSnapshot {
	t.Helper()
	snap, err := c.View(context.Background(), ConnMeta{Role: RoleAdmin})
	require.NoError(t, err)
	return snap.(AdminSnapshot)
}

func TestRestart_ReloadsCommittedState(t *testing.T) {
	store := ledger.NewMemoryStore()
	ctx := context.Background()

	first := New("ROOM", testConfig(store, "node-a"))
	secrets := initialize(t, first)
	alice := join(t, first, "alice")
	drawOne(t, first, secrets.Admin)
	drawOne(t, first, secrets.Admin)
	pending, err := first.Prepare(ctx, secrets.Admin)
	require.NoError(t, err)
	_, err = first.SetSpotlight(ctx, secrets.Mod, []string{alice.PlayerID}, "mod")
	require.NoError(t, err)
	want := adminView(t, first)
	first.Stop()
	<-first.Done()

	second := New("ROOM", testConfig(store, "node-a"))
	t.Cleanup(second.Stop)
	again, err := second.Initialize(ctx)
	require.NoError(t, err)
	assert.Nil(t, again, "restored session must not hand out new secrets")

	got := adminView(t, second)
	assert.Equal(t, want.DrawnNumbers, got.DrawnNumbers)
	assert.Equal(t, want.Players, got.Players)
	assert.Equal(t, want.BagRemaining, got.BagRemaining)
	assert.Equal(t, want.Stats, got.Stats)
	assert.Equal(t, want.Spotlight.IDs, got.Spotlight.IDs)
	require.NotNil(t, got.Pending)
	assert.Equal(t, pending.Number, got.Pending.Number)

	// old secrets keep working and the pending draw can be finished
	res, err := second.Reel(ctx, secrets.Admin, "ten", "stop")
	require.NoError(t, err)
	assert.False(t, res.Committed)
	res, err = second.Reel(ctx, secrets.Admin, "one", "stop")
	require.NoError(t, err)
	assert.True(t, res.Committed)
	assert.Equal(t, 3, res.DrawCount)

	commits, err := second.Commits(ctx)
	require.NoError(t, err)
	require.Len(t, commits, 3)
	assert.Equal(t, pending.Number, commits[2].Number)
}

func TestRestart_AdoptsCommitMissingFromSlot(t *testing.T) {
	store := ledger.NewMemoryStore()
	ctx := context.Background()

	first := New("ROOM", testConfig(store, "node-a"))
	secrets := initialize(t, first)
	alice := join(t, first, "alice")
	pending, err := first.Prepare(ctx, secrets.Admin)
	require.NoError(t, err)
	first.Stop()
	<-first.Done()

	// the log got the commit but the slot was never rewritten
	require.NoError(t, store.AppendCommit(ctx, "ROOM", bingo.Commit{Seq: 1, Number: pending.Number, CommittedAt: time.Now()}))

	second := New("ROOM", testConfig(store, "node-a"))
	t.Cleanup(second.Stop)
	got := adminView(t, second)
	assert.Nil(t, got.Pending)
	assert.Equal(t, []int{pending.Number}, got.DrawnNumbers)
	assert.Equal(t, bingo.MaxNumber-1, got.BagRemaining)

	part, err := second.View(ctx, ConnMeta{Role: RoleParticipant, PlayerID: alice.PlayerID})
	require.NoError(t, err)
	assert.Equal(t, bingo.EvaluateProgress(alice.Card, []int{pending.Number}), part.(ParticipantSnapshot).Player.Progress)
}

func TestRestart_BackfillsCommitMissingFromLog(t *testing.T) {
	source := ledger.NewMemoryStore()
	ctx := context.Background()

	first := New("ROOM", testConfig(source, "node-a"))
	secrets := initialize(t, first)
	n := drawOne(t, first, secrets.Admin)
	first.Stop()
	<-first.Done()

	raw, err := source.LoadSession(ctx, "ROOM")
	require.NoError(t, err)
	target := ledger.NewMemoryStore()
	require.NoError(t, target.SaveSession(ctx, "ROOM", raw))

	second := New("ROOM", testConfig(target, "node-a"))
	t.Cleanup(second.Stop)
	assert.Equal(t, []int{n}, adminView(t, second).DrawnNumbers)

	commits, err := target.ListCommits(ctx, "ROOM")
	require.NoError(t, err)
	require.Len(t, commits, 1)
	assert.Equal(t, n, commits[0].Number)
}

func TestOwnerLease_SecondInstanceIsRejected(t *testing.T) {
	store := ledger.NewMemoryStore()
	ctx := context.Background()

	owner := New("ROOM", testConfig(store, "node-a"))
	t.Cleanup(owner.Stop)
	initialize(t, owner)

	intruder := New("ROOM", testConfig(store, "node-b"))
	_, err := intruder.Initialize(ctx)
	require.ErrorIs(t, err, ledger.ErrOwnedElsewhere)
	<-intruder.Done()
	assert.True(t, intruder.IsClosed())

	owner.Stop()
	<-owner.Done()
	// Done closes before the actor releases the lease, so poll briefly
	require.Eventually(t, func() bool {
		next := New("ROOM", testConfig(store, "node-b"))
		defer next.Stop()
		_, err := next.Initialize(ctx)
		return err == nil
	}, 2*time.Second, 20*time.Millisecond)
}
