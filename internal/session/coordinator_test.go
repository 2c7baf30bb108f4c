package session

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/GrEarl/CloverBINGO-sub000/bingo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitialize_IsIdempotent(t *testing.T) {
	c, _ := newTestCoordinator(t)
	secrets := initialize(t, c)
	assert.NotEmpty(t, secrets.Admin)
	assert.NotEmpty(t, secrets.Mod)
	assert.NotEqual(t, secrets.Admin, secrets.Mod)

	again, err := c.Initialize(context.Background())
	require.NoError(t, err)
	assert.Nil(t, again)

	// the original secrets still work
	require.NoError(t, c.Authorize(context.Background(), RoleAdmin, secrets.Admin))
	require.NoError(t, c.Authorize(context.Background(), RoleMod, secrets.Mod))
}

func TestOperations_RequireInitialization(t *testing.T) {
	c, _ := newTestCoordinator(t)
	ctx := context.Background()

	_, err := c.Join(ctx, "alice")
	assert.ErrorIs(t, err, ErrNotInitialized)
	_, err = c.Prepare(ctx, "whatever")
	assert.ErrorIs(t, err, ErrNotInitialized)
	_, err = c.Connect(ctx, ConnMeta{Role: RoleObserver}, &recordingSender{})
	assert.ErrorIs(t, err, ErrNotInitialized)
	_, err = c.View(ctx, ConnMeta{Role: RoleObserver})
	assert.ErrorIs(t, err, ErrNotInitialized)
}

func TestJoin_ValidatesAndTruncatesName(t *testing.T) {
	c, _ := newTestCoordinator(t)
	initialize(t, c)
	ctx := context.Background()

	_, err := c.Join(ctx, "   ")
	require.ErrorIs(t, err, ErrInvalidName)
	assert.ErrorIs(t, err, ErrInvalidInput)

	long := strings.Repeat("é", 30)
	res := join(t, c, long)
	require.NoError(t, res.Card.Validate())

	snap, err := c.View(ctx, ConnMeta{Role: RoleAdmin})
	require.NoError(t, err)
	admin := snap.(AdminSnapshot)
	require.Len(t, admin.Players, 1)
	assert.Equal(t, strings.Repeat("é", MaxNameLength), admin.Players[0].DisplayName)
	assert.Equal(t, res.PlayerID, admin.Players[0].ID)
}

func TestDrawProtocol_PrepareRevealCommit(t *testing.T) {
	c, _ := newTestCoordinator(t)
	secrets := initialize(t, c)
	ctx := context.Background()
	players := []JoinResult{join(t, c, "alice"), join(t, c, "bob")}

	before, err := c.View(ctx, ConnMeta{Role: RoleAdmin})
	require.NoError(t, err)
	assert.Equal(t, bingo.MaxNumber, before.(AdminSnapshot).BagRemaining)

	pd, err := c.Prepare(ctx, secrets.Admin)
	require.NoError(t, err)
	assert.Equal(t, bingo.ReelIdle, pd.Ten.Status)
	assert.Equal(t, bingo.ReelIdle, pd.One.Status)

	mid, err := c.View(ctx, ConnMeta{Role: RoleAdmin})
	require.NoError(t, err)
	assert.Equal(t, bingo.MaxNumber-1, mid.(AdminSnapshot).BagRemaining)
	assert.Equal(t, pd.Number, mid.(AdminSnapshot).Pending.Number)

	res, err := c.Reel(ctx, secrets.Admin, "ten", "start")
	require.NoError(t, err)
	assert.Equal(t, bingo.ReelSpinning, res.Pending.Ten.Status)
	res, err = c.Reel(ctx, secrets.Admin, "ten", "stop")
	require.NoError(t, err)
	wantTen, wantOne := bingo.SplitNumber(pd.Number)
	require.NotNil(t, res.Pending.Ten.Value)
	assert.Equal(t, wantTen, *res.Pending.Ten.Value)
	assert.False(t, res.Committed)

	_, err = c.Reel(ctx, secrets.Admin, "one", "start")
	require.NoError(t, err)
	res, err = c.Reel(ctx, secrets.Admin, "one", "stop")
	require.NoError(t, err)
	assert.True(t, res.Committed)
	assert.Equal(t, pd.Number, res.Number)
	assert.Equal(t, 1, res.DrawCount)
	assert.Nil(t, res.Pending)
	assert.Equal(t, pd.Number, bingo.ComposeNumber(wantTen, wantOne))

	after, err := c.View(ctx, ConnMeta{Role: RoleAdmin})
	require.NoError(t, err)
	admin := after.(AdminSnapshot)
	assert.Nil(t, admin.Pending)
	assert.Equal(t, []int{pd.Number}, admin.DrawnNumbers)
	assert.Equal(t, 1, admin.DrawCount)
	assert.Equal(t, bingo.MaxNumber-1, admin.BagRemaining)

	for _, p := range players {
		snap, err := c.View(ctx, ConnMeta{Role: RoleParticipant, PlayerID: p.PlayerID})
		require.NoError(t, err)
		part := snap.(ParticipantSnapshot)
		require.NotNil(t, part.Player)
		assert.Equal(t, bingo.EvaluateProgress(p.Card, []int{pd.Number}), part.Player.Progress)
		assert.Equal(t, []int{pd.Number}, part.DrawnNumbers)
	}
}

func TestPrepare_TwiceReturnsSamePendingDraw(t *testing.T) {
	c, _ := newTestCoordinator(t)
	secrets := initialize(t, c)
	ctx := context.Background()

	first, err := c.Prepare(ctx, secrets.Admin)
	require.NoError(t, err)
	second, err := c.Prepare(ctx, secrets.Admin)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	snap, err := c.View(ctx, ConnMeta{Role: RoleAdmin})
	require.NoError(t, err)
	assert.Equal(t, bingo.MaxNumber-1, snap.(AdminSnapshot).BagRemaining)
}

func TestReel_WithoutPendingDraw(t *testing.T) {
	c, _ := newTestCoordinator(t)
	secrets := initialize(t, c)
	ctx := context.Background()

	before, err := c.View(ctx, ConnMeta{Role: RoleAdmin})
	require.NoError(t, err)
	_, err = c.Reel(ctx, secrets.Admin, "one", "stop")
	require.ErrorIs(t, err, ErrNoPendingDraw)
	after, err := c.View(ctx, ConnMeta{Role: RoleAdmin})
	require.NoError(t, err)
	assert.Equal(t, before.(AdminSnapshot).Players, after.(AdminSnapshot).Players)
	assert.Equal(t, before.Header().UpdatedAt, after.Header().UpdatedAt)
	assert.Equal(t, bingo.MaxNumber, after.(AdminSnapshot).BagRemaining)
}

func TestReel_RejectsMalformedInputAndWrongSecret(t *testing.T) {
	c, _ := newTestCoordinator(t)
	secrets := initialize(t, c)
	ctx := context.Background()
	_, err := c.Prepare(ctx, secrets.Admin)
	require.NoError(t, err)

	_, err = c.Reel(ctx, secrets.Admin, "hundred", "stop")
	assert.ErrorIs(t, err, ErrBadRequest)
	_, err = c.Reel(ctx, secrets.Admin, "ten", "pause")
	assert.ErrorIs(t, err, ErrBadRequest)
	_, err = c.Reel(ctx, secrets.Mod, "ten", "stop")
	assert.ErrorIs(t, err, ErrForbidden)
	_, err = c.Prepare(ctx, "")
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestReel_StopIsIdempotentAndStartClearsValue(t *testing.T) {
	c, _ := newTestCoordinator(t)
	secrets := initialize(t, c)
	ctx := context.Background()
	_, err := c.Prepare(ctx, secrets.Admin)
	require.NoError(t, err)

	first, err := c.Reel(ctx, secrets.Admin, "ten", "stop")
	require.NoError(t, err)
	again, err := c.Reel(ctx, secrets.Admin, "ten", "stop")
	require.NoError(t, err)
	assert.Equal(t, first, again)

	restarted, err := c.Reel(ctx, secrets.Admin, "ten", "start")
	require.NoError(t, err)
	assert.Equal(t, bingo.ReelSpinning, restarted.Pending.Ten.Status)
	assert.Nil(t, restarted.Pending.Ten.Value)
}

func TestPrepare_PoolExhausted(t *testing.T) {
	c, _ := newTestCoordinator(t)
	secrets := initialize(t, c)
	seen := make(map[int]bool)
	for i := 0; i < bingo.MaxNumber; i++ {
		n := drawOne(t, c, secrets.Admin)
		require.False(t, seen[n], "number %d drawn twice", n)
		seen[n] = true
	}
	_, err := c.Prepare(context.Background(), secrets.Admin)
	assert.ErrorIs(t, err, ErrPoolExhausted)
}

func TestEnd_FreezesSession(t *testing.T) {
	c, _ := newTestCoordinator(t)
	secrets := initialize(t, c)
	ctx := context.Background()
	sender := &recordingSender{}
	_, err := c.Connect(ctx, ConnMeta{Role: RoleObserver}, sender)
	require.NoError(t, err)

	require.ErrorIs(t, c.End(ctx, secrets.Mod), ErrForbidden)
	require.NoError(t, c.End(ctx, secrets.Admin))
	require.NoError(t, c.End(ctx, secrets.Admin), "ending twice is a no-op")

	_, err = c.Join(ctx, "late")
	assert.ErrorIs(t, err, ErrEnded)
	_, err = c.Prepare(ctx, secrets.Admin)
	assert.ErrorIs(t, err, ErrEnded)
	_, err = c.Reel(ctx, secrets.Admin, "ten", "start")
	assert.ErrorIs(t, err, ErrEnded)

	assert.False(t, sender.isClosed())
	assert.Equal(t, StatusEnded, sender.last().Header().Status)
}

func TestSpotlight_NormalizesAndBounds(t *testing.T) {
	c, _ := newTestCoordinator(t)
	secrets := initialize(t, c)
	ctx := context.Background()
	p := join(t, c, "alice")

	ids := []string{" " + p.PlayerID + " ", p.PlayerID, "", "b", "c", "d", "e", "f", "g", "h"}
	sp, err := c.SetSpotlight(ctx, secrets.Mod, ids, " mod-1 ")
	require.NoError(t, err)
	assert.Equal(t, []string{p.PlayerID, "b", "c", "d", "e", "f"}, sp.IDs)
	assert.Equal(t, "mod-1", sp.UpdatedBy)
	assert.LessOrEqual(t, len(sp.IDs), MaxSpotlight)

	snap, err := c.View(ctx, ConnMeta{Role: RoleObserver})
	require.NoError(t, err)
	view := snap.Header().Spotlight
	assert.Len(t, view.IDs, MaxSpotlight)
	require.Len(t, view.Players, 1, "only known ids resolve to players")
	assert.Equal(t, "alice", view.Players[0].DisplayName)
	require.NotNil(t, view.UpdatedAt)

	_, err = c.SetSpotlight(ctx, secrets.Admin, ids, "admin")
	assert.ErrorIs(t, err, ErrForbidden)
	_, err = c.SetSpotlight(ctx, secrets.Mod, []string{strings.Repeat("x", 200)}, "m")
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestJoinWhilePending_UpdatesImpact(t *testing.T) {
	c, _ := newTestCoordinator(t)
	secrets := initialize(t, c)
	ctx := context.Background()
	pd, err := c.Prepare(ctx, secrets.Admin)
	require.NoError(t, err)
	assert.Equal(t, Impact{}, pd.Impact)

	for i := 0; i < 5; i++ {
		join(t, c, "p")
	}
	again, err := c.Prepare(ctx, secrets.Admin)
	require.NoError(t, err)
	assert.Equal(t, pd.Number, again.Number)
	// a single drawn number can never complete a line or leave one missing
	assert.Equal(t, Impact{}, again.Impact)
}

func TestStop_RejectsFurtherOperations(t *testing.T) {
	c, _ := newTestCoordinator(t)
	initialize(t, c)
	sender := &recordingSender{}
	_, err := c.Connect(context.Background(), ConnMeta{Role: RoleObserver}, sender)
	require.NoError(t, err)

	c.Stop()
	assert.True(t, c.IsClosed())
	assert.True(t, sender.isClosed())
	_, err = c.Join(context.Background(), "x")
	assert.True(t, errors.Is(err, ErrClosed), "got %v", err)
}
