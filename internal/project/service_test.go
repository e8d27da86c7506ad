package project

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"ShareFlow/internal/cache"
	"ShareFlow/internal/editor"
	"ShareFlow/internal/model"
	"ShareFlow/internal/store"
)

type flowCall struct {
	receiver string
	rate     string
}

type fakeProtocol struct {
	calls  []flowCall
	failOn string
}

func (f *fakeProtocol) CreateFlow(_ context.Context, receiver, flowRate string) error {
	if receiver == f.failOn {
		return errors.New("rpc unavailable")
	}
	f.calls = append(f.calls, flowCall{receiver: receiver, rate: flowRate})
	return nil
}

func newTestService(t *testing.T, c cache.Cache, opts Options) (*Service, *store.MemoryStore, *fakeProtocol) {
	t.Helper()
	st := store.NewMemoryStore()
	proto := &fakeProtocol{}
	svc := NewService(st, c, proto, zap.NewNop().Sugar(), opts)

	seq := 0
	svc.newID = func() string {
		seq++
		return fmt.Sprintf("id-%d", seq)
	}
	clock := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	svc.now = func() time.Time {
		clock = clock.Add(time.Second)
		return clock
	}
	return svc, st, proto
}

func percentsOf(v AllocationView) []float64 {
	out := make([]float64, len(v.Shares))
	for i, s := range v.Shares {
		out[i] = s.Percent
	}
	return out
}

func TestCreate_DefaultTemplate(t *testing.T) {
	svc, _, _ := newTestService(t, nil, Options{})
	p, err := svc.Create(context.Background(), CreateParams{Name: "  EP  "})
	require.NoError(t, err)

	assert.Equal(t, "EP", p.Name)
	require.Len(t, p.Roles, 1)
	assert.Equal(t, "Creator", p.Roles[0].Name)
	assert.Equal(t, 100.0, p.Roles[0].Percent)
}

func TestCreate_Validation(t *testing.T) {
	svc, _, _ := newTestService(t, nil, Options{})
	ctx := context.Background()

	tests := []struct {
		name   string
		params CreateParams
	}{
		{"empty name", CreateParams{Name: " "}},
		{"unknown template", CreateParams{Name: "x", Template: "orchestra"}},
		{"negative target", CreateParams{Name: "x", FundingTarget: -1}},
		{"role without name", CreateParams{Name: "x", Roles: []RoleInput{{Percent: 100}}}},
		{"role over 100", CreateParams{Name: "x", Roles: []RoleInput{{Name: "a", Percent: 120}}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Create(ctx, tt.params)
			assert.ErrorIs(t, err, ErrInvalidInput)
		})
	}
}

func TestEditAndSave(t *testing.T) {
	svc, st, _ := newTestService(t, nil, Options{})
	ctx := context.Background()

	p, err := svc.Create(ctx, CreateParams{Name: "Single", Template: "duo"})
	require.NoError(t, err)
	creator, collab := p.Roles[0].ID, p.Roles[1].ID

	view, err := svc.EditPercent(ctx, p.ID, creator, 70)
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{70, 30}, percentsOf(view), 1e-9)
	assert.True(t, view.Validation.Valid)
	assert.True(t, view.CanUndo)

	// Draft edits are not visible until saved.
	saved, err := st.GetProject(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 50.0, saved.Roles[0].Percent)

	newID, view, err := svc.AddRole(ctx, p.ID, "Mixer", 20)
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{56, 24, 20}, percentsOf(view), 1e-9)
	assert.Equal(t, newID, view.Shares[2].ID)

	view, err = svc.RenameRole(ctx, p.ID, collab, "Producer")
	require.NoError(t, err)
	assert.Equal(t, "Producer", view.Shares[1].Name)

	saved, err = svc.Save(ctx, p.ID)
	require.NoError(t, err)
	require.Len(t, saved.Roles, 3)
	assert.Equal(t, "Producer", saved.Roles[1].Name)
	assert.InDelta(t, 56, saved.Roles[0].Percent, 1e-9)
	assert.True(t, saved.UpdatedAt.After(saved.CreatedAt))

	// Saving ends the session; the next draft starts from the saved state.
	view, err = svc.Draft(ctx, p.ID)
	require.NoError(t, err)
	assert.False(t, view.CanUndo)
	assert.Len(t, view.Shares, 3)
}

func TestUndoRedo(t *testing.T) {
	svc, _, _ := newTestService(t, nil, Options{})
	ctx := context.Background()

	p, err := svc.Create(ctx, CreateParams{Name: "Film", Template: "duo"})
	require.NoError(t, err)
	id := p.Roles[0].ID

	_, err = svc.EditPercent(ctx, p.ID, id, 80)
	require.NoError(t, err)

	view, err := svc.Undo(ctx, p.ID)
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{50, 50}, percentsOf(view), 1e-9)
	assert.False(t, view.CanUndo)
	assert.True(t, view.CanRedo)

	view, err = svc.Redo(ctx, p.ID)
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{80, 20}, percentsOf(view), 1e-9)

	// Undo with nothing left is a no-op rather than an error.
	_, err = svc.Undo(ctx, p.ID)
	require.NoError(t, err)
	view, err = svc.Undo(ctx, p.ID)
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{50, 50}, percentsOf(view), 1e-9)
}

func TestSave_RejectsInvalidDraft(t *testing.T) {
	svc, st, _ := newTestService(t, nil, Options{})
	ctx := context.Background()

	p, err := svc.Create(ctx, CreateParams{Name: "Under", Roles: []RoleInput{
		{Name: "a", Percent: 10}, {Name: "b", Percent: 20}, {Name: "c", Percent: 20},
	}})
	require.NoError(t, err)

	view, err := svc.EditPercent(ctx, p.ID, p.Roles[0].ID, 80)
	require.NoError(t, err)
	assert.False(t, view.Validation.Valid)
	assert.InDelta(t, 20, view.Validation.Deficit, 1e-9)

	_, err = svc.Save(ctx, p.ID)
	assert.ErrorIs(t, err, ErrInvalidAllocation)

	saved, err := st.GetProject(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 10.0, saved.Roles[0].Percent)

	// The session survives a rejected save.
	view, err = svc.Draft(ctx, p.ID)
	require.NoError(t, err)
	assert.True(t, view.CanUndo)
}

func TestEdit_Errors(t *testing.T) {
	svc, _, _ := newTestService(t, nil, Options{})
	ctx := context.Background()

	_, err := svc.Draft(ctx, "missing")
	assert.ErrorIs(t, err, store.ErrNotFound)

	p, err := svc.Create(ctx, CreateParams{Name: "Solo"})
	require.NoError(t, err)

	_, err = svc.EditPercent(ctx, p.ID, "nope", 10)
	assert.ErrorIs(t, err, editor.ErrUnknownRole)
	_, err = svc.RemoveRole(ctx, p.ID, p.Roles[0].ID)
	assert.ErrorIs(t, err, editor.ErrLastRole)
	_, _, err = svc.AddRole(ctx, p.ID, "  ", 10)
	assert.ErrorIs(t, err, editor.ErrEmptyName)
}

func TestDiscard(t *testing.T) {
	svc, _, _ := newTestService(t, nil, Options{})
	ctx := context.Background()

	p, err := svc.Create(ctx, CreateParams{Name: "Duo", Template: "duo"})
	require.NoError(t, err)
	_, err = svc.EditPercent(ctx, p.ID, p.Roles[0].ID, 90)
	require.NoError(t, err)

	svc.Discard(p.ID)
	view, err := svc.Draft(ctx, p.ID)
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{50, 50}, percentsOf(view), 1e-9)
}

func TestWalletExpensesFunding(t *testing.T) {
	svc, _, _ := newTestService(t, nil, Options{})
	ctx := context.Background()

	p, err := svc.Create(ctx, CreateParams{Name: "Tour", FundingTarget: 1000})
	require.NoError(t, err)

	got, err := svc.SetWallet(ctx, p.ID, p.Roles[0].ID, " 0xabc ")
	require.NoError(t, err)
	assert.Equal(t, "0xabc", got.Roles[0].WalletAddress)

	_, err = svc.SetWallet(ctx, p.ID, "nope", "0x1")
	assert.ErrorIs(t, err, editor.ErrUnknownRole)

	_, err = svc.SetExpenses(ctx, p.ID, []model.Expense{
		{Name: "Van", AmountUSDC: decimal.NewFromInt(-5), PayoutType: model.PayoutOneTime},
	})
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, err = svc.SetExpenses(ctx, p.ID, []model.Expense{{Name: "Van", PayoutType: "weekly"}})
	assert.ErrorIs(t, err, ErrInvalidInput)

	got, err = svc.SetExpenses(ctx, p.ID, []model.Expense{
		{Name: "Van", AmountUSDC: decimal.RequireFromString("300.50"), PayoutType: model.PayoutOneTime},
		{Name: "Insurance", AmountUSDC: decimal.NewFromInt(40), PayoutType: model.PayoutRecurring},
	})
	require.NoError(t, err)
	assert.Len(t, got.Expenses, 2)

	prog, err := svc.RecordFunding(ctx, p.ID, 250)
	require.NoError(t, err)
	assert.Equal(t, 25.0, prog.PercentFunded)
	assert.Equal(t, 750.0, prog.Remaining)

	_, err = svc.RecordFunding(ctx, p.ID, -1)
	assert.ErrorIs(t, err, ErrInvalidInput)

	prog, err = svc.SetTarget(ctx, p.ID, 200)
	require.NoError(t, err)
	assert.True(t, prog.IsFullyFunded)
	assert.Equal(t, 100.0, prog.PercentFunded)

	d, err := svc.Dashboard(ctx, p.ID, big.NewInt(0))
	require.NoError(t, err)
	assert.True(t, d.Expenses.OneTime.Equal(decimal.RequireFromString("300.5")))
	assert.True(t, d.Expenses.Recurring.Equal(decimal.NewFromInt(40)))
	assert.True(t, d.Expenses.Total.Equal(decimal.RequireFromString("340.5")))
}

func TestDashboard_Rates(t *testing.T) {
	svc, _, _ := newTestService(t, nil, Options{RoyaltyBps: 1000, TokenDecimals: 6})
	ctx := context.Background()

	p, err := svc.Create(ctx, CreateParams{Name: "Duo", Template: "duo"})
	require.NoError(t, err)

	d, err := svc.Dashboard(ctx, p.ID, big.NewInt(2592000000))
	require.NoError(t, err)
	assert.True(t, d.RatesAvailable)
	assert.Equal(t, "2332800000", d.Distributable)
	require.Len(t, d.Roles, 2)
	assert.Equal(t, "450", d.Roles[0].RatePerSecond)
	assert.Equal(t, "0.00045", d.Roles[0].RateDisplay)

	_, err = svc.Dashboard(ctx, p.ID, big.NewInt(-1))
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestDashboard_NoRatesWhenInvalid(t *testing.T) {
	svc, _, _ := newTestService(t, nil, Options{})
	ctx := context.Background()

	p, err := svc.Create(ctx, CreateParams{Name: "Short", Roles: []RoleInput{
		{Name: "a", Percent: 40}, {Name: "b", Percent: 40},
	}})
	require.NoError(t, err)

	d, err := svc.Dashboard(ctx, p.ID, big.NewInt(2592000000))
	require.NoError(t, err)
	assert.False(t, d.RatesAvailable)
	assert.False(t, d.Allocation.Valid)
	assert.Empty(t, d.Roles[0].RatePerSecond)
}

func TestDashboard_CachedUntilSave(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	svc, st, _ := newTestService(t, cache.NewRedisCache(client, time.Minute), Options{})
	ctx := context.Background()

	p, err := svc.Create(ctx, CreateParams{Name: "Duo", Template: "duo"})
	require.NoError(t, err)

	d, err := svc.Dashboard(ctx, p.ID, big.NewInt(2592000000))
	require.NoError(t, err)
	assert.Equal(t, "500", d.Roles[0].RatePerSecond)
	assert.Len(t, mr.Keys(), 1)

	// A write behind the service's back is not seen while cached.
	raw, err := st.GetProject(ctx, p.ID)
	require.NoError(t, err)
	raw.Name = "Renamed"
	require.NoError(t, st.UpdateProject(ctx, raw))
	d, err = svc.Dashboard(ctx, p.ID, big.NewInt(2592000000))
	require.NoError(t, err)
	assert.Equal(t, "Duo", d.Name)

	_, err = svc.EditPercent(ctx, p.ID, p.Roles[0].ID, 75)
	require.NoError(t, err)
	_, err = svc.Save(ctx, p.ID)
	require.NoError(t, err)
	assert.Empty(t, mr.Keys())

	d, err = svc.Dashboard(ctx, p.ID, big.NewInt(2592000000))
	require.NoError(t, err)
	assert.Equal(t, "Renamed", d.Name)
	assert.Equal(t, "750", d.Roles[0].RatePerSecond)
	assert.Equal(t, "250", d.Roles[1].RatePerSecond)
}

func TestLaunchStreams(t *testing.T) {
	svc, st, proto := newTestService(t, nil, Options{})
	ctx := context.Background()

	p, err := svc.Create(ctx, CreateParams{Name: "Band", Roles: []RoleInput{
		{Name: "Lead", Percent: 60, WalletAddress: "0xlead"},
		{Name: "Bass", Percent: 40},
	}})
	require.NoError(t, err)

	res, err := svc.LaunchStreams(ctx, p.ID, big.NewInt(2592000000))
	require.NoError(t, err)
	require.Len(t, res.Started, 1)
	assert.Equal(t, StartedStream{RoleID: p.Roles[0].ID, Receiver: "0xlead", FlowRate: "600"}, res.Started[0])
	assert.Equal(t, []string{p.Roles[1].ID}, res.Skipped)
	assert.Equal(t, []flowCall{{receiver: "0xlead", rate: "600"}}, proto.calls)

	saved, err := st.GetProject(ctx, p.ID)
	require.NoError(t, err)
	assert.True(t, saved.Roles[0].StreamActive)
	require.True(t, saved.Roles[0].FlowRate.Valid)
	assert.Equal(t, "600", saved.Roles[0].FlowRate.Decimal.String())
	assert.False(t, saved.Roles[1].StreamActive)

	_, err = svc.LaunchStreams(ctx, p.ID, big.NewInt(0))
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestLaunchStreams_PartialFailure(t *testing.T) {
	svc, st, proto := newTestService(t, nil, Options{})
	ctx := context.Background()

	p, err := svc.Create(ctx, CreateParams{Name: "Band", Roles: []RoleInput{
		{Name: "Lead", Percent: 50, WalletAddress: "0xlead"},
		{Name: "Drums", Percent: 50, WalletAddress: "0xdrums"},
	}})
	require.NoError(t, err)
	proto.failOn = "0xdrums"

	res, err := svc.LaunchStreams(ctx, p.ID, big.NewInt(2592000000))
	assert.ErrorIs(t, err, ErrStreamProtocol)
	assert.Len(t, res.Started, 1)

	saved, err := st.GetProject(ctx, p.ID)
	require.NoError(t, err)
	assert.True(t, saved.Roles[0].StreamActive)
	assert.False(t, saved.Roles[1].StreamActive)
}

func TestLaunchStreams_InvalidAllocation(t *testing.T) {
	svc, _, proto := newTestService(t, nil, Options{})
	ctx := context.Background()

	p, err := svc.Create(ctx, CreateParams{Name: "Short", Roles: []RoleInput{
		{Name: "a", Percent: 30, WalletAddress: "0xa"},
	}})
	require.NoError(t, err)

	_, err = svc.LaunchStreams(ctx, p.ID, big.NewInt(2592000000))
	assert.ErrorIs(t, err, ErrInvalidAllocation)
	assert.Empty(t, proto.calls)
}

func TestSweepAndDrift(t *testing.T) {
	svc, _, _ := newTestService(t, nil, Options{})
	ctx := context.Background()

	ok, err := svc.Create(ctx, CreateParams{Name: "Funded", FundingTarget: 100})
	require.NoError(t, err)
	_, err = svc.RecordFunding(ctx, ok.ID, 100)
	require.NoError(t, err)

	bad, err := svc.Create(ctx, CreateParams{Name: "Drifted", Roles: []RoleInput{{Name: "a", Percent: 90}}})
	require.NoError(t, err)

	results, err := svc.SweepFunding(ctx)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.True(t, results[0].Progress.IsFullyFunded)
	assert.False(t, results[1].Progress.IsFullyFunded)

	hist, err := svc.FundingHistory(ctx, ok.ID, 0)
	require.NoError(t, err)
	require.Len(t, hist, 1)
	assert.Equal(t, 100.0, hist[0].PercentFunded)

	drift, err := svc.CheckDrift(ctx)
	require.NoError(t, err)
	require.Len(t, drift, 1)
	assert.Equal(t, bad.ID, drift[0].ProjectID)
	assert.InDelta(t, 10, drift[0].Deficit, 1e-9)
}

func TestLaunchStreams_RetryAfterPartialFailure(t *testing.T) {
	svc, st, proto := newTestService(t, nil, Options{})
	ctx := context.Background()

	p, err := svc.Create(ctx, CreateParams{Name: "Band", Roles: []RoleInput{
		{Name: "Lead", Percent: 50, WalletAddress: "0xlead"},
		{Name: "Drums", Percent: 50, WalletAddress: "0xdrums"},
	}})
	require.NoError(t, err)

	proto.failOn = "0xdrums"
	_, err = svc.LaunchStreams(ctx, p.ID, big.NewInt(2592000000))
	require.ErrorIs(t, err, ErrStreamProtocol)

	proto.failOn = ""
	res, err := svc.LaunchStreams(ctx, p.ID, big.NewInt(2592000000))
	require.NoError(t, err)
	assert.Equal(t, []string{p.Roles[0].ID}, res.AlreadyActive)
	require.Len(t, res.Started, 1)
	assert.Equal(t, "0xdrums", res.Started[0].Receiver)

	// Each receiver got exactly one stream across both launches.
	assert.Equal(t, []flowCall{{receiver: "0xlead", rate: "500"}, {receiver: "0xdrums", rate: "500"}}, proto.calls)

	saved, err := st.GetProject(ctx, p.ID)
	require.NoError(t, err)
	assert.True(t, saved.Roles[0].StreamActive)
	assert.True(t, saved.Roles[1].StreamActive)

	// A third launch submits nothing.
	res, err = svc.LaunchStreams(ctx, p.ID, big.NewInt(2592000000))
	require.NoError(t, err)
	assert.Empty(t, res.Started)
	assert.Len(t, res.AlreadyActive, 2)
	assert.Len(t, proto.calls, 2)
}

func TestReadOnlyDraftKeepsNoSession(t *testing.T) {
	svc, _, _ := newTestService(t, nil, Options{})
	ctx := context.Background()

	p, err := svc.Create(ctx, CreateParams{Name: "Duo", Template: "duo"})
	require.NoError(t, err)

	view, err := svc.Draft(ctx, p.ID)
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{50, 50}, percentsOf(view), 1e-9)
	assert.True(t, view.Validation.Valid)
	assert.False(t, view.CanUndo)

	_, err = svc.Undo(ctx, p.ID)
	require.NoError(t, err)
	_, err = svc.Redo(ctx, p.ID)
	require.NoError(t, err)
	assert.Empty(t, svc.sessions.editors)

	_, err = svc.Undo(ctx, "missing")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestIdleSessionsEvicted(t *testing.T) {
	svc, _, _ := newTestService(t, nil, Options{})
	ctx := context.Background()

	a, err := svc.Create(ctx, CreateParams{Name: "A", Template: "duo"})
	require.NoError(t, err)
	b, err := svc.Create(ctx, CreateParams{Name: "B", Template: "duo"})
	require.NoError(t, err)

	_, err = svc.EditPercent(ctx, a.ID, a.Roles[0].ID, 70)
	require.NoError(t, err)
	require.Len(t, svc.sessions.editors, 1)

	clock := svc.now()
	svc.now = func() time.Time { return clock.Add(sessionIdleTTL + time.Minute) }

	_, err = svc.EditPercent(ctx, b.ID, b.Roles[0].ID, 60)
	require.NoError(t, err)
	require.Len(t, svc.sessions.editors, 1)
	_, ok := svc.sessions.editors[b.ID]
	assert.True(t, ok)

	// The abandoned draft of A is gone; its saved split is what remains.
	view, err := svc.Draft(ctx, a.ID)
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{50, 50}, percentsOf(view), 1e-9)
}

// lockCheckCache records whether the service lock was held while filling.
type lockCheckCache struct {
	cache.Noop
	svc        *Service
	fills      int
	heldOnFill bool
}

func (c *lockCheckCache) PutDashboard(context.Context, string, string, any) error {
	c.fills++
	if c.svc.mu.TryLock() {
		c.svc.mu.Unlock()
		c.heldOnFill = false
	} else {
		c.heldOnFill = true
	}
	return nil
}

func TestDashboard_FillsCacheUnderLock(t *testing.T) {
	c := &lockCheckCache{}
	svc, _, _ := newTestService(t, c, Options{})
	c.svc = svc
	ctx := context.Background()

	p, err := svc.Create(ctx, CreateParams{Name: "Duo", Template: "duo"})
	require.NoError(t, err)

	_, err = svc.Dashboard(ctx, p.ID, big.NewInt(2592000000))
	require.NoError(t, err)
	require.Equal(t, 1, c.fills)
	assert.True(t, c.heldOnFill)
}

func TestDashboard_FlagsOutdatedStreams(t *testing.T) {
	svc, _, _ := newTestService(t, nil, Options{})
	ctx := context.Background()

	p, err := svc.Create(ctx, CreateParams{Name: "Duo", Roles: []RoleInput{
		{Name: "Lead", Percent: 50, WalletAddress: "0xlead"},
		{Name: "Bass", Percent: 50, WalletAddress: "0xbass"},
	}})
	require.NoError(t, err)
	_, err = svc.LaunchStreams(ctx, p.ID, big.NewInt(2592000000))
	require.NoError(t, err)

	d, err := svc.Dashboard(ctx, p.ID, big.NewInt(2592000000))
	require.NoError(t, err)
	assert.False(t, d.Roles[0].StreamOutdated)
	assert.False(t, d.Roles[1].StreamOutdated)

	_, err = svc.EditPercent(ctx, p.ID, p.Roles[0].ID, 70)
	require.NoError(t, err)
	_, err = svc.Save(ctx, p.ID)
	require.NoError(t, err)

	d, err = svc.Dashboard(ctx, p.ID, big.NewInt(2592000000))
	require.NoError(t, err)
	assert.Equal(t, "700", d.Roles[0].RatePerSecond)
	assert.Equal(t, "500", d.Roles[0].StreamFlowRate.Decimal.String())
	assert.True(t, d.Roles[0].StreamOutdated)
	assert.True(t, d.Roles[1].StreamOutdated)
}

type failingSnapshots struct {
	*store.MemoryStore
}

func (failingSnapshots) RecordFundingSnapshot(context.Context, *model.FundingSnapshot) error {
	return errors.New("disk full")
}

func TestSweepFunding_ReportsProjectWhenSnapshotFails(t *testing.T) {
	st := failingSnapshots{store.NewMemoryStore()}
	svc := NewService(st, nil, &fakeProtocol{}, zap.NewNop().Sugar(), Options{})
	ctx := context.Background()

	p, err := svc.Create(ctx, CreateParams{Name: "EP", FundingTarget: 100})
	require.NoError(t, err)
	_, err = svc.RecordFunding(ctx, p.ID, 100)
	require.NoError(t, err)

	results, err := svc.SweepFunding(ctx)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, p.ID, results[0].Project.ID)
	assert.True(t, results[0].Progress.IsFullyFunded)
}
