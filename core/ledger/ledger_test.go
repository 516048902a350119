package ledger

import (
	"context"
	"errors"
	"testing"

	"orpheus/config"
	"orpheus/core/registry"
	"orpheus/fault"
	"orpheus/model"
	"orpheus/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLedger(t *testing.T) (*registry.Registry, *Ledger) {
	t.Helper()
	repo := repository.NewMemoryProjectRepository()
	reg := registry.NewRegistry(repo, nil, config.InviteAnyCollaborator)
	return reg, NewLedger(reg, repo, nil)
}

func splitMap(entries model.SplitEntryList) map[string]int64 {
	out := make(map[string]int64, len(entries))
	for _, e := range entries {
		out[e.IdentityID] = e.BasisPoints
	}
	return out
}

func TestDefaultSplitIsOwner100(t *testing.T) {
	ctx := context.Background()
	reg, led := newTestLedger(t)

	project, err := reg.CreateProject(ctx, "alice", "Neon Dreams")
	require.NoError(t, err)

	split, err := led.GetSplit(ctx, project.ID)
	require.NoError(t, err)
	assert.Equal(t, map[string]int64{"alice": model.TotalBasisPoints}, splitMap(split))
}

func TestRebalanceScenario(t *testing.T) {
	ctx := context.Background()
	reg, led := newTestLedger(t)

	project, err := reg.CreateProject(ctx, "alice", "Neon Dreams")
	require.NoError(t, err)
	require.NoError(t, reg.InviteCollaborator(ctx, project.ID, "alice", "bob"))

	err = led.Rebalance(ctx, project.ID, "alice", map[string]int64{"alice": 6000, "bob": 4000})
	require.NoError(t, err)

	split, err := led.GetSplit(ctx, project.ID)
	require.NoError(t, err)
	assert.Equal(t, map[string]int64{"alice": 6000, "bob": 4000}, splitMap(split))

	amounts, err := led.ComputeRevenueShare(ctx, project.ID, 100)
	require.NoError(t, err)
	assert.Equal(t, map[string]int64{"alice": 60, "bob": 40}, amounts)
}

func TestRebalancePermission(t *testing.T) {
	ctx := context.Background()
	reg, led := newTestLedger(t)

	project, err := reg.CreateProject(ctx, "alice", "Neon Dreams")
	require.NoError(t, err)
	require.NoError(t, reg.InviteCollaborator(ctx, project.ID, "alice", "bob"))

	err = led.Rebalance(ctx, project.ID, "bob", map[string]int64{"alice": 5000, "bob": 5000})
	assert.True(t, errors.Is(err, fault.ErrPermission))

	// Stored split unchanged: still the owner default.
	split, err := led.GetSplit(ctx, project.ID)
	require.NoError(t, err)
	assert.Equal(t, map[string]int64{"alice": model.TotalBasisPoints}, splitMap(split))
}

func TestRebalanceValidation(t *testing.T) {
	ctx := context.Background()
	reg, led := newTestLedger(t)

	project, err := reg.CreateProject(ctx, "alice", "Neon Dreams")
	require.NoError(t, err)
	require.NoError(t, reg.InviteCollaborator(ctx, project.ID, "alice", "bob"))
	require.NoError(t, led.Rebalance(ctx, project.ID, "alice", map[string]int64{"alice": 7000, "bob": 3000}))

	tests := []struct {
		name  string
		split map[string]int64
	}{
		{name: "sum below 100", split: map[string]int64{"alice": 5000, "bob": 4000}},
		{name: "sum above 100", split: map[string]int64{"alice": 6000, "bob": 5000}},
		{name: "negative share", split: map[string]int64{"alice": 11000, "bob": -1000}},
		{name: "non-collaborator key", split: map[string]int64{"alice": 5000, "mallory": 5000}},
		{name: "empty split", split: map[string]int64{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := led.Rebalance(ctx, project.ID, "alice", tt.split)
			require.Error(t, err)
			assert.True(t, errors.Is(err, fault.ErrValidation))

			// Prior split untouched on every failed attempt.
			split, err := led.GetSplit(ctx, project.ID)
			require.NoError(t, err)
			assert.Equal(t, map[string]int64{"alice": 7000, "bob": 3000}, splitMap(split))
		})
	}
}

func TestRebalanceSumProperty(t *testing.T) {
	ctx := context.Background()
	reg, led := newTestLedger(t)

	project, err := reg.CreateProject(ctx, "alice", "Neon Dreams")
	require.NoError(t, err)
	for _, id := range []string{"bob", "carol", "dave"} {
		require.NoError(t, reg.InviteCollaborator(ctx, project.ID, "alice", id))
	}

	cases := []map[string]int64{
		{"alice": 2500, "bob": 2500, "carol": 2500, "dave": 2500},
		{"alice": 3333, "bob": 3333, "carol": 3334},
		{"alice": 10000},
		{"alice": 1, "bob": 9999},
	}
	for _, split := range cases {
		require.NoError(t, led.Rebalance(ctx, project.ID, "alice", split))
		stored, err := led.GetSplit(ctx, project.ID)
		require.NoError(t, err)
		var sum int64
		for _, e := range stored {
			sum += e.BasisPoints
		}
		assert.Equal(t, int64(model.TotalBasisPoints), sum)
	}
}

func TestComputeRevenueShareRemainder(t *testing.T) {
	ctx := context.Background()
	reg, led := newTestLedger(t)

	project, err := reg.CreateProject(ctx, "alice", "Neon Dreams")
	require.NoError(t, err)
	require.NoError(t, reg.InviteCollaborator(ctx, project.ID, "alice", "bob"))
	require.NoError(t, reg.InviteCollaborator(ctx, project.ID, "alice", "carol"))

	require.NoError(t, led.Rebalance(ctx, project.ID, "alice", map[string]int64{
		"alice": 3334, "bob": 3333, "carol": 3333,
	}))

	amounts, err := led.ComputeRevenueShare(ctx, project.ID, 100)
	require.NoError(t, err)

	var total int64
	for _, amount := range amounts {
		total += amount
	}
	assert.Equal(t, int64(100), total)
	// Floor gives 33/33/33; the remainder goes to the largest share.
	assert.Equal(t, int64(34), amounts["alice"])
}

func TestComputeRevenueShareTieBreak(t *testing.T) {
	ctx := context.Background()
	reg, led := newTestLedger(t)

	project, err := reg.CreateProject(ctx, "alice", "Neon Dreams")
	require.NoError(t, err)
	require.NoError(t, reg.InviteCollaborator(ctx, project.ID, "alice", "bob"))

	// Equal shares: the remainder goes to the earliest-joined holder.
	require.NoError(t, led.Rebalance(ctx, project.ID, "alice", map[string]int64{
		"alice": 5000, "bob": 5000,
	}))

	amounts, err := led.ComputeRevenueShare(ctx, project.ID, 101)
	require.NoError(t, err)
	assert.Equal(t, int64(51), amounts["alice"])
	assert.Equal(t, int64(50), amounts["bob"])
}

func TestComputeRevenueShareSumsExactly(t *testing.T) {
	ctx := context.Background()
	reg, led := newTestLedger(t)

	project, err := reg.CreateProject(ctx, "alice", "Neon Dreams")
	require.NoError(t, err)
	require.NoError(t, reg.InviteCollaborator(ctx, project.ID, "alice", "bob"))
	require.NoError(t, led.Rebalance(ctx, project.ID, "alice", map[string]int64{"alice": 6667, "bob": 3333}))

	for _, revenue := range []int64{0, 1, 3, 7, 100, 999, 1000000} {
		amounts, err := led.ComputeRevenueShare(ctx, project.ID, revenue)
		require.NoError(t, err)
		var total int64
		for _, amount := range amounts {
			total += amount
		}
		assert.Equal(t, revenue, total)
	}

	_, err = led.ComputeRevenueShare(ctx, project.ID, -1)
	assert.True(t, errors.Is(err, fault.ErrValidation))
}

func TestAuditLog(t *testing.T) {
	ctx := context.Background()
	reg, led := newTestLedger(t)

	project, err := reg.CreateProject(ctx, "alice", "Neon Dreams")
	require.NoError(t, err)
	require.NoError(t, reg.InviteCollaborator(ctx, project.ID, "alice", "bob"))

	require.NoError(t, led.Rebalance(ctx, project.ID, "alice", map[string]int64{"alice": 6000, "bob": 4000}))
	require.NoError(t, led.Rebalance(ctx, project.ID, "alice", map[string]int64{"alice": 5000, "bob": 5000}))

	audits, err := led.AuditLog(ctx, project.ID)
	require.NoError(t, err)
	require.Len(t, audits, 2)

	// The first entry records the implicit owner default as the previous split.
	assert.Equal(t, map[string]int64{"alice": model.TotalBasisPoints}, splitMap(audits[0].PreviousSplit))
	assert.Equal(t, map[string]int64{"alice": 6000, "bob": 4000}, splitMap(audits[0].NewSplit))
	assert.Equal(t, map[string]int64{"alice": 6000, "bob": 4000}, splitMap(audits[1].PreviousSplit))
	assert.Equal(t, "alice", audits[0].RequesterID)
}

func TestSplitUnknownProject(t *testing.T) {
	ctx := context.Background()
	_, led := newTestLedger(t)

	_, err := led.GetSplit(ctx, "missing")
	assert.True(t, errors.Is(err, fault.ErrNotFound))

	err = led.Rebalance(ctx, "missing", "alice", map[string]int64{"alice": 10000})
	assert.True(t, errors.Is(err, fault.ErrNotFound))
}
