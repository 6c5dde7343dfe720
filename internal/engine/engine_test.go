// Copyright 2025 The Push Chain Authors
//
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file or at
// https://opensource.org/licenses/MIT.

package engine_test

import (
	"crypto/sha256"
	"math/big"
	"testing"
	"time"

	"github.com/pushchain/pc-yield-contracts/internal/admission"
	"github.com/pushchain/pc-yield-contracts/internal/engine"
	"github.com/pushchain/pc-yield-contracts/pkg/database/keyvalue/memory"
	"github.com/pushchain/pc-yield-contracts/pkg/errors"
	"github.com/pushchain/pc-yield-contracts/pkg/merkle"
	"github.com/pushchain/pc-yield-contracts/protocol"
	"github.com/stretchr/testify/require"
)

var genesis = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

// testClock is a manually advanced time source.
type testClock struct{ now time.Time }

func (c *testClock) Now() time.Time          { return c.now }
func (c *testClock) Advance(d time.Duration) { c.now = c.now.Add(d) }
func (c *testClock) Set(t time.Time)         { c.now = t }

// transferor records outbound transfers and optionally fails them.
type transferor struct {
	fail bool
	sent map[string]*big.Int
}

func newTransferor() *transferor { return &transferor{sent: map[string]*big.Int{}} }

func (x *transferor) Transfer(asset string, to protocol.Identity, amount *big.Int) error {
	if x.fail {
		return errors.NotReady.With("bridge offline")
	}
	key := asset + "/" + string(to)
	if x.sent[key] == nil {
		x.sent[key] = new(big.Int)
	}
	x.sent[key].Add(x.sent[key], amount)
	return nil
}

func (x *transferor) sentTo(asset string, to protocol.Identity) int64 {
	v := x.sent[asset+"/"+string(to)]
	if v == nil {
		return 0
	}
	return v.Int64()
}

// allowlist builds an admission tree and produces proofs for its members.
type allowlist struct {
	mode        protocol.Mode
	ids         []protocol.Identity
	tags        []merkle.Hash
	multipliers []uint64
	tree        *merkle.Tree
}

func rollingAllowlist(ids ...protocol.Identity) *allowlist {
	a := &allowlist{mode: protocol.ModeRolling, ids: ids}
	var leaves []merkle.Hash
	for _, id := range ids {
		tag := sha256.Sum256([]byte("tag:" + id))
		a.tags = append(a.tags, tag)
		leaves = append(leaves, admission.RollingLeaf(id, tag))
	}
	a.tree = merkle.NewTree(leaves)
	return a
}

func sealedAllowlist(ids []protocol.Identity, multipliers []uint64) *allowlist {
	a := &allowlist{mode: protocol.ModeSealed, ids: ids, multipliers: multipliers}
	var leaves []merkle.Hash
	for i, id := range ids {
		leaves = append(leaves, admission.SealedLeaf(id, multipliers[i]))
	}
	a.tree = merkle.NewTree(leaves)
	return a
}

func (a *allowlist) root() merkle.Hash { return a.tree.Root() }

func (a *allowlist) proof(id protocol.Identity) *admission.Proof {
	for i, x := range a.ids {
		if x != id {
			continue
		}
		p := &admission.Proof{Path: a.tree.Receipt(i).Entries}
		if a.mode == protocol.ModeSealed {
			p.Multiplier = a.multipliers[i]
		} else {
			p.Tag = a.tags[i]
		}
		return p
	}
	return nil
}

type fixture struct {
	engine *engine.Engine
	clock  *testClock
	out    *transferor
	list   *allowlist
	db     *memory.Database
}

func rollingFixture(t *testing.T, ids ...protocol.Identity) *fixture {
	t.Helper()
	f := &fixture{
		clock: &testClock{now: genesis},
		out:   newTransferor(),
		list:  rollingAllowlist(ids...),
		db:    memory.New(nil),
	}
	params := &protocol.Params{
		Mode:           protocol.ModeRolling,
		Genesis:        genesis,
		EpochLength:    time.Hour,
		LockLength:     24 * time.Hour,
		CooldownLength: 48 * time.Hour,
		AllowlistRoot:  f.list.root(),
		Admin:          "admin",
	}
	var err error
	f.engine, err = engine.New(params, engine.Options{
		Database:   f.db,
		Transferor: f.out,
		Clock:      f.clock,
	})
	require.NoError(t, err)
	return f
}

func sealedFixture(t *testing.T, ids []protocol.Identity, multipliers []uint64) *fixture {
	t.Helper()
	f := &fixture{
		clock: &testClock{now: genesis},
		out:   newTransferor(),
		list:  sealedAllowlist(ids, multipliers),
		db:    memory.New(nil),
	}
	params := &protocol.Params{
		Mode:           protocol.ModeSealed,
		Genesis:        genesis,
		SeasonEnd:      genesis.Add(30 * 24 * time.Hour),
		LockLength:     24 * time.Hour,
		CooldownLength: 48 * time.Hour,
		AllowlistRoot:  f.list.root(),
		Admin:          "admin",
	}
	var err error
	f.engine, err = engine.New(params, engine.Options{
		Database:   f.db,
		Transferor: f.out,
		Clock:      f.clock,
	})
	require.NoError(t, err)
	return f
}

func TestDepositGates(t *testing.T) {
	f := rollingFixture(t, "alice")

	// The amount is rejected before the proof is looked at
	err := f.engine.AdmitAndDeposit("alice", big.NewInt(0), nil)
	require.ErrorIs(t, err, errors.ZeroAmount)

	// A missing or wrong proof blocks first entry
	err = f.engine.AdmitAndDeposit("alice", big.NewInt(100), nil)
	require.ErrorIs(t, err, errors.InvalidProof)
	err = f.engine.AdmitAndDeposit("mallory", big.NewInt(100), f.list.proof("alice"))
	require.ErrorIs(t, err, errors.InvalidProof)

	require.NoError(t, f.engine.AdmitAndDeposit("alice", big.NewInt(100), f.list.proof("alice")))

	// Admission is monotonic: later deposits need no proof
	require.NoError(t, f.engine.AdmitAndDeposit("alice", big.NewInt(50), nil))

	rec, err := f.engine.Depositor("alice")
	require.NoError(t, err)
	require.True(t, rec.Admitted)
	require.Equal(t, int64(150), rec.Principal.Int64())

	balance, err := f.engine.Balance(protocol.NativeAsset)
	require.NoError(t, err)
	require.Equal(t, int64(150), balance.Int64())
}

func TestRollingClaimLifecycle(t *testing.T) {
	f := rollingFixture(t, "alice", "bob")

	require.NoError(t, f.engine.AdmitAndDeposit("alice", big.NewInt(1000), f.list.proof("alice")))
	require.NoError(t, f.engine.AdmitAndDeposit("bob", big.NewInt(500), f.list.proof("bob")))
	require.NoError(t, f.engine.Fund("admin", 1, big.NewInt(800)))

	// Claiming the current epoch is premature
	_, err := f.engine.Claim("alice")
	require.ErrorIs(t, err, errors.InvalidRange)

	f.clock.Advance(time.Hour)
	paid, err := f.engine.Claim("alice")
	require.NoError(t, err)
	require.Equal(t, int64(533), paid.Int64())
	paid, err = f.engine.Claim("bob")
	require.NoError(t, err)
	require.Equal(t, int64(266), paid.Int64())

	require.Equal(t, int64(533), f.out.sentTo(protocol.NativeAsset, "alice"))
	require.Equal(t, int64(266), f.out.sentTo(protocol.NativeAsset, "bob"))

	// One unit of dust stays in custody
	balance, err := f.engine.Balance(protocol.NativeAsset)
	require.NoError(t, err)
	require.Equal(t, int64(1500+800-533-266), balance.Int64())
}

func TestLockBoundary(t *testing.T) {
	f := rollingFixture(t, "alice")
	require.NoError(t, f.engine.AdmitAndDeposit("alice", big.NewInt(100), f.list.proof("alice")))

	f.clock.Advance(24*time.Hour - time.Second)
	err := f.engine.RequestUnstake("alice", big.NewInt(100))
	require.ErrorIs(t, err, errors.LockActive)

	// The boundary instant itself is unlocked
	f.clock.Advance(time.Second)
	require.NoError(t, f.engine.RequestUnstake("alice", big.NewInt(100)))
}

func TestWithdrawalStateMachine(t *testing.T) {
	f := rollingFixture(t, "alice")
	require.NoError(t, f.engine.AdmitAndDeposit("alice", big.NewInt(1000), f.list.proof("alice")))

	_, err := f.engine.Withdraw("alice")
	require.ErrorIs(t, err, errors.NothingPending)

	f.clock.Advance(24 * time.Hour)
	require.NoError(t, f.engine.RequestUnstake("alice", big.NewInt(400)))
	first := f.clock.now.Add(48 * time.Hour)

	// Excluded funds stop earning immediately
	rec, err := f.engine.Depositor("alice")
	require.NoError(t, err)
	require.Equal(t, int64(600), rec.Principal.Int64())
	require.Equal(t, int64(400), rec.Pending.Amount.Int64())
	require.True(t, rec.Pending.ReadyAt.Equal(first))

	// A second request merges and extends the deadline to the later one
	f.clock.Advance(time.Hour)
	require.NoError(t, f.engine.RequestUnstake("alice", big.NewInt(100)))
	rec, err = f.engine.Depositor("alice")
	require.NoError(t, err)
	require.Equal(t, int64(500), rec.Pending.Amount.Int64())
	require.True(t, rec.Pending.ReadyAt.Equal(first.Add(time.Hour)))

	_, err = f.engine.Withdraw("alice")
	require.ErrorIs(t, err, errors.CooldownActive)

	f.clock.Set(rec.Pending.ReadyAt)
	amount, err := f.engine.Withdraw("alice")
	require.NoError(t, err)
	require.Equal(t, int64(500), amount.Int64())
	require.Equal(t, int64(500), f.out.sentTo(protocol.NativeAsset, "alice"))

	_, err = f.engine.Withdraw("alice")
	require.ErrorIs(t, err, errors.NothingPending)
}

func TestDepositWithdrawRoundTrip(t *testing.T) {
	f := rollingFixture(t, "alice")
	require.NoError(t, f.engine.AdmitAndDeposit("alice", big.NewInt(1234), f.list.proof("alice")))

	f.clock.Advance(24 * time.Hour)
	require.NoError(t, f.engine.RequestUnstake("alice", big.NewInt(1234)))
	f.clock.Advance(48 * time.Hour)
	amount, err := f.engine.Withdraw("alice")
	require.NoError(t, err)

	// The full deposit comes back and the position is restored to zero
	require.Equal(t, int64(1234), amount.Int64())
	rec, err := f.engine.Depositor("alice")
	require.NoError(t, err)
	require.Zero(t, rec.Principal.Sign())
	totals, err := f.engine.Totals()
	require.NoError(t, err)
	require.Zero(t, totals.TotalPrincipal.Sign())
	balance, err := f.engine.Balance(protocol.NativeAsset)
	require.NoError(t, err)
	require.Zero(t, balance.Sign())
}

func TestTransferFailureRollsBack(t *testing.T) {
	f := rollingFixture(t, "alice")
	require.NoError(t, f.engine.AdmitAndDeposit("alice", big.NewInt(100), f.list.proof("alice")))
	require.NoError(t, f.engine.Fund("admin", 1, big.NewInt(50)))
	f.clock.Advance(time.Hour)

	f.out.fail = true
	_, err := f.engine.Claim("alice")
	require.ErrorIs(t, err, errors.TransferFailed)

	// The failed claim left no trace: the checkpoint did not advance and
	// the full amount is still claimable
	f.out.fail = false
	paid, err := f.engine.Claim("alice")
	require.NoError(t, err)
	require.Equal(t, int64(50), paid.Int64())

	// Same for a failed withdrawal
	f.clock.Advance(23 * time.Hour)
	require.NoError(t, f.engine.RequestUnstake("alice", big.NewInt(100)))
	f.clock.Advance(48 * time.Hour)
	f.out.fail = true
	_, err = f.engine.Withdraw("alice")
	require.ErrorIs(t, err, errors.TransferFailed)
	f.out.fail = false
	amount, err := f.engine.Withdraw("alice")
	require.NoError(t, err)
	require.Equal(t, int64(100), amount.Int64())
}

func TestTotalsMatchRecords(t *testing.T) {
	f := rollingFixture(t, "alice", "bob", "carol")

	require.NoError(t, f.engine.AdmitAndDeposit("alice", big.NewInt(300), f.list.proof("alice")))
	require.NoError(t, f.engine.AdmitAndDeposit("bob", big.NewInt(200), f.list.proof("bob")))
	require.NoError(t, f.engine.AdmitAndDeposit("carol", big.NewInt(100), f.list.proof("carol")))
	f.clock.Advance(24 * time.Hour)
	require.NoError(t, f.engine.RequestUnstake("bob", big.NewInt(150)))
	require.NoError(t, f.engine.AdmitAndDeposit("alice", big.NewInt(50), nil))

	sum := new(big.Int)
	for _, id := range []protocol.Identity{"alice", "bob", "carol"} {
		rec, err := f.engine.Depositor(id)
		require.NoError(t, err)
		sum.Add(sum, rec.Principal)
	}

	totals, err := f.engine.Totals()
	require.NoError(t, err)
	require.Equal(t, sum, totals.TotalPrincipal)
	require.Equal(t, sum, totals.TotalWeightedStake)
}

func TestSealedSeasonLifecycle(t *testing.T) {
	ids := []protocol.Identity{"alice", "bob"}
	f := sealedFixture(t, ids, []uint64{3, 1})

	require.NoError(t, f.engine.AdmitAndDeposit("alice", big.NewInt(100), f.list.proof("alice")))
	require.NoError(t, f.engine.AdmitAndDeposit("bob", big.NewInt(100), f.list.proof("bob")))
	require.NoError(t, f.engine.Fund("admin", 0, big.NewInt(1000)))

	// Nothing is claimable while the season is open
	_, err := f.engine.Claim("alice")
	require.ErrorIs(t, err, errors.SeasonNotFinalized)

	// Only the administrator can close, and only after season end
	err = f.engine.CloseSeason("admin")
	require.ErrorIs(t, err, errors.SeasonOpen)
	f.clock.Set(f.engine.Params().SeasonEnd)
	err = f.engine.CloseSeason("alice")
	require.ErrorIs(t, err, errors.Unauthorized)
	require.NoError(t, f.engine.CloseSeason("admin"))

	// Funding after the close is rejected
	err = f.engine.Fund("admin", 0, big.NewInt(1))
	require.ErrorIs(t, err, errors.BucketClosed)

	// Weighted split: 300 vs 100 of 1000
	paid, err := f.engine.Claim("alice")
	require.NoError(t, err)
	require.Equal(t, int64(750), paid.Int64())
	ent, err := f.engine.Entitlement("bob")
	require.NoError(t, err)
	require.Equal(t, int64(250), ent.Int64())
	paid, err = f.engine.Claim("bob")
	require.NoError(t, err)
	require.Equal(t, int64(250), paid.Int64())

	_, err = f.engine.Claim("alice")
	require.ErrorIs(t, err, errors.NoEntitlement)
}

func TestSealedClaimBasisFrozenAtClose(t *testing.T) {
	ids := []protocol.Identity{"alice", "bob", "alice"}
	f := sealedFixture(t, ids, []uint64{1, 1, 5})

	// Two equal depositors, 1000 funded: 500 entitled each at the close
	require.NoError(t, f.engine.AdmitAndDeposit("alice", big.NewInt(100), f.list.proof("alice")))
	require.NoError(t, f.engine.AdmitAndDeposit("bob", big.NewInt(100), f.list.proof("bob")))
	require.NoError(t, f.engine.Fund("admin", 0, big.NewInt(1000)))

	f.clock.Set(f.engine.Params().SeasonEnd)
	require.NoError(t, f.engine.CloseSeason("admin"))

	// A deposit after the close would add live weight against the frozen
	// total and inflate the share, so it is rejected outright
	err := f.engine.AdmitAndDeposit("alice", big.NewInt(200), nil)
	require.ErrorIs(t, err, errors.BucketClosed)

	// Same for a multiplier change, even with a valid proof
	five := &admission.Proof{Path: f.list.tree.Receipt(2).Entries, Multiplier: 5}
	err = f.engine.AdmitAndDeposit("alice", big.NewInt(200), five)
	require.ErrorIs(t, err, errors.BucketClosed)

	// The rejected mutations left no trace
	rec, err := f.engine.Depositor("alice")
	require.NoError(t, err)
	require.Equal(t, int64(100), rec.Principal.Int64())
	require.Equal(t, uint64(1), rec.Multiplier)

	// Each depositor collects exactly their frozen share, no more
	paid, err := f.engine.Claim("alice")
	require.NoError(t, err)
	require.Equal(t, int64(500), paid.Int64())
	paid, err = f.engine.Claim("bob")
	require.NoError(t, err)
	require.Equal(t, int64(500), paid.Int64())
	_, err = f.engine.Claim("alice")
	require.ErrorIs(t, err, errors.NoEntitlement)
}

func TestSealedFullExitAndReentry(t *testing.T) {
	f := sealedFixture(t, []protocol.Identity{"alice"}, []uint64{2})

	require.NoError(t, f.engine.AdmitAndDeposit("alice", big.NewInt(100), f.list.proof("alice")))
	f.clock.Advance(24 * time.Hour)
	require.NoError(t, f.engine.RequestUnstake("alice", big.NewInt(100)))

	// A full exit retracts admission; re-entry without a proof fails
	rec, err := f.engine.Depositor("alice")
	require.NoError(t, err)
	require.False(t, rec.Admitted)
	err = f.engine.AdmitAndDeposit("alice", big.NewInt(50), nil)
	require.ErrorIs(t, err, errors.InvalidProof)
	require.NoError(t, f.engine.AdmitAndDeposit("alice", big.NewInt(50), f.list.proof("alice")))
}

func TestSealedExitWithClaim(t *testing.T) {
	f := sealedFixture(t, []protocol.Identity{"alice"}, []uint64{2})

	require.NoError(t, f.engine.AdmitAndDeposit("alice", big.NewInt(100), f.list.proof("alice")))
	require.NoError(t, f.engine.Fund("admin", 0, big.NewInt(500)))

	f.clock.Set(f.engine.Params().SeasonEnd)
	require.NoError(t, f.engine.CloseSeason("admin"))

	// The combined operation claims before retracting, so a full exit does
	// not forfeit the accrued entitlement
	paid, err := f.engine.UnstakeAndClaim("alice", big.NewInt(100))
	require.NoError(t, err)
	require.Equal(t, int64(500), paid.Int64())

	rec, err := f.engine.Depositor("alice")
	require.NoError(t, err)
	require.False(t, rec.Admitted)
	require.Equal(t, int64(100), rec.Pending.Amount.Int64())
}

func TestSealedMultiplierChange(t *testing.T) {
	ids := []protocol.Identity{"alice", "alice"}
	f := sealedFixture(t, ids, []uint64{2, 5})

	require.NoError(t, f.engine.AdmitAndDeposit("alice", big.NewInt(100), f.list.proof("alice")))
	totals, err := f.engine.Totals()
	require.NoError(t, err)
	require.Equal(t, int64(200), totals.TotalWeightedStake.Int64())

	// The allowlist also admits alice at multiplier 5; a deposit proving
	// the new declaration reweighs the whole position
	five := &admission.Proof{Path: f.list.tree.Receipt(1).Entries, Multiplier: 5}
	require.NoError(t, f.engine.AdmitAndDeposit("alice", big.NewInt(100), five))

	rec, err := f.engine.Depositor("alice")
	require.NoError(t, err)
	require.Equal(t, uint64(5), rec.Multiplier)
	totals, err = f.engine.Totals()
	require.NoError(t, err)
	require.Equal(t, int64(1000), totals.TotalWeightedStake.Int64())
}

func TestAdminGates(t *testing.T) {
	f := rollingFixture(t, "alice")

	require.ErrorIs(t, f.engine.SetLockLength("alice", time.Hour), errors.Unauthorized)
	require.ErrorIs(t, f.engine.SetCooldownLength("alice", time.Hour), errors.Unauthorized)
	require.ErrorIs(t, f.engine.SetAllowlistRoot("alice", merkle.Hash{}), errors.Unauthorized)
	require.ErrorIs(t, f.engine.Fund("alice", 1, big.NewInt(1)), errors.Unauthorized)
	require.ErrorIs(t, f.engine.CloseProgram("alice"), errors.Unauthorized)

	// A designated funder may fund but nothing else
	require.NoError(t, f.engine.SetFunder("admin", "treasury"))
	require.NoError(t, f.engine.Fund("treasury", 1, big.NewInt(10)))
	require.ErrorIs(t, f.engine.SetLockLength("treasury", time.Hour), errors.Unauthorized)

	// Negative lengths are out of range
	require.ErrorIs(t, f.engine.SetLockLength("admin", -time.Hour), errors.InvalidRange)
	require.ErrorIs(t, f.engine.SetCooldownLength("admin", -time.Hour), errors.InvalidRange)

	// Changed lengths apply to new deposits
	require.NoError(t, f.engine.SetLockLength("admin", time.Hour))
	require.NoError(t, f.engine.AdmitAndDeposit("alice", big.NewInt(100), f.list.proof("alice")))
	rec, err := f.engine.Depositor("alice")
	require.NoError(t, err)
	require.True(t, rec.LockExpiry.Equal(f.clock.now.Add(time.Hour)))
}

func TestAllowlistRotation(t *testing.T) {
	f := rollingFixture(t, "alice")

	// Rotate the root to a list that only contains dave
	next := rollingAllowlist("dave")
	require.NoError(t, f.engine.SetAllowlistRoot("admin", next.root()))

	err := f.engine.AdmitAndDeposit("alice", big.NewInt(100), f.list.proof("alice"))
	require.ErrorIs(t, err, errors.InvalidProof)
	require.NoError(t, f.engine.AdmitAndDeposit("dave", big.NewInt(100), next.proof("dave")))
}

func TestForeignAssetRecovery(t *testing.T) {
	f := rollingFixture(t, "alice")

	require.NoError(t, f.engine.CreditAsset("USDC", big.NewInt(40)))

	require.ErrorIs(t, f.engine.RecoverForeignAsset("alice", "USDC", big.NewInt(40)), errors.Unauthorized)
	require.ErrorIs(t, f.engine.RecoverForeignAsset("admin", protocol.NativeAsset, big.NewInt(1)), errors.Conflict)

	// Foreign assets are recoverable at any time
	require.NoError(t, f.engine.RecoverForeignAsset("admin", "USDC", big.NewInt(40)))
	require.Equal(t, int64(40), f.out.sentTo("USDC", "admin"))
}

func TestNativeRecoveryGate(t *testing.T) {
	f := rollingFixture(t, "alice")
	require.NoError(t, f.engine.AdmitAndDeposit("alice", big.NewInt(100), f.list.proof("alice")))

	// Locked while the program is open
	_, err := f.engine.RecoverNative("admin")
	require.ErrorIs(t, err, errors.SweepLocked)

	require.NoError(t, f.engine.CloseProgram("admin"))
	require.ErrorIs(t, f.engine.CloseProgram("admin"), errors.Conflict)

	// Still locked during the recovery delay
	f.clock.Advance(protocol.NativeRecoveryDelay - time.Second)
	_, err = f.engine.RecoverNative("admin")
	require.ErrorIs(t, err, errors.SweepLocked)

	f.clock.Advance(time.Second)
	swept, err := f.engine.RecoverNative("admin")
	require.NoError(t, err)
	require.Equal(t, int64(100), swept.Int64())
}

func TestParamsSurviveRestart(t *testing.T) {
	f := rollingFixture(t, "alice")
	require.NoError(t, f.engine.SetLockLength("admin", time.Hour))

	// Reopen over the same database with different parameters: the
	// persisted ones win
	other := &protocol.Params{
		Mode:        protocol.ModeRolling,
		Genesis:     genesis.Add(time.Hour),
		EpochLength: time.Minute,
		Admin:       "impostor",
	}
	reopened, err := engine.New(other, engine.Options{
		Database:   f.db,
		Transferor: f.out,
		Clock:      f.clock,
	})
	require.NoError(t, err)

	params := reopened.Params()
	require.Equal(t, protocol.Identity("admin"), params.Admin)
	require.Equal(t, time.Hour, params.LockLength)
	require.True(t, params.Genesis.Equal(genesis))
}
