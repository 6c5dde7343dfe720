// Copyright 2025 The Push Chain Authors
//
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file or at
// https://opensource.org/licenses/MIT.

package protocol

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestEpochIndex(t *testing.T) {
	genesis := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	p := &Params{Mode: ModeRolling, Genesis: genesis, EpochLength: time.Hour}

	require.Equal(t, uint64(1), p.EpochIndex(genesis))
	require.Equal(t, uint64(1), p.EpochIndex(genesis.Add(-time.Minute)))
	require.Equal(t, uint64(1), p.EpochIndex(genesis.Add(59*time.Minute)))

	// The boundary instant belongs to the next epoch
	require.Equal(t, uint64(2), p.EpochIndex(genesis.Add(time.Hour)))
	require.Equal(t, uint64(2), p.EpochIndex(genesis.Add(time.Hour+time.Nanosecond)))
	require.Equal(t, uint64(25), p.EpochIndex(genesis.Add(24*time.Hour)))
}

func TestEpochStart(t *testing.T) {
	genesis := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	p := &Params{Mode: ModeRolling, Genesis: genesis, EpochLength: time.Hour}

	require.Equal(t, genesis, p.EpochStart(1))
	require.Equal(t, genesis.Add(time.Hour), p.EpochStart(2))

	// EpochIndex and EpochStart agree at every boundary
	for i := uint64(1); i < 10; i++ {
		require.Equal(t, i, p.EpochIndex(p.EpochStart(i)))
	}
}

func TestSeasonOver(t *testing.T) {
	end := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	p := &Params{Mode: ModeSealed, SeasonEnd: end}

	require.False(t, p.SeasonOver(end.Add(-time.Second)))
	require.True(t, p.SeasonOver(end))
	require.True(t, p.SeasonOver(end.Add(time.Second)))
}

func TestParamsValidate(t *testing.T) {
	genesis := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	ok := &Params{Mode: ModeRolling, Genesis: genesis, EpochLength: time.Hour, Admin: "admin"}
	require.NoError(t, ok.Validate())

	cases := map[string]Params{
		"NoEpochLength": {Mode: ModeRolling, Genesis: genesis, Admin: "admin"},
		"NoSeasonEnd":   {Mode: ModeSealed, Genesis: genesis, Admin: "admin"},
		"BadMode":       {Mode: 3, Genesis: genesis, Admin: "admin"},
		"NoGenesis":     {Mode: ModeRolling, EpochLength: time.Hour, Admin: "admin"},
		"NoAdmin":       {Mode: ModeRolling, Genesis: genesis, EpochLength: time.Hour},
		"NegativeLock":  {Mode: ModeRolling, Genesis: genesis, EpochLength: time.Hour, Admin: "admin", LockLength: -1},
	}
	for name, p := range cases {
		t.Run(name, func(t *testing.T) {
			require.Error(t, p.Validate())
		})
	}
}

func TestWeight(t *testing.T) {
	rec := NewDepositorRecord("alice")
	rec.Principal.SetInt64(100)

	require.Equal(t, int64(100), rec.Weight(ModeRolling).Int64())

	// A multiplier only applies in sealed mode
	rec.Multiplier = 3
	require.Equal(t, int64(100), rec.Weight(ModeRolling).Int64())
	require.Equal(t, int64(300), rec.Weight(ModeSealed).Int64())
}
