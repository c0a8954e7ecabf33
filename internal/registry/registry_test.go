package registry

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/peakdefi/fund-deployer/internal/deployerr"
)

var (
	addrA = common.HexToAddress("0x00000000000000000000000000000000000000aa")
	addrB = common.HexToAddress("0x00000000000000000000000000000000000000bb")
)

func TestRegistry_RegisterAndLookup(t *testing.T) {
	reg := New()

	require.NoError(t, reg.Register(Entry{Name: "PeakStaking", Address: addrA, Artifact: "PeakStaking"}))

	entry, err := reg.Lookup("PeakStaking")
	require.NoError(t, err)
	assert.Equal(t, addrA, entry.Address)
	assert.Equal(t, "PeakStaking", entry.Artifact)

	addr, err := reg.Address("PeakStaking")
	require.NoError(t, err)
	assert.Equal(t, addrA, addr)
	assert.True(t, reg.Has("PeakStaking"))
}

func TestRegistry_DuplicateKeepsOriginal(t *testing.T) {
	reg := New()
	require.NoError(t, reg.Register(Entry{Name: "DAI", Address: addrA}))

	err := reg.Register(Entry{Name: "DAI", Address: addrB})
	require.Error(t, err)
	assert.ErrorIs(t, err, deployerr.ErrDuplicateRegistration)

	entry, err := reg.Lookup("DAI")
	require.NoError(t, err)
	assert.Equal(t, addrA, entry.Address)
	assert.Equal(t, 1, reg.Len())
}

func TestRegistry_LookupMissing(t *testing.T) {
	reg := New()

	_, err := reg.Lookup("BetokenFactory")
	require.Error(t, err)
	assert.ErrorIs(t, err, deployerr.ErrDependencyNotReady)
	assert.Equal(t, "BetokenFactory", deployerr.SubjectOf(err))
	assert.False(t, reg.Has("BetokenFactory"))
}

func TestRegistry_EmptyName(t *testing.T) {
	err := New().Register(Entry{Address: addrA})
	assert.ErrorIs(t, err, deployerr.ErrConfiguration)
}

func TestRegistry_PreservesRegistrationOrder(t *testing.T) {
	reg := New()
	for _, name := range []string{"c", "a", "b"} {
		require.NoError(t, reg.Register(Entry{Name: name}))
	}

	assert.Equal(t, []string{"c", "a", "b"}, reg.Names())

	entries := reg.Entries()
	require.Len(t, entries, 3)
	assert.Equal(t, "c", entries[0].Name)
}
