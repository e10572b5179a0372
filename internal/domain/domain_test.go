package domain

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestIdentityString(t *testing.T) {
	require.Equal(t, "jose#1234", Identity{Username: "jose", Discriminator: "1234"}.String())
	require.Equal(t, "jose", Identity{Username: "jose", Discriminator: "0"}.String())
	require.Equal(t, "jose", Identity{Username: "jose"}.String())
}

func TestPollOwnedBy(t *testing.T) {
	p := Poll{Title: "Lunch?", Owner: "jose", OwnerDiscriminator: "1234"}

	require.True(t, p.OwnedBy(Identity{Username: "jose", Discriminator: "1234"}))
	require.False(t, p.OwnedBy(Identity{Username: "jose", Discriminator: "4321"}))
	require.False(t, p.OwnedBy(Identity{Username: "maria", Discriminator: "1234"}))
	require.False(t, p.OwnedBy(Identity{}))
}

func TestVoteVoter(t *testing.T) {
	v := Vote{Username: "maria", Discriminator: "0001", OptionID: 3, PollID: 1}
	require.Equal(t, Identity{Username: "maria", Discriminator: "0001"}, v.Voter())
}
