package repository

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"

	"discord_polls/internal/db"
	"discord_polls/internal/domain"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

var (
	jose  = domain.Identity{Username: "jose", Discriminator: "1234"}
	maria = domain.Identity{Username: "maria", Discriminator: "0001"}
	ana   = domain.Identity{Username: "ana", Discriminator: "4242"}
)

func createRepository(t *testing.T) (*Repository, *gorm.DB) {
	t.Helper()

	gormDB, err := db.OpenDialector(sqlite.Open(filepath.Join(t.TempDir(), "polls.db")), db.PoolConfig{MaxOpenConns: 1})
	require.NoError(t, err)
	require.NoError(t, db.Migrate(gormDB))

	return NewRepository(gormDB), gormDB
}

func TestCreatePollSkipsBlankOptions(t *testing.T) {
	t.Parallel()

	s, gormDB := createRepository(t)
	ctx := context.Background()

	poll, err := s.CreatePoll(ctx, jose, "  Lunch?  ", []string{"Pizza", "", "  ", "Tacos"})
	require.NoError(t, err)
	require.NotZero(t, poll.ID)
	require.Equal(t, "Lunch?", poll.Title)
	require.Equal(t, "jose", poll.Owner)
	require.Equal(t, "1234", poll.OwnerDiscriminator)

	var polls, options int64
	require.NoError(t, gormDB.Model(&domain.Poll{}).Count(&polls).Error)
	require.NoError(t, gormDB.Model(&domain.Option{}).Where("poll_id = ?", poll.ID).Count(&options).Error)
	require.EqualValues(t, 1, polls)
	require.EqualValues(t, 2, options)
}

func TestCreatePollKeepsAtMostFourOptions(t *testing.T) {
	t.Parallel()

	s, _ := createRepository(t)

	poll, err := s.CreatePoll(context.Background(), jose, "Color", []string{"red", "green", "blue", "cyan", "magenta"})
	require.NoError(t, err)
	require.Len(t, poll.Options, domain.MaxOptions)
}

func TestCreatePollValidation(t *testing.T) {
	t.Parallel()

	s, _ := createRepository(t)
	ctx := context.Background()

	_, err := s.CreatePoll(ctx, jose, "", []string{"a", "b"})
	require.ErrorIs(t, err, ErrInvalidPoll)

	_, err = s.CreatePoll(ctx, jose, "No options", []string{"", " "})
	require.ErrorIs(t, err, ErrInvalidPoll)
}

func TestPollAndLatestPoll(t *testing.T) {
	t.Parallel()

	s, _ := createRepository(t)
	ctx := context.Background()

	_, err := s.LatestPoll(ctx)
	require.ErrorIs(t, err, ErrPollNotFound)

	first, err := s.CreatePoll(ctx, jose, "First", []string{"a", "b"})
	require.NoError(t, err)
	second, err := s.CreatePoll(ctx, maria, "Second", []string{"c", "d", "e"})
	require.NoError(t, err)

	latest, err := s.LatestPoll(ctx)
	require.NoError(t, err)
	require.Equal(t, second.ID, latest.ID)
	require.Len(t, latest.Options, 3)
	require.Equal(t, "c", latest.Options[0].Text)
	require.Equal(t, "e", latest.Options[2].Text)

	got, err := s.Poll(ctx, first.ID)
	require.NoError(t, err)
	require.Equal(t, "First", got.Title)
	require.Len(t, got.Options, 2)

	_, err = s.Poll(ctx, second.ID+100)
	require.ErrorIs(t, err, ErrPollNotFound)
}

func TestPollsByOwner(t *testing.T) {
	t.Parallel()

	s, _ := createRepository(t)
	ctx := context.Background()

	a, err := s.CreatePoll(ctx, jose, "A", []string{"x"})
	require.NoError(t, err)
	_, err = s.CreatePoll(ctx, maria, "B", []string{"x"})
	require.NoError(t, err)
	c, err := s.CreatePoll(ctx, jose, "C", []string{"x"})
	require.NoError(t, err)
	// Same username, other discriminator: someone else
	_, err = s.CreatePoll(ctx, domain.Identity{Username: "jose", Discriminator: "9999"}, "D", []string{"x"})
	require.NoError(t, err)

	polls, err := s.PollsByOwner(ctx, jose)
	require.NoError(t, err)
	require.Len(t, polls, 2)
	require.Equal(t, c.ID, polls[0].ID)
	require.Equal(t, a.ID, polls[1].ID)

	polls, err = s.PollsByOwner(ctx, ana)
	require.NoError(t, err)
	require.Empty(t, polls)
}

func TestCastVote(t *testing.T) {
	t.Parallel()

	s, gormDB := createRepository(t)
	ctx := context.Background()

	poll, err := s.CreatePoll(ctx, jose, "Lunch?", []string{"Pizza", "Tacos"})
	require.NoError(t, err)
	other, err := s.CreatePoll(ctx, jose, "Dinner?", []string{"Soup"})
	require.NoError(t, err)

	option, err := s.CastVote(ctx, maria, poll.ID, poll.Options[1].ID, false)
	require.NoError(t, err)
	require.Equal(t, "Tacos", option.Text)

	_, err = s.CastVote(ctx, maria, poll.ID, poll.Options[0].ID, false)
	require.ErrorIs(t, err, ErrAlreadyVoted)

	_, err = s.CastVote(ctx, ana, poll.ID, other.Options[0].ID, false)
	require.ErrorIs(t, err, ErrOptionNotInPoll)

	_, err = s.CastVote(ctx, ana, poll.ID, 9999, false)
	require.ErrorIs(t, err, ErrOptionNotFound)

	_, err = s.CastVote(ctx, ana, 9999, poll.Options[0].ID, false)
	require.ErrorIs(t, err, ErrPollNotFound)

	var votes []domain.Vote
	require.NoError(t, gormDB.Find(&votes).Error)
	require.Len(t, votes, 1)
	require.Equal(t, maria, votes[0].Voter())
	require.Equal(t, poll.ID, votes[0].PollID)
	require.Equal(t, poll.Options[1].ID, votes[0].OptionID)
	require.NotZero(t, votes[0].CreatedAt)
}

// Simultaneous submits by one identity must leave exactly one vote
func TestCastVoteConcurrentSameIdentity(t *testing.T) {
	t.Parallel()

	s, gormDB := createRepository(t)
	ctx := context.Background()

	poll, err := s.CreatePoll(ctx, jose, "Lunch?", []string{"Pizza", "Tacos"})
	require.NoError(t, err)

	const submits = 10
	var accepted, rejected atomic.Int32
	var wg sync.WaitGroup

	for i := 0; i < submits; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()

			_, err := s.CastVote(ctx, maria, poll.ID, poll.Options[i%2].ID, false)
			switch {
			case err == nil:
				accepted.Add(1)
			case errors.Is(err, ErrAlreadyVoted):
				rejected.Add(1)
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}(i)
	}
	wg.Wait()

	require.EqualValues(t, 1, accepted.Load())
	require.EqualValues(t, submits-1, rejected.Load())

	var count int64
	require.NoError(t, gormDB.Model(&domain.Vote{}).
		Where("poll_id = ? AND username = ? AND discriminator = ?", poll.ID, maria.Username, maria.Discriminator).
		Count(&count).Error)
	require.EqualValues(t, 1, count)
}

// Simultaneous submits by different identities all count
func TestCastVoteConcurrentVoters(t *testing.T) {
	t.Parallel()

	s, gormDB := createRepository(t)
	ctx := context.Background()

	poll, err := s.CreatePoll(ctx, jose, "Lunch?", []string{"Pizza", "Tacos"})
	require.NoError(t, err)

	const voters = 10
	var wg sync.WaitGroup

	for i := 0; i < voters; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()

			voter := domain.Identity{Username: "voter" + string(rune('a'+i)), Discriminator: "0001"}
			if _, err := s.CastVote(ctx, voter, poll.ID, poll.Options[0].ID, false); err != nil {
				t.Errorf("vote of %s: %v", voter, err)
			}
		}(i)
	}
	wg.Wait()

	var count int64
	require.NoError(t, gormDB.Model(&domain.Vote{}).Where("poll_id = ?", poll.ID).Count(&count).Error)
	require.EqualValues(t, voters, count)
}

func TestCastVoteAllowRepeat(t *testing.T) {
	t.Parallel()

	s, gormDB := createRepository(t)
	ctx := context.Background()

	poll, err := s.CreatePoll(ctx, jose, "Lunch?", []string{"Pizza", "Tacos"})
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		_, err = s.CastVote(ctx, maria, poll.ID, poll.Options[0].ID, true)
		require.NoError(t, err)
	}

	var count int64
	require.NoError(t, gormDB.Model(&domain.Vote{}).Where("poll_id = ?", poll.ID).Count(&count).Error)
	require.EqualValues(t, 3, count)
}

func TestResults(t *testing.T) {
	t.Parallel()

	s, _ := createRepository(t)
	ctx := context.Background()

	poll, err := s.CreatePoll(ctx, jose, "Lunch?", []string{"Pizza", "Tacos", "Salad"})
	require.NoError(t, err)

	tallies, err := s.Results(ctx, poll.ID)
	require.NoError(t, err)
	require.Len(t, tallies, 3)
	for _, tally := range tallies {
		require.Zero(t, tally.Count)
		require.Zero(t, tally.Percentage)
	}

	for _, voter := range []domain.Identity{jose, maria} {
		_, err = s.CastVote(ctx, voter, poll.ID, poll.Options[0].ID, false)
		require.NoError(t, err)
	}
	_, err = s.CastVote(ctx, ana, poll.ID, poll.Options[1].ID, false)
	require.NoError(t, err)

	tallies, err = s.Results(ctx, poll.ID)
	require.NoError(t, err)
	require.Len(t, tallies, 3)

	require.Equal(t, poll.Options[0].ID, tallies[0].OptionID)
	require.Equal(t, "Pizza", tallies[0].OptionText)
	require.EqualValues(t, 2, tallies[0].Count)
	require.InDelta(t, 66.667, tallies[0].Percentage, 0.01)
	require.EqualValues(t, 1, tallies[1].Count)
	require.InDelta(t, 33.333, tallies[1].Percentage, 0.01)
	require.EqualValues(t, 0, tallies[2].Count)
	require.Zero(t, tallies[2].Percentage)

	var sum float64
	for _, tally := range tallies {
		sum += tally.Percentage
	}
	require.InDelta(t, 100, sum, 0.001)
}

func TestPickWinner(t *testing.T) {
	t.Parallel()

	s, _ := createRepository(t)
	ctx := context.Background()

	poll, err := s.CreatePoll(ctx, jose, "Lunch?", []string{"Pizza", "Tacos"})
	require.NoError(t, err)

	_, err = s.PickWinner(ctx, poll.Options[0].ID)
	require.ErrorIs(t, err, ErrNoVoters)

	for _, voter := range []domain.Identity{jose, maria, ana} {
		_, err = s.CastVote(ctx, voter, poll.ID, poll.Options[0].ID, false)
		require.NoError(t, err)
	}

	voters, err := s.Voters(ctx, poll.Options[0].ID)
	require.NoError(t, err)
	require.Len(t, voters, 3)

	recorded := map[domain.Identity]bool{}
	for _, v := range voters {
		recorded[v.Voter()] = true
	}

	for i := 0; i < 10; i++ {
		winner, err := s.PickWinner(ctx, poll.Options[0].ID)
		require.NoError(t, err)
		require.True(t, recorded[winner.Voter()], winner.Voter().String())
		require.Equal(t, poll.Options[0].ID, winner.OptionID)
	}

	voters, err = s.Voters(ctx, poll.Options[1].ID)
	require.NoError(t, err)
	require.Empty(t, voters)
}

func TestOption(t *testing.T) {
	t.Parallel()

	s, _ := createRepository(t)
	ctx := context.Background()

	poll, err := s.CreatePoll(ctx, jose, "Lunch?", []string{"Pizza"})
	require.NoError(t, err)

	option, owner, err := s.Option(ctx, poll.Options[0].ID)
	require.NoError(t, err)
	require.Equal(t, "Pizza", option.Text)
	require.Equal(t, poll.ID, owner.ID)
	require.True(t, owner.OwnedBy(jose))

	_, _, err = s.Option(ctx, 9999)
	require.ErrorIs(t, err, ErrOptionNotFound)

	require.NoError(t, s.Ping(ctx))
}
