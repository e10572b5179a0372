package repository

import (
	"context" // Request-scoped cancellation
	"errors"  // Sentinel errors
	"fmt"     // Error wrapping
	"strings" // Input trimming

	"discord_polls/internal/db"
	"discord_polls/internal/domain"

	"gorm.io/gorm"        // GORM ORM library
	"gorm.io/gorm/clause" // Row locking
)

// Errors that handlers map to user-facing statuses
var (
	ErrPollNotFound    = errors.New("poll not found")                             // No poll with that id
	ErrOptionNotFound  = errors.New("option not found")                           // No option with that id
	ErrOptionNotInPoll = errors.New("option does not belong to poll")             // Option of another poll
	ErrAlreadyVoted    = errors.New("identity already voted in this poll")        // Second vote by the same identity
	ErrNoVoters        = errors.New("option has no voters")                       // Nobody to draw a winner from
	ErrInvalidPoll     = errors.New("poll needs a title and at least one option") // Empty poll form
)

// Repository issues every statement the app runs against polls, options
// and votes.
type Repository struct {
	db *gorm.DB // Pooled, safe for concurrent use
}

// NewRepository wraps an open database handle
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// CreatePoll inserts the poll and one option per non-empty text in a
// single transaction. Blank texts are skipped, at most domain.MaxOptions
// are kept.
func (s *Repository) CreatePoll(ctx context.Context, owner domain.Identity, title string, texts []string) (*domain.Poll, error) {
	title = strings.TrimSpace(title)

	options := make([]domain.Option, 0, domain.MaxOptions)
	for _, text := range texts {
		text = strings.TrimSpace(text)
		if text == "" {
			continue
		}
		if len(options) == domain.MaxOptions {
			break // Extra fields are ignored
		}
		options = append(options, domain.Option{Text: text})
	}

	if title == "" || len(options) == 0 {
		return nil, ErrInvalidPoll
	}

	poll := domain.Poll{
		Title:              title,
		Owner:              owner.Username,
		OwnerDiscriminator: owner.Discriminator,
		Options:            options,
	}

	// Create saves the has-many options inside the same transaction
	if err := s.db.WithContext(ctx).Create(&poll).Error; err != nil {
		return nil, fmt.Errorf("create poll: %w", err)
	}

	return &poll, nil
}

// Poll returns the poll with its options ordered by id
func (s *Repository) Poll(ctx context.Context, id uint) (*domain.Poll, error) {
	var poll domain.Poll

	err := s.db.WithContext(ctx).
		Preload("Options", orderOptions).
		Where("poll_id = ?", id).
		First(&poll).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrPollNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get poll %d: %w", id, err)
	}

	return &poll, nil
}

// LatestPoll returns the most recently created poll
func (s *Repository) LatestPoll(ctx context.Context) (*domain.Poll, error) {
	var poll domain.Poll

	err := s.db.WithContext(ctx).
		Preload("Options", orderOptions).
		Order("poll_id DESC").
		First(&poll).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrPollNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get latest poll: %w", err)
	}

	return &poll, nil
}

// PollsByOwner lists the polls owned by id, newest first
func (s *Repository) PollsByOwner(ctx context.Context, owner domain.Identity) ([]domain.Poll, error) {
	var polls []domain.Poll

	err := s.db.WithContext(ctx).
		Where("owner = ? AND owner_discriminator = ?", owner.Username, owner.Discriminator).
		Order("poll_id DESC").
		Find(&polls).Error
	if err != nil {
		return nil, fmt.Errorf("list polls of %s: %w", owner, err)
	}

	return polls, nil
}

// Option returns an option together with the poll it belongs to
func (s *Repository) Option(ctx context.Context, optionID uint) (*domain.Option, *domain.Poll, error) {
	var option domain.Option

	err := s.db.WithContext(ctx).Where("option_id = ?", optionID).First(&option).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil, ErrOptionNotFound
	}
	if err != nil {
		return nil, nil, fmt.Errorf("get option %d: %w", optionID, err)
	}

	var poll domain.Poll
	if err := s.db.WithContext(ctx).Where("poll_id = ?", option.PollID).First(&poll).Error; err != nil {
		return nil, nil, fmt.Errorf("get poll of option %d: %w", optionID, err)
	}

	return &option, &poll, nil
}

// CastVote records voter's choice of optionID in pollID. Unless
// allowRepeat is set, a second vote by the same identity in the same poll
// fails with ErrAlreadyVoted. Votes on the same poll are serialized by a
// row lock on the poll, so concurrent submits cannot both pass the check.
func (s *Repository) CastVote(
	ctx context.Context, voter domain.Identity, pollID, optionID uint, allowRepeat bool,
) (*domain.Option, error) {
	var option domain.Option

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Lock the poll row until commit (no-op on SQLite, which locks the whole database)
		var poll domain.Poll
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Select("poll_id").
			Where("poll_id = ?", pollID).
			First(&poll).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrPollNotFound
		}
		if err != nil {
			return err
		}

		err = tx.Where("option_id = ?", optionID).First(&option).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrOptionNotFound
		}
		if err != nil {
			return err
		}
		if option.PollID != pollID {
			return ErrOptionNotInPoll
		}

		if !allowRepeat { // One vote per identity per poll
			var count int64
			err = tx.Model(&domain.Vote{}).
				Where("poll_id = ? AND username = ? AND discriminator = ?", pollID, voter.Username, voter.Discriminator).
				Count(&count).Error
			if err != nil {
				return err
			}
			if count > 0 {
				return ErrAlreadyVoted
			}
		}

		vote := domain.Vote{
			Username:      voter.Username,
			Discriminator: voter.Discriminator,
			OptionID:      option.ID,
			PollID:        pollID,
		}
		return tx.Create(&vote).Error // Commit transaction, releasing the lock
	})
	if err != nil {
		if isSentinel(err) {
			return nil, err
		}
		return nil, fmt.Errorf("cast vote in poll %d: %w", pollID, err)
	}

	return &option, nil
}

const resultsQuery = `
SELECT options.option_id AS option_id,
       options.option_text AS option_text,
       COUNT(votes.vote_id) AS count,
       COALESCE(COUNT(votes.vote_id) * 100.0 / NULLIF(SUM(COUNT(votes.vote_id)) OVER (), 0), 0) AS percentage
FROM options
LEFT JOIN votes ON options.option_id = votes.vote
WHERE options.poll_id = ?
GROUP BY options.option_id, options.option_text
ORDER BY options.option_id`

// Results tallies the votes of every option in the poll. Percentages are
// shares of all votes in the poll and are all zero when nobody voted.
func (s *Repository) Results(ctx context.Context, pollID uint) ([]domain.OptionTally, error) {
	var tallies []domain.OptionTally

	if err := s.db.WithContext(ctx).Raw(resultsQuery, pollID).Scan(&tallies).Error; err != nil { // One row per option
		return nil, fmt.Errorf("tally poll %d: %w", pollID, err)
	}

	return tallies, nil
}

// Voters lists every vote cast for the option, oldest first
func (s *Repository) Voters(ctx context.Context, optionID uint) ([]domain.Vote, error) {
	var votes []domain.Vote

	err := s.db.WithContext(ctx).
		Where("vote = ?", optionID).
		Order("vote_id").
		Find(&votes).Error
	if err != nil {
		return nil, fmt.Errorf("list voters of option %d: %w", optionID, err)
	}

	return votes, nil
}

// PickWinner draws one vote of the option using the database's random
// ordering.
func (s *Repository) PickWinner(ctx context.Context, optionID uint) (*domain.Vote, error) {
	var vote domain.Vote

	err := s.db.WithContext(ctx).
		Where("vote = ?", optionID).
		Order(db.RandomFunc(s.db)). // RAND() or RANDOM() per dialect
		Limit(1).
		Take(&vote).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNoVoters
	}
	if err != nil {
		return nil, fmt.Errorf("pick winner of option %d: %w", optionID, err)
	}

	return &vote, nil
}

// Ping checks the database connection
func (s *Repository) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func orderOptions(tx *gorm.DB) *gorm.DB {
	return tx.Order("option_id")
}

func isSentinel(err error) bool {
	for _, sentinel := range []error{ErrPollNotFound, ErrOptionNotFound, ErrOptionNotInPoll, ErrAlreadyVoted} {
		if errors.Is(err, sentinel) {
			return true
		}
	}
	return false
}
