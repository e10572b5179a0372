package domain

// Vote Model
type Vote struct {
	ID            uint    `gorm:"column:vote_id;primaryKey"`                 // Primary key
	Username      string  `gorm:"not null;index:idx_votes_voter"`            // Voter username
	Discriminator string  `gorm:"not null;index:idx_votes_voter"`            // Voter discriminator
	OptionID      uint    `gorm:"column:vote;not null;index"`                // Foreign key to Option
	Option        *Option `gorm:"foreignKey:OptionID;references:ID"`         // Belongs-to relationship with Option
	PollID        uint    `gorm:"not null;index:idx_votes_voter,priority:1"` // Poll the vote was cast in
	CreatedAt     int64   `gorm:"autoCreateTime:milli"`                      // Timestamp of creation in milliseconds
}

func (Vote) TableName() string { return "votes" }

// Voter returns the identity that cast the vote
func (v Vote) Voter() Identity {
	return Identity{Username: v.Username, Discriminator: v.Discriminator}
}
