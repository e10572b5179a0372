package domain

// MaxOptions is the number of option fields the create form offers
const MaxOptions = 4

// Poll Model
type Poll struct {
	ID                 uint     `gorm:"column:poll_id;primaryKey"`                                 // Primary key
	Title              string   `gorm:"not null"`                                                  // Poll question
	Owner              string   `gorm:"not null;index:idx_polls_owner"`                            // Owner username
	OwnerDiscriminator string   `gorm:"column:owner_discriminator;not null;index:idx_polls_owner"` // Owner discriminator
	Options            []Option `gorm:"foreignKey:PollID;references:ID"`                           // One-to-many relationship with Option
}

// TableName keeps the historical table name
func (Poll) TableName() string { return "polls" }

// OwnedBy reports whether id is the poll owner
func (p Poll) OwnedBy(id Identity) bool {
	return id.Username == p.Owner && id.Discriminator == p.OwnerDiscriminator
}
