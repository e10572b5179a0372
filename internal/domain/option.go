package domain

// Option Model
type Option struct {
	ID     uint   `gorm:"column:option_id;primaryKey"` // Primary key
	Text   string `gorm:"column:option_text;not null"` // Option text
	PollID uint   `gorm:"not null;index"`              // Foreign key to Poll
}

func (Option) TableName() string { return "options" }

// OptionTally is one row of a poll's results
type OptionTally struct {
	OptionID   uint    `json:"option_id"`
	OptionText string  `json:"option_text"`
	Count      int64   `json:"count"`
	Percentage float64 `json:"percentage"` // Share of all votes in the poll, 0-100
}
