package store

import "time"

// WatchlistItem is one ticker a user follows.
type WatchlistItem struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	UserID uint   `gorm:"index;not null" json:"user_id"`
	Symbol string `gorm:"index;not null" json:"symbol"`
	Notes  string `json:"notes"`
}

// PortfolioHolding is one position in a user's portfolio.
type PortfolioHolding struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	UserID   uint    `gorm:"index;not null" json:"user_id"`
	Symbol   string  `gorm:"index;not null" json:"symbol"`
	Quantity float64 `gorm:"not null" json:"quantity"`
	BuyPrice float64 `gorm:"not null" json:"buy_price"`
}

// Prediction is one stored forecast point for a symbol.
type Prediction struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`

	Symbol         string  `gorm:"index;not null" json:"symbol"`
	PredictedDate  string  `gorm:"not null" json:"predicted_date"` // YYYY-MM-DD
	PredictedPrice float64 `gorm:"not null" json:"predicted_price"`
	LowerBound     float64 `json:"lower_bound"`
	UpperBound     float64 `json:"upper_bound"`
}
