// Package store is the relational persistence collaborator: user-scoped
// watchlist and portfolio rows plus stored forecast points. The access layer
// core never touches it directly; the HTTP endpoints and the prediction flow
// do.
package store

import (
	"strings"

	"gorm.io/gorm"
)

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Watchlist

func (r *Repository) ListWatchlist(userID uint) ([]WatchlistItem, error) {
	var items []WatchlistItem
	err := r.db.Where("user_id = ?", userID).Order("created_at").Find(&items).Error
	return items, err
}

func (r *Repository) AddWatchlistItem(item *WatchlistItem) error {
	item.Symbol = strings.ToUpper(item.Symbol)
	return r.db.Create(item).Error
}

func (r *Repository) UpdateWatchlistItem(item *WatchlistItem) error {
	return r.db.Save(item).Error
}

func (r *Repository) DeleteWatchlistItem(userID, id uint) error {
	return r.db.Where("user_id = ?", userID).Delete(&WatchlistItem{}, id).Error
}

// Portfolio

func (r *Repository) ListHoldings(userID uint) ([]PortfolioHolding, error) {
	var holdings []PortfolioHolding
	err := r.db.Where("user_id = ?", userID).Order("created_at").Find(&holdings).Error
	return holdings, err
}

func (r *Repository) AddHolding(h *PortfolioHolding) error {
	h.Symbol = strings.ToUpper(h.Symbol)
	return r.db.Create(h).Error
}

func (r *Repository) UpdateHolding(h *PortfolioHolding) error {
	return r.db.Save(h).Error
}

func (r *Repository) DeleteHolding(userID, id uint) error {
	return r.db.Where("user_id = ?", userID).Delete(&PortfolioHolding{}, id).Error
}

// Predictions

// ReplacePredictions drops the stored forecast for a symbol and writes the
// new one in a single transaction.
func (r *Repository) ReplacePredictions(symbol string, rows []Prediction) error {
	symbol = strings.ToUpper(symbol)
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("symbol = ?", symbol).Delete(&Prediction{}).Error; err != nil {
			return err
		}
		for i := range rows {
			rows[i].Symbol = symbol
		}
		if len(rows) == 0 {
			return nil
		}
		return tx.Create(&rows).Error
	})
}

func (r *Repository) ListPredictions(symbol string) ([]Prediction, error) {
	var rows []Prediction
	err := r.db.Where("symbol = ?", strings.ToUpper(symbol)).
		Order("predicted_date").Find(&rows).Error
	return rows, err
}
