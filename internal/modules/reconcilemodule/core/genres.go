package core

import (
	"fmt"

	"github.com/mantonx/shelfsync/internal/database"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// upsertGenre returns the id of the genre with exactly this name, creating it
// if needed. Names are compared as-is, so case variants are distinct genres.
func upsertGenre(tx *gorm.DB, name string) (uint, error) {
	genre := database.Genre{Name: name}
	err := tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "name"}},
		DoNothing: true,
	}).Create(&genre).Error
	if err != nil {
		return 0, fmt.Errorf("failed to upsert genre %q: %w", name, err)
	}

	var stored database.Genre
	if err := tx.Where("name = ?", name).First(&stored).Error; err != nil {
		return 0, fmt.Errorf("failed to read genre %q: %w", name, err)
	}
	return stored.ID, nil
}
