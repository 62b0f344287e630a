package data

import (
	"errors"

	"gorm.io/gorm"
)

// BannedPlayer marks a username as banned from the server. Bans are tracked by
// username rather than account ID so that a ban survives account deletion and
// re-registration.
type BannedPlayer struct {
	ID       uint64 `gorm:"primaryKey"`
	Username string `gorm:"unique; not null"`
}

// FindBannedPlayer returns the ban row for username, or nil if the username
// is not banned.
func FindBannedPlayer(db *gorm.DB, username string) (*BannedPlayer, error) {
	var banned BannedPlayer
	err := db.Where("username = ?", username).First(&banned).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}

	return &banned, nil
}

// AllBannedPlayers returns every banned username.
func AllBannedPlayers(db *gorm.DB) ([]BannedPlayer, error) {
	var banned []BannedPlayer
	if err := db.Order("id").Find(&banned).Error; err != nil {
		return nil, err
	}
	return banned, nil
}

// CreateBannedPlayer persists a ban for the username.
func CreateBannedPlayer(db *gorm.DB, banned *BannedPlayer) error {
	return db.Create(banned).Error
}

// DeleteBannedPlayer removes the ban row.
func DeleteBannedPlayer(db *gorm.DB, banned *BannedPlayer) error {
	return db.Delete(banned).Error
}
