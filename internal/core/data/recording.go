package data

import (
	"strings"

	"gorm.io/gorm"
)

// Recording is one stored play-through: an ordered set of Records attributed
// to the player that uploaded it. The timestamp is stored exactly as the
// client supplied it because it is only ever echoed back on the wire.
type Recording struct {
	ID        uint64 `gorm:"primaryKey"`
	Username  string `gorm:"not null"`
	Timestamp string
	Records   []Record `gorm:"foreignKey:RecordingID; constraint:OnDelete:CASCADE"`
}

// Record is one snapshot within a Recording. The nine board cells and the chat
// lines are stored |-joined, mirroring their wire representation.
type Record struct {
	ID             uint64 `gorm:"primaryKey"`
	RecordingID    uint64 `gorm:"index; not null"`
	Position       int    `gorm:"not null"`
	Cells          string
	ServerResponse string
	TimeRecorded   float64
	Messages       string
}

// SplitCells returns the record's board cells as a 9-element array.
func (r *Record) SplitCells() [9]string {
	var cells [9]string
	copy(cells[:], strings.Split(r.Cells, "|"))
	return cells
}

// SplitMessages returns the record's chat lines, dropping empty entries left
// over from the trailing delimiter.
func (r *Record) SplitMessages() []string {
	var messages []string
	for _, m := range strings.Split(r.Messages, "|") {
		if m != "" {
			messages = append(messages, m)
		}
	}
	return messages
}

// JoinCells packs a 9-element cell array into the stored form.
func JoinCells(cells [9]string) string {
	return strings.Join(cells[:], "|")
}

// JoinMessages packs chat lines into the stored form.
func JoinMessages(messages []string) string {
	return strings.Join(messages, "|")
}

// AllRecordings loads every stored recording with its records in upload order.
func AllRecordings(db *gorm.DB) ([]Recording, error) {
	var recordings []Recording
	err := db.Preload("Records", func(db *gorm.DB) *gorm.DB {
		return db.Order("position")
	}).Order("id").Find(&recordings).Error

	if err != nil {
		return nil, err
	}
	return recordings, nil
}

// CreateRecording persists the Recording and all of its Records.
func CreateRecording(db *gorm.DB, recording *Recording) error {
	return db.Create(recording).Error
}
