package hall

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/gridlinehq/gridline/internal/core/data"
	"github.com/gridlinehq/gridline/internal/wire"
)

// loadRecordings hydrates the in-memory recordings collection from the
// database, preserving upload order.
func loadRecordings(db *gorm.DB) ([]wire.Recording, error) {
	stored, err := data.AllRecordings(db)
	if err != nil {
		return nil, fmt.Errorf("loading recordings: %w", err)
	}

	recordings := make([]wire.Recording, 0, len(stored))
	for _, rec := range stored {
		recordings = append(recordings, recordingFromModel(rec))
	}
	return recordings, nil
}

// persistRecording writes a completed recording through to the database.
func persistRecording(db *gorm.DB, rec wire.Recording) error {
	if err := data.CreateRecording(db, recordingToModel(rec)); err != nil {
		return fmt.Errorf("persisting recording from %s: %w", rec.Username, err)
	}
	return nil
}

func recordingFromModel(m data.Recording) wire.Recording {
	rec := wire.Recording{
		Username:  m.Username,
		Timestamp: m.Timestamp,
	}
	for _, r := range m.Records {
		rec.Records = append(rec.Records, wire.Record{
			Cells:          r.SplitCells(),
			ServerResponse: r.ServerResponse,
			TimeRecorded:   r.TimeRecorded,
			Messages:       r.SplitMessages(),
		})
	}
	return rec
}

func recordingToModel(rec wire.Recording) *data.Recording {
	m := &data.Recording{
		Username:  rec.Username,
		Timestamp: rec.Timestamp,
	}
	for i, r := range rec.Records {
		m.Records = append(m.Records, data.Record{
			Position:       i,
			Cells:          data.JoinCells(r.Cells),
			ServerResponse: r.ServerResponse,
			TimeRecorded:   r.TimeRecorded,
			Messages:       data.JoinMessages(r.Messages),
		})
	}
	return m
}
