package data

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

func TestRecordingRoundTrip(t *testing.T) {
	db := setUpDatabase(t)

	recording := &Recording{
		Username:  "al",
		Timestamp: "1-18-2021 3:04:11 PM",
		Records: []Record{
			{
				Position:       0,
				Cells:          JoinCells([9]string{"X", "", "", "", "", "", "", "", ""}),
				ServerResponse: "Player O's turn",
				TimeRecorded:   3.25,
				Messages:       JoinMessages([]string{"gl", "hf"}),
			},
			{
				Position:       1,
				Cells:          JoinCells([9]string{"X", "O", "", "", "", "", "", "", ""}),
				ServerResponse: "Player X's turn",
				TimeRecorded:   5.5,
			},
		},
	}

	if err := CreateRecording(db, recording); err != nil {
		t.Fatalf("CreateRecording() unexpected error: %v", err)
	}

	recordings, err := AllRecordings(db)
	if err != nil {
		t.Fatalf("AllRecordings() unexpected error: %v", err)
	}
	if len(recordings) != 1 {
		t.Fatalf("AllRecordings() returned %d recordings, want 1", len(recordings))
	}

	ignoreIDs := cmpopts.IgnoreFields(Record{}, "ID", "RecordingID")
	if diff := cmp.Diff(recording.Records, recordings[0].Records, ignoreIDs); diff != "" {
		t.Errorf("stored records did not match; diff:\n%s", diff)
	}

	record := recordings[0].Records[0]
	wantCells := [9]string{"X", "", "", "", "", "", "", "", ""}
	if diff := cmp.Diff(wantCells, record.SplitCells()); diff != "" {
		t.Errorf("SplitCells() mismatch; diff:\n%s", diff)
	}
	if diff := cmp.Diff([]string{"gl", "hf"}, record.SplitMessages()); diff != "" {
		t.Errorf("SplitMessages() mismatch; diff:\n%s", diff)
	}
}

func TestBannedPlayers(t *testing.T) {
	db := setUpDatabase(t)

	if err := CreateBannedPlayer(db, &BannedPlayer{Username: "grief3r"}); err != nil {
		t.Fatalf("CreateBannedPlayer() unexpected error: %v", err)
	}

	banned, err := FindBannedPlayer(db, "grief3r")
	if err != nil {
		t.Fatalf("FindBannedPlayer() unexpected error: %v", err)
	}
	if banned == nil {
		t.Fatal("FindBannedPlayer() returned nil for a banned username")
	}

	missing, err := FindBannedPlayer(db, "al")
	if err != nil {
		t.Fatalf("FindBannedPlayer() unexpected error: %v", err)
	}
	if missing != nil {
		t.Errorf("FindBannedPlayer() returned %+v for an unbanned username", missing)
	}

	if err := DeleteBannedPlayer(db, banned); err != nil {
		t.Fatalf("DeleteBannedPlayer() unexpected error: %v", err)
	}
	all, err := AllBannedPlayers(db)
	if err != nil {
		t.Fatalf("AllBannedPlayers() unexpected error: %v", err)
	}
	if len(all) != 0 {
		t.Errorf("expected no banned players after unban, got %d", len(all))
	}
}
