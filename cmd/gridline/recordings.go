package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/gridlinehq/gridline/internal/core/data"
)

var recordingsCmd = &cobra.Command{
	Use:   "recordings",
	Short: "Stored recording tools",
}

var recordingsListCmd = &cobra.Command{
	Use:   "list",
	Short: "Lists the stored gameplay recordings",
	Run:   RecordingsListCommand,
}

func RecordingsListCommand(cmd *cobra.Command, args []string) {
	db := initDB()

	recordings, err := data.AllRecordings(db)
	if err != nil {
		fmt.Println("error listing recordings:", err)
		return
	}

	if len(recordings) == 0 {
		fmt.Println("no stored recordings")
		return
	}
	for _, rec := range recordings {
		fmt.Printf("%d\t%s\t%s\t%d records\n", rec.ID, rec.Username, rec.Timestamp, len(rec.Records))
	}
}
