package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/gridlinehq/gridline/internal/core/data"
)

var banCmd = &cobra.Command{
	Use:   "ban",
	Short: "Ban list management tools",
}

var banAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Adds a username to the ban list",
	Run:   BanAddCommand,
}

var banRemoveCmd = &cobra.Command{
	Use:   "remove",
	Short: "Removes a username from the ban list",
	Run:   BanRemoveCommand,
}

var banListCmd = &cobra.Command{
	Use:   "list",
	Short: "Lists every banned username",
	Run:   BanListCommand,
}

func BanAddCommand(cmd *cobra.Command, args []string) {
	db := initDB()

	username, _ := popArg(args, "Username")

	existing, err := data.FindBannedPlayer(db, username)
	if err != nil {
		fmt.Println("error looking up ban:", err)
		return
	} else if existing != nil {
		fmt.Printf("'%s' is already banned\n", username)
		return
	}

	if err := data.CreateBannedPlayer(db, &data.BannedPlayer{Username: username}); err != nil {
		fmt.Println("error banning player:", err)
		return
	}
	fmt.Printf("banned '%s'\n", username)
}

func BanRemoveCommand(cmd *cobra.Command, args []string) {
	db := initDB()

	username, _ := popArg(args, "Username")

	existing, err := data.FindBannedPlayer(db, username)
	if err != nil {
		fmt.Println("error looking up ban:", err)
		return
	} else if existing == nil {
		fmt.Printf("'%s' is not banned\n", username)
		return
	}

	if err := data.DeleteBannedPlayer(db, existing); err != nil {
		fmt.Println("error unbanning player:", err)
		return
	}
	fmt.Printf("unbanned '%s'\n", username)
}

func BanListCommand(cmd *cobra.Command, args []string) {
	db := initDB()

	banned, err := data.AllBannedPlayers(db)
	if err != nil {
		fmt.Println("error listing bans:", err)
		return
	}

	if len(banned) == 0 {
		fmt.Println("no banned players")
		return
	}
	for _, b := range banned {
		fmt.Println(b.Username)
	}
}
