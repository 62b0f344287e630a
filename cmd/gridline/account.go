// This script is a small convenience tool for manipulating user accounts in
// the configured server database.
package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/glebarez/sqlite"
	"github.com/spf13/cobra"

	"github.com/gridlinehq/gridline/internal/account"
	"github.com/gridlinehq/gridline/internal/core"
	"github.com/gridlinehq/gridline/internal/core/data"
)

var accountCmd = &cobra.Command{
	Use:   "account",
	Short: "Account management tools",
}

var accountAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Registers new accounts in the database",
	Run:   AccountAddCommand,
}

var accountDeleteCmd = &cobra.Command{
	Use:   "delete",
	Short: "Deletes accounts from the database",
	Run:   AccountDeleteCommand,
}

func initDB() *gorm.DB {
	// Change to the same directory as the config file so that any relative
	// paths in the config file will resolve.
	if ConfigFlag != "" {
		if err := os.Chdir(ConfigFlag); err != nil {
			fmt.Println("error changing to config directory:", err)
			os.Exit(1)
		}
	}

	cfg := core.LoadConfig(ConfigFlag)
	var dialector gorm.Dialector
	switch strings.ToLower(cfg.Database.Engine) {
	case "sqlite", "":
		dialector = sqlite.Open(cfg.QualifiedPath(cfg.Database.Filename))
	case "postgres":
		dialector = postgres.Open(cfg.DatabaseURL())
	default:
		fmt.Println("unsupported database engine:", cfg.Database.Engine)
		os.Exit(1)
	}

	db, err := gorm.Open(dialector, &gorm.Config{Logger: gormlogger.Discard})
	if err != nil {
		fmt.Println("error connecting to database:", err.Error())
		os.Exit(1)
	}
	return db
}

func AccountAddCommand(cmd *cobra.Command, args []string) {
	db := initDB()

	username, args := popArg(args, "Username")
	password, _ := popArg(args, "Password")

	existing, err := data.FindAccountByUsername(db, username)
	if err != nil {
		fmt.Println("error finding account:", err)
		return
	} else if existing != nil {
		fmt.Printf("account '%s' already exists; skipping\n", username)
		return
	}

	if err := data.CreateAccount(db, &data.Account{
		Username:         username,
		Password:         account.HashPassword(password),
		RegistrationDate: time.Now(),
	}); err != nil {
		fmt.Println("error creating account:", err)
		return
	}

	created, err := data.FindAccountByUsername(db, username)
	if err != nil {
		fmt.Println("error finding account:", err)
		return
	}
	fmt.Printf("created account for '%s' (ID: %d)\n", created.Username, created.ID)
}

func AccountDeleteCommand(cmd *cobra.Command, args []string) {
	db := initDB()

	username, _ := popArg(args, "Username")

	existing, err := data.FindAccountByUsername(db, username)
	if err != nil {
		fmt.Println("error finding account:", err)
		return
	} else if existing == nil {
		fmt.Printf("no account named '%s'\n", username)
		return
	}

	if err := data.DeleteAccount(db, existing); err != nil {
		fmt.Println("error deleting account:", err)
		return
	}
	fmt.Println("deleted account")
}

func popArg(args []string, prompt string) (string, []string) {
	if len(args) == 1 {
		return args[0], nil
	} else if len(args) > 1 {
		return args[0], args[1:]
	}

	fmt.Printf("%s: ", prompt)
	scanner := bufio.NewScanner(os.Stdin)
	scanner.Scan()
	return scanner.Text(), args
}
