// Package account implements the server's account directory: registration,
// authentication, the ban list, and the active-login set that keeps an
// account from being used by two connections at once.
package account

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/gridlinehq/gridline/internal/core/data"
)

var (
	ErrUnknown       = errors.New("an unexpected error occurred, please contact your server administrator")
	ErrUsernameTaken = errors.New("that username is already taken")
	ErrWrongName     = errors.New("no account exists with that username")
	ErrWrongPassword = errors.New("wrong password for that account")
	// ErrAlreadyLoggedOn indicates the account is in use by another connection.
	ErrAlreadyLoggedOn = errors.New("that account is already logged on")
	ErrBanned          = errors.New("this account has been banned")
)

// Directory owns the registered accounts, the ban list, and the set of
// usernames currently logged on. Accounts and bans are written through to the
// database; the active-login set is purely in-memory since it describes live
// connections.
type Directory struct {
	db     *gorm.DB
	logger *logrus.Logger

	mu           sync.Mutex
	activeLogins map[string]struct{}
}

func NewDirectory(db *gorm.DB, logger *logrus.Logger) *Directory {
	return &Directory{
		db:           db,
		logger:       logger,
		activeLogins: make(map[string]struct{}),
	}
}

// CreateAccount registers a new account. Usernames are unique with a
// case-sensitive exact match; the ban list is deliberately not consulted
// here, bans only gate logins.
func (d *Directory) CreateAccount(username, password string) error {
	existing, err := data.FindAccountByUsername(d.db, username)
	if err != nil {
		d.logger.Warnf("error looking up account %s: %v", username, err)
		return ErrUnknown
	}
	if existing != nil {
		return ErrUsernameTaken
	}

	account := &data.Account{
		Username: username,
		Password: HashPassword(password),
	}
	if err := data.CreateAccount(d.db, account); err != nil {
		d.logger.Warnf("error creating account %s: %v", username, err)
		return ErrUnknown
	}
	return nil
}

// Authenticate validates a login attempt and, on success, claims the username
// in the active-login set. The checks are ordered: an unknown username is
// always ErrWrongName, a password mismatch is reported before the ban status
// (so a banned player probing with a wrong password learns nothing), and only
// a password-matching attempt on an unbanned account can fail with
// ErrAlreadyLoggedOn.
func (d *Directory) Authenticate(username, password string) error {
	account, err := data.FindAccountByUsername(d.db, username)
	if err != nil {
		d.logger.Warnf("error looking up account %s: %v", username, err)
		return ErrUnknown
	}
	if account == nil {
		return ErrWrongName
	}
	if account.Password != HashPassword(password) {
		return ErrWrongPassword
	}

	banned, err := d.IsBanned(username)
	if err != nil {
		return ErrUnknown
	}
	if banned {
		return ErrBanned
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if _, loggedOn := d.activeLogins[username]; loggedOn {
		return ErrAlreadyLoggedOn
	}
	d.activeLogins[username] = struct{}{}
	return nil
}

// Deauthenticate releases the username's active login. Called when the owning
// connection leaves the server or is kicked.
func (d *Directory) Deauthenticate(username string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.activeLogins, username)
}

// IsLoggedOn reports whether any connection currently holds the username.
func (d *Directory) IsLoggedOn(username string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, loggedOn := d.activeLogins[username]
	return loggedOn
}

// Ban adds the username to the ban list. Banning an already-banned username
// is a no-op.
func (d *Directory) Ban(username string) error {
	existing, err := data.FindBannedPlayer(d.db, username)
	if err != nil {
		return fmt.Errorf("error looking up ban for %s: %w", username, err)
	}
	if existing != nil {
		return nil
	}
	if err := data.CreateBannedPlayer(d.db, &data.BannedPlayer{Username: username}); err != nil {
		return fmt.Errorf("error banning %s: %w", username, err)
	}
	return nil
}

// Unban removes the username from the ban list, reporting whether it was
// present.
func (d *Directory) Unban(username string) (bool, error) {
	existing, err := data.FindBannedPlayer(d.db, username)
	if err != nil {
		return false, fmt.Errorf("error looking up ban for %s: %w", username, err)
	}
	if existing == nil {
		return false, nil
	}
	if err := data.DeleteBannedPlayer(d.db, existing); err != nil {
		return false, fmt.Errorf("error unbanning %s: %w", username, err)
	}
	return true, nil
}

// IsBanned reports whether the username is on the ban list.
func (d *Directory) IsBanned(username string) (bool, error) {
	banned, err := data.FindBannedPlayer(d.db, username)
	if err != nil {
		d.logger.Warnf("error looking up ban for %s: %v", username, err)
		return false, err
	}
	return banned != nil, nil
}

// HashPassword returns a version of password with gridline's chosen hashing
// strategy.
func HashPassword(password string) string {
	hash := sha256.New()
	hash.Write([]byte(password))
	return hex.EncodeToString(hash.Sum(nil))
}
