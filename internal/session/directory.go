// Package session holds the user directory and the login sessions of the
// HTTP API.
package session

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"golang.org/x/crypto/bcrypt"
)

// Role grants read access (RoleUser) or read/write access (RoleAdmin).
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

var (
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrUnknownUser        = errors.New("unknown user")
	ErrInvalidRole        = errors.New("invalid role")
	ErrEmptyPassword      = errors.New("password must not be empty")
)

func ParseRole(s string) (Role, error) {
	switch r := Role(strings.ToLower(strings.TrimSpace(s))); r {
	case RoleUser, RoleAdmin:
		return r, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidRole, s)
}

// CanWrite reports whether the role may append to the ledger.
func (r Role) CanWrite() bool { return r == RoleAdmin }

// User is the public view of a directory entry.
type User struct {
	Username string `json:"username"`
	Role     Role   `json:"role"`
}

type account struct {
	hash []byte
	role Role
}

// Directory stores users with bcrypt password hashes.
type Directory struct {
	mu    sync.RWMutex
	users map[string]account
	cost  int
}

func NewDirectory() *Directory {
	return NewDirectoryWithCost(bcrypt.DefaultCost)
}

// NewDirectoryWithCost lets tests use bcrypt.MinCost.
func NewDirectoryWithCost(cost int) *Directory {
	return &Directory{users: make(map[string]account), cost: cost}
}

// Add creates or replaces a user.
func (d *Directory) Add(username string, role Role, password string) error {
	username = strings.TrimSpace(username)
	if username == "" {
		return fmt.Errorf("%w: empty username", ErrUnknownUser)
	}
	if _, err := ParseRole(string(role)); err != nil {
		return err
	}
	hash, err := d.hash(password)
	if err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.users[username] = account{hash: hash, role: role}
	return nil
}

// Authenticate checks the password and returns the user. Unknown users and
// wrong passwords yield the same error.
func (d *Directory) Authenticate(username, password string) (User, error) {
	d.mu.RLock()
	acc, ok := d.users[username]
	d.mu.RUnlock()
	if !ok {
		return User{}, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword(acc.hash, []byte(password)); err != nil {
		return User{}, ErrInvalidCredentials
	}
	return User{Username: username, Role: acc.role}, nil
}

func (d *Directory) Get(username string) (User, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	acc, ok := d.users[username]
	if !ok {
		return User{}, fmt.Errorf("%w: %s", ErrUnknownUser, username)
	}
	return User{Username: username, Role: acc.role}, nil
}

func (d *Directory) SetRole(username string, role Role) error {
	if _, err := ParseRole(string(role)); err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	acc, ok := d.users[username]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownUser, username)
	}
	acc.role = role
	d.users[username] = acc
	return nil
}

func (d *Directory) UpdatePassword(username, password string) error {
	hash, err := d.hash(password)
	if err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	acc, ok := d.users[username]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownUser, username)
	}
	acc.hash = hash
	d.users[username] = acc
	return nil
}

// List returns every user sorted by name.
func (d *Directory) List() []User {
	d.mu.RLock()
	out := make([]User, 0, len(d.users))
	for name, acc := range d.users {
		out = append(out, User{Username: name, Role: acc.role})
	}
	d.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Username < out[j].Username })
	return out
}

func (d *Directory) hash(password string) ([]byte, error) {
	if password == "" {
		return nil, ErrEmptyPassword
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), d.cost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	return hash, nil
}

// ParseSeed loads users from a SEED_USERS value of the form
// "name:role:password;name:role:password". The password may contain colons.
func (d *Directory) ParseSeed(seed string) error {
	for i, entry := range strings.Split(seed, ";") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		parts := strings.SplitN(entry, ":", 3)
		if len(parts) != 3 {
			return fmt.Errorf("seed entry %d: want name:role:password", i+1)
		}
		role, err := ParseRole(parts[1])
		if err != nil {
			return fmt.Errorf("seed entry %d: %w", i+1, err)
		}
		if err := d.Add(parts[0], role, parts[2]); err != nil {
			return fmt.Errorf("seed entry %d: %w", i+1, err)
		}
	}
	return nil
}
