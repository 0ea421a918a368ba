package session

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"teampower/internal/cache"
)

func newDirectory(t *testing.T) *Directory {
	t.Helper()
	d := NewDirectoryWithCost(bcrypt.MinCost)
	require.NoError(t, d.ParseSeed("admin:admin:s3cret; viewer:user:pa:ss"))
	return d
}

func TestParseRole(t *testing.T) {
	r, err := ParseRole(" Admin ")
	require.NoError(t, err)
	assert.Equal(t, RoleAdmin, r)
	assert.True(t, r.CanWrite())
	assert.False(t, RoleUser.CanWrite())

	_, err = ParseRole("root")
	assert.ErrorIs(t, err, ErrInvalidRole)
}

func TestParseSeed(t *testing.T) {
	d := newDirectory(t)
	assert.Equal(t, []User{{"admin", RoleAdmin}, {"viewer", RoleUser}}, d.List())

	// Password keeps its colon.
	u, err := d.Authenticate("viewer", "pa:ss")
	require.NoError(t, err)
	assert.Equal(t, RoleUser, u.Role)

	bad := NewDirectoryWithCost(bcrypt.MinCost)
	assert.Error(t, bad.ParseSeed("nobody"))
	assert.ErrorIs(t, bad.ParseSeed("x:owner:pw"), ErrInvalidRole)
	assert.ErrorIs(t, bad.ParseSeed("x:user:"), ErrEmptyPassword)
	assert.NoError(t, bad.ParseSeed(""))
}

func TestAuthenticate(t *testing.T) {
	d := newDirectory(t)

	_, err := d.Authenticate("admin", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = d.Authenticate("ghost", "s3cret")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	u, err := d.Authenticate("admin", "s3cret")
	require.NoError(t, err)
	assert.Equal(t, User{"admin", RoleAdmin}, u)
}

func TestSetRoleAndUpdatePassword(t *testing.T) {
	d := newDirectory(t)

	require.NoError(t, d.SetRole("viewer", RoleAdmin))
	u, _ := d.Get("viewer")
	assert.Equal(t, RoleAdmin, u.Role)

	assert.ErrorIs(t, d.SetRole("ghost", RoleUser), ErrUnknownUser)
	assert.ErrorIs(t, d.SetRole("viewer", "owner"), ErrInvalidRole)

	require.NoError(t, d.UpdatePassword("admin", "n3w"))
	_, err := d.Authenticate("admin", "s3cret")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = d.Authenticate("admin", "n3w")
	assert.NoError(t, err)

	assert.ErrorIs(t, d.UpdatePassword("admin", ""), ErrEmptyPassword)
	assert.ErrorIs(t, d.UpdatePassword("ghost", "x"), ErrUnknownUser)
}

func TestManagerLoginResolveLogout(t *testing.T) {
	m := NewManager(newDirectory(t), time.Hour)

	_, err := m.Login("admin", "nope")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	s, err := m.Login("admin", "s3cret")
	require.NoError(t, err)
	assert.Len(t, s.Token, 36)
	assert.Equal(t, RoleAdmin, s.Role)

	got, ok := m.Resolve(s.Token)
	require.True(t, ok)
	assert.Equal(t, "admin", got.Username)

	other, err := m.Login("admin", "s3cret")
	require.NoError(t, err)
	assert.NotEqual(t, s.Token, other.Token)

	m.Logout(s.Token)
	_, ok = m.Resolve(s.Token)
	assert.False(t, ok)
	_, ok = m.Resolve(other.Token)
	assert.True(t, ok)

	_, ok = m.Resolve("")
	assert.False(t, ok)
}

func TestManagerRoleChangeAppliesToOpenSession(t *testing.T) {
	d := newDirectory(t)
	m := NewManager(d, time.Hour)

	s, err := m.Login("viewer", "pa:ss")
	require.NoError(t, err)
	require.NoError(t, d.SetRole("viewer", RoleAdmin))

	got, ok := m.Resolve(s.Token)
	require.True(t, ok)
	assert.Equal(t, RoleAdmin, got.Role)
}

func TestManagerExpiry(t *testing.T) {
	m := NewManager(newDirectory(t), time.Minute)
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return now }

	a, _ := m.Login("admin", "s3cret")
	now = now.Add(30 * time.Second)
	b, _ := m.Login("viewer", "pa:ss")

	now = now.Add(45 * time.Second)
	_, ok := m.Resolve(a.Token)
	assert.False(t, ok, "first session expired")

	var c cache.Cleaner = m
	assert.Equal(t, 0, c.CleanExpired(), "expired session already dropped on resolve")
	assert.Equal(t, 1, m.Count())

	now = now.Add(time.Minute)
	assert.Equal(t, 1, c.CleanExpired())
	_, ok = m.Resolve(b.Token)
	assert.False(t, ok)
}

func TestContextHelpers(t *testing.T) {
	_, ok := FromContext(context.Background())
	assert.False(t, ok)

	ctx := WithSession(context.Background(), Session{Username: "admin", Role: RoleAdmin})
	s, ok := FromContext(ctx)
	require.True(t, ok)
	assert.Equal(t, "admin", s.Username)
}
