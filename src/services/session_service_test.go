package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoginCreatesUserOnFirstUse(t *testing.T) {
	svc := NewSessionService(newMemKV())

	user, err := svc.Login("Alice")
	require.NoError(t, err)
	assert.NotEmpty(t, user.ID)
	assert.Equal(t, "Alice", user.DisplayName)
	assert.False(t, user.LastLoginAt.IsZero())
}

func TestLoginReusesExistingIdentity(t *testing.T) {
	svc := NewSessionService(newMemKV())

	first, err := svc.Login("Alice")
	require.NoError(t, err)

	second, err := svc.Login("Alice")
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID, "re-entering a name reuses its id")
	assert.Equal(t, first.CreatedAt, second.CreatedAt)
	assert.False(t, second.LastLoginAt.Before(first.LastLoginAt))
}

func TestLoginDistinctNamesDistinctIdentities(t *testing.T) {
	svc := NewSessionService(newMemKV())

	alice, err := svc.Login("Alice")
	require.NoError(t, err)
	bob, err := svc.Login("Bob")
	require.NoError(t, err)

	assert.NotEqual(t, alice.ID, bob.ID)
}

func TestLoginRejectsEmptyName(t *testing.T) {
	svc := NewSessionService(newMemKV())
	_, err := svc.Login("   ")
	require.Error(t, err)
}

func TestResumeReturnsLastActiveUser(t *testing.T) {
	svc := NewSessionService(newMemKV())

	_, err := svc.Login("Alice")
	require.NoError(t, err)
	bob, err := svc.Login("Bob")
	require.NoError(t, err)

	resumed, ok, err := svc.Resume()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, bob.ID, resumed.ID, "the most recent login owns the session")
}

func TestResumeWithoutSession(t *testing.T) {
	svc := NewSessionService(newMemKV())
	_, ok, err := svc.Resume()
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestResumeWithStalePointer(t *testing.T) {
	kv := newMemKV()
	svc := NewSessionService(kv)

	// A pointer to an id that no longer resolves must not resume.
	require.NoError(t, kv.Set(lastSessionKey, []byte("ghost-user-id")))
	_, ok, err := svc.Resume()
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestLogoutClearsOnlyTheSession(t *testing.T) {
	svc := NewSessionService(newMemKV())

	alice, err := svc.Login("Alice")
	require.NoError(t, err)

	require.NoError(t, svc.Logout())

	_, ok, err := svc.Resume()
	require.NoError(t, err)
	assert.False(t, ok, "no session after logout")

	// The identity itself survives; logging in again reuses it.
	again, err := svc.Login("Alice")
	require.NoError(t, err)
	assert.Equal(t, alice.ID, again.ID)
}

func TestGetUser(t *testing.T) {
	svc := NewSessionService(newMemKV())

	alice, err := svc.Login("Alice")
	require.NoError(t, err)

	got, ok, err := svc.GetUser(alice.ID)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "Alice", got.DisplayName)

	_, ok, err = svc.GetUser("unknown")
	require.NoError(t, err)
	assert.False(t, ok)
}
