package storage

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalStorageRoundTrip(t *testing.T) {
	s, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	_, err = s.Save("reports/students.csv", []byte("a,b"))
	require.NoError(t, err)
	data, err := s.Read("reports/students.csv")
	require.NoError(t, err)
	assert.Equal(t, "a,b", string(data))

	require.NoError(t, s.Delete("reports/students.csv"))
	_, err = s.Read("reports/students.csv")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, s.Delete("reports/students.csv"))
}

func TestLocalStorageSavePrivateIsOwnerOnly(t *testing.T) {
	s, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, s.SavePrivate("session.json", []byte(`{}`)))
	info, err := os.Stat(s.Path("session.json"))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	require.NoError(t, s.SavePrivate("session.json", []byte(`{"access":"x"}`)))
	data, err := s.Read("session.json")
	require.NoError(t, err)
	assert.JSONEq(t, `{"access":"x"}`, string(data))
}
