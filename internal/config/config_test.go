package config

import (
	"io/ioutil"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileYieldsZeroValue(t *testing.T) {
	c, err := Load(t.TempDir())
	require.NoError(t, err)
	assert.Empty(t, c.ClientListenAddr)
	assert.Zero(t, c.ReplicationThreshold)
}

func TestLoadParsesKnownKeys(t *testing.T) {
	base := t.TempDir()
	contents := "" +
		"client-listen-addr :6000\n" +
		"registration-listen-addr :6001\n" +
		"root /var/distfs/storage\n" +
		"host storage1.example.com\n" +
		"naming-registration-addr naming.example.com:6001\n" +
		"replication-threshold 20\n" +
		"replication-fraction 0.2\n" +
		"max-replicas 20\n" +
		"# a comment\n" +
		"\n"
	require.NoError(t, ioutil.WriteFile(filepath.Join(base, "config"), []byte(contents), 0666))

	c, err := Load(base)
	require.NoError(t, err)
	assert.Equal(t, ":6000", c.ClientListenAddr)
	assert.Equal(t, ":6001", c.RegistrationListenAddr)
	assert.Equal(t, "/var/distfs/storage", c.Root)
	assert.Equal(t, "storage1.example.com", c.Host)
	assert.Equal(t, "naming.example.com:6001", c.NamingRegistrationAddr)
	assert.Equal(t, 20, c.ReplicationThreshold)
	assert.InDelta(t, 0.2, c.ReplicationFraction, 1e-9)
	assert.Equal(t, 20, c.MaxReplicas)
	assert.Equal(t, filepath.Join(base, "log"), c.LogFilePath())
}

func TestLoadRejectsUnknownKey(t *testing.T) {
	base := t.TempDir()
	require.NoError(t, ioutil.WriteFile(filepath.Join(base, "config"), []byte("bogus value\n"), 0666))
	_, err := Load(base)
	assert.Error(t, err)
}

func TestLoadRejectsMalformedLine(t *testing.T) {
	base := t.TempDir()
	require.NoError(t, ioutil.WriteFile(filepath.Join(base, "config"), []byte("no-separator-here\n"), 0666))
	_, err := Load(base)
	assert.Error(t, err)
}
