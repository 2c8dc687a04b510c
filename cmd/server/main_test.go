package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrateCommand(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "chatd.db")
	cfgPath := filepath.Join(dir, "chatd.yaml")

	cfg := "database:\n  driver: sqlite3\n  dsn: " + dbPath + "\nlog:\n  file: " + filepath.Join(dir, "chatd.log") + "\n"
	require.NoError(t, os.WriteFile(cfgPath, []byte(cfg), 0o600))

	root := newRootCmd()
	root.SetArgs([]string{"--config", cfgPath, "migrate"})
	require.NoError(t, root.Execute())

	_, err := os.Stat(dbPath)
	assert.NoError(t, err)
}

func TestRootCommandRejectsBadConfig(t *testing.T) {
	cfgPath := filepath.Join(t.TempDir(), "chatd.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("database:\n  driver: oracle\n"), 0o600))

	root := newRootCmd()
	root.SetArgs([]string{"--config", cfgPath, "migrate"})
	assert.Error(t, root.Execute())
}

func TestSubcommands(t *testing.T) {
	root := newRootCmd()

	var names []string
	for _, cmd := range root.Commands() {
		names = append(names, cmd.Name())
	}
	assert.Subset(t, names, []string{"serve", "migrate", "probe"})
}
