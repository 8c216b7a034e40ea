package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	merchantHex = "0x00000000000000000000000000000000000000ee"
	aliceHex    = "0x00000000000000000000000000000000000000a1"
	bobHex      = "0x00000000000000000000000000000000000000b0"
)

// run executes subsctl with args against db and returns stdout.
func run(t *testing.T, db string, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(append([]string{"--db", db}, args...))
	err := root.Execute()
	return out.String(), err
}

func mustRun(t *testing.T, db string, args ...string) string {
	t.Helper()
	out, err := run(t, db, args...)
	require.NoError(t, err, out)
	return out
}

func TestVersionCmd(t *testing.T) {
	old := Version
	defer func() { Version = old }()
	Version = "1.2.3"

	var out bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetArgs([]string{"version"})
	require.NoError(t, root.Execute())
	assert.Contains(t, out.String(), "subsctl 1.2.3")
}

func TestCollectionWorkflow(t *testing.T) {
	db := filepath.Join(t.TempDir(), "subs.db")

	id := strings.TrimSpace(mustRun(t, db,
		"collection", "create", "gym",
		"--as", merchantHex,
		"--price", "10", "--period", "3600",
		"--price", "25", "--period", "7200",
		"--capacity", "2",
	))
	require.True(t, strings.HasPrefix(id, "col_"), id)

	out := mustRun(t, db, "collection", "list")
	assert.Contains(t, out, id)
	assert.Contains(t, out, "gym")

	out = mustRun(t, db, "mint", id, "0", "--as", aliceHex, "--pay", "10")
	assert.Contains(t, out, "subscribed "+aliceHex+" to tier 0")

	_, err := run(t, db, "mint", id, "1", "--as", bobHex, "--pay", "10")
	assert.ErrorContains(t, err, "incorrect payment")

	out = mustRun(t, db, "renew", id, "0", "--as", aliceHex, "--pay", "10 wei")
	assert.Contains(t, out, "renewed tier 0")

	_, err = run(t, db, "end", id, "0", aliceHex, "--as", bobHex)
	assert.ErrorContains(t, err, "not expired")

	mustRun(t, db, "approve", id, "0", bobHex, "--as", aliceHex)
	out = mustRun(t, db, "transfer", id, "0", bobHex, "--as", bobHex, "--from", aliceHex)
	assert.Contains(t, out, "transferred tier 0")

	out = mustRun(t, db, "collection", "show", id)
	assert.Contains(t, out, bobHex)
	assert.Contains(t, out, "20 wei")

	out = mustRun(t, db, "merchant", "withdraw", id, "--as", merchantHex)
	assert.Contains(t, out, "withdrew 20 wei")

	_, err = run(t, db, "merchant", "withdraw", id, "--as", aliceHex)
	assert.ErrorContains(t, err, "unauthorized")

	out = mustRun(t, db, "tiers", "add", id, "--as", merchantHex, "--price", "5", "--period", "60")
	assert.Contains(t, out, "added tier 2")
	mustRun(t, db, "tiers", "disable", id, "2", "--as", merchantHex)
	_, err = run(t, db, "mint", id, "2", "--as", aliceHex, "--pay", "5")
	assert.ErrorContains(t, err, "tier unavailable")

	_, err = run(t, db, "collection", "delete", id, "--as", merchantHex)
	assert.ErrorContains(t, err, "active subscriptions")
}

func TestMerchantSaleCmds(t *testing.T) {
	db := filepath.Join(t.TempDir(), "subs.db")

	id := strings.TrimSpace(mustRun(t, db,
		"collection", "create", "club", "--merchant", merchantHex, "--price", "1", "--period", "60",
	))

	_, err := run(t, db, "merchant", "buy", id, "--as", aliceHex, "--pay", "100")
	assert.ErrorContains(t, err, "not for sale")

	mustRun(t, db, "merchant", "price", id, "100", "--as", merchantHex)
	mustRun(t, db, "merchant", "disable-sale", id, "--as", merchantHex)
	mustRun(t, db, "merchant", "price", id, "100", "--as", merchantHex)

	out := mustRun(t, db, "merchant", "buy", id, "--as", aliceHex, "--pay", "100")
	assert.Contains(t, out, "merchant is now "+aliceHex)

	out = mustRun(t, db, "merchant", "transfer", id, bobHex, "--as", aliceHex)
	assert.Contains(t, out, "merchant is now "+bobHex)

	_, err = run(t, db, "collection", "delete", id, "--as", aliceHex)
	assert.ErrorContains(t, err, "not the merchant")

	out = mustRun(t, db, "collection", "delete", id, "--as", bobHex)
	assert.Contains(t, out, "deleted "+id)

	out = mustRun(t, db, "collection", "list")
	assert.NotContains(t, out, id)
}

func TestConfigValidation(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "subsctl.yaml")
	require.NoError(t, os.WriteFile(path, []byte("currency: \"\"\nlog:\n  level: loud\n"), 0o600))

	_, err := run(t, filepath.Join(dir, "subs.db"), "--config", path, "collection", "list")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid config")
}

func TestConfigFromEnv(t *testing.T) {
	t.Setenv("SUBSCTL_CURRENCY", "gwei")
	db := filepath.Join(t.TempDir(), "subs.db")

	id := strings.TrimSpace(mustRun(t, db,
		"collection", "create", "env", "--as", merchantHex, "--price", "3", "--period", "60",
	))
	out := mustRun(t, db, "collection", "show", id)
	assert.Contains(t, out, "3 gwei")
}

func TestCallerRequired(t *testing.T) {
	db := filepath.Join(t.TempDir(), "subs.db")
	_, err := run(t, db, "collection", "create", "x", "--price", "1", "--period", "1")
	assert.ErrorContains(t, err, "--merchant or --as is required")
}
