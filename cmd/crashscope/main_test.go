package main

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/newthinker/crashscope/internal/config"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	resetFlags()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

// resetFlags restores flag variables between runs of the shared root command.
// A slice flag appends once it has been set, so it gets a fresh value.
func resetFlags() {
	cfgFile, debug = "", false
	analyzeSimple, analyzeFrom, analyzeJSON = false, "", false

	fresh := (&cobra.Command{}).Flags()
	fresh.StringSliceVarP(&analyzeSymbols, "symbol", "s", []string{"^GSPC"}, "")
	analyzeCmd.Flags().Lookup("symbol").Value = fresh.Lookup("symbol").Value
}

func TestVersion(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "crashscope dev")
}

func TestConfigInit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "crashscope.yaml")

	_, err := execute(t, "config", "init", path)
	require.NoError(t, err)

	cfg, err := config.Load(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())
	assert.Equal(t, config.Defaults().Provider.Name, cfg.Provider.Name)
	assert.Equal(t, "sp500", cfg.Label("^GSPC").ID)

	_, err = execute(t, "config", "init", path)
	assert.ErrorContains(t, err, "already exists")
}

func TestConfigInit_Stdout(t *testing.T) {
	out, err := execute(t, "config", "init")
	require.NoError(t, err)
	assert.Contains(t, out, "severity_threshold: -0.02")
}
