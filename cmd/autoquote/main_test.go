package main

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goliatone/go-autoquote/pkg/testsupport"
	"github.com/goliatone/go-autoquote/pkg/vpic"
)

func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&errOut)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetIn(nil)
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetArgs(nil)
	})
	err := rootCmd.Execute()
	return out.String(), err
}

func TestFlattenCommand(t *testing.T) {
	out, err := execute(t, `{"vehicles":[{"make":"Ford","year":2020}],"ok":true}`, "flatten")
	require.NoError(t, err)

	var flat map[string]string
	require.NoError(t, json.Unmarshal([]byte(out), &flat))
	assert.Equal(t, map[string]string{
		"vehicles0_make": "Ford",
		"vehicles0_year": "2020",
		"ok":             "true",
	}, flat)
}

func TestLookupCommands(t *testing.T) {
	t.Chdir(t.TempDir())
	fake := testsupport.NewFakeVPIC(t, testsupport.SampleCatalog())

	out, err := execute(t, "", "lookup", "makes", "--year", "2019", "--vpic-base-url", fake.URL(), "--log-level", "error")
	require.NoError(t, err)
	var makes []string
	require.NoError(t, json.Unmarshal([]byte(out), &makes))
	assert.Equal(t, []string{"FORD", "KIA"}, makes)

	out, err = execute(t, "", "lookup", "models", "--year", "2019", "--make", "kia", "--vpic-base-url", fake.URL())
	require.NoError(t, err)
	var models []string
	require.NoError(t, json.Unmarshal([]byte(out), &models))
	assert.Equal(t, []string{"Forte", "Soul"}, models)

	out, err = execute(t, "", "lookup", "decode", "1FTFW1E50LFA00001", "--vpic-base-url", fake.URL())
	require.NoError(t, err)
	var decoded vpic.Decoded
	require.NoError(t, json.Unmarshal([]byte(out), &decoded))
	assert.Equal(t, 2020, decoded.Year)
	assert.Equal(t, "F-150", decoded.Model)
}

func TestConfigInit(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)

	_, err := execute(t, "", "config", "init", "--addr", ":9999")
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(dir, "autoquote.yaml"))

	_, err = execute(t, "", "config", "init")
	assert.Error(t, err, "existing file is not overwritten")

	out, err := execute(t, "", "config", "show")
	require.NoError(t, err)
	assert.Contains(t, out, `":9999"`)
}
