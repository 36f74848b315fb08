package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	require.NotNil(t, cmd)
	assert.Equal(t, "chefconnect", cmd.Use)
	assert.Contains(t, cmd.Long, "favorites")
}

func TestCommandPresence(t *testing.T) {
	cmd := NewRootCommand()
	commands := [][]string{
		{"recipes", "list"}, {"recipes", "show"}, {"recipes", "popular"}, {"recipes", "search"}, {"recipes", "categories"},
		{"favorites", "toggle"}, {"history", "clear"}, {"recent", "list"},
		{"shopping", "add-recipe"}, {"shopping", "clear-completed"},
		{"mealplan", "week"}, {"settings", "set"}, {"prefs", "reset"},
		{"auth", "login"}, {"auth", "validate"}, {"auth", "reset"},
		{"storage", "backup"}, {"storage", "restore"}, {"serve"},
	}

	for _, path := range commands {
		name := path[len(path)-1]
		t.Run(name, func(t *testing.T) {
			subCmd, _, err := cmd.Find(path)
			require.NoError(t, err, "command %v should exist", path)
			require.NotNil(t, subCmd)
			assert.Equal(t, name, subCmd.Name())
		})
	}
}

func TestGlobalFlags(t *testing.T) {
	cmd := NewRootCommand()

	verboseFlag := cmd.PersistentFlags().Lookup("verbose")
	require.NotNil(t, verboseFlag)
	assert.Equal(t, "v", verboseFlag.Shorthand)
	assert.Equal(t, "false", verboseFlag.DefValue)

	formatFlag := cmd.PersistentFlags().Lookup("format")
	require.NotNil(t, formatFlag)
	assert.Equal(t, "text", formatFlag.DefValue)

	configFlag := cmd.PersistentFlags().Lookup("config")
	require.NotNil(t, configFlag)
	assert.Equal(t, "c", configFlag.Shorthand)

	for _, name := range []string{"storage", "db", "api"} {
		f := cmd.PersistentFlags().Lookup(name)
		require.NotNil(t, f, name)
		assert.Equal(t, "", f.DefValue, name)
	}
}

func TestRecipesListFlags(t *testing.T) {
	cmd := NewRootCommand()
	listCmd, _, err := cmd.Find([]string{"recipes", "list"})
	require.NoError(t, err)

	sortFlag := listCmd.Flags().Lookup("sort")
	require.NotNil(t, sortFlag)
	assert.Equal(t, "popular", sortFlag.DefValue)

	pageFlag := listCmd.Flags().Lookup("page")
	require.NotNil(t, pageFlag)
	assert.Equal(t, "1", pageFlag.DefValue)

	popularCmd, _, err := cmd.Find([]string{"recipes", "popular"})
	require.NoError(t, err)
	assert.Equal(t, "6", popularCmd.Flags().Lookup("limit").DefValue)
}

func TestServeCommandFlags(t *testing.T) {
	cmd := NewRootCommand()
	serveCmd, _, err := cmd.Find([]string{"serve"})
	require.NoError(t, err)

	addrFlag := serveCmd.Flags().Lookup("addr")
	require.NotNil(t, addrFlag)
	assert.Equal(t, "", addrFlag.DefValue)
}

func TestInvalidFormat(t *testing.T) {
	buf := &bytes.Buffer{}
	cmd := NewRootCommand()
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs([]string{"--format", "xml", "recipes", "categories"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "invalid format")
}

func TestExecute_ExitCodes(t *testing.T) {
	t.Run("unknown flag", func(t *testing.T) {
		stdout, stderr := &bytes.Buffer{}, &bytes.Buffer{}
		code := Execute(context.Background(), []string{"recipes", "list", "--bogus"}, stdout, stderr)
		assert.Equal(t, ExitCommandError, code)
		assert.Contains(t, stderr.String(), "Error [E2]")
	})

	t.Run("json error envelope", func(t *testing.T) {
		stdout, stderr := &bytes.Buffer{}, &bytes.Buffer{}
		code := Execute(context.Background(), []string{"--format", "json", "--storage", "nope", "storage", "info"}, stdout, stderr)
		assert.Equal(t, ExitCommandError, code)

		var resp CLIResponse
		require.NoError(t, json.Unmarshal(stdout.Bytes(), &resp))
		assert.Equal(t, "error", resp.Status)
		require.NotNil(t, resp.Error)
		assert.Equal(t, "E2", resp.Error.Code)
		assert.Contains(t, resp.Error.Message, "invalid configuration")
	})
}
