package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runCommand(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	root := newRootCommand()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestCountTokensCommand(t *testing.T) {
	out, err := runCommand(t, "", "count-tokens", "hello world")
	require.NoError(t, err)
	assert.Equal(t, "2\n", out)
}

func TestCountTokensCommand_Stdin(t *testing.T) {
	out, err := runCommand(t, "abcdefgh\n", "count-tokens", "--model", "unknown-model")
	require.NoError(t, err)
	assert.Equal(t, "2\n", out)
}

func TestShowCommand_RequiresUser(t *testing.T) {
	_, err := runCommand(t, "", "show")
	assert.Error(t, err)
}
