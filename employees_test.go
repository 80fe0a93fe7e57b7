package main

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tonimelisma/sharefile-go/internal/journal"
	"github.com/tonimelisma/sharefile-go/internal/sharefile"
)

// history returns the journal as decoded by `history --json`.
func (e *cliEnv) history(t *testing.T, args ...string) []journal.Entry {
	t.Helper()

	out := e.mustRun(t, append([]string{"--json", "history"}, args...)...)

	var entries []journal.Entry
	require.NoError(t, json.Unmarshal([]byte(out), &entries))

	return entries
}

func TestEmployeesList_Table(t *testing.T) {
	env := newCLIEnv(t)

	out := env.mustRun(t, "employees", "list")

	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	require.Len(t, lines, 3)
	assert.True(t, strings.HasPrefix(lines[0], "ID"))
	assert.Contains(t, lines[1], "ada@acme.com")
	assert.Contains(t, lines[2], "Builder")
}

func TestEmployeesList_JSON(t *testing.T) {
	env := newCLIEnv(t)

	out := env.mustRun(t, "--json", "employees", "list", "--expand", "Children")

	var list sharefile.EmployeeList
	require.NoError(t, json.Unmarshal([]byte(out), &list))
	assert.Equal(t, 2, list.Count)
	require.Len(t, list.Value, 2)
	assert.Equal(t, "u1", list.Value[0].ID)
}

func TestEmployeesGet_BareIDGetsDomain(t *testing.T) {
	env := newCLIEnv(t)

	out := env.mustRun(t, "employees", "get", "ada")

	assert.Contains(t, out, "ID:      u1")
	assert.Contains(t, out, "Email:   ada@acme.com")
}

func TestEmployeesGet_JSONIsRawValue(t *testing.T) {
	env := newCLIEnv(t)

	out := env.mustRun(t, "--json", "employees", "get", "ada@acme.com")

	var u sharefile.User
	require.NoError(t, json.Unmarshal([]byte(out), &u))
	assert.Equal(t, "u1", u.ID)
}

func TestEmployeesGet_NotFound(t *testing.T) {
	env := newCLIEnv(t)

	_, err := env.run(t, "employees", "get", "nobody")
	require.Error(t, err)

	var envErr *sharefile.EnvelopeError
	require.True(t, errors.As(err, &envErr))
	assert.Equal(t, "user not found", envErr.Message)
}

func TestEmployeesCreate_Journaled(t *testing.T) {
	env := newCLIEnv(t)

	out := env.mustRun(t, "employees", "create", "new@acme.com", "--first", "New", "--last", "Hire")
	assert.Contains(t, out, "ID:      u42")
	assert.True(t, env.fake.called("users/create"))

	entries := env.history(t)
	require.Len(t, entries, 1)
	assert.Equal(t, opEmployeeCreate, entries[0].Operation)
	assert.Equal(t, "new@acme.com", entries[0].Target)
	assert.Equal(t, journal.OutcomeOK, entries[0].Outcome)
}

func TestEmployeesCreate_RequiresNames(t *testing.T) {
	env := newCLIEnv(t)

	_, err := env.run(t, "employees", "create", "new@acme.com", "--first", "New")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "last")
}

func TestEmployeesDelete_Existing(t *testing.T) {
	env := newCLIEnv(t)

	env.mustRun(t, "employees", "delete", "ada", "--reassign-to", "hold")

	assert.True(t, env.fake.called("users/delete"))
	assert.False(t, env.fake.called("users/deletef"))

	entries := env.history(t, "--operation", opEmployeeDelete)
	require.Len(t, entries, 1)
	assert.Equal(t, journal.OutcomeOK, entries[0].Outcome)
}

func TestEmployeesDelete_Partial(t *testing.T) {
	env := newCLIEnv(t)

	env.mustRun(t, "employees", "delete", "ada", "--partial")

	assert.True(t, env.fake.called("users/deletef"))
}

func TestEmployeesDelete_AbsentTargetSucceeds(t *testing.T) {
	env := newCLIEnv(t)

	env.mustRun(t, "employees", "delete", "ghost")

	assert.False(t, env.fake.called("users/delete"))
}

func TestEmployeesDelete_MissingHoldingAccount(t *testing.T) {
	env := newCLIEnv(t)

	_, err := env.run(t, "employees", "delete", "ada", "--reassign-to", "ghost")
	require.ErrorIs(t, err, sharefile.ErrHoldingAccountNotFound)
	assert.False(t, env.fake.called("users/delete"))

	entries := env.history(t)
	require.Len(t, entries, 1)
	assert.Equal(t, journal.OutcomeFailed, entries[0].Outcome)
	assert.NotEmpty(t, entries[0].Detail)
}

func TestEmployeesDisable_Journaled(t *testing.T) {
	env := newCLIEnv(t)

	env.mustRun(t, "employees", "disable", "u1")

	assert.True(t, env.fake.called("users/edit"))

	entries := env.history(t)
	require.Len(t, entries, 1)
	assert.Equal(t, opEmployeeDisable, entries[0].Operation)
}

func TestEmployees_NoJournal(t *testing.T) {
	env := newCLIEnv(t)

	env.mustRun(t, "--no-journal", "employees", "create", "new@acme.com", "--first", "N", "--last", "H")

	assert.Empty(t, env.history(t))
}
