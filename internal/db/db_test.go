package db

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDatabase(t *testing.T) *Database {
	t.Helper()

	database, err := New(DriverSQLite, filepath.Join(t.TempDir(), "chatd.db"))
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })
	return database
}

// stepClock returns a clock that advances by a second on every call.
func stepClock(start time.Time) func() time.Time {
	current := start
	return func() time.Time {
		current = current.Add(time.Second)
		return current
	}
}

func TestNewRejectsUnknownDriver(t *testing.T) {
	_, err := New("mysql", "whatever")
	assert.Error(t, err)
}

func TestPlaceholderRewrite(t *testing.T) {
	pg := &Database{dialect: dialects[DriverPostgres]}
	assert.Equal(t, "UPDATE sessions SET updated_at = $1 WHERE id = $2",
		pg.q("UPDATE sessions SET updated_at = ? WHERE id = ?"))

	lite := &Database{dialect: dialects[DriverSQLite]}
	assert.Equal(t, "SELECT 1 WHERE id = ?", lite.q("SELECT 1 WHERE id = ?"))
}

func TestSQLiteDSN(t *testing.T) {
	assert.Equal(t, "chat.db?_foreign_keys=on", sqliteDSN("chat.db"))
	assert.Equal(t, "file:chat.db?cache=shared&_foreign_keys=on", sqliteDSN("file:chat.db?cache=shared"))
	assert.Equal(t, "chat.db?_fk=1", sqliteDSN("chat.db?_fk=1"))
}

func TestSessionLifecycle(t *testing.T) {
	ctx := context.Background()
	database := newTestDatabase(t)

	created, err := database.CreateSession(ctx, "Hello")
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, created.CreatedAt, created.UpdatedAt)

	got, err := database.GetSession(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Hello", got.Name)
	assert.True(t, created.CreatedAt.Equal(got.CreatedAt))

	require.NoError(t, database.DeleteSession(ctx, created.ID))

	_, err = database.GetSession(ctx, created.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	assert.ErrorIs(t, database.DeleteSession(ctx, created.ID), ErrNotFound)
}

func TestSessionNamesNeedNotBeUnique(t *testing.T) {
	ctx := context.Background()
	database := newTestDatabase(t)

	a, err := database.CreateSession(ctx, "same")
	require.NoError(t, err)
	b, err := database.CreateSession(ctx, "same")
	require.NoError(t, err)
	assert.NotEqual(t, a.ID, b.ID)
}

func TestGetSessionUnknownID(t *testing.T) {
	database := newTestDatabase(t)

	_, err := database.GetSession(context.Background(), "does-not-exist")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestAppendMessageTouchesSession(t *testing.T) {
	ctx := context.Background()
	database := newTestDatabase(t)
	database.now = stepClock(time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC))

	first, err := database.CreateSession(ctx, "first")
	require.NoError(t, err)
	second, err := database.CreateSession(ctx, "second")
	require.NoError(t, err)

	sessions, err := database.ListSessions(ctx)
	require.NoError(t, err)
	require.Len(t, sessions, 2)
	assert.Equal(t, second.ID, sessions[0].ID)

	msg, err := database.AppendMessage(ctx, first.ID, "hi", "hello there")
	require.NoError(t, err)
	assert.NotZero(t, msg.ID)

	touched, err := database.GetSession(ctx, first.ID)
	require.NoError(t, err)
	assert.False(t, touched.UpdatedAt.Before(first.UpdatedAt))
	assert.True(t, touched.UpdatedAt.Equal(msg.CreatedAt))

	sessions, err = database.ListSessions(ctx)
	require.NoError(t, err)
	require.Len(t, sessions, 2)
	assert.Equal(t, first.ID, sessions[0].ID)
	assert.Equal(t, second.ID, sessions[1].ID)
}

func TestAppendMessageNeverRewindsUpdatedAt(t *testing.T) {
	ctx := context.Background()
	database := newTestDatabase(t)

	start := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	database.now = func() time.Time { return start }
	session, err := database.CreateSession(ctx, "clock")
	require.NoError(t, err)

	database.now = func() time.Time { return start.Add(-time.Hour) }
	_, err = database.AppendMessage(ctx, session.ID, "in", "out")
	require.NoError(t, err)

	got, err := database.GetSession(ctx, session.ID)
	require.NoError(t, err)
	assert.True(t, got.UpdatedAt.Equal(start))
}

func TestAppendMessageUnknownSession(t *testing.T) {
	database := newTestDatabase(t)

	_, err := database.AppendMessage(context.Background(), "missing", "in", "out")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListAndFirstMessage(t *testing.T) {
	ctx := context.Background()
	database := newTestDatabase(t)
	database.now = stepClock(time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC))

	session, err := database.CreateSession(ctx, "history")
	require.NoError(t, err)

	first, err := database.FirstMessage(ctx, session.ID)
	require.NoError(t, err)
	assert.Nil(t, first)

	for _, input := range []string{"one", "two", "three"} {
		_, err := database.AppendMessage(ctx, session.ID, input, "re: "+input)
		require.NoError(t, err)
	}

	messages, err := database.ListMessages(ctx, session.ID)
	require.NoError(t, err)
	require.Len(t, messages, 3)
	assert.Equal(t, "one", messages[0].Input)
	assert.Equal(t, "re: three", messages[2].Response)
	for i := 1; i < len(messages); i++ {
		assert.False(t, messages[i].CreatedAt.Before(messages[i-1].CreatedAt))
	}

	first, err = database.FirstMessage(ctx, session.ID)
	require.NoError(t, err)
	require.NotNil(t, first)
	assert.Equal(t, "one", first.Input)
}

func TestDeleteSessionRemovesMessages(t *testing.T) {
	ctx := context.Background()
	database := newTestDatabase(t)

	session, err := database.CreateSession(ctx, "doomed")
	require.NoError(t, err)
	_, err = database.AppendMessage(ctx, session.ID, "in", "out")
	require.NoError(t, err)

	require.NoError(t, database.DeleteSession(ctx, session.ID))

	messages, err := database.ListMessages(ctx, session.ID)
	require.NoError(t, err)
	assert.Empty(t, messages)

	sessions, err := database.ListSessions(ctx)
	require.NoError(t, err)
	assert.Empty(t, sessions)
}

func TestCreateSessionWithMessage(t *testing.T) {
	ctx := context.Background()
	database := newTestDatabase(t)

	session, msg, err := database.CreateSessionWithMessage(ctx, "Hello", "Hello", "Hi there")
	require.NoError(t, err)
	assert.Equal(t, session.ID, msg.SessionID)
	assert.True(t, session.UpdatedAt.Equal(msg.CreatedAt))

	messages, err := database.ListMessages(ctx, session.ID)
	require.NoError(t, err)
	require.Len(t, messages, 1)
	assert.Equal(t, "Hi there", messages[0].Response)
	assert.Equal(t, msg.ID, messages[0].ID)
}
