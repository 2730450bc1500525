package cache

import (
	"context"
	"database/sql"
	"testing"

	"github.com/dmitrijs2005/gophdrive/internal/client/migrations"
	"github.com/pressly/goose/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "modernc.org/sqlite"
)

func setupDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })

	goose.SetBaseFS(migrations.Migrations)
	require.NoError(t, goose.SetDialect("sqlite3"))
	require.NoError(t, goose.UpContext(context.Background(), db, "."))
	return db
}

// repositoryContract runs the behaviour every backend must share.
func repositoryContract(t *testing.T, r Repository) {
	ctx := context.Background()

	v, err := r.Get(ctx, DomainNotes, "missing")
	require.NoError(t, err)
	assert.Nil(t, v, "miss must be (nil, nil)")

	require.NoError(t, r.Set(ctx, DomainNotes, "noteContent:a", []byte("one")))
	require.NoError(t, r.Set(ctx, DomainNotes, "noteContent:b", []byte("two")))
	require.NoError(t, r.Set(ctx, DomainChats, "noteContent:a", []byte("other domain")))

	v, err = r.Get(ctx, DomainNotes, "noteContent:a")
	require.NoError(t, err)
	assert.Equal(t, []byte("one"), v)

	require.NoError(t, r.Set(ctx, DomainNotes, "noteContent:a", []byte("uno")))
	v, err = r.Get(ctx, DomainNotes, "noteContent:a")
	require.NoError(t, err)
	assert.Equal(t, []byte("uno"), v)

	keys, err := r.Keys(ctx, DomainNotes)
	require.NoError(t, err)
	assert.Equal(t, []string{"noteContent:a", "noteContent:b"}, keys)

	require.NoError(t, r.Remove(ctx, DomainNotes, "noteContent:a", "never-set"))
	v, err = r.Get(ctx, DomainNotes, "noteContent:a")
	require.NoError(t, err)
	assert.Nil(t, v)

	require.NoError(t, r.Clear(ctx, DomainNotes))
	keys, err = r.Keys(ctx, DomainNotes)
	require.NoError(t, err)
	assert.Empty(t, keys)

	v, err = r.Get(ctx, DomainChats, "noteContent:a")
	require.NoError(t, err)
	assert.Equal(t, []byte("other domain"), v, "clear must not cross domains")
}

func TestSQLiteRepository_Contract(t *testing.T) {
	repositoryContract(t, NewSQLiteRepository(setupDB(t)))
}

func TestMemoryRepository_Contract(t *testing.T) {
	repositoryContract(t, NewMemoryRepository())
}

func TestSQLiteRepository_ClosedDB(t *testing.T) {
	db := setupDB(t)
	r := NewSQLiteRepository(db)
	require.NoError(t, db.Close())

	_, err := r.Get(context.Background(), DomainNotes, "k")
	require.Error(t, err)
	require.Error(t, r.Set(context.Background(), DomainNotes, "k", []byte("v")))
	require.Error(t, r.Remove(context.Background(), DomainNotes, "k"))
}

func TestMemoryRepository_ReturnsCopies(t *testing.T) {
	r := NewMemoryRepository()
	ctx := context.Background()
	in := []byte("abc")
	require.NoError(t, r.Set(ctx, DomainNotes, "k", in))
	in[0] = 'x'

	out, err := r.Get(ctx, DomainNotes, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("abc"), out)
	out[0] = 'y'

	again, _ := r.Get(ctx, DomainNotes, "k")
	assert.Equal(t, []byte("abc"), again)
}
