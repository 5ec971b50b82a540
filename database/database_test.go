package database_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/MoffettMcKenna/IniLiteORM/database"
	"github.com/MoffettMcKenna/IniLiteORM/ddl"
	"github.com/MoffettMcKenna/IniLiteORM/store"
	"github.com/MoffettMcKenna/IniLiteORM/table"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

type call struct {
	SQL  string
	Args []any
}

// fakeStore records statements and reports a canned schema.
type fakeStore struct {
	calls     []call
	schema    map[string]*ddl.TableDef
	schemaErr error
	execErr   error
}

func (s *fakeStore) Query(ctx context.Context, query string, args ...any) (store.Rows, error) {
	s.calls = append(s.calls, call{SQL: query, Args: args})
	return store.Rows{}, nil
}

func (s *fakeStore) Exec(ctx context.Context, query string, args ...any) (store.Result, error) {
	s.calls = append(s.calls, call{SQL: query, Args: args})
	if s.execErr != nil {
		return store.Result{}, s.execErr
	}
	return store.Result{LastInsertID: int64(len(s.calls)), RowsAffected: 1}, nil
}

func (s *fakeStore) ReadSchema(ctx context.Context) (map[string]*ddl.TableDef, error) {
	return s.schema, s.schemaErr
}

func schemaOf(stmts ...string) map[string]*ddl.TableDef {
	out := make(map[string]*ddl.TableDef, len(stmts))
	for _, s := range stmts {
		def := ddl.ParseCreate(s)
		out[def.Name] = def
	}
	return out
}

func declaration() database.Declaration {
	return database.Declaration{Tables: []database.TableDecl{
		{
			Name: "users",
			Seed: "seeds/users.csv",
			Columns: []table.ColumnDecl{
				{Name: "id", Decl: "INTEGER PRIMARY KEY"},
				{Name: "name", Decl: "TEXT NOT NULL"},
				{Name: "age", Decl: "INTEGER DEFAULT 0"},
			},
		},
		{
			Name: "addresses",
			Columns: []table.ColumnDecl{
				{Name: "id", Decl: "INTEGER PRIMARY KEY"},
				{Name: "user_id", Decl: "INTEGER REFERENCES users(id)"},
				{Name: "city", Decl: "TEXT"},
			},
		},
	}}
}

func seededFs(t *testing.T, content string) afero.Fs {
	t.Helper()
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "seeds/users.csv", []byte(content), 0o644))
	return fs
}

func TestOpen_CreatesAndSeeds(t *testing.T) {
	st := &fakeStore{}
	fs := seededFs(t, "name, age\nAnn,30\nBob,\n")

	db, err := database.Open(context.Background(), declaration(), st, database.WithFs(fs))
	require.NoError(t, err)

	users, ok := db.Table("users")
	require.True(t, ok)
	addresses, ok := db.Table("addresses")
	require.True(t, ok)

	require.Len(t, st.calls, 4)
	assert.Equal(t, users.BuildSQL(), st.calls[0].SQL)
	assert.Equal(t, call{SQL: "Insert into users(name, age) values (?, ?)", Args: []any{"Ann", int64(30)}}, st.calls[1])
	assert.Equal(t, call{SQL: "Insert into users(name, age) values (?, ?)", Args: []any{"Bob", int64(0)}}, st.calls[2])
	assert.Equal(t, addresses.BuildSQL(), st.calls[3].SQL)

	for _, s := range db.Status() {
		assert.True(t, s.Exists, s.Name)
		assert.True(t, s.Valid, s.Name)
		assert.Equal(t, "valid", s.State())
	}
}

func TestNew_HasNoSideEffects(t *testing.T) {
	st := &fakeStore{}
	db, err := database.New(context.Background(), declaration(), st, database.WithFs(afero.NewMemMapFs()))
	require.NoError(t, err)

	assert.Empty(t, st.calls)
	status := db.Status()
	require.Len(t, status, 2)
	assert.Equal(t, "users", status[0].Name)
	assert.Equal(t, "missing", status[0].State())
	assert.Equal(t, "addresses", status[1].Name)
	assert.Len(t, db.Tables(), 2)
	assert.Same(t, st, db.Store())
}

func TestReconcile_ExistingSchema(t *testing.T) {
	newStore := func() *fakeStore {
		return &fakeStore{schema: schemaOf(
			"CREATE TABLE users (id INTEGER PRIMARY KEY, name TEXT NOT NULL, age INTEGER DEFAULT 0)",
			"CREATE TABLE addresses (id INTEGER PRIMARY KEY, user_id INTEGER, city TEXT)",
			"CREATE TABLE legacy (x TEXT)",
		)}
	}

	t.Run("report only", func(t *testing.T) {
		st := newStore()
		var synced []string
		syncer := table.SyncerFunc(func(ctx context.Context, tb *table.Table, drift []table.Drift) error {
			synced = append(synced, tb.Name())
			return nil
		})

		db, err := database.New(context.Background(), declaration(), st, database.WithSyncer(syncer))
		require.NoError(t, err)

		status := db.Status()
		assert.Equal(t, "valid", status[0].State())
		assert.Equal(t, "drifted", status[1].State())
		require.Len(t, status[1].Drift, 1)
		assert.Equal(t, "user_id", status[1].Drift[0].Column)
		assert.Equal(t, []string{"legacy"}, db.Undeclared())

		require.NoError(t, db.Reconcile(context.Background()))
		assert.Empty(t, st.calls)
		assert.Empty(t, synced)
	})

	t.Run("update", func(t *testing.T) {
		st := newStore()
		var synced []string
		syncer := table.SyncerFunc(func(ctx context.Context, tb *table.Table, drift []table.Drift) error {
			synced = append(synced, tb.Name())
			return nil
		})

		_, err := database.Open(context.Background(), declaration(), st,
			database.WithUpdate(true), database.WithSyncer(syncer))
		require.NoError(t, err)
		assert.Equal(t, []string{"addresses"}, synced)
		assert.Empty(t, st.calls)
	})

	t.Run("nil syncer", func(t *testing.T) {
		_, err := database.Open(context.Background(), declaration(), newStore(),
			database.WithUpdate(true), database.WithSyncer(nil))
		assert.ErrorIs(t, err, table.ErrSyncNotImplemented)
	})
}

func TestNew_SchemaReading(t *testing.T) {
	t.Run("unsupported provider", func(t *testing.T) {
		st := &fakeStore{schemaErr: store.ErrUnsupportedProvider}
		db, err := database.New(context.Background(), declaration(), st)
		require.NoError(t, err)
		assert.Equal(t, "missing", db.Status()[0].State())
	})

	t.Run("read failure", func(t *testing.T) {
		st := &fakeStore{schemaErr: errors.New("disk on fire")}
		_, err := database.New(context.Background(), declaration(), st)
		assert.ErrorContains(t, err, "disk on fire")
	})

	t.Run("store without schema reader", func(t *testing.T) {
		fake := &fakeStore{schema: schemaOf("CREATE TABLE users (id INTEGER PRIMARY KEY)")}
		plain := struct{ store.Store }{fake}

		db, err := database.New(context.Background(), declaration(), plain)
		require.NoError(t, err)
		assert.Equal(t, "missing", db.Status()[0].State())
		assert.Empty(t, db.Undeclared())
	})
}

func TestNew_Errors(t *testing.T) {
	decl := declaration()
	decl.Tables = append(decl.Tables, decl.Tables[0])
	_, err := database.New(context.Background(), decl, &fakeStore{})
	assert.ErrorIs(t, err, database.ErrDuplicateTable)

	decl = database.Declaration{Tables: []database.TableDecl{{Name: "empty"}}}
	_, err = database.New(context.Background(), decl, &fakeStore{})
	assert.ErrorIs(t, err, table.ErrMalformedOperation)
}

func TestJoin(t *testing.T) {
	db, err := database.New(context.Background(), declaration(), &fakeStore{})
	require.NoError(t, err)

	view, err := db.Join("users", "addresses", "id", "user_id")
	require.NoError(t, err)
	assert.Equal(t, "users/addresses", view.Name())

	_, err = db.Join("users", "orders", "id", "user_id")
	assert.ErrorIs(t, err, database.ErrUnknownTable)
	_, err = db.Join("orders", "users", "id", "id")
	assert.ErrorIs(t, err, database.ErrUnknownTable)
}

func TestReconcile_Failures(t *testing.T) {
	tests := []struct {
		name    string
		seed    string
		noSeed  bool
		execErr error
		want    error
	}{
		{name: "unknown seed column", seed: "name,height\nAnn,170\n", want: table.ErrUnknownColumn},
		{name: "bad seed literal", seed: "name,age\nAnn,old\n", want: table.ErrInvalidValue},
		{name: "seed violates NOT NULL", seed: "name,age\n,30\n", want: table.ErrInvalidValue},
		{name: "missing seed file", noSeed: true, want: afero.ErrFileNotFound},
		{name: "create fails", seed: "name\n", execErr: errors.New("read-only"), want: table.ErrStoreExecution},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fs := afero.NewMemMapFs()
			if !tt.noSeed {
				fs = seededFs(t, tt.seed)
			}
			st := &fakeStore{execErr: tt.execErr}

			_, err := database.Open(context.Background(), declaration(), st, database.WithFs(fs))
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestReconcile_EmptySeed(t *testing.T) {
	st := &fakeStore{}
	_, err := database.Open(context.Background(), declaration(), st, database.WithFs(seededFs(t, "")))
	require.NoError(t, err)
	assert.Len(t, st.calls, 2)
}

// SQLiteSuite reconciles a declaration against a real SQLite file.
type SQLiteSuite struct {
	suite.Suite
	path string
	fs   afero.Fs
}

func TestSQLiteSuite(t *testing.T) {
	suite.Run(t, new(SQLiteSuite))
}

func (s *SQLiteSuite) SetupTest() {
	s.path = filepath.Join(s.T().TempDir(), "app.db")
	s.fs = afero.NewMemMapFs()
	s.Require().NoError(afero.WriteFile(s.fs, "seeds/users.csv", []byte("name,age\nAnn,30\nBob,41\n"), 0o644))
}

func (s *SQLiteSuite) open() (*database.Database, *store.SQLStore) {
	ctx := context.Background()
	st, err := store.Open(ctx, store.Config{Provider: "sqlite", URL: s.path, ConnectTimeout: 5 * time.Second})
	s.Require().NoError(err)
	db, err := database.Open(ctx, declaration(), st, database.WithFs(s.fs))
	s.Require().NoError(err)
	return db, st
}

func (s *SQLiteSuite) TestCreateSeedAndReopen() {
	ctx := context.Background()

	db, st := s.open()
	users, _ := db.Table("users")
	rows, err := users.Get(ctx, "name", "age")
	s.Require().NoError(err)
	s.Equal(store.Rows{{"Ann", int64(30)}, {"Bob", int64(41)}}, rows)
	s.Require().NoError(st.Close())

	db, st = s.open()
	defer st.Close()
	for _, status := range db.Status() {
		s.Equal("valid", status.State(), status.Name)
	}

	rows, err = st.Query(ctx, "Select count(*) From users")
	s.Require().NoError(err)
	s.Equal(store.Rows{{int64(2)}}, rows)
}

func (s *SQLiteSuite) TestJoinedRead() {
	ctx := context.Background()
	db, st := s.open()
	defer st.Close()

	addresses, _ := db.Table("addresses")
	_, err := addresses.Add(ctx, map[string]any{"user_id": 1, "city": "Paris"})
	s.Require().NoError(err)

	view, err := db.Join("users", "addresses", "id", "user_id")
	s.Require().NoError(err)
	s.Require().NoError(view.Filter("users.name", table.Equals, "Ann"))

	rows, err := view.Get(ctx, "name", "city")
	s.Require().NoError(err)
	s.Equal(store.Rows{{"Ann", "Paris"}}, rows)
}

func (s *SQLiteSuite) TestQuotedDefaults() {
	ctx := context.Background()
	decl := database.Declaration{Tables: []database.TableDecl{{
		Name: "codes",
		Columns: []table.ColumnDecl{
			{Name: "id", Decl: "INTEGER PRIMARY KEY"},
			{Name: "code", Decl: "TEXT DEFAULT '007'"},
			{Name: "stamp", Decl: "TEXT DEFAULT 'CURRENT_TIMESTAMP'"},
			{Name: "word", Decl: "TEXT NOT NULL DEFAULT 'NULL'"},
		},
	}}}

	st, err := store.Open(ctx, store.Config{Provider: "sqlite", URL: s.path, ConnectTimeout: 5 * time.Second})
	s.Require().NoError(err)
	defer st.Close()

	db, err := database.Open(ctx, decl, st)
	s.Require().NoError(err)
	codes, _ := db.Table("codes")

	_, err = codes.Add(ctx, map[string]any{"id": 1})
	s.Require().NoError(err)
	// The store fills the defaults itself when the insert bypasses the table.
	_, err = st.Exec(ctx, "Insert into codes(id) values (2)")
	s.Require().NoError(err)

	rows, err := codes.Get(ctx, "code", "stamp", "word")
	s.Require().NoError(err)
	s.Equal(store.Rows{
		{"007", "CURRENT_TIMESTAMP", "NULL"},
		{"007", "CURRENT_TIMESTAMP", "NULL"},
	}, rows)

	again, err := database.New(ctx, decl, st)
	s.Require().NoError(err)
	for _, status := range again.Status() {
		s.Equal("valid", status.State(), status.Name)
	}
}
