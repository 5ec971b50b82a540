package table_test

import (
	"context"
	"errors"
	"testing"

	"github.com/MoffettMcKenna/IniLiteORM/column"
	"github.com/MoffettMcKenna/IniLiteORM/ddl"
	"github.com/MoffettMcKenna/IniLiteORM/store"
	"github.com/MoffettMcKenna/IniLiteORM/table"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// call is one statement seen by the recording store.
type call struct {
	SQL  string
	Args []any
}

// recordingStore remembers every statement and answers with canned results.
type recordingStore struct {
	calls    []call
	rows     store.Rows
	err      error
	lastID   int64
	affected int64
}

func (s *recordingStore) Query(ctx context.Context, query string, args ...any) (store.Rows, error) {
	s.calls = append(s.calls, call{SQL: query, Args: args})
	if s.err != nil {
		return nil, s.err
	}
	return s.rows, nil
}

func (s *recordingStore) Exec(ctx context.Context, query string, args ...any) (store.Result, error) {
	s.calls = append(s.calls, call{SQL: query, Args: args})
	if s.err != nil {
		return store.Result{}, s.err
	}
	return store.Result{LastInsertID: s.lastID, RowsAffected: s.affected}, nil
}

func (s *recordingStore) last() call {
	if len(s.calls) == 0 {
		return call{}
	}
	return s.calls[len(s.calls)-1]
}

var usersDecl = []table.ColumnDecl{
	{Name: "id", Decl: "INTEGER PRIMARY KEY"},
	{Name: "name", Decl: "TEXT NOT NULL"},
	{Name: "age", Decl: "INTEGER DEFAULT 0"},
}

func newUsers(t *testing.T, st store.Store, existing *ddl.TableDef, opts ...table.Option) *table.Table {
	t.Helper()
	users, err := table.New("users", usersDecl, st, existing, opts...)
	require.NoError(t, err)
	return users
}

func TestNew_Errors(t *testing.T) {
	st := &recordingStore{}

	_, err := table.New("", usersDecl, st, nil)
	assert.ErrorIs(t, err, table.ErrMalformedOperation)

	_, err = table.New("users", nil, st, nil)
	assert.ErrorIs(t, err, table.ErrMalformedOperation)

	_, err = table.New("users", []table.ColumnDecl{{Name: "a", Decl: "TEXT"}, {Name: "a", Decl: "INT"}}, st, nil)
	assert.ErrorIs(t, err, column.ErrInvalidDeclaration)

	_, err = table.New("users", []table.ColumnDecl{{Name: "a", Decl: "INTEGER DEFAULT 'x'"}}, st, nil)
	assert.ErrorIs(t, err, table.ErrInvalidValue)

	assert.Empty(t, st.calls)
}

func TestTable_Accessors(t *testing.T) {
	users := newUsers(t, &recordingStore{}, nil)

	assert.Equal(t, "users", users.Name())
	assert.Equal(t, []string{"id", "name", "age"}, users.ColumnNames())
	assert.Equal(t, []string{"id"}, users.PrimaryKeys())
	assert.Len(t, users.Columns(), 3)

	col, ok := users.Column("age")
	require.True(t, ok)
	assert.Equal(t, column.Integer, col.Type())

	_, ok = users.Column("ghost")
	assert.False(t, ok)
}

func TestTable_NoExistingSchema(t *testing.T) {
	ctx := context.Background()
	st := &recordingStore{}
	users := newUsers(t, st, nil)

	assert.False(t, users.Exists())
	assert.False(t, users.IsValid())
	assert.ErrorIs(t, users.Sync(ctx), table.ErrIllegalTransition)

	require.NoError(t, users.Create(ctx))
	assert.Equal(t, call{SQL: "Create Table users (id INTEGER PRIMARY KEY, name TEXT NOT NULL, age INTEGER DEFAULT 0);"}, st.last())
	assert.True(t, users.Exists())
	assert.True(t, users.IsValid())

	assert.ErrorIs(t, users.Create(ctx), table.ErrIllegalTransition)
	assert.Len(t, st.calls, 1)

	// An unparseable definition is no trustworthy schema either
	users = newUsers(t, st, &ddl.TableDef{Name: "users"})
	assert.False(t, users.Exists())
	assert.False(t, users.IsValid())
}

func TestTable_CreateFailure(t *testing.T) {
	st := &recordingStore{err: errors.New("disk full")}
	users := newUsers(t, st, nil)

	err := users.Create(context.Background())
	require.ErrorIs(t, err, table.ErrStoreExecution)
	assert.False(t, users.Exists())
}

func TestTable_MatchingSchemaIsValid(t *testing.T) {
	ctx := context.Background()
	existing := ddl.ParseCreate(`CREATE TABLE users (age INTEGER DEFAULT 0, id integer primary key, name TEXT NOT NULL)`)
	users := newUsers(t, &recordingStore{}, existing)

	assert.True(t, users.Exists())
	assert.True(t, users.IsValid())
	assert.Empty(t, users.Drift())
	assert.ErrorIs(t, users.Create(ctx), table.ErrIllegalTransition)
	assert.ErrorIs(t, users.Sync(ctx), table.ErrIllegalTransition)
}

func TestTable_RoundTripIsValid(t *testing.T) {
	decls := []table.ColumnDecl{
		{Name: "id", Decl: "INTEGER PRIMARY KEY AUTOINCREMENT"},
		{Name: "owner", Decl: "INTEGER NOT NULL REFERENCES users(id)"},
		{Name: "title", Decl: "VARCHAR(80) DEFAULT 'untitled'"},
		{Name: "price", Decl: "DECIMAL(10,2) CHECK (price >= 0)"},
		{Name: "created", Decl: "TEXT DEFAULT CURRENT_TIMESTAMP"},
		{Name: "payload", Decl: ""},
	}
	books, err := table.New("books", decls, &recordingStore{}, nil)
	require.NoError(t, err)

	existing := ddl.ParseCreate(books.BuildSQL())
	require.False(t, existing.Empty())
	assert.Equal(t, books.ColumnNames(), existing.Names())

	again, err := table.New("books", decls, &recordingStore{}, existing)
	require.NoError(t, err)
	assert.True(t, again.IsValid(), "drift: %v", again.Drift())
	assert.True(t, books.Equal(again))
}

func TestTable_Drift(t *testing.T) {
	ctx := context.Background()
	existing := ddl.ParseCreate(`CREATE TABLE users (id INTEGER PRIMARY KEY, name TEXT, email TEXT)`)

	var seen []table.Drift
	recorder := table.SyncerFunc(func(ctx context.Context, tb *table.Table, drift []table.Drift) error {
		seen = drift
		return nil
	})
	users := newUsers(t, &recordingStore{}, existing, table.WithSyncer(recorder))

	assert.True(t, users.Exists())
	assert.False(t, users.IsValid())

	drift := users.Drift()
	require.Len(t, drift, 3)
	assert.Equal(t, table.DriftChanged, drift[0].Kind)
	assert.Equal(t, "name", drift[0].Column)
	assert.Equal(t, []string{"TEXT", "NOT", "NULL"}, drift[0].Declared)
	assert.Equal(t, []string{"TEXT"}, drift[0].Existing)
	assert.Equal(t, table.DriftMissing, drift[1].Kind)
	assert.Equal(t, "age", drift[1].Column)
	assert.Equal(t, table.DriftExtra, drift[2].Kind)
	assert.Equal(t, "email", drift[2].Column)
	assert.Contains(t, drift[2].String(), "not declared")

	assert.ErrorIs(t, users.Create(ctx), table.ErrIllegalTransition)
	require.NoError(t, users.Sync(ctx))
	assert.Equal(t, drift, seen)
	assert.False(t, users.IsValid(), "reporting does not repair")

	users = newUsers(t, &recordingStore{}, existing)
	assert.NoError(t, users.Sync(ctx), "default syncer only reports")

	users = newUsers(t, &recordingStore{}, existing, table.WithSyncer(nil))
	assert.ErrorIs(t, users.Sync(ctx), table.ErrSyncNotImplemented)
}

func TestTable_DriftInStringLiterals(t *testing.T) {
	decls := []table.ColumnDecl{
		{Name: "id", Decl: "INTEGER PRIMARY KEY"},
		{Name: "k", Decl: "TEXT CHECK (k <> 'A')"},
	}

	existing := ddl.ParseCreate(`CREATE TABLE kinds (id INTEGER PRIMARY KEY, k TEXT CHECK (k <> 'a'))`)
	kinds, err := table.New("kinds", decls, &recordingStore{}, existing)
	require.NoError(t, err)
	assert.False(t, kinds.IsValid())
	require.Len(t, kinds.Drift(), 1)
	assert.Equal(t, table.DriftChanged, kinds.Drift()[0].Kind)
	assert.Equal(t, "k", kinds.Drift()[0].Column)

	existing = ddl.ParseCreate(`create table kinds (id integer primary key, k text check (K <> 'A'))`)
	kinds, err = table.New("kinds", decls, &recordingStore{}, existing)
	require.NoError(t, err)
	assert.True(t, kinds.IsValid(), "drift: %v", kinds.Drift())
}

func TestTable_QuotedDefaultsRoundTrip(t *testing.T) {
	decls := []table.ColumnDecl{
		{Name: "id", Decl: "INTEGER PRIMARY KEY"},
		{Name: "code", Decl: "TEXT DEFAULT '007'"},
		{Name: "stamp", Decl: "TEXT DEFAULT 'CURRENT_TIMESTAMP'"},
		{Name: "word", Decl: "TEXT NOT NULL DEFAULT 'NULL'"},
	}
	st := &recordingStore{}
	codes, err := table.New("codes", decls, st, nil)
	require.NoError(t, err)

	sql := codes.BuildSQL()
	assert.Contains(t, sql, "code TEXT DEFAULT '007'")
	assert.Contains(t, sql, "stamp TEXT DEFAULT 'CURRENT_TIMESTAMP'")
	assert.Contains(t, sql, "word TEXT NOT NULL DEFAULT 'NULL'")

	_, err = codes.Add(context.Background(), map[string]any{"id": 1})
	require.NoError(t, err)
	assert.Equal(t, call{
		SQL:  "Insert into codes(id, code, stamp, word) values (?, ?, ?, ?)",
		Args: []any{1, "007", "CURRENT_TIMESTAMP", "NULL"},
	}, st.last())

	again, err := table.New("codes", decls, &recordingStore{}, ddl.ParseCreate(sql))
	require.NoError(t, err)
	assert.True(t, again.IsValid(), "drift: %v", again.Drift())
}

func TestAdd_FillsDefaults(t *testing.T) {
	st := &recordingStore{lastID: 1}
	users := newUsers(t, st, nil)

	id, err := users.Add(context.Background(), map[string]any{"name": "Ann"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), id)
	assert.Equal(t, call{SQL: "Insert into users(name, age) values (?, ?)", Args: []any{"Ann", int64(0)}}, st.last())
}

func TestAdd_ExplicitPrimaryKey(t *testing.T) {
	st := &recordingStore{lastID: 7}
	users := newUsers(t, st, nil)

	id, err := users.Add(context.Background(), map[string]any{"age": 40, "users.name": "Bob", "id": 7})
	require.NoError(t, err)
	assert.Equal(t, int64(7), id)
	assert.Equal(t, call{SQL: "Insert into users(id, name, age) values (?, ?, ?)", Args: []any{7, "Bob", 40}}, st.last())
}

func TestAdd_StoreDefaults(t *testing.T) {
	st := &recordingStore{}
	events, err := table.New("events", []table.ColumnDecl{
		{Name: "id", Decl: "INTEGER PRIMARY KEY"},
		{Name: "created", Decl: "TEXT DEFAULT CURRENT_TIMESTAMP"},
		{Name: "note", Decl: "TEXT"},
	}, st, nil)
	require.NoError(t, err)

	_, err = events.Add(context.Background(), map[string]any{})
	require.NoError(t, err)
	assert.Equal(t, call{SQL: "Insert into events(note) values (?)", Args: []any{nil}}, st.last())

	only, err := table.New("only", []table.ColumnDecl{{Name: "id", Decl: "INTEGER PRIMARY KEY"}}, st, nil)
	require.NoError(t, err)
	_, err = only.Add(context.Background(), nil)
	assert.ErrorIs(t, err, table.ErrMalformedOperation)
}

func TestAdd_Rejections(t *testing.T) {
	tests := []struct {
		name   string
		values map[string]any
		err    error
	}{
		{name: "unknown column", values: map[string]any{"name": "Ann", "ghost": 1}, err: table.ErrUnknownColumn},
		{name: "wrong type", values: map[string]any{"name": 5}, err: table.ErrInvalidValue},
		{name: "null in not null", values: map[string]any{"name": nil}, err: table.ErrInvalidValue},
		{name: "missing not null", values: map[string]any{"age": 3}, err: table.ErrInvalidValue},
		{name: "same column twice", values: map[string]any{"name": "a", "users.name": "b"}, err: table.ErrMalformedOperation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st := &recordingStore{}
			users := newUsers(t, st, nil)

			_, err := users.Add(context.Background(), tt.values)
			assert.ErrorIs(t, err, tt.err)
			assert.Empty(t, st.calls, "nothing may reach the store")
		})
	}
}

func TestGet_FilterChain(t *testing.T) {
	st := &recordingStore{rows: store.Rows{{"Ann"}}}
	users := newUsers(t, st, nil)

	require.NoError(t, users.Filter("age", table.GreaterThan, 18))
	rows, err := users.Get(context.Background(), "name")
	require.NoError(t, err)
	assert.Equal(t, store.Rows{{"Ann"}}, rows)
	assert.Equal(t, call{SQL: "Select name From users Where age > ?", Args: []any{18}}, st.last())

	require.NoError(t, users.Filter("name", table.NotEquals, "Bob"))
	_, err = users.Get(context.Background(), "id", "name")
	require.NoError(t, err)
	assert.Equal(t, call{SQL: "Select id, name From users Where age > ? And name != ?", Args: []any{18, "Bob"}}, st.last())
	assert.Len(t, users.Filters(), 2)
}

func TestGet_ClearFilters(t *testing.T) {
	ctx := context.Background()
	st := &recordingStore{rows: store.Rows{{"Ann"}, {"Bob"}}}
	users := newUsers(t, st, nil)

	unfiltered, err := users.Get(ctx, "name")
	require.NoError(t, err)
	plain := st.last()

	require.NoError(t, users.Filter("age", table.LessOrEqual, 30))
	users.ClearFilters()
	assert.Empty(t, users.Filters())

	rows, err := users.Get(ctx, "name")
	require.NoError(t, err)
	assert.Equal(t, plain, st.last())
	assert.Equal(t, unfiltered, rows)
}

func TestGet_UnknownColumn(t *testing.T) {
	st := &recordingStore{}
	users := newUsers(t, st, nil)

	_, err := users.Get(context.Background(), "id", "ghost")
	require.ErrorIs(t, err, table.ErrUnknownColumn)

	var colErr *table.ColumnError
	require.ErrorAs(t, err, &colErr)
	assert.Equal(t, "users", colErr.Table)
	assert.Equal(t, "ghost", colErr.Column)
	assert.Empty(t, st.calls)

	_, err = users.Get(context.Background())
	assert.ErrorIs(t, err, table.ErrMalformedOperation)
	assert.Empty(t, st.calls)
}

func TestGetAll(t *testing.T) {
	st := &recordingStore{}
	users := newUsers(t, st, nil)

	_, err := users.GetAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Select id, name, age From users", st.last().SQL)
}

func TestFilter_Rejections(t *testing.T) {
	st := &recordingStore{}
	tb, err := table.New("files", []table.ColumnDecl{
		{Name: "id", Decl: "INTEGER PRIMARY KEY"},
		{Name: "data", Decl: "BLOB"},
		{Name: "flag", Decl: "BOOLEAN"},
		{Name: "size", Decl: "TINYINT"},
	}, st, nil)
	require.NoError(t, err)

	tests := []struct {
		name  string
		col   string
		op    table.Operator
		value any
		err   error
	}{
		{name: "ordering on blob", col: "data", op: table.GreaterThan, value: []byte{1}, err: table.ErrUnsupportedOperator},
		{name: "ordering on boolean", col: "flag", op: table.LessThan, value: true, err: table.ErrUnsupportedOperator},
		{name: "noop", col: "size", op: table.Noop, value: 1, err: table.ErrUnsupportedOperator},
		{name: "ordering against nil", col: "size", op: table.GreaterThan, value: nil, err: table.ErrUnsupportedOperator},
		{name: "value out of range", col: "size", op: table.Equals, value: 1000, err: table.ErrInvalidValue},
		{name: "unknown column", col: "ghost", op: table.Equals, value: 1, err: table.ErrUnknownColumn},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tb.Filter(tt.col, tt.op, tt.value)
			assert.ErrorIs(t, err, tt.err)
			assert.Empty(t, tb.Filters())
		})
	}

	_, err = tb.Get(context.Background(), "id")
	require.NoError(t, err)
	assert.Equal(t, call{SQL: "Select id From files"}, st.last())
}

func TestFilter_Null(t *testing.T) {
	st := &recordingStore{}
	users := newUsers(t, st, nil)

	require.NoError(t, users.Filter("age", table.Equals, nil))
	require.NoError(t, users.Filter("name", table.NotEquals, nil))
	require.NoError(t, users.Filter("id", table.GreaterThan, 3))

	_, err := users.Get(context.Background(), "name")
	require.NoError(t, err)
	assert.Equal(t, call{SQL: "Select name From users Where age Is Null And name Is Not Null And id > ?", Args: []any{3}}, st.last())
}

func TestUpdateValue(t *testing.T) {
	ctx := context.Background()
	st := &recordingStore{affected: 2}
	users := newUsers(t, st, nil)

	require.NoError(t, users.Filter("name", table.Equals, "Ann"))

	n, err := users.UpdateValue(ctx, "age", 31)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	assert.Equal(t, call{SQL: "Update users set age = ? Where name = ?", Args: []any{31, "Ann"}}, st.last())

	_, err = users.UpdateValueWhere(ctx, "age", 32, "id", table.Equals, 1)
	require.NoError(t, err)
	assert.Equal(t, call{SQL: "Update users set age = ? Where id = ?", Args: []any{32, 1}}, st.last())

	_, err = users.UpdateValueWhere(ctx, "age", 33, "", table.Noop, nil)
	require.NoError(t, err)
	assert.Equal(t, call{SQL: "Update users set age = ? Where name = ?", Args: []any{33, "Ann"}}, st.last())

	users.ClearFilters()
	_, err = users.UpdateValues(ctx, map[string]any{"age": 40, "name": "Zed"})
	require.NoError(t, err)
	assert.Equal(t, call{SQL: "Update users set name = ?, age = ?", Args: []any{"Zed", 40}}, st.last())
}

func TestUpdateValue_Rejections(t *testing.T) {
	ctx := context.Background()
	st := &recordingStore{}
	users := newUsers(t, st, nil)

	_, err := users.UpdateValue(ctx, "ghost", 1)
	assert.ErrorIs(t, err, table.ErrUnknownColumn)

	_, err = users.UpdateValue(ctx, "name", nil)
	assert.ErrorIs(t, err, table.ErrInvalidValue)

	_, err = users.UpdateValueWhere(ctx, "age", 1, "ghost", table.Equals, 1)
	assert.ErrorIs(t, err, table.ErrUnknownColumn)

	_, err = users.UpdateValueWhere(ctx, "age", 1, "name", table.Equals, 5)
	assert.ErrorIs(t, err, table.ErrInvalidValue)

	_, err = users.UpdateValues(ctx, nil)
	assert.ErrorIs(t, err, table.ErrMalformedOperation)

	assert.Empty(t, st.calls)
}

func TestDelete(t *testing.T) {
	ctx := context.Background()
	st := &recordingStore{affected: 3}
	users := newUsers(t, st, nil)

	n, err := users.Delete(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
	assert.Equal(t, call{SQL: "Delete from users"}, st.last())

	require.NoError(t, users.Filter("name", table.Equals, "Ann"))
	_, err = users.Delete(ctx)
	require.NoError(t, err)
	assert.Equal(t, call{SQL: "Delete from users Where name = ?", Args: []any{"Ann"}}, st.last())

	_, err = users.DeleteWhere(ctx, "age", table.LessThan, 18)
	require.NoError(t, err)
	assert.Equal(t, call{SQL: "Delete from users Where age < ?", Args: []any{18}}, st.last())
}

func TestDelete_StoreFailureIsReported(t *testing.T) {
	cause := errors.New("database is locked")
	st := &recordingStore{err: cause}
	users := newUsers(t, st, nil)

	_, err := users.DeleteWhere(context.Background(), "age", table.GreaterThan, 90)
	require.Error(t, err)
	assert.ErrorIs(t, err, table.ErrStoreExecution)
	assert.ErrorIs(t, err, cause)

	var stmtErr *table.StatementError
	require.ErrorAs(t, err, &stmtErr)
	assert.Equal(t, "Delete from users Where age > ?", stmtErr.Statement)
	assert.Equal(t, []any{90}, stmtErr.Args)
}

func TestGet_StoreFailure(t *testing.T) {
	st := &recordingStore{err: errors.New("no such table: users")}
	users := newUsers(t, st, nil)

	_, err := users.Get(context.Background(), "name")
	assert.ErrorIs(t, err, table.ErrStoreExecution)
}

func TestSetDefaultAndValidators(t *testing.T) {
	ctx := context.Background()
	st := &recordingStore{}
	users := newUsers(t, st, nil)

	assert.ErrorIs(t, users.SetDefault("age", "x"), table.ErrInvalidValue)
	assert.ErrorIs(t, users.SetDefault("ghost", 1), table.ErrUnknownColumn)
	require.NoError(t, users.SetDefault("age", int64(5)))

	_, err := users.Add(ctx, map[string]any{"name": "A"})
	require.NoError(t, err)
	assert.Equal(t, []any{"A", int64(5)}, st.last().Args)

	short := column.ValidatorFunc(func(v any) bool {
		s, ok := v.(string)
		return ok && len(s) <= 3
	})
	require.NoError(t, users.UpdateValidators("name", short))
	assert.ErrorIs(t, users.UpdateValidators("ghost", short), table.ErrUnknownColumn)

	calls := len(st.calls)
	_, err = users.Add(ctx, map[string]any{"name": "Annabel"})
	assert.ErrorIs(t, err, table.ErrInvalidValue)
	assert.Len(t, st.calls, calls)

	assert.ErrorIs(t, users.Filter("name", table.Equals, "Annabel"), table.ErrInvalidValue)
}

func TestTable_Equal(t *testing.T) {
	a := newUsers(t, &recordingStore{}, nil)
	b := newUsers(t, &recordingStore{}, nil)
	assert.True(t, a.Equal(b))

	c, err := table.New("users", usersDecl[:2], &recordingStore{}, nil)
	require.NoError(t, err)
	assert.False(t, a.Equal(c))
	assert.False(t, a.Equal(nil))
}
