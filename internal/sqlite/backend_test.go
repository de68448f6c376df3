package sqlite

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/embedref/pkg/types"
)

func testConfig(dataDir string) types.Config {
	return types.Config{
		Backend:     types.BackendSQLite,
		DataDir:     dataDir,
		Collections: types.DefaultCollectionNames(),
	}
}

// setupBackend attaches a backend in a temp dir and bootstraps the default
// collections. Detach is registered as cleanup.
func setupBackend(t *testing.T) *Backend {
	t.Helper()
	ctx := context.Background()
	b := NewBackend(nil)
	require.NoError(t, b.Attach(ctx, testConfig(t.TempDir())))
	t.Cleanup(func() { b.Detach(ctx) })
	for _, name := range types.DefaultCollectionNames().All() {
		_, err := b.EnsureCollection(ctx, name)
		require.NoError(t, err)
	}
	return b
}

func collection(t *testing.T, b *Backend, name string) types.Collection {
	t.Helper()
	c, err := b.Collection(name)
	require.NoError(t, err)
	return c
}

func TestAttachDetachLifecycle(t *testing.T) {
	ctx := context.Background()
	dir := filepath.Join(t.TempDir(), "nested", "data")
	b := NewBackend(nil)

	require.NoError(t, b.Attach(ctx, testConfig(dir)))
	_, err := os.Stat(filepath.Join(dir, DatabaseFileName))
	require.NoError(t, err, "attach creates the database file")

	assert.ErrorIs(t, b.Attach(ctx, testConfig(dir)), types.ErrAlreadyAttached)

	require.NoError(t, b.Detach(ctx))
	require.NoError(t, b.Detach(ctx), "detach is idempotent")

	_, err = b.Collection(types.DefaultStudentsCollection)
	assert.ErrorIs(t, err, types.ErrStoreDetached)
	_, err = b.CollectionExists(ctx, types.DefaultStudentsCollection)
	assert.ErrorIs(t, err, types.ErrStoreDetached)
}

func TestAttachRejectsInvalidConfig(t *testing.T) {
	ctx := context.Background()
	tests := []struct {
		name    string
		config  types.Config
		wantErr error
	}{
		{"empty backend", types.Config{Collections: types.DefaultCollectionNames()}, types.ErrBackendEmpty},
		{"mongodb config", types.Config{
			Backend:     types.BackendMongoDB,
			MongoDB:     types.MongoConfig{URI: "mongodb://localhost", Database: "x"},
			Collections: types.DefaultCollectionNames(),
		}, types.ErrBackendUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewBackend(nil).Attach(ctx, tt.config)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestDataSurvivesReattach(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	b := NewBackend(nil)
	require.NoError(t, b.Attach(ctx, testConfig(dir)))
	_, err := b.EnsureCollection(ctx, "students")
	require.NoError(t, err)
	students := collection(t, b, "students")
	id, err := students.Insert(ctx, types.Document{"name": "John Smith", "studentId": "S1001"})
	require.NoError(t, err)
	require.NoError(t, b.Detach(ctx))

	b2 := NewBackend(nil)
	require.NoError(t, b2.Attach(ctx, testConfig(dir)))
	t.Cleanup(func() { b2.Detach(ctx) })

	exists, err := b2.CollectionExists(ctx, "students")
	require.NoError(t, err)
	assert.True(t, exists)

	doc, err := collection(t, b2, "students").Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "John Smith", doc["name"])
}

func TestEnsureCollectionIsIdempotent(t *testing.T) {
	ctx := context.Background()
	b := NewBackend(nil)
	require.NoError(t, b.Attach(ctx, testConfig(t.TempDir())))
	t.Cleanup(func() { b.Detach(ctx) })

	exists, err := b.CollectionExists(ctx, "courses")
	require.NoError(t, err)
	assert.False(t, exists)

	created, err := b.EnsureCollection(ctx, "courses")
	require.NoError(t, err)
	assert.True(t, created)

	created, err = b.EnsureCollection(ctx, "courses")
	require.NoError(t, err)
	assert.False(t, created, "second ensure finds the collection")

	_, err = b.EnsureCollection(ctx, "")
	assert.ErrorIs(t, err, types.ErrCollectionNameEmpty)
}

func TestOperationsRequireBootstrap(t *testing.T) {
	ctx := context.Background()
	b := NewBackend(nil)
	require.NoError(t, b.Attach(ctx, testConfig(t.TempDir())))
	t.Cleanup(func() { b.Detach(ctx) })

	c := collection(t, b, "missing")
	_, err := c.Insert(ctx, types.Document{"name": "x"})
	assert.ErrorIs(t, err, types.ErrCollectionNotFound)
	_, err = c.Find(ctx, types.Query{})
	assert.ErrorIs(t, err, types.ErrCollectionNotFound)
}

func TestInsertGet(t *testing.T) {
	ctx := context.Background()
	students := collection(t, setupBackend(t), "students")

	doc := types.Document{"name": "John Smith", "studentId": "S1001", "email": "john.smith@example.com", "age": 20}
	id, err := students.Insert(ctx, doc)
	require.NoError(t, err)
	assert.NotEmpty(t, id)
	assert.False(t, doc.Has(types.IDField), "insert must not modify the caller's document")

	got, err := students.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, id, got.ID())
	assert.Equal(t, "John Smith", got["name"])
	age, ok := got.Int("age")
	require.True(t, ok)
	assert.Equal(t, 20, age)

	_, err = students.Insert(ctx, types.Document{types.IDField: "mine", "name": "x"})
	assert.ErrorIs(t, err, types.ErrInvalidDocument)

	_, err = students.Get(ctx, "no-such-id")
	assert.ErrorIs(t, err, types.ErrNotFound)
	_, err = students.Get(ctx, "")
	assert.ErrorIs(t, err, types.ErrInvalidID)
}

func TestIdentifiersAreUnique(t *testing.T) {
	ctx := context.Background()
	courses := collection(t, setupBackend(t), "courses")

	seen := map[string]bool{}
	for range 20 {
		id, err := courses.Insert(ctx, types.Document{"name": "Databases", "courseId": "CS202"})
		require.NoError(t, err)
		assert.False(t, seen[id], "duplicate id %s", id)
		seen[id] = true
	}
}

func TestFind(t *testing.T) {
	ctx := context.Background()
	students := collection(t, setupBackend(t), "students")

	var ids []string
	for _, s := range []types.Document{
		{"name": "John Smith", "studentId": "S1001", "age": 20, "active": true},
		{"name": "Emily Johnson", "studentId": "S1002", "age": 21, "active": false},
		{"name": "Michael Brown", "studentId": "S1003", "age": 20, "active": true},
	} {
		id, err := students.Insert(ctx, s)
		require.NoError(t, err)
		ids = append(ids, id)
	}

	tests := []struct {
		name  string
		query types.Query
		want  []string
	}{
		{"all in insertion order", types.Query{}, []string{"S1001", "S1002", "S1003"}},
		{"equality on string", types.Query{}.Where("studentId", "S1002"), []string{"S1002"}},
		{"equality on int", types.Query{}.Where("age", 20), []string{"S1001", "S1003"}},
		{"equality on bool", types.Query{}.Where("active", true), []string{"S1001", "S1003"}},
		{"two conditions", types.Query{}.Where("age", 20).Where("name", "Michael Brown"), []string{"S1003"}},
		{"by identifier", types.Query{}.Where(types.IDField, ids[1]), []string{"S1002"}},
		{"skip", types.Query{}.WithSkip(1), []string{"S1002", "S1003"}},
		{"skip and limit", types.Query{}.WithSkip(1).WithLimit(1), []string{"S1002"}},
		{"no match", types.Query{}.Where("studentId", "S9999"), []string{}},
		{"skip past end", types.Query{}.WithSkip(10), []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			docs, err := students.Find(ctx, tt.query)
			require.NoError(t, err)
			got := []string{}
			for _, d := range docs {
				got = append(got, d["studentId"].(string))
			}
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := students.Find(ctx, types.Query{Skip: -1})
	assert.ErrorIs(t, err, types.ErrInvalidQuery)
}

func TestFindNestedField(t *testing.T) {
	ctx := context.Background()
	enrollments := collection(t, setupBackend(t), "enrollments")

	_, err := enrollments.Insert(ctx, types.Document{"grade": "B+", "student": types.Document{"studentId": "S1002"}})
	require.NoError(t, err)

	doc, found, err := enrollments.First(ctx, types.Query{}.Where("student.studentId", "S1002"))
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "B+", doc["grade"])
}

func TestFirst(t *testing.T) {
	ctx := context.Background()
	courses := collection(t, setupBackend(t), "courses")

	_, found, err := courses.First(ctx, types.Query{})
	require.NoError(t, err)
	assert.False(t, found, "empty collection yields none")

	for _, name := range []string{"CS101", "CS202"} {
		_, err := courses.Insert(ctx, types.Document{"name": name, "courseId": name})
		require.NoError(t, err)
	}
	doc, found, err := courses.First(ctx, types.Query{}.WithSkip(1))
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "CS202", doc["courseId"])
}

func TestUpdate(t *testing.T) {
	ctx := context.Background()
	students := collection(t, setupBackend(t), "students")

	id, err := students.Insert(ctx, types.Document{"name": "John Smith", "studentId": "S1001"})
	require.NoError(t, err)

	old, err := students.Update(ctx, id, types.Document{"name": "John Smith-Updated"})
	require.NoError(t, err)
	assert.Equal(t, "John Smith", old["name"])

	got, err := students.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "John Smith-Updated", got["name"])
	assert.Equal(t, "S1001", got["studentId"], "untouched fields are kept")
	assert.Equal(t, id, got.ID())

	_, err = students.Update(ctx, "no-such-id", types.Document{"name": "x"})
	assert.ErrorIs(t, err, types.ErrNotFound)
	_, err = students.Update(ctx, id, types.Document{types.IDField: "other"})
	assert.ErrorIs(t, err, types.ErrInvalidDocument)
	_, err = students.Update(ctx, "", types.Document{"name": "x"})
	assert.ErrorIs(t, err, types.ErrInvalidID)
}

func TestDeleteAndClear(t *testing.T) {
	ctx := context.Background()
	b := setupBackend(t)
	students := collection(t, b, "students")
	courses := collection(t, b, "courses")

	id, err := students.Insert(ctx, types.Document{"name": "A", "studentId": "S1"})
	require.NoError(t, err)
	_, err = students.Insert(ctx, types.Document{"name": "B", "studentId": "S2"})
	require.NoError(t, err)
	_, err = courses.Insert(ctx, types.Document{"name": "C", "courseId": "CS1"})
	require.NoError(t, err)

	require.NoError(t, students.Delete(ctx, id))
	assert.ErrorIs(t, students.Delete(ctx, id), types.ErrNotFound)
	_, err = students.Get(ctx, id)
	assert.ErrorIs(t, err, types.ErrNotFound)

	n, err := students.Clear(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	n, err = students.Clear(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 0, n)

	remaining, err := courses.Find(ctx, types.Query{})
	require.NoError(t, err)
	assert.Len(t, remaining, 1, "clear only touches its own collection")
}
