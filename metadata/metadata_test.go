package metadata

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemStore_TableAndFieldLookup(t *testing.T) {
	store := NewMemStore().
		AddTable(Table{ID: 1, Name: "orders", Schema: "public"}).
		AddField(Field{ID: 10, Name: "id", TableID: 1})

	tbl, ok := store.Table(1)
	require.True(t, ok)
	assert.Equal(t, "orders", tbl.Name)

	_, ok = store.Table(999)
	assert.False(t, ok)

	f, ok := store.Field(10)
	require.True(t, ok)
	assert.Equal(t, "id", f.Name)
}

func TestScoped_FallsThroughToBaseWhenNothingPushed(t *testing.T) {
	base := NewMemStore().AddTable(Table{ID: 1, Name: "orders"})
	scoped := NewScoped(base)

	tbl, ok := scoped.Table(1)
	require.True(t, ok)
	assert.Equal(t, "orders", tbl.Name)
}

func TestScoped_PushShadowsAndPopRestores(t *testing.T) {
	base := NewMemStore().AddTable(Table{ID: 2, Name: "real"})
	scoped := NewScoped(base)

	err := scoped.WithPushedTable(2, Table{ID: 2, Name: "shadow", Alias: true}, func() error {
		tbl, ok := scoped.Table(2)
		require.True(t, ok)
		assert.Equal(t, "shadow", tbl.Name)
		return nil
	})
	require.NoError(t, err)

	tbl, ok := scoped.Table(2)
	require.True(t, ok)
	assert.Equal(t, "real", tbl.Name)
}

func TestScoped_PopsEvenWhenFnErrors(t *testing.T) {
	base := NewMemStore().AddTable(Table{ID: 3, Name: "real"})
	scoped := NewScoped(base)

	_ = scoped.WithPushedTable(3, Table{ID: 3, Name: "shadow"}, func() error {
		return assert.AnError
	})

	tbl, ok := scoped.Table(3)
	require.True(t, ok)
	assert.Equal(t, "real", tbl.Name)
}

func TestScoped_NestedPushesStackAndUnwindInOrder(t *testing.T) {
	base := NewMemStore().AddTable(Table{ID: 4, Name: "real"})
	scoped := NewScoped(base)

	_ = scoped.WithPushedTable(4, Table{ID: 4, Name: "outer"}, func() error {
		return scoped.WithPushedTable(4, Table{ID: 4, Name: "inner"}, func() error {
			tbl, _ := scoped.Table(4)
			assert.Equal(t, "inner", tbl.Name)
			return nil
		})
	})

	tbl, ok := scoped.Table(4)
	require.True(t, ok)
	assert.Equal(t, "real", tbl.Name)
}

func TestLoadMemStore_ParsesTablesAndFields(t *testing.T) {
	doc := []byte(`{
		"tables": [{"ID": 1, "Name": "orders", "Schema": "public"}],
		"fields": [{"ID": 10, "Name": "id", "TableID": 1}]
	}`)

	store, err := LoadMemStore(doc)
	require.NoError(t, err)

	tbl, ok := store.Table(1)
	require.True(t, ok)
	assert.Equal(t, "orders", tbl.Name)

	f, ok := store.Field(10)
	require.True(t, ok)
	assert.Equal(t, "id", f.Name)
}

func TestLoadMemStore_RejectsInvalidJSON(t *testing.T) {
	_, err := LoadMemStore([]byte(`not json`))
	assert.Error(t, err)
}
