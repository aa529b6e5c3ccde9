package vector

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToQdrantFilterNil(t *testing.T) {
	f, err := toQdrantFilter(nil)
	require.NoError(t, err)
	assert.Nil(t, f)
}

func TestToQdrantFilterLeaf(t *testing.T) {
	f, err := toQdrantFilter(Eq("conversation_id", int64(7)))
	require.NoError(t, err)
	require.Len(t, f.Must, 1)
	assert.Empty(t, f.Should)
}

func TestToQdrantFilterNested(t *testing.T) {
	f, err := toQdrantFilter(Or(
		Eq("conversation_id", int64(1)),
		And(
			Eq("source_type", "knowledge_base"),
			In("knowledge_base_id", int64(2), int64(3)),
		),
	))
	require.NoError(t, err)
	require.Len(t, f.Should, 2)

	nested := f.Should[1].GetFilter()
	require.NotNil(t, nested)
	assert.Len(t, nested.Must, 2)
}

func TestToConditionRejectsUnsupported(t *testing.T) {
	_, err := toQdrantFilter(Eq("k", true))
	assert.Error(t, err)

	_, err = toQdrantFilter(In("k"))
	assert.Error(t, err)

	_, err = toQdrantFilter(In("k", int64(1), "x"))
	assert.Error(t, err)
}
