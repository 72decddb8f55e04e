package index

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeFieldIndex(t *testing.T) {
	data := []byte(`{
		"df": {"python": 3, "anarchism": 1},
		"locs": {
			"python": [["0_000.bin", 1999990], ["0_001.bin", 0]],
			"anarchism": [["0_000.bin", 0]]
		}
	}`)
	f, err := Decode(data)
	require.NoError(t, err)

	df, loc, ok := f.Lookup("python")
	require.True(t, ok)
	assert.Equal(t, 3, df)
	assert.Equal(t, Location{{Shard: "0_000.bin", Offset: 1999990}, {Shard: "0_001.bin", Offset: 0}}, loc)

	_, _, ok = f.Lookup("missing")
	assert.False(t, ok)

	assert.Equal(t, []string{"0_000.bin", "0_001.bin"}, f.Shards())
}

func TestDecodeRejectsBadIndex(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"not json", `{df:`},
		{"df without location", `{"df": {"x": 2}, "locs": {}}`},
		{"negative df", `{"df": {"x": -1}, "locs": {"x": [["a", 0]]}}`},
		{"span arity", `{"df": {"x": 1}, "locs": {"x": [["a"]]}}`},
		{"negative offset", `{"df": {"x": 1}, "locs": {"x": [["a", -4]]}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode([]byte(tt.data))
			assert.Error(t, err)
		})
	}
}

func TestSpanJSONShape(t *testing.T) {
	data, err := json.Marshal(Location{{Shard: "title/0_000.bin", Offset: 12}})
	require.NoError(t, err)
	assert.JSONEq(t, `[["title/0_000.bin", 12]]`, string(data))
}

func TestDecodeEmpty(t *testing.T) {
	f, err := Decode([]byte(`{}`))
	require.NoError(t, err)
	assert.Empty(t, f.DF)
	assert.Empty(t, f.Shards())
}
