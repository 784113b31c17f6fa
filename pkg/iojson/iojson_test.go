package iojson

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type item struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

func TestWriteLines(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteLines(&buf, []item{{"t1", "a"}, {"t2", "b"}}))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.JSONEq(t, `{"id":"t1","title":"a"}`, lines[0])
	assert.JSONEq(t, `{"id":"t2","title":"b"}`, lines[1])
}

func TestWriteWith_MarshalFailure(t *testing.T) {
	var out, errOut bytes.Buffer
	require.NoError(t, WriteWith(&out, &errOut, map[string]any{"bad": make(chan int)}))

	assert.Empty(t, out.String())

	var e Error
	require.NoError(t, json.Unmarshal(errOut.Bytes(), &e))
	assert.Contains(t, e.Message, "error marshaling")
	assert.NotEmpty(t, e.Data["json_error"])
}

func TestMarshalError(t *testing.T) {
	var e Error
	require.NoError(t, json.Unmarshal([]byte(MarshalError("boom", map[string]any{"id": "t1"})), &e))
	assert.Equal(t, "boom", e.Message)
	assert.Equal(t, "t1", e.Data["id"])
}

func TestFileReader(t *testing.T) {
	t.Run("from file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "in.json")
		require.NoError(t, os.WriteFile(path, []byte(`[{"id":"t1","title":"a"}]`), 0o644))

		fr := &FileReader[[]item]{fileFlagValue: path}
		got, err := fr.Read()
		require.NoError(t, err)
		assert.Equal(t, []item{{"t1", "a"}}, got)
	})

	t.Run("from stdin", func(t *testing.T) {
		fr := &FileReader[item]{}
		fr.SetStdin(strings.NewReader(`{"id":"t2","title":"b"}`))

		got, err := fr.Read()
		require.NoError(t, err)
		assert.Equal(t, item{"t2", "b"}, got)
	})

	t.Run("missing file", func(t *testing.T) {
		fr := &FileReader[item]{fileFlagValue: filepath.Join(t.TempDir(), "nope.json")}
		_, err := fr.Read()
		assert.Error(t, err)
	})

	t.Run("bad json", func(t *testing.T) {
		fr := &FileReader[item]{}
		fr.SetStdin(strings.NewReader(`{`))
		_, err := fr.Read()
		assert.ErrorContains(t, err, "decode JSON")
	})
}
