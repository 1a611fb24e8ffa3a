package core

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestParseTag(t *testing.T) {
	tag, err := ParseTag("kv=4.14")
	require.NoError(t, err)
	assert.Equal(t, Tag{Key: "kv", Value: "4.14"}, tag)

	tag, err = ParseTag("opt=a=b")
	require.NoError(t, err)
	assert.Equal(t, "a=b", tag.Value)

	_, err = ParseTag("novalue")
	assert.Error(t, err)
	_, err = ParseTag("=x")
	assert.Error(t, err)
}

func TestParseTagsReportsAll(t *testing.T) {
	_, err := ParseTags([]string{"ok=1", "bad", "=also-bad"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `"bad"`)
	assert.Contains(t, err.Error(), `"=also-bad"`)
}

func TestMergeTags(t *testing.T) {
	base := Tags{{"type", "m5d.metal"}, {"kv", "4.14"}}

	tests := []struct {
		name  string
		extra Tags
		want  []string
	}{
		{"none", nil, []string{"type=m5d.metal", "kv=4.14"}},
		{"append", Tags{{"ag", "1"}}, []string{"type=m5d.metal", "kv=4.14", "ag=1"}},
		{"override in place", Tags{{"kv", "5.10"}}, []string{"type=m5d.metal", "kv=5.10"}},
		{"last extra wins", Tags{{"ag", "1"}, {"ag", "2"}}, []string{"type=m5d.metal", "kv=4.14", "ag=2"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MergeTags(base, tt.extra...)
			assert.Equal(t, tt.want, got.Strings())
		})
	}
	assert.Equal(t, "kv=4.14", base[1].String(), "base must not be modified")
}

func TestStringListShape(t *testing.T) {
	one, err := json.Marshal(StringList{"build_m5d"})
	require.NoError(t, err)
	assert.JSONEq(t, `"build_m5d"`, string(one))

	many, err := json.Marshal(StringList{"a", "b"})
	require.NoError(t, err)
	assert.JSONEq(t, `["a","b"]`, string(many))

	var s StringList
	require.NoError(t, yaml.Unmarshal([]byte(`only`), &s))
	assert.Equal(t, StringList{"only"}, s)
	require.NoError(t, yaml.Unmarshal([]byte(`[x, y]`), &s))
	assert.Equal(t, StringList{"x", "y"}, s)
	assert.Error(t, yaml.Unmarshal([]byte(`{a: b}`), &s))
}

func TestCommandsAreNotHTMLEscaped(t *testing.T) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	require.NoError(t, enc.Encode(StringList{"apt update && cargo build"}))
	assert.Equal(t, "\"apt update && cargo build\"\n", buf.String())
}
