package llmjson

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_ExtractObject(t *testing.T) {
	var cases = []struct {
		input  string
		output string
	}{
		{input: `{"a":1}`, output: `{"a":1}`},
		{input: "Here you go:\n{\"a\": {\"b\": 2}}\nHope it helps {x}", output: `{"a": {"b": 2}}`},
		{input: "```json\n{\"chunks\": []}\n```", output: `{"chunks": []}`},
		{input: `{"s": "brace } inside"}`, output: `{"s": "brace } inside"}`},
		{input: `{"s": "quote \" and { brace"}`, output: `{"s": "quote \" and { brace"}`},
		{input: `use {placeholders} then {"ok": true}`, output: `{"ok": true}`},
		{input: `an { open brace then {"ok": true}`, output: `{"ok": true}`},
		{input: `{"first": 1} {"second": 2}`, output: `{"first": 1}`},
	}

	for i, c := range cases {
		t.Run(fmt.Sprintf("case_%d", i), func(t *testing.T) {
			out, err := ExtractObject(c.input)
			require.NoError(t, err)
			assert.Equal(t, c.output, out)
		})
	}
}

func Test_ExtractObject_Failures(t *testing.T) {
	var cases = []struct {
		input  string
		reason error
		offset int
	}{
		{input: "", reason: ErrNoJSONObject, offset: -1},
		{input: "no json here", reason: ErrNoJSONObject, offset: -1},
		{input: `{"a": 1`, reason: ErrUnbalanced, offset: 0},
		{input: `text {not json}`, reason: ErrNoJSONObject, offset: 5},
	}

	for i, c := range cases {
		t.Run(fmt.Sprintf("case_%d", i), func(t *testing.T) {
			_, err := ExtractObject(c.input)
			require.Error(t, err)
			assert.ErrorIs(t, err, c.reason)

			var extractErr *ExtractError
			require.True(t, errors.As(err, &extractErr))
			assert.Equal(t, c.offset, extractErr.Offset)
		})
	}
}

func Test_ExtractObject_Truncated(t *testing.T) {
	out, err := ExtractObject(`{"analysis": {"words": 120}, "chunks": [{"content": "cut off`)
	require.NoError(t, err)
	assert.Equal(t, `{"words": 120}`, out)

	reply := strings.Repeat(`{"a": `, 200000)
	_, err = ExtractObject(reply)
	assert.ErrorIs(t, err, ErrUnbalanced)

	var extractErr *ExtractError
	require.True(t, errors.As(err, &extractErr))
	assert.Equal(t, 0, extractErr.Offset)

	_, err = ExtractObject(`{"chunks": [{x} {y}`)
	assert.ErrorIs(t, err, ErrUnbalanced)
}

func Test_Unmarshal(t *testing.T) {
	var v struct {
		Chunks []struct {
			ID string `json:"chunk_id"`
		} `json:"chunks"`
	}

	require.NoError(t, Unmarshal(`Sure! {"chunks": [{"chunk_id": "intro"}]} Done.`, &v))
	require.Len(t, v.Chunks, 1)
	assert.Equal(t, "intro", v.Chunks[0].ID)

	assert.ErrorIs(t, Unmarshal("nothing", &v), ErrNoJSONObject)
	assert.Error(t, Unmarshal(`{"chunks": "not a list"}`, &v))
}
