package summary

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type parsed struct {
	Summary string `json:"summary"`
}

func TestParseJSONPlain(t *testing.T) {
	got, err := ParseJSON[parsed](`{"summary": "hello"}`)
	require.NoError(t, err)
	assert.Equal(t, "hello", got.Summary)
}

func TestParseJSONWithSurroundingText(t *testing.T) {
	got, err := ParseJSON[parsed]("Sure, here is the answer:\n```json\n{\"summary\": \"hello\"}\n```\nLet me know!")
	require.NoError(t, err)
	assert.Equal(t, "hello", got.Summary)
}

func TestParseJSONNoObject(t *testing.T) {
	_, err := ParseJSON[parsed]("no json here")
	assert.Error(t, err)
}
