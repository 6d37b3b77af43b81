package agent

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
)

func sig(name, args string) string {
	return callSignature(name, json.RawMessage(args))
}

func TestCallSignatureDistinguishesArguments(t *testing.T) {
	a := sig("read_file", `{"path":"a.txt"}`)
	b := sig("read_file", `{"path":"b.txt"}`)
	c := sig("list_files", `{"path":"a.txt"}`)

	assert.NotEqual(t, a, b)
	assert.NotEqual(t, a, c)
	assert.Equal(t, a, sig("read_file", `{"path":"a.txt"}`))
}

func TestDetectRepeatSingleCall(t *testing.T) {
	s := sig("list_files", `{}`)
	sigs := []string{s, s, s, s}

	assert.True(t, detectRepeat(sigs, 4))
}

func TestDetectRepeatAlternatingPair(t *testing.T) {
	a := sig("read_file", `{"path":"a"}`)
	b := sig("read_file", `{"path":"b"}`)
	sigs := []string{a, b, a, b, a, b}

	assert.True(t, detectRepeat(sigs, 6))
}

func TestDetectRepeatRequiresFullWindow(t *testing.T) {
	s := sig("list_files", `{}`)
	assert.False(t, detectRepeat([]string{s, s, s}, 4))
}

func TestDetectRepeatIgnoresProgress(t *testing.T) {
	sigs := []string{
		sig("read_file", `{"path":"a"}`),
		sig("read_file", `{"path":"b"}`),
		sig("read_file", `{"path":"c"}`),
		sig("read_file", `{"path":"d"}`),
	}
	assert.False(t, detectRepeat(sigs, 4))
}

func TestDetectRepeatOnlyConsidersRecentWindow(t *testing.T) {
	a := sig("read_file", `{"path":"a"}`)
	b := sig("read_file", `{"path":"b"}`)
	sigs := []string{b, a, a, a, a}

	assert.True(t, detectRepeat(sigs, 4))
}
