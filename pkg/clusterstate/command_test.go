package clusterstate

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stratumhq/stratum/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeRegistry records registrations, standing in for the admin surface.
type fakeRegistry struct {
	registered   map[string]CommandHandler
	unregistered []CommandHandler
}

func newFakeRegistry() *fakeRegistry {
	return &fakeRegistry{registered: make(map[string]CommandHandler)}
}

func (r *fakeRegistry) Register(prefix, desc string, h CommandHandler) error {
	r.registered[prefix] = h
	return nil
}

func (r *fakeRegistry) UnregisterAll(h CommandHandler) {
	r.unregistered = append(r.unregistered, h)
	for prefix, handler := range r.registered {
		if handler == h {
			delete(r.registered, prefix)
		}
	}
}

func TestRegisterCommands(t *testing.T) {
	s := NewState(&recordingChecker{}, DefaultThresholds())
	reg := newFakeRegistry()

	require.NoError(t, s.RegisterCommands(reg))
	assert.Contains(t, reg.registered, DumpNetworkCommand)

	s.UnregisterCommands(reg)
	assert.NotContains(t, reg.registered, DumpNetworkCommand)
}

func TestCallDumpNetwork(t *testing.T) {
	s := rankState(t, DefaultThresholds(), map[int]map[int]types.PeerPing{
		1: {2: {Back: types.PingWindows{Avg: [3]uint32{50, 40, 30}, Last: 45}}},
	})

	var buf bytes.Buffer
	require.NoError(t, s.Call(DumpNetworkCommand, ptr(0), &buf))

	var rep struct {
		Threshold int64 `json:"threshold"`
		Entries   []struct {
			From      int               `json:"from_node"`
			To        int               `json:"to_node"`
			Interface string            `json:"interface"`
			Average   map[string]uint32 `json:"average"`
			Last      uint32            `json:"last"`
		} `json:"entries"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rep))

	assert.Equal(t, int64(0), rep.Threshold)
	require.Len(t, rep.Entries, 1)
	assert.Equal(t, 1, rep.Entries[0].From)
	assert.Equal(t, 2, rep.Entries[0].To)
	assert.Equal(t, "back", rep.Entries[0].Interface)
	assert.Equal(t, uint32(50), rep.Entries[0].Average["1min"])
	assert.Equal(t, uint32(30), rep.Entries[0].Average["15min"])
	assert.Equal(t, uint32(45), rep.Entries[0].Last)
}

func TestCallUnknownCommandPanics(t *testing.T) {
	s := NewState(&recordingChecker{}, DefaultThresholds())
	assert.Panics(t, func() {
		_ = s.Call("dump_everything", nil, &bytes.Buffer{})
	})
}
