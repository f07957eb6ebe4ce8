package clusterstate

import (
	"encoding/json"
	"fmt"
	"io"
)

// DumpNetworkCommand dumps per-node-pair heartbeat network ping times.
const DumpNetworkCommand = "dump_node_network"

// CommandHandler services control-plane text commands. The threshold is
// nil when the caller supplied no parameter.
type CommandHandler interface {
	Call(prefix string, threshold *int64, out io.Writer) error
}

// CommandRegistry is the control-plane registration collaborator. Commands
// are registered at process startup and unregistered at shutdown; dispatch
// of anything else is a registration defect.
type CommandRegistry interface {
	Register(prefix, desc string, h CommandHandler) error
	UnregisterAll(h CommandHandler)
}

// RegisterCommands registers the engine's diagnostic commands.
func (s *State) RegisterCommands(reg CommandRegistry) error {
	return reg.Register(DumpNetworkCommand, "dump node heartbeat network ping times", s)
}

// UnregisterCommands removes every command registered for this engine.
func (s *State) UnregisterCommands(reg CommandRegistry) {
	reg.UnregisterAll(s)
}

// Call implements CommandHandler. An unrecognized prefix reaching this
// point means registration and dispatch disagree; that path is unreachable
// in correct operation and panics rather than returning an error.
func (s *State) Call(prefix string, threshold *int64, out io.Writer) error {
	switch prefix {
	case DumpNetworkCommand:
		report := s.DumpNetworkRanking(threshold)
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	default:
		panic(fmt.Sprintf("clusterstate: broken command registration: %q", prefix))
	}
}
