package core

import (
	"errors"
	"sync"

	"brushless/protocol"
)

// CommandHandler handles one command; it decodes its own arguments out of
// the frame data.
type CommandHandler func(data *[]byte) error

// Command is one registered host command or firmware response.
type Command struct {
	ID      uint16
	Name    string
	Format  string // dictionary format string, e.g. "oid=%c duty=%u"
	Handler CommandHandler
}

// CommandRegistry holds all registered commands. IDs are assigned in
// registration order, which the host reconstructs from the dictionary.
type CommandRegistry struct {
	mu         sync.RWMutex
	commands   map[uint16]*Command
	nameToID   map[string]uint16
	nextID     uint16
	dictionary string
}

var globalRegistry = NewCommandRegistry()

// NewCommandRegistry creates an empty registry.
func NewCommandRegistry() *CommandRegistry {
	return &CommandRegistry{
		commands: make(map[uint16]*Command),
		nameToID: make(map[string]uint16),
		nextID:   0,
	}
}

// RegisterCommand registers a host-to-firmware command on the global
// registry.
func RegisterCommand(name string, format string, handler CommandHandler) uint16 {
	return globalRegistry.Register(name, format, handler)
}

// RegisterResponse registers a firmware-to-host message: a command entry
// with no handler.
func RegisterResponse(name string, format string) uint16 {
	return globalRegistry.Register(name, format, nil)
}

// Register adds a command; re-registering a name returns the existing ID.
func (r *CommandRegistry) Register(name string, format string, handler CommandHandler) uint16 {
	r.mu.Lock()
	defer r.mu.Unlock()

	if id, exists := r.nameToID[name]; exists {
		return id
	}

	id := r.nextID
	r.nextID++

	cmd := &Command{
		ID:      id,
		Name:    name,
		Format:  format,
		Handler: handler,
	}

	r.commands[id] = cmd
	r.nameToID[name] = id

	r.rebuildDictionary()

	return id
}

// GetCommand retrieves a command by ID.
func (r *CommandRegistry) GetCommand(id uint16) (*Command, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	cmd, ok := r.commands[id]
	return cmd, ok
}

// GetCommandByName retrieves a command by name.
func (r *CommandRegistry) GetCommandByName(name string) (*Command, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.nameToID[name]
	if !ok {
		return nil, false
	}
	return r.commands[id], true
}

// Count returns the number of registered commands.
func (r *CommandRegistry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.commands)
}

// Dispatch calls the handler registered for cmdID.
func (r *CommandRegistry) Dispatch(cmdID uint16, data *[]byte) error {
	cmd, ok := r.GetCommand(cmdID)
	if !ok {
		return errors.New("unknown command ID: " + itoa(int(cmdID)))
	}

	return cmd.Handler(data)
}

// GetDictionary returns the flat dictionary string.
func (r *CommandRegistry) GetDictionary() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.dictionary
}

// GetCommandsAndResponses splits the registry for the JSON dictionary:
// entries with handlers are host-to-firmware commands, entries without are
// firmware-to-host responses.
func (r *CommandRegistry) GetCommandsAndResponses() (map[string]int, map[string]int) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	commands := make(map[string]int)
	responses := make(map[string]int)

	for i := uint16(0); i < r.nextID; i++ {
		if cmd, ok := r.commands[i]; ok {
			formatStr := cmd.Name
			if cmd.Format != "" {
				formatStr = cmd.Name + " " + cmd.Format
			}

			if cmd.Handler != nil {
				commands[formatStr] = int(cmd.ID)
			} else {
				responses[formatStr] = int(cmd.ID)
			}
		}
	}

	return commands, responses
}

// rebuildDictionary regenerates the flat dictionary. Lock held by caller.
func (r *CommandRegistry) rebuildDictionary() {
	dict := ""
	for i := uint16(0); i < r.nextID; i++ {
		if cmd, ok := r.commands[i]; ok {
			if cmd.Format != "" {
				dict += cmd.Name + " " + cmd.Format + "\n"
			} else {
				dict += cmd.Name + "\n"
			}
		}
	}
	r.dictionary = dict
}

// DispatchCommand dispatches against the global registry.
func DispatchCommand(cmdID uint16, data *[]byte) error {
	return globalRegistry.Dispatch(cmdID, data)
}

// GetGlobalRegistry returns the global command registry.
func GetGlobalRegistry() *CommandRegistry {
	return globalRegistry
}

// GetCommandCount returns the number of registered commands.
func GetCommandCount() int {
	return globalRegistry.Count()
}

// Global transport responses are framed onto; set by the target's main.
var globalTransport *protocol.Transport

// SetGlobalTransport sets the transport used by SendResponse.
func SetGlobalTransport(transport *protocol.Transport) {
	globalTransport = transport
}

// SendResponse frames a pre-registered response message toward the host.
// Responses must be registered before use.
func SendResponse(responseName string, args func(output protocol.OutputBuffer)) {
	if globalTransport == nil {
		return
	}
	cmd, ok := globalRegistry.GetCommandByName(responseName)
	if !ok {
		panic("response not registered: " + responseName)
	}
	globalTransport.SendCommand(cmd.ID, args)
}
