package chat

import (
	"fmt"
	"strings"
)

// Command identifiers mapping parsed commands to controller handlers.
const (
	CmdHelp     = "help"
	CmdUsers    = "users"
	CmdWhisper  = "whisper"
	CmdMute     = "mute"
	CmdUnmute   = "unmute"
	CmdClear    = "clear"
	CmdAnnounce = "announce"
	CmdKick     = "kick"
	CmdMe       = "me"
)

// Command defines a chat-invocable command.
type Command struct {
	// Name is the canonical command name.
	Name string
	// Aliases are alternate names for this command.
	Aliases []string
	// Usage is the argument synopsis shown on misuse.
	Usage string
	// Description is the one-line help text.
	Description string
	// ModOnly restricts the command to moderators.
	ModOnly bool
}

// BuiltinCommands returns the built-in chat command set.
func BuiltinCommands() []Command {
	return []Command{
		{Name: CmdHelp, Aliases: []string{"h", "?"}, Usage: "/help", Description: "List available commands."},
		{Name: CmdUsers, Aliases: []string{"who"}, Usage: "/users", Description: "List participants in your room."},
		{Name: CmdWhisper, Aliases: []string{"w", "msg"}, Usage: "/whisper <user> <message>", Description: "Send a private message."},
		{Name: CmdMute, Usage: "/mute <user>", Description: "Stop seeing messages from a user."},
		{Name: CmdUnmute, Usage: "/unmute <user>", Description: "See messages from a muted user again."},
		{Name: CmdMe, Usage: "/me <action>", Description: "Send an action message."},
		{Name: CmdClear, Usage: "/clear", Description: "Clear the room's chat log.", ModOnly: true},
		{Name: CmdAnnounce, Usage: "/announce <message>", Description: "Send a room-wide announcement.", ModOnly: true},
		{Name: CmdKick, Usage: "/kick <user>", Description: "Disconnect a user from the room.", ModOnly: true},
	}
}

// Registry maps command names and aliases to Command definitions.
type Registry struct {
	commands map[string]*Command // canonical name → command
	aliases  map[string]string   // alias → canonical name
}

// NewRegistry creates a Registry populated with the given commands.
//
// Precondition: No two commands may share a canonical name or alias.
// Postcondition: Returns a Registry or an error on name/alias collisions.
func NewRegistry(cmds []Command) (*Registry, error) {
	r := &Registry{
		commands: make(map[string]*Command, len(cmds)),
		aliases:  make(map[string]string),
	}

	for i := range cmds {
		cmd := &cmds[i]
		if _, exists := r.commands[cmd.Name]; exists {
			return nil, fmt.Errorf("duplicate command name: %q", cmd.Name)
		}
		if _, exists := r.aliases[cmd.Name]; exists {
			return nil, fmt.Errorf("command name %q conflicts with an existing alias", cmd.Name)
		}
		r.commands[cmd.Name] = cmd

		for _, alias := range cmd.Aliases {
			if _, exists := r.commands[alias]; exists {
				return nil, fmt.Errorf("alias %q conflicts with command name %q", alias, alias)
			}
			if existing, exists := r.aliases[alias]; exists {
				return nil, fmt.Errorf("duplicate alias %q: used by %q and %q", alias, existing, cmd.Name)
			}
			r.aliases[alias] = cmd.Name
		}
	}

	return r, nil
}

// DefaultRegistry creates a Registry with all built-in commands.
//
// Postcondition: Returns a Registry with all built-in commands registered.
func DefaultRegistry() *Registry {
	r, err := NewRegistry(BuiltinCommands())
	if err != nil {
		panic(fmt.Sprintf("building default registry: %v", err))
	}
	return r
}

// Resolve looks up a command by name or alias.
//
// Postcondition: Returns (command, true) if found, or (nil, false).
func (r *Registry) Resolve(name string) (*Command, bool) {
	if cmd, ok := r.commands[name]; ok {
		return cmd, true
	}
	if canonical, ok := r.aliases[name]; ok {
		return r.commands[canonical], true
	}
	return nil, false
}

// Commands returns all registered commands in no particular order.
func (r *Registry) Commands() []*Command {
	result := make([]*Command, 0, len(r.commands))
	for _, cmd := range r.commands {
		result = append(result, cmd)
	}
	return result
}

// ParseResult holds the parsed command name and arguments from a chat line.
type ParseResult struct {
	// Command is the first word after the prefix, lowercased.
	Command string
	// Args are the remaining words after the command.
	Args []string
	// RawArgs is the raw text after the command, preserving inner spacing.
	RawArgs string
}

// IsCommand reports whether a chat body should be routed to the command
// dispatcher instead of becoming a message.
func IsCommand(body, prefix string) bool {
	return strings.HasPrefix(body, prefix) && len(body) > len(prefix)
}

// Parse splits a prefixed chat line into a command and arguments.
//
// Precondition: IsCommand(body, prefix) should be true.
// Postcondition: Returns a ParseResult. If the line is empty after the
// prefix, Command is empty.
func Parse(body, prefix string) ParseResult {
	line := strings.TrimSpace(strings.TrimPrefix(body, prefix))
	if line == "" {
		return ParseResult{}
	}

	spaceIdx := strings.IndexByte(line, ' ')
	if spaceIdx < 0 {
		return ParseResult{
			Command: strings.ToLower(line),
		}
	}

	cmd := strings.ToLower(line[:spaceIdx])
	rest := strings.TrimSpace(line[spaceIdx+1:])

	var args []string
	if rest != "" {
		args = strings.Fields(rest)
	}

	return ParseResult{
		Command: cmd,
		Args:    args,
		RawArgs: rest,
	}
}
