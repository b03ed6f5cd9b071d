// Package admin handles operator slash commands sent over the chat itself.
package admin

import (
	"context"
	"fmt"
	"sort"
	"strings"

	. "github.com/juanfu7467v/consulta-pe-wa-bot/internal/logging"
	"github.com/juanfu7467v/consulta-pe-wa-bot/internal/pacer"
	"github.com/juanfu7467v/consulta-pe-wa-bot/internal/session"
)

// Command is a slash command recognized on messages from the admin JID.
type Command struct {
	Name        string // e.g. "/cooldown"
	Description string
	Usage       string // argument hint, e.g. "<segundos>" (optional)
	Handler     CommandHandler
}

// CommandHandler executes a command and returns the reply text.
type CommandHandler func(ctx context.Context, args *CommandArgs) string

// CommandArgs carries the target session and everything after the command name.
type CommandArgs struct {
	Session  *session.Session
	Registry *session.Registry
	RawArgs  string
	Usage    string
}

// Router intercepts admin messages before they reach the reply pipeline.
type Router struct {
	registry *session.Registry
	adminJID string
	commands map[string]*Command
}

// NewRouter builds a router with the built-in command set. An empty adminJID
// disables interception entirely.
func NewRouter(registry *session.Registry, adminJID string) *Router {
	r := &Router{
		registry: registry,
		adminJID: adminJID,
		commands: make(map[string]*Command),
	}
	registerBuiltins(r)
	return r
}

// Register adds a command, keyed by lowercase name.
func (r *Router) Register(cmd *Command) {
	r.commands[strings.ToLower(cmd.Name)] = cmd
}

// IsCommand reports whether text looks like a slash command.
func IsCommand(text string) bool {
	return strings.HasPrefix(strings.TrimSpace(text), "/")
}

// Handle intercepts the message when it is an admin command. It returns true
// when the message was consumed; the caller must not forward it to the reply
// pipeline in that case. The reply is sent directly, without pacing.
func (r *Router) Handle(ctx context.Context, sess *session.Session, t pacer.Transport, senderJID, chatID, text string) bool {
	if r.adminJID == "" || senderJID != r.adminJID || !IsCommand(text) {
		return false
	}

	reply := r.Execute(ctx, sess, text)
	if reply == "" {
		return true
	}
	if err := t.SendText(ctx, chatID, reply); err != nil {
		L_warn("admin: reply send failed", "session", sess.ID, "error", err)
	}
	return true
}

// Execute parses and runs a command string against a session.
func (r *Router) Execute(ctx context.Context, sess *session.Session, cmdStr string) string {
	cmdStr = strings.TrimSpace(cmdStr)
	parts := strings.SplitN(cmdStr, " ", 2)
	name := strings.ToLower(parts[0])
	rawArgs := ""
	if len(parts) > 1 {
		rawArgs = strings.TrimSpace(parts[1])
	}

	cmd := r.commands[name]
	if cmd == nil {
		return fmt.Sprintf("Comando desconocido: %s\nEscribe /help para ver los comandos.", name)
	}

	L_info("admin: command", "session", sess.ID, "command", name)
	return cmd.Handler(ctx, &CommandArgs{
		Session:  sess,
		Registry: r.registry,
		RawArgs:  rawArgs,
		Usage:    cmd.Usage,
	})
}

// List returns the registered commands sorted by name.
func (r *Router) List() []*Command {
	list := make([]*Command, 0, len(r.commands))
	for _, cmd := range r.commands {
		list = append(list, cmd)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Name < list[j].Name })
	return list
}

func usageError(name, usage string) string {
	return fmt.Sprintf("Uso: %s %s", name, usage)
}
