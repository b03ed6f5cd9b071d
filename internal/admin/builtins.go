package admin

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/juanfu7467v/consulta-pe-wa-bot/internal/settings"
)

func registerBuiltins(r *Router) {
	r.Register(&Command{
		Name:        "/status",
		Description: "Estado de la sesión y configuración vigente",
		Handler:     handleStatus,
	})

	r.Register(&Command{
		Name:        "/cooldown",
		Description: "Segundos de supresión de mensajes repetidos",
		Usage:       "<segundos>",
		Handler:     handleCooldown,
	})

	r.Register(&Command{
		Name:        "/mode",
		Description: "Modo de coincidencia local",
		Usage:       "<exact|pattern|expert>",
		Handler:     handleMode,
	})

	r.Register(&Command{
		Name:        "/local",
		Description: "Activa o desactiva las respuestas locales",
		Usage:       "<on|off>",
		Handler:     handleLocal,
	})

	r.Register(&Command{
		Name:        "/source",
		Description: "Activa o desactiva la etiqueta de fuente",
		Usage:       "<on|off>",
		Handler:     handleSource,
	})

	r.Register(&Command{
		Name:        "/prompt",
		Description: "Cambia el prompt del asistente",
		Usage:       "<texto>",
		Handler:     handlePrompt,
	})

	r.Register(&Command{
		Name:        "/welcome",
		Description: "Cambia el mensaje de bienvenida",
		Usage:       "<texto>",
		Handler:     handleWelcome,
	})

	r.Register(&Command{
		Name:        "/help",
		Description: "Muestra esta ayuda",
		Handler:     nil, // wired below, needs the router
	})

	r.commands["/help"].Handler = func(ctx context.Context, args *CommandArgs) string {
		var b strings.Builder
		b.WriteString("Comandos disponibles:\n")
		for _, cmd := range r.List() {
			b.WriteString("  ")
			b.WriteString(cmd.Name)
			if cmd.Usage != "" {
				b.WriteString(" ")
				b.WriteString(cmd.Usage)
			}
			b.WriteString(" - ")
			b.WriteString(cmd.Description)
			b.WriteString("\n")
		}
		return strings.TrimRight(b.String(), "\n")
	}
}

func handleStatus(ctx context.Context, args *CommandArgs) string {
	sess := args.Session

	sess.Mu.Lock()
	status := sess.Status
	st := sess.Settings
	chats := len(sess.Chats)
	sess.Mu.Unlock()

	var b strings.Builder
	b.WriteString("Estado de la sesión\n")
	b.WriteString(fmt.Sprintf("  Conexión: %s\n", status))
	b.WriteString(fmt.Sprintf("  Chats activos: %d\n", chats))
	b.WriteString(fmt.Sprintf("  Modo: %s\n", st.MatchMode))
	b.WriteString(fmt.Sprintf("  Respuestas locales: %s (%d entradas)\n", onOff(st.LocalEnabled), st.LocalResponses.Len()))
	b.WriteString(fmt.Sprintf("  Etiqueta de fuente: %s\n", onOff(st.SourceIndicator)))
	b.WriteString(fmt.Sprintf("  Cooldown: %ds", st.CooldownSeconds))
	return b.String()
}

func handleCooldown(ctx context.Context, args *CommandArgs) string {
	n, err := strconv.Atoi(args.RawArgs)
	if err != nil {
		return usageError("/cooldown", args.Usage)
	}
	p := &settings.Patch{CooldownSeconds: &n}
	if err := args.Registry.UpdateSettings(args.Session, p); err != nil {
		return "Error: " + err.Error()
	}
	if n == 0 {
		return "Cooldown desactivado"
	}
	return fmt.Sprintf("Cooldown actualizado a %ds", n)
}

func handleMode(ctx context.Context, args *CommandArgs) string {
	mode := settings.MatchMode(strings.ToLower(args.RawArgs))
	if !mode.Valid() {
		return usageError("/mode", args.Usage)
	}
	p := &settings.Patch{MatchMode: &mode}
	if err := args.Registry.UpdateSettings(args.Session, p); err != nil {
		return "Error: " + err.Error()
	}
	return fmt.Sprintf("Modo de coincidencia: %s", mode)
}

func handleLocal(ctx context.Context, args *CommandArgs) string {
	v, ok := parseOnOff(args.RawArgs)
	if !ok {
		return usageError("/local", args.Usage)
	}
	p := &settings.Patch{LocalEnabled: &v}
	if err := args.Registry.UpdateSettings(args.Session, p); err != nil {
		return "Error: " + err.Error()
	}
	return "Respuestas locales: " + onOff(v)
}

func handleSource(ctx context.Context, args *CommandArgs) string {
	v, ok := parseOnOff(args.RawArgs)
	if !ok {
		return usageError("/source", args.Usage)
	}
	p := &settings.Patch{SourceIndicator: &v}
	if err := args.Registry.UpdateSettings(args.Session, p); err != nil {
		return "Error: " + err.Error()
	}
	return "Etiqueta de fuente: " + onOff(v)
}

func handlePrompt(ctx context.Context, args *CommandArgs) string {
	if args.RawArgs == "" {
		return usageError("/prompt", args.Usage)
	}
	text := args.RawArgs
	p := &settings.Patch{Prompt: &text}
	if err := args.Registry.UpdateSettings(args.Session, p); err != nil {
		return "Error: " + err.Error()
	}
	return "Prompt actualizado"
}

func handleWelcome(ctx context.Context, args *CommandArgs) string {
	if args.RawArgs == "" {
		return usageError("/welcome", args.Usage)
	}
	text := args.RawArgs
	p := &settings.Patch{WelcomeMessage: &text}
	if err := args.Registry.UpdateSettings(args.Session, p); err != nil {
		return "Error: " + err.Error()
	}
	return "Mensaje de bienvenida actualizado"
}

func parseOnOff(s string) (bool, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "on":
		return true, true
	case "off":
		return false, true
	}
	return false, false
}

func onOff(v bool) string {
	if v {
		return "on"
	}
	return "off"
}
