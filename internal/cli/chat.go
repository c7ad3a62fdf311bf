package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/jorge-rr00/newbackend/internal/presentation/tui"
	"github.com/jorge-rr00/newbackend/pkg/domain"
)

// Chatter is the slice of the assistant the interactive chat needs.
type Chatter interface {
	ProcessTurn(ctx context.Context, sessionID, query string, attachments []domain.Attachment) domain.TurnResult
	CreateSession(ctx context.Context) (*domain.Session, error)
	History(ctx context.Context, id string) ([]domain.Message, error)
}

// ChatOptions configures RunChat.
type ChatOptions struct {
	SessionID string
	In        io.Reader
	Out       io.Writer
	Render    tui.Renderer
	// ReadFile loads attachments; defaults to os.ReadFile.
	ReadFile func(string) ([]byte, error)
}

const chatHelp = `Comandos:
  /adjuntar <ruta>   adjunta un archivo a la próxima pregunta
  /historial         muestra la conversación
  /nueva             inicia una sesión nueva
  /salir             termina`

// RunChat runs an interactive conversation until the input ends, the user
// types /salir or ctx is cancelled.
func RunChat(ctx context.Context, nova Chatter, opts ChatOptions) error {
	if opts.In == nil {
		opts.In = os.Stdin
	}
	if opts.Out == nil {
		opts.Out = os.Stdout
	}
	if opts.Render == nil {
		opts.Render = tui.Plain
	}
	if opts.ReadFile == nil {
		opts.ReadFile = os.ReadFile
	}
	out := opts.Out

	sessionID := opts.SessionID
	if sessionID == "" {
		id, err := startSession(ctx, nova, opts)
		if err != nil {
			return err
		}
		sessionID = id
	} else {
		printSystemMessage(out, "Sesión '%s' reanudada.", sessionID)
	}

	var pending []domain.Attachment
	scanner := bufio.NewScanner(NewInterruptibleReader(opts.In, ctx.Done()))
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)

	for {
		fmt.Fprint(out, "> ")
		if !scanner.Scan() {
			fmt.Fprintln(out)
			if err := scanner.Err(); err != nil && !isInterrupted(err) {
				return err
			}
			return nil
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" && len(pending) == 0 {
			continue
		}

		if cmd, arg, ok := parseCommand(line); ok {
			switch cmd {
			case "salir", "exit", "quit":
				return nil
			case "ayuda", "help":
				fmt.Fprintln(out, chatHelp)
			case "nueva", "new":
				id, err := startSession(ctx, nova, opts)
				if err != nil {
					return err
				}
				sessionID, pending = id, nil
			case "historial", "history":
				printHistory(ctx, nova, sessionID, opts)
			case "adjuntar", "attach":
				a, err := loadAttachment(arg, opts.ReadFile)
				if err != nil {
					fmt.Fprintln(out, tui.Alert(err.Error()))
					continue
				}
				pending = append(pending, a)
				printSystemMessage(out, "Adjunto '%s' listo para la próxima pregunta.", a.Filename)
			default:
				fmt.Fprintln(out, tui.Alert("Comando desconocido: /"+cmd))
				fmt.Fprintln(out, chatHelp)
			}
			continue
		}

		res := nova.ProcessTurn(ctx, sessionID, line, pending)
		pending = nil
		if res.SessionID != "" {
			sessionID = res.SessionID
		}
		printResult(out, res, opts.Render)
		if ctx.Err() != nil {
			return nil
		}
	}
}

func startSession(ctx context.Context, nova Chatter, opts ChatOptions) (string, error) {
	s, err := nova.CreateSession(ctx)
	if err != nil {
		return "", fmt.Errorf("create session: %w", err)
	}
	printSystemMessage(opts.Out, "Sesión '%s' activa.", s.ID)
	for _, m := range s.Transcript() {
		renderMessage(opts.Out, m.Content, opts.Render)
	}
	return s.ID, nil
}

func parseCommand(line string) (cmd, arg string, ok bool) {
	if !strings.HasPrefix(line, "/") {
		return "", "", false
	}
	cmd, arg, _ = strings.Cut(strings.TrimPrefix(line, "/"), " ")
	return strings.ToLower(cmd), strings.TrimSpace(arg), true
}

func loadAttachment(path string, readFile func(string) ([]byte, error)) (domain.Attachment, error) {
	if path == "" {
		return domain.Attachment{}, fmt.Errorf("uso: /adjuntar <ruta>")
	}
	data, err := readFile(path)
	if err != nil {
		return domain.Attachment{}, fmt.Errorf("no se pudo leer %s: %w", path, err)
	}
	return domain.Attachment{Filename: filepath.Base(path), Data: data}, nil
}

func printHistory(ctx context.Context, nova Chatter, sessionID string, opts ChatOptions) {
	msgs, err := nova.History(ctx, sessionID)
	if err != nil {
		fmt.Fprintln(opts.Out, tui.Alert(err.Error()))
		return
	}
	for _, m := range msgs {
		label := "nova"
		if m.Role == domain.RoleUser {
			label = "tú"
		}
		line := fmt.Sprintf("[%s] %s", label, m.Content)
		if len(m.Attachments) > 0 {
			line += " (" + strings.Join(m.Attachments, ", ") + ")"
		}
		fmt.Fprintln(opts.Out, tui.Dim(line))
	}
}

func printResult(out io.Writer, res domain.TurnResult, render tui.Renderer) {
	if res.OK() {
		renderMessage(out, res.Text, render)
		if len(res.Sources) > 0 {
			fmt.Fprintln(out, tui.Dim("fuentes: "+strings.Join(res.Sources, ", ")))
		}
		return
	}
	if res.Error == nil {
		fmt.Fprintln(out, tui.Alert(string(domain.KindInternal)))
		return
	}
	fmt.Fprintln(out, tui.Alert(fmt.Sprintf("[%s] %s", res.Error.Kind, res.Error.Message)))
}

func renderMessage(out io.Writer, text string, render tui.Renderer) {
	rendered, err := render(text)
	if err != nil {
		rendered = text + "\n"
	}
	fmt.Fprint(out, rendered)
}
