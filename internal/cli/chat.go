// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// chat.go - Interactive chat command handler for the tinylollms CLI.
//
// Handles the "tinylollms chat" command: a line-based conversation
// with the gateway for terminals where the full panel is unwanted.
// The same widget instance drives it, so the conversation rules match
// the panel exactly.
//
// Command: chat
//
// Examples:
//   tinylollms chat                      Chat with config defaults
//   tinylollms chat --app-key KEY        Chat under a specific key
//   tinylollms chat --model mistral      Prefer a model
//
// Interactive Commands (during chat):
//   /help, /h           Show available commands
//   /model [name]       Show or switch the model
//   /models             List the models this key may use
//   /history            Print the conversation so far
//   /quit, /q           Exit chat
//   Ctrl+C              Cancel the reply being generated
//   Ctrl+D              Exit chat
package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/peterh/liner"

	"github.com/ParisNeo/tinyLollms/internal/config"
	"github.com/ParisNeo/tinyLollms/internal/render"
	"github.com/ParisNeo/tinyLollms/internal/ui/styles"
	"github.com/ParisNeo/tinyLollms/internal/widget"
)

// =============================================================================
// STYLES
// =============================================================================

var (
	promptStyle = lipgloss.NewStyle().
			Foreground(styles.PrimaryColor).
			Bold(true)

	welcomeStyle = lipgloss.NewStyle().
			Foreground(styles.PrimaryColor).
			Bold(true)

	infoStyle = lipgloss.NewStyle().
			Foreground(styles.TextMuted)

	assistantStyle = lipgloss.NewStyle().
			Foreground(styles.Emerald).
			Bold(true)

	warningStyle = lipgloss.NewStyle().
			Foreground(styles.Rose)
)

// =============================================================================
// INPUT HISTORY
// =============================================================================

// ChatCLI provides input history and line editing for interactive chat.
type ChatCLI struct {
	line        *liner.State
	historyFile string
}

// NewChatCLI creates a new ChatCLI with input history support.
func NewChatCLI() *ChatCLI {
	line := liner.NewLiner()
	line.SetCtrlCAborts(true)

	configDir, err := config.ConfigDir()
	if err != nil {
		configDir = os.TempDir()
	}

	cli := &ChatCLI{
		line:        line,
		historyFile: filepath.Join(configDir, "chat_history"),
	}
	cli.LoadHistory()
	return cli
}

// LoadHistory loads command history from file.
func (c *ChatCLI) LoadHistory() {
	if f, err := os.Open(c.historyFile); err == nil {
		c.line.ReadHistory(f)
		f.Close()
	}
}

// ReadInput reads a line of input with the given prompt. Non-empty
// lines go into the history.
func (c *ChatCLI) ReadInput(prompt string) (string, error) {
	input, err := c.line.Prompt(prompt)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(input) != "" {
		c.line.AppendHistory(input)
	}
	return input, nil
}

// SaveHistory persists command history with owner-only permissions.
func (c *ChatCLI) SaveHistory() {
	if err := config.EnsureConfigDir(); err != nil {
		return
	}
	f, err := os.OpenFile(c.historyFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return
	}
	defer f.Close()
	c.line.WriteHistory(f)
}

// Close saves history and closes the liner.
func (c *ChatCLI) Close() {
	c.SaveHistory()
	c.line.Close()
}

// =============================================================================
// SESSION STATE
// =============================================================================

// ChatSession holds the state for an interactive chat session.
type ChatSession struct {
	Widget *widget.Widget
	Term   *render.TermRenderer
	Input  *ChatCLI
	Quiet  bool

	// Cancel function for the reply currently being generated
	mu     sync.Mutex
	cancel context.CancelFunc
}

func (s *ChatSession) setCancel(fn context.CancelFunc) {
	s.mu.Lock()
	s.cancel = fn
	s.mu.Unlock()
}

// cancelCurrent aborts the in-flight reply, if any.
func (s *ChatSession) cancelCurrent() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel == nil {
		return false
	}
	s.cancel()
	s.cancel = nil
	return true
}

// =============================================================================
// CHAT COMMAND
// =============================================================================

// HandleChat runs the interactive chat loop.
func HandleChat(args Args) error {
	cfg := config.Global()
	attrs := attrsFromConfig(cfg, args)

	w := newWidget(gatewayURL(cfg, args))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	err := w.Mount(ctx, attrs)
	cancel()
	if err != nil {
		return fmt.Errorf("failed to start chat: %w", err)
	}
	defer w.Teardown()

	session := &ChatSession{
		Widget: w,
		Term:   render.NewTermRenderer(80),
		Input:  NewChatCLI(),
		Quiet:  args.Quiet,
	}
	defer session.Input.Close()

	printWelcome(session)

	// Ctrl+C during generation cancels the reply instead of the process.
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)
	go func() {
		for range sigChan {
			if session.cancelCurrent() {
				fmt.Fprintln(os.Stderr, "\n"+warningStyle.Render("[Cancelled]"))
			}
		}
	}()

	for {
		input, err := session.Input.ReadInput(promptStyle.Render("you> "))
		if err != nil {
			// Prompt abort (Ctrl+C) and EOF (Ctrl+D) both exit cleanly.
			fmt.Println()
			return nil
		}

		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}

		if strings.HasPrefix(input, "/") {
			keepGoing, err := session.handleSlashCommand(input)
			if err != nil {
				fmt.Fprintln(os.Stderr, warningStyle.Render("[Error] ")+err.Error())
			}
			if !keepGoing {
				return nil
			}
			continue
		}

		if strings.EqualFold(input, "exit") || strings.EqualFold(input, "quit") {
			return nil
		}

		session.processMessage(input)
	}
}

// printWelcome shows the title, welcome message, and hints.
func printWelcome(s *ChatSession) {
	if s.Quiet {
		return
	}
	cfg := s.Widget.Config()
	fmt.Println(welcomeStyle.Render(cfg.Title))
	if cfg.WelcomeMessage != "" {
		fmt.Println(renderMarkdown(s.Term, cfg.WelcomeMessage))
	}
	if cfg.SelectorVisible() {
		fmt.Println(infoStyle.Render("models: " + strings.Join(cfg.AllowedModels, ", ")))
	}
	fmt.Println(infoStyle.Render("Type /help for commands, /quit to exit."))
	fmt.Println()
}

// =============================================================================
// MESSAGE PROCESSING
// =============================================================================

// processMessage runs one turn through the widget and prints the
// rendered reply or the fallback line.
func (s *ChatSession) processMessage(input string) {
	ctx, cancel := context.WithCancel(context.Background())
	s.setCancel(cancel)
	defer func() {
		s.setCancel(nil)
		cancel()
	}()

	reply, err := s.Widget.HandleSubmit(ctx, input)
	if err != nil {
		// The widget has already recorded the fallback display line
		// and kept the conversation clean of it.
		fmt.Println(warningStyle.Render(widget.FallbackMessage))
		return
	}

	cfg := s.Widget.Config()
	fmt.Println(assistantStyle.Render(cfg.AssistantName + ":"))
	fmt.Println(renderMarkdown(s.Term, reply))
}

// renderMarkdown renders assistant text for the terminal.
func renderMarkdown(term *render.TermRenderer, text string) string {
	return strings.TrimRight(term.Render(text), "\n")
}

// =============================================================================
// SLASH COMMANDS
// =============================================================================

// handleSlashCommand processes an in-chat command. Returns false when
// the session should end.
func (s *ChatSession) handleSlashCommand(input string) (bool, error) {
	fields := strings.Fields(input)
	cmd := strings.ToLower(fields[0])

	switch cmd {
	case "/help", "/h":
		fmt.Println(infoStyle.Render(`Commands:
  /model [name]   Show or switch the model
  /models         List the models this key may use
  /history        Print the conversation so far
  /quit, /q       Exit chat`))
		return true, nil

	case "/model":
		cfg := s.Widget.Config()
		if len(fields) < 2 {
			fmt.Println(infoStyle.Render("model: " + cfg.SelectedModel))
			return true, nil
		}
		name := fields[1]
		if err := s.Widget.SelectModel(name); err != nil {
			if errors.Is(err, widget.ErrModelNotAllowed) {
				return true, fmt.Errorf("model %q is not allowed for this key (allowed: %s)",
					name, strings.Join(cfg.AllowedModels, ", "))
			}
			return true, err
		}
		fmt.Println(infoStyle.Render("switched to " + name))
		return true, nil

	case "/models":
		cfg := s.Widget.Config()
		if len(cfg.AllowedModels) == 0 {
			fmt.Println(infoStyle.Render("no model restriction for this key"))
			return true, nil
		}
		for _, id := range cfg.AllowedModels {
			marker := "  "
			if id == cfg.SelectedModel {
				marker = "* "
			}
			fmt.Println(infoStyle.Render(marker + id))
		}
		return true, nil

	case "/history":
		history := s.Widget.History()
		if len(history) == 0 {
			fmt.Println(infoStyle.Render("no messages yet"))
			return true, nil
		}
		for _, msg := range history {
			fmt.Printf("%s %s\n", infoStyle.Render("["+msg.Role.DisplayName()+"]"), msg.Content)
		}
		return true, nil

	case "/quit", "/q":
		return false, nil

	default:
		return true, fmt.Errorf("unknown command %s (try /help)", cmd)
	}
}
