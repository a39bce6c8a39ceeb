package tui

import (
	"fmt"

	"github.com/charmbracelet/glamour"
	"github.com/muesli/termenv"

	"github.com/colloquyhq/colloquy/pkg/domain"
)

// Renderer formats engine messages for an interactive terminal session.
type Renderer struct {
	markdown *glamour.TermRenderer
	profile  termenv.Profile
}

// NewRenderer builds a terminal renderer. Markdown styling auto-detects the
// terminal background.
func NewRenderer() *Renderer {
	r, _ := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
	)
	return &Renderer{
		markdown: r,
		profile:  termenv.ColorProfile(),
	}
}

// Message renders one engine message with a kind-specific accent.
func (r *Renderer) Message(msg domain.Message) string {
	var label termenv.Style
	switch msg.Kind {
	case domain.MessagePrompt:
		label = termenv.String("?").Foreground(r.profile.Color("#818cf8"))
	case domain.MessageConfirm:
		label = termenv.String("!").Foreground(r.profile.Color("#fbbf24"))
	case domain.MessageError:
		label = termenv.String("x").Foreground(r.profile.Color("#f87171"))
	default:
		label = termenv.String(">").Foreground(r.profile.Color("#34d399"))
	}

	text := msg.Text
	if r.markdown != nil {
		if rendered, err := r.markdown.Render(msg.Text); err == nil {
			text = rendered
		}
	}
	return fmt.Sprintf("%s %s", label, text)
}

// Phase renders the conversation phase as a dim status line.
func (r *Renderer) Phase(phase domain.ConversationPhase) string {
	return termenv.String(fmt.Sprintf("[%s]", phase)).
		Foreground(r.profile.Color("#6b7280")).
		String()
}
