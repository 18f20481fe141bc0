package tui

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
)

// loginForm signs a user in without leaving the board.
type loginForm struct {
	username textinput.Model
	password textinput.Model
	onPass   bool
	pending  bool
	notice   string
	err      string
}

func newLoginForm(username string) loginForm {
	u := textinput.New()
	u.Placeholder = "username"
	u.CharLimit = 50
	u.Prompt = ""
	u.SetValue(username)

	p := textinput.New()
	p.Placeholder = "password"
	p.CharLimit = 128
	p.Prompt = ""
	p.EchoMode = textinput.EchoPassword
	p.EchoCharacter = '•'

	f := loginForm{username: u, password: p}
	f.focusPassword(username != "")
	return f
}

func (f *loginForm) focusPassword(on bool) {
	f.onPass = on
	if on {
		f.username.Blur()
		f.password.Focus()
		return
	}
	f.password.Blur()
	f.username.Focus()
}

func (f *loginForm) update(msg tea.KeyMsg, keys KeyMap) tea.Cmd {
	if key.Matches(msg, keys.NextField) || key.Matches(msg, keys.PrevField) {
		f.focusPassword(!f.onPass)
		return nil
	}

	var cmd tea.Cmd
	if f.onPass {
		f.password, cmd = f.password.Update(msg)
	} else {
		f.username, cmd = f.username.Update(msg)
	}
	return cmd
}

func (f *loginForm) credentials() (username, password string, ok bool) {
	username = strings.TrimSpace(f.username.Value())
	password = f.password.Value()

	switch {
	case username == "":
		f.err = "Username is required"
		f.focusPassword(false)
		return "", "", false
	case password == "":
		f.err = "Password is required"
		f.focusPassword(true)
		return "", "", false
	}
	f.err = ""
	return username, password, true
}

// failed keeps the username and asks for the password again.
func (f *loginForm) failed(err error) {
	f.pending = false
	f.err = err.Error()
	f.password.SetValue("")
	f.focusPassword(true)
}

func (f loginForm) view(s Styles, keys KeyMap) string {
	var b strings.Builder

	b.WriteString(s.Title.Render("Sign in"))
	b.WriteString("\n\n")

	if f.notice != "" {
		b.WriteString(s.Faint.Render(f.notice))
		b.WriteString("\n\n")
	}

	b.WriteString(f.label(s, !f.onPass, "Username"))
	b.WriteString("\n")
	b.WriteString(f.username.View())
	b.WriteString("\n\n")

	b.WriteString(f.label(s, f.onPass, "Password"))
	b.WriteString("\n")
	b.WriteString(f.password.View())
	b.WriteString("\n")

	switch {
	case f.pending:
		b.WriteString("\n")
		b.WriteString(s.Faint.Render("Signing in..."))
		b.WriteString("\n")
	case f.err != "":
		b.WriteString("\n")
		b.WriteString(s.Banner.Render(f.err))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(helpLine(s, keys.loginHelp()))

	return s.Modal.Render(b.String())
}

func (f loginForm) label(s Styles, focused bool, text string) string {
	if focused {
		return s.Focused.Render("> " + text)
	}
	return s.Label.Render("  " + text)
}
