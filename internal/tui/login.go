package tui

import (
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
)

type loginForm struct {
	email    textinput.Model
	password textinput.Model
	focused  int
	busy     bool
	// reason is shown above the form, e.g. "session expired".
	reason string
	err    string
}

func newLoginForm() loginForm {
	email := newTextInput("you@example.com")
	password := newTextInput("password")
	password.EchoMode = textinput.EchoPassword
	password.EchoCharacter = '•'
	return loginForm{email: email, password: password}
}

func (f *loginForm) focus(i int) {
	f.focused = i
	if i == 0 {
		f.email.Focus()
		f.password.Blur()
		return
	}
	f.email.Blur()
	f.password.Focus()
}

func (f *loginForm) setWidth(w int) {
	f.email.Width = w
	f.password.Width = w
}

// reset clears the password and keeps the email for the next attempt.
func (f *loginForm) reset(reason string) {
	f.password.SetValue("")
	f.busy = false
	f.reason = reason
	f.err = ""
	if strings.TrimSpace(f.email.Value()) == "" {
		f.focus(0)
	} else {
		f.focus(1)
	}
}

func (f loginForm) credentials() (email, password string) {
	return strings.TrimSpace(f.email.Value()), f.password.Value()
}

func (f loginForm) update(msg tea.Msg) (loginForm, tea.Cmd) {
	var cmd tea.Cmd
	if f.focused == 0 {
		f.email, cmd = f.email.Update(msg)
	} else {
		f.password, cmd = f.password.Update(msg)
	}
	return f, cmd
}

func (f loginForm) view(width int) string {
	bodyW := modalBodyWidth(width)
	lines := []string{}
	if f.reason != "" {
		lines = append(lines, styleError().Render(f.reason), "")
	}
	lines = append(lines,
		styleChrome().Render("Email"),
		renderInputLine(bodyW, f.email.View()),
		"",
		styleChrome().Render("Password"),
		renderInputLine(bodyW, f.password.View()),
		"",
	)
	switch {
	case f.busy:
		lines = append(lines, styleMuted().Render("Signing in…"))
	case f.err != "":
		lines = append(lines, styleError().Render(f.err))
	default:
		lines = append(lines, "")
	}
	lines = append(lines, "", styleMuted().Render("tab: next field   enter: sign in   ctrl+c: quit"))
	return renderModalBox(width, "Sign in to Surflog", strings.Join(lines, "\n"))
}
