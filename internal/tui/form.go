package tui

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/geocoder89/tasktracker/internal/domain/task"
)

type formField int

const (
	fieldTitle formField = iota
	fieldDescription
	fieldStatus
	fieldCount
)

// taskForm edits a new task (editing == 0) or an existing one.
type taskForm struct {
	editing     int64
	title       textinput.Model
	description textinput.Model
	status      task.Status
	focus       formField
	err         string
}

func newTaskForm(t *task.Task) taskForm {
	title := textinput.New()
	title.Placeholder = "Task title"
	title.CharLimit = 255
	title.Prompt = ""

	desc := textinput.New()
	desc.Placeholder = "Optional description"
	desc.CharLimit = 5000
	desc.Prompt = ""

	f := taskForm{
		title:       title,
		description: desc,
		status:      task.DefaultStatus,
	}

	if t != nil {
		f.editing = t.ID
		f.title.SetValue(t.Title)
		if t.Description != nil {
			f.description.SetValue(*t.Description)
		}
		if t.Status.IsValid() {
			f.status = t.Status
		}
	}

	f.title.Focus()
	return f
}

func (f *taskForm) setFocus(field formField) {
	f.focus = (field + fieldCount) % fieldCount
	f.title.Blur()
	f.description.Blur()

	switch f.focus {
	case fieldTitle:
		f.title.Focus()
	case fieldDescription:
		f.description.Focus()
	}
}

func (f *taskForm) prevStatus() {
	for i, st := range task.Statuses {
		if st == f.status {
			f.status = task.Statuses[(i+len(task.Statuses)-1)%len(task.Statuses)]
			return
		}
	}
	f.status = task.DefaultStatus
}

// update handles navigation keys and forwards the rest to the focused input.
func (f *taskForm) update(msg tea.KeyMsg, keys KeyMap) tea.Cmd {
	switch {
	case key.Matches(msg, keys.NextField):
		f.setFocus(f.focus + 1)
		return nil
	case key.Matches(msg, keys.PrevField):
		f.setFocus(f.focus - 1)
		return nil
	}

	if f.focus == fieldStatus {
		switch {
		case key.Matches(msg, keys.OptionNext):
			f.status = f.status.Next()
		case key.Matches(msg, keys.OptionPrev):
			f.prevStatus()
		}
		return nil
	}

	var cmd tea.Cmd
	if f.focus == fieldTitle {
		f.title, cmd = f.title.Update(msg)
	} else {
		f.description, cmd = f.description.Update(msg)
	}
	return cmd
}

// validate mirrors the server rules so an obviously bad form never leaves the client.
func (f *taskForm) validate() bool {
	if strings.TrimSpace(f.title.Value()) == "" {
		f.err = "Title is required"
		f.setFocus(fieldTitle)
		return false
	}
	f.err = ""
	return true
}

// submitted reports whether msg answers this form's own submit.
func (f taskForm) submitted(msg taskSavedMsg) bool {
	if msg.created {
		return f.editing == 0
	}
	return f.editing != 0 && f.editing == msg.id
}

func (f taskForm) createRequest(owner *int64) task.CreateRequest {
	req := task.CreateRequest{
		Title:  strings.TrimSpace(f.title.Value()),
		Status: f.status,
		UserID: owner,
	}
	if d := f.description.Value(); d != "" {
		req.Description = &d
	}
	return req
}

func (f taskForm) updateRequest() task.UpdateRequest {
	title := strings.TrimSpace(f.title.Value())
	desc := f.description.Value()
	status := f.status
	return task.UpdateRequest{
		Title:       &title,
		Description: &desc,
		Status:      &status,
	}
}

func (f taskForm) view(s Styles, keys KeyMap) string {
	var b strings.Builder

	heading := "New Task"
	if f.editing != 0 {
		heading = "Edit Task"
	}
	b.WriteString(s.Title.Render(heading))
	b.WriteString("\n\n")

	b.WriteString(f.label(s, fieldTitle, "Title"))
	b.WriteString("\n")
	b.WriteString(f.title.View())
	b.WriteString("\n\n")

	b.WriteString(f.label(s, fieldDescription, "Description"))
	b.WriteString("\n")
	b.WriteString(f.description.View())
	b.WriteString("\n\n")

	b.WriteString(f.label(s, fieldStatus, "Status"))
	b.WriteString("\n")
	for i, st := range task.Statuses {
		if i > 0 {
			b.WriteString("  ")
		}
		if st == f.status {
			b.WriteString(s.Selected.Render(" " + statusLabel(st) + " "))
		} else {
			b.WriteString(s.Faint.Render(" " + statusLabel(st) + " "))
		}
	}
	b.WriteString("\n")

	if f.err != "" {
		b.WriteString("\n")
		b.WriteString(s.Banner.Render(f.err))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(helpLine(s, keys.formHelp()))

	return s.Modal.Render(b.String())
}

func (f taskForm) label(s Styles, field formField, text string) string {
	if f.focus == field {
		return s.Focused.Render("> " + text)
	}
	return s.Label.Render("  " + text)
}
