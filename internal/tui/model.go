// Package tui is the terminal task board: a list of tasks with their
// owners, a form for creating and editing, and per-user filtering.
package tui

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/geocoder89/tasktracker/internal/client"
	"github.com/geocoder89/tasktracker/internal/domain/task"
	"github.com/geocoder89/tasktracker/internal/domain/user"
)

const defaultRequestTimeout = 10 * time.Second

// TaskAPI is the slice of the HTTP client the board needs.
type TaskAPI interface {
	ListTasksWithUsers(ctx context.Context) ([]task.Task, error)
	CreateTask(ctx context.Context, req task.CreateRequest) (task.Task, error)
	UpdateTask(ctx context.Context, id int64, req task.UpdateRequest) (task.Task, error)
	DeleteTask(ctx context.Context, id int64) error
}

// Session is the signed-in state the board shows and can change.
// *session.Session satisfies it.
type Session interface {
	CurrentUser() (user.Public, bool)
	Login(ctx context.Context, username, password string) error
	Logout() error
}

type tasksLoadedMsg struct {
	tasks []task.Task
	err   error
}

// taskSavedMsg answers a create (id == 0) or an update of id. fromForm marks
// saves submitted from the task form, as opposed to list shortcuts.
type taskSavedMsg struct {
	id       int64
	task     task.Task
	created  bool
	fromForm bool
	err      error
}

type taskDeletedMsg struct {
	id  int64
	err error
}

type loggedOutMsg struct{ err error }

type loginFailedMsg struct{ err error }

// SessionChangedMsg tells the board the signed-in user changed and the
// list must be fetched again.
type SessionChangedMsg struct{}

type mode int

const (
	modeList mode = iota
	modeForm
	modeLogin
)

type Model struct {
	api     TaskAPI
	session Session
	keys    KeyMap
	styles  Styles
	timeout time.Duration

	tasks   []task.Task
	cursor  int
	filter  int64 // owner id, 0 shows everyone
	loading bool
	err     string

	mode  mode
	form  taskForm
	login loginForm

	width int
}

// New builds the board. A nil session disables sign-in and sign-out; a
// session with nobody signed in opens on the login form.
func New(api TaskAPI, sess Session) Model {
	m := Model{
		api:     api,
		session: sess,
		keys:    DefaultKeyMap,
		styles:  DefaultStyles(),
		timeout: defaultRequestTimeout,
		loading: true,
	}

	if sess != nil {
		if _, ok := sess.CurrentUser(); !ok {
			m.loading = false
			m.mode = modeLogin
			m.login = newLoginForm("")
		}
	}
	return m
}

func (m Model) Init() tea.Cmd {
	if m.mode == modeLogin {
		return nil
	}
	return m.loadTasks()
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil

	case SessionChangedMsg:
		m.reset()
		m.mode = modeList
		m.login = loginForm{}
		m.loading = true
		return m, m.loadTasks()

	case loggedOutMsg:
		if msg.err != nil {
			m.err = msg.err.Error()
			return m, nil
		}
		m.toLogin("Signed out.", "")
		return m, nil

	case loginFailedMsg:
		m.login.failed(msg.err)
		return m, nil

	case tasksLoadedMsg:
		m.loading = false
		if msg.err != nil {
			if m.expired(msg.err) {
				return m, nil
			}
			m.err = msg.err.Error()
			return m, nil
		}
		m.tasks = msg.tasks
		m.err = ""
		m.dropStaleFilter()
		m.clampCursor()
		return m, nil

	case taskSavedMsg:
		ownForm := msg.fromForm && m.mode == modeForm && m.form.submitted(msg)
		if msg.err != nil {
			if m.expired(msg.err) {
				return m, nil
			}
			if ownForm {
				m.form.err = msg.err.Error()
			} else {
				m.err = msg.err.Error()
			}
			return m, nil
		}
		m.upsert(msg.task)
		if ownForm {
			m.mode = modeList
		}
		m.err = ""
		if msg.created {
			m.selectID(msg.task.ID)
		}
		return m, nil

	case taskDeletedMsg:
		if msg.err != nil {
			if m.expired(msg.err) {
				return m, nil
			}
			m.err = msg.err.Error()
			return m, nil
		}
		m.remove(msg.id)
		m.dropStaleFilter()
		m.clampCursor()
		return m, nil

	case tea.KeyMsg:
		switch m.mode {
		case modeForm:
			return m.updateForm(msg)
		case modeLogin:
			return m.updateLogin(msg)
		}
		return m.updateList(msg)
	}

	return m, nil
}

// reset forgets everything that belonged to the previous user.
func (m *Model) reset() {
	m.tasks = nil
	m.filter = 0
	m.cursor = 0
	m.err = ""
	m.loading = false
}

func (m *Model) toLogin(notice, username string) {
	m.reset()
	m.mode = modeLogin
	m.login = newLoginForm(username)
	m.login.notice = notice
}

// expired switches to the login form when the server rejected the token.
func (m *Model) expired(err error) bool {
	if m.session == nil || !client.IsUnauthorized(err) {
		return false
	}

	var username string
	if u, ok := m.session.CurrentUser(); ok {
		username = u.Username
	}
	m.toLogin("", username)
	m.login.err = err.Error()
	return true
}

func (m Model) updateList(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.Dismiss):
		m.err = ""

	case key.Matches(msg, m.keys.Up):
		if m.cursor > 0 {
			m.cursor--
		}

	case key.Matches(msg, m.keys.Down):
		if m.cursor < len(m.visible())-1 {
			m.cursor++
		}

	case key.Matches(msg, m.keys.Refresh):
		m.loading = true
		return m, m.loadTasks()

	case key.Matches(msg, m.keys.Filter):
		m.cycleFilter()
		m.cursor = 0

	case key.Matches(msg, m.keys.New):
		m.form = newTaskForm(nil)
		m.mode = modeForm

	case key.Matches(msg, m.keys.Edit):
		if t, ok := m.selected(); ok {
			m.form = newTaskForm(&t)
			m.mode = modeForm
		}

	case key.Matches(msg, m.keys.Status):
		if t, ok := m.selected(); ok {
			next := t.Status.Next()
			return m, m.updateTask(t.ID, task.UpdateRequest{Status: &next}, false)
		}

	case key.Matches(msg, m.keys.Delete):
		if t, ok := m.selected(); ok {
			return m, m.deleteTask(t.ID)
		}

	case key.Matches(msg, m.keys.Logout):
		if m.session != nil {
			return m, m.logout()
		}
	}

	return m, nil
}

func (m Model) updateForm(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.ForceQuit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.Cancel):
		m.mode = modeList
		return m, nil

	case key.Matches(msg, m.keys.Submit):
		if !m.form.validate() {
			return m, nil
		}
		if m.form.editing != 0 {
			return m, m.updateTask(m.form.editing, m.form.updateRequest(), true)
		}
		return m, m.createTask(m.form.createRequest(m.ownerID()))
	}

	cmd := m.form.update(msg, m.keys)
	return m, cmd
}

func (m Model) updateLogin(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.ForceQuit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.Submit):
		if m.login.pending {
			return m, nil
		}
		username, password, ok := m.login.credentials()
		if !ok {
			return m, nil
		}
		m.login.pending = true
		return m, m.signIn(username, password)
	}

	cmd := m.login.update(msg, m.keys)
	return m, cmd
}

func (m Model) ownerID() *int64 {
	if m.session == nil {
		return nil
	}
	u, ok := m.session.CurrentUser()
	if !ok {
		return nil
	}
	id := u.ID
	return &id
}

func (m Model) loadTasks() tea.Cmd {
	api, timeout := m.api, m.timeout
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		tasks, err := api.ListTasksWithUsers(ctx)
		return tasksLoadedMsg{tasks: tasks, err: err}
	}
}

func (m Model) createTask(req task.CreateRequest) tea.Cmd {
	api, timeout := m.api, m.timeout
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		t, err := api.CreateTask(ctx, req)
		return taskSavedMsg{task: t, created: true, fromForm: true, err: err}
	}
}

func (m Model) updateTask(id int64, req task.UpdateRequest, fromForm bool) tea.Cmd {
	api, timeout := m.api, m.timeout
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		t, err := api.UpdateTask(ctx, id, req)
		return taskSavedMsg{id: id, task: t, fromForm: fromForm, err: err}
	}
}

func (m Model) deleteTask(id int64) tea.Cmd {
	api, timeout := m.api, m.timeout
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		return taskDeletedMsg{id: id, err: api.DeleteTask(ctx, id)}
	}
}

func (m Model) logout() tea.Cmd {
	sess := m.session
	return func() tea.Msg {
		return loggedOutMsg{err: sess.Logout()}
	}
}

func (m Model) signIn(username, password string) tea.Cmd {
	sess, timeout := m.session, m.timeout
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		if err := sess.Login(ctx, username, password); err != nil {
			return loginFailedMsg{err: err}
		}
		return SessionChangedMsg{}
	}
}

// visible returns the tasks that pass the owner filter, in list order.
func (m Model) visible() []task.Task {
	if m.filter == 0 {
		return m.tasks
	}
	out := make([]task.Task, 0, len(m.tasks))
	for _, t := range m.tasks {
		if t.UserID != nil && *t.UserID == m.filter {
			out = append(out, t)
		}
	}
	return out
}

func (m Model) selected() (task.Task, bool) {
	v := m.visible()
	if m.cursor < 0 || m.cursor >= len(v) {
		return task.Task{}, false
	}
	return v[m.cursor], true
}

func (m *Model) clampCursor() {
	n := len(m.visible())
	if m.cursor >= n {
		m.cursor = n - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
}

func (m *Model) selectID(id int64) {
	for i, t := range m.visible() {
		if t.ID == id {
			m.cursor = i
			return
		}
	}
}

// owners lists the distinct task owners sorted by username.
func (m Model) owners() []user.Public {
	seen := make(map[int64]bool)
	var out []user.Public
	for _, t := range m.tasks {
		if t.User == nil || seen[t.User.ID] {
			continue
		}
		seen[t.User.ID] = true
		out = append(out, *t.User)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Username < out[j].Username })
	return out
}

func (m *Model) cycleFilter() {
	owners := m.owners()
	if len(owners) == 0 {
		m.filter = 0
		return
	}
	if m.filter == 0 {
		m.filter = owners[0].ID
		return
	}
	for i, o := range owners {
		if o.ID == m.filter {
			if i+1 < len(owners) {
				m.filter = owners[i+1].ID
			} else {
				m.filter = 0
			}
			return
		}
	}
	m.filter = 0
}

func (m *Model) dropStaleFilter() {
	if m.filter == 0 {
		return
	}
	for _, o := range m.owners() {
		if o.ID == m.filter {
			return
		}
	}
	m.filter = 0
}

// upsert reconciles a task returned by the server into the list. Mutation
// responses carry no owner join, so the known owner is kept.
func (m *Model) upsert(t task.Task) {
	for i := range m.tasks {
		if m.tasks[i].ID != t.ID {
			continue
		}
		if t.User == nil && sameOwner(t.UserID, m.tasks[i].UserID) {
			t.User = m.tasks[i].User
		}
		m.tasks[i] = t
		return
	}

	if t.User == nil && m.session != nil && t.UserID != nil {
		if u, ok := m.session.CurrentUser(); ok && u.ID == *t.UserID {
			t.User = &u
		}
	}
	m.tasks = append(m.tasks, t)
}

func (m *Model) remove(id int64) {
	for i := range m.tasks {
		if m.tasks[i].ID == id {
			m.tasks = append(m.tasks[:i], m.tasks[i+1:]...)
			return
		}
	}
}

func sameOwner(a, b *int64) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func (m Model) View() string {
	switch m.mode {
	case modeForm:
		return m.form.view(m.styles, m.keys)
	case modeLogin:
		return m.login.view(m.styles, m.keys)
	}

	var b strings.Builder
	s := m.styles

	b.WriteString(s.Title.Render("Task Manager"))
	if m.session != nil {
		if u, ok := m.session.CurrentUser(); ok {
			b.WriteString(s.Subtitle.Render("  Welcome back, " + u.Username + "!"))
		}
	}
	b.WriteString("\n")
	b.WriteString(s.Subtitle.Render("Filter: " + m.filterLabel()))
	b.WriteString("\n\n")

	if m.err != "" {
		b.WriteString(s.Banner.Render(m.err + "  (x to dismiss)"))
		b.WriteString("\n\n")
	}

	rows := m.visible()
	switch {
	case m.loading && len(rows) == 0:
		b.WriteString(s.Faint.Render("Loading tasks..."))
		b.WriteString("\n")
	case len(rows) == 0:
		b.WriteString(s.Faint.Render("No tasks yet. Press n to create one."))
		b.WriteString("\n")
	default:
		for i, t := range rows {
			b.WriteString(m.renderRow(t, i == m.cursor))
			b.WriteString("\n")
		}
	}

	b.WriteString("\n")
	b.WriteString(helpLine(s, m.keys.listHelp()))
	return b.String()
}

func (m Model) renderRow(t task.Task, selected bool) string {
	s := m.styles

	owner := "unassigned"
	if t.User != nil {
		owner = t.User.Username
	}

	line := fmt.Sprintf("%s %s", s.badge(t.Status), t.Title)
	if t.Description != nil && *t.Description != "" {
		line += s.Faint.Render("  " + truncate(*t.Description, 40))
	}
	line += s.Faint.Render("  @" + owner)

	if selected {
		return s.Selected.Render(">") + " " + line
	}
	return "  " + s.Row.Render(line)
}

func (m Model) filterLabel() string {
	if m.filter == 0 {
		return "all users"
	}
	for _, o := range m.owners() {
		if o.ID == m.filter {
			return o.Username
		}
	}
	return "all users"
}

func helpLine(s Styles, bindings []key.Binding) string {
	parts := make([]string, 0, len(bindings))
	for _, b := range bindings {
		h := b.Help()
		parts = append(parts, h.Key+" "+h.Desc)
	}
	return s.Help.Render(strings.Join(parts, " · "))
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
