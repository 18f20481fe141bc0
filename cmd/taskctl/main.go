// taskctl is the terminal client for the task tracker: it signs users in,
// keeps the session on disk, and opens the interactive task board.
package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/pflag"
	"golang.org/x/term"

	"github.com/geocoder89/tasktracker/internal/client"
	"github.com/geocoder89/tasktracker/internal/session"
	"github.com/geocoder89/tasktracker/internal/tui"
)

const authTimeout = 10 * time.Second

type options struct {
	sessionPath   string
	apiURL        string
	username      string
	email         string
	passwordStdin bool
}

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	var opts options

	flagSet := pflag.NewFlagSet("taskctl", pflag.ContinueOnError)
	flagSet.StringVar(&opts.sessionPath, "session", "", "session file (default: user config dir)")
	flagSet.StringVar(&opts.apiURL, "api", envOr("TASKTRACKER_API_URL", client.DefaultBaseURL), "API base URL")
	flagSet.StringVarP(&opts.username, "username", "u", "", "username for login/register")
	flagSet.StringVar(&opts.email, "email", "", "email for register")
	flagSet.BoolVar(&opts.passwordStdin, "password-stdin", false, "read the password from stdin")
	flagSet.BoolP("help", "h", false, "show help")

	if err := flagSet.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			printHelp(flagSet)
			return nil
		}
		return err
	}
	if help, _ := flagSet.GetBool("help"); help {
		printHelp(flagSet)
		return nil
	}

	command := "ui"
	if rest := flagSet.Args(); len(rest) > 0 {
		if len(rest) > 1 {
			return fmt.Errorf("unexpected argument: %s", rest[1])
		}
		command = rest[0]
	}

	if opts.sessionPath == "" {
		path, err := session.DefaultPath()
		if err != nil {
			return fmt.Errorf("locate session file: %w", err)
		}
		opts.sessionPath = path
	}

	// the client reads the token from the session it is handed to
	var sess *session.Session
	api := client.New(opts.apiURL, client.WithToken(func() string {
		if sess == nil {
			return ""
		}
		return sess.Token()
	}))

	sess, err := session.Open(opts.sessionPath, api)
	if err != nil {
		return err
	}

	in := bufio.NewReader(os.Stdin)

	switch command {
	case "login":
		return login(sess, in, opts)
	case "register":
		return register(sess, in, opts)
	case "logout":
		if err := sess.Logout(); err != nil {
			return err
		}
		fmt.Println("Logged out.")
		return nil
	case "whoami":
		u, ok := sess.CurrentUser()
		if !ok {
			fmt.Println("Not logged in.")
			return nil
		}
		fmt.Printf("%s <%s> (%s)\n", u.Username, u.Email, u.Role)
		return nil
	case "ui":
		// the board asks for credentials itself when nobody is signed in
		program := tea.NewProgram(tui.New(api, sess), tea.WithAltScreen())
		_, err := program.Run()
		return err
	default:
		return fmt.Errorf("unknown command %q (try --help)", command)
	}
}

func login(sess *session.Session, in *bufio.Reader, opts options) error {
	username, err := valueOrPrompt(in, opts.username, "Username: ")
	if err != nil {
		return err
	}
	password, err := readPassword(in, opts.passwordStdin)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), authTimeout)
	defer cancel()

	if err := sess.Login(ctx, username, password); err != nil {
		return fmt.Errorf("login failed: %w", err)
	}

	u, _ := sess.CurrentUser()
	fmt.Printf("Welcome back, %s!\n", u.Username)
	return nil
}

func register(sess *session.Session, in *bufio.Reader, opts options) error {
	username, err := valueOrPrompt(in, opts.username, "Username: ")
	if err != nil {
		return err
	}
	email, err := valueOrPrompt(in, opts.email, "Email: ")
	if err != nil {
		return err
	}
	password, err := readPassword(in, opts.passwordStdin)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), authTimeout)
	defer cancel()

	if err := sess.Register(ctx, username, email, password); err != nil {
		return fmt.Errorf("registration failed: %w", err)
	}

	u, _ := sess.CurrentUser()
	fmt.Printf("Account created. Logged in as %s.\n", u.Username)
	return nil
}

func valueOrPrompt(in *bufio.Reader, value, prompt string) (string, error) {
	if value != "" {
		return value, nil
	}
	fmt.Fprint(os.Stderr, prompt)
	line, err := in.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	line = strings.TrimSpace(line)
	if line == "" {
		return "", fmt.Errorf("%s is required", strings.TrimSuffix(strings.ToLower(prompt), ": "))
	}
	return line, nil
}

func readPassword(in *bufio.Reader, fromStdin bool) (string, error) {
	if fromStdin {
		line, err := in.ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return "", fmt.Errorf("read password: %w", err)
		}
		return strings.TrimRight(line, "\r\n"), nil
	}

	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", errors.New("no terminal available for the password prompt (use --password-stdin)")
	}

	fmt.Fprint(os.Stderr, "Password: ")
	raw, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}
	return string(raw), nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func printHelp(flagSet *pflag.FlagSet) {
	fmt.Fprintf(os.Stderr, `taskctl, terminal client for the task tracker.

Usage:
  taskctl [flags] [command]

Commands:
  ui         open the task board (default, prompts for login if needed)
  login      sign in and store the session
  register   create an account and sign in
  logout     forget the stored session
  whoami     print the signed-in user

Flags:
%s`, flagSet.FlagUsages())
}
