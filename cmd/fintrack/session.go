package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"strings"
	"time"

	"github.com/google/subcommands"

	"fintrack/internal/session"
)

type loginCmd struct {
	email    string
	password string
	userID   string
	token    string
}

func (*loginCmd) Name() string     { return "login" }
func (*loginCmd) Synopsis() string { return "sign in and remember the session" }
func (*loginCmd) Usage() string {
	return `fintrack login -email <email> [-password <password>]
fintrack login -user <uuid> [-token <token>]

  Signs in against the identity provider configured by AUTH_URL. The password
  is read from standard input when -password is omitted. With -user the
  session is installed directly, which is how the dev server is used.
`
}

func (c *loginCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.email, "email", "", "Account email.")
	f.StringVar(&c.password, "password", "", "Account password. Read from stdin when empty.")
	f.StringVar(&c.userID, "user", "", "Use this user id without contacting the identity provider.")
	f.StringVar(&c.token, "token", "", "Access token to present with -user.")
}

func (c *loginCmd) Execute(ctx context.Context, _ *flag.FlagSet, args ...interface{}) subcommands.ExitStatus {
	e := envOf(args)
	sessions := e.app.Sessions

	if c.userID != "" {
		if err := sessions.Set(session.Session{UserID: c.userID, Email: c.email, AccessToken: c.token}); err != nil {
			return e.fail(err)
		}
		fmt.Fprintf(e.out, "Signed in as %s\n", c.userID)
		return subcommands.ExitSuccess
	}

	if c.email == "" {
		return e.usage("login: -email or -user is required")
	}
	password := c.password
	if password == "" {
		line, err := bufio.NewReader(e.in).ReadString('\n')
		if err != nil && line == "" {
			return e.usage("login: no password given")
		}
		password = strings.TrimRight(line, "\r\n")
	}

	s, err := sessions.SignIn(ctx, c.email, password)
	if err != nil {
		return e.fail(err)
	}
	fmt.Fprintf(e.out, "Signed in as %s (%s)\n", s.Email, s.UserID)
	return subcommands.ExitSuccess
}

type logoutCmd struct{}

func (*logoutCmd) Name() string     { return "logout" }
func (*logoutCmd) Synopsis() string { return "sign out and forget cached data" }
func (*logoutCmd) Usage() string {
	return `fintrack logout

  Ends the session and deletes the local snapshots of the user's collections.
`
}
func (*logoutCmd) SetFlags(*flag.FlagSet) {}

func (*logoutCmd) Execute(ctx context.Context, _ *flag.FlagSet, args ...interface{}) subcommands.ExitStatus {
	e := envOf(args)
	if err := e.app.SignOut(ctx); err != nil {
		// The local session is gone even when the provider call failed.
		e.notice("%v", err)
	}
	fmt.Fprintln(e.out, "Signed out")
	return subcommands.ExitSuccess
}

type whoamiCmd struct{}

func (*whoamiCmd) Name() string     { return "whoami" }
func (*whoamiCmd) Synopsis() string { return "show the signed-in user" }
func (*whoamiCmd) Usage() string {
	return `fintrack whoami
`
}
func (*whoamiCmd) SetFlags(*flag.FlagSet) {}

func (*whoamiCmd) Execute(ctx context.Context, _ *flag.FlagSet, args ...interface{}) subcommands.ExitStatus {
	e := envOf(args)
	s, err := e.app.Sessions.Current(ctx)
	if err != nil {
		return e.fail(err)
	}
	fmt.Fprintf(e.out, "User:    %s\n", s.UserID)
	if s.Email != "" {
		fmt.Fprintf(e.out, "Email:   %s\n", s.Email)
	}
	if !s.ExpiresAt.IsZero() {
		fmt.Fprintf(e.out, "Expires: %s\n", s.ExpiresAt.Local().Format(time.RFC1123))
	}
	return subcommands.ExitSuccess
}
