package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/google/subcommands"

	"fintrack/internal/cli"
	"fintrack/internal/form"
	"fintrack/internal/remote"
	"fintrack/internal/report"
	"fintrack/internal/session"
)

// env is what every command runs against. main passes it as the single
// Execute argument.
type env struct {
	app    *cli.App
	out    io.Writer
	errOut io.Writer
	in     io.Reader
	plain  bool
}

func envOf(args []interface{}) *env {
	if len(args) == 1 {
		if e, ok := args[0].(*env); ok {
			return e
		}
	}
	panic("fintrack: command executed without an environment")
}

// loader is a store as seen by the listing commands.
type loader interface {
	Load(ctx context.Context) error
	Owner() string
	Kind() string
}

// load refreshes each store. When the service is unreachable and a store
// still holds a collection for the user, a one-line notice is printed and
// the cached collection is used.
func (e *env) load(ctx context.Context, stores ...loader) error {
	for _, s := range stores {
		err := s.Load(ctx)
		if err == nil {
			continue
		}
		if transient(err) && s.Owner() != "" {
			e.notice("%s: showing cached data (%v)", s.Kind(), err)
			continue
		}
		return err
	}
	return nil
}

// transient reports whether err is a service failure that cached data may
// paper over. Rejected credentials are not.
func transient(err error) bool {
	if !errors.Is(err, remote.ErrTransport) {
		return false
	}
	switch remote.StatusCode(err) {
	case http.StatusUnauthorized, http.StatusForbidden:
		return false
	}
	return true
}

func (e *env) notice(format string, args ...any) {
	fmt.Fprintf(e.errOut, "notice: "+format+"\n", args...)
}

func (e *env) print(md string) subcommands.ExitStatus {
	if err := report.Print(e.out, md, e.plain); err != nil {
		return e.fail(err)
	}
	return subcommands.ExitSuccess
}

// fail reports err on stderr and maps it to an exit status.
func (e *env) fail(err error) subcommands.ExitStatus {
	var verr *form.ValidationError
	switch {
	case errors.Is(err, session.ErrNotAuthenticated):
		fmt.Fprintln(e.errOut, "Not signed in. Run 'fintrack login' first.")
	case errors.As(err, &verr):
		for _, field := range sortedFields(verr) {
			fmt.Fprintf(e.errOut, "%s: %s\n", field, verr.Field(field))
		}
		return subcommands.ExitUsageError
	default:
		fmt.Fprintln(e.errOut, "Error:", err)
	}
	return subcommands.ExitFailure
}

func (e *env) usage(format string, args ...any) subcommands.ExitStatus {
	fmt.Fprintf(e.errOut, format+"\n", args...)
	return subcommands.ExitUsageError
}
