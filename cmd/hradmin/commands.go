package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/fatih/color"
	"github.com/jrsteele09/go-hr-admin/hrapi"
	apperrors "github.com/jrsteele09/go-hr-admin/internal/errors"
	"github.com/jrsteele09/go-hr-admin/internal/utils"
	"github.com/rs/zerolog/log"
)

var errNotSignedIn = errors.New("not signed in, run `hradmin login`")

type command struct {
	summary string
	run     func(ctx context.Context, a *app, args []string) error
}

var commands = map[string]command{
	"login":    {"sign in with an admin account", loginCmd},
	"logout":   {"forget the stored session", logoutCmd},
	"whoami":   {"show the signed in user", whoamiCmd},
	"overview": {"print the team overview as JSON", overviewCmd},
	"timeoff":  {"list time-off requests", timeOffCmd},
	"watch":    {"follow sign in and sign out, optionally serving metrics", watchCmd},
}

func commandNames() []string {
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func newFlagSet(a *app, name string) *flag.FlagSet {
	fs := flag.NewFlagSet("hradmin "+name, flag.ContinueOnError)
	fs.SetOutput(a.stderr)
	return fs
}

func loginCmd(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet(a, "login")
	email := fs.String("email", "", "account email")
	password := fs.String("password", "", "account password, read from stdin when empty")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *email == "" {
		return fmt.Errorf("%w: -email is required", apperrors.ErrInvalidRequest)
	}
	if *password == "" {
		fmt.Fprint(a.stderr, "Password: ")
		line, err := bufio.NewReader(a.stdin).ReadString('\n')
		if err != nil && line == "" {
			return fmt.Errorf("read password: %w", err)
		}
		*password = strings.TrimRight(line, "\r\n")
	}

	result := a.auth.Login(ctx, *email, *password)
	if !result.Success {
		return errors.New(result.Error)
	}
	user := a.auth.User()
	color.New(color.FgGreen).Fprintf(a.stdout, "Signed in as %s (%s)\n", user.Email, user.Role)
	return nil
}

func logoutCmd(ctx context.Context, a *app, args []string) error {
	if err := newFlagSet(a, "logout").Parse(args); err != nil {
		return err
	}
	if err := a.auth.Logout(ctx); err != nil {
		return err
	}
	fmt.Fprintln(a.stdout, "Signed out")
	return nil
}

func whoamiCmd(_ context.Context, a *app, args []string) error {
	if err := newFlagSet(a, "whoami").Parse(args); err != nil {
		return err
	}
	if !a.auth.IsAuthenticated() {
		return errNotSignedIn
	}

	user, session := a.auth.User(), a.auth.Session()
	w := tabwriter.NewWriter(a.stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "Email:\t%s\n", user.Email)
	fmt.Fprintf(w, "Name:\t%s\n", user.FullName)
	fmt.Fprintf(w, "Role:\t%s\n", user.Role)
	if exp := session.Expiry(); !exp.IsZero() {
		state := "valid"
		if session.Expired() {
			state = "expired, refreshed on next request"
		}
		fmt.Fprintf(w, "Token:\t%s until %s\n", state, exp.Local().Format(time.RFC3339))
	}
	return w.Flush()
}

func overviewCmd(ctx context.Context, a *app, args []string) error {
	if err := newFlagSet(a, "overview").Parse(args); err != nil {
		return err
	}
	if !a.auth.IsAuthenticated() {
		return errNotSignedIn
	}

	overview, err := a.analytics.Overview(ctx)
	if err != nil {
		return err
	}
	return writeJSON(a, overview)
}

func timeOffCmd(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet(a, "timeoff")
	page := fs.Int("page", 1, "page number")
	limit := fs.Int("limit", hrapi.DefaultTimeOffLimit, "requests per page")
	statusFlag := fs.String("status", string(hrapi.StatusAll), "ALL, PENDING, APPROVED, REJECTED or CANCELLED")
	search := fs.String("search", "", "filter by requester")
	asJSON := fs.Bool("json", false, "print JSON instead of a table")
	if err := fs.Parse(args); err != nil {
		return err
	}
	status, err := hrapi.ParseTimeOffStatus(*statusFlag)
	if err != nil {
		return err
	}
	if !a.auth.IsAuthenticated() {
		return errNotSignedIn
	}

	result, err := a.timeOff.List(ctx, hrapi.TimeOffQuery{Page: *page, Limit: *limit, Status: status, Search: *search})
	if err != nil {
		return err
	}
	if *asJSON {
		return writeJSON(a, result)
	}

	w := tabwriter.NewWriter(a.stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tREQUESTER\tFROM\tTO\tSTATUS\tREVIEWER\tREASON")
	for _, r := range result.Requests {
		requester := utils.Value(r.RequesterName)
		if requester == "" {
			requester = utils.Value(r.RequesterEmail)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			r.ID, requester, r.StartDate, r.EndDate, r.Status, utils.Value(r.ReviewerName), r.Reason)
	}
	p := result.Pagination
	fmt.Fprintf(w, "\nPage %d / %d (%d total)\n", p.Page, p.TotalPages, p.Total)
	return w.Flush()
}

func watchCmd(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet(a, "watch")
	interval := fs.Duration("interval", 0, "poll the team overview this often, 0 disables polling")
	metricsAddr := fs.String("metrics-addr", "", "serve Prometheus metrics on this address, e.g. :9090")
	if err := fs.Parse(args); err != nil {
		return err
	}

	displayAppname(a.stdout, a.cfg.GetAppName())
	printAuthState(a)
	unsubscribe := a.store.Subscribe(func() { printAuthState(a) })
	defer unsubscribe()

	go func() {
		err := a.store.Watch(ctx)
		switch {
		case errors.Is(err, apperrors.ErrWatchUnsupported):
			log.Info().Str("backend", string(a.cfg.GetStorageBackend())).Msg("Storage does not relay changes from other processes")
		case err != nil && ctx.Err() == nil:
			log.Err(err).Msg("Stopped watching storage")
		}
	}()

	if *metricsAddr != "" {
		go func() {
			if err := serveMetrics(ctx, *metricsAddr, a.registry); err != nil {
				log.Err(err).Msg("Metrics server stopped")
			}
		}()
	}

	var tick <-chan time.Time
	if *interval > 0 {
		ticker := time.NewTicker(*interval)
		defer ticker.Stop()
		tick = ticker.C
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-tick:
			if !a.auth.IsAuthenticated() {
				continue
			}
			overview, err := a.analytics.Overview(ctx)
			if err != nil {
				log.Err(err).Msg("Overview poll failed")
				continue
			}
			log.Info().Int("total_members", overview.TotalMembers).Msg("Overview")
		}
	}
}

func printAuthState(a *app) {
	now := time.Now().Format(time.TimeOnly)
	if user := a.auth.User(); user != nil {
		color.New(color.FgGreen).Fprintf(a.stdout, "%s signed in as %s (%s)\n", now, user.Email, user.Role)
		return
	}
	color.New(color.FgYellow).Fprintf(a.stdout, "%s signed out\n", now)
}

func writeJSON(a *app, v any) error {
	enc := json.NewEncoder(a.stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
