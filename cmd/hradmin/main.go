package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"

	"github.com/common-nighthawk/go-figure"
	"github.com/jrsteele09/go-hr-admin/internal/config"
	"github.com/jrsteele09/go-hr-admin/internal/logging"
	"github.com/rs/zerolog/log"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr)
	stop()

	switch {
	case err == nil:
	case errors.Is(err, flag.ErrHelp):
		os.Exit(2)
	default:
		fmt.Fprintf(os.Stderr, "hradmin: %s\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) (returnError error) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Str("stack", string(debug.Stack())).Msg("Recovered from panic")
			returnError = errors.New("panic recovered")
		}
	}()

	global := flag.NewFlagSet("hradmin", flag.ContinueOnError)
	global.SetOutput(stderr)
	configPath := global.String("config", os.Getenv("HRADMIN_CONFIG"), "YAML config file; environment variables override it")
	global.Usage = func() {
		fmt.Fprintf(stderr, "usage: hradmin [-config file] <command> [flags]\n\ncommands:\n")
		for _, name := range commandNames() {
			fmt.Fprintf(stderr, "  %-9s %s\n", name, commands[name].summary)
		}
	}
	if err := global.Parse(args); err != nil {
		return err
	}
	if global.NArg() == 0 {
		global.Usage()
		return flag.ErrHelp
	}

	cmd, ok := commands[global.Arg(0)]
	if !ok {
		global.Usage()
		return fmt.Errorf("unknown command %q", global.Arg(0))
	}

	c, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	logging.Setup(c.GetEnv(), c.GetLogLevel())

	a, err := newApp(ctx, c, stdin, stdout, stderr)
	if err != nil {
		return err
	}
	defer a.Close()

	return cmd.run(ctx, a, global.Args()[1:])
}

func displayAppname(w io.Writer, appname string) {
	myFigure := figure.NewFigure(appname, "cybermedium", true)
	fmt.Fprintln(w, myFigure.String())
}
