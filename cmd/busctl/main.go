// Package main is busctl, a diagnostic client for the tunebridge backend.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"tunebridge-go/core/channel"
	"tunebridge-go/infrastructure/logging"
	"tunebridge-go/infrastructure/transport"
)

const usage = `usage: busctl <command> [flags] [args]

commands:
  channels [--group G]             list the channel catalog
  invoke <channel> [json-arg...]   send a request and print its response
  listen <channel>...              print events until interrupted
`

type options struct {
	url      string
	timeout  time.Duration
	logLevel string
}

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, "busctl:", err)
		os.Exit(1)
	}
}

func run(args []string, out io.Writer) error {
	if len(args) == 0 {
		fmt.Fprint(os.Stderr, usage)
		return errors.New("missing command")
	}

	name, rest := args[0], args[1:]
	var opts options
	flags := pflag.NewFlagSet("busctl "+name, pflag.ContinueOnError)
	flags.StringVar(&opts.url, "url", "ws://127.0.0.1:7638/ipc", "backend endpoint")
	flags.DurationVar(&opts.timeout, "timeout", 30*time.Second, "request timeout")
	flags.StringVar(&opts.logLevel, "log-level", "warn", "debug, info, warn or error")
	group := flags.StringP("group", "g", "", "restrict channels to one group")
	if err := flags.Parse(rest); err != nil {
		return err
	}

	registry, err := channel.NewDefaultRegistry()
	if err != nil {
		return err
	}

	switch name {
	case "channels":
		return listChannels(out, registry, *group)
	case "invoke":
		if flags.NArg() < 1 {
			return errors.New("invoke needs a channel")
		}
		return withClient(registry, opts, func(ctx context.Context, c *transport.Client) error {
			return invoke(ctx, out, c, channel.Channel(flags.Arg(0)), flags.Args()[1:])
		})
	case "listen":
		if flags.NArg() < 1 {
			return errors.New("listen needs at least one channel")
		}
		return withClient(registry, opts, func(ctx context.Context, c *transport.Client) error {
			return listen(ctx, out, c, flags.Args())
		})
	default:
		fmt.Fprint(os.Stderr, usage)
		return fmt.Errorf("unknown command %q", name)
	}
}

func withClient(reg *channel.Registry, opts options, fn func(ctx context.Context, c *transport.Client) error) error {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logging.ParseLevel(opts.logLevel)}))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dialCtx, cancel := context.WithTimeout(ctx, opts.timeout)
	defer cancel()

	c, err := transport.Dial(dialCtx, &transport.ClientConfig{
		URL:      opts.url,
		Registry: reg,
		Timeout:  opts.timeout,
		Logger:   logger,
	})
	if err != nil {
		return err
	}
	defer c.Close()

	return fn(ctx, c)
}
