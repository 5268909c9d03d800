package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"tunebridge-go/core/channel"
	"tunebridge-go/core/command"
	"tunebridge-go/core/dispatch"
	"tunebridge-go/core/event"
	"tunebridge-go/infrastructure/transport"
)

func listChannels(out io.Writer, reg *channel.Registry, group string) error {
	cat := dispatch.BuildCatalog(reg, nil)
	if group != "" {
		g, err := channel.ParseGroup(group)
		if err != nil {
			return err
		}
		cat = cat.Filter(g)
	}

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "CHANNEL\tGROUP\tKIND")
	for _, e := range cat.Channels {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", e.Name, e.Group, e.Kind)
	}
	fmt.Fprintf(tw, "\nfingerprint %s\n", cat.Fingerprint)
	return tw.Flush()
}

// parseArgs turns command-line words into request arguments. Words that are not
// valid JSON are sent as strings.
func parseArgs(words []string) (command.Args, error) {
	args := make(command.Args, len(words))
	for i, w := range words {
		if json.Valid([]byte(w)) {
			args[i] = json.RawMessage(w)
			continue
		}
		data, err := json.Marshal(w)
		if err != nil {
			return nil, err
		}
		args[i] = data
	}
	return args, nil
}

func invoke(ctx context.Context, out io.Writer, c *transport.Client, ch channel.Channel, words []string) error {
	args, err := parseArgs(words)
	if err != nil {
		return err
	}

	resp := c.Invoke(ctx, ch, args)
	if !resp.OK() {
		return resp.Err()
	}

	var result json.RawMessage
	if err := resp.Decode(&result); err != nil {
		return err
	}
	fmt.Fprintln(out, indent(result))
	return nil
}

// listen prints events as they arrive. Listeners run on one goroutine, so
// writes to out are never concurrent.
func listen(ctx context.Context, out io.Writer, c *transport.Client, names []string) error {
	for _, name := range names {
		_, err := c.Subscribe(ctx, channel.Channel(name), func(e *event.Event) {
			fmt.Fprintln(out, formatEvent(e))
		})
		if err != nil {
			return fmt.Errorf("subscribe %s: %w", name, err)
		}
	}

	select {
	case <-ctx.Done():
		return nil
	case <-c.Done():
		return c.Err()
	}
}

func formatEvent(e *event.Event) string {
	var payload json.RawMessage
	if err := e.Decode(&payload); err != nil {
		return fmt.Sprintf("%s %s <%v>", e.At.Format("15:04:05.000"), e.Channel, err)
	}
	return fmt.Sprintf("%s %s %s", e.At.Format("15:04:05.000"), e.Channel, payload)
}

func indent(raw json.RawMessage) string {
	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "", "  "); err != nil {
		return string(raw)
	}
	return buf.String()
}
