package application

import (
	"context"
	"time"

	"tunebridge-go/core/channel"
	"tunebridge-go/core/command"
)

// PingResult is returned by system:ping.
type PingResult struct {
	Pong bool  `json:"pong"`
	At   int64 `json:"at"`
}

// VersionInfo is returned by system:getVersion.
type VersionInfo struct {
	Version     string `json:"version"`
	Fingerprint string `json:"fingerprint"`
	Channels    int    `json:"channels"`
	StartedAt   int64  `json:"startedAt,omitempty"`
}

func (b *Backend) systemBindings() []binding {
	return []binding{
		{channel.SystemPing, command.NoArgs(b.ping)},
		{channel.SystemGetVersion, command.NoArgs(b.getVersion)},
		{channel.SystemGetChannels, b.getChannels},
	}
}

func (b *Backend) ping(ctx context.Context) (any, error) {
	return PingResult{Pong: true, At: time.Now().UnixMilli()}, nil
}

func (b *Backend) getVersion(ctx context.Context) (any, error) {
	reg := b.dispatcher.Registry()
	info := VersionInfo{
		Version:     b.version,
		Fingerprint: reg.Fingerprint(),
		Channels:    reg.Len(),
	}
	if !b.startedAt.IsZero() {
		info.StartedAt = b.startedAt.UnixMilli()
	}
	return info, nil
}

// getChannels lists the catalog, optionally restricted to the group named by
// the first argument.
func (b *Backend) getChannels(ctx context.Context, req *command.Request) (any, error) {
	cat := b.dispatcher.Catalog()
	if req.Args.Len() == 0 {
		return cat, nil
	}

	var tag string
	if err := req.Args.Decode(0, &tag); err != nil {
		return nil, err
	}
	g, err := channel.ParseGroup(tag)
	if err != nil {
		return nil, err
	}
	return cat.Filter(g), nil
}
