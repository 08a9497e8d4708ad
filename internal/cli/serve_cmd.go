// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/luoli0706/Ning-Prompt/internal/mcp"
	"github.com/luoli0706/Ning-Prompt/internal/server"
)

// HandleServe handles "ningprompt serve". It blocks until SIGINT or SIGTERM.
func HandleServe(ctx context.Context, app *App, args Args) error {
	snap := app.Store.Snapshot()
	addr := snap.Server.Addr
	if args.Addr != "" {
		addr = args.Addr
	}

	rpc := mcp.NewHandler(app.Processor, app.Templates, app.Store, app.logger())
	srv := server.New(server.Config{
		Addr:        addr,
		BearerToken: snap.Server.BearerToken,
		RateLimit:   snap.Server.RateLimit,
		RateBurst:   snap.Server.RateBurst,
		Version:     Version,
		Logger:      app.logger(),
	}, rpc, app.Processor)

	fmt.Fprintf(app.Stderr, "%s listening on http://%s\n", RenderConditional(SuccessStyle, "ningprompt"), srv.Addr())
	if snap.Server.BearerToken == "" {
		fmt.Fprintln(app.Stderr, RenderConditional(WarningStyle, "[WARN] no server.bearer_token set; the API is open to anyone who can reach it"))
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	return srv.Run(ctx)
}
