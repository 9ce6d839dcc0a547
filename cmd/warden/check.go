package main

import (
	"context"
	"fmt"
	"os"
)

func runCheckCommand(ctx context.Context, a *app, args []string) int {
	if len(args) != 2 {
		fmt.Fprintln(os.Stderr, "usage: warden check <from-status> <to-status>")
		return 2
	}
	from, to := args[0], args[1]

	ctx, span := a.tracer.Start(ctx, "warden.check")
	defer span.End()

	decision, err := a.registry.ValidateTransition(ctx, from, to)
	if err != nil {
		a.logger.Error("validate transition failed", "from", from, "to", to, "error", err)
		return 1
	}
	if !decision.Allowed {
		fmt.Printf("rejected: %s\n", decision.Reason)
		return 1
	}
	fmt.Println("ok")
	return 0
}
