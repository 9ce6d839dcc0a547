package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/basket/go-warden/pkg/governance"
)

func runProtocolCommand(ctx context.Context, a *app, args []string) int {
	if len(args) != 2 {
		fmt.Fprintln(os.Stderr, "usage: warden protocol <role> <error-type>")
		return 2
	}
	role, errorType := args[0], args[1]

	ctx, span := a.tracer.Start(ctx, "warden.protocol")
	defer span.End()

	protocol, err := a.evaluator.ResolveProtocol(ctx, role, errorType)
	if errors.Is(err, governance.ErrNotFound) {
		fmt.Fprintf(os.Stderr, "no protocol for role %q error type %q; escalate to a human\n", role, errorType)
		return 1
	}
	if err != nil {
		a.logger.Error("resolve protocol failed", "agent_role", role, "error_type", errorType, "error", err)
		return 1
	}

	fmt.Printf("[priority %d] %s\n", protocol.Priority, protocol.Protocol)
	return 0
}
