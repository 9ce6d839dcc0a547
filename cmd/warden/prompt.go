package main

import (
	"context"
	"fmt"
	"os"
)

func runPromptCommand(ctx context.Context, a *app, args []string) int {
	if len(args) != 1 {
		fmt.Fprintln(os.Stderr, "usage: warden prompt <role>")
		return 2
	}
	role := args[0]

	ctx, span := a.tracer.Start(ctx, "warden.prompt")
	defer span.End()

	text, err := a.synthesize.Synthesize(ctx, role)
	if err != nil {
		a.logger.Error("synthesize prompt failed", "agent_role", role, "error", err)
		return 1
	}
	if text == "" {
		fmt.Fprintf(os.Stderr, "role %q has no active rules\n", role)
		return 0
	}
	fmt.Println(text)
	return 0
}
