package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/basket/go-warden/pkg/governance"
)

func runEvaluateCommand(ctx context.Context, a *app, args []string) int {
	fs := flag.NewFlagSet("evaluate", flag.ContinueOnError)
	role := fs.String("role", "", "agent role to evaluate against")
	dataPath := fs.String("data", "-", "task data JSON file, - for stdin")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if *role == "" || fs.NArg() != 0 {
		fmt.Fprintln(os.Stderr, "usage: warden evaluate -role <role> [-data <file>]")
		return 2
	}

	var raw []byte
	var err error
	if *dataPath == "-" {
		raw, err = io.ReadAll(os.Stdin)
	} else {
		raw, err = os.ReadFile(*dataPath)
	}
	if err != nil {
		a.logger.Error("read task data failed", "error", err)
		return 1
	}

	var data governance.TaskData
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &data); err != nil {
			fmt.Fprintf(os.Stderr, "task data must be a JSON object: %v\n", err)
			return 2
		}
	}

	ctx, span := a.tracer.Start(ctx, "warden.evaluate")
	defer span.End()

	result, err := a.evaluator.EvaluateCompletion(ctx, *role, data)
	if err != nil {
		a.logger.Error("evaluate completion failed", "agent_role", *role, "error", err)
		return 1
	}

	out, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		a.logger.Error("encode result failed", "error", err)
		return 1
	}
	fmt.Println(string(out))
	if !result.CanComplete {
		return 1
	}
	return 0
}
