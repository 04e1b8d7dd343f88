package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"mercator-hq/minos/pkg/decision"
)

var decideFlags struct {
	requestID string
	context   []string
	memory    bool
	timeout   time.Duration
	format    string
}

var decideCmd = &cobra.Command{
	Use:   "decide [text]",
	Short: "Judge a single input",
	Long: `Run one input through the full decision pipeline and print the result.

The input text is taken from the argument, or from stdin when no argument
is given. The finalized decision is recorded as a precedent unless it
escalates or --memory is set.

Examples:
  # Judge a literal input
  minos decide "please delete all production data"

  # Judge stdin with request context
  cat request.txt | minos decide --ctx user_tier=free --ctx region=eu

  # One-shot evaluation without touching the precedent store
  minos decide --memory "test input"`,
	Args: cobra.MaximumNArgs(1),
	RunE: runDecide,
}

func init() {
	rootCmd.AddCommand(decideCmd)

	decideCmd.Flags().StringVar(&decideFlags.requestID, "request-id", "", "request id (generated when empty)")
	decideCmd.Flags().StringArrayVar(&decideFlags.context, "ctx", nil, "request context attribute as key=value (repeatable)")
	decideCmd.Flags().BoolVar(&decideFlags.memory, "memory", false, "use in-memory storage instead of the configured store")
	decideCmd.Flags().DurationVar(&decideFlags.timeout, "timeout", 30*time.Second, "overall decision deadline")
	decideCmd.Flags().StringVar(&decideFlags.format, "format", "json", "output format (json, text)")
}

func runDecide(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := newLogger(cfg)

	text, err := decideInput(args)
	if err != nil {
		return err
	}

	reqContext, err := parseContextFlags(decideFlags.context)
	if err != nil {
		return err
	}

	system, err := decision.Build(cfg, &decision.Options{
		InMemoryStorage: decideFlags.memory,
	}, nil, logger)
	if err != nil {
		return err
	}
	defer system.Close()

	ctx, cancel := context.WithTimeout(context.Background(), decideFlags.timeout)
	defer cancel()

	if !decideFlags.memory {
		if _, err := system.Precedents.RebuildIndex(ctx); err != nil {
			logger.Warn("index rebuild failed", "error", err)
		}
	}

	result, err := system.Engine.Decide(ctx, &decision.Request{
		RequestID: decideFlags.requestID,
		InputText: text,
		Context:   reqContext,
	})
	if err != nil {
		return err
	}

	if decideFlags.format == "text" {
		fmt.Printf("verdict:    %s\n", result.Verdict)
		fmt.Printf("confidence: %.2f\n", result.Confidence)
		fmt.Printf("reason:     %s\n", result.Reason)
		if result.Escalated {
			fmt.Println("escalated:  yes")
		}
		if result.PrecedentID != "" {
			fmt.Printf("precedent:  %s\n", result.PrecedentID)
		}
		return nil
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}

func decideInput(args []string) (string, error) {
	if len(args) == 1 {
		return args[0], nil
	}
	data, err := io.ReadAll(os.Stdin)
	if err != nil {
		return "", fmt.Errorf("read stdin: %w", err)
	}
	text := strings.TrimSpace(string(data))
	if text == "" {
		return "", fmt.Errorf("no input text given")
	}
	return text, nil
}

func parseContextFlags(pairs []string) (map[string]string, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	ctx := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid context attribute %q, expected key=value", pair)
		}
		ctx[key] = value
	}
	return ctx, nil
}
