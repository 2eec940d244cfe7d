package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func registerCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "register [name]",
		Short: "Register a counter on the server",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c := newClient(newLogger())
			if err := c.Register(cmd.Context(), args[0]); err != nil {
				return fmt.Errorf("register: %w", err)
			}
			fmt.Printf("Registered %s\n", args[0])
			return nil
		},
	}
}

func hitCmd() *cobra.Command {
	var times int

	cmd := &cobra.Command{
		Use:   "hit [name]",
		Short: "Increment a counter on the server",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if times <= 0 {
				return fmt.Errorf("hit: --times must be greater than 0")
			}
			c := newClient(newLogger())
			for i := 0; i < times; i++ {
				if err := c.Increment(cmd.Context(), args[0]); err != nil {
					return fmt.Errorf("hit: after %d increments: %w", i, err)
				}
			}
			fmt.Printf("Incremented %s %d times\n", args[0], times)
			return nil
		},
	}

	cmd.Flags().IntVarP(&times, "times", "n", 1, "number of increments to send")
	return cmd
}

func leaderboardCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "leaderboard",
		Short: "Show all counters on the server",
		RunE: func(cmd *cobra.Command, args []string) error {
			c := newClient(newLogger())
			out, err := c.Counters(cmd.Context())
			if err != nil {
				return fmt.Errorf("leaderboard: %w", err)
			}

			fmt.Printf("Counters: %d\n\n", out.Total)
			for _, cv := range out.Counters {
				fmt.Printf("  %-24s %12d  %8d req/s\n", truncate(cv.Name, 24), cv.Count, cv.Rate)
			}
			if out.Leader != "" {
				fmt.Printf("\nCurrent winner: %s\n", out.Leader)
			}
			return nil
		},
	}
}

func healthCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check that the server is reachable",
		RunE: func(cmd *cobra.Command, args []string) error {
			c := newClient(newLogger())
			if err := c.Health(cmd.Context()); err != nil {
				fmt.Printf("uvb server: FAIL (%v)\n", err)
				return fmt.Errorf("health check failed")
			}
			fmt.Println("uvb server: OK")
			return nil
		},
	}
}

func truncate(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) > maxLen {
		return string(runes[:maxLen-3]) + "..."
	}
	return s
}
