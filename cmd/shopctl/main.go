package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	cl "github.com/Parth-Sharma-Dev/smartshopping/internal/cli"
	"github.com/Parth-Sharma-Dev/smartshopping/internal/config"

	"github.com/spf13/cobra"
)

func main() {
	cfg := config.LoadCLIFromEnv()
	apiBase := cfg.APIBaseURL

	root := &cobra.Command{
		Use:          "shopctl",
		Short:        "Smart Shopping admin console",
		SilenceUsage: true,
	}

	root.PersistentFlags().StringVar(&apiBase, "api", apiBase, "API base URL")

	root.AddCommand(
		newLoginCmd(&apiBase),
		newLogoutCmd(&apiBase),
		newStatusCmd(&apiBase),
		newItemsCmd(&apiBase),
		newLeaderboardCmd(&apiBase),
		newStartCmd(&apiBase),
		newStopCmd(&apiBase),
		newResetCmd(&apiBase),
		newUpdateItemCmd(&apiBase),
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newClient(apiBase *string) *cl.Client {
	return cl.NewClient(strings.TrimRight(strings.TrimSpace(*apiBase), "/"))
}

func commandContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return context.WithTimeout(cmd.Context(), 30*time.Second)
}

func adminToken() (string, error) {
	session, err := cl.LoadSession()
	if err != nil {
		return "", err
	}
	return session.Token, nil
}

func newLoginCmd(apiBase *string) *cobra.Command {
	return &cobra.Command{
		Use:   "login",
		Short: "Authenticate as the game admin",
		RunE: func(cmd *cobra.Command, args []string) error {
			password, err := promptRequired("Admin password")
			if err != nil {
				return err
			}
			ctx, cancel := commandContext(cmd)
			defer cancel()
			token, err := newClient(apiBase).Login(ctx, password)
			if err != nil {
				return err
			}
			if err := cl.SaveSession(cl.Session{Token: token, BaseURL: *apiBase}); err != nil {
				return err
			}
			printSuccess("Login successful. Session saved.")
			return nil
		},
	}
}

func newLogoutCmd(apiBase *string) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Discard the saved admin session",
		RunE: func(cmd *cobra.Command, args []string) error {
			token, err := adminToken()
			if err == nil {
				ctx, cancel := commandContext(cmd)
				defer cancel()
				_ = newClient(apiBase).Logout(ctx, token)
			}
			if err := cl.ClearSession(); err != nil {
				return err
			}
			printSuccess("Logged out.")
			return nil
		},
	}
}

func newStatusCmd(apiBase *string) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the current round state",
		RunE: func(cmd *cobra.Command, args []string) error {
			token, err := adminToken()
			if err != nil {
				return err
			}
			ctx, cancel := commandContext(cmd)
			defer cancel()
			state, err := newClient(apiBase).State(ctx, token)
			if err != nil {
				return err
			}
			printState(state)
			return nil
		},
	}
}

func newItemsCmd(apiBase *string) *cobra.Command {
	return &cobra.Command{
		Use:   "items",
		Short: "List the shop catalog",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := commandContext(cmd)
			defer cancel()
			items, err := newClient(apiBase).Items(ctx)
			if err != nil {
				return err
			}
			printItems(items)
			return nil
		},
	}
}

func newLeaderboardCmd(apiBase *string) *cobra.Command {
	return &cobra.Command{
		Use:   "leaderboard",
		Short: "Show the player leaderboard",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := commandContext(cmd)
			defer cancel()
			entries, err := newClient(apiBase).Leaderboard(ctx)
			if err != nil {
				return err
			}
			printLeaderboard(entries)
			return nil
		},
	}
}

func newStartCmd(apiBase *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start a new round",
		RunE: func(cmd *cobra.Command, args []string) error {
			token, err := adminToken()
			if err != nil {
				return err
			}
			ctx, cancel := commandContext(cmd)
			defer cancel()
			state, err := newClient(apiBase).StartGame(ctx, token)
			if err != nil {
				return err
			}
			printSuccess("Round started.")
			printState(state)
			return nil
		},
	}
}

func newStopCmd(apiBase *string) *cobra.Command {
	return &cobra.Command{
		Use:   "stop",
		Short: "Stop the active round and rank winners",
		RunE: func(cmd *cobra.Command, args []string) error {
			token, err := adminToken()
			if err != nil {
				return err
			}
			ctx, cancel := commandContext(cmd)
			defer cancel()
			result, err := newClient(apiBase).StopGame(ctx, token)
			if err != nil {
				return err
			}
			printSuccess("Round stopped.")
			printStopResult(result)
			return nil
		},
	}
}

func newResetCmd(apiBase *string) *cobra.Command {
	var topN int
	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Reset players and catalog for the next round",
		RunE: func(cmd *cobra.Command, args []string) error {
			token, err := adminToken()
			if err != nil {
				return err
			}
			ctx, cancel := commandContext(cmd)
			defer cancel()
			result, err := newClient(apiBase).ResetGame(ctx, token, topN)
			if err != nil {
				return err
			}
			if msg, ok := result["message"].(string); ok && msg != "" {
				printSuccess(msg)
			} else {
				printSuccess("Reset complete.")
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&topN, "top", 0, "keep only the top N players, eliminate the rest")
	return cmd
}

func newUpdateItemCmd(apiBase *string) *cobra.Command {
	var (
		basePrice    float64
		currentPrice float64
		stock        int
	)
	cmd := &cobra.Command{
		Use:   "update-item <id>",
		Short: "Override an item's price or stock",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			itemID, err := parseItemID(args[0])
			if err != nil {
				return err
			}
			patch := map[string]any{}
			if cmd.Flags().Changed("base-price") {
				patch["base_price"] = basePrice
			}
			if cmd.Flags().Changed("price") {
				patch["current_price"] = currentPrice
			}
			if cmd.Flags().Changed("stock") {
				patch["current_stock"] = stock
			}
			if len(patch) == 0 {
				return fmt.Errorf("nothing to update, pass --base-price, --price, or --stock")
			}
			token, err := adminToken()
			if err != nil {
				return err
			}
			ctx, cancel := commandContext(cmd)
			defer cancel()
			item, err := newClient(apiBase).UpdateItem(ctx, token, itemID, patch)
			if err != nil {
				return err
			}
			printSuccess("Item updated.")
			printItems([]map[string]any{item})
			return nil
		},
	}
	cmd.Flags().Float64Var(&basePrice, "base-price", 0, "new base price")
	cmd.Flags().Float64Var(&currentPrice, "price", 0, "new current price")
	cmd.Flags().IntVar(&stock, "stock", 0, "new stock level")
	return cmd
}
