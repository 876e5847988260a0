package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"
)

type options struct {
	baseURL string
	token   string
	timeout time.Duration
}

func (o *options) client() *apiClient {
	return newAPIClient(o.baseURL, o.token, o.timeout)
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	rootCmd := &cobra.Command{
		Use:           "merchledger-cli",
		Short:         "Merch store CLI tool",
		Long:          `A command line interface for interacting with the merch store coin ledger API.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&opts.baseURL, "url", "http://localhost:8080", "Base URL of the API")
	rootCmd.PersistentFlags().StringVar(&opts.token, "token", os.Getenv("MERCHLEDGER_TOKEN"), "Bearer token (defaults to $MERCHLEDGER_TOKEN)")
	rootCmd.PersistentFlags().DurationVar(&opts.timeout, "timeout", 10*time.Second, "Request timeout")

	rootCmd.AddCommand(
		authCmd(opts),
		infoCmd(opts),
		sendCmd(opts),
		buyCmd(opts),
		catalogCmd(opts),
		ledgerCmd(opts),
		hashPasswordCmd(),
	)

	return rootCmd
}

func authCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "auth <username> <password>",
		Short: "Log in (registering unknown users) and print the token",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var resp struct {
				Token string `json:"token"`
			}

			body := map[string]string{"username": args[0], "password": args[1]}
			if err := opts.client().do(cmd.Context(), http.MethodPost, "/api/auth", body, &resp, nil); err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), resp.Token)
			return nil
		},
	}
}

func infoCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "info",
		Short: "Show balance, inventory and coin history",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var resp json.RawMessage
			if err := opts.client().do(cmd.Context(), http.MethodGet, "/api/info", nil, &resp, nil); err != nil {
				return err
			}

			return printJSON(cmd.OutOrStdout(), resp)
		},
	}
}

func sendCmd(opts *options) *cobra.Command {
	var idempotencyKey string

	cmd := &cobra.Command{
		Use:   "send <username> <amount>",
		Short: "Send coins to another user",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			amount, err := strconv.ParseInt(args[1], 10, 64)
			if err != nil || amount <= 0 {
				return fmt.Errorf("amount must be a positive integer, got %q", args[1])
			}

			var headers map[string]string
			if idempotencyKey != "" {
				headers = map[string]string{"Idempotency-Key": idempotencyKey}
			}

			var resp struct {
				Message string `json:"message"`
			}
			body := map[string]any{"toUser": args[0], "amount": amount}
			if err := opts.client().do(cmd.Context(), http.MethodPost, "/api/sendCoin", body, &resp, headers); err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), resp.Message)
			return nil
		},
	}

	cmd.Flags().StringVar(&idempotencyKey, "idempotency-key", "", "Idempotency-Key header for safe retries")

	return cmd
}

func buyCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "buy <item>",
		Short: "Buy an item from the catalog",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var resp struct {
				Message string `json:"message"`
			}
			if err := opts.client().do(cmd.Context(), http.MethodGet, "/api/buy/"+url.PathEscape(args[0]), nil, &resp, nil); err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), resp.Message)
			return nil
		},
	}
}

func catalogCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "catalog",
		Short: "List purchasable items",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var items []struct {
				Item  string `json:"item"`
				Price int64  `json:"price"`
			}
			if err := opts.client().do(cmd.Context(), http.MethodGet, "/api/catalog", nil, &items, nil); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for _, item := range items {
				fmt.Fprintf(out, "%-12s %6d\n", truncate(item.Item, 12), item.Price)
			}
			return nil
		},
	}
}

func ledgerCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ledger",
		Short: "Ledger operations",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "consistency",
		Short: "Check that the coin supply adds up",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var report struct {
				Accounts         int64 `json:"accounts"`
				TotalBalance     int64 `json:"total_balance"`
				ExpectedBalance  int64 `json:"expected_balance"`
				TotalSpent       int64 `json:"total_spent"`
				NegativeAccounts int64 `json:"negative_accounts"`
				Consistent       bool  `json:"consistent"`
			}
			if err := opts.client().do(cmd.Context(), http.MethodGet, "/api/ledger/consistency", nil, &report, nil); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Accounts: %d\n", report.Accounts)
			fmt.Fprintf(out, "Total balance: %d (expected %d)\n", report.TotalBalance, report.ExpectedBalance)
			fmt.Fprintf(out, "Total spent: %d\n", report.TotalSpent)
			fmt.Fprintf(out, "Negative accounts: %d\n", report.NegativeAccounts)

			if !report.Consistent {
				return fmt.Errorf("consistency check FAILED")
			}

			fmt.Fprintln(out, "Consistency check PASSED")
			return nil
		},
	})

	return cmd
}

// bcryptGenerate is replaced in tests.
var bcryptGenerate = bcrypt.GenerateFromPassword

func hashPasswordCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "hash-password <password>",
		Short: "Print the bcrypt hash of a password",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			hashed, err := bcryptGenerate([]byte(args[0]), bcrypt.DefaultCost)
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), string(hashed))
			return nil
		},
	}
}

func printJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}

	_, err = fmt.Fprintln(w, string(data))
	return err
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	if n <= 3 {
		return s[:n]
	}
	return s[:n-3] + "..."
}
