package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v3"

	apperrors "nbapi/internal/errors"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	a := &app{out: os.Stdout}
	err := a.command().Run(ctx, os.Args)
	a.close()
	stop()

	if err != nil {
		if a.log != nil {
			a.log.WithError(err).Error("command failed")
		} else {
			fmt.Fprintln(os.Stderr, "error:", err)
		}
		os.Exit(apperrors.ExitCode(err))
	}
}

func (a *app) command() *cli.Command {
	return &cli.Command{
		Name:  "nbdb",
		Usage: "National Bank Direct Brokerage command line client",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to a YAML configuration file",
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "Log level (debug, info, warn, error)",
			},
			&cli.StringFlag{
				Name:  "log-file",
				Usage: "Also write logs to this rotated file",
			},
			&cli.StringFlag{
				Name:  "db",
				Usage: "Path to the local journal database",
			},
		},
		Before: a.setup,
		Commands: []*cli.Command{
			{
				Name:      "quote",
				Usage:     "Show the real-time bid and ask",
				ArgsUsage: "TICKER MARKET",
				Action:    a.quote,
			},
			{
				Name:   "accounts",
				Usage:  "List the accounts of the portfolio",
				Action: a.accounts,
			},
			{
				Name:      "account-id",
				Usage:     "Find the account number for a currency and account type",
				ArgsUsage: "CURRENCY TYPE",
				Action:    a.accountID,
			},
			{
				Name:      "balance",
				Usage:     "Show the cash balance in the account's currency",
				ArgsUsage: "ACCOUNT",
				Action:    a.balance,
			},
			{
				Name:      "positions",
				Usage:     "List the account's positions",
				ArgsUsage: "ACCOUNT",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "snapshot",
						Usage: "Store the positions in the local journal",
					},
					&cli.BoolFlag{
						Name:  "stored",
						Usage: "Show the last stored snapshot without contacting the broker",
					},
					&cli.IntFlag{
						Name:  "sync-id",
						Usage: "With --stored, show the snapshot taken by this sync run",
					},
				},
				Action: a.positions,
			},
			a.orderCommand("buy", "Buy shares"),
			a.orderCommand("sell", "Sell shares"),
			{
				Name:      "cancel",
				Usage:     "Cancel an order",
				ArgsUsage: "ORDER_ID",
				Action:    a.cancel,
			},
			{
				Name:  "orders",
				Usage: "Inspect the account's orders",
				Commands: []*cli.Command{
					{
						Name:      "latest",
						Usage:     "Show the most recent order",
						ArgsUsage: "ACCOUNT",
						Action:    a.latestOrder,
					},
					{
						Name:      "get",
						Usage:     "Show one order",
						ArgsUsage: "ACCOUNT ORDER_ID",
						Action:    a.getOrder,
					},
					{
						Name:      "status",
						Usage:     "Report whether the order is still open",
						ArgsUsage: "ACCOUNT ORDER_ID",
						Action:    a.orderStatus,
					},
					{
						Name:      "list",
						Usage:     "List all orders",
						ArgsUsage: "ACCOUNT",
						Action:    a.listOrders,
					},
				},
			},
			{
				Name:      "journal",
				Usage:     "List orders placed through this client",
				ArgsUsage: "ACCOUNT",
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "limit", Value: 20, Usage: "Entries per page"},
					&cli.IntFlag{Name: "offset", Usage: "Entries to skip"},
				},
				Action: a.journal,
			},
			{
				Name:   "seal-password",
				Usage:  "Encrypt NBDB_PASSWORD for use as NBDB_PASSWORD_SEALED",
				Action: a.sealPassword,
			},
		},
	}
}

func (a *app) orderCommand(side, usage string) *cli.Command {
	return &cli.Command{
		Name:      side,
		Usage:     usage,
		ArgsUsage: "ACCOUNT SYMBOL QUANTITY",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "currency",
				Usage: "Listing currency (USD or CAD)",
				Value: "USD",
			},
			&cli.StringFlag{
				Name:  "limit",
				Usage: "Limit price; omit for a market order",
			},
			&cli.IntFlag{
				Name:  "days",
				Usage: "Days until a limit order expires; 0 is a day order",
			},
		},
		Action: a.placeOrder,
	}
}
