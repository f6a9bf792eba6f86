package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/moznion/go-optional"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v3"

	"nbapi/internal/broker"
	"nbapi/internal/broker/nbdb"
	"nbapi/internal/config"
	"nbapi/internal/database"
	apperrors "nbapi/internal/errors"
	"nbapi/internal/logger"
	"nbapi/internal/models"
	"nbapi/internal/repository"
	"nbapi/internal/sync"
)

// app holds the dependencies shared by the commands. Broker and database
// connections are opened on first use.
type app struct {
	cfg *config.Config
	log *logrus.Logger
	out io.Writer

	client  *nbdb.Client
	session *nbdb.Session
	db      *database.DB
}

func (a *app) setup(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	cfg, err := config.Load(cmd.String("config"))
	if err != nil {
		return ctx, err
	}
	if v := cmd.String("log-level"); v != "" {
		cfg.LogLevel = v
	}
	if v := cmd.String("log-file"); v != "" {
		cfg.LogFile = v
	}
	if v := cmd.String("db"); v != "" {
		cfg.DBPath = v
	}

	a.cfg = cfg
	a.log = logger.New(cfg.Logger())
	return ctx, nil
}

func (a *app) close() {
	if a.db != nil {
		a.db.Close()
	}
}

// connect logs into NBDB once per process.
func (a *app) connect(ctx context.Context) error {
	if a.session != nil {
		return nil
	}
	if err := a.cfg.Validate(); err != nil {
		return err
	}
	password, err := a.cfg.ResolvePassword()
	if err != nil {
		return err
	}

	client, session, err := nbdb.Connect(ctx, nbdb.Options{
		Username: a.cfg.Username,
		Password: password,
		SSOURL:   a.cfg.SSOURL,
		APIURL:   a.cfg.APIURL,
		Timeout:  a.cfg.Timeout,
	}, a.log)
	if err != nil {
		return err
	}
	a.client, a.session = client, session
	return nil
}

func (a *app) database() (*database.DB, error) {
	if a.db != nil {
		return a.db, nil
	}
	db, err := database.Open(a.cfg.DBPath)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrTransport, "opening journal database", err)
	}
	a.db = db
	return db, nil
}

func (a *app) service() (*sync.Service, error) {
	db, err := a.database()
	if err != nil {
		return nil, err
	}
	return sync.NewService(
		a.client,
		repository.NewOrderJournalRepository(db),
		repository.NewPositionSnapshotRepository(db),
		repository.NewSyncHistoryRepository(db),
		a.log,
	), nil
}

func (a *app) print(v any) error {
	enc := json.NewEncoder(a.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// args returns exactly len(names) positional arguments.
func args(cmd *cli.Command, names ...string) ([]string, error) {
	if cmd.Args().Len() != len(names) {
		return nil, apperrors.Validation(fmt.Sprintf("%s expects %s", cmd.Name, strings.Join(names, " ")))
	}
	return cmd.Args().Slice(), nil
}

func (a *app) quote(ctx context.Context, cmd *cli.Command) error {
	in, err := args(cmd, "TICKER", "MARKET")
	if err != nil {
		return err
	}
	if err := a.connect(ctx); err != nil {
		return err
	}
	q, err := a.client.GetQuote(ctx, a.session, in[0], broker.Market(in[1]))
	if err != nil {
		return err
	}
	return a.print(q)
}

func (a *app) accounts(ctx context.Context, cmd *cli.Command) error {
	if _, err := args(cmd); err != nil {
		return err
	}
	if err := a.connect(ctx); err != nil {
		return err
	}
	accounts, err := a.client.ListAccounts(ctx, a.session)
	if err != nil {
		return err
	}
	return a.print(accounts)
}

func (a *app) accountID(ctx context.Context, cmd *cli.Command) error {
	in, err := args(cmd, "CURRENCY", "TYPE")
	if err != nil {
		return err
	}
	if err := a.connect(ctx); err != nil {
		return err
	}
	id, err := a.client.GetAccountID(ctx, a.session, in[0], in[1])
	if err != nil {
		return err
	}
	return a.print(map[string]string{"account_id": id})
}

func (a *app) balance(ctx context.Context, cmd *cli.Command) error {
	in, err := args(cmd, "ACCOUNT")
	if err != nil {
		return err
	}
	if err := a.connect(ctx); err != nil {
		return err
	}
	balance, err := a.client.GetAccountBalance(ctx, a.session, in[0])
	if err != nil {
		return err
	}
	return a.print(map[string]any{"account_id": in[0], "balance": balance})
}

func (a *app) positions(ctx context.Context, cmd *cli.Command) error {
	in, err := args(cmd, "ACCOUNT")
	if err != nil {
		return err
	}

	if cmd.Bool("stored") {
		db, err := a.database()
		if err != nil {
			return err
		}
		snapshotRepo := repository.NewPositionSnapshotRepository(db)
		var snapshots []*models.PositionSnapshot
		if syncID := cmd.Int("sync-id"); syncID > 0 {
			snapshots, err = snapshotRepo.GetBySyncID(syncID)
		} else {
			snapshots, err = snapshotRepo.Latest(in[0])
		}
		if err != nil {
			return err
		}
		return a.print(snapshots)
	}

	if err := a.connect(ctx); err != nil {
		return err
	}

	if cmd.Bool("snapshot") {
		svc, err := a.service()
		if err != nil {
			return err
		}
		result, err := svc.SnapshotPositions(ctx, a.session, in[0])
		if err != nil {
			return err
		}
		return a.print(result)
	}

	positions, err := a.client.GetPositions(ctx, a.session, in[0])
	if err != nil {
		return err
	}
	return a.print(positions)
}

func (a *app) placeOrder(ctx context.Context, cmd *cli.Command) error {
	in, err := args(cmd, "ACCOUNT", "SYMBOL", "QUANTITY")
	if err != nil {
		return err
	}
	intent, err := orderIntent(cmd, in[1], in[2])
	if err != nil {
		return err
	}
	if strings.TrimSpace(a.cfg.Phone) == "" {
		return apperrors.ValidationField("phone", "NBDB_PHONE is required to place orders")
	}
	if err := a.connect(ctx); err != nil {
		return err
	}

	svc, err := a.service()
	if err != nil {
		return err
	}
	entry, err := svc.PlaceOrder(ctx, a.session, in[0], intent, a.cfg.Phone)
	if err != nil {
		return err
	}
	return a.print(entry)
}

// orderIntent builds the intent for buy and sell from flags and arguments.
func orderIntent(cmd *cli.Command, symbol, quantity string) (nbdb.OrderIntent, error) {
	qty, err := strconv.ParseInt(quantity, 10, 64)
	if err != nil {
		return nbdb.OrderIntent{}, apperrors.ValidationField("quantity", "quantity must be a whole number")
	}

	intent := nbdb.OrderIntent{
		Side:               broker.Side(strings.ToUpper(cmd.Name)),
		Quantity:           qty,
		Symbol:             symbol,
		Currency:           cmd.String("currency"),
		DaysTillExpiration: int(cmd.Int("days")),
	}

	if v := cmd.String("limit"); v != "" {
		price, err := decimal.NewFromString(v)
		if err != nil {
			return nbdb.OrderIntent{}, apperrors.ValidationField("limit", "limit must be a decimal price")
		}
		intent.LimitPrice = optional.Some(price)
	}

	return intent, intent.Validate()
}

func (a *app) cancel(ctx context.Context, cmd *cli.Command) error {
	in, err := args(cmd, "ORDER_ID")
	if err != nil {
		return err
	}
	if err := a.connect(ctx); err != nil {
		return err
	}
	svc, err := a.service()
	if err != nil {
		return err
	}
	if err := svc.CancelOrder(ctx, a.session, in[0]); err != nil {
		return err
	}
	return a.print(map[string]any{"order_id": in[0], "cancelled": true})
}

func (a *app) latestOrder(ctx context.Context, cmd *cli.Command) error {
	in, err := args(cmd, "ACCOUNT")
	if err != nil {
		return err
	}
	if err := a.connect(ctx); err != nil {
		return err
	}
	order, err := a.client.GetLatestOrder(ctx, a.session, in[0])
	if err != nil {
		return err
	}
	return a.print(order)
}

func (a *app) getOrder(ctx context.Context, cmd *cli.Command) error {
	in, err := args(cmd, "ACCOUNT", "ORDER_ID")
	if err != nil {
		return err
	}
	if err := a.connect(ctx); err != nil {
		return err
	}
	order, err := a.client.GetOrder(ctx, a.session, in[0], in[1])
	if err != nil {
		return err
	}
	return a.print(order)
}

func (a *app) orderStatus(ctx context.Context, cmd *cli.Command) error {
	in, err := args(cmd, "ACCOUNT", "ORDER_ID")
	if err != nil {
		return err
	}
	if err := a.connect(ctx); err != nil {
		return err
	}
	open, err := a.client.GetOrderStatus(ctx, a.session, in[0], in[1])
	if err != nil {
		return err
	}
	return a.print(map[string]any{"order_id": in[1], "order_open": open})
}

func (a *app) listOrders(ctx context.Context, cmd *cli.Command) error {
	in, err := args(cmd, "ACCOUNT")
	if err != nil {
		return err
	}
	if err := a.connect(ctx); err != nil {
		return err
	}
	orders, err := a.client.ListOrders(ctx, a.session, in[0])
	if err != nil {
		return err
	}
	return a.print(orders)
}

func (a *app) journal(ctx context.Context, cmd *cli.Command) error {
	in, err := args(cmd, "ACCOUNT")
	if err != nil {
		return err
	}
	db, err := a.database()
	if err != nil {
		return err
	}
	page, err := repository.NewOrderJournalRepository(db).ListByAccount(in[0], repository.NewPagination(int(cmd.Int("limit")), int(cmd.Int("offset"))))
	if err != nil {
		return err
	}
	return a.print(page)
}

func (a *app) sealPassword(ctx context.Context, cmd *cli.Command) error {
	if _, err := args(cmd); err != nil {
		return err
	}
	if a.cfg.Username == "" || a.cfg.Password == "" {
		return apperrors.Validation("NBDB_USERNAME and NBDB_PASSWORD are required")
	}
	enc, err := broker.NewEncryptor(a.cfg.EncryptionSecret)
	if err != nil {
		return apperrors.Wrap(apperrors.ErrValidation, "NBDB_ENCRYPTION_SECRET", err)
	}
	sealed, err := enc.Seal(a.cfg.Password, a.cfg.Username)
	if err != nil {
		return err
	}
	return a.print(map[string]string{"password_sealed": sealed})
}
