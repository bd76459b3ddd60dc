// Command expenses-cli manages the same ledger as the server from a
// terminal. It opens the configured store directly; a running server picks
// up its writes through the change relay when AMQP is configured, and by
// polling the stored document otherwise.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"math/rand"
	"os"
	"time"

	"github.com/google/uuid"

	"expenses/internal/amqp"
	"expenses/internal/cli"
	"expenses/internal/core"
	"expenses/internal/log"
	"expenses/internal/report"
	"expenses/internal/seed"
	"expenses/internal/services"
)

const usage = `usage: expenses-cli <command> [flags] [args]

commands:
  categories                          list categories
  add-category <name> <income|expense>
  delete-category <name>
  add [-date YYYY-MM-DD] <category> <name> <amount>
  delete <category> <id> | delete -id <id>
  summary [-period total|daily|weekly|monthly|yearly]
  series [-unit day|month] [-last N]
  recent [-limit N]
  seed                                fill an empty store with sample data
`

type app struct {
	ledger   *services.LedgerService
	currency string
	out      io.Writer
}

type command func(ctx context.Context, a *app, args []string) error

var commands = map[string]command{
	"categories":      runCategories,
	"add-category":    runAddCategory,
	"delete-category": runDeleteCategory,
	"add":             runAdd,
	"delete":          runDelete,
	"summary":         runSummary,
	"series":          runSeries,
	"recent":          runRecent,
	"seed":            runSeed,
}

var errUsage = errors.New("invalid arguments")

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}
	cmd, ok := commands[os.Args[1]]
	if !ok {
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n%s", os.Args[1], usage)
		os.Exit(2)
	}

	cli.LoadEnvFile()
	cfg := cli.LoadAndValidateConfig(cli.SetupLogger("warn", "", os.Stderr))
	logger := cli.SetupLogger(cfg.LogLevel, cfg.LogFormat, os.Stderr)

	ctx, cancel := cli.GracefulShutdown(logger)
	defer cancel()

	store := cli.OpenStore(ctx, logger, cfg)
	opts := []services.Option{services.WithLocation(cfg.Location())}
	var publisher *amqp.Client
	if cfg.AMQPEnabled() {
		// Running servers learn about CLI writes through the change relay.
		origin := uuid.NewString()
		c, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, origin)
		if err != nil {
			logger.Warn("Failed to initialize AMQP client, changes will not be announced", log.FieldError, err)
		} else {
			publisher = c
			opts = append(opts, services.WithOrigin(origin), services.WithPublisher(publisher))
		}
	}
	a := &app{
		ledger:   services.NewLedgerService(store.Repository, opts...),
		currency: cfg.Currency,
		out:      os.Stdout,
	}

	err := cmd(ctx, a, os.Args[2:])
	if publisher != nil {
		publisher.Close()
	}
	if cerr := store.Cleanup(); cerr != nil && err == nil {
		err = cerr
	}
	if err != nil {
		if errors.Is(err, errUsage) {
			fmt.Fprint(os.Stderr, usage)
			os.Exit(2)
		}
		renderError(os.Stderr, err)
		os.Exit(1)
	}
}

func newFlags(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	return fs
}

func runCategories(ctx context.Context, a *app, args []string) error {
	c, err := a.ledger.Categories(ctx)
	if err != nil {
		return err
	}
	renderCategories(a.out, c, a.currency)
	return nil
}

func runAddCategory(ctx context.Context, a *app, args []string) error {
	if len(args) != 2 {
		return errUsage
	}
	cat, err := a.ledger.AddCategory(ctx, args[0], args[1])
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Added %s category %s\n", typeStyle(cat.Type).Render(string(cat.Type)), cat.Name)
	return nil
}

func runDeleteCategory(ctx context.Context, a *app, args []string) error {
	if len(args) != 1 {
		return errUsage
	}
	if err := a.ledger.DeleteCategory(ctx, args[0]); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Deleted category %s\n", args[0])
	return nil
}

func runAdd(ctx context.Context, a *app, args []string) error {
	fs := newFlags("add")
	date := fs.String("date", "", "transaction date (defaults to today)")
	id := fs.String("id", "", "explicit transaction id")
	if err := fs.Parse(args); err != nil || fs.NArg() != 3 {
		return errUsage
	}
	if *date == "" {
		*date = core.DateOf(a.ledger.Now()).String()
	}
	tx, created, err := a.ledger.AddTransaction(ctx, fs.Arg(0), core.TransactionInput{
		ID:     *id,
		Name:   fs.Arg(1),
		Amount: fs.Arg(2),
		Date:   *date,
	})
	if err != nil {
		return err
	}
	verb := "Added"
	if !created {
		verb = "Already recorded"
	}
	fmt.Fprintf(a.out, "%s %s %s on %s %s\n", verb, tx.Name, tx.Amount.Format(a.currency), tx.Date, mutedStyle.Render(tx.ID))
	return nil
}

func runDelete(ctx context.Context, a *app, args []string) error {
	fs := newFlags("delete")
	id := fs.String("id", "", "delete by id without naming the category")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	switch {
	case *id != "" && fs.NArg() == 0:
		category, err := a.ledger.DeleteTransactionByID(ctx, *id)
		if err != nil {
			return err
		}
		fmt.Fprintf(a.out, "Deleted %s from %s\n", *id, category)
	case *id == "" && fs.NArg() == 2:
		if err := a.ledger.DeleteTransaction(ctx, fs.Arg(0), fs.Arg(1)); err != nil {
			return err
		}
		fmt.Fprintf(a.out, "Deleted %s from %s\n", fs.Arg(1), fs.Arg(0))
	default:
		return errUsage
	}
	return nil
}

func runSummary(ctx context.Context, a *app, args []string) error {
	fs := newFlags("summary")
	period := fs.String("period", "total", "total, daily, weekly, monthly or yearly")
	if err := fs.Parse(args); err != nil || fs.NArg() != 0 {
		return errUsage
	}
	p, err := core.ParsePeriod(*period)
	if err != nil {
		return fmt.Errorf("%w %q", err, *period)
	}
	totals, err := a.ledger.Summary(ctx, p)
	if err != nil {
		return err
	}
	renderSummary(a.out, p, totals, a.currency)
	return nil
}

func runSeries(ctx context.Context, a *app, args []string) error {
	fs := newFlags("series")
	unit := fs.String("unit", string(report.ByDay), "day or month")
	last := fs.Int("last", 0, "only the most recent N buckets")
	if err := fs.Parse(args); err != nil || fs.NArg() != 0 || *last < 0 {
		return errUsage
	}
	bucket := report.Bucket(*unit)
	if bucket != report.ByDay && bucket != report.ByMonth {
		return fmt.Errorf("unknown unit %q", *unit)
	}
	points, err := a.ledger.Series(ctx, bucket, *last)
	if err != nil {
		return err
	}
	renderSeries(a.out, points, a.currency)
	return nil
}

func runRecent(ctx context.Context, a *app, args []string) error {
	fs := newFlags("recent")
	limit := fs.Int("limit", 5, "number of transactions")
	if err := fs.Parse(args); err != nil || fs.NArg() != 0 || *limit < 1 {
		return errUsage
	}
	entries, err := a.ledger.Recent(ctx, *limit)
	if err != nil {
		return err
	}
	renderRecent(a.out, entries, a.currency)
	return nil
}

func runSeed(ctx context.Context, a *app, args []string) error {
	if len(args) != 0 {
		return errUsage
	}
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	written, err := seed.IfEmpty(ctx, a.ledger, a.ledger.Now(), rng)
	if err != nil {
		return err
	}
	if !written {
		fmt.Fprintln(a.out, mutedStyle.Render("Store already has data; nothing seeded."))
		return nil
	}
	fmt.Fprintln(a.out, "Seeded sample data.")
	return nil
}
