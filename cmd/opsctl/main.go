// Command opsctl runs operator actions against the practice database.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/BruksfildServices01/psico-pay/internal/app"
	"github.com/BruksfildServices01/psico-pay/internal/config"
	dbpkg "github.com/BruksfildServices01/psico-pay/internal/db"
	"github.com/BruksfildServices01/psico-pay/internal/dto"
	"github.com/BruksfildServices01/psico-pay/internal/logger"
	"github.com/BruksfildServices01/psico-pay/internal/usecase/ops"
)

const usage = `usage: opsctl [-actor name] <command> [args]

commands:
  run                                  run one reconciliation pass now
  upcoming [-hours 48]                 list upcoming sessions
  failed-notifications [-limit 50]     list failed notifications
  reset-reminder <session> <flag>      clear reminder_24h, reminder_2h or meet_link
  confirm-payment <session>            mark a session as paid by hand
  send-payment-link <session>          regenerate and send the payment link
  send-reminder <session> [flag]       send a reminder now (default reminder_24h)
  cancel <session>
  complete <session>
  no-show <session>
`

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "could not read .env: %v\n", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("opsctl", flag.ContinueOnError)
	fs.Usage = func() { fmt.Fprint(fs.Output(), usage) }
	actor := fs.String("actor", defaultActor(), "name recorded in the audit log")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() == 0 {
		fs.Usage()
		return errors.New("missing command")
	}

	cfg := config.Load()
	zlog, err := logger.New(cfg.LogLevel, cfg.LogFile)
	if err != nil {
		return err
	}
	defer zlog.Sync() //nolint:errcheck

	db, err := dbpkg.NewDB(cfg)
	if err != nil {
		return err
	}

	a, err := app.Build(ctx, cfg, db, zlog, prometheus.NewRegistry(), app.Gateways{})
	if err != nil {
		return err
	}
	defer a.Close() //nolint:errcheck

	cmd := &command{app: a, actor: *actor, out: out}
	return cmd.dispatch(ctx, fs.Arg(0), fs.Args()[1:])
}

func defaultActor() string {
	if u := os.Getenv("USER"); u != "" {
		return "opsctl:" + u
	}
	return "opsctl"
}

type command struct {
	app   *app.App
	actor string
	out   io.Writer
}

func (c *command) dispatch(ctx context.Context, name string, args []string) error {
	switch name {
	case "run":
		return c.print(c.app.Job.RunWithSummary(ctx, "manual"))

	case "upcoming":
		fs := flag.NewFlagSet(name, flag.ContinueOnError)
		hours := fs.Int("hours", 48, "look-ahead in hours")
		if err := fs.Parse(args); err != nil {
			return err
		}
		list, err := c.app.Ops.ListUpcoming.Execute(ctx, time.Duration(*hours)*time.Hour)
		if err != nil {
			return err
		}
		return c.print(dto.NewSessionDTOs(list))

	case "failed-notifications":
		fs := flag.NewFlagSet(name, flag.ContinueOnError)
		limit := fs.Int("limit", 50, "max rows")
		if err := fs.Parse(args); err != nil {
			return err
		}
		list, err := c.app.Ops.ListFailed.Execute(ctx, *limit)
		if err != nil {
			return err
		}
		return c.print(dto.NewNotificationDTOs(list))

	case "reset-reminder":
		id, rest, err := sessionArg(args)
		if err != nil {
			return err
		}
		if len(rest) != 1 {
			return errors.New("reset-reminder needs a flag: reminder_24h, reminder_2h or meet_link")
		}
		if err := c.app.Ops.ResetReminder.Execute(ctx, c.actor, id, rest[0]); err != nil {
			return err
		}
		return c.print(map[string]any{"session_id": id, "flag": rest[0], "reset": true})

	case "confirm-payment":
		id, _, err := sessionArg(args)
		if err != nil {
			return err
		}
		res, err := c.app.Ops.ConfirmPayment.Execute(ctx, c.actor, id)
		if err != nil {
			return err
		}
		return c.print(map[string]any{
			"session":           dto.NewSessionDTO(res.Session),
			"confirmation_sent": res.ConfirmationSent,
			"meet_link_sent":    res.MeetLinkSent,
		})

	case "send-payment-link":
		id, _, err := sessionArg(args)
		if err != nil {
			return err
		}
		res, err := c.app.Ops.SendPaymentLink.Execute(ctx, c.actor, id)
		if err != nil {
			return err
		}
		return c.print(res)

	case "send-reminder":
		id, rest, err := sessionArg(args)
		if err != nil {
			return err
		}
		flagName := "reminder_24h"
		if len(rest) > 0 {
			flagName = rest[0]
		}
		res, err := c.app.Ops.SendReminder.Execute(ctx, c.actor, id, flagName)
		if err != nil {
			return err
		}
		return c.print(res)

	case string(ops.ActionCancel), string(ops.ActionComplete), string(ops.ActionNoShow):
		id, _, err := sessionArg(args)
		if err != nil {
			return err
		}
		s, err := c.app.Ops.ChangeStatus.Execute(ctx, c.actor, id, ops.StatusAction(name))
		if err != nil {
			return err
		}
		return c.print(dto.NewSessionDTO(s))

	default:
		fmt.Fprint(c.out, usage)
		return fmt.Errorf("unknown command %q", name)
	}
}

func sessionArg(args []string) (uuid.UUID, []string, error) {
	if len(args) == 0 {
		return uuid.Nil, nil, errors.New("missing session id")
	}
	id, err := uuid.Parse(args[0])
	if err != nil {
		return uuid.Nil, nil, fmt.Errorf("invalid session id %q: %w", args[0], err)
	}
	return id, args[1:], nil
}

func (c *command) print(v any) error {
	enc := json.NewEncoder(c.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
