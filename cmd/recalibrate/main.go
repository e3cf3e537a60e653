package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/yungbote/neurobridge-psychometrics/internal/app"
	"github.com/yungbote/neurobridge-psychometrics/internal/platform/dbctx"
	"github.com/yungbote/neurobridge-psychometrics/internal/services"
)

type idList []string

func (l *idList) String() string { return strings.Join(*l, ",") }
func (l *idList) Set(v string) error {
	v = strings.TrimSpace(v)
	if v != "" {
		*l = append(*l, v)
	}
	return nil
}

func main() {
	var items idList
	var pass string
	var dryRun bool
	var limit int
	flag.Var(&items, "item", "item_id to recalibrate (repeatable); overrides -pass")
	flag.StringVar(&pass, "pass", services.PassDaily, "recalibration pass to run: daily or weekly")
	flag.BoolVar(&dryRun, "dry-run", false, "print items the daily pass would pick up without calibrating")
	flag.IntVar(&limit, "limit", 100, "limit number of items listed by -dry-run")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	application, err := app.New(ctx)
	if err != nil {
		fmt.Printf("init app: %v\n", err)
		os.Exit(1)
	}
	defer application.Close()

	calibration := application.Services.Calibration

	if dryRun {
		ids, err := application.Repos.Response.ListUncalibratedItemIDs(dbctx.Context{Ctx: ctx}, limit)
		if err != nil {
			fmt.Printf("list uncalibrated items: %v\n", err)
			os.Exit(1)
		}
		for _, id := range ids {
			fmt.Println(id)
		}
		fmt.Printf("%d uncalibrated items\n", len(ids))
		return
	}

	if len(items) > 0 {
		failed := 0
		for _, id := range items {
			res, err := calibration.CalibrateItem(ctx, id)
			switch {
			case err != nil:
				failed++
				fmt.Printf("%s: error: %v\n", id, err)
			case !res.Calibrated:
				fmt.Printf("%s: not calibrated (%s)\n", id, res.Reason)
			default:
				fmt.Printf("%s: difficulty=%.4f sample=%d\n", id, res.Parameters.Difficulty, res.Current)
			}
		}
		if failed > 0 {
			os.Exit(1)
		}
		return
	}

	rep, err := calibration.RunPass(ctx, pass)
	if err != nil {
		fmt.Printf("run %s pass: %v\n", pass, err)
		os.Exit(1)
	}
	fmt.Printf("%s pass: attempted=%d calibrated=%d insufficient=%d failed=%d errors=%d\n",
		rep.Pass, rep.Attempted, rep.Calibrated, rep.Insufficient, rep.Failed, rep.Errors)
}
