package main

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/fedinode/fedinode/models"
)

type DeliveryFailuresCmd struct {
	Username string `arg:"" help:"local actor whose failures to list"`
	Limit    int    `help:"number of failures to show" default:"20"`
}

func (d *DeliveryFailuresCmd) Run(ctx *Context) error {
	db, err := ctx.openDB()
	if err != nil {
		return err
	}
	failures, err := models.NewDeliveryFailures(db).ForUsername(d.Username, d.Limit)
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(os.Stdout, 0, 8, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tCREATED\tINBOX\tACTIVITY\tERROR")
	for _, f := range failures {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", f.ID, f.CreatedAt.Format(time.RFC3339), f.Inbox, f.ActivityID, f.Error)
	}
	return tw.Flush()
}
