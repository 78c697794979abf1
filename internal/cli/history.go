package cli

import (
	"context"
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/devtoolshub/devtools-hub/internal/history"
)

const previewLength = 40

// History prints the caller's saved conversions, newest first
func (r *Runner) History(ctx context.Context, recorder *history.Recorder, limit int) error {
	records, err := recorder.List(ctx, limit)
	if err != nil {
		if history.Skipped(err) {
			return fmt.Errorf("history needs an identity: set --user-email or DEVTOOLS_USER_EMAIL")
		}
		return err
	}

	if r.output == OutputJSON {
		if records == nil {
			records = []history.Record{}
		}
		return r.writeJSON(records)
	}

	if len(records) == 0 {
		_, err := fmt.Fprintln(r.out, "No saved conversions.")
		return err
	}

	w := tabwriter.NewWriter(r.out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "CREATED\tTOOL\tINPUT\tOUTPUT")
	for _, rec := range records {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
			rec.CreatedAt.Local().Format(time.DateTime), rec.Tool, preview(rec.InputData), preview(rec.OutputData))
	}
	return w.Flush()
}

// ClearHistory removes the caller's saved conversions
func (r *Runner) ClearHistory(ctx context.Context, recorder *history.Recorder) error {
	n, err := recorder.Clear(ctx)
	if err != nil {
		if history.Skipped(err) {
			return fmt.Errorf("history needs an identity: set --user-email or DEVTOOLS_USER_EMAIL")
		}
		return err
	}
	if r.output == OutputJSON {
		return r.writeJSON(map[string]int{"removed": n})
	}
	r.infof("Removed %d saved conversions", n)
	return nil
}

func preview(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	if r := []rune(s); len(r) > previewLength {
		return string(r[:previewLength-1]) + "…"
	}
	return s
}
