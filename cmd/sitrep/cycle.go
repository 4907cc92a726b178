package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"

	"github.com/deusflow/sitrep/internal/app"
	"github.com/deusflow/sitrep/internal/news"
)

const timeLayout = "2006-01-02 15:04"

func cycleCommand() *cobra.Command {
	var (
		limit int
		brief bool
	)

	cmd := &cobra.Command{
		Use:   "cycle",
		Short: "Run one fetch cycle and print the result",
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := load()
			if err != nil {
				return err
			}
			defer func() { _ = rt.log.Sync() }()

			p, err := rt.pipeline()
			if err != nil {
				return err
			}
			v, err := p.RunOnce(cmd.Context())
			if err != nil {
				return err
			}

			renderReports(v)
			renderItems(v, limit, brief)
			renderAnalysis(v)
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "number of items to print")
	cmd.Flags().BoolVar(&brief, "brief", false, "print sentence summaries instead of excerpts")
	return cmd
}

func newTable(title string) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetStyle(table.StyleLight)
	t.SetTitle(title)
	return t
}

func renderReports(v *app.View) {
	t := newTable("Sources")
	t.AppendHeader(table.Row{"Source", "Accepted", "Duration", "Error"})
	for _, r := range v.Snapshot.Reports {
		t.AppendRow(table.Row{r.Key, r.Accepted, r.Duration.Round(time.Millisecond), r.Error()})
	}
	t.Render()
}

func renderItems(v *app.View, limit int, brief bool) {
	t := newTable(fmt.Sprintf("Corpus (cycle %d, %d items)", v.Snapshot.Cycle, v.Snapshot.Len()))
	t.AppendHeader(table.Row{"Published", "Source", "Title", "Text"})
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 3, WidthMax: 60},
		{Number: 4, WidthMax: 80},
	})

	items := v.Snapshot.Recent(limit)
	if brief {
		for _, b := range news.Brief(items, len(items), 2) {
			t.AppendRow(table.Row{b.PublishedAt.Local().Format(timeLayout), b.SourceKey, b.Title, b.Summary})
		}
	} else {
		for _, it := range items {
			t.AppendRow(table.Row{it.PublishedAt.Local().Format(timeLayout), it.SourceKey, it.Title, it.Excerpt})
		}
	}
	t.Render()
}

func renderAnalysis(v *app.View) {
	t := newTable("Escalation")
	t.AppendHeader(table.Row{"Score", "Tier", "Raw total", "Items scored"})
	t.AppendRow(table.Row{v.Score.Value, strings.ToUpper(v.Score.Tier.String()), v.Score.Total, v.Score.Items})
	t.SetColumnConfigs([]table.ColumnConfig{{Number: 2, Colors: tierColor(v.Score.Tier.String())}})
	t.Render()

	if len(v.Clusters) > 0 {
		ct := newTable("Narratives")
		ct.AppendHeader(table.Row{"Topic", "Members"})
		for _, c := range v.Clusters {
			titles := make([]string, len(c.Members))
			for i, m := range c.Members {
				titles[i] = m.Title
			}
			ct.AppendRow(table.Row{c.Topic, strings.Join(titles, "\n")})
		}
		ct.Render()
	}

	if len(v.NewStrikes) > 0 {
		st := newTable("New strikes")
		st.AppendHeader(table.Row{"City", "Lat", "Lon", "Detected", "Source", "Title"})
		for _, r := range v.NewStrikes {
			st.AppendRow(table.Row{r.City, r.Lat, r.Lon, r.DetectedAt.Local().Format(timeLayout), r.SourceKey, r.Title})
		}
		st.Render()
	}
}

func tierColor(tier string) text.Colors {
	switch tier {
	case "critical":
		return text.Colors{text.FgHiRed, text.Bold}
	case "elevated":
		return text.Colors{text.FgYellow}
	default:
		return text.Colors{text.FgGreen}
	}
}
