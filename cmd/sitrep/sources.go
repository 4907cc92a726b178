package main

import (
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func sourcesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "sources",
		Short: "List the configured feeds",
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := load()
			if err != nil {
				return err
			}

			t := newTable("Sources")
			t.AppendHeader(table.Row{"Key", "Name", "URL", "Relaxed"})
			for _, s := range rt.catalog.NewsSources() {
				t.AppendRow(table.Row{s.Key, s.DisplayName(), s.URL, s.Relaxed})
			}
			t.AppendFooter(table.Row{"", "", "Total", len(rt.catalog.Sources)})
			t.Render()
			return nil
		},
	}
}
