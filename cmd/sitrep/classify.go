package main

import (
	"errors"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/deusflow/sitrep/internal/news"
)

func classifyCommand() *cobra.Command {
	var it news.Item
	var sourceKey string

	cmd := &cobra.Command{
		Use:   "classify",
		Short: "Show how the classifier judges a single item",
		RunE: func(cmd *cobra.Command, args []string) error {
			if it.Title == "" {
				return errors.New("--title is required")
			}
			rt, err := load()
			if err != nil {
				return err
			}

			src, ok := rt.catalog.Source(sourceKey)
			if !ok {
				src = news.Source{Key: sourceKey}
			}
			it.SourceKey = src.Key
			it.PublishedAt = time.Now()

			c := news.NewClassifier(rt.catalog.ClassifierRules())
			v := c.Classify(it, src)

			t := newTable("Classification")
			t.AppendRow(table.Row{"Source", src.DisplayName()})
			t.AppendRow(table.Row{"Relaxed", src.Relaxed})
			t.AppendRow(table.Row{"Advertisement", v.IsAdvertisement})
			t.AppendRow(table.Row{"Relevant", v.IsRelevant})
			t.AppendRow(table.Row{"Accepted", c.Accept(it, src)})
			t.Render()
			return nil
		},
	}
	cmd.Flags().StringVar(&it.Title, "title", "", "item title")
	cmd.Flags().StringVar(&it.Excerpt, "excerpt", "", "item excerpt")
	cmd.Flags().StringVar(&it.Link, "link", news.DefaultLink, "item link")
	cmd.Flags().StringVar(&sourceKey, "source", "cnn", "source key from the catalog")
	return cmd
}
