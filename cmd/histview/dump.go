// Copyright 2026 The histview Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package main

import (
	"fmt"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/bpowers/histview/internal/archive"
)

func newDumpCmd() *cobra.Command {
	var source string
	cmd := &cobra.Command{
		Use:   "dump <archive.parquet>",
		Short: "Print the rows of a recorded session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rows, err := archive.ReadAll(args[0])
			if err != nil {
				return err
			}

			tw := table.NewWriter()
			tw.SetOutputMirror(cmd.OutOrStdout())
			tw.AppendHeader(table.Row{"Elapsed", "Source", "Variant", "Samples", "Mean", "Overflows", "Buckets", "Error"})
			for _, r := range rows {
				if source != "" && r.Source != source {
					continue
				}
				tw.AppendRow(table.Row{
					(time.Duration(r.ElapsedMs) * time.Millisecond).String(),
					r.Source, r.Variant, r.Samples,
					fmt.Sprintf("%.2f", r.Mean), r.Overflows, len(r.Buckets), r.Error,
				})
			}
			tw.Render()
			return nil
		},
	}
	cmd.Flags().StringVar(&source, "source", "", "only rows of this snapshot file")
	return cmd
}
