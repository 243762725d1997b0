package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/stockwatch/stockwatch/internal/alarm"
	"github.com/stockwatch/stockwatch/internal/common"
	"github.com/stockwatch/stockwatch/internal/ingest"
	svc "github.com/stockwatch/stockwatch/internal/server"
)

var (
	importGroup  string
	confirmGroup string
	confirmBase  float64
	alarmsGroup  string
	exportOut    string
	exportRaw    bool
)

var importCmd = &cobra.Command{
	Use:   "import <file|dir>...",
	Short: "Import spreadsheets (xlsx, xlsm, csv)",
	Long: `Import one or more spreadsheets. Each file lands in the file group named after
its stem unless --group is given. Directories are walked recursively.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withServices(cmd, func(ctx context.Context, s *svc.Services) error {
			var results []ingest.ImportResult
			for _, p := range args {
				info, err := os.Stat(p)
				if err != nil {
					return err
				}
				if info.IsDir() {
					rs, stats, err := s.Importer.ImportDirectory(ctx, p, true)
					if err != nil {
						return err
					}
					results = append(results, rs...)
					fmt.Fprintf(cmd.ErrOrStderr(), "%s: %d matched, %d imported, %d duplicate, %d failed\n",
						p, stats.Matched, stats.Succeeded, stats.Deduplicated, stats.Failed)
					continue
				}
				r, err := importFile(ctx, s, p)
				if err != nil {
					return err
				}
				results = append(results, r)
			}
			if asJSON {
				return printJSON(cmd.OutOrStdout(), results)
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "FILE\tGROUP\tROWS\tNOTE")
			for _, r := range results {
				note := r.Err
				if r.Deduplicated {
					note = "already imported"
				}
				fmt.Fprintf(tw, "%s\t%s\t%d\t%s\n", firstNonEmpty(r.Filename, r.SourcePath), r.FileGroup, r.RowsImported, note)
			}
			return tw.Flush()
		})
	},
}

var confirmCmd = &cobra.Command{
	Use:   "confirm [rowId...]",
	Short: "Confirm base stock for rows or a whole file group",
	Long: `Confirm sets each row's base stock to its current quantity (or --baseline for a
single row) and clears its alarm. With --group every row of the file group is confirmed.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if confirmGroup == "" && len(args) == 0 {
			return common.InvalidInput("give row ids or --group")
		}
		return withServices(cmd, func(ctx context.Context, s *svc.Services) error {
			if len(args) == 1 && cmd.Flags().Changed("baseline") {
				id, err := common.ParseUUID("rowId", args[0])
				if err != nil {
					return err
				}
				res, err := s.Engine.Confirm(ctx, id, &confirmBase)
				if err != nil {
					return err
				}
				return printResult(cmd.OutOrStdout(), res, fmt.Sprintf("%s baseline=%v alarm=%v", res.RowID, res.Baseline, res.AlarmStatus))
			}
			sel := alarm.Selection{FileGroup: confirmGroup}
			for _, a := range args {
				id, err := common.ParseUUID("rowId", a)
				if err != nil {
					return err
				}
				sel.RowIDs = append(sel.RowIDs, id)
			}
			res, err := s.Engine.BulkConfirm(ctx, sel)
			if err != nil {
				return err
			}
			return printResult(cmd.OutOrStdout(), res, fmt.Sprintf("confirmed %d of %d rows (%d failed)", res.SuccessCount, res.TotalProcessed, res.FailCount))
		})
	},
}

var alarmsCmd = &cobra.Command{
	Use:   "alarms",
	Short: "List rows below their base stock",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withServices(cmd, func(ctx context.Context, s *svc.Services) error {
			rows, err := s.Engine.ListAlarming(ctx, alarmsGroup)
			if err != nil {
				return err
			}
			if asJSON {
				out := make([]svc.AlarmRow, 0, len(rows))
				for _, r := range rows {
					out = append(out, svc.AlarmRow{FileGroup: r.FileGroup, Projected: s.Projector.Project(r, r.SequenceIndex)})
				}
				return printJSON(cmd.OutOrStdout(), out)
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "GROUP\tNO\tITEM\tCURRENT\tBASE\tROW ID")
			for _, r := range rows {
				p := s.Projector.Project(r, r.SequenceIndex)
				fmt.Fprintf(tw, "%s\t%d\t%s\t%v\t%v\t%s\n", r.FileGroup, p.SequenceNumber, p.ItemName, p.CurrentQuantity, p.BaselineQuantity, r.ID)
			}
			return tw.Flush()
		})
	},
}

var exportCmd = &cobra.Command{
	Use:   "export <fileGroup>",
	Short: "Write the projected (or raw) sheet of a file group as xlsx",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withServices(cmd, func(ctx context.Context, s *svc.Services) error {
			var (
				data []byte
				err  error
			)
			if exportRaw {
				data, err = s.Exporter.RawXLSX(ctx, args[0])
			} else {
				data, err = s.Exporter.ProjectedXLSX(ctx, args[0])
			}
			if err != nil {
				return err
			}
			out := exportOut
			if out == "" {
				out = args[0] + ".xlsx"
			}
			if err := os.WriteFile(out, data, 0o644); err != nil {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "wrote %s (%d bytes)\n", out, len(data))
			return nil
		})
	},
}

var briefingCmd = &cobra.Command{
	Use:   "briefing <fileGroup>",
	Short: "Summarize shortages of a file group",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withServices(cmd, func(ctx context.Context, s *svc.Services) error {
			b, err := s.Briefing.Brief(ctx, args[0])
			if err != nil {
				return err
			}
			return printResult(cmd.OutOrStdout(), b, b.Text)
		})
	},
}

var groupsDelete string

var groupsCmd = &cobra.Command{
	Use:   "groups",
	Short: "List file groups and their imported files, or delete one with --delete",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withServices(cmd, func(ctx context.Context, s *svc.Services) error {
			api := svc.NewAPI(s, nil)
			if groupsDelete != "" {
				res, err := api.DeleteGroup(ctx, groupsDelete)
				if err != nil {
					return err
				}
				return printResult(cmd.OutOrStdout(), res, fmt.Sprintf("deleted %s: %d rows, %d files", res.FileGroup, res.RowsDeleted, res.FilesDeleted))
			}
			groups, err := api.ListGroups(ctx)
			if err != nil {
				return err
			}
			if asJSON {
				return printJSON(cmd.OutOrStdout(), groups)
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "GROUP\tFILES\tROWS IMPORTED")
			for _, g := range groups {
				n := 0
				for _, f := range g.Files {
					n += f.RowCount
				}
				fmt.Fprintf(tw, "%s\t%d\t%d\n", g.FileGroup, len(g.Files), n)
			}
			return tw.Flush()
		})
	},
}

func init() {
	groupsCmd.Flags().StringVar(&groupsDelete, "delete", "", "Delete this file group and its import log")
	importCmd.Flags().StringVarP(&importGroup, "group", "g", "", "File group to append to (default: file stem)")
	confirmCmd.Flags().StringVarP(&confirmGroup, "group", "g", "", "Confirm every row of this file group")
	confirmCmd.Flags().Float64Var(&confirmBase, "baseline", 0, "Explicit base stock (single row only)")
	alarmsCmd.Flags().StringVarP(&alarmsGroup, "group", "g", "", "Only this file group")
	exportCmd.Flags().StringVarP(&exportOut, "out", "o", "", "Output path (default: <fileGroup>.xlsx)")
	exportCmd.Flags().BoolVar(&exportRaw, "raw", false, "Export the original columns instead of the projected sheet")
}

// importFile appends one file to --group when given, else to the group named after its stem.
func importFile(ctx context.Context, s *svc.Services, path string) (ingest.ImportResult, error) {
	if importGroup == "" {
		return s.Importer.ImportPath(ctx, path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return ingest.ImportResult{}, err
	}
	return s.Importer.ImportBytes(ctx, importGroup, filepath.Base(path), data)
}

func printResult(w io.Writer, v any, text string) error {
	if asJSON {
		return printJSON(w, v)
	}
	_, err := fmt.Fprintln(w, text)
	return err
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
