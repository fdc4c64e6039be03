package main

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"LevelVault/internal/gamesave/app/migrate"
	"LevelVault/internal/shared/security"
)

func indexArg(s string) (int, error) {
	i, err := strconv.Atoi(s)
	if err != nil || i < 0 {
		return 0, fmt.Errorf("bad level index %q", s)
	}
	return i, nil
}

func newListCmd(o *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List levels without decoding their objects",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := o.open(cmd.Context())
			if err != nil {
				return err
			}
			list, err := svc.List()
			if err != nil {
				return err
			}
			return render(cmd.OutOrStdout(), o.output, list)
		},
	}
}

func newStatsCmd(o *rootOptions) *cobra.Command {
	var loadAll bool
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show level counts and skipped records",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := o.open(cmd.Context())
			if err != nil {
				return err
			}
			var loadErr error
			if loadAll {
				loadErr = svc.LoadAll(cmd.Context(), 0)
			}
			out := map[string]any{"stats": svc.Stats()}
			skipped := make([]map[string]any, 0)
			for _, s := range svc.Skipped() {
				item := map[string]any{"section": s.Section, "index": s.Index}
				if s.Err != nil {
					item["error"] = s.Err.Error()
				}
				skipped = append(skipped, item)
			}
			out["skipped"] = skipped
			if loadErr != nil {
				out["load_error"] = loadErr.Error()
			}
			return render(cmd.OutOrStdout(), o.output, out)
		},
	}
	cmd.Flags().BoolVar(&loadAll, "load-all", false, "decode every level before reporting")
	return cmd
}

func newUsageCmd(o *rootOptions) *cobra.Command {
	var kindName string
	cmd := &cobra.Command{
		Use:     "usage <index>",
		Short:   "Count referenced ids of one kind in a level",
		Example: "savetool usage 0 --kind group",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			i, err := indexArg(args[0])
			if err != nil {
				return err
			}
			kind, err := parseKind(kindName)
			if err != nil {
				return err
			}
			svc, err := o.open(cmd.Context())
			if err != nil {
				return err
			}
			usage, err := svc.Usage(cmd.Context(), i, kind)
			if err != nil {
				return err
			}
			return render(cmd.OutOrStdout(), o.output, usage)
		},
	}
	cmd.Flags().StringVar(&kindName, "kind", "group", "id kind")
	return cmd
}

func newMigrateCmd(o *rootOptions) *cobra.Command {
	var (
		kindName string
		rawRange []string
		dryRun   bool
	)
	cmd := &cobra.Command{
		Use:     "migrate <index>",
		Short:   "Shift id ranges in a level and write the save back",
		Example: "savetool migrate 3 --kind group --range 1-20:101 --range 50:200",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			i, err := indexArg(args[0])
			if err != nil {
				return err
			}
			kind, err := parseKind(kindName)
			if err != nil {
				return err
			}
			ranges := make([]migrate.Range, 0, len(rawRange))
			for _, s := range rawRange {
				r, err := parseRange(s)
				if err != nil {
					return err
				}
				ranges = append(ranges, r)
			}
			svc, err := o.open(cmd.Context())
			if err != nil {
				return err
			}
			if err = svc.Migrate(cmd.Context(), i, kind, ranges); err != nil {
				return err
			}
			if !dryRun {
				if err = svc.Save(cmd.Context()); err != nil {
					return err
				}
			}
			usage, err := svc.Usage(cmd.Context(), i, kind)
			if err != nil {
				return err
			}
			return render(cmd.OutOrStdout(), o.output, usage)
		},
	}
	cmd.Flags().StringVar(&kindName, "kind", "group", "id kind")
	cmd.Flags().StringArrayVar(&rawRange, "range", nil, "start-end:target, applied in order")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "do not write the save file")
	_ = cmd.MarkFlagRequired("range")
	return cmd
}

func newCompactCmd(o *rootOptions) *cobra.Command {
	var (
		kindName string
		ignore   []string
		dryRun   bool
	)
	cmd := &cobra.Command{
		Use:   "compact <index>",
		Short: "Renumber used ids into the lowest free slots",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			i, err := indexArg(args[0])
			if err != nil {
				return err
			}
			kind, err := parseKind(kindName)
			if err != nil {
				return err
			}
			ignored := make([]migrate.Span, 0, len(ignore))
			for _, s := range ignore {
				sp, err := parseSpan(s)
				if err != nil {
					return fmt.Errorf("ignore %q: %w", s, err)
				}
				ignored = append(ignored, sp)
			}
			svc, err := o.open(cmd.Context())
			if err != nil {
				return err
			}
			if err = svc.Compact(cmd.Context(), i, kind, ignored); err != nil {
				return err
			}
			if !dryRun {
				if err = svc.Save(cmd.Context()); err != nil {
					return err
				}
			}
			usage, err := svc.Usage(cmd.Context(), i, kind)
			if err != nil {
				return err
			}
			return render(cmd.OutOrStdout(), o.output, usage)
		},
	}
	cmd.Flags().StringVar(&kindName, "kind", "group", "id kind")
	cmd.Flags().StringArrayVar(&ignore, "ignore", nil, "id span left untouched, e.g. 1-10")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "do not write the save file")
	return cmd
}

func newExportCmd(o *rootOptions) *cobra.Command {
	var dst string
	cmd := &cobra.Command{
		Use:   "export <index>",
		Short: "Write one level as a .gmd file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			i, err := indexArg(args[0])
			if err != nil {
				return err
			}
			svc, err := o.open(cmd.Context())
			if err != nil {
				return err
			}
			text, err := svc.Export(i)
			if err != nil {
				return err
			}
			if dst == "" {
				_, err = fmt.Fprint(cmd.OutOrStdout(), text)
				return err
			}
			return os.WriteFile(dst, []byte(text), 0o644)
		},
	}
	cmd.Flags().StringVar(&dst, "to", "", "destination file, stdout when empty")
	return cmd
}

func newImportCmd(o *rootOptions) *cobra.Command {
	var at int
	cmd := &cobra.Command{
		Use:   "import <file.gmd>",
		Short: "Insert a .gmd level into the save",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			svc, err := o.open(cmd.Context())
			if err != nil {
				return err
			}
			idx, err := svc.Import(cmd.Context(), string(text), at)
			if err != nil {
				return err
			}
			if err = svc.Save(cmd.Context()); err != nil {
				return err
			}
			return render(cmd.OutOrStdout(), o.output, map[string]int{"index": idx})
		},
	}
	cmd.Flags().IntVar(&at, "at", -1, "insert position, appends when out of range")
	return cmd
}

func newTokenCmd(o *rootOptions) *cobra.Command {
	var (
		operator string
		ttl      time.Duration
	)
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue an editor token for the vault API (needs JWT_SECRET)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			tok, err := security.Award(operator, ttl)
			if err != nil {
				return err
			}
			return render(cmd.OutOrStdout(), o.output, map[string]string{"operator": operator, "token": tok})
		},
	}
	cmd.Flags().StringVar(&operator, "operator", "editor", "operator id carried in the token")
	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "token lifetime")
	return cmd
}
