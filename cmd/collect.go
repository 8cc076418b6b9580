package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/revcollect/internal/collect"
	"github.com/sells-group/revcollect/internal/config"
	"github.com/sells-group/revcollect/internal/review"
	"github.com/sells-group/revcollect/internal/runlog"
)

var collectCmd = &cobra.Command{
	Use:   "collect",
	Short: "Collect and pool reviews from dump files",
	Long:  "Reads review inputs, drops duplicate reviewers and texts per entity, and reports the resulting source and target pools.",
}

var collectSourceCmd = &cobra.Command{
	Use:   "source <path>...",
	Short: "Collect product reviews from .gz dumps or FewSum .zip archives",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runCollectCmd(cmd, review.DomainProduct, args)
	},
}

var collectBusinessCmd = &cobra.Command{
	Use:   "business <path>",
	Short: "Collect business reviews from a JSON lines file or FewSum .zip archive",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runCollectCmd(cmd, review.DomainBusiness, args)
	},
}

func init() {
	f := collectCmd.PersistentFlags()
	f.Int("src-min", 0, "minimum token count for the source pool")
	f.Int("src-max", 0, "maximum token count for the source pool")
	f.Int("tgt-min", 0, "minimum token count for the target pool")
	f.Int("tgt-max", 0, "maximum token count for the target pool")
	f.Bool("verified", false, "keep only verified purchases (product reviews)")
	f.Int("limit", 0, "stop after this many admitted reviews")
	f.String("format", "table", "output format (table, json, yaml)")
	f.Int("top", 20, "entities to list in the summary, largest first (0 for all)")

	collectCmd.AddCommand(collectSourceCmd)
	collectCmd.AddCommand(collectBusinessCmd)
	rootCmd.AddCommand(collectCmd)
}

func runCollectCmd(cmd *cobra.Command, d review.Domain, paths []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	format, _ := cmd.Flags().GetString("format")
	top, _ := cmd.Flags().GetInt("top")
	if err := checkFormat(format); err != nil {
		return err
	}

	c := *cfg
	c.Collect = collectConfigFromFlags(cmd, cfg.Collect)
	if err := c.Validate("collect"); err != nil {
		return err
	}

	st, err := openRunLog(ctx, c.Store)
	if err != nil {
		return err
	}
	defer closeRunLog(st)

	opts := optionsFrom(c.Collect)
	s, err := collectOnce(ctx, st, d, paths, opts, top)
	if err != nil {
		return err
	}
	return writeSummary(os.Stdout, format, s)
}

// collectOnce runs one tracked collection and summarizes it.
func collectOnce(ctx context.Context, st runlog.Store, d review.Domain, paths []string, opts collect.Options, top int) (collectSummary, error) {
	coll, runID, err := runlog.Track(ctx, st, string(d), paths, func(ctx context.Context) (*collect.Collection, error) {
		return collect.Read(ctx, d, paths, opts)
	})
	if err != nil {
		return collectSummary{}, eris.Wrap(err, "collect")
	}
	return summarize(runID, d, paths, opts, coll, top), nil
}

// collectConfigFromFlags overlays the flags the user set on base.
func collectConfigFromFlags(cmd *cobra.Command, base config.CollectConfig) config.CollectConfig {
	fs := cmd.Flags()
	intFlag := func(name string, dst **int) {
		if fs.Changed(name) {
			n, _ := fs.GetInt(name)
			*dst = &n
		}
	}
	intFlag("src-min", &base.SrcMin)
	intFlag("src-max", &base.SrcMax)
	intFlag("tgt-min", &base.TgtMin)
	intFlag("tgt-max", &base.TgtMax)
	intFlag("limit", &base.Limit)
	if fs.Changed("verified") {
		base.VerifiedOnly, _ = fs.GetBool("verified")
	}
	return base
}

func optionsFrom(c config.CollectConfig) collect.Options {
	return collect.Options{
		Source:       collect.Range{Min: c.SrcMin, Max: c.SrcMax},
		Target:       collect.Range{Min: c.TgtMin, Max: c.TgtMax},
		VerifiedOnly: c.VerifiedOnly,
		Limit:        c.Limit,
	}
}

// entitySummary is the pool sizes of one entity.
type entitySummary struct {
	Entity string `json:"entity" yaml:"entity"`
	Source int    `json:"source" yaml:"source"`
	Target int    `json:"target" yaml:"target"`
}

// collectSummary is what the collect commands print.
type collectSummary struct {
	RunID       string          `json:"run_id,omitempty" yaml:"run_id,omitempty"`
	Domain      string          `json:"domain" yaml:"domain"`
	Inputs      []string        `json:"inputs" yaml:"inputs"`
	SourceRange string          `json:"source_range" yaml:"source_range"`
	TargetRange string          `json:"target_range" yaml:"target_range"`
	Stats       collect.Stats   `json:"stats" yaml:"stats"`
	Entities    []entitySummary `json:"entities" yaml:"entities"`
}

// summarize lists the top entities by combined pool size, ties broken by id.
// top <= 0 keeps every entity.
func summarize(runID string, d review.Domain, inputs []string, opts collect.Options, coll *collect.Collection, top int) collectSummary {
	s := collectSummary{
		RunID:       runID,
		Domain:      string(d),
		Inputs:      inputs,
		SourceRange: opts.Source.String(),
		TargetRange: opts.Target.String(),
		Stats:       coll.Stats,
		Entities:    make([]entitySummary, 0, coll.Len()),
	}
	for _, id := range coll.Entities() {
		g, _ := coll.Get(id)
		s.Entities = append(s.Entities, entitySummary{Entity: id, Source: len(g.Source), Target: len(g.Target)})
	}
	sort.SliceStable(s.Entities, func(i, j int) bool {
		return s.Entities[i].Source+s.Entities[i].Target > s.Entities[j].Source+s.Entities[j].Target
	})
	if top > 0 && len(s.Entities) > top {
		s.Entities = s.Entities[:top]
	}
	return s
}

func checkFormat(format string) error {
	switch format {
	case "table", "json", "yaml":
		return nil
	default:
		return eris.Errorf("unsupported output format: %s", format)
	}
}

// writeSummary renders s to out as a table, JSON or YAML.
func writeSummary(out io.Writer, format string, s collectSummary) error {
	switch format {
	case "json":
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return eris.Wrap(enc.Encode(s), "write summary json")
	case "yaml":
		enc := yaml.NewEncoder(out)
		enc.SetIndent(2)
		if err := enc.Encode(s); err != nil {
			return eris.Wrap(err, "write summary yaml")
		}
		return eris.Wrap(enc.Close(), "write summary yaml")
	case "table":
		formatSummaryTable(out, s)
		return nil
	default:
		return checkFormat(format)
	}
}

func formatSummaryTable(out io.Writer, s collectSummary) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	if s.RunID != "" {
		_, _ = fmt.Fprintf(w, "Run:\t%s\n", s.RunID)
	}
	_, _ = fmt.Fprintf(w, "Domain:\t%s\n", s.Domain)
	_, _ = fmt.Fprintf(w, "Inputs:\t%s\n", strings.Join(s.Inputs, ", "))
	_, _ = fmt.Fprintf(w, "Source range:\t%s\n", s.SourceRange)
	_, _ = fmt.Fprintf(w, "Target range:\t%s\n", s.TargetRange)
	_, _ = fmt.Fprintf(w, "Scanned:\t%d\n", s.Stats.Scanned)
	_, _ = fmt.Fprintf(w, "Duplicates:\t%d\n", s.Stats.Duplicates)
	_, _ = fmt.Fprintf(w, "Admitted:\t%d\n", s.Stats.Admitted)
	_, _ = fmt.Fprintf(w, "Entities:\t%d\n", s.Stats.Entities)
	_, _ = fmt.Fprintf(w, "Source entries:\t%d\n", s.Stats.SourceEntries)
	_, _ = fmt.Fprintf(w, "Target entries:\t%d\n", s.Stats.TargetEntries)
	if s.Stats.LimitReached {
		_, _ = fmt.Fprintln(w, "Limit reached:\tyes")
	}
	_ = w.Flush()

	if len(s.Entities) == 0 {
		return
	}
	_, _ = fmt.Fprintln(out)
	w = tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ENTITY\tSOURCE\tTARGET")
	_, _ = fmt.Fprintln(w, "------\t------\t------")
	for _, e := range s.Entities {
		_, _ = fmt.Fprintf(w, "%s\t%d\t%d\n", e.Entity, e.Source, e.Target)
	}
	_ = w.Flush()
}
