package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/phanxgames/rig"
	"github.com/spf13/cobra"
)

// options holds the persistent flags shared by every command.
type options struct {
	configPath string
	verbose    bool
	debug      bool
}

func newRootCmd() *cobra.Command {
	opts := &options{}
	root := &cobra.Command{
		Use:           "rigtool",
		Short:         "Inspect, validate and evaluate rig definition files",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if opts.verbose {
				rig.SetLogger(slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: slog.LevelDebug})))
			}
		},
	}
	root.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "hierarchy config file (YAML)")
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "log hierarchy diagnostics to stderr")
	root.PersistentFlags().BoolVar(&opts.debug, "debug", false, "panic on integrity errors")

	root.AddCommand(
		newInspectCmd(opts),
		newValidateCmd(opts),
		newEvalCmd(opts),
		newDumpCmd(opts),
	)
	return root
}

// load reads the config (when given) and builds the rig at path.
func (o *options) load(path string) (*rig.Hierarchy, error) {
	cfg := rig.DefaultConfig()
	if o.configPath != "" {
		data, err := os.ReadFile(o.configPath)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if cfg, err = rig.ParseConfig(data); err != nil {
			return nil, err
		}
	}
	if o.debug {
		cfg.Debug = true
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rig: %w", err)
	}
	return rig.LoadHierarchy(data, cfg)
}

// =============================================================================
// INSPECT
// =============================================================================

type elementReport struct {
	Key      string             `json:"key"`
	Index    int                `json:"index"`
	Parents  []rig.ParentWeight `json:"parents,omitempty"`
	Global   *transformReport   `json:"global,omitempty"`
	Initial  *transformReport   `json:"initial,omitempty"`
	Curve    *float64           `json:"curve,omitempty"`
	Children int                `json:"children"`
}

type transformReport struct {
	Translation [3]float64 `json:"translation"`
	Rotation    [4]float64 `json:"rotation"`
	Scale       [3]float64 `json:"scale"`
}

func reportTransform(t rig.Transform) *transformReport {
	return &transformReport{
		Translation: t.Translation,
		Rotation:    [4]float64{t.Rotation.V[0], t.Rotation.V[1], t.Rotation.V[2], t.Rotation.W},
		Scale:       t.Scale,
	}
}

func buildReport(h *rig.Hierarchy) []elementReport {
	out := make([]elementReport, 0, h.Len())
	for _, e := range h.TopologicalOrder() {
		r := elementReport{
			Key:      e.Key().String(),
			Index:    e.Index(),
			Parents:  h.GetParentWeights(e.Key()),
			Children: len(h.Children(e.Key())),
		}
		if e.IsA(rig.ClassTransform) {
			r.Global = reportTransform(h.Transform(e, rig.CurrentGlobal))
			r.Initial = reportTransform(h.Transform(e, rig.InitialGlobal))
		}
		if v, ok := h.CurveValue(e.Key()); ok {
			r.Curve = &v
		}
		out = append(out, r)
	}
	return out
}

func printReport(w io.Writer, reports []elementReport) {
	for _, r := range reports {
		fmt.Fprintf(w, "%-28s", r.Key)
		if r.Global != nil {
			t := r.Global.Translation
			fmt.Fprintf(w, " global=(%.4g, %.4g, %.4g)", t[0], t[1], t[2])
		}
		if r.Curve != nil {
			fmt.Fprintf(w, " value=%.4g", *r.Curve)
		}
		for _, p := range r.Parents {
			fmt.Fprintf(w, " <- %s@%.3g", p.Parent, p.Current.Location)
		}
		fmt.Fprintln(w)
	}
}

func newInspectCmd(opts *options) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "inspect <rig.yaml>",
		Short: "Print every element with its global transform, parents first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			h, err := opts.load(args[0])
			if err != nil {
				return err
			}
			reports := buildReport(h)
			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(reports)
			}
			printReport(cmd.OutOrStdout(), reports)
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "output as JSON")
	return cmd
}

// =============================================================================
// VALIDATE
// =============================================================================

func newValidateCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "validate <rig.yaml>",
		Short: "Build the rig and check its integrity",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			h, err := opts.load(args[0])
			if err != nil {
				return err
			}
			h.ComputeAllTransforms()
			if err := h.CheckIntegrity(); err != nil {
				return fmt.Errorf("integrity: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "ok: %d elements\n", h.Len())
			return nil
		},
	}
}

// =============================================================================
// EVAL
// =============================================================================

// assignment is one --set flag: a translation written to an element.
type assignment struct {
	key rig.Key
	v   mgl64.Vec3
}

// parseAssignment parses "Kind:Name=x,y,z".
func parseAssignment(s string) (assignment, error) {
	lhs, rhs, ok := strings.Cut(s, "=")
	if !ok {
		return assignment{}, fmt.Errorf("--set %q: want Kind:Name=x,y,z", s)
	}
	k, err := rig.ParseKey(lhs)
	if err != nil {
		return assignment{}, err
	}
	parts := strings.Split(rhs, ",")
	if len(parts) != 3 {
		return assignment{}, fmt.Errorf("--set %q: want three components", s)
	}
	var a assignment
	a.key = k
	for i, p := range parts {
		if a.v[i], err = strconv.ParseFloat(strings.TrimSpace(p), 64); err != nil {
			return assignment{}, fmt.Errorf("--set %q: %w", s, err)
		}
	}
	return a, nil
}

func newEvalCmd(opts *options) *cobra.Command {
	var (
		sets         []string
		space        string
		keepChildren bool
	)
	cmd := &cobra.Command{
		Use:   "eval <rig.yaml>",
		Short: "Write translations into the Current pose and print the result",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sp := rig.Local
			switch strings.ToLower(space) {
			case "local":
			case "global":
				sp = rig.Global
			default:
				return fmt.Errorf("--space %q: want local or global", space)
			}
			h, err := opts.load(args[0])
			if err != nil {
				return err
			}
			for _, s := range sets {
				a, err := parseAssignment(s)
				if err != nil {
					return err
				}
				if !h.Contains(a.key) {
					return fmt.Errorf("--set %s: %w", a.key, rig.ErrNotFound)
				}
				cur, _ := h.GetTransform(a.key, sp, rig.Current)
				cur.Translation = a.v
				if keepChildren {
					h.SetTransformKeepChildren(a.key, sp, rig.Current, cur)
				} else {
					h.SetTransform(a.key, sp, rig.Current, cur)
				}
			}
			printReport(cmd.OutOrStdout(), buildReport(h))
			st := h.Stats()
			fmt.Fprintf(cmd.ErrOrStderr(), "recomputes=%d solves=%d invalidations=%d\n",
				st.Recomputes, st.CompositeSolves, st.CompositeInvalidations)
			return nil
		},
	}
	cmd.Flags().StringArrayVar(&sets, "set", nil, "translation to write, Kind:Name=x,y,z (repeatable)")
	cmd.Flags().StringVar(&space, "space", "local", "space of --set values: local or global")
	cmd.Flags().BoolVar(&keepChildren, "keep-children", false, "keep dependents in place in global space")
	return cmd
}

// =============================================================================
// DUMP
// =============================================================================

func newDumpCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "dump <rig.yaml>",
		Short: "Rewrite the rig as canonical YAML",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			h, err := opts.load(args[0])
			if err != nil {
				return err
			}
			out, err := rig.DefinitionOf(h).Marshal()
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(out)
			return err
		},
	}
}
