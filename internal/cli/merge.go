package cli

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/geezhu/clash-subscription-merge/internal/tui"
	"github.com/geezhu/clash-subscription-merge/pkg/config"
	"github.com/geezhu/clash-subscription-merge/pkg/mergecfg"
	"github.com/geezhu/clash-subscription-merge/pkg/yamlutil"
)

type mergeOptions struct {
	sourcesPath string
	basePath    string
	outPath     string
	listen      string
	acl4ssr     bool
}

func (o *mergeOptions) register(cmd *cobra.Command) {
	fs := cmd.Flags()
	fs.StringVarP(&o.sourcesPath, "sources", "s", "", "sources yaml path (omit to enter sources interactively)")
	fs.StringVar(&o.basePath, "base", "", "base config yaml path (built-in defaults when omitted)")
	fs.StringVarP(&o.outPath, "out", "o", config.DefaultOutputPath, "output path for the merged config")
	fs.StringVar(&o.listen, "listen", config.DefaultListenAddr, "listen address for generated listeners")
	fs.BoolVar(&o.acl4ssr, "acl4ssr", false, "replace snippet rules with ACL4SSR rule sets per namespace")
}

// resolve loads the sources file (or starts from defaults) and applies
// explicitly set flags over it.
func (o *mergeOptions) resolve(cmd *cobra.Command) (*config.Config, error) {
	var cfg *config.Config
	if strings.TrimSpace(o.sourcesPath) != "" {
		loaded, err := config.Load(o.sourcesPath)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	} else {
		cfg = config.Default()
	}

	fs := cmd.Flags()
	if fs.Changed("out") {
		cfg.Out = o.outPath
	}
	if fs.Changed("base") {
		cfg.Base = o.basePath
	}
	if fs.Changed("listen") {
		cfg.Listen = o.listen
	}
	if fs.Changed("acl4ssr") {
		cfg.KeepOriginal = !o.acl4ssr
	}
	return cfg, nil
}

func newMergeCmd() *cobra.Command {
	var opts mergeOptions
	cmd := &cobra.Command{
		Use:   "merge",
		Short: "Merge the configured sources and write the merged config",
		RunE:  opts.run,
	}
	opts.register(cmd)
	return cmd
}

func (o *mergeOptions) run(cmd *cobra.Command, args []string) error {
	cfg, err := o.resolve(cmd)
	if err != nil {
		return err
	}
	if err := ensureSources(cfg); err != nil {
		return err
	}
	doc, err := buildDocument(cfg)
	if err != nil {
		return err
	}
	if err := config.WriteDocument(cfg.Out, doc); err != nil {
		return fmt.Errorf("write %s: %w", cfg.Out, err)
	}
	log.Printf("merge ok: out=%q namespaces=%d groups=%d", cfg.Out, len(cfg.Sources), groupCount(doc))
	fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", cfg.Out)
	return nil
}

// ensureSources falls back to interactive entry on a terminal when the
// config carries no sources.
func ensureSources(cfg *config.Config) error {
	if len(cfg.Sources) > 0 {
		return nil
	}
	fd := os.Stdin.Fd()
	if !isatty.IsTerminal(fd) && !isatty.IsCygwinTerminal(fd) {
		return errors.New("no sources configured: pass --sources or run on a terminal for interactive entry")
	}
	sources, err := tui.Run(os.Stdin, os.Stdout)
	if err != nil {
		return err
	}
	cfg.Sources = sources
	return cfg.Validate()
}

// buildDocument loads the base and every snippet, then runs the full merge.
func buildDocument(cfg *config.Config) (map[string]any, error) {
	var base map[string]any
	if strings.TrimSpace(cfg.Base) != "" {
		loaded, err := config.LoadDocument(cfg.Base)
		if err != nil {
			return nil, fmt.Errorf("load base %s: %w", cfg.Base, err)
		}
		base = loaded
	} else {
		base = config.BaseDocument()
	}

	m := mergecfg.NewMerger(base, mergecfg.Options{
		ListenAddr:        cfg.Listen,
		KeepOriginalRules: cfg.KeepOriginal,
	})
	for _, src := range cfg.Sources {
		doc, err := config.LoadDocument(src.Snippet)
		if err != nil {
			return nil, fmt.Errorf("load snippet %s: %w", src.Snippet, err)
		}
		if err := m.AddSource(mergecfg.Source{
			Namespace: src.Name,
			Port:      src.Port,
			URL:       src.URL,
			Document:  doc,
		}); err != nil {
			return nil, err
		}
	}
	return m.Finalize()
}

func groupCount(doc map[string]any) int {
	groups, _ := yamlutil.AsSlice(doc["proxy-groups"])
	return len(groups)
}
