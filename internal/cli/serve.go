package cli

import (
	"errors"
	"time"

	"github.com/spf13/cobra"

	"github.com/geezhu/clash-subscription-merge/internal/mergeserver"
)

func newServeCmd() *cobra.Command {
	var (
		opts       mergeOptions
		httpAddr   string
		maxConns   int
		debounceMS int
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the merged config over HTTP and re-merge on snippet changes",
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.sourcesPath == "" {
				return errors.New("serve requires --sources")
			}
			cfg, err := opts.resolve(cmd)
			if err != nil {
				return err
			}

			srv, err := mergeserver.New(func() (map[string]any, error) {
				// Re-read the sources file too, so edits to it are picked
				// up on the next reload.
				fresh, err := opts.resolve(cmd)
				if err != nil {
					return nil, err
				}
				return buildDocument(fresh)
			})
			if err != nil {
				return err
			}

			watchPaths := []string{opts.sourcesPath}
			for _, src := range cfg.Sources {
				watchPaths = append(watchPaths, src.Snippet)
			}
			closer, err := srv.Watch(watchPaths, time.Duration(debounceMS)*time.Millisecond)
			if err != nil {
				return err
			}
			if closer != nil {
				defer closer.Close()
			}

			return srv.Run(httpAddr, maxConns)
		},
	}
	opts.register(cmd)
	fs := cmd.Flags()
	fs.StringVar(&httpAddr, "http", "127.0.0.1:9888", "address to serve the merged config on")
	fs.IntVar(&maxConns, "max-conns", 64, "maximum concurrent connections (0 for unlimited)")
	fs.IntVar(&debounceMS, "debounce-ms", 500, "debounce window for snippet change events")
	return cmd
}
