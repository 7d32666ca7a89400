package config

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	yaml "gopkg.in/yaml.v3"

	"github.com/birdayz/rsv/pkg/app"
	"github.com/birdayz/rsv/pkg/compress"
	"github.com/birdayz/rsv/pkg/config"
)

// NewCommand returns the "rsv config" command with subcommands.
func NewCommand(a *app.App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Handle rsv configuration",
	}

	cmd.AddCommand(
		newCurrentContextCommand(a),
		newUseClusterCommand(a),
		newGetClustersCommand(a),
		newAddClusterCommand(a),
		newRemoveClusterCommand(a),
		newSelectClusterCommand(a),
		newImportCommand(a),
		newViewCommand(a),
		newSetCommand(a),
	)

	return cmd
}

func newCurrentContextCommand(a *app.App) *cobra.Command {
	return &cobra.Command{
		Use:   "current-context",
		Short: "Displays the current context",
		Args:  cobra.ExactArgs(0),
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(a.OutWriter, a.Cfg.CurrentCluster)
		},
	}
}

func newUseClusterCommand(a *app.App) *cobra.Command {
	return &cobra.Command{
		Use:               "use-cluster [NAME]",
		Short:             "Sets the current cluster in the configuration",
		Args:              cobra.ExactArgs(1),
		ValidArgsFunction: a.ValidConfigArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[0]
			if err := a.Cfg.SetCurrentCluster(name); err != nil {
				return fmt.Errorf("cluster with name %v not found", name)
			}
			fmt.Fprintf(a.OutWriter, "Switched to cluster \"%v\".\n", name)
			return nil
		},
	}
}

func newGetClustersCommand(a *app.App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "get-clusters",
		Short: "Display clusters in the configuration file",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			w := app.NewTabWriter(a.OutWriter)
			if !a.NoHeaderFlag {
				fmt.Fprintln(w, "  NAME\tBROKERS\tTOPIC")
			}
			for _, cluster := range a.Cfg.Clusters {
				marker := "  "
				if cluster.Name == a.Cfg.CurrentCluster {
					marker = "* "
				}
				fmt.Fprintf(w, "%s%s\t%s\t%s\n", marker, cluster.Name, strings.Join(cluster.Brokers, ","), cluster.Topic)
			}
			w.Flush()
		},
	}
	a.AddNoHeadersFlag(cmd)
	return cmd
}

func newAddClusterCommand(a *app.App) *cobra.Command {
	var (
		topicFlag            string
		securityProtocolFlag string
	)

	cmd := &cobra.Command{
		Use:   "add-cluster [NAME]",
		Short: "Add cluster",
		Example: `  rsv config add-cluster local -b localhost:9092
  rsv config add-cluster prod -b broker1:9093,broker2:9093 --security-protocol SSL --topic tables`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[0]
			if a.Cfg.HasCluster(name) {
				return fmt.Errorf("could not add cluster: cluster with name '%v' exists already", name)
			}
			if len(a.BrokersFlag) == 0 {
				return fmt.Errorf("could not add cluster: --brokers is required")
			}

			a.Cfg.Clusters = append(a.Cfg.Clusters, &config.Cluster{
				Name:             name,
				Brokers:          a.BrokersFlag,
				SecurityProtocol: securityProtocolFlag,
				Topic:            topicFlag,
			})
			if err := a.Cfg.Write(); err != nil {
				return fmt.Errorf("unable to write config: %w", err)
			}
			fmt.Fprintln(a.OutWriter, "Added cluster.")
			return nil
		},
	}

	cmd.Flags().StringVar(&topicFlag, "topic", "", "Default topic for produce and consume")
	cmd.Flags().StringVar(&securityProtocolFlag, "security-protocol", "", "Security protocol: PLAINTEXT, SSL, SASL_PLAINTEXT or SASL_SSL")
	return cmd
}

func newRemoveClusterCommand(a *app.App) *cobra.Command {
	return &cobra.Command{
		Use:               "remove-cluster [NAME]",
		Short:             "remove cluster",
		Args:              cobra.ExactArgs(1),
		ValidArgsFunction: a.ValidConfigArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[0]

			pos := -1
			for i, cluster := range a.Cfg.Clusters {
				if cluster.Name == name {
					pos = i
					break
				}
			}

			if pos == -1 {
				return fmt.Errorf("could not delete cluster: cluster with name '%v' does not exist", name)
			}

			a.Cfg.Clusters = append(a.Cfg.Clusters[:pos], a.Cfg.Clusters[pos+1:]...)
			if a.Cfg.CurrentCluster == name {
				a.Cfg.CurrentCluster = ""
			}

			if err := a.Cfg.Write(); err != nil {
				return fmt.Errorf("unable to write config: %w", err)
			}
			fmt.Fprintln(a.OutWriter, "Removed cluster.")
			return nil
		},
	}
}

func newSelectClusterCommand(a *app.App) *cobra.Command {
	return &cobra.Command{
		Use:   "select-cluster",
		Short: "Interactively select a cluster",
		RunE: func(cmd *cobra.Command, args []string) error {
			var clusterNames []string
			pos := 0
			for k, cluster := range a.Cfg.Clusters {
				clusterNames = append(clusterNames, cluster.Name)
				if cluster.Name == a.Cfg.CurrentCluster {
					pos = k
				}
			}
			if len(clusterNames) == 0 {
				return fmt.Errorf("no clusters configured, add one with 'rsv config add-cluster'")
			}

			searcher := func(input string, index int) bool {
				cluster := clusterNames[index]
				name := strings.ReplaceAll(strings.ToLower(cluster), " ", "")
				input = strings.ReplaceAll(strings.ToLower(input), " ", "")
				return strings.Contains(name, input)
			}

			p := promptui.Select{
				Label:     "Select cluster",
				Items:     clusterNames,
				Searcher:  searcher,
				Size:      10,
				CursorPos: pos,
			}

			_, selected, err := p.Run()
			if err != nil {
				// User cancelled (e.g. Ctrl-C). Not an error.
				return nil
			}

			if err := a.Cfg.SetCurrentCluster(selected); err != nil {
				return fmt.Errorf("cluster with name %v not found", selected)
			}
			fmt.Fprintf(a.OutWriter, "Switched to cluster \"%v\".\n", selected)
			return nil
		},
	}
}

func newImportCommand(a *app.App) *cobra.Command {
	var nameFlag string

	cmd := &cobra.Command{
		Use:   "import [ccloud | FILE]",
		Short: "Import a Kafka client properties file into the $HOME/.rsv/config file",
		Example: `  rsv config import ccloud
  rsv config import client.properties --name staging`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			if path == "ccloud" {
				var err error
				path, err = config.TryFindCcloudConfigFile()
				if err != nil {
					return fmt.Errorf("could not find Confluent Cloud config file: %w", err)
				}
				fmt.Fprintf(a.OutWriter, "Detected Confluent Cloud config in file %v\n", path)
			}

			name := nameFlag
			if name == "" {
				name = "ccloud"
			}
			newCluster, err := config.ParseClientProperties(path, name)
			if err != nil {
				return fmt.Errorf("failed to parse client properties: %w", err)
			}

			var found bool
			for i, c := range a.Cfg.Clusters {
				if c.Name == name {
					found = true
					a.Cfg.Clusters[i] = newCluster
					break
				}
			}

			if !found {
				fmt.Fprintln(a.OutWriter, "Wrote new entry to config file")
				a.Cfg.Clusters = append(a.Cfg.Clusters, newCluster)
			}

			if a.Cfg.CurrentCluster == "" {
				a.Cfg.CurrentCluster = newCluster.Name
			}
			if err = a.Cfg.Write(); err != nil {
				return fmt.Errorf("failed to write config: %w", err)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&nameFlag, "name", "", "Cluster name to store the import under (default \"ccloud\")")
	return cmd
}

const masked = "********"

func newViewCommand(a *app.App) *cobra.Command {
	var rawFlag bool

	cmd := &cobra.Command{
		Use:   "view",
		Short: "Print the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := a.Cfg
			cfg.Clusters = make([]*config.Cluster, len(a.Cfg.Clusters))
			for i, c := range a.Cfg.Clusters {
				cl := *c
				if cl.SASL != nil && !rawFlag {
					sasl := *cl.SASL
					if sasl.Password != "" {
						sasl.Password = masked
					}
					if sasl.ClientSecret != "" {
						sasl.ClientSecret = masked
					}
					if sasl.Token != "" {
						sasl.Token = masked
					}
					cl.SASL = &sasl
				}
				cfg.Clusters[i] = &cl
			}
			strict := cfg.StrictMode()
			cfg.Strict = &strict

			fmt.Fprintf(a.ErrWriter, "# %s\n", a.Cfg.Path())
			enc := yaml.NewEncoder(a.OutWriter)
			defer enc.Close()
			return enc.Encode(&cfg)
		},
	}

	cmd.Flags().BoolVar(&rawFlag, "raw", false, "Show secrets instead of masking them")
	return cmd
}

var settableKeys = []string{"strict", "compression", "format", "log-level", "null"}

func newSetCommand(a *app.App) *cobra.Command {
	return &cobra.Command{
		Use:   "set KEY VALUE",
		Short: "Set a table handling option",
		Long:  "Set a table handling option. Keys: " + strings.Join(settableKeys, ", ") + ".",
		Example: `  rsv config set strict false
  rsv config set compression zstd
  rsv config set null '<null>'`,
		Args: cobra.ExactArgs(2),
		ValidArgsFunction: func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
			switch {
			case len(args) == 0:
				return settableKeys, cobra.ShellCompDirectiveNoFileComp
			case args[0] == "compression":
				names := make([]string, 0, len(compress.Algorithms))
				for _, algo := range compress.Algorithms {
					names = append(names, string(algo))
				}
				return names, cobra.ShellCompDirectiveNoFileComp
			case args[0] == "format":
				return app.CompleteOutputFormat(cmd, args, toComplete)
			}
			return nil, cobra.ShellCompDirectiveNoFileComp
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			key, value := args[0], args[1]
			switch key {
			case "strict":
				b, err := strconv.ParseBool(value)
				if err != nil {
					return fmt.Errorf("strict must be true or false: %w", err)
				}
				a.Cfg.Strict = &b
			case "compression":
				algo, err := compress.ParseAlgorithm(value)
				if err != nil {
					return err
				}
				a.Cfg.Compression = algo
			case "format":
				var f app.OutputFormat
				if err := f.Set(value); err != nil {
					return fmt.Errorf("format %w", err)
				}
				a.Cfg.Format = string(f)
			case "log-level":
				switch strings.ToLower(value) {
				case "debug", "info", "warn", "error":
					a.Cfg.LogLevel = strings.ToLower(value)
				default:
					return fmt.Errorf("log-level must be one of: debug, info, warn, error")
				}
			case "null":
				a.Cfg.Null = value
			default:
				return fmt.Errorf("unknown key %q, must be one of: %s", key, strings.Join(settableKeys, ", "))
			}

			if err := a.Cfg.Write(); err != nil {
				return fmt.Errorf("unable to write config: %w", err)
			}
			fmt.Fprintf(a.OutWriter, "Set %s to %q.\n", key, value)
			return nil
		},
	}
}
