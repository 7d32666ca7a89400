package topic

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/birdayz/rsv/pkg/app"
	pkgtopic "github.com/birdayz/rsv/pkg/topic"
)

// NewCommand returns the "rsv topic" parent command.
func NewCommand(a *app.App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "topic",
		Short: "List and create topics for RSV tables.",
	}
	cmd.AddCommand(
		newListCommand(a),
		newCreateCommand(a),
	)
	return cmd
}

// NewTopicsAlias returns the "rsv topics" alias for "rsv topic ls".
func NewTopicsAlias(a *app.App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "topics",
		Short: "List topics",
		Args:  cobra.ExactArgs(0),
		RunE:  listTopicsRunE(a),
	}
	a.AddNoHeadersFlag(cmd)
	return cmd
}

func listTopicsRunE(a *app.App) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		cl, err := a.NewClient()
		if err != nil {
			return err
		}
		defer cl.Close()

		topics, err := pkgtopic.List(cmd.Context(), cl.Admin)
		if err != nil {
			return fmt.Errorf("unable to list topics: %w", err)
		}

		w := app.NewTabWriter(a.OutWriter)
		if !a.NoHeaderFlag {
			fmt.Fprintf(w, "NAME\tPARTITIONS\tREPLICAS\t\n")
		}
		for _, t := range topics {
			fmt.Fprintf(w, "%v\t%v\t%v\t\n", t.Name, t.Partitions, t.ReplicationFactor)
		}
		w.Flush()
		return nil
	}
}

func newListCommand(a *app.App) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "ls",
		Aliases: []string{"list"},
		Short:   "List topics",
		Args:    cobra.ExactArgs(0),
		RunE:    listTopicsRunE(a),
	}
	a.AddNoHeadersFlag(cmd)
	return cmd
}

func newCreateCommand(a *app.App) *cobra.Command {
	var (
		partitionsFlag  int32
		replicationFlag int16
	)

	cmd := &cobra.Command{
		Use:   "create [TOPIC]",
		Short: "Create a topic, succeeding if it already exists",
		Long:  "Create a topic for RSV tables. The topic defaults to the current cluster's topic.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := a.CurrentCluster.Topic
			if len(args) > 0 {
				name = args[0]
			}
			if name == "" {
				return fmt.Errorf("no topic given and the current cluster has no default topic")
			}

			cl, err := a.NewClient()
			if err != nil {
				return err
			}
			defer cl.Close()

			if err := pkgtopic.Ensure(cmd.Context(), cl.Admin, name, partitionsFlag, replicationFlag); err != nil {
				return fmt.Errorf("could not create topic: %w", err)
			}
			fmt.Fprintf(a.OutWriter, "Topic %v is ready.\n", name)
			return nil
		},
	}

	cmd.Flags().Int32VarP(&partitionsFlag, "partitions", "p", 1, "Number of partitions")
	cmd.Flags().Int16VarP(&replicationFlag, "replicas", "r", 1, "Number of replicas")
	return cmd
}
