package consume

import (
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/spf13/cobra"
	"github.com/twmb/franz-go/pkg/kgo"

	"github.com/birdayz/rsv/pkg/app"
)

// NewCommand returns the "rsv consume" command.
func NewCommand(a *app.App) *cobra.Command {
	var (
		offsetFlag        string
		groupFlag         string
		groupCommitFlag   bool
		outputFormat      = app.OutputFormatJSON
		follow            bool
		flagPartitions    []int32
		limitMessagesFlag int64
		headerFilterFlag  []string
	)

	cmd := &cobra.Command{
		Use:   "consume [TOPIC]",
		Short: "Consume RSV records and print their tables",
		Long:  "Consume records from a Kafka topic, verify their digest header, decode the RSV value and print the table. Records that are not RSV tables are reported on stderr and skipped. The topic defaults to the current cluster's topic.",
		Example: `  rsv consume tables
  rsv consume tables -f --output table
  rsv consume tables --offset newest -f
  rsv consume tables -l 10
  rsv consume tables -g my-group --commit
  rsv consume tables --header "env:prod"`,
		Args:              cobra.MaximumNArgs(1),
		ValidArgsFunction: a.ValidTopicArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			topic := a.CurrentCluster.Topic
			if len(args) > 0 {
				topic = args[0]
			}
			if topic == "" {
				return fmt.Errorf("no topic given and the current cluster has no default topic")
			}
			ctx := cmd.Context()

			headerFilter, err := parseHeaderFilter(headerFilterFlag)
			if err != nil {
				return err
			}

			var opts []kgo.Opt
			if groupFlag != "" || len(flagPartitions) == 0 {
				opts = append(opts, kgo.ConsumeTopics(topic))
			}
			if groupFlag != "" {
				opts = append(opts, kgo.ConsumerGroup(groupFlag))
				if !groupCommitFlag {
					opts = append(opts, kgo.DisableAutoCommit())
				}
			} else {
				offset, err := parseOffset(offsetFlag)
				if err != nil {
					return err
				}
				opts = append(opts, kgo.ConsumeResetOffset(offset))

				if len(flagPartitions) > 0 {
					offsets := make(map[int32]kgo.Offset, len(flagPartitions))
					for _, p := range flagPartitions {
						offsets[p] = offset
					}
					opts = append(opts, kgo.ConsumePartitions(map[string]map[int32]kgo.Offset{topic: offsets}))
				}
			}

			// --offset newest only makes sense while following.
			if offsetFlag == "newest" {
				follow = true
			}

			var prog *progress
			if !follow && groupFlag == "" {
				admCl, err := a.NewClient()
				if err != nil {
					return err
				}
				endOffs, err := admCl.Admin.ListEndOffsets(ctx, topic)
				admCl.Close()
				if err != nil {
					return fmt.Errorf("failed to get end offsets: %v", err)
				}
				endOffsetMap := app.EndOffsetMapForTopic(endOffs, topic)
				if len(flagPartitions) > 0 {
					selected := make(map[int32]int64, len(flagPartitions))
					for _, p := range flagPartitions {
						selected[p] = endOffsetMap[p]
					}
					endOffsetMap = selected
				}
				prog = newProgress(endOffsetMap, startOffset(offsetFlag), limitMessagesFlag)
				if prog.done() {
					return nil
				}
			}

			cl, err := a.NewClient(opts...)
			if err != nil {
				return err
			}
			defer cl.Close()

			var mu sync.Mutex
			for {
				fetches := cl.KGO.PollFetches(ctx)
				if fetches.IsClientClosed() || ctx.Err() != nil {
					return nil
				}

				fetches.EachRecord(func(rec *kgo.Record) {
					match := app.CheckHeaders(rec.Headers, headerFilter)
					if prog != nil && !prog.record(rec, match) {
						return
					}
					if !match {
						return
					}
					a.HandleRecord(rec, &mu, outputFormat, nil)
				})

				for _, e := range fetches.Errors() {
					fmt.Fprintf(a.ErrWriter, "fetch error topic %s partition %d: %v\n", e.Topic, e.Partition, e.Err)
				}

				if groupCommitFlag && groupFlag != "" {
					if err := cl.KGO.CommitUncommittedOffsets(ctx); err != nil {
						fmt.Fprintf(a.ErrWriter, "commit error: %v\n", err)
					}
				}

				if prog != nil && prog.done() {
					return nil
				}
			}
		},
	}

	cmd.Flags().StringVar(&offsetFlag, "offset", "oldest", "Offset to start consuming. Possible values: oldest, newest (implies --follow), or integer.")
	cmd.Flags().Var(&outputFormat, "output", "Print format: json, pretty, table, hex, raw")
	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "Continue to consume messages until program execution is interrupted/terminated")
	cmd.Flags().Int32SliceVarP(&flagPartitions, "partitions", "p", []int32{}, "Partitions to consume from")
	cmd.Flags().Int64VarP(&limitMessagesFlag, "limit-messages", "l", 0, "Limit messages per partition")
	cmd.Flags().StringVarP(&groupFlag, "group", "g", "", "Consumer Group to use for consume")
	cmd.Flags().BoolVar(&groupCommitFlag, "commit", false, "Commit Group offset after receiving messages. Works only if consuming as Consumer Group")
	cmd.Flags().StringSliceVar(&headerFilterFlag, "header", []string{}, "Filter messages by header. Format: key:value. Multiple filters can be specified")
	a.AddNoHeadersFlag(cmd)

	if err := cmd.RegisterFlagCompletionFunc("output", app.CompleteOutputFormat); err != nil {
		panic(fmt.Sprintf("Failed to register flag completion: %v", err))
	}

	return cmd
}

func parseOffset(s string) (kgo.Offset, error) {
	switch s {
	case "oldest":
		return kgo.NewOffset().AtStart(), nil
	case "newest":
		return kgo.NewOffset().AtEnd(), nil
	default:
		o, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return kgo.Offset{}, fmt.Errorf("could not parse '%s' to int64: %v", s, err)
		}
		return kgo.NewOffset().At(o), nil
	}
}

// startOffset returns the numeric start offset, or -1 for oldest.
func startOffset(s string) int64 {
	o, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return -1
	}
	return o
}

func parseHeaderFilter(flags []string) (map[string]string, error) {
	filter := make(map[string]string, len(flags))
	for _, f := range flags {
		parts := strings.SplitN(f, ":", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("invalid header filter format: %s, expected format: key:value", f)
		}
		filter[parts[0]] = parts[1]
	}
	return filter, nil
}

// progress tracks how far a bounded consume has read. A partition is done
// once it is empty, its start offset is at or past its end, its last record
// before the end offset captured at startup was read, or it printed the limit.
type progress struct {
	end   map[int32]int64
	start int64
	limit int64
	count map[int32]int64
	last  map[int32]int64
}

func newProgress(end map[int32]int64, start, limit int64) *progress {
	return &progress{
		end:   end,
		start: start,
		limit: limit,
		count: make(map[int32]int64),
		last:  make(map[int32]int64),
	}
}

// record accounts for rec and reports whether it should be printed. Every
// record advances the partition position; only records passing the header
// filter (match) count toward the limit.
func (p *progress) record(rec *kgo.Record, match bool) bool {
	p.last[rec.Partition] = rec.Offset
	if !match {
		return false
	}
	if p.limit > 0 && p.count[rec.Partition] >= p.limit {
		return false
	}
	p.count[rec.Partition]++
	return true
}

func (p *progress) done() bool {
	for part, end := range p.end {
		if end == 0 || (p.start >= 0 && end <= p.start) {
			continue
		}
		if p.limit > 0 && p.count[part] >= p.limit {
			continue
		}
		if last, ok := p.last[part]; ok && last+1 >= end {
			continue
		}
		return false
	}
	return true
}
