package produce

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"strings"
	"text/template"
	"time"

	"github.com/Masterminds/sprig"
	"github.com/spf13/cobra"
	"github.com/twmb/franz-go/pkg/kgo"

	"github.com/birdayz/rsv/pkg/app"
	"github.com/birdayz/rsv/pkg/compress"
	"github.com/birdayz/rsv/pkg/rsv"
	"github.com/birdayz/rsv/pkg/topic"
)

// NewCommand returns the "rsv produce" command.
func NewCommand(a *app.App) *cobra.Command {
	var (
		keyFlag         string
		rawKeyFlag      bool
		headerFlag      []string
		repeatFlag      int
		partitionerFlag string
		timestampFlag   string
		partitionFlag   int32
		fromFlag        string
		perRowFlag      bool
		templateFlag    bool
		createFlag      bool
		partitionsFlag  int32
		replicationFlag int16
		compressFlag    compress.Algorithm
	)

	cmd := &cobra.Command{
		Use:   "produce [TOPIC] [FILE]",
		Short: "Produce a table as RSV records",
		Long: `Read a table (JSON by default) from FILE or stdin and produce it to a Kafka
topic as an RSV record. Every record carries content-type, compression, row
count and BLAKE3 digest headers. With --per-row each row becomes its own
single-row record. The topic defaults to the current cluster's topic.`,
		Example: `  echo '[["id","name"],["1",null]]' | rsv produce tables
  rsv produce tables table.json --per-row -k batch-1
  rsv produce tables table.msgpack --from msgpack --compress zstd
  echo '[["{{ .i }}","{{ "row" | upper }}"]]' | rsv produce tables --template -n 3`,
		Args:              cobra.MaximumNArgs(2),
		ValidArgsFunction: a.ValidTopicArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			topicName := a.CurrentCluster.Topic
			if len(args) > 0 {
				topicName = args[0]
			}
			if topicName == "" {
				return fmt.Errorf("no topic given and the current cluster has no default topic")
			}
			var input string
			if len(args) > 1 {
				input = args[1]
			}

			from, err := a.Codec(fromFlag)
			if err != nil {
				return err
			}
			data, err := a.ReadInput(input)
			if err != nil {
				return err
			}

			var opts []kgo.Opt
			switch partitionerFlag {
			case "jvm":
				opts = append(opts, kgo.RecordPartitioner(kgo.StickyKeyPartitioner(nil)))
			case "rand":
				opts = append(opts, kgo.RecordPartitioner(kgo.StickyPartitioner()))
			case "rr":
				opts = append(opts, kgo.RecordPartitioner(kgo.RoundRobinPartitioner()))
			}
			if partitionFlag != int32(-1) {
				opts = append(opts, kgo.RecordPartitioner(kgo.ManualPartitioner()))
			}

			cl, err := a.NewClient(opts...)
			if err != nil {
				return err
			}
			defer cl.Close()

			ctx := cmd.Context()
			if createFlag {
				if err := topic.Ensure(ctx, cl.Admin, topicName, partitionsFlag, replicationFlag); err != nil {
					return err
				}
			}

			var key []byte
			if rawKeyFlag {
				keyBytes, err := base64.StdEncoding.DecodeString(keyFlag)
				if err != nil {
					return fmt.Errorf("--raw-key is given, but value of --key is not base64")
				}
				key = keyBytes
			} else if keyFlag != "" {
				key = []byte(keyFlag)
			}

			var headers []kgo.RecordHeader
			for _, h := range headerFlag {
				v := strings.SplitN(h, ":", 2)
				if len(v) != 2 {
					return fmt.Errorf("invalid header format: %s, expected format: key:value", h)
				}
				headers = append(headers, kgo.RecordHeader{
					Key:   v[0],
					Value: []byte(v[1]),
				})
			}

			ts := time.Now()
			if timestampFlag != "" {
				ts, err = time.Parse(time.RFC3339, timestampFlag)
				if err != nil {
					return fmt.Errorf("invalid --timestamp: %w", err)
				}
			}

			recOpts := topic.RecordOptions{
				Key:         key,
				Strict:      a.Strict(),
				Compression: a.OutputCompression(compressFlag, cmd.Flags().Changed("compress"), ""),
				Headers:     headers,
			}
			if partitionFlag != -1 {
				recOpts.Partition = partitionFlag
			}

			for i := 0; i < repeatFlag; i++ {
				payload := data
				if templateFlag {
					payload, err = render(data, i)
					if err != nil {
						return err
					}
				}

				t, err := from.DecodeTable(payload)
				if err != nil {
					return fmt.Errorf("decode %s input: %w", fromFlag, err)
				}

				recs, err := records(topicName, t, recOpts, perRowFlag)
				if err != nil {
					return err
				}
				for _, rec := range recs {
					rec.Timestamp = ts
				}

				sent, err := topic.Produce(ctx, cl.KGO, recs...)
				if err != nil {
					return err
				}
				for _, r := range sent {
					fmt.Fprintf(a.OutWriter, "Sent record to partition %v at offset %v.\n", r.Partition, r.Offset)
				}
				a.Logger.Debug("produced table", "topic", topicName, "rows", len(t), "records", len(sent))
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&keyFlag, "key", "k", "", "Key for the record. Currently only strings are supported.")
	cmd.Flags().BoolVar(&rawKeyFlag, "raw-key", false, "Treat value of --key as base64 and use its decoded raw value as key")
	cmd.Flags().StringArrayVarP(&headerFlag, "header", "H", []string{}, "Header in format <key>:<value>. May be used multiple times to add more headers.")
	cmd.Flags().IntVarP(&repeatFlag, "repeat", "n", 1, "Repeat the table this many times.")
	cmd.Flags().StringVar(&partitionerFlag, "partitioner", "", "Select partitioner: [jvm|rand|rr]")
	cmd.Flags().StringVar(&timestampFlag, "timestamp", "", "RFC3339 timestamp for the records")
	cmd.Flags().Int32VarP(&partitionFlag, "partition", "p", -1, "Partition to produce to")
	cmd.Flags().StringVar(&fromFlag, "from", "json", "Input format")
	cmd.Flags().BoolVar(&perRowFlag, "per-row", false, "Send each row as its own record")
	cmd.Flags().BoolVar(&templateFlag, "template", false, "Run the input through the go template engine before decoding. The repetition index is available as .i")
	cmd.Flags().BoolVar(&createFlag, "create", false, "Create the topic if it does not exist")
	cmd.Flags().Int32Var(&partitionsFlag, "partitions", 1, "Partitions for a topic created by --create")
	cmd.Flags().Int16Var(&replicationFlag, "replication-factor", 1, "Replication factor for a topic created by --create")
	cmd.Flags().Var(&compressFlag, "compress", "Record value compression: none, zstd, lz4 (default from config)")

	if err := cmd.RegisterFlagCompletionFunc("from", app.CompleteCodec); err != nil {
		panic(fmt.Sprintf("Failed to register flag completion: %v", err))
	}

	return cmd
}

func render(data []byte, i int) ([]byte, error) {
	tpl, err := template.New("rsv").Funcs(sprig.HermeticTxtFuncMap()).Parse(string(data))
	if err != nil {
		return nil, fmt.Errorf("failed to parse go template: %v", err)
	}
	buf := bytes.NewBuffer(nil)
	if err := tpl.Execute(buf, map[string]any{"i": i}); err != nil {
		return nil, fmt.Errorf("failed to execute go template: %v", err)
	}
	return buf.Bytes(), nil
}

func records(topicName string, t rsv.Table, opts topic.RecordOptions, perRow bool) ([]*kgo.Record, error) {
	if perRow {
		return topic.RowRecords(topicName, t, opts)
	}
	rec, err := topic.Record(topicName, t, opts)
	if err != nil {
		return nil, err
	}
	return []*kgo.Record{rec}, nil
}
