// Package topic maps RSV tables onto Kafka records.
//
// A record value is the RSV encoding of one table, optionally compressed.
// Headers describe how to read it back:
//
//	content-type     application/x-rsv
//	rsv-compression  none, zstd or lz4
//	rsv-rows         number of rows, informational
//	rsv-blake3       digest of the uncompressed RSV bytes
package topic

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kerr"
	"github.com/twmb/franz-go/pkg/kgo"

	"github.com/birdayz/rsv/pkg/compress"
	"github.com/birdayz/rsv/pkg/digest"
	"github.com/birdayz/rsv/pkg/rsv"
)

const (
	HeaderContentType = "content-type"
	HeaderCompression = "rsv-compression"
	HeaderRows        = "rsv-rows"

	ContentType = "application/x-rsv"
)

var ErrNotRSV = errors.New("record is not an RSV table")

// RecordOptions control how a table is packed into a record.
type RecordOptions struct {
	Key         []byte
	Partition   int32
	Strict      bool
	Compression compress.Algorithm
	Headers     []kgo.RecordHeader
}

// Record builds a record holding t.
func Record(topic string, t rsv.Table, opts RecordOptions) (*kgo.Record, error) {
	var value []byte
	if opts.Strict {
		var err error
		if value, err = rsv.EncodeStrict(t); err != nil {
			return nil, err
		}
	} else {
		value = rsv.Encode(t)
	}
	sum := digest.Sum(value)

	algo := opts.Compression
	if algo == "" {
		algo = compress.None
	}
	value, err := compress.Compress(value, algo)
	if err != nil {
		return nil, err
	}

	headers := []kgo.RecordHeader{
		{Key: HeaderContentType, Value: []byte(ContentType)},
		{Key: HeaderCompression, Value: []byte(algo)},
		{Key: HeaderRows, Value: []byte(strconv.Itoa(len(t)))},
		{Key: digest.Header, Value: []byte(sum)},
	}
	headers = append(headers, opts.Headers...)

	return &kgo.Record{
		Topic:     topic,
		Key:       opts.Key,
		Value:     value,
		Partition: opts.Partition,
		Headers:   headers,
	}, nil
}

// RowRecords builds one single-row record per row of t.
func RowRecords(topic string, t rsv.Table, opts RecordOptions) ([]*kgo.Record, error) {
	recs := make([]*kgo.Record, 0, len(t))
	for i, row := range t {
		rec, err := Record(topic, rsv.Table{row}, opts)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
		recs = append(recs, rec)
	}
	return recs, nil
}

// Header returns the value of the first header named key.
func Header(rec *kgo.Record, key string) (string, bool) {
	for _, h := range rec.Headers {
		if h.Key == key {
			return string(h.Value), true
		}
	}
	return "", false
}

// Table decodes the table held by rec. Records without an RSV content type
// header are rejected with ErrNotRSV. A digest header, when present, must
// match.
func Table(rec *kgo.Record) (rsv.Table, error) {
	if ct, ok := Header(rec, HeaderContentType); !ok || ct != ContentType {
		return nil, ErrNotRSV
	}

	name, _ := Header(rec, HeaderCompression)
	algo, err := compress.ParseAlgorithm(name)
	if err != nil {
		return nil, err
	}
	value, err := compress.Decompress(rec.Value, algo)
	if err != nil {
		return nil, err
	}

	if sum, ok := Header(rec, digest.Header); ok {
		if err := digest.Verify(value, sum); err != nil {
			return nil, err
		}
	}
	return rsv.Decode(value)
}

// Produce sends records synchronously and returns them with partition and
// offset filled in.
func Produce(ctx context.Context, cl *kgo.Client, recs ...*kgo.Record) ([]*kgo.Record, error) {
	results := cl.ProduceSync(ctx, recs...)
	if err := results.FirstErr(); err != nil {
		return nil, fmt.Errorf("failed to send record: %w", err)
	}
	out := make([]*kgo.Record, len(results))
	for i, r := range results {
		out[i] = r.Record
	}
	return out, nil
}

// Ensure creates topic unless it already exists.
func Ensure(ctx context.Context, admin *kadm.Client, topic string, partitions int32, replicationFactor int16) error {
	resp, err := admin.CreateTopics(ctx, partitions, replicationFactor, nil, topic)
	if err != nil {
		return err
	}
	for _, r := range resp {
		if r.Err != nil && !errors.Is(r.Err, kerr.TopicAlreadyExists) {
			return fmt.Errorf("create topic %s: %w", r.Topic, r.Err)
		}
	}
	return nil
}

// TopicInfo represents a topic listing entry.
type TopicInfo struct {
	Name              string
	Partitions        int32
	ReplicationFactor int16
}

// List returns all topics sorted by name.
func List(ctx context.Context, admin *kadm.Client) ([]TopicInfo, error) {
	topics, err := admin.ListTopics(ctx)
	if err != nil {
		return nil, err
	}

	result := make([]TopicInfo, 0, len(topics))
	for _, t := range topics.Sorted() {
		var rf int16
		sorted := t.Partitions.Sorted()
		if len(sorted) > 0 {
			rf = int16(len(sorted[0].Replicas))
		}
		result = append(result, TopicInfo{
			Name:              t.Topic,
			Partitions:        int32(len(t.Partitions)),
			ReplicationFactor: rf,
		})
	}

	return result, nil
}
