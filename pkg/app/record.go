package app

import (
	"bytes"
	"fmt"
	"sync"

	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kgo"

	"github.com/birdayz/rsv/pkg/topic"
)

// HandleRecord decodes, formats, and prints a single consumed record.
// Records that do not decode are reported on the error writer and skipped.
func (a *App) HandleRecord(rec *kgo.Record, mu *sync.Mutex, outputFmt OutputFormat, headerFilter map[string]string) {
	if !CheckHeaders(rec.Headers, headerFilter) {
		return
	}

	var stderr bytes.Buffer
	var out []byte

	t, err := topic.Table(rec)
	if err != nil {
		fmt.Fprintf(&stderr, "could not decode record at partition %d offset %d: %v\n", rec.Partition, rec.Offset, err)
	} else {
		a.Logger.Debug("decoded record", "topic", rec.Topic, "partition", rec.Partition, "offset", rec.Offset, "rows", len(t))
		if !a.NoHeaderFlag && (outputFmt == OutputFormatTable || outputFmt == OutputFormatPretty) {
			a.writeMetadata(&stderr, rec)
		}
		out, err = a.RenderTable(t, outputFmt)
		if err != nil {
			fmt.Fprintf(&stderr, "could not render record at partition %d offset %d: %v\n", rec.Partition, rec.Offset, err)
		}
	}

	mu.Lock()
	defer mu.Unlock()
	_, _ = stderr.WriteTo(a.ErrWriter)
	_, _ = a.writerFor(outputFmt).Write(out)
}

func (a *App) writeMetadata(buf *bytes.Buffer, rec *kgo.Record) {
	w := NewTabWriter(buf)
	if len(rec.Headers) > 0 {
		fmt.Fprintf(w, "Headers:\n")
	}
	for _, hdr := range rec.Headers {
		fmt.Fprintf(w, "\tKey: %v\tValue: %v\n", hdr.Key, string(hdr.Value))
	}
	if len(rec.Key) > 0 {
		fmt.Fprintf(w, "Key:\t%v\n", string(rec.Key))
	}
	fmt.Fprintf(w, "Partition:\t%v\nOffset:\t%v\nTimestamp:\t%v\n", rec.Partition, rec.Offset, rec.Timestamp)
	w.Flush()
}

// CheckHeaders reports whether every filter key has a header with the wanted
// value. Repeated headers count once per key.
func CheckHeaders(headers []kgo.RecordHeader, filter map[string]string) bool {
	if len(filter) == 0 {
		return true
	}
	matched := make(map[string]struct{}, len(filter))
	for _, h := range headers {
		if val, ok := filter[h.Key]; ok && string(h.Value) == val {
			matched[h.Key] = struct{}{}
		}
	}
	return len(matched) == len(filter)
}

// EndOffsetMapForTopic extracts per-partition end offsets for a single topic.
func EndOffsetMapForTopic(offsets kadm.ListedOffsets, name string) map[int32]int64 {
	m := make(map[int32]int64)
	offsets.Each(func(lo kadm.ListedOffset) {
		if lo.Topic == name {
			m[lo.Partition] = lo.Offset
		}
	})
	return m
}
