package cmd

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/birdayz/rsv/pkg/app"
	"github.com/birdayz/rsv/pkg/digest"
	"github.com/birdayz/rsv/pkg/rsv"
	"github.com/birdayz/rsv/pkg/rsvfile"
)

const sampleJSON = `[["A","B","Hello","Word"],[],["C",null,"D"]]`

var sampleRSV = []byte{
	'A', rsv.EOV, 'B', rsv.EOV, 'H', 'e', 'l', 'l', 'o', rsv.EOV, 'W', 'o', 'r', 'd', rsv.EOV, rsv.EOR,
	rsv.EOR,
	'C', rsv.EOV, rsv.NULL, rsv.EOV, 'D', rsv.EOV, rsv.EOR,
}

// newConfig returns the path of an empty config file private to the test.
func newConfig(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config")
	require.NoError(t, os.WriteFile(path, nil, 0600))
	return path
}

func runCmd(t *testing.T, cfg string, in io.Reader, args ...string) (string, string, error) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if in == nil {
		in = strings.NewReader("")
	}
	var out, errOut bytes.Buffer

	root := NewRootCommand(app.New(), "test", "test")
	root.SetArgs(append([]string{"--config", cfg}, args...))
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetIn(in)

	err := root.ExecuteContext(ctx)
	return out.String(), errOut.String(), err
}

func mustRun(t *testing.T, cfg string, in io.Reader, args ...string) string {
	t.Helper()
	out, errOut, err := runCmd(t, cfg, in, args...)
	if err != nil {
		t.Fatalf("command %v failed: %v\nstdout: %s\nstderr: %s", args, err, out, errOut)
	}
	return out
}

func TestEncode_Stdio(t *testing.T) {
	cfg := newConfig(t)
	out := mustRun(t, cfg, strings.NewReader(sampleJSON), "encode")
	require.Equal(t, sampleRSV, []byte(out))
}

func TestDecode_Stdio(t *testing.T) {
	cfg := newConfig(t)
	out := mustRun(t, cfg, bytes.NewReader(sampleRSV), "decode")
	require.Equal(t, sampleJSON+"\n", out)
}

func TestEncodeDecode_Files(t *testing.T) {
	cfg := newConfig(t)
	dir := t.TempDir()
	jsonPath := filepath.Join(dir, "table.json")
	rsvPath := filepath.Join(dir, "table.rsv.zst")
	require.NoError(t, os.WriteFile(jsonPath, []byte(`[["id","name"],["1",null]]`), 0644))

	mustRun(t, cfg, nil, "encode", jsonPath, "-o", rsvPath)

	raw, err := os.ReadFile(rsvPath)
	require.NoError(t, err)
	require.Equal(t, []byte{0x28, 0xB5, 0x2F, 0xFD}, raw[:4])

	out := mustRun(t, cfg, nil, "decode", rsvPath, "--output", "table", "--null", "-")
	require.Equal(t, "id    name\n1     -\n", out)
}

func TestDecode_ToCompressedFile(t *testing.T) {
	cfg := newConfig(t)
	dir := t.TempDir()

	rsvPath := filepath.Join(dir, "out.rsv.zst")
	mustRun(t, cfg, bytes.NewReader(sampleRSV), "decode", "--to", "rsv", "-o", rsvPath)
	raw, err := os.ReadFile(rsvPath)
	require.NoError(t, err)
	require.Equal(t, []byte{0x28, 0xB5, 0x2F, 0xFD}, raw[:4])

	back, err := rsvfile.ReadFile(rsvPath)
	require.NoError(t, err)
	require.Equal(t, sampleRSV, rsv.Encode(back))

	cborPath := filepath.Join(dir, "out.cbor.lz4")
	mustRun(t, cfg, bytes.NewReader(sampleRSV), "decode", "--to", "cbor", "-o", cborPath)
	raw, err = os.ReadFile(cborPath)
	require.NoError(t, err)
	require.Equal(t, []byte{0x04, 0x22, 0x4D, 0x18}, raw[:4])

	plainPath := filepath.Join(dir, "out.rsv")
	mustRun(t, cfg, bytes.NewReader(sampleRSV), "decode", "--to", "rsv", "-o", plainPath)
	raw, err = os.ReadFile(plainPath)
	require.NoError(t, err)
	require.Equal(t, sampleRSV, raw)
}

func TestDecode_To(t *testing.T) {
	cfg := newConfig(t)
	out := mustRun(t, cfg, bytes.NewReader(sampleRSV), "decode", "--to", "msgpack")

	var got [][]*string
	require.NoError(t, msgpack.Unmarshal([]byte(out), &got))
	require.Equal(t, rsv.FromStrings(got), rsv.Table{
		rsv.TextRow("A", "B", "Hello", "Word"),
		{},
		{rsv.Text("C"), rsv.Null(), rsv.Text("D")},
	})
}

func TestDecode_InvalidText(t *testing.T) {
	cfg := newConfig(t)
	_, _, err := runCmd(t, cfg, bytes.NewReader([]byte{0xC3, 0x28, rsv.EOV, rsv.EOR}), "decode")
	require.ErrorIs(t, err, rsv.ErrInvalidText)
}

func TestEncode_Strict(t *testing.T) {
	cfg := newConfig(t)
	bad := "a\xfdb"
	in, err := msgpack.Marshal([][]*string{{&bad}})
	require.NoError(t, err)

	_, _, err = runCmd(t, cfg, bytes.NewReader(in), "encode", "--from", "msgpack")
	require.ErrorIs(t, err, rsv.ErrInvalidContent)

	out := mustRun(t, cfg, bytes.NewReader(in), "encode", "--from", "msgpack", "--no-strict")
	require.Equal(t, []byte{'a', rsv.EOR, 'b', rsv.EOV, rsv.EOR}, []byte(out))
}

func TestEncode_StrictFromConfig(t *testing.T) {
	cfg := newConfig(t)
	mustRun(t, cfg, nil, "config", "set", "strict", "false")

	bad := "x\xfe"
	in, err := msgpack.Marshal([][]*string{{&bad}})
	require.NoError(t, err)
	mustRun(t, cfg, bytes.NewReader(in), "encode", "--from", "msgpack")
}

func TestEncode_UnknownFormat(t *testing.T) {
	cfg := newConfig(t)
	_, _, err := runCmd(t, cfg, strings.NewReader(sampleJSON), "encode", "--from", "yaml")
	require.ErrorContains(t, err, "unknown format")
}

func TestConvert(t *testing.T) {
	cfg := newConfig(t)
	for _, format := range []string{"cbor", "msgpack", "avro", "rsv"} {
		t.Run(format, func(t *testing.T) {
			bin := mustRun(t, cfg, strings.NewReader(sampleJSON), "convert", "--from", "json", "--to", format)
			back := mustRun(t, cfg, strings.NewReader(bin), "convert", "--from", format, "--to", "json")
			require.JSONEq(t, sampleJSON, back)
		})
	}
}

func TestCat(t *testing.T) {
	cfg := newConfig(t)
	dir := t.TempDir()
	a := filepath.Join(dir, "a.rsv")
	b := filepath.Join(dir, "b.rsv")
	require.NoError(t, os.WriteFile(a, rsv.Encode(rsv.Table{rsv.TextRow("x")}), 0644))
	require.NoError(t, os.WriteFile(b, rsv.Encode(rsv.Table{{rsv.Null()}}), 0644))

	out, errOut, err := runCmd(t, cfg, nil, "cat", a, b, "--output", "json")
	require.NoError(t, err)
	require.Equal(t, "[[\"x\"]]\n[[null]]\n", out)
	require.Contains(t, errOut, "==> "+a+" <==")

	out = mustRun(t, cfg, nil, "cat", b)
	require.Equal(t, "NULL\n", out)
}

func TestVerify(t *testing.T) {
	cfg := newConfig(t)
	dir := t.TempDir()
	good := filepath.Join(dir, "good.rsv")
	trailing := filepath.Join(dir, "trailing.rsv")
	require.NoError(t, os.WriteFile(good, sampleRSV, 0644))
	require.NoError(t, os.WriteFile(trailing, append(bytes.Clone(sampleRSV), 'z', rsv.EOV), 0644))

	out := mustRun(t, cfg, nil, "verify", good)
	require.Contains(t, out, "ok")
	require.Contains(t, out, "3")

	out, _, err := runCmd(t, cfg, nil, "verify", good, trailing)
	require.ErrorContains(t, err, "verification failed: 1 of 2 files")
	require.Contains(t, out, "not canonical")

	mustRun(t, cfg, nil, "verify", good, trailing, "--allow-non-canonical")
}

func TestDigest(t *testing.T) {
	cfg := newConfig(t)
	path := filepath.Join(t.TempDir(), "table.rsv")
	require.NoError(t, os.WriteFile(path, sampleRSV, 0644))
	sum := digest.Sum(sampleRSV)

	out := mustRun(t, cfg, nil, "digest", path)
	require.Equal(t, sum+"  "+path+"\n", out)

	out = mustRun(t, cfg, bytes.NewReader(sampleRSV), "digest")
	require.Equal(t, sum+"  -\n", out)

	out = mustRun(t, cfg, nil, "digest", path, "--check", sum)
	require.Equal(t, path+": OK\n", out)

	_, _, err := runCmd(t, cfg, nil, "digest", path, "--check", "00")
	require.ErrorIs(t, err, digest.ErrDigestMismatch)
}

func TestDigest_Compressed(t *testing.T) {
	cfg := newConfig(t)
	dir := t.TempDir()
	jsonPath := filepath.Join(dir, "t.json")
	require.NoError(t, os.WriteFile(jsonPath, []byte(sampleJSON), 0644))
	lz4Path := filepath.Join(dir, "t.rsv.lz4")
	mustRun(t, cfg, nil, "encode", jsonPath, "-o", lz4Path)

	out := mustRun(t, cfg, nil, "digest", lz4Path)
	require.Equal(t, digest.Sum(sampleRSV)+"  "+lz4Path+"\n", out)
}

func TestConfig(t *testing.T) {
	cfg := newConfig(t)

	mustRun(t, cfg, nil, "config", "add-cluster", "local", "-b", "localhost:9092", "--topic", "tables")
	mustRun(t, cfg, nil, "config", "add-cluster", "other", "-b", "other:9092")
	_, _, err := runCmd(t, cfg, nil, "config", "add-cluster", "local", "-b", "x:1")
	require.Error(t, err)

	out := mustRun(t, cfg, nil, "config", "use-cluster", "other")
	require.Equal(t, "Switched to cluster \"other\".\n", out)
	require.Equal(t, "other\n", mustRun(t, cfg, nil, "config", "current-context"))

	out = mustRun(t, cfg, nil, "config", "get-clusters", "--no-headers")
	require.Contains(t, out, "  local")
	require.Contains(t, out, "* other")
	require.Contains(t, out, "tables")

	mustRun(t, cfg, nil, "config", "remove-cluster", "other")
	require.Equal(t, "\n", mustRun(t, cfg, nil, "config", "current-context"))
	_, _, err = runCmd(t, cfg, nil, "config", "remove-cluster", "other")
	require.Error(t, err)
}

func TestConfig_SetAndView(t *testing.T) {
	cfg := newConfig(t)

	mustRun(t, cfg, nil, "config", "set", "compression", "zst")
	mustRun(t, cfg, nil, "config", "set", "null", "<nil>")
	mustRun(t, cfg, nil, "config", "set", "format", "table")
	_, _, err := runCmd(t, cfg, nil, "config", "set", "format", "yaml")
	require.Error(t, err)
	_, _, err = runCmd(t, cfg, nil, "config", "set", "colour", "red")
	require.Error(t, err)

	out := mustRun(t, cfg, nil, "config", "view")
	require.Contains(t, out, "compression: zstd")
	require.Contains(t, out, "strict: true")

	// The configured format and null placeholder become flag defaults.
	out = mustRun(t, cfg, bytes.NewReader(sampleRSV), "decode")
	require.Contains(t, out, "<nil>")
	require.Contains(t, out, "Hello")
}

func TestConfig_ImportAndMask(t *testing.T) {
	cfg := newConfig(t)
	props := filepath.Join(t.TempDir(), "client.properties")
	require.NoError(t, os.WriteFile(props, []byte(`bootstrap.servers=pkc-1.confluent.cloud:9092
security.protocol=SASL_SSL
sasl.mechanism=PLAIN
sasl.jaas.config=org.apache.kafka.common.security.plain.PlainLoginModule required username="key" password="secret";
`), 0600))

	mustRun(t, cfg, nil, "config", "import", props, "--name", "cloud")
	require.Equal(t, "cloud\n", mustRun(t, cfg, nil, "config", "current-context"))

	out := mustRun(t, cfg, nil, "config", "view")
	require.Contains(t, out, "pkc-1.confluent.cloud:9092")
	require.NotContains(t, out, "secret")

	out = mustRun(t, cfg, nil, "config", "view", "--raw")
	require.Contains(t, out, "secret")
}

func TestCompletion(t *testing.T) {
	cfg := newConfig(t)
	for _, shell := range []string{"bash", "zsh", "fish", "powershell"} {
		out := mustRun(t, cfg, nil, "completion", shell)
		require.Contains(t, out, "rsv")
	}
	_, _, err := runCmd(t, cfg, nil, "completion", "tcsh")
	require.Error(t, err)
}

func TestProduce_NoTopic(t *testing.T) {
	cfg := newConfig(t)
	_, _, err := runCmd(t, cfg, strings.NewReader(sampleJSON), "produce")
	require.ErrorContains(t, err, "no topic given")
}
