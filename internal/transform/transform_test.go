package transform

import (
	"bytes"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zlib"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/datasubjects/internal/catalog"
	"github.com/roach88/datasubjects/internal/schema"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func zlibBytes(t *testing.T, s string) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := zlib.NewWriter(&buf)
	_, err := w.Write([]byte(s))
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return buf.Bytes()
}

func gzipBytes(t *testing.T, s string) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := gzip.NewWriter(&buf)
	_, err := w.Write([]byte(s))
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return buf.Bytes()
}

func TestZlibDecompressor(t *testing.T) {
	var z ZlibDecompressor

	out, err := z.Decompress(zlibBytes(t, "hello"))
	require.NoError(t, err)
	assert.Equal(t, "hello", string(out))

	out, err = z.Decompress(gzipBytes(t, "gzipped"))
	require.NoError(t, err)
	assert.Equal(t, "gzipped", string(out))

	_, err = z.Decompress([]byte("not compressed"))
	assert.Error(t, err)
}

func TestZlibDecompressor_SizeLimit(t *testing.T) {
	z := ZlibDecompressor{MaxSize: 4}
	_, err := z.Decompress(zlibBytes(t, "longer than four bytes"))
	assert.ErrorIs(t, err, ErrTooLarge)
}

func TestRows_BinaryBecomesHex(t *testing.T) {
	tr := New(nil, nil, discardLogger())
	cols := []schema.ColumnInfo{{Name: "idvisitor", Type: "BLOB", Binary: true}}

	rows := tr.Rows("log_visit", cols, []schema.Row{{"idvisitor": []byte{0xDE, 0xAD}}})

	assert.Equal(t, "dead", rows[0]["idvisitor"])
}

func TestRows_DimensionMarksBinary(t *testing.T) {
	dims := []schema.Dimension{catalog.Dimension{Table: "log_visit", Column: "idvisitor", Binary: true}}
	tr := New(dims, nil, discardLogger())
	cols := []schema.ColumnInfo{{Name: "idvisitor", Type: "VARCHAR(8)"}}

	rows := tr.Rows("log_visit", cols, []schema.Row{{"idvisitor": []byte{0xBE, 0xEF}}})

	assert.Equal(t, "beef", rows[0]["idvisitor"])
}

func TestRows_DimensionFormatsWithSiteID(t *testing.T) {
	var gotSite int64
	dims := []schema.Dimension{catalog.Dimension{
		Table:  "log_visit",
		Column: "config_device_type",
		Formatter: func(raw any, siteID int64) (any, error) {
			gotSite = siteID
			return "smartphone", nil
		},
	}}
	tr := New(dims, nil, discardLogger())

	rows := tr.Rows("log_visit", nil, []schema.Row{{"idsite": int64(7), "config_device_type": int64(1)}})

	assert.Equal(t, "smartphone", rows[0]["config_device_type"])
	assert.Equal(t, int64(7), gotSite)
	assert.Equal(t, int64(7), rows[0]["idsite"])
}

func TestRows_DimensionFailureKeepsValue(t *testing.T) {
	dims := []schema.Dimension{catalog.Dimension{
		Table:  "log_visit",
		Column: "location_ip",
		Binary: true,
		Formatter: func(any, int64) (any, error) {
			return nil, errors.New("bad address")
		},
	}}
	tr := New(dims, nil, discardLogger())

	rows := tr.Rows("log_visit", nil, []schema.Row{{"location_ip": []byte{0x01}}})

	assert.Equal(t, "01", rows[0]["location_ip"])
}

// On a binary column a successful formatter replaces the hex encoding and
// receives the raw bytes. A failing one falls back to hex.
func TestRows_BinaryDimensionFormatter(t *testing.T) {
	failing := func(any, int64) (any, error) { return nil, errors.New("bad address") }
	addr := []byte{192, 168, 1, 7}

	tests := []struct {
		name    string
		dim     catalog.Dimension
		columns []schema.ColumnInfo
		want    any
	}{
		{
			name: "binary dimension formatted",
			dim:  catalog.Dimension{Table: "log_visit", Column: "location_ip", Binary: true, Formatter: catalog.IP},
			want: "192.168.1.7",
		},
		{
			name:    "binary column formatted",
			dim:     catalog.Dimension{Table: "log_visit", Column: "location_ip", Formatter: catalog.IP},
			columns: []schema.ColumnInfo{{Name: "location_ip", Type: "VARBINARY(16)", Binary: true}},
			want:    "192.168.1.7",
		},
		{
			name: "binary dimension formatter fails",
			dim:  catalog.Dimension{Table: "log_visit", Column: "location_ip", Binary: true, Formatter: failing},
			want: "c0a80107",
		},
		{
			name:    "binary column formatter fails",
			dim:     catalog.Dimension{Table: "log_visit", Column: "location_ip", Formatter: failing},
			columns: []schema.ColumnInfo{{Name: "location_ip", Type: "VARBINARY(16)", Binary: true}},
			want:    "c0a80107",
		},
		{
			name: "binary dimension without formatter",
			dim:  catalog.Dimension{Table: "log_visit", Column: "location_ip", Binary: true},
			want: "c0a80107",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := New([]schema.Dimension{tt.dim}, nil, discardLogger())

			rows := tr.Rows("log_visit", tt.columns, []schema.Row{{"location_ip": append([]byte(nil), addr...)}})

			assert.Equal(t, tt.want, rows[0]["location_ip"])
		})
	}
}

func TestRows_DimensionOnOtherTableIgnored(t *testing.T) {
	dims := []schema.Dimension{catalog.Dimension{Table: "log_visit", Column: "name", Formatter: catalog.Enum(map[string]string{"x": "y"})}}
	tr := New(dims, nil, discardLogger())

	rows := tr.Rows("log_conversion", nil, []schema.Row{{"name": "x"}})

	assert.Equal(t, "x", rows[0]["name"])
}

func TestRows_Decompression(t *testing.T) {
	tr := New(nil, nil, discardLogger())
	cols := []schema.ColumnInfo{{Name: "payload", Type: "TEXT"}}

	tests := []struct {
		name string
		raw  any
		want any
	}{
		{"compressed bytes", zlibBytes(t, "clicked"), "clicked"},
		{"plain bytes", []byte("plain"), "plain"},
		{"plain string", "plain", "plain"},
		{"empty bytes", []byte{}, ""},
		{"integer", int64(42), int64(42)},
		{"null", nil, nil},
		{"invalid utf8", []byte{0xff, 0xfe}, "fffe"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rows := tr.Rows("custom_event", cols, []schema.Row{{"payload": tt.raw}})
			assert.Equal(t, tt.want, rows[0]["payload"])
		})
	}
}

func TestRows_EmptyValueNotDecompressed(t *testing.T) {
	calls := 0
	d := DecompressorFunc(func(b []byte) ([]byte, error) {
		calls++
		return nil, errors.New("not compressed")
	})
	tr := New(nil, d, discardLogger())

	tr.Rows("t", nil, []schema.Row{{"a": "", "b": []byte{}, "c": "x"}})

	assert.Equal(t, 1, calls)
}

func TestInt64(t *testing.T) {
	tests := []struct {
		in   any
		want int64
		ok   bool
	}{
		{int64(3), 3, true},
		{int(4), 4, true},
		{[]byte("12"), 12, true},
		{"13", 13, true},
		{"x", 0, false},
		{nil, 0, false},
	}
	for _, tt := range tests {
		got, ok := Int64(tt.in)
		assert.Equal(t, tt.ok, ok, "%v", tt.in)
		assert.Equal(t, tt.want, got, "%v", tt.in)
	}
}
