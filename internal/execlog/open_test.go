package execlog

import (
	"bytes"
	"compress/gzip"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/unicode"

	"github.com/roach88/detcheck/internal/testutil"
)

func openAll(t *testing.T, path string) *File {
	t.Helper()
	lf, err := Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { lf.Close() })
	return lf
}

func TestOpenPlainLog(t *testing.T) {
	rec := testutil.NewExec("plain").Args("a").Output("o", "1").Build()
	path := testutil.WriteLog(t, t.TempDir(), "exec.json", rec, rec)

	lf := openAll(t, path)
	assert.Equal(t, path, lf.Path)
	assert.False(t, lf.Compressed)

	recs, err := decodeAll(t, lf.Decoder)
	require.NoError(t, err)
	assert.Len(t, recs, 2)
	assert.Equal(t, rec, recs[0])
}

func TestOpenGzipLog(t *testing.T) {
	rec := testutil.NewExec("zipped").Args("a").Build()

	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	_, err := zw.Write(testutil.MustEncodeLog(rec))
	require.NoError(t, err)
	require.NoError(t, zw.Close())

	path := testutil.WriteRaw(t, t.TempDir(), "exec.json.gz", buf.Bytes())
	lf := openAll(t, path)
	assert.True(t, lf.Compressed)

	recs, err := decodeAll(t, lf.Decoder)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "zipped", recs[0].ProgressMessage)
}

func TestOpenStripsUTF8BOM(t *testing.T) {
	rec := testutil.NewExec("bom").Args("a").Build()
	data := append([]byte("\xef\xbb\xbf"), testutil.MustEncodeLog(rec)...)
	path := testutil.WriteRaw(t, t.TempDir(), "exec.json", data)

	recs, err := decodeAll(t, openAll(t, path).Decoder)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "bom", recs[0].ProgressMessage)
}

func TestOpenTranscodesUTF16(t *testing.T) {
	rec := testutil.NewExec("wide").Args("a").Build()
	enc := unicode.UTF16(unicode.LittleEndian, unicode.UseBOM).NewEncoder()
	data, err := enc.Bytes(testutil.MustEncodeLog(rec, rec))
	require.NoError(t, err)
	path := testutil.WriteRaw(t, t.TempDir(), "exec.json", data)

	recs, err := decodeAll(t, openAll(t, path).Decoder)
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, "wide", recs[1].ProgressMessage)
}

func TestOpenMissingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing.json")
	_, err := Open(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), path)
}
