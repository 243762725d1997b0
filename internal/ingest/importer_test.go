package ingest

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stockwatch/stockwatch/internal/columns"
	"github.com/stockwatch/stockwatch/internal/common"
	"github.com/stockwatch/stockwatch/internal/entity"
	"github.com/stockwatch/stockwatch/internal/repository"
	"github.com/stockwatch/stockwatch/internal/tabular"
)

var quietLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

const stockCSV = "품목명,현재 재고,단위\n볼트,45,EA\n너트,12,EA\n,,\n"

func newImporter() (*Importer, *repository.MemoryStore, *repository.MemoryFiles) {
	rows := repository.NewMemoryStore()
	files := repository.NewMemoryFiles()
	return NewImporter(rows, files, quietLogger), rows, files
}

func TestImportBytesCSV(t *testing.T) {
	ctx := context.Background()
	imp, rows, files := newImporter()

	res, err := imp.ImportBytes(ctx, "march", "stock.csv", []byte(stockCSV))
	require.NoError(t, err)
	assert.Equal(t, 2, res.RowsImported)
	assert.False(t, res.Deduplicated)
	assert.Equal(t, []string{"품목명", "현재 재고", "단위"}, res.Headers)

	got, err := rows.RangeByFileGroup(ctx, "march")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, 0, got[0].SequenceIndex)
	assert.Equal(t, 1, got[1].SequenceIndex)
	assert.False(t, got[0].Confirmed())
	v, _ := got[0].Fields.Get("품목명")
	assert.Equal(t, "볼트", v)

	logged, err := files.ListByFileGroup(ctx, "march")
	require.NoError(t, err)
	require.Len(t, logged, 1)
	assert.Equal(t, res.HashHex, logged[0].ContentHash)
	assert.Equal(t, "csv", logged[0].FileExt)

	again, err := imp.ImportBytes(ctx, "march", "stock-copy.csv", []byte(stockCSV))
	require.NoError(t, err)
	assert.True(t, again.Deduplicated)
	got, _ = rows.RangeByFileGroup(ctx, "march")
	assert.Len(t, got, 2)
}

func TestImportBytesXLSX(t *testing.T) {
	data, err := tabular.XLSXCodec{}.Encode(tabular.FromRecords([]entity.Fields{
		entity.FieldsOf("품목명", "볼트", "현재 재고", 45.0),
	}))
	require.NoError(t, err)

	imp, rows, _ := newImporter()
	res, err := imp.ImportBytes(context.Background(), "g", "book.xlsx", data)
	require.NoError(t, err)
	assert.Equal(t, 1, res.RowsImported)

	got, _ := rows.RangeByFileGroup(context.Background(), "g")
	require.Len(t, got, 1)
	v, _ := got[0].Fields.Get("현재 재고")
	assert.Equal(t, 45.0, v)
}

// rewriteSheet replaces text inside the first worksheet of an xlsx archive.
func rewriteSheet(t *testing.T, data []byte, old, repl string) []byte {
	t.Helper()
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, f := range zr.File {
		rc, err := f.Open()
		require.NoError(t, err)
		body, err := io.ReadAll(rc)
		require.NoError(t, err)
		require.NoError(t, rc.Close())
		if f.Name == "xl/worksheets/sheet1.xml" {
			require.Contains(t, string(body), old)
			body = bytes.ReplaceAll(body, []byte(old), []byte(repl))
		}
		w, err := zw.Create(f.Name)
		require.NoError(t, err)
		_, err = w.Write(body)
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func TestImportBytesXLSXNonFiniteCell(t *testing.T) {
	data, err := tabular.XLSXCodec{}.Encode(tabular.FromRecords([]entity.Fields{
		entity.FieldsOf("품목명", "볼트", "재고", 12345.0),
	}))
	require.NoError(t, err)
	data = rewriteSheet(t, data, "<v>12345</v>", "<v>NaN</v>")

	imp, rows, _ := newImporter()
	res, err := imp.ImportBytes(context.Background(), "g", "book.xlsx", data)
	require.NoError(t, err)
	assert.Equal(t, 1, res.RowsImported)

	got, _ := rows.RangeByFileGroup(context.Background(), "g")
	require.Len(t, got, 1)
	v, _ := got[0].Fields.Get("재고")
	_, isNumber := v.(float64)
	assert.False(t, isNumber, "stored %#v", v)
	assert.Nil(t, columns.ParseNumber(v))
}

func TestImportBytesConcurrentDuplicates(t *testing.T) {
	ctx := context.Background()
	rows := repository.NewMemoryStore()
	files := repository.NewMemoryFiles()
	// Two importers share the stores, as two processes sharing a database would.
	importers := []*Importer{NewImporter(rows, files, quietLogger), NewImporter(rows, files, quietLogger)}

	const workers = 8
	results := make([]ImportResult, workers)
	errs := make([]error, workers)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			results[w], errs[w] = importers[w%2].ImportBytes(ctx, "march", "stock.csv", []byte(stockCSV))
		}(w)
	}
	wg.Wait()

	fresh := 0
	for w := 0; w < workers; w++ {
		require.NoError(t, errs[w])
		if !results[w].Deduplicated {
			fresh++
			assert.Equal(t, 2, results[w].RowsImported)
		}
	}
	assert.Equal(t, 1, fresh)

	logged, err := files.ListByFileGroup(ctx, "march")
	require.NoError(t, err)
	assert.Len(t, logged, 1)
}

func TestImportBytesReleasesClaimOnFailure(t *testing.T) {
	ctx := context.Background()
	files := repository.NewMemoryFiles()
	imp := NewImporter(failingRows{repository.NewMemoryStore()}, files, quietLogger)

	_, err := imp.ImportBytes(ctx, "march", "stock.csv", []byte(stockCSV))
	require.Error(t, err)

	logged, err := files.ListByFileGroup(ctx, "march")
	require.NoError(t, err)
	assert.Empty(t, logged)
}

type failingRows struct {
	*repository.MemoryStore
}

func (failingRows) Create(context.Context, string, int, entity.Fields) (*entity.Row, error) {
	return nil, common.Database("create row", errors.New("disk full"))
}

func TestImportBytesRejects(t *testing.T) {
	imp, _, _ := newImporter()
	_, err := imp.ImportBytes(context.Background(), "", "a.csv", []byte(stockCSV))
	assert.True(t, errors.Is(err, common.ErrInvalidInput))

	_, err = imp.ImportBytes(context.Background(), "g", "scan.pdf", []byte("%PDF"))
	assert.True(t, errors.Is(err, common.ErrInvalidInput))

	_, err = imp.ImportBytes(context.Background(), "g", "broken.xlsx", []byte("not a zip"))
	assert.True(t, errors.Is(err, common.ErrInvalidInput))
}

func TestAppendRenumbers(t *testing.T) {
	ctx := context.Background()
	imp, rows, _ := newImporter()
	a, _ := rows.Create(ctx, "g", 0, entity.FieldsOf("품목명", "a"))
	b, _ := rows.Create(ctx, "g", 3, entity.FieldsOf("품목명", "b"))
	c, _ := rows.Create(ctx, "g", 7, entity.FieldsOf("품목명", "c"))
	require.NoError(t, rows.Delete(ctx, a.ID))

	created, err := imp.Append(ctx, "g", []entity.Fields{entity.FieldsOf("품목명", "d")})
	require.NoError(t, err)
	require.Len(t, created, 1)
	assert.Equal(t, 2, created[0].SequenceIndex)

	got, _ := rows.RangeByFileGroup(ctx, "g")
	require.Len(t, got, 3)
	assert.Equal(t, b.ID, got[0].ID)
	assert.Equal(t, 0, got[0].SequenceIndex)
	assert.Equal(t, c.ID, got[1].ID)
	assert.Equal(t, 1, got[1].SequenceIndex)
}

func TestImportDirectory(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "march.csv"), []byte(stockCSV), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(root, "notes.txt"), []byte("x"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(root, "~$march.xlsx"), []byte("lock"), 0o600))
	require.NoError(t, os.Mkdir(filepath.Join(root, ".cache"), 0o700))
	require.NoError(t, os.WriteFile(filepath.Join(root, ".cache", "old.csv"), []byte(stockCSV), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(root, "bad.xlsx"), []byte("nope"), 0o600))

	imp, rows, _ := newImporter()
	results, stats, err := imp.ImportDirectory(context.Background(), root, true)
	require.NoError(t, err)
	assert.Equal(t, uint32(2), stats.Matched)
	assert.Equal(t, uint32(1), stats.Succeeded)
	assert.Equal(t, uint32(1), stats.Failed)
	assert.Len(t, results, 2)

	groups, _ := rows.ListFileGroups(context.Background())
	assert.Equal(t, []string{"march"}, groups)
}

func TestFileGroupFor(t *testing.T) {
	assert.Equal(t, "March stock", FileGroupFor("/in/March stock.xlsx"))
	assert.Equal(t, "a.b", FileGroupFor("a.b.csv"))
}
