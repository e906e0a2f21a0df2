package main

import (
	"context"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-faster/errors"
	pgzip "github.com/klauspost/pgzip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/storefront/internal/domain/discount"
)

func writeBatch(t *testing.T, dir, name string, codes ...string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	require.NoError(t, err)
	gz := pgzip.NewWriter(f)
	_, err = gz.Write([]byte(strings.Join(codes, "\n") + "\n"))
	require.NoError(t, err)
	require.NoError(t, gz.Close())
	require.NoError(t, f.Close())
	return path
}

type recorder struct {
	mu      sync.Mutex
	codes   map[string]struct{}
	batches [][]string
}

func (r *recorder) insert(_ context.Context, codes []string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.codes == nil {
		r.codes = make(map[string]struct{})
	}
	r.batches = append(r.batches, append([]string(nil), codes...))
	var n int64
	for _, c := range codes {
		if _, ok := r.codes[c]; !ok {
			r.codes[c] = struct{}{}
			n++
		}
	}
	return n, nil
}

func (r *recorder) sorted() []string {
	out := make([]string, 0, len(r.codes))
	for c := range r.codes {
		out = append(out, c)
	}
	slices.Sort(out)
	return out
}

func TestIngest(t *testing.T) {
	dir := t.TempDir()
	files := []string{
		writeBatch(t, dir, "a.gz", "CODE0001", "SHARED01", " code0002 ", "CODE0001"),
		writeBatch(t, dir, "b.gz", "shared01", "CODE0003", "SHARED02"),
		writeBatch(t, dir, "c.gz", "CODE0004", "ab", "SHARED02", "THIS-CODE-IS-FAR-TOO-LONG-TO-BE-VALID"),
	}

	var rec recorder
	res, err := ingest(context.Background(), files, ingestOptions{capacity: 1000, batchSize: 2}, rec.insert)
	require.NoError(t, err)

	assert.Equal(t, []string{"CODE0001", "CODE0002", "CODE0003", "CODE0004"}, rec.sorted())
	assert.Equal(t, int64(4), res.inserted)
	assert.Equal(t, 2, res.rejected)
	for _, b := range rec.batches {
		assert.LessOrEqual(t, len(b), 2)
	}
}

func TestIngest_SingleFile(t *testing.T) {
	dir := t.TempDir()
	files := []string{writeBatch(t, dir, "only.gz", "ALPHA001", "BRAVO002")}

	var rec recorder
	res, err := ingest(context.Background(), files, ingestOptions{}, rec.insert)
	require.NoError(t, err)
	assert.Equal(t, int64(2), res.inserted)
	assert.Zero(t, res.rejected)
	assert.Zero(t, res.falsePositives)
}

func TestIngest_InsertError(t *testing.T) {
	dir := t.TempDir()
	files := []string{
		writeBatch(t, dir, "a.gz", "CODE0001"),
		writeBatch(t, dir, "b.gz", "CODE0002"),
	}

	_, err := ingest(context.Background(), files, ingestOptions{capacity: 100, batchSize: 1},
		func(context.Context, []string) (int64, error) {
			return 0, errors.New("connection reset")
		})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection reset")
}

func TestIngest_MissingFile(t *testing.T) {
	var rec recorder
	_, err := ingest(context.Background(), []string{filepath.Join(t.TempDir(), "missing.gz")}, ingestOptions{}, rec.insert)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "build bloom filters")
}

func TestIngest_TooManyFiles(t *testing.T) {
	files := make([]string, maxFiles+1)
	var rec recorder
	_, err := ingest(context.Background(), files, ingestOptions{}, rec.insert)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "too many batch files")
}

func TestResolveCandidates(t *testing.T) {
	keep, rejected := resolveCandidates([]map[string]uint{
		{"DUP00001": 1 << 0, "FALSEPOS": 1 << 0},
		{"DUP00001": 1 << 1},
		{"TRIPLE01": 1 << 2},
		nil,
	})
	assert.Equal(t, []string{"FALSEPOS", "TRIPLE01"}, keep)
	assert.Equal(t, 1, rejected)
}

func TestWriteBatches(t *testing.T) {
	codes := make(chan string, 5)
	for _, c := range []string{"A", "B", "C", "D", "E"} {
		codes <- c
	}
	close(codes)

	var sizes []int
	n, err := writeBatches(context.Background(), codes, 2, func(_ context.Context, batch []string) (int64, error) {
		sizes = append(sizes, len(batch))
		return int64(len(batch)), nil
	})
	require.NoError(t, err)
	assert.Equal(t, int64(5), n)
	assert.Equal(t, []int{2, 2, 1}, sizes)
}

func TestNewTemplate(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		kind    string
		value   string
		minimum string
		limit   int
		wantErr string
	}{
		{name: "percentage", kind: "percentage", value: "15", minimum: "0", limit: 1},
		{name: "fixed with minimum", kind: "fixed", value: "5.50", minimum: "25", limit: 3},
		{name: "unknown type", kind: "bogo", value: "10", minimum: "0", limit: 1, wantErr: "bogo"},
		{name: "bad value", kind: "fixed", value: "ten", minimum: "0", limit: 1, wantErr: "parse value"},
		{name: "bad minimum", kind: "fixed", value: "10", minimum: "abc", limit: 1, wantErr: "parse minimum order"},
		{name: "zero value", kind: "fixed", value: "0", minimum: "0", limit: 1, wantErr: "discountValue"},
		{name: "zero usage limit", kind: "fixed", value: "10", minimum: "0", limit: 0, wantErr: "usageLimit"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tmpl, err := newTemplate(tt.kind, tt.value, tt.minimum, tt.limit, now, 24*time.Hour)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, discount.Type(tt.kind), tmpl.DiscountType)
			assert.Equal(t, now.Add(24*time.Hour), tmpl.ExpirationDate)
			assert.Equal(t, tt.limit, tmpl.UsageLimit)
		})
	}
}
