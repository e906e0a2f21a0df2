package main

import (
	"bufio"
	"context"
	"log/slog"
	"math/bits"
	"os"
	"slices"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/go-faster/errors"
	pgzip "github.com/klauspost/pgzip"
	"golang.org/x/sync/errgroup"

	"github.com/xenking/storefront/internal/domain/voucher"
)

const (
	bloomFPR      = 0.001
	progressEvery = 10_000_000
	minCodeLen    = 4
	maxCodeLen    = 32
	// maxFiles is bounded by the width of the per-code file bitmask.
	maxFiles = bits.UintSize
)

type ingestOptions struct {
	capacity  uint
	batchSize int
}

// insertFunc stores a batch of codes and returns how many were new.
type insertFunc func(ctx context.Context, codes []string) (int64, error)

type result struct {
	inserted       int64
	rejected       int
	falsePositives int
}

// ingest runs two passes over files. Pass 1 builds a bloom filter per file.
// Pass 2 streams codes that no other filter contains straight to insert and
// records the rest with an exact file bitmask. Candidates seen in one file
// only were bloom false positives and are inserted at the end.
func ingest(ctx context.Context, files []string, opts ingestOptions, insert insertFunc) (result, error) {
	if len(files) > maxFiles {
		return result{}, errors.Errorf("too many batch files: %d > %d", len(files), maxFiles)
	}
	if opts.batchSize <= 0 {
		opts.batchSize = 1000
	}
	if opts.capacity == 0 {
		opts.capacity = 1_000_000
	}

	slog.Info("pass 1: building bloom filters", slog.Int("files", len(files)))
	filters, err := buildBloomFilters(ctx, files, opts.capacity)
	if err != nil {
		return result{}, errors.Wrap(err, "build bloom filters")
	}

	slog.Info("pass 2: streaming unique codes")
	var (
		res        result
		candidates = make([]map[string]uint, len(files))
		unique     = make(chan string, opts.batchSize)
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		n, err := writeBatches(gctx, unique, opts.batchSize, insert)
		res.inserted += n
		return err
	})
	g.Go(func() error {
		defer close(unique)
		sg, sctx := errgroup.WithContext(gctx)
		for i, f := range files {
			sg.Go(scanFile(sctx, i, f, filters, unique, candidates))
		}
		return sg.Wait()
	})
	if err := g.Wait(); err != nil {
		return res, errors.Wrap(err, "scan batches")
	}

	keep, rejected := resolveCandidates(candidates)
	res.rejected = rejected
	res.falsePositives = len(keep)
	for chunk := range slices.Chunk(keep, opts.batchSize) {
		n, err := insert(ctx, chunk)
		if err != nil {
			return res, errors.Wrap(err, "insert false positives")
		}
		res.inserted += n
	}
	return res, nil
}

// resolveCandidates splits candidates into codes found in a single file and
// a count of codes found in several.
func resolveCandidates(perFile []map[string]uint) (keep []string, rejected int) {
	merged := make(map[string]uint)
	for _, m := range perFile {
		for code, mask := range m {
			merged[code] |= mask
		}
	}
	for code, mask := range merged {
		if bits.OnesCount(mask) > 1 {
			rejected++
			continue
		}
		keep = append(keep, code)
	}
	slices.Sort(keep)
	return keep, rejected
}

func buildBloomFilters(ctx context.Context, files []string, capacity uint) ([]*bloom.BloomFilter, error) {
	filters := make([]*bloom.BloomFilter, len(files))

	g, ctx := errgroup.WithContext(ctx)
	for i, path := range files {
		g.Go(func() error {
			filter := bloom.NewWithEstimates(capacity, bloomFPR)
			var count uint64
			err := streamGzFile(ctx, path, func(code string) error {
				filter.AddString(code)
				count++
				if count%progressEvery == 0 {
					slog.Info("pass 1 progress", slog.Int("file", i+1), slog.Uint64("codes", count))
				}
				return nil
			})
			if err != nil {
				return errors.Wrapf(err, "build filter for %s", path)
			}
			slog.Info("pass 1 complete", slog.Int("file", i+1), slog.Uint64("codes", count))
			filters[i] = filter
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return filters, nil
}

func scanFile(
	ctx context.Context,
	idx int,
	path string,
	filters []*bloom.BloomFilter,
	unique chan<- string,
	candidates []map[string]uint,
) func() error {
	return func() error {
		found := make(map[string]uint)
		bit := uint(1) << uint(idx)
		var count, sent uint64

		err := streamGzFile(ctx, path, func(code string) error {
			count++
			for j, f := range filters {
				if j != idx && f.TestString(code) {
					found[code] |= bit
					return nil
				}
			}
			select {
			case unique <- code:
				sent++
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		})
		if err != nil {
			return errors.Wrapf(err, "scan %s", path)
		}

		slog.Info("pass 2 complete",
			slog.Int("file", idx+1),
			slog.Uint64("codes", count),
			slog.Uint64("unique", sent),
			slog.Int("candidates", len(found)),
		)
		candidates[idx] = found
		return nil
	}
}

// writeBatches drains codes into insert in groups of size.
func writeBatches(ctx context.Context, codes <-chan string, size int, insert insertFunc) (int64, error) {
	var (
		total int64
		batch = make([]string, 0, size)
	)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		n, err := insert(ctx, batch)
		if err != nil {
			return err
		}
		total += n
		batch = make([]string, 0, size)
		return nil
	}

	for code := range codes {
		batch = append(batch, code)
		if len(batch) == size {
			if err := flush(); err != nil {
				return total, err
			}
		}
	}
	if err := flush(); err != nil {
		return total, err
	}
	return total, nil
}

// streamGzFile calls fn with every well-formed, normalized code in path.
func streamGzFile(ctx context.Context, path string, fn func(code string) error) error {
	f, err := os.Open(path)
	if err != nil {
		return errors.Wrapf(err, "open %s", path)
	}
	defer func() { _ = f.Close() }()

	gz, err := pgzip.NewReader(f)
	if err != nil {
		return errors.Wrapf(err, "create gzip reader for %s", path)
	}
	defer func() { _ = gz.Close() }()

	scanner := bufio.NewScanner(gz)
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		code := voucher.NormalizeCode(scanner.Text())
		if len(code) < minCodeLen || len(code) > maxCodeLen {
			continue
		}
		if err := fn(code); err != nil {
			return err
		}
	}
	if err := scanner.Err(); err != nil {
		return errors.Wrapf(err, "scan %s", path)
	}
	return nil
}
