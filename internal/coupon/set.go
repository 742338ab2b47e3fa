package coupon

import (
	"bufio"
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"strings"
)

const (
	// initialSetCapacity pre-sizes sets; large files grow from here.
	initialSetCapacity = 64 * 1024
	// cancelCheckInterval is how many lines are read between context checks.
	cancelCheckInterval = 1 << 20
)

type mapCouponSet struct {
	coupons map[string]struct{}
}

// newMapCouponSet creates an empty map-backed set.
func newMapCouponSet(capacity int) *mapCouponSet {
	return &mapCouponSet{coupons: make(map[string]struct{}, capacity)}
}

func (s *mapCouponSet) Contains(code string) bool {
	_, ok := s.coupons[code]
	return ok
}

func (s *mapCouponSet) Size() int {
	return len(s.coupons)
}

func (s *mapCouponSet) Add(code string) {
	s.coupons[code] = struct{}{}
}

// readGzipSet decompresses r and collects one code per non-blank line.
func readGzipSet(ctx context.Context, r io.Reader) (*mapCouponSet, error) {
	gz, err := gzip.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to create gzip reader: %w", err)
	}
	defer gz.Close()

	set := newMapCouponSet(initialSetCapacity)

	scanner := bufio.NewScanner(gz)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	for line := 0; scanner.Scan(); line++ {
		if line%cancelCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		if code := strings.TrimSpace(scanner.Text()); code != "" {
			set.Add(code)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read coupons: %w", err)
	}

	return set, nil
}
