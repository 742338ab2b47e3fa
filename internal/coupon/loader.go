package coupon

import (
	"context"
	"fmt"
	"os"

	"github.com/rs/zerolog"
)

type fileLoader struct {
	logger zerolog.Logger
}

// NewFileLoader reads coupon sources from the local file system.
func NewFileLoader(logger zerolog.Logger) Loader {
	return &fileLoader{
		logger: logger.With().Str("component", "coupon-file-loader").Logger(),
	}
}

func (l *fileLoader) Load(ctx context.Context, path string) (CouponSet, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open coupon file %s: %w", path, err)
	}
	defer file.Close()

	set, err := readGzipSet(ctx, file)
	if err != nil {
		l.logger.Error().Err(err).Str("file", path).Msg("failed to load coupon file")
		return nil, fmt.Errorf("failed to load coupon file %s: %w", path, err)
	}

	l.logger.Info().Str("file", path).Int("coupons_loaded", set.Size()).Msg("coupon file loaded")
	return set, nil
}
