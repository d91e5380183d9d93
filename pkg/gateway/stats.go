package gateway

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/Sternrassler/dino-catalog/pkg/catalog"
)

// CollectStatistics gathers the total and both distributions
// concurrently. Any failure fails the whole call.
func CollectStatistics(ctx context.Context, g Gateway) (*catalog.Statistics, error) {
	var (
		stats      catalog.Statistics
		diet       map[string]int
		locomotion map[string]int
	)

	eg, ctx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		n, err := g.CountDinosaurs(ctx)
		if err != nil {
			return fmt.Errorf("count: %w", err)
		}
		stats.TotalDinosaurs = n
		return nil
	})
	eg.Go(func() error {
		d, err := g.FieldDistribution(ctx, FieldDiet)
		if err != nil {
			return fmt.Errorf("diet distribution: %w", err)
		}
		diet = d
		return nil
	})
	eg.Go(func() error {
		d, err := g.FieldDistribution(ctx, FieldLocomotion)
		if err != nil {
			return fmt.Errorf("locomotion distribution: %w", err)
		}
		locomotion = d
		return nil
	})

	if err := eg.Wait(); err != nil {
		return nil, err
	}

	stats.DietDistribution = diet
	stats.LocomotionDistribution = locomotion
	return &stats, nil
}
