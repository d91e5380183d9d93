package pagination

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/Sternrassler/dino-catalog/pkg/catalog"
)

// Config holds batch fetcher configuration
type Config struct {
	// MaxConcurrency is the maximum number of parallel requests
	MaxConcurrency int
	// Timeout per page fetch
	Timeout time.Duration
	// PageSize is the listing limit used for every page
	PageSize int
}

// DefaultConfig returns safe default configuration.
// The largest page size keeps the number of requests low.
func DefaultConfig() Config {
	return Config{
		MaxConcurrency: 4,
		Timeout:        15 * time.Second,
		PageSize:       catalog.MaxPageSize,
	}
}

// PageFetcher loads one page of a filtered listing. The API client and the
// gateways implement it.
type PageFetcher interface {
	ListDinosaurs(ctx context.Context, q catalog.Query) (*catalog.Page, error)
}

// PageResult represents the result of fetching a single page
type PageResult struct {
	PageNumber int
	Page       *catalog.Page
	Error      error
}

// BatchFetcher handles parallel fetching of multiple pages
type BatchFetcher struct {
	fetcher PageFetcher
	config  Config
}

// NewBatchFetcher creates a new batch fetcher
func NewBatchFetcher(fetcher PageFetcher, config Config) *BatchFetcher {
	if config.MaxConcurrency <= 0 {
		config.MaxConcurrency = 4
	}
	if config.Timeout <= 0 {
		config.Timeout = 15 * time.Second
	}
	config.PageSize = catalog.NormalizeLimit(config.PageSize)

	return &BatchFetcher{
		fetcher: fetcher,
		config:  config,
	}
}

// FetchAllPages fetches all pages of a listing in parallel using worker pool
// Returns map of pageNumber -> page for successful pages
func (bf *BatchFetcher) FetchAllPages(ctx context.Context, filters catalog.Filters) (map[int]*catalog.Page, error) {
	start := time.Now()

	// Fetch first page to get total page count
	firstPage, err := bf.fetch(ctx, filters, 1)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch first page: %w", err)
	}
	totalPages := firstPage.Pagination.TotalPages

	log.Info().
		Int("total_pages", totalPages).
		Int("total_records", firstPage.Pagination.Total).
		Msg("Starting parallel page fetch")

	results := map[int]*catalog.Page{1: firstPage}

	// Single page optimization
	if totalPages <= 1 {
		log.Info().
			Int("pages", 1).
			Dur("duration", time.Since(start)).
			Msg("Fetch complete (single page)")
		return results, nil
	}

	// Create channels
	pageQueue := make(chan int, totalPages)
	pageResults := make(chan PageResult, totalPages)

	// Fill page queue (skip page 1, already fetched)
	for page := 2; page <= totalPages; page++ {
		pageQueue <- page
	}
	close(pageQueue)

	// Start worker pool
	var wg sync.WaitGroup
	for i := 0; i < bf.config.MaxConcurrency; i++ {
		wg.Add(1)
		go bf.worker(ctx, filters, pageQueue, pageResults, &wg, i)
	}

	// Close results channel when all workers done
	go func() {
		wg.Wait()
		close(pageResults)
	}()

	// Collect results
	var firstErr error
	for result := range pageResults {
		if result.Error != nil {
			if firstErr == nil {
				firstErr = result.Error
			}
			continue
		}
		results[result.PageNumber] = result.Page
	}

	if firstErr == nil && ctx.Err() != nil {
		firstErr = ctx.Err()
	}
	if firstErr != nil {
		log.Warn().
			Err(firstErr).
			Int("fetched_pages", len(results)).
			Int("total_pages", totalPages).
			Msg("Worker error - returning partial results")
		return results, fmt.Errorf("worker error (partial data: %d/%d pages): %w", len(results), totalPages, firstErr)
	}

	log.Info().
		Int("pages", len(results)).
		Int("total", totalPages).
		Dur("duration", time.Since(start)).
		Msg("Fetch complete")

	return results, nil
}

// FetchAll fetches every page and returns the records in listing order.
// On error the records of the pages fetched so far are returned with it.
func (bf *BatchFetcher) FetchAll(ctx context.Context, filters catalog.Filters) ([]catalog.Dinosaur, error) {
	pages, err := bf.FetchAllPages(ctx, filters)

	numbers := make([]int, 0, len(pages))
	for n := range pages {
		numbers = append(numbers, n)
	}
	sort.Ints(numbers)

	var records []catalog.Dinosaur
	for _, n := range numbers {
		records = append(records, pages[n].Data...)
	}
	return records, err
}

func (bf *BatchFetcher) fetch(ctx context.Context, filters catalog.Filters, page int) (*catalog.Page, error) {
	pageCtx, cancel := context.WithTimeout(ctx, bf.config.Timeout)
	defer cancel()

	p, err := bf.fetcher.ListDinosaurs(pageCtx, catalog.Query{
		Filters: filters,
		Page:    page,
		Limit:   bf.config.PageSize,
	})
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, fmt.Errorf("page %d: empty response", page)
	}
	return p, nil
}

// worker processes pages from the queue. A worker stops at its first
// failure; the others drain the queue.
func (bf *BatchFetcher) worker(ctx context.Context, filters catalog.Filters, pageQueue <-chan int, results chan<- PageResult, wg *sync.WaitGroup, workerID int) {
	defer wg.Done()
	pagesProcessed := 0

	for pageNum := range pageQueue {
		// Check context cancellation
		select {
		case <-ctx.Done():
			log.Debug().
				Int("worker_id", workerID).
				Int("pages_processed", pagesProcessed).
				Msg("Worker stopping (context cancelled)")
			return
		default:
		}

		page, err := bf.fetch(ctx, filters, pageNum)
		if err != nil {
			log.Warn().
				Err(err).
				Int("worker_id", workerID).
				Int("page", pageNum).
				Msg("Page fetch failed")
			results <- PageResult{PageNumber: pageNum, Error: err}
			return
		}

		results <- PageResult{PageNumber: pageNum, Page: page}
		pagesProcessed++
	}

	if pagesProcessed > 0 {
		log.Debug().
			Int("worker_id", workerID).
			Int("pages_processed", pagesProcessed).
			Msg("Worker completed")
	}
}
