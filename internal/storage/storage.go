package storage

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/drstein77/salesforecast/internal/models"
)

// ErrNotFound indicates the shop has no stored forecast.
var ErrNotFound = errors.New("not found")

type Log interface {
	Info(string, ...zap.Field)
}

// MemoryStorage keeps the latest forecast results and mirrors them to a
// Keeper when one is configured.
type MemoryStorage struct {
	ctx context.Context
	mx  sync.RWMutex

	results map[int]models.Result

	keeper Keeper
	log    Log
}

// Keeper interface for database operations
type Keeper interface {
	InsertResults(context.Context, []models.Result) error
	Ping(context.Context) bool
	Close() bool
}

// NewMemoryStorage creates a new MemoryStorage instance. keeper may be nil.
func NewMemoryStorage(ctx context.Context, keeper Keeper, log Log) *MemoryStorage {
	log.Info("forecast storage ready", zap.Bool("database", keeper != nil))

	return &MemoryStorage{
		ctx:     ctx,
		results: make(map[int]models.Result),
		keeper:  keeper,
		log:     log,
	}
}

// SaveResults replaces the forecast of every shop in results and forwards them
// to the keeper.
func (s *MemoryStorage) SaveResults(results []models.Result) error {
	s.mx.Lock()
	s.put(results)
	s.mx.Unlock()

	if s.keeper == nil {
		return nil
	}
	if err := s.keeper.InsertResults(s.ctx, results); err != nil {
		return fmt.Errorf("store forecasts: %w", err)
	}
	return nil
}

func (s *MemoryStorage) put(results []models.Result) {
	for _, r := range results {
		if cur, ok := s.results[r.ShopID]; ok && cur.Date.After(r.Date) {
			continue
		}
		s.results[r.ShopID] = r
	}
}

// Result returns the latest forecast of shopID.
func (s *MemoryStorage) Result(shopID int) (models.Result, error) {
	s.mx.RLock()
	defer s.mx.RUnlock()

	r, ok := s.results[shopID]
	if !ok {
		return models.Result{}, fmt.Errorf("shop %d: %w", shopID, ErrNotFound)
	}
	return r, nil
}

// Results returns every stored forecast ordered by shop id.
func (s *MemoryStorage) Results() []models.Result {
	s.mx.RLock()
	defer s.mx.RUnlock()

	out := make([]models.Result, 0, len(s.results))
	for _, r := range s.results {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ShopID < out[j].ShopID })
	return out
}

// Ping reports whether the keeper is reachable. Without a keeper it is always true.
func (s *MemoryStorage) Ping() bool {
	if s.keeper == nil {
		return true
	}
	return s.keeper.Ping(s.ctx)
}

func (s *MemoryStorage) Close() bool {
	if s.keeper == nil {
		return true
	}
	return s.keeper.Close()
}
