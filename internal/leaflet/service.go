package leaflet

import (
	"context"
	"fmt"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"

	"github.com/gmsas95/medreminder/internal/metrics"
)

// Service serves leaflet summaries. It never fails: generation problems
// yield the static Fallback.
type Service struct {
	generator Generator
	cache     *lru.Cache[string, LeafletData]
	logger    *zap.Logger
	metrics   *metrics.Metrics
}

// NewService creates a service. cacheSize 0 disables caching.
func NewService(generator Generator, cacheSize int, logger *zap.Logger) (*Service, error) {
	s := &Service{
		generator: generator,
		logger:    logger,
	}

	if cacheSize > 0 {
		cache, err := lru.New[string, LeafletData](cacheSize)
		if err != nil {
			return nil, fmt.Errorf("failed to create leaflet cache: %w", err)
		}
		s.cache = cache
	}

	return s, nil
}

// WithMetrics attaches collectors
func (s *Service) WithMetrics(m *metrics.Metrics) *Service {
	s.metrics = m
	return s
}

func cacheKey(name, dosage string, p Profile) string {
	return fmt.Sprintf("%s|%s|%g|%g|%g",
		strings.ToLower(strings.TrimSpace(name)),
		strings.ToLower(strings.TrimSpace(dosage)),
		p.Age, p.Height, p.Weight)
}

// GetSummarizedLeaflet asks the generator for a summary and structures it.
// profile may be nil.
func (s *Service) GetSummarizedLeaflet(ctx context.Context, name, dosage string, profile *Profile) LeafletData {
	p := profile.withDefaults()
	key := cacheKey(name, dosage, p)

	if s.cache != nil {
		if data, ok := s.cache.Get(key); ok {
			s.metrics.RecordLeaflet(metrics.LeafletCached)
			return copyData(data)
		}
	}

	start := time.Now()
	text, err := s.generator.Generate(ctx, BuildPrompt(name, dosage, &p))
	s.metrics.RecordLeafletLatency(time.Since(start))

	if err != nil {
		s.logger.Warn("Leaflet generation failed, serving fallback",
			zap.String("medicine", name),
			zap.Error(err))
		s.metrics.RecordLeaflet(metrics.LeafletFallback)
		return Fallback(name, dosage)
	}

	data := Normalize(name, dosage, text)
	s.metrics.RecordLeaflet(metrics.LeafletOK)

	if s.cache != nil {
		s.cache.Add(key, copyData(data))
	}

	s.logger.Debug("Leaflet generated",
		zap.String("medicine", name),
		zap.Int("how_to_use", len(data.HowToUse)))

	return data
}

// Purge drops every cached summary
func (s *Service) Purge() {
	if s.cache != nil {
		s.cache.Purge()
	}
}

func copyData(d LeafletData) LeafletData {
	d.HowToUse = append([]string(nil), d.HowToUse...)
	return d
}
