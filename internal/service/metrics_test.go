package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/playerstats-api/internal/domain"
)

func metricDef(higherIsBetter bool) *domain.MetricDefinition {
	return &domain.MetricDefinition{
		ID:             1,
		Key:            "wynncraft_mobs_killed",
		Label:          "Mobs Killed",
		Provider:       "wynncraft",
		HigherIsBetter: higherIsBetter,
	}
}

func sampleValues() []domain.MetricValue {
	return []domain.MetricValue{
		{UUID: "a", Value: 10},
		{UUID: "b", Value: 20},
		{UUID: "c", Value: 30},
		{UUID: "d", Value: 40},
		{UUID: "e", Value: 50},
	}
}

func TestBuildHistogramRankAndPercentile(t *testing.T) {
	h := buildHistogram(metricDef(true), 30, sampleValues())

	assert.Equal(t, 5, h.SampleSize)
	assert.Equal(t, 10.0, h.MinValue)
	assert.Equal(t, 50.0, h.MaxValue)

	// Three of five values are at or below 30.
	assert.InDelta(t, 60.0, h.Percentile, 1e-9)

	// Two players strictly beat 30.
	assert.Equal(t, 3, h.PlayerRank)
}

func TestBuildHistogramRankLowerIsBetter(t *testing.T) {
	h := buildHistogram(metricDef(false), 30, sampleValues())

	// Two players have strictly lower values.
	assert.Equal(t, 3, h.PlayerRank)

	// Percentile counts at-or-below regardless of direction.
	assert.InDelta(t, 60.0, h.Percentile, 1e-9)
}

func TestBuildHistogramBucketsCoverPopulation(t *testing.T) {
	h := buildHistogram(metricDef(true), 30, sampleValues())

	require.Len(t, h.Buckets, bucketCount+1)
	require.Len(t, h.Counts, bucketCount)

	assert.Equal(t, h.MinValue, h.Buckets[0])
	assert.Equal(t, h.MaxValue, h.Buckets[bucketCount])

	total := 0
	for _, c := range h.Counts {
		total += c
	}
	assert.Equal(t, h.SampleSize, total)

	// Edges are monotonically increasing.
	for i := 1; i < len(h.Buckets); i++ {
		assert.Greater(t, h.Buckets[i], h.Buckets[i-1])
	}
}

func TestBuildHistogramSingleSample(t *testing.T) {
	values := []domain.MetricValue{{UUID: "a", Value: 42}}
	h := buildHistogram(metricDef(true), 42, values)

	assert.Equal(t, 1, h.SampleSize)
	assert.Equal(t, []float64{42, 42}, h.Buckets)
	assert.Equal(t, []int{1}, h.Counts)
	assert.InDelta(t, 100.0, h.Percentile, 1e-9)
	assert.Equal(t, 1, h.PlayerRank)
}

func TestBuildHistogramUniformPopulation(t *testing.T) {
	values := []domain.MetricValue{
		{UUID: "a", Value: 7},
		{UUID: "b", Value: 7},
		{UUID: "c", Value: 7},
	}
	h := buildHistogram(metricDef(true), 7, values)

	assert.Equal(t, []float64{7, 7}, h.Buckets)
	assert.Equal(t, []int{3}, h.Counts)
	assert.Equal(t, 1, h.PlayerRank)
}

func TestTopValuesDirection(t *testing.T) {
	values := sampleValues()

	top := topValues(true, values)
	require.Len(t, top, 5)
	assert.Equal(t, 50.0, top[0].Value)
	assert.Equal(t, 10.0, top[4].Value)

	top = topValues(false, values)
	assert.Equal(t, 10.0, top[0].Value)
}

func TestTopValuesCapped(t *testing.T) {
	values := make([]domain.MetricValue, 0, 12)
	for i := 0; i < 12; i++ {
		values = append(values, domain.MetricValue{UUID: "p", Value: float64(i)})
	}

	top := topValues(true, values)
	require.Len(t, top, topPlayerCount)
	assert.Equal(t, 11.0, top[0].Value)
}

func TestBuildHistogramExtremesLandInBuckets(t *testing.T) {
	h := buildHistogram(metricDef(true), 10, sampleValues())

	// The minimum must land in the first bucket and the maximum in the last.
	assert.Greater(t, h.Counts[0], 0)
	assert.Greater(t, h.Counts[bucketCount-1], 0)
}
