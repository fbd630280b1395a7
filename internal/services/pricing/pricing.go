// Package pricing converts token, audio, and character counts into USD
// using the configured rate table. It performs no I/O.
package pricing

import (
	"math"

	"github.com/jijnasa-ai/jijnasa/internal/config"
)

// Fallback rates for operations whose model is missing from the table.
// Chat has no fallback: an unknown chat model costs zero so the turn is
// still recorded rather than rejected.
const (
	defaultEmbeddingInputPerM = 0.02
	defaultSTTPerMinute       = 0.006
	defaultTTSPerMChars       = 15.0
)

// Book holds rates keyed provider -> model id. Model ids are globally
// unique, so lookups scan every provider.
type Book struct {
	rates map[string]map[string]config.ModelRate
}

func NewBook(rates map[string]map[string]config.ModelRate) *Book {
	if rates == nil {
		rates = map[string]map[string]config.ModelRate{}
	}
	return &Book{rates: rates}
}

func (b *Book) rate(modelID string) (config.ModelRate, bool) {
	for _, models := range b.rates {
		if r, ok := models[modelID]; ok {
			return r, true
		}
	}
	return config.ModelRate{}, false
}

// ChatCost prices a completion at the model's per-million-token rates,
// rounded to 8 decimal places.
func (b *Book) ChatCost(modelID string, inputTokens, outputTokens int) float64 {
	r, ok := b.rate(modelID)
	if !ok {
		return 0
	}
	cost := float64(inputTokens)/1_000_000*r.Input + float64(outputTokens)/1_000_000*r.Output
	return round8(cost)
}

func (b *Book) EmbeddingCost(modelID string, tokens int) float64 {
	perM := defaultEmbeddingInputPerM
	if r, ok := b.rate(modelID); ok && r.Input > 0 {
		perM = r.Input
	}
	return round8(float64(tokens) / 1_000_000 * perM)
}

func (b *Book) STTCost(modelID string, audioMinutes float64) float64 {
	perMinute := defaultSTTPerMinute
	if r, ok := b.rate(modelID); ok && r.PerMinute > 0 {
		perMinute = r.PerMinute
	}
	return round8(audioMinutes * perMinute)
}

func (b *Book) TTSCost(modelID string, characters int) float64 {
	perMChars := defaultTTSPerMChars
	if r, ok := b.rate(modelID); ok && r.PerMillionChars > 0 {
		perMChars = r.PerMillionChars
	}
	return round8(float64(characters) / 1_000_000 * perMChars)
}

func round8(v float64) float64 {
	return math.Round(v*1e8) / 1e8
}
