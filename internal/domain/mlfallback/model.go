package mlfallback

import (
	"bytes"
	"encoding/gob"
	"fmt"
	"os"
	"path/filepath"
)

// Example is a single (provide token -> package names) training record.
type Example struct {
	Provide  string
	RPMName  string
	SRPMName string
}

// modelArtifact is the on-disk, gob-encoded representation of a trained
// model: the corpus plus the derived IDF table, so Load never needs to
// re-fit.
type modelArtifact struct {
	Provides            []string
	RPMNames            []string
	SRPMNames           []string
	IDF                 map[string]float64
	ConfidenceThreshold float64
}

// Resolver is a character-n-gram similarity lookup over a trained
// provide->package corpus, with a persistent prediction cache. It satisfies
// canon.Predictor.
type Resolver struct {
	vectorizer          *vectorizer
	vectors             []sparseVector
	rpmNames            []string
	srpmNames           []string
	provides            []string
	loaded              bool
	confidenceThreshold float64
	cache               *predictionCache
}

// DefaultConfidenceThreshold mirrors canon.DefaultConfidenceThreshold so the
// resolver behaves sensibly even when constructed standalone.
const DefaultConfidenceThreshold = 0.3

// New creates a Resolver backed by a persistent prediction cache at
// cachePath. If modelPath is non-empty and exists, it is loaded eagerly; a
// load failure leaves the resolver unavailable rather than erroring, per
// the spec's graceful-degradation contract.
func New(modelPath, cachePath string) *Resolver {
	r := &Resolver{
		confidenceThreshold: DefaultConfidenceThreshold,
		cache:               newPredictionCache(cachePath),
	}
	if modelPath != "" {
		if _, err := os.Stat(modelPath); err == nil {
			_ = r.Load(modelPath)
		}
	}
	return r
}

// Available reports whether the resolver is ready to make predictions.
func (r *Resolver) Available() bool {
	return r.loaded
}

// Train fits the vectorizer and nearest-neighbor index over examples.
// Training itself stays in scope as an API (the spec only excludes the
// external data-collection/training pipeline, not this method); there is
// no CLI surface for it here.
func (r *Resolver) Train(examples []Example) error {
	if len(examples) == 0 {
		return fmt.Errorf("mlfallback: training data cannot be empty")
	}

	provides := make([]string, len(examples))
	rpmNames := make([]string, len(examples))
	srpmNames := make([]string, len(examples))
	for i, ex := range examples {
		provides[i] = ex.Provide
		rpmNames[i] = ex.RPMName
		srpmNames[i] = ex.SRPMName
	}

	v := fitVectorizer(provides)
	vectors := make([]sparseVector, len(provides))
	for i, p := range provides {
		vectors[i] = v.transform(p)
	}

	r.vectorizer = v
	r.vectors = vectors
	r.provides = provides
	r.rpmNames = rpmNames
	r.srpmNames = srpmNames
	r.loaded = true
	return nil
}

// Predict returns the nearest training example's package names for token,
// or ok=false if the resolver is unavailable or the best match exceeds the
// confidence threshold. Results are served from and written to the
// persistent prediction cache.
func (r *Resolver) Predict(token string) (binaryName, sourceName string, distance float64, ok bool) {
	if !r.Available() {
		return "", "", 0, false
	}

	if entry, found := r.cache.get(token); found {
		return entry.RPMName, entry.SRPMName, entry.Distance, true
	}

	queryVec := r.vectorizer.transform(token)

	bestIdx := -1
	bestDist := 2.0 // cosine distance is at most 2
	for i, v := range r.vectors {
		d := cosineDistance(queryVec, v)
		if d < bestDist {
			bestDist = d
			bestIdx = i
		}
	}

	if bestIdx < 0 || bestDist > r.confidenceThreshold {
		return "", "", bestDist, false
	}

	bin := r.rpmNames[bestIdx]
	src := r.srpmNames[bestIdx]
	r.cache.put(token, cacheEntry{RPMName: bin, SRPMName: src, Distance: bestDist})
	return bin, src, bestDist, true
}

// Save persists the trained model as an opaque gob-encoded artifact.
func (r *Resolver) Save(path string) error {
	if !r.loaded {
		return fmt.Errorf("mlfallback: no model to save")
	}

	artifact := modelArtifact{
		Provides:            r.provides,
		RPMNames:            r.rpmNames,
		SRPMNames:           r.srpmNames,
		IDF:                 r.vectorizer.idf,
		ConfidenceThreshold: r.confidenceThreshold,
	}

	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(artifact); err != nil {
		return fmt.Errorf("mlfallback: encode model: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("mlfallback: create model dir: %w", err)
	}
	return os.WriteFile(path, buf.Bytes(), 0o644)
}

// Load deserializes a model artifact and re-derives the vectors needed for
// nearest-neighbor lookups. Failure leaves the resolver unavailable.
func (r *Resolver) Load(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		r.loaded = false
		return fmt.Errorf("mlfallback: read model: %w", err)
	}

	var artifact modelArtifact
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&artifact); err != nil {
		r.loaded = false
		return fmt.Errorf("mlfallback: decode model: %w", err)
	}

	v := &vectorizer{idf: artifact.IDF}
	vectors := make([]sparseVector, len(artifact.Provides))
	for i, p := range artifact.Provides {
		vectors[i] = v.transform(p)
	}

	r.vectorizer = v
	r.vectors = vectors
	r.provides = artifact.Provides
	r.rpmNames = artifact.RPMNames
	r.srpmNames = artifact.SRPMNames
	if artifact.ConfidenceThreshold > 0 {
		r.confidenceThreshold = artifact.ConfidenceThreshold
	}
	r.loaded = true
	return nil
}
