// Package mlfallback implements the optional, similarity-based name
// resolution fallback: character n-gram TF-IDF vectorization plus
// nearest-neighbor cosine lookup against a trained provide-to-package
// corpus (internal/domain/canon consumes it through the narrow
// canon.Predictor interface).
//
// Collecting training examples from a live hub tag and batch-retraining
// the corpus are external, offline concerns (akin to a
// collect-training-data / train-model pipeline run out-of-band by an
// operator) and are not part of this core; Resolver.Train exists so a
// caller can fit a corpus in-process, but no CLI or scheduled job drives it
// here.
package mlfallback
