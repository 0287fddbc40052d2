// Package pipeline drives one feeling card from captured audio to a persisted
// record: analysis, concurrent image and speech synthesis, artifact storage
// and indexing.
package pipeline
