// Package audio wraps raw linear PCM returned by speech synthesis in a
// canonical 44-byte WAV container and reads such containers back for
// inspection.
package audio
