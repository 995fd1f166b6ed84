// Package normalisers provides implementations of the Normaliser interface
// for the supported document formats. Each normaliser knows how to extract
// text content from one document type.
//
// Normalisers are registered with a Registry at startup; NewDefaultRegistry
// registers every built-in normaliser.
package normalisers
