// Package report merges per-repository query outcomes into a deterministic report
// and renders it as aligned text or as a JSON document.
package report
