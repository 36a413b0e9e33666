// Package collect runs a full collection over the roster: it classifies every
// artist, fetches and scales the artist images, publishes them and writes the
// JSON and Prometheus output files together with the run statistics.
package collect
