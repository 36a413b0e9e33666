/*
Package roster holds the reference data of the collector: the curated list of
artists, the festival editions and the artist records built out of them.

Seeds and events are read from YAML. The Builder derives the artist id, the
years active and a deterministic performance history from every seed.
*/
package roster
