// Package tracking persists the three-tier update gate model: per-asset
// tracking rows for the mapping, layer1, and layer2 provider feeds, the shared
// sweep watermarks, provider mappings, cached API payloads, stored image
// lists, and the enriched ADI documents updates are generated from.
//
// A claim (FindByNaturalKey) only succeeds when no other tier holds an
// unprocessed update for the same asset, which serializes cross-tier
// enrichment without any in-process coordination.
package tracking
