// Package enrich maps provider program records into ADI title metadata and
// merges previously enriched sub-asset data into incoming updates.
package enrich
