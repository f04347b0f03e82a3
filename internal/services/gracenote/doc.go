// Package gracenote provides the metadata provider API client and accessor
// helpers over its program, mapping, and update payloads.
package gracenote
