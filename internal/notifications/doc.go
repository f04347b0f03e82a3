// Package notifications publishes pipeline events to an ntfy topic.
package notifications
