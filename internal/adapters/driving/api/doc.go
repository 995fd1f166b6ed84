// Package api exposes the chat, conversation and document services over
// HTTP. Routes live under /api; streamed answers and document status use
// server-sent events.
package api
