// Package gateway defines the request/response contract with the external
// processing service that performs the actual audio work (transcription,
// splitting, voice cloning, merging, subtitle generation) and an HTTP client
// implementing it. The gateway never mutates session state; callers commit
// results to the store only after a successful response.
package gateway
