// Package translation implements the consumer side of the pipeline: a worker
// that pops conditioned frames one at a time, sends them to the external
// speech-translation backend, and maps every backend response, including
// failures, into an explicit outcome variant. Backend problems for one chunk
// never escalate to pipeline failure.
//
// Two backend transports are provided: a request/response HTTP client with
// retry and backoff, and a persistent websocket client.
package translation
