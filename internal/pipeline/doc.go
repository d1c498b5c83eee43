// Package pipeline owns the capture-to-translation lifecycle. A Controller
// runs a strict state machine over a single pipeline instance at a time:
// Start builds the device stream, the frame queue and both workers from a
// validated config; Stop cancels the run context and joins them. A fatal
// capture failure moves the pipeline to Failed and notifies the sink exactly
// once; only a fresh Start leaves that state.
package pipeline
