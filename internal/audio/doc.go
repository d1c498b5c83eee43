// Package audio defines the conditioned audio frame and the bounded FIFO
// queue that hands frames from the capture worker to the translation worker.
// The queue is the pipeline's only inter-worker data channel: capture blocks
// on a full queue (backpressure) and translation blocks on an empty one.
package audio
