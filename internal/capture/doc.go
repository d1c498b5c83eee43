// Package capture implements the pipeline's producer side: a worker that
// reads fixed-size chunks from an audio source, runs them through the signal
// conditioner, and pushes the resulting frames into the hand-off queue. The
// worker is the queue's sole producer.
package capture
