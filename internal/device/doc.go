// Package device enumerates host audio input devices and opens capture
// streams on them via the miniaudio bindings. Device ids are opaque handles
// that stay valid for the lifetime of the host audio context; a subsystem
// enumeration failure is reported as an error, distinct from a host that
// simply has no input-capable devices.
package device
