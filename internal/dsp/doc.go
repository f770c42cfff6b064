// Package dsp implements the sample-level building blocks used by the
// needledrop effect chain: rational polyphase resampling, a modulated
// delay chorus, tanh saturation, a first-order low-pass filter and a
// peak-sensing compressor.
//
// Every processor works on a single channel of float64 samples. Stateful
// processors (Chorus, LowPass, Compressor) must be used for one channel
// only, or Reset between channels.
package dsp
