// Package pipeline runs one projection job end to end: validate the
// toolchain, open the source, project every frame into the encoder, remux
// the source audio and move the result into place.
//
// Every step is strictly sequential. Audio failures degrade to a silent
// output; every other failure aborts the run, and the destination path is
// only ever written by a final rename.
package pipeline
