// Package touch turns screen regions into randomised device taps.
//
// A Region names a rectangular button on the game UI. The Actuator picks a
// uniformly random pixel inside it for every tap and adds jitter to every
// settle delay, so input never repeats exactly.
package touch
