// Package clock abstracts time for components that schedule work.
//
// Production code injects Real(); tests inject Fake() and drive time
// with Advance, which fires due timers synchronously in deadline order.
// Anything that calls time.Now, time.AfterFunc, or time.NewTicker in a
// code path under test should take a Clock instead.
package clock
