// Package builtin provides host classes a standalone bridge serves out of the
// box: an application context rooted in the user's config and cache
// directories, reachable the usual way through android.app.ActivityThread.
package builtin
