//go:build !darwin

package watcher

func newPlatformWatcher() Watcher { return unsupportedWatcher{} }
