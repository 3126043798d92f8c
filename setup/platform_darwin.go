package setup

// DefaultCleaner returns a NoopCleaner: on macOS, updates are staged
// straight from the artifact and no installer is kept around.
func DefaultCleaner(cacheDir string) Cleaner {
	return NoopCleaner{}
}
