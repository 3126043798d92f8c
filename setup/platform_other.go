//go:build !darwin

package setup

func DefaultCleaner(cacheDir string) Cleaner {
	return &CacheCleaner{Dir: cacheDir}
}
