package store

import "fmt"

// Migrate copies the named collections from a source store into a
// destination store, replacing whatever the destination held. This works
// for:
// - File -> Mongo (the "upgrade")
// - Mongo -> File (offline copy)
func Migrate(src, dst Store, collections []string) error {
	for _, name := range collections {
		recs, err := src.List(name)
		if err != nil {
			return fmt.Errorf("failed to read collection %s: %w", name, err)
		}
		if err := dst.ReplaceAll(name, recs); err != nil {
			return fmt.Errorf("failed to install collection %s: %w", name, err)
		}
	}
	return nil
}
