//go:build !windows

package collector

import "fmt"

func readNativeFile(path string, fn RecordFunc) error {
	return fmt.Errorf("%s: %w", path, ErrNativeUnavailable)
}
