//go:build !unix && !windows

package lockedfile

import "os"

// No advisory locking on this platform; builds sharing an output
// directory are not serialized.
func lockFile(*os.File) error { return nil }

func unlockFile(*os.File) error { return nil }
