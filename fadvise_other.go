//go:build !unix

package construct

import "os"

// adviseSequentialRead is a no-op on non-unix platforms, which have no
// posix_fadvise equivalent exposed via golang.org/x/sys.
func adviseSequentialRead(f *os.File, size int64) {}
