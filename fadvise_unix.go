//go:build unix

package construct

import (
	"os"

	"golang.org/x/sys/unix"
)

// adviseSequentialRead hints the kernel that path will be read start-to-end
// exactly once, which is the access pattern ParseFile always has (it reads
// the whole file before handing bytes to the engine). Best-effort: a
// failure here never fails the parse.
func adviseSequentialRead(f *os.File, size int64) {
	if size <= 0 {
		return
	}
	_ = unix.Fadvise(int(f.Fd()), 0, size, unix.FADV_SEQUENTIAL)
}
