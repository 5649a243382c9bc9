package plotdisk

import "os"

// WriteFilePreallocated writes data to path, pre-allocating the file's disk
// blocks first (fallocateFile) so a full disk surfaces as an error at open
// time instead of a SIGBUS partway through the write — the plot file is
// written as one large, already-sized blob, exactly the case
// fallocateFile's platform variants (fallocate_linux.go, fallocate_darwin.go,
// fallocate_other.go) exist for.
func WriteFilePreallocated(path string, data []byte, perm os.FileMode) error {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, perm)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := fallocateFile(f, int64(len(data))); err != nil {
		return err
	}
	if _, err := f.WriteAt(data, 0); err != nil {
		return err
	}
	return f.Sync()
}

// AdviseSequentialRead hints to the kernel that f will be read sequentially
// from the start, the read-side counterpart of WriteFilePreallocated's
// write-side hinting. Best-effort: errors from the underlying advisory
// syscall are intentionally not surfaced (fadviseSequential already ignores
// them on the platforms that support it).
func AdviseSequentialRead(f *os.File) {
	info, err := f.Stat()
	if err != nil {
		return
	}
	fadviseSequential(int(f.Fd()), 0, info.Size())
}
