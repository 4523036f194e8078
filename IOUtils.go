package limn

import "os"

import "golang.org/x/sys/unix"


//============================================= Limn IO Utils


// mmapFile maps the entirety of an already correctly-sized file into
//	memory, read-write. The caller owns unmapping it via munmapFile.
func mmapFile(file *os.File) (MMap, error) {
	stat, statErr := file.Stat()
	if statErr != nil { return nil, statErr }

	size := int(stat.Size())
	if size == 0 { return MMap{}, nil }

	data, mmapErr := unix.Mmap(int(file.Fd()), 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if mmapErr != nil { return nil, mmapErr }

	return MMap(data), nil
}

// munmapFile releases a mapping obtained from mmapFile.
func munmapFile(mapped MMap) error {
	if len(mapped) == 0 { return nil }
	return unix.Munmap(mapped)
}

// msyncFile flushes a mapping's dirty pages back to its backing file.
func msyncFile(mapped MMap) error {
	if len(mapped) == 0 { return nil }
	return unix.Msync(mapped, unix.MS_SYNC)
}

// createSizedFile creates (or truncates) a file at path and sizes it to
//	exactly size bytes, ready to be mapped by mmapFile.
func createSizedFile(path string, size int64) (*os.File, error) {
	file, openErr := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0600)
	if openErr != nil { return nil, openErr }

	if truncateErr := file.Truncate(size); truncateErr != nil {
		file.Close()
		return nil, truncateErr
	}

	return file, nil
}

// openExistingFile opens a previously built file for read-write mapping.
func openExistingFile(path string) (*os.File, error) {
	return os.OpenFile(path, os.O_RDWR, 0600)
}
