package limn

import (
	"os"
	"unsafe"
)


//============================================= Limn POD Buffer


// Buffer is a fixed-capacity array of T, either a plain heap allocation or
//	an mmap'd file, addressed through the same deref-to-slice interface
//	either way. T is expected to be POD: fixed size, no pointers, the same
//	bit layout in memory and on disk.
type Buffer[T any] struct {
	// length is the logical element count; shrink() changes this without
	//	touching capacity or reallocating.
	length int

	// capacity is the number of T slots physically backing the buffer.
	capacity int

	// heap holds the backing array when the buffer is not file-mapped.
	heap []T

	// file is the backing file when the buffer is file-mapped, nil
	//	otherwise.
	file *os.File

	// mapped is the raw mapping of a file-mapped buffer's whole file: the
	//	header followed by the payload region.
	mapped MMap
}

// elemSize returns sizeof(T) for the buffer's element type.
func elemSize[T any]() int {
	var zero T
	return int(unsafe.Sizeof(zero))
}

// NewHeapBuffer allocates a zero-initialized heap buffer with room for
//	capacity elements.
func NewHeapBuffer[T any](capacity int) *Buffer[T] {
	return &Buffer[T]{
		length:   capacity,
		capacity: capacity,
		heap:     make([]T, capacity),
	}
}

// NewHeapBufferFromSlice takes ownership of an existing slice as a heap
//	buffer, without copying.
func NewHeapBufferFromSlice[T any](data []T) *Buffer[T] {
	return &Buffer[T]{
		length:   len(data),
		capacity: len(data),
		heap:     data,
	}
}

// PersistBuffer writes data to a new file at path with a BufferHeader ahead
//	of the payload, writing both through a read-write mapping of the file
//	and msync'ing it, then returns a buffer backed by that same mapping.
//	The in-memory and on-disk representations are identical byte-for-byte.
func PersistBuffer[T any](data []T, path string) (*Buffer[T], error) {
	stride := elemSize[T]()
	payloadSize := stride * len(data)

	payload := bytesOfSlice(data)

	header := BufferHeader{
		Magic:         bufferMagic,
		FormatVersion: bufferFormatVersion,
		ElemSize:      uint16(stride),
		Capacity:      uint64(len(data)),
		Length:        uint64(len(data)),
		Checksum:      checksumPayload(payload),
	}

	file, createErr := createSizedFile(path, int64(bufferHeaderSize+payloadSize))
	if createErr != nil { return nil, createErr }

	mapped, mmapErr := mmapFile(file)
	if mmapErr != nil {
		file.Close()
		return nil, mmapErr
	}

	copy(mapped[:bufferHeaderSize], header.SerializeBufferHeader())
	copy(mapped[bufferHeaderSize:], payload)

	if syncErr := msyncFile(mapped); syncErr != nil {
		munmapFile(mapped)
		file.Close()
		return nil, syncErr
	}

	return &Buffer[T]{
		length:   len(data),
		capacity: len(data),
		file:     file,
		mapped:   mapped,
	}, nil
}

// LoadBuffer maps a previously persisted buffer from disk without copying
//	its payload out of the mapping, verifying the header's checksum against
//	the payload.
func LoadBuffer[T any](path string) (*Buffer[T], error) {
	file, openErr := openExistingFile(path)
	if openErr != nil { return nil, openErr }

	mapped, mmapErr := mmapFile(file)
	if mmapErr != nil {
		file.Close()
		return nil, mmapErr
	}

	if len(mapped) < bufferHeaderSize {
		munmapFile(mapped)
		file.Close()
		return nil, ErrBadHeader
	}

	header, headerErr := DeserializeBufferHeader(mapped[:bufferHeaderSize])
	if headerErr != nil {
		munmapFile(mapped)
		file.Close()
		return nil, headerErr
	}

	stride := elemSize[T]()
	if int(header.ElemSize) != stride {
		munmapFile(mapped)
		file.Close()
		return nil, ErrBadHeader
	}

	payload := mapped[bufferHeaderSize:]
	if checksumPayload(payload) != header.Checksum {
		munmapFile(mapped)
		file.Close()
		return nil, ErrChecksumMismatch
	}

	return &Buffer[T]{
		length:   int(header.Length),
		capacity: int(header.Capacity),
		file:     file,
		mapped:   mapped,
	}, nil
}

// Slice derefs the buffer to its logical elements, whether heap or
//	file-mapped.
func (b *Buffer[T]) Slice() []T {
	if b.file != nil {
		payload := b.mapped[bufferHeaderSize:]
		return bytesAsSlice[T](payload, b.capacity)[:b.length]
	}

	return b.heap[:b.length]
}

// Len returns the buffer's logical length.
func (b *Buffer[T]) Len() int {
	return b.length
}

// Shrink truncates the buffer's logical length in place without
//	reallocating or touching the underlying storage.
func (b *Buffer[T]) Shrink(newLen int) {
	if newLen < b.length {
		b.length = newLen
	}
}

// Close releases the buffer's file mapping, if any. Heap buffers are left
//	to the garbage collector.
func (b *Buffer[T]) Close() error {
	if b.file == nil { return nil }

	if err := munmapFile(b.mapped); err != nil { return err }
	return b.file.Close()
}

// bytesOfSlice reinterprets a slice of POD T as its raw backing bytes,
//	without copying.
func bytesOfSlice[T any](data []T) []byte {
	if len(data) == 0 { return nil }
	return unsafe.Slice((*byte)(unsafe.Pointer(unsafe.SliceData(data))), len(data)*elemSize[T]())
}

// bytesAsSlice reinterprets a region of raw bytes as a slice of capacity
//	POD T elements, without copying.
func bytesAsSlice[T any](data []byte, capacity int) []T {
	if capacity == 0 { return nil }
	return unsafe.Slice((*T)(unsafe.Pointer(unsafe.SliceData(data))), capacity)
}
