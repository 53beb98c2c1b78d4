package common

import "unsafe"

// SliceToBytes views a slice of vertices or uniform values as raw bytes for a GPU upload.
// The returned slice shares memory with data.
//
// Parameters:
//   - data: source slice of any fixed-size type
//
// Returns:
//   - []byte: byte view of data, or nil if data is empty
func SliceToBytes[T any](data []T) []byte {
	if len(data) == 0 {
		return nil
	}
	var zero T
	return unsafe.Slice((*byte)(unsafe.Pointer(&data[0])), int(unsafe.Sizeof(zero))*len(data))
}

// StructToBytes views a uniform block struct as raw bytes. The returned slice shares memory with v.
func StructToBytes[T any](v *T) []byte {
	return unsafe.Slice((*byte)(unsafe.Pointer(v)), int(unsafe.Sizeof(*v)))
}
