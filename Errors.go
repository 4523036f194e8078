package limn

import "errors"


//============================================= Limn Errors


// Sentinel errors returned by build, load, and segmentation. Lookup never
//	errors -- absence is reported as (zero, false), not an error.
var (
	// ErrDuplicateKey is returned when the segmentation engine or a layer
	//	builder observes a non-increasing key in a stream that must be
	//	sorted and unique.
	ErrDuplicateKey = errors.New("limn: duplicate or non-increasing key in sorted stream")

	// ErrEmptyLayer is returned when a layer builder is asked to build from
	//	a key stream with zero elements, but the caller did not intend an
	//	empty index (i.e. this is not the top-of-stack root).
	ErrEmptyLayer = errors.New("limn: layer builder given an empty, non-root key stream")

	// ErrChecksumMismatch is returned by Load when a persisted buffer's
	//	header checksum does not match its payload, indicating the file was
	//	truncated, corrupted, or written by an incompatible build.
	ErrChecksumMismatch = errors.New("limn: persisted buffer checksum mismatch")

	// ErrBadHeader is returned when a persisted buffer's header cannot be
	//	parsed (wrong magic, truncated file, unsupported format version).
	ErrBadHeader = errors.New("limn: persisted buffer header is invalid")

	// ErrBadLayout is returned by the layout DSL parser on malformed input.
	ErrBadLayout = errors.New("limn: malformed layout expression")
)
