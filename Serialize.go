package limn

import "encoding/binary"

import "github.com/cespare/xxhash/v2"


//============================================= Limn Buffer Serialization


// SerializeBufferHeader packs a BufferHeader into its fixed 32 byte
//	on-disk representation, little-endian.
func (header *BufferHeader) SerializeBufferHeader() []byte {
	out := make([]byte, bufferHeaderSize)

	binary.LittleEndian.PutUint32(out[headerMagicIdx:], header.Magic)
	binary.LittleEndian.PutUint16(out[headerFormatVersionIdx:], header.FormatVersion)
	binary.LittleEndian.PutUint16(out[headerElemSizeIdx:], header.ElemSize)
	binary.LittleEndian.PutUint64(out[headerCapacityIdx:], header.Capacity)
	binary.LittleEndian.PutUint64(out[headerLengthIdx:], header.Length)
	binary.LittleEndian.PutUint64(out[headerChecksumIdx:], header.Checksum)

	return out
}

// DeserializeBufferHeader unpacks a BufferHeader from its on-disk bytes.
func DeserializeBufferHeader(raw []byte) (*BufferHeader, error) {
	if len(raw) < bufferHeaderSize { return nil, ErrBadHeader }

	header := &BufferHeader{
		Magic: binary.LittleEndian.Uint32(raw[headerMagicIdx:]),
		FormatVersion: binary.LittleEndian.Uint16(raw[headerFormatVersionIdx:]),
		ElemSize: binary.LittleEndian.Uint16(raw[headerElemSizeIdx:]),
		Capacity: binary.LittleEndian.Uint64(raw[headerCapacityIdx:]),
		Length: binary.LittleEndian.Uint64(raw[headerLengthIdx:]),
		Checksum: binary.LittleEndian.Uint64(raw[headerChecksumIdx:]),
	}

	if header.Magic != bufferMagic { return nil, ErrBadHeader }
	if header.FormatVersion != bufferFormatVersion { return nil, ErrBadHeader }

	return header, nil
}

// checksumPayload computes the xxhash64 checksum of a buffer's raw payload
//	bytes, used both when writing a header and when verifying one on load.
func checksumPayload(payload []byte) uint64 {
	return xxhash.Sum64(payload)
}
