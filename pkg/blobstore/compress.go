package blobstore

import (
	"bytes"
	"io"

	"github.com/klauspost/compress/zstd"
)

// compress wraps raw in a single zstd frame with a content checksum, so a
// corrupt or truncated blob is detected on decompression.
func compress(raw []byte, level zstd.EncoderLevel) ([]byte, error) {
	buf := bytes.NewBuffer(make([]byte, 0, len(raw)/2+64))
	enc, err := zstd.NewWriter(buf,
		zstd.WithEncoderLevel(level),
		zstd.WithEncoderCRC(true),
		zstd.WithEncoderConcurrency(1),
	)
	if err != nil {
		return nil, err
	}
	if _, err := enc.Write(raw); err != nil {
		enc.Close()
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decompress(blob []byte) ([]byte, error) {
	dec, err := zstd.NewReader(bytes.NewReader(blob), zstd.WithDecoderConcurrency(1))
	if err != nil {
		return nil, err
	}
	defer dec.Close()

	out := bytes.NewBuffer(make([]byte, 0, len(blob)*4))
	if _, err := io.Copy(out, dec); err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}
