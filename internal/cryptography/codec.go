package cryptography

import (
	"fmt"
	"io"

	"rustun/internal/application"
	"rustun/internal/domain/frame"
)

// Codec implements spec.md §4.1's encode/decode contract over one Cipher.
type Codec struct {
	cipher application.Cipher
}

func NewCodec(c application.Cipher) *Codec {
	return &Codec{cipher: c}
}

// Encode produces header || seal(plaintext) for writing to a stream or
// datagram socket.
func (c *Codec) Encode(t frame.Type, plaintext []byte) ([]byte, error) {
	sealed, err := c.cipher.Seal(plaintext)
	if err != nil {
		return nil, fmt.Errorf("frame encode: %w", err)
	}
	if len(sealed) > frame.MaxPayloadLen {
		return nil, frame.ErrLengthOverflow
	}
	out := make([]byte, frame.HeaderLen+len(sealed))
	if err := frame.EncodeHeader(out, t, len(sealed)); err != nil {
		return nil, err
	}
	copy(out[frame.HeaderLen:], sealed)
	return out, nil
}

// DecodeDatagram decodes one complete frame received as a single UDP
// datagram.
func (c *Codec) DecodeDatagram(buf []byte) (frame.Type, []byte, error) {
	hdr, err := frame.DecodeHeader(buf)
	if err != nil {
		return 0, nil, err
	}
	sealed := buf[frame.HeaderLen:]
	if len(sealed) != int(hdr.PayloadLen) {
		return 0, nil, frame.ErrShortRead
	}
	plaintext, err := c.cipher.Open(sealed)
	if err != nil {
		return 0, nil, err
	}
	return hdr.Type, plaintext, nil
}

// ReadFrame reads exactly one frame from a stream (the TCP relay path):
// HeaderLen header bytes, then exactly PayloadLen sealed bytes.
func (c *Codec) ReadFrame(r io.Reader) (frame.Type, []byte, error) {
	var hdrBuf [frame.HeaderLen]byte
	if _, err := io.ReadFull(r, hdrBuf[:]); err != nil {
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return 0, nil, err
		}
		return 0, nil, fmt.Errorf("frame: read header: %w", err)
	}
	hdr, err := frame.DecodeHeader(hdrBuf[:])
	if err != nil {
		return 0, nil, err
	}
	sealed := make([]byte, hdr.PayloadLen)
	if _, err := io.ReadFull(r, sealed); err != nil {
		return 0, nil, fmt.Errorf("frame: read payload: %w", err)
	}
	plaintext, err := c.cipher.Open(sealed)
	if err != nil {
		return 0, nil, err
	}
	return hdr.Type, plaintext, nil
}

// WriteFrame encodes and writes one frame to a stream.
func (c *Codec) WriteFrame(w io.Writer, t frame.Type, plaintext []byte) error {
	buf, err := c.Encode(t, plaintext)
	if err != nil {
		return err
	}
	_, err = w.Write(buf)
	return err
}
