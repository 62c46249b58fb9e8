package sqdoc

import (
	"bytes"
	"compress/zlib"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"io"
	"strings"

	"golang.org/x/crypto/pbkdf2"
)

const (
	secureMagic      = "SQRICH-SEALED"
	secureVersionV1  = uint16(1)
	secureFlagComp   = uint16(1 << 0)
	secureFlagEnc    = uint16(1 << 1)
	secureSaltSize   = 16
	secureNonceSize  = 12
	secureHeaderSize = len(secureMagic) + 2 + 2 + secureSaltSize + secureNonceSize + 8
	kdfIterations    = 200000
	keySize          = 32
)

type EncryptionOptions struct {
	Enabled  bool
	Password string
}

type EnvelopeInfo struct {
	Wrapped     bool
	Compressed  bool
	Encrypted   bool
	EnvelopeVer uint16
}

// envelopeHeader is the fixed prefix of a sealed file.
type envelopeHeader struct {
	version uint16
	flags   uint16
	salt    [secureSaltSize]byte
	nonce   [secureNonceSize]byte
	length  uint64
}

func (h envelopeHeader) marshal() []byte {
	out := make([]byte, 0, secureHeaderSize)
	out = append(out, secureMagic...)
	out = appendU16(out, h.version)
	out = appendU16(out, h.flags)
	out = append(out, h.salt[:]...)
	out = append(out, h.nonce[:]...)
	return appendU64(out, h.length)
}

func parseEnvelopeHeader(b []byte) (envelopeHeader, error) {
	var h envelopeHeader
	if len(b) < secureHeaderSize {
		return h, ErrInvalidSecureFile
	}
	p := b[len(secureMagic):]
	h.version = binary.LittleEndian.Uint16(p[0:2])
	if h.version != secureVersionV1 {
		return h, fmt.Errorf("%w: secure envelope version %d", ErrUnsupportedVer, h.version)
	}
	h.flags = binary.LittleEndian.Uint16(p[2:4])
	p = p[4:]
	copy(h.salt[:], p[:secureSaltSize])
	p = p[secureSaltSize:]
	copy(h.nonce[:], p[:secureNonceSize])
	p = p[secureNonceSize:]
	h.length = binary.LittleEndian.Uint64(p[:8])
	return h, nil
}

func isSecureEnvelope(b []byte) bool {
	return bytes.HasPrefix(b, []byte(secureMagic))
}

func inspectEnvelopeBytes(b []byte) (EnvelopeInfo, error) {
	if !isSecureEnvelope(b) {
		return EnvelopeInfo{}, nil
	}
	h, err := parseEnvelopeHeader(b)
	if err != nil {
		return EnvelopeInfo{}, err
	}
	return EnvelopeInfo{
		Wrapped:     true,
		Compressed:  h.flags&secureFlagComp != 0,
		Encrypted:   h.flags&secureFlagEnc != 0,
		EnvelopeVer: h.version,
	}, nil
}

func sealEnvelope(payload []byte, opts SaveOptions) ([]byte, error) {
	h := envelopeHeader{version: secureVersionV1}
	if opts.Compression {
		h.flags |= secureFlagComp
		var err error
		if payload, err = compressBytes(payload); err != nil {
			return nil, err
		}
	}
	if opts.Encryption.Enabled {
		h.flags |= secureFlagEnc
		if _, err := io.ReadFull(rand.Reader, h.salt[:]); err != nil {
			return nil, err
		}
		if _, err := io.ReadFull(rand.Reader, h.nonce[:]); err != nil {
			return nil, err
		}
		gcm, err := newGCM(opts.Encryption.Password, h.salt[:])
		if err != nil {
			return nil, err
		}
		payload = gcm.Seal(nil, h.nonce[:], payload, nil)
	}
	h.length = uint64(len(payload))
	return append(h.marshal(), payload...), nil
}

func openEnvelope(b []byte, opts LoadOptions) ([]byte, error) {
	h, err := parseEnvelopeHeader(b)
	if err != nil {
		return nil, err
	}
	if uint64(len(b)-secureHeaderSize) != h.length {
		return nil, ErrInvalidSecureFile
	}
	payload := b[secureHeaderSize:]

	if h.flags&secureFlagEnc != 0 {
		if strings.TrimSpace(opts.Password) == "" {
			return nil, ErrPasswordRequired
		}
		gcm, err := newGCM(opts.Password, h.salt[:])
		if err != nil {
			return nil, err
		}
		if payload, err = gcm.Open(nil, h.nonce[:], payload, nil); err != nil {
			return nil, ErrInvalidPassword
		}
	}
	if h.flags&secureFlagComp != 0 {
		if payload, err = decompressBytes(payload); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidSecureFile, err)
		}
	}
	return payload, nil
}

func newGCM(password string, salt []byte) (cipher.AEAD, error) {
	key := pbkdf2.Key([]byte(password), salt, kdfIterations, keySize, sha256.New)
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}

func compressBytes(in []byte) ([]byte, error) {
	var buf bytes.Buffer
	w, err := zlib.NewWriterLevel(&buf, zlib.BestSpeed)
	if err != nil {
		return nil, err
	}
	if _, err := w.Write(in); err != nil {
		_ = w.Close()
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// maxInflatedSize caps the decompressed size of a sealed payload.
var maxInflatedSize int64 = 256 << 20

func decompressBytes(in []byte) ([]byte, error) {
	r, err := zlib.NewReader(bytes.NewReader(in))
	if err != nil {
		return nil, err
	}
	defer r.Close()
	out, err := io.ReadAll(io.LimitReader(r, maxInflatedSize+1))
	if err != nil {
		return nil, err
	}
	if int64(len(out)) > maxInflatedSize {
		return nil, fmt.Errorf("inflated payload exceeds %d bytes", maxInflatedSize)
	}
	return out, nil
}
