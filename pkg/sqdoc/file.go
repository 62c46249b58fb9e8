package sqdoc

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"
)

type SaveOptions struct {
	Compression bool
	Encryption  EncryptionOptions
}

type LoadOptions struct {
	Password string
}

// Encode validates doc and returns its container bytes, sealed in an envelope
// when opts asks for compression or encryption.
func Encode(doc *Document, opts SaveOptions) ([]byte, error) {
	if err := Validate(doc); err != nil {
		return nil, err
	}
	if opts.Encryption.Enabled && strings.TrimSpace(opts.Encryption.Password) == "" {
		return nil, ErrPasswordRequired
	}
	blob := encodeContainer(doc).Blob
	if !opts.Compression && !opts.Encryption.Enabled {
		return blob, nil
	}
	return sealEnvelope(blob, opts)
}

// Decode parses container bytes, opening the envelope first when present.
func Decode(b []byte, opts LoadOptions) (*Document, error) {
	if isSecureEnvelope(b) {
		var err error
		if b, err = openEnvelope(b, opts); err != nil {
			return nil, err
		}
	}
	doc, err := decodeContainer(b)
	if err != nil {
		return nil, err
	}
	if err := Validate(doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// InspectBytes reports the envelope flags of encoded bytes.
func InspectBytes(b []byte) (EnvelopeInfo, error) {
	return inspectEnvelopeBytes(b)
}

func Save(path string, doc *Document) error {
	return SaveWithOptions(path, doc, SaveOptions{})
}

// SaveWithOptions stamps the modification time, encodes doc and replaces
// path atomically through a temporary file.
func SaveWithOptions(path string, doc *Document, opts SaveOptions) error {
	if doc == nil {
		return errors.New("sqdoc: document is nil")
	}
	now := time.Now().Unix()
	if doc.Metadata.CreatedUnix == 0 {
		doc.Metadata.CreatedUnix = now
	}
	doc.Metadata.ModifiedUnix = now

	blob, err := Encode(doc, opts)
	if err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, blob, 0o644); err != nil {
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return nil
}

func Load(path string) (*Document, error) {
	return LoadWithOptions(path, LoadOptions{})
}

func LoadWithOptions(path string, opts LoadOptions) (*Document, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Decode(b, opts)
}

func InspectEnvelope(path string) (EnvelopeInfo, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return EnvelopeInfo{}, err
	}
	return inspectEnvelopeBytes(b)
}
