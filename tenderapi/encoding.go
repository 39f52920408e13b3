package tenderapi

import (
	"bytes"
	"compress/gzip"
	"encoding/base64"
	"fmt"
	"io"
	"strings"
)

// ReceiptCOSE is a raw COSE_Sign1 signed award receipt.
type ReceiptCOSE []byte

// ReceiptCOSEBase64 is a ReceiptCOSE in standard base64, used in JSON bodies.
type ReceiptCOSEBase64 string

// ReceiptCOSEURLBase64 is a ReceiptCOSE in unpadded URL-safe base64.
type ReceiptCOSEURLBase64 string

// ReceiptCOSEGzip is a gzipped ReceiptCOSE in unpadded URL-safe base64,
// compact enough for notification links.
type ReceiptCOSEGzip string

// EncodeBase64 encodes the receipt with standard base64.
func (c ReceiptCOSE) EncodeBase64() ReceiptCOSEBase64 {
	return ReceiptCOSEBase64(base64.StdEncoding.EncodeToString(c))
}

// EncodeURLSafe encodes the receipt with unpadded URL-safe base64.
func (c ReceiptCOSE) EncodeURLSafe() ReceiptCOSEURLBase64 {
	return ReceiptCOSEURLBase64(base64.RawURLEncoding.EncodeToString(c))
}

// CompressGzip gzips the receipt and encodes it URL-safe.
// The gzip header carries no timestamp, so output is deterministic.
func (c ReceiptCOSE) CompressGzip() (ReceiptCOSEGzip, error) {
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if _, err := zw.Write(c); err != nil {
		return "", fmt.Errorf("gzip receipt: %w", err)
	}
	if err := zw.Close(); err != nil {
		return "", fmt.Errorf("gzip receipt: %w", err)
	}
	return ReceiptCOSEGzip(base64.RawURLEncoding.EncodeToString(buf.Bytes())), nil
}

// Decode returns the raw COSE bytes.
func (b ReceiptCOSEBase64) Decode() (ReceiptCOSE, error) {
	data, err := base64.StdEncoding.DecodeString(string(b))
	if err != nil {
		return nil, fmt.Errorf("decode COSE base64: %w", err)
	}
	return ReceiptCOSE(data), nil
}

// CompressGzip converts a base64 receipt into the gzipped URL-safe form.
func (b ReceiptCOSEBase64) CompressGzip() (ReceiptCOSEGzip, error) {
	raw, err := b.Decode()
	if err != nil {
		return "", err
	}
	return raw.CompressGzip()
}

func (b ReceiptCOSEBase64) String() string {
	return string(b)
}

// Decode returns the raw COSE bytes. Padding is optional.
func (u ReceiptCOSEURLBase64) Decode() (ReceiptCOSE, error) {
	data, err := base64.RawURLEncoding.DecodeString(strings.TrimRight(string(u), "="))
	if err != nil {
		return nil, fmt.Errorf("decode COSE base64url: %w", err)
	}
	return ReceiptCOSE(data), nil
}

func (u ReceiptCOSEURLBase64) String() string {
	return string(u)
}

// Decompress reverses CompressGzip.
func (g ReceiptCOSEGzip) Decompress() (ReceiptCOSE, error) {
	compressed, err := base64.RawURLEncoding.DecodeString(strings.TrimRight(string(g), "="))
	if err != nil {
		return nil, fmt.Errorf("decode gzip base64url: %w", err)
	}

	zr, err := gzip.NewReader(bytes.NewReader(compressed))
	if err != nil {
		return nil, fmt.Errorf("open gzip reader: %w", err)
	}
	defer zr.Close()

	data, err := io.ReadAll(zr)
	if err != nil {
		return nil, fmt.Errorf("decompress receipt: %w", err)
	}
	return ReceiptCOSE(data), nil
}

func (g ReceiptCOSEGzip) String() string {
	return string(g)
}
