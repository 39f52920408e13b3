package tenderapi

import (
	"strings"
	"testing"
	"time"

	"github.com/peterldowns/testy/assert"
	"github.com/peterldowns/testy/check"

	"github.com/cloudx-io/opentender/core"
)

func signedSample(t *testing.T) ReceiptCOSE {
	t.Helper()
	km, err := NewKeyManager()
	assert.NoError(t, err)

	at := time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)
	signed, err := km.SignReceipt(NewAwardReceipt("r1", sampleOutcome(), sampleTotals(), core.DefaultTaxRate, at))
	assert.NoError(t, err)
	return signed
}

func TestTransportEncodings_RoundTrip(t *testing.T) {
	signed := signedSample(t)

	tests := []struct {
		name      string
		transport func(ReceiptCOSE) (string, ReceiptCOSE, error)
	}{
		{
			name: "base64",
			transport: func(c ReceiptCOSE) (string, ReceiptCOSE, error) {
				enc := c.EncodeBase64()
				out, err := enc.Decode()
				return enc.String(), out, err
			},
		},
		{
			name: "base64url",
			transport: func(c ReceiptCOSE) (string, ReceiptCOSE, error) {
				enc := c.EncodeURLSafe()
				out, err := enc.Decode()
				return enc.String(), out, err
			},
		},
		{
			name: "gzip",
			transport: func(c ReceiptCOSE) (string, ReceiptCOSE, error) {
				enc, err := c.CompressGzip()
				if err != nil {
					return "", nil, err
				}
				out, err := enc.Decompress()
				return enc.String(), out, err
			},
		},
		{
			name: "base64 then gzip",
			transport: func(c ReceiptCOSE) (string, ReceiptCOSE, error) {
				enc, err := c.EncodeBase64().CompressGzip()
				if err != nil {
					return "", nil, err
				}
				out, err := enc.Decompress()
				return enc.String(), out, err
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wire, decoded, err := tt.transport(signed)
			assert.NoError(t, err)
			check.NotEqual(t, "", wire)
			check.Equal(t, signed, decoded)

			_, receipt, err := ParseSignedReceipt(decoded)
			assert.NoError(t, err)
			check.Equal(t, "r1", receipt.ReceiptID)
		})
	}
}

func TestURLSafeForms_AvoidReservedCharacters(t *testing.T) {
	signed := signedSample(t)

	gz, err := signed.CompressGzip()
	assert.NoError(t, err)

	for _, s := range []string{signed.EncodeURLSafe().String(), gz.String()} {
		check.False(t, strings.ContainsAny(s, "+/="))
	}
}

func TestReceiptCOSE_CompressGzip_Deterministic(t *testing.T) {
	signed := signedSample(t)

	first, err := signed.CompressGzip()
	assert.NoError(t, err)
	second, err := signed.CompressGzip()
	assert.NoError(t, err)

	check.Equal(t, first, second)
}

func TestReceiptCOSEURLBase64_AcceptsPadding(t *testing.T) {
	padded, err := ReceiptCOSEURLBase64("dGVzdA==").Decode()
	assert.NoError(t, err)
	bare, err := ReceiptCOSEURLBase64("dGVzdA").Decode()
	assert.NoError(t, err)

	check.Equal(t, ReceiptCOSE("test"), padded)
	check.Equal(t, padded, bare)
}

func TestTransportEncodings_DecodeErrors(t *testing.T) {
	tests := []struct {
		name   string
		decode func() (ReceiptCOSE, error)
		errSub string
	}{
		{
			name:   "base64 with illegal characters",
			decode: ReceiptCOSEBase64("not-valid-base64!!!@@@").Decode,
			errSub: "decode COSE base64",
		},
		{
			name:   "base64 with truncated quantum",
			decode: ReceiptCOSEBase64("abc").Decode,
			errSub: "decode COSE base64",
		},
		{
			name:   "base64url with illegal characters",
			decode: ReceiptCOSEURLBase64("a+b/c").Decode,
			errSub: "decode COSE base64url",
		},
		{
			name:   "gzip text that is not base64url",
			decode: ReceiptCOSEGzip("!!!invalid!!!").Decompress,
			errSub: "decode gzip base64url",
		},
		{
			name:   "base64url text that is not gzip",
			decode: ReceiptCOSEGzip("bm90LWd6aXA").Decompress,
			errSub: "open gzip reader",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := tt.decode()
			check.Error(t, err)
			check.True(t, strings.Contains(err.Error(), tt.errSub))
			check.Nil(t, out)
		})
	}
}
