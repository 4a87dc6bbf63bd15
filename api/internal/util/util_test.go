package util

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMIMEForExt(t *testing.T) {
	require.Equal(t, "image/jpeg", MIMEForExt("car.jpg"))
	require.Equal(t, "image/jpeg", MIMEForExt("car.JPEG"))
	require.Equal(t, "image/png", MIMEForExt("plate.png"))
	require.Equal(t, "image/gif", MIMEForExt("a.gif"))
	require.Equal(t, "image/bmp", MIMEForExt("a.bmp"))
	require.Equal(t, "image/jpeg", MIMEForExt("weird.webp"))
	require.Equal(t, "image/jpeg", MIMEForExt("noext"))
}

func TestSniffMimeHTTP(t *testing.T) {
	require.Equal(t, "image/jpeg", SniffMimeHTTP([]byte{0xFF, 0xD8, 0xFF}))
	require.Equal(t, "image/png", SniffMimeHTTP([]byte{0x89, 'P', 'N', 'G', 0x0D, 0x0A, 0x1A, 0x0A}))
	require.Equal(t, "image/gif", SniffMimeHTTP([]byte("GIF89a")))
	require.Equal(t, "image/bmp", SniffMimeHTTP([]byte("BM1234")))
	require.Equal(t, "application/octet-stream", SniffMimeHTTP([]byte("hello")))
}

func TestStripCodeFences(t *testing.T) {
	require.Equal(t, `{"a":1}`, StripCodeFences("```json\n{\"a\":1}\n```"))
	require.Equal(t, `{"a":1}`, StripCodeFences("```\n{\"a\":1}\n```"))
	require.Equal(t, `{"a":1}`, StripCodeFences(`{"a":1}`))
}

func TestSanitizeFilename(t *testing.T) {
	require.Equal(t, "passwd", SanitizeFilename("../../etc/passwd"))
	require.Equal(t, "car.jpg", SanitizeFilename("car.jpg"))
	require.Equal(t, "b_c.png", SanitizeFilename(`a\b:c.png`))
	require.Equal(t, "carjpg", SanitizeFilename("car\x00\x1fjpg"))
	require.Equal(t, "", SanitizeFilename("..."))
}
