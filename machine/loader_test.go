package machine

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFirmwareShortImagePermitted(t *testing.T) {
	image := []byte{0xDE, 0xAD, 0xBE, 0xEF}

	got, err := LoadFirmware(bytes.NewReader(image))
	require.NoError(t, err)
	assert.Equal(t, image, got)
}

func TestLoadFirmwareEmptyImage(t *testing.T) {
	got, err := LoadFirmware(bytes.NewReader(nil))
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestLoadFirmwareCapsAtMaxSize(t *testing.T) {
	image := bytes.Repeat([]byte{0x01}, MaxFirmwareSize+4096)

	got, err := LoadFirmware(bytes.NewReader(image))
	require.NoError(t, err)
	assert.Len(t, got, MaxFirmwareSize)
}

func TestLoadFirmwareExactMaxSize(t *testing.T) {
	image := bytes.Repeat([]byte{0x02}, MaxFirmwareSize)

	got, err := LoadFirmware(bytes.NewReader(image))
	require.NoError(t, err)
	assert.Equal(t, image, got)
}

type errReader struct{}

func (errReader) Read([]byte) (int, error) {
	return 0, assert.AnError
}

func TestLoadFirmwarePropagatesReadError(t *testing.T) {
	_, err := LoadFirmware(errReader{})
	assert.Error(t, err)
}
