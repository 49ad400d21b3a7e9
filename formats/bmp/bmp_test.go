package bmp_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thacuber2a03/construct/formats/bmp"
)

func TestBuildMatchesWorkedExample(t *testing.T) {
	img := &bmp.Image{Width: 3, Height: 2, Pixels: []byte{7, 8, 9, 11, 12, 13}}
	data, err := bmp.Build(img)
	require.NoError(t, err)
	assert.Equal(t, []byte("BMP\x03\x02\x07\x08\x09\x0b\x0c\x0d"), data)
}

func TestParseInvertsBuild(t *testing.T) {
	img := &bmp.Image{Width: 4, Height: 3, Pixels: []byte{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12}}
	data, err := bmp.Build(img)
	require.NoError(t, err)

	got, err := bmp.Parse(data)
	require.NoError(t, err)
	assert.Equal(t, img, got)
}

func TestParseRejectsBadSignature(t *testing.T) {
	_, err := bmp.Parse([]byte("XXX\x01\x01\x00"))
	require.Error(t, err)
}
