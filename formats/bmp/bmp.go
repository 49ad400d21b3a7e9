// Package bmp is a minimal BMP-like header format: a fixed signature
// followed by a width/height pair and a pixel array sized by their
// product — the worked example used throughout the engine's own tests to
// demonstrate Struct, Const, Array, and context expressions together.
package bmp

import "github.com/thacuber2a03/construct"

// Image mirrors the parsed/built record: {signature, width, height, pixels}.
type Image struct {
	Width  byte
	Height byte
	Pixels []byte
}

// Format returns the construct.Construct describing the header:
// Struct(signature=Const(b"BMP"), width=Int8ub, height=Int8ub,
// pixels=Array(this.width*this.height, Byte)).
func Format() construct.Construct {
	return construct.StructOf(
		construct.NameField("signature", construct.ConstBytes([]byte("BMP"))),
		construct.NameField("width", construct.Byte),
		construct.NameField("height", construct.Byte),
		construct.NameField("pixels", construct.ArrayOf(
			construct.Mul(construct.Field("width"), construct.Field("height")),
			construct.Byte,
		)),
	)
}

// Parse decodes an Image from buf.
func Parse(buf []byte) (*Image, error) {
	v, err := construct.ParseBytes(Format(), buf)
	if err != nil {
		return nil, err
	}
	obj := v.(*construct.Object)
	width, _ := obj.Get("width")
	height, _ := obj.Get("height")
	pixelsList, _ := obj.Get("pixels")

	img := &Image{Width: byte(width.(int64)), Height: byte(height.(int64))}
	for _, p := range pixelsList.(*construct.ListObject).Items() {
		img.Pixels = append(img.Pixels, byte(p.(int64)))
	}
	return img, nil
}

// Build encodes img back into its header bytes.
func Build(img *Image) ([]byte, error) {
	obj := construct.NewObject()
	obj.Set("signature", []byte("BMP"))
	obj.Set("width", int64(img.Width))
	obj.Set("height", int64(img.Height))
	pixels := construct.NewListObject(nil)
	for _, p := range img.Pixels {
		pixels.Append(int64(p))
	}
	obj.Set("pixels", pixels)
	return construct.Build(Format(), obj)
}
