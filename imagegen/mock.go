package imagegen

import (
	"bytes"
	"context"
	"hash/fnv"
	"image"
	"image/color"
	"image/png"

	"auto_blog_publisher/blog"
)

// MockImages renders a small solid PNG whose color is derived from the prompt key.
type MockImages struct {
	Size int
}

func (m MockImages) Generate(_ context.Context, prompt blog.ImagePrompt) ([]byte, error) {
	size := m.Size
	if size <= 0 {
		size = 16
	}
	h := fnv.New32a()
	_, _ = h.Write([]byte(prompt.Key()))
	sum := h.Sum32()
	c := color.RGBA{R: uint8(sum), G: uint8(sum >> 8), B: uint8(sum >> 16), A: 255}

	img := image.NewRGBA(image.Rect(0, 0, size, size))
	for y := range size {
		for x := range size {
			img.Set(x, y, c)
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
