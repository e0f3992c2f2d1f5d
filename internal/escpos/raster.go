package escpos

import (
	"image"
	"image/color"
)

// RasterImage converts img to a GS v 0 command. Pixels darker than half
// intensity print black; the width is truncated to a multiple of 8.
func RasterImage(img image.Image) Command {
	bounds := img.Bounds()
	width := bounds.Dx() - bounds.Dx()%8
	height := bounds.Dy()
	rowBytes := width / 8

	command := make(Command, 0, 8+rowBytes*height)
	command = append(command, rasterHeader(rowBytes, height)...)
	raster := make([]byte, rowBytes*height)

	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			r, g, b, a := img.At(bounds.Min.X+x, bounds.Min.Y+y).RGBA()
			if a == 0 {
				continue
			}
			if (r+g+b)/3 < 0x8000 {
				raster[y*rowBytes+x/8] |= 1 << (7 - x%8)
			}
		}
	}
	return append(command, raster...)
}

// ResizeToWidth scales img to targetWidth dots with nearest-neighbour
// sampling, keeping the aspect ratio.
func ResizeToWidth(src image.Image, targetWidth int) image.Image {
	bounds := src.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w == 0 || w == targetWidth {
		return src
	}

	scale := float64(targetWidth) / float64(w)
	newHeight := int(float64(h) * scale)
	dst := image.NewRGBA(image.Rect(0, 0, targetWidth, newHeight))

	for y := 0; y < newHeight; y++ {
		for x := 0; x < targetWidth; x++ {
			sx := bounds.Min.X + int(float64(x)/scale)
			sy := bounds.Min.Y + int(float64(y)/scale)
			dst.Set(x, y, color.RGBAModel.Convert(src.At(sx, sy)))
		}
	}
	return dst
}
