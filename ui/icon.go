package ui

import (
	"bytes"
	"image"
	"image/color"
	"sync"

	ico "github.com/Kodeworks/golang-image-ico"
)

const iconSize = 32

var (
	iconOnce  sync.Once
	iconBytes []byte
	iconErr   error
)

var (
	iconBackground = color.RGBA{R: 0x0f, G: 0x17, B: 0x2a, A: 0xff}
	iconBar        = color.RGBA{R: 0x38, G: 0xbd, B: 0xf8, A: 0xff}
)

// Icon draws the application icon: three rising bars on a dark tile.
func Icon() image.Image {
	img := image.NewRGBA(image.Rect(0, 0, iconSize, iconSize))
	for y := 0; y < iconSize; y++ {
		for x := 0; x < iconSize; x++ {
			img.Set(x, y, iconBackground)
		}
	}
	heights := []int{12, 20, 28}
	for i, h := range heights {
		x0 := 4 + i*9
		for x := x0; x < x0+6; x++ {
			for y := iconSize - 2 - h; y < iconSize-2; y++ {
				img.Set(x, y, iconBar)
			}
		}
	}
	return img
}

// IconICO returns Icon encoded as a Windows .ico, used for the favicon and
// the tray.
func IconICO() ([]byte, error) {
	iconOnce.Do(func() {
		var buf bytes.Buffer
		iconErr = ico.Encode(&buf, Icon())
		iconBytes = buf.Bytes()
	})
	return iconBytes, iconErr
}
