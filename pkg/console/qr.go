package console

import (
	"fmt"

	"github.com/skip2/go-qrcode"
)

// QRLines renders content as a QR code using half-block characters, two
// modules per text row.
func QRLines(content string) ([]string, error) {
	code, err := qrcode.New(content, qrcode.Low)
	if err != nil {
		return nil, fmt.Errorf("encode qr: %w", err)
	}
	bitmap := code.Bitmap()

	var lines []string
	for y := 0; y < len(bitmap); y += 2 {
		row := make([]rune, 0, len(bitmap[y]))
		for x := range bitmap[y] {
			top := bitmap[y][x]
			bottom := y+1 < len(bitmap) && bitmap[y+1][x]
			switch {
			case top && bottom:
				row = append(row, '█')
			case top:
				row = append(row, '▀')
			case bottom:
				row = append(row, '▄')
			default:
				row = append(row, ' ')
			}
		}
		lines = append(lines, string(row))
	}
	return lines, nil
}
