package service

import (
	"bytes"
	"image"
	"image/png"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateReviewTitle(t *testing.T) {
	cases := []struct {
		name  string
		title string
		ok    bool
	}{
		{"too short", "ok", false},
		{"exactly five", "Great", true},
		{"normal", "Great boots!", true},
		{"whitespace padding ignored", "  ok  ", false},
		{"repeated run", "Wooooooow nice", false},
		{"four repeats allowed", "Woooow nice", true},
		{"cjk counts runes", "很好的靴子啊", true},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			err := ValidateReviewTitle(c.title)
			if c.ok {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestValidateReviewContent(t *testing.T) {
	cases := []struct {
		name    string
		content string
		ok      bool
	}{
		{"valid", "These boots kept my feet dry all winter long.", true},
		{"too short", "Nice boots man", false},
		{"long but few words", "aaaaaaaaaaaaaaaaaaaaaaaaaaaa bb", false},
		{"contains url", "Check out my store at https://example.com for more boots", false},
		{"contains www", "Check out www.example.com for boots and more boots", false},
		{"contains email", "Contact me at someone@example.com about these fine boots", false},
		{"contains phone", "Call me at 555-123-4567 about these very fine boots", false},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			err := ValidateReviewContent(c.content)
			if c.ok {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func pngImage(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, w, h))))
	return buf.Bytes()
}

func TestValidateReviewImages(t *testing.T) {
	good := pngImage(t, 300, 300)

	assert.NoError(t, ValidateReviewImages(nil))
	assert.NoError(t, ValidateReviewImages([]ImageUpload{{Name: "a.png", Data: good}}))

	t.Run("too many", func(t *testing.T) {
		six := make([]ImageUpload, 6)
		for i := range six {
			six[i] = ImageUpload{Name: "a.png", Data: good}
		}
		assert.Error(t, ValidateReviewImages(six))
	})

	t.Run("too small dimensions", func(t *testing.T) {
		assert.Error(t, ValidateReviewImages([]ImageUpload{
			{Name: "tiny.png", Data: pngImage(t, 100, 100)},
		}))
	})

	t.Run("disallowed type", func(t *testing.T) {
		assert.Error(t, ValidateReviewImages([]ImageUpload{
			{Name: "note.txt", Data: []byte(strings.Repeat("hello ", 100))},
		}))
	})

	t.Run("corrupt image", func(t *testing.T) {
		// PNG 魔数后面跟垃圾数据，类型探测通过但解码失败
		corrupt := append([]byte{0x89, 'P', 'N', 'G', 0x0d, 0x0a, 0x1a, 0x0a}, bytes.Repeat([]byte{0xff}, 64)...)
		assert.Error(t, ValidateReviewImages([]ImageUpload{{Name: "bad.png", Data: corrupt}}))
	})

	t.Run("oversized file", func(t *testing.T) {
		big := ImageUpload{Name: "big.png", Data: make([]byte, maxReviewImageSize+1)}
		assert.Error(t, ValidateReviewImages([]ImageUpload{big}))
	})
}
