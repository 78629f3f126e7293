package service

import (
	"bytes"
	"errors"
	"image"
	"net/http"
	"regexp"
	"strings"
	"unicode/utf8"

	// 注册评论配图允许的三种解码器
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/webp"
)

const (
	maxReviewImages    = 5
	maxReviewImageSize = 5 * 1024 * 1024
	minImageDimension  = 200
	maxImageDimension  = 4000
)

// 反灌水启发式，不是安全边界：链接、邮箱、电话都拒掉
var spamPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)(https?://|www\.)`),
	regexp.MustCompile(`[\w.-]+@[\w.-]+\.\w+`),
	regexp.MustCompile(`\d{3}[-.\s]?\d{3}[-.\s]?\d{4}`),
}

var allowedImageTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/webp": true,
}

// ValidateReviewTitle 标题至少 5 个字符，且不允许同一字符连续重复 5 次以上
func ValidateReviewTitle(title string) error {
	title = strings.TrimSpace(title)
	if utf8.RuneCountInString(title) < 5 {
		return errors.New("标题至少需要 5 个字符")
	}
	if hasLongRun(title, 5) {
		return errors.New("标题包含无效的重复字符")
	}
	return nil
}

// hasLongRun 是否存在长度达到 n 的连续相同字符
func hasLongRun(s string, n int) bool {
	var (
		prev rune
		run  int
	)
	for _, r := range s {
		if r == prev {
			run++
		} else {
			prev = r
			run = 1
		}
		if run >= n {
			return true
		}
	}
	return false
}

// ValidateReviewContent 正文至少 20 字符、5 个词，且不得包含链接/邮箱/电话
func ValidateReviewContent(content string) error {
	content = strings.TrimSpace(content)
	if utf8.RuneCountInString(content) < 20 {
		return errors.New("评论内容至少需要 20 个字符")
	}
	if len(strings.Fields(content)) < 5 {
		return errors.New("评论内容至少需要 5 个词")
	}
	for _, p := range spamPatterns {
		if p.MatchString(content) {
			return errors.New("评论不能包含链接、邮箱或电话号码")
		}
	}
	return nil
}

// ImageUpload 待校验的评论配图
type ImageUpload struct {
	Name string
	Data []byte
}

// ValidateReviewImages 校验配图：最多 5 张，每张不超过 5MB，
// 只接受 jpeg/png/webp，像素尺寸限制在 [200×200, 4000×4000]，
// 无法解析的文件视为损坏直接拒绝
func ValidateReviewImages(images []ImageUpload) error {
	if len(images) > maxReviewImages {
		return errors.New("最多上传 5 张图片")
	}
	for _, img := range images {
		if len(img.Data) > maxReviewImageSize {
			return errors.New("每张图片不能超过 5MB")
		}
		if !allowedImageTypes[http.DetectContentType(img.Data)] {
			return errors.New("只支持 JPEG、PNG 和 WebP 格式")
		}
		cfg, _, err := image.DecodeConfig(bytes.NewReader(img.Data))
		if err != nil {
			return errors.New("图片文件无效或已损坏")
		}
		if cfg.Width < minImageDimension || cfg.Height < minImageDimension {
			return errors.New("图片尺寸至少为 200×200 像素")
		}
		if cfg.Width > maxImageDimension || cfg.Height > maxImageDimension {
			return errors.New("图片尺寸不能超过 4000×4000 像素")
		}
	}
	return nil
}
