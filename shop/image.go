package shop

import (
	"context"
	"fmt"
	"io"

	"github.com/calvinCq/product-upload/core"
)

// ImageUploadResult 图片上传结果
type ImageUploadResult struct {
	URL     string `json:"url"`
	MediaID string `json:"media_id"`
}

type imageUploadResponse struct {
	ImgInfo ImageUploadResult `json:"img_info"`
	URL     string            `json:"url"`
	MediaID string            `json:"media_id"`
}

// UploadImage 上传商品图片
// 内容一次性读入内存，保证重试时可重放。
func (c *Client) UploadImage(ctx context.Context, fileName string, r io.Reader) (*ImageUploadResult, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read image: %w", err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("empty image content")
	}

	resp, _, err := c.executor.Execute(ctx, core.Request{
		Kind:      "image.upload",
		Path:      imageUploadPath,
		FileField: "media",
		FileName:  fileName,
		FileBytes: data,
		FileExtra: map[string]string{"resp_type": "1"},
	})
	if err != nil {
		return nil, err
	}

	decoded, err := core.Decode[imageUploadResponse](resp)
	if err != nil {
		return nil, err
	}

	result := decoded.ImgInfo
	if result.URL == "" {
		result.URL = decoded.URL
	}
	if result.MediaID == "" {
		result.MediaID = decoded.MediaID
	}
	return &result, nil
}
