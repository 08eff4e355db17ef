// Package productdata 商品数据文件的读写
// 支持 JSON 与 CSV 两种商品数据格式，并负责落盘上传结果与文本报告。
package productdata

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/calvinCq/product-upload/uploader"
)

// Category 商品类目
type Category struct {
	CatID string `json:"cat_id"`
}

// SKU 商品条目
type SKU struct {
	// Price 价格，单位为分
	Price int `json:"price"`
	// StockNum 库存数量
	StockNum int `json:"stock_num"`
	// OutSKUID 外部 SKU 编码
	OutSKUID string `json:"out_sku_id,omitempty"`
}

// DescInfo 商品描述
type DescInfo struct {
	Desc string   `json:"desc"`
	Imgs []string `json:"imgs"`
}

// ExtraService 附加服务
type ExtraService struct {
	ServiceTags []string `json:"service_tags"`
}

// Product 商品数据
// 字段与微信小店 product/add 接口的请求体一致。
type Product struct {
	OutProductID  string       `json:"out_product_id,omitempty"`
	Title         string       `json:"title"`
	SubTitle      string       `json:"sub_title,omitempty"`
	ShortTitle    string       `json:"short_title,omitempty"`
	DescInfo      DescInfo     `json:"desc_info"`
	DeliverMethod int          `json:"deliver_method"`
	Cats          []Category   `json:"cats"`
	CatsV2        []Category   `json:"cats_v2"`
	HeadImgs      []string     `json:"head_imgs"`
	ExtraService  ExtraService `json:"extra_service"`
	SKUs          []SKU        `json:"skus"`
	Listing       int          `json:"listing"`
}

// Item 把商品转换为上传条目
// 没有外部编号的商品用批内序号兜底，保证结果可关联。
func (p Product) Item(index int) (uploader.Item, error) {
	payload, err := json.Marshal(p)
	if err != nil {
		return uploader.Item{}, fmt.Errorf("marshal product %q: %w", p.Title, err)
	}

	id := p.OutProductID
	if id == "" {
		id = fmt.Sprintf("item-%d", index+1)
	}
	return uploader.Item{ID: id, Title: p.Title, Payload: payload}, nil
}

// Items 批量转换商品为上传条目
func Items(products []Product) ([]uploader.Item, error) {
	items := make([]uploader.Item, 0, len(products))
	for i, p := range products {
		item, err := p.Item(i)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, nil
}

// LoadProducts 从文件加载商品数据
// 按扩展名分发：.csv 走 CSV 解析，其余按 JSON 数组解析。
func LoadProducts(path string) ([]Product, error) {
	if strings.EqualFold(filepath.Ext(path), ".csv") {
		return LoadCSV(path)
	}
	return LoadJSON(path)
}

// LoadJSON 从 JSON 文件加载商品数组
func LoadJSON(path string) ([]Product, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read products file: %w", err)
	}

	var products []Product
	if err := json.Unmarshal(data, &products); err != nil {
		return nil, fmt.Errorf("parse products file %s: %w", path, err)
	}
	return products, nil
}

// BatchOutput 一次批量上传的落盘结构
type BatchOutput struct {
	Summary uploader.Summary  `json:"summary"`
	Results []uploader.Result `json:"results"`
}

// SaveResults 把上传结果保存为 JSON 文件
// 目标目录不存在时自动创建。
func SaveResults(path string, results []uploader.Result, summary uploader.Summary) error {
	data, err := json.MarshalIndent(BatchOutput{Summary: summary, Results: results}, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal results: %w", err)
	}
	return writeFile(path, append(data, '\n'))
}

// WriteReport 把文本报告写入文件
func WriteReport(path, report string) error {
	return writeFile(path, []byte(report))
}

func writeFile(path string, data []byte) error {
	if path == "" {
		return fmt.Errorf("output path is required")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create output dir: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
