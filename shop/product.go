package shop

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/calvinCq/product-upload/core"
)

// AddProductResult 商品新增结果
// 商品业务字段不做结构化建模，原始响应保留在 Raw 中由调用方处置。
type AddProductResult struct {
	ProductID string
	Raw       json.RawMessage
}

type addProductResponse struct {
	Data struct {
		ProductID json.Number `json:"product_id"`
	} `json:"data"`
	ProductID json.Number `json:"product_id"`
}

// AddProduct 新增商品
// payload 为完整的商品 JSON，由上游生成器提供。
func (c *Client) AddProduct(ctx context.Context, payload json.RawMessage) (*AddProductResult, error) {
	resp, _, err := c.executor.Execute(ctx, core.Request{
		Kind: "product.add",
		Path: productAddPath,
		Body: payload,
	})
	if err != nil {
		return nil, err
	}

	decoded, err := core.Decode[addProductResponse](resp)
	if err != nil {
		return nil, err
	}

	// 部分环境把 product_id 放在 data 里，部分放在根级别
	productID := decoded.Data.ProductID.String()
	if productID == "" || productID == "0" {
		productID = decoded.ProductID.String()
	}

	return &AddProductResult{ProductID: productID, Raw: resp.Body}, nil
}

// GetProduct 查询商品详情
func (c *Client) GetProduct(ctx context.Context, productID string) (json.RawMessage, error) {
	if productID == "" {
		return nil, fmt.Errorf("product id is required")
	}

	resp, _, err := c.executor.Execute(ctx, core.Request{
		Kind: "product.get",
		Path: productGetPath,
		Body: map[string]string{"product_id": productID},
	})
	if err != nil {
		return nil, err
	}
	if _, err := core.Decode[struct{}](resp); err != nil {
		return nil, err
	}
	return resp.Body, nil
}

// ListProductsRequest 商品列表查询参数
type ListProductsRequest struct {
	// Page 页码，从 1 开始
	Page int
	// PageSize 每页数量，上限 100
	PageSize int
	// Status 商品状态过滤（可选，nil 表示不过滤）
	Status *int
	// Title 标题关键字过滤（可选）
	Title string
}

// ProductList 商品列表查询结果
type ProductList struct {
	ProductIDs []json.Number `json:"product_ids"`
	NextKey    string        `json:"next_key"`
	TotalNum   int           `json:"total_num"`
}

// ListProducts 分页查询商品列表
func (c *Client) ListProducts(ctx context.Context, req ListProductsRequest) (*ProductList, error) {
	if req.Page <= 0 {
		req.Page = 1
	}
	if req.PageSize <= 0 {
		req.PageSize = 10
	}
	if req.PageSize > 100 {
		req.PageSize = 100
	}

	body := map[string]any{
		"page":      req.Page,
		"page_size": req.PageSize,
	}
	if req.Status != nil {
		body["status"] = *req.Status
	}
	if req.Title != "" {
		body["title"] = req.Title
	}

	list, err := core.ExecuteTyped[ProductList](ctx, c.executor, core.Request{
		Kind: "product.list",
		Path: productListPath,
		Body: body,
	})
	if err != nil {
		return nil, err
	}
	return &list, nil
}

// Category 商品类目
type Category struct {
	CatID    json.Number `json:"cat_id"`
	Name     string      `json:"name"`
	FatherID json.Number `json:"f_cat_id"`
	Leaf     bool        `json:"leaf"`
}

type categoryAllResponse struct {
	CatsV2 []Category `json:"cats_v2"`
	Cats   []Category `json:"cats"`
}

// Categories 获取全量商品类目
func (c *Client) Categories(ctx context.Context) ([]Category, error) {
	decoded, err := core.ExecuteTyped[categoryAllResponse](ctx, c.executor, core.Request{
		Kind:   "category.all",
		Method: http.MethodGet,
		Path:   categoryAllPath,
	})
	if err != nil {
		return nil, err
	}
	if len(decoded.CatsV2) > 0 {
		return decoded.CatsV2, nil
	}
	return decoded.Cats, nil
}
