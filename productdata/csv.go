package productdata

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// csvColumns CSV 模板的列顺序
var csvColumns = []string{
	"商品标题", "副标题", "短标题", "商品描述", "发货方式",
	"一级类目ID", "二级类目ID", "三级类目ID",
	"主图1", "主图2", "主图3", "主图4", "主图5", "主图6", "主图7", "主图8", "主图9",
	"详情图1", "详情图2", "详情图3",
	"SKU价格(分)", "SKU库存", "SKU编码", "上架状态",
}

const (
	maxHeadImgs   = 9
	maxDetailImgs = 3
)

// LoadCSV 从 CSV 文件加载商品数据
// 第一行为表头，后续每行是一个商品；未知列被忽略。
func LoadCSV(path string) ([]Product, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open csv file: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("read csv header: %w", err)
	}

	var products []Product
	line := 1
	for {
		record, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv line %d: %w", line+1, err)
		}
		line++

		row := make(map[string]string, len(header))
		for i, col := range header {
			if i < len(record) {
				row[col] = record[i]
			}
		}

		p, err := productFromRow(row)
		if err != nil {
			return nil, fmt.Errorf("csv line %d: %w", line, err)
		}
		products = append(products, p)
	}
	return products, nil
}

// SaveCSV 把商品数据保存为 CSV 文件
func SaveCSV(path string, products []Product) error {
	if len(products) == 0 {
		return fmt.Errorf("no products to save")
	}

	var b strings.Builder
	w := csv.NewWriter(&b)
	if err := w.Write(csvColumns); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, p := range products {
		if err := w.Write(productToRow(p)); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}

	return writeFile(path, []byte(b.String()))
}

func productFromRow(row map[string]string) (Product, error) {
	deliver, err := intField(row, "发货方式")
	if err != nil {
		return Product{}, err
	}
	listing, err := intField(row, "上架状态")
	if err != nil {
		return Product{}, err
	}

	p := Product{
		Title:         row["商品标题"],
		SubTitle:      row["副标题"],
		ShortTitle:    row["短标题"],
		DescInfo:      DescInfo{Desc: row["商品描述"], Imgs: []string{}},
		DeliverMethod: deliver,
		Cats:          []Category{},
		CatsV2:        []Category{},
		HeadImgs:      []string{},
		ExtraService:  ExtraService{ServiceTags: []string{}},
		SKUs:          []SKU{},
		Listing:       listing,
	}

	for _, col := range []string{"一级类目ID", "二级类目ID", "三级类目ID"} {
		if id := strings.TrimSpace(row[col]); id != "" {
			p.Cats = append(p.Cats, Category{CatID: id})
		}
	}
	p.CatsV2 = append(p.CatsV2, p.Cats...)

	for i := 1; i <= maxHeadImgs; i++ {
		if img := strings.TrimSpace(row[fmt.Sprintf("主图%d", i)]); img != "" {
			p.HeadImgs = append(p.HeadImgs, img)
		}
	}
	for i := 1; i <= maxDetailImgs; i++ {
		if img := strings.TrimSpace(row[fmt.Sprintf("详情图%d", i)]); img != "" {
			p.DescInfo.Imgs = append(p.DescInfo.Imgs, img)
		}
	}

	price := strings.TrimSpace(row["SKU价格(分)"])
	stock := strings.TrimSpace(row["SKU库存"])
	if price != "" || stock != "" {
		sku := SKU{OutSKUID: strings.TrimSpace(row["SKU编码"])}
		if sku.Price, err = parseInt(price, "SKU价格(分)"); err != nil {
			return Product{}, err
		}
		if sku.StockNum, err = parseInt(stock, "SKU库存"); err != nil {
			return Product{}, err
		}
		p.SKUs = []SKU{sku}
	}

	return p, nil
}

func productToRow(p Product) []string {
	row := make(map[string]string, len(csvColumns))
	row["商品标题"] = p.Title
	row["副标题"] = p.SubTitle
	row["短标题"] = p.ShortTitle
	row["商品描述"] = p.DescInfo.Desc
	row["发货方式"] = strconv.Itoa(p.DeliverMethod)
	row["上架状态"] = strconv.Itoa(p.Listing)

	levels := []string{"一级类目ID", "二级类目ID", "三级类目ID"}
	for i, cat := range p.Cats {
		if i >= len(levels) {
			break
		}
		row[levels[i]] = cat.CatID
	}

	for i, img := range p.HeadImgs {
		if i >= maxHeadImgs {
			break
		}
		row[fmt.Sprintf("主图%d", i+1)] = img
	}
	for i, img := range p.DescInfo.Imgs {
		if i >= maxDetailImgs {
			break
		}
		row[fmt.Sprintf("详情图%d", i+1)] = img
	}

	if len(p.SKUs) > 0 {
		row["SKU价格(分)"] = strconv.Itoa(p.SKUs[0].Price)
		row["SKU库存"] = strconv.Itoa(p.SKUs[0].StockNum)
		row["SKU编码"] = p.SKUs[0].OutSKUID
	}

	record := make([]string, len(csvColumns))
	for i, col := range csvColumns {
		record[i] = row[col]
	}
	return record
}

func intField(row map[string]string, col string) (int, error) {
	return parseInt(strings.TrimSpace(row[col]), col)
}

func parseInt(s, col string) (int, error) {
	if s == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("column %s: invalid number %q", col, s)
	}
	return n, nil
}
