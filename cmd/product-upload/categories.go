package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newCategoriesCmd() *cobra.Command {
	var flagLeafOnly bool

	cmd := &cobra.Command{
		Use:   "categories",
		Short: "拉取商品类目列表",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, shopClient, err := loadShop()
			if err != nil {
				return err
			}

			cats, err := shopClient.Categories(cmd.Context())
			if err != nil {
				return err
			}

			for _, cat := range cats {
				if flagLeafOnly && !cat.Leaf {
					continue
				}
				fmt.Printf("%s\t%s\t(父类目 %s)\n", cat.CatID, cat.Name, cat.FatherID)
			}
			fmt.Printf("共 %d 个类目\n", len(cats))
			return nil
		},
	}

	cmd.Flags().BoolVar(&flagLeafOnly, "leaf-only", false, "只显示叶子类目")
	return cmd
}
