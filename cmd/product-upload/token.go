package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/calvinCq/product-upload/core"
)

func newTokenCmd() *cobra.Command {
	var flagRefresh bool

	cmd := &cobra.Command{
		Use:   "token",
		Short: "获取接口调用凭证",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, shopClient, err := loadShop()
			if err != nil {
				return err
			}

			var cred core.Credential
			if flagRefresh {
				cred, err = shopClient.TokenManager().ForceRefresh(cmd.Context())
			} else {
				cred, err = shopClient.AccessToken(cmd.Context())
			}
			if err != nil {
				return err
			}

			fmt.Println("access_token:", cred.Token)
			fmt.Println("expires_at:", cred.ExpiresAt.Format(time.RFC3339))
			return nil
		},
	}

	cmd.Flags().BoolVar(&flagRefresh, "refresh", false, "强制刷新凭证而不是复用缓存")
	return cmd
}
