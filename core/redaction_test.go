package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRedactQueryMap(t *testing.T) {
	query := map[string]string{
		"access_token": "secret-token",
		"appsecret":    "super-secret",
		"grant_type":   "client_credential",
	}

	out := RedactQueryMap(query)

	assert.Equal(t, redactedValue, out["access_token"])
	assert.Equal(t, redactedValue, out["appsecret"])
	assert.Equal(t, "client_credential", out["grant_type"])

	// 原 map 不被修改
	assert.Equal(t, "secret-token", query["access_token"])
}

func TestRedactQueryMapNil(t *testing.T) {
	assert.Nil(t, RedactQueryMap(nil))
}

func TestRedactURLQuery(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "token redacted",
			in:   "https://api.weixin.qq.com/cgi-bin/token?appid=wx123&secret=abc",
			want: "https://api.weixin.qq.com/cgi-bin/token?appid=wx123&secret=" + redactedValue,
		},
		{
			name: "no query untouched",
			in:   "https://api.weixin.qq.com/channels/ec/product/add",
			want: "https://api.weixin.qq.com/channels/ec/product/add",
		},
		{
			name: "case insensitive key",
			in:   "https://example.com/x?Access_Token=abc",
			want: "https://example.com/x?Access_Token=" + redactedValue,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, RedactURLQuery(tt.in))
		})
	}
}
